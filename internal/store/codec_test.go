package store

import (
	"encoding/json"
	"testing"

	"snapfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) (Intent, error) {
	t.Helper()
	var a Action
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	return DecodeAction(a)
}

func TestDecodeAction_SessionIntents(t *testing.T) {
	intent, err := decode(t, `{"type":"user/signInStart"}`)
	require.NoError(t, err)
	assert.Equal(t, AuthStart{}, intent)

	intent, err = decode(t, `{"type":"user/signInSuccess","payload":{"user":{"_id":"u1","username":"alice","bio":"hi"},"message":"ok"}}`)
	require.NoError(t, err)
	success, ok := intent.(AuthSuccess)
	require.True(t, ok)
	assert.Equal(t, "u1", success.CurrentUser.User.ID)
	assert.JSONEq(t, `"hi"`, string(success.CurrentUser.User.Extra["bio"]))

	intent, err = decode(t, `{"type":"user/signInFailure","payload":"Login failed"}`)
	require.NoError(t, err)
	assert.Equal(t, AuthFailure{Message: "Login failed"}, intent)

	intent, err = decode(t, `{"type":"user/updateSuccess","payload":{"user":{"username":"b"},"message":"ok"}}`)
	require.NoError(t, err)
	assert.Equal(t, "b", intent.(UpdateSuccess).User.Username)
}

func TestDecodeAction_PostIntents(t *testing.T) {
	intent, err := decode(t, `{"type":"userPost/likePostStart"}`)
	require.NoError(t, err)
	assert.Equal(t, PostStart{Op: OpLike}, intent)

	intent, err = decode(t, `{"type":"userPost/addCommentFailure","payload":"Failed to add comment"}`)
	require.NoError(t, err)
	assert.Equal(t, PostFailure{Op: OpAddComment, Message: "Failed to add comment"}, intent)

	intent, err = decode(t, `{"type":"userPost/likePostSuccess","payload":{"_id":"p1","likes":["u1",{"_id":"u2","username":"bob"}]}}`)
	require.NoError(t, err)
	liked := intent.(PostLiked)
	require.Len(t, liked.Post.Likes, 2)
	assert.False(t, liked.Post.Likes[0].IsProfile())
	assert.True(t, liked.Post.Likes[1].IsProfile())

	intent, err = decode(t, `{"type":"userPost/fetchAllPostsSuccess","payload":{"posts":[]}}`)
	require.NoError(t, err)
	assert.Equal(t, FeedFetched{Posts: []models.Post{}}, intent)

	intent, err = decode(t, `{"type":"userPost/deletePostSuccess","payload":"p1"}`)
	require.NoError(t, err)
	assert.Equal(t, PostDeleted{ID: "p1"}, intent)
}

func TestDecodeAction_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown type":       `{"type":"user/doesNotExist"}`,
		"rehydrate":          `{"type":"persist/REHYDRATE","payload":{}}`,
		"missing payload":    `{"type":"user/signInSuccess"}`,
		"post without id":    `{"type":"userPost/updatePostSuccess","payload":{"title":"x"}}`,
		"delete without id":  `{"type":"userPost/deletePostSuccess","payload":""}`,
		"non-string message": `{"type":"user/signInFailure","payload":{"message":"x"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			intent, err := decode(t, raw)
			assert.Nil(t, intent)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, models.CodeValidation))
		})
	}
}

func TestIntentTypesCoverEveryFamily(t *testing.T) {
	types := IntentTypes()
	for _, op := range PostOps() {
		assert.Contains(t, types, PostStart{Op: op}.Type())
		assert.Contains(t, types, PostFailure{Op: op}.Type())
	}
	assert.Contains(t, types, Logout{}.Type())
	assert.NotContains(t, types, Rehydrate{}.Type())
}
