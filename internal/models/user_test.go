package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfile_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  UserProfile
	}{
		{
			name:  "mongo id",
			input: `{"_id":"u1","username":"alice","email":"a@x.io"}`,
			want:  UserProfile{ID: "u1", Username: "alice", Email: "a@x.io", Present: []string{"_id", "username", "email"}},
		},
		{
			name:  "plain id",
			input: `{"id":"u2","username":"bob"}`,
			want:  UserProfile{ID: "u2", Username: "bob", Present: []string{"_id", "username"}},
		},
		{
			name:  "numeric id",
			input: `{"id":42,"username":"carol"}`,
			want:  UserProfile{ID: "42", Username: "carol", Present: []string{"_id", "username"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got UserProfile
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserProfile_KeepsUnknownFields(t *testing.T) {
	var u UserProfile
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"u1","username":"alice","bio":"hi","followers":3}`), &u))
	assert.JSONEq(t, `"hi"`, string(u.Extra["bio"]))

	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"u1","username":"alice","email":"","bio":"hi","followers":3}`, string(out))
}

func TestUserProfile_Merge(t *testing.T) {
	base := UserProfile{
		ID: "u1", Username: "alice", Email: "a@x.io",
		Extra: map[string]json.RawMessage{"bio": json.RawMessage(`"old"`)},
	}
	patch := UserProfile{
		Username: "alicia",
		Extra:    map[string]json.RawMessage{"bio": json.RawMessage(`"new"`), "city": json.RawMessage(`"Oslo"`)},
	}

	merged, err := base.Merge(patch)
	require.NoError(t, err)
	assert.Equal(t, "u1", merged.ID)
	assert.Equal(t, "alicia", merged.Username)
	assert.Equal(t, "a@x.io", merged.Email, "empty patch fields keep the base value")
	assert.JSONEq(t, `"new"`, string(merged.Extra["bio"]))
	assert.JSONEq(t, `"Oslo"`, string(merged.Extra["city"]))

	assert.Equal(t, "alice", base.Username)
	assert.JSONEq(t, `"old"`, string(base.Extra["bio"]), "the receiver is not mutated")
}

func TestUserProfile_MergeDecodedPatch(t *testing.T) {
	base := UserProfile{ID: "u1", Username: "alice", Email: "a@x.io", ProfilePicture: "https://img/a.png"}

	var patch UserProfile
	require.NoError(t, json.Unmarshal([]byte(`{"username":"alicia","profilePicture":""}`), &patch))
	assert.Equal(t, []string{"username", "profilePicture"}, patch.Present)

	merged, err := base.Merge(patch)
	require.NoError(t, err)
	assert.Equal(t, "alicia", merged.Username)
	assert.Empty(t, merged.ProfilePicture, "a present empty value clears the field")
	assert.Equal(t, "a@x.io", merged.Email, "absent keys keep the base value")
	assert.Equal(t, "u1", merged.ID)
}

func TestCurrentUser_Clone(t *testing.T) {
	var nilUser *CurrentUser
	assert.Nil(t, nilUser.Clone())

	cu := &CurrentUser{User: UserProfile{ID: "u1", Extra: map[string]json.RawMessage{"a": json.RawMessage(`1`)}}, Message: "ok"}
	c := cu.Clone()
	c.User.Extra["a"] = json.RawMessage(`2`)
	assert.JSONEq(t, `1`, string(cu.User.Extra["a"]))
	assert.Equal(t, "ok", c.Message)
}

func TestProfileUpdate_ReadsDataField(t *testing.T) {
	var res ProfileUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"message":"User updated successfully","data":{"_id":"u1","username":"alicia"}}`), &res))
	assert.Equal(t, "alicia", res.User.Username)
	assert.Equal(t, "User updated successfully", res.Message)
}
