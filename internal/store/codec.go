package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"snapfeed/internal/models"
)

// Action is the wire form of an intent: {"type": "...", "payload": ...}.
type Action struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type payloadDecoder func(json.RawMessage) (Intent, error)

var intentDecoders = map[string]payloadDecoder{}

func init() {
	register := func(i Intent, dec payloadDecoder) { intentDecoders[i.Type()] = dec }
	bare := func(i Intent) payloadDecoder {
		return func(json.RawMessage) (Intent, error) { return i, nil }
	}

	register(AuthStart{}, bare(AuthStart{}))
	register(AuthSuccess{}, func(p json.RawMessage) (Intent, error) {
		var cu models.CurrentUser
		if err := decodePayload(p, &cu); err != nil {
			return nil, err
		}
		return AuthSuccess{CurrentUser: cu}, nil
	})
	register(AuthFailure{}, func(p json.RawMessage) (Intent, error) {
		msg, err := decodeMessage(p)
		return AuthFailure{Message: msg}, err
	})
	register(UpdateStart{}, bare(UpdateStart{}))
	register(UpdateSuccess{}, func(p json.RawMessage) (Intent, error) {
		var body struct {
			User    models.UserProfile `json:"user"`
			Message string             `json:"message"`
		}
		if err := decodePayload(p, &body); err != nil {
			return nil, err
		}
		return UpdateSuccess{User: body.User, Message: body.Message}, nil
	})
	register(UpdateFailure{}, func(p json.RawMessage) (Intent, error) {
		msg, err := decodeMessage(p)
		return UpdateFailure{Message: msg}, err
	})
	register(Logout{}, bare(Logout{}))
	register(ClearSessionError{}, bare(ClearSessionError{}))

	for _, op := range PostOps() {
		op := op
		register(PostStart{Op: op}, bare(PostStart{Op: op}))
		register(PostFailure{Op: op}, func(p json.RawMessage) (Intent, error) {
			msg, err := decodeMessage(p)
			return PostFailure{Op: op, Message: msg}, err
		})
	}
	register(PostCreated{}, postPayload(func(p models.Post) Intent { return PostCreated{Post: p} }))
	register(PostUpdated{}, postPayload(func(p models.Post) Intent { return PostUpdated{Post: p} }))
	register(PostLiked{}, postPayload(func(p models.Post) Intent { return PostLiked{Post: p} }))
	register(CommentAdded{}, postPayload(func(p models.Post) Intent { return CommentAdded{Post: p} }))
	register(CommentDeleted{}, postPayload(func(p models.Post) Intent { return CommentDeleted{Post: p} }))
	register(MyPostsFetched{}, func(p json.RawMessage) (Intent, error) {
		posts, err := decodePostList(p)
		return MyPostsFetched{Posts: posts}, err
	})
	register(FeedFetched{}, func(p json.RawMessage) (Intent, error) {
		posts, err := decodePostList(p)
		return FeedFetched{Posts: posts}, err
	})
	register(PostDeleted{}, func(p json.RawMessage) (Intent, error) {
		id, err := decodeMessage(p)
		if err == nil && id == "" {
			err = models.NewValidationError("deletePostSuccess requires a post id")
		}
		return PostDeleted{ID: id}, err
	})
	register(ClearPostError{}, bare(ClearPostError{}))
	register(ResetCreatePost{}, bare(ResetCreatePost{}))
}

// DecodeAction turns a wire action into a typed intent. Rehydration is not
// accepted from the wire.
func DecodeAction(a Action) (Intent, error) {
	dec, ok := intentDecoders[strings.TrimSpace(a.Type)]
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unknown intent type %q", a.Type))
	}
	intent, err := dec(a.Payload)
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// IntentTypes lists every type DecodeAction accepts.
func IntentTypes() []string {
	out := make([]string, 0, len(intentDecoders))
	for k := range intentDecoders {
		out = append(out, k)
	}
	return out
}

func postPayload(build func(models.Post) Intent) payloadDecoder {
	return func(p json.RawMessage) (Intent, error) {
		var post models.Post
		if err := decodePayload(p, &post); err != nil {
			return nil, err
		}
		if post.ID == "" {
			return nil, models.NewValidationError("post payload requires an _id")
		}
		return build(post), nil
	}
}

// decodePostList mirrors the lenient list handling of the fetch successes:
// anything that is not an array becomes an empty list.
func decodePostList(p json.RawMessage) ([]models.Post, error) {
	p = bytes.TrimSpace(p)
	if len(p) == 0 || p[0] != '[' {
		return []models.Post{}, nil
	}
	var posts []models.Post
	if err := decodePayload(p, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func decodeMessage(p json.RawMessage) (string, error) {
	p = bytes.TrimSpace(p)
	if len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(p, &s); err != nil {
		return "", models.NewValidationError("payload must be a string")
	}
	return s, nil
}

func decodePayload(p json.RawMessage, v any) error {
	if len(bytes.TrimSpace(p)) == 0 {
		return models.NewValidationError("payload is required")
	}
	if err := json.Unmarshal(p, v); err != nil {
		return &models.AppError{Code: models.CodeValidation, Message: "invalid payload", Err: err}
	}
	return nil
}
