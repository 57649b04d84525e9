package store

import "snapfeed/internal/models"

// PostState holds the current user's posts, the global feed and one loading
// flag per intent family. Error is shared by every family.
type PostState struct {
	UserPosts            []models.Post `json:"userPosts"`
	AllPosts             []models.Post `json:"allposts"`
	Loading              bool          `json:"loading"`
	LikeLoading          bool          `json:"likeLoading"`
	CommentLoading       bool          `json:"commentLoading"`
	DeleteCommentLoading bool          `json:"deleteCommentLoading"`
	Error                string        `json:"error,omitempty"`
}

// NewPostState returns the empty post slice.
func NewPostState() PostState {
	return PostState{
		UserPosts: []models.Post{},
		AllPosts:  []models.Post{},
	}
}

// PostOp identifies a post intent family.
type PostOp int

const (
	OpCreate PostOp = iota
	OpFetchMine
	OpFetchAll
	OpUpdate
	OpDelete
	OpLike
	OpAddComment
	OpDeleteComment
)

var postOpNames = map[PostOp]string{
	OpCreate:        "createPost",
	OpFetchMine:     "fetchUserPosts",
	OpFetchAll:      "fetchAllPosts",
	OpUpdate:        "updatePost",
	OpDelete:        "deletePost",
	OpLike:          "likePost",
	OpAddComment:    "addComment",
	OpDeleteComment: "deleteComment",
}

// PostOps lists every family in declaration order.
func PostOps() []PostOp {
	return []PostOp{OpCreate, OpFetchMine, OpFetchAll, OpUpdate, OpDelete, OpLike, OpAddComment, OpDeleteComment}
}

func (op PostOp) String() string {
	if name, ok := postOpNames[op]; ok {
		return name
	}
	return "unknownPostOp"
}

// Post intents. Start and failure are shared across families; each success
// carries its own payload.
type (
	PostStart struct {
		Op PostOp
	}
	PostFailure struct {
		Op      PostOp
		Message string
	}
	PostCreated struct {
		Post models.Post
	}
	MyPostsFetched struct {
		Posts []models.Post
	}
	FeedFetched struct {
		Posts []models.Post
	}
	PostUpdated struct {
		Post models.Post
	}
	PostDeleted struct {
		ID string
	}
	PostLiked struct {
		Post models.Post
	}
	CommentAdded struct {
		Post models.Post
	}
	CommentDeleted struct {
		Post models.Post
	}
	ClearPostError  struct{}
	ResetCreatePost struct{}
)

func (i PostStart) Type() string     { return "userPost/" + i.Op.String() + "Start" }
func (i PostFailure) Type() string   { return "userPost/" + i.Op.String() + "Failure" }
func (PostCreated) Type() string     { return "userPost/createPostSuccess" }
func (MyPostsFetched) Type() string  { return "userPost/fetchUserPostsSuccess" }
func (FeedFetched) Type() string     { return "userPost/fetchAllPostsSuccess" }
func (PostUpdated) Type() string     { return "userPost/updatePostSuccess" }
func (PostDeleted) Type() string     { return "userPost/deletePostSuccess" }
func (PostLiked) Type() string       { return "userPost/likePostSuccess" }
func (CommentAdded) Type() string    { return "userPost/addCommentSuccess" }
func (CommentDeleted) Type() string  { return "userPost/deleteCommentSuccess" }
func (ClearPostError) Type() string  { return "userPost/clearError" }
func (ResetCreatePost) Type() string { return "userPost/resetCreatePost" }

// ReducePosts returns the state that follows state after intent. It never
// mutates state; collections that change are rebuilt.
func ReducePosts(state PostState, intent Intent) PostState {
	switch in := intent.(type) {
	case PostStart:
		state.Error = ""
		setLoading(&state, in.Op, true)
	case PostFailure:
		setLoading(&state, in.Op, false)
		state.Error = in.Message
	case PostCreated:
		state.Loading = false
		state.UserPosts = prependPost(in.Post, state.UserPosts)
		state.AllPosts = prependPost(in.Post, state.AllPosts)
	case MyPostsFetched:
		state.Loading = false
		state.UserPosts = copyPosts(in.Posts)
	case FeedFetched:
		state.Loading = false
		state.AllPosts = copyPosts(in.Posts)
	case PostUpdated:
		state.Loading = false
		state = replacePost(state, in.Post)
	case PostDeleted:
		state.Loading = false
		state.UserPosts = removePost(state.UserPosts, in.ID)
		state.AllPosts = removePost(state.AllPosts, in.ID)
	case PostLiked:
		state.LikeLoading = false
		state = replacePost(state, in.Post)
	case CommentAdded:
		state.CommentLoading = false
		state = replacePost(state, in.Post)
	case CommentDeleted:
		state.DeleteCommentLoading = false
		state = replacePost(state, in.Post)
	case ClearPostError:
		state.Error = ""
	case ResetCreatePost:
		state.Loading = false
		state.Error = ""
	}
	return state
}

func setLoading(state *PostState, op PostOp, v bool) {
	switch op {
	case OpLike:
		state.LikeLoading = v
	case OpAddComment:
		state.CommentLoading = v
	case OpDeleteComment:
		state.DeleteCommentLoading = v
	default:
		state.Loading = v
	}
}

func prependPost(p models.Post, posts []models.Post) []models.Post {
	out := make([]models.Post, 0, len(posts)+1)
	out = append(out, p)
	return append(out, posts...)
}

func copyPosts(posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	copy(out, posts)
	return out
}

func replacePost(state PostState, updated models.Post) PostState {
	state.UserPosts = replaceByID(state.UserPosts, updated)
	state.AllPosts = replaceByID(state.AllPosts, updated)
	return state
}

// replaceByID swaps every post whose id matches updated. The input slice is
// returned untouched when nothing matches.
func replaceByID(posts []models.Post, updated models.Post) []models.Post {
	idx := -1
	for i := range posts {
		if posts[i].ID == updated.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return posts
	}
	out := copyPosts(posts)
	for i := idx; i < len(out); i++ {
		if out[i].ID == updated.ID {
			out[i] = updated
		}
	}
	return out
}

func removePost(posts []models.Post, id string) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
