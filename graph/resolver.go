package graph

import (
	"context"
	"errors"
	"strconv"
	"time"

	"redlink/middleware"
	"redlink/models"
	"redlink/services"
)

var errNotAuthenticated = errors.New("not authenticated")

// Resolver is the root resolver for both queries and mutations. It holds only
// the injected services; all per-request state travels in the context.
type Resolver struct {
	posts *services.PostService
	users *services.UserService
}

// NewResolver creates the root resolver.
func NewResolver(posts *services.PostService, users *services.UserService) *Resolver {
	return &Resolver{posts: posts, users: users}
}

// UsernamePasswordInput mirrors the register input object.
type UsernamePasswordInput struct {
	Username string
	Email    string
	Password string
}

// PostInput mirrors the createPost input object.
type PostInput struct {
	Title string
	Text  string
}

// ---- queries ----

func (r *Resolver) Me(ctx context.Context) (*UserResolver, error) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return nil, nil
	}
	user, err := r.users.Me(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}
	return &UserResolver{user: user}, nil
}

func (r *Resolver) Posts(ctx context.Context, args struct {
	Limit  int32
	Cursor *string
}) (*PaginatedPostsResolver, error) {
	page, err := r.posts.List(ctx, int(args.Limit), args.Cursor)
	if err != nil {
		return nil, err
	}
	return &PaginatedPostsResolver{page: page}, nil
}

func (r *Resolver) Post(ctx context.Context, args struct{ ID int32 }) (*PostResolver, error) {
	post, err := r.posts.Get(ctx, uint(args.ID))
	if err != nil || post == nil {
		return nil, err
	}
	return &PostResolver{post: post}, nil
}

// ---- user mutations ----

func (r *Resolver) Register(ctx context.Context, args struct{ Options UsernamePasswordInput }) (*UserResponseResolver, error) {
	user, ferrs, err := r.users.Register(ctx, args.Options.Username, args.Options.Email, args.Options.Password)
	if err != nil {
		return nil, err
	}
	if ferrs != nil {
		return &UserResponseResolver{errors: ferrs}, nil
	}
	if err := issueSession(ctx, user.ID); err != nil {
		return nil, err
	}
	return &UserResponseResolver{user: user}, nil
}

func (r *Resolver) Login(ctx context.Context, args struct {
	UsernameOrEmail string
	Password        string
}) (*UserResponseResolver, error) {
	user, ferrs, err := r.users.Login(ctx, args.UsernameOrEmail, args.Password)
	if err != nil {
		return nil, err
	}
	if ferrs != nil {
		return &UserResponseResolver{errors: ferrs}, nil
	}
	if err := issueSession(ctx, user.ID); err != nil {
		return nil, err
	}
	return &UserResponseResolver{user: user}, nil
}

func (r *Resolver) Logout(ctx context.Context) bool {
	sess := middleware.FromContext(ctx)
	if sess == nil {
		return false
	}
	return sess.Clear(ctx)
}

func (r *Resolver) ForgotPassword(ctx context.Context, args struct{ Email string }) (bool, error) {
	if err := r.users.ForgotPassword(ctx, args.Email); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Resolver) ChangePassword(ctx context.Context, args struct {
	Token       string
	NewPassword string
}) (*UserResponseResolver, error) {
	user, ferrs, err := r.users.ChangePassword(ctx, args.Token, args.NewPassword)
	if err != nil {
		return nil, err
	}
	if ferrs != nil {
		return &UserResponseResolver{errors: ferrs}, nil
	}
	if err := issueSession(ctx, user.ID); err != nil {
		return nil, err
	}
	return &UserResponseResolver{user: user}, nil
}

// ---- post mutations ----

func (r *Resolver) CreatePost(ctx context.Context, args struct{ Input PostInput }) (*PostResolver, error) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return nil, errNotAuthenticated
	}
	post, err := r.posts.Create(ctx, args.Input.Title, args.Input.Text, userID)
	if err != nil {
		return nil, err
	}
	return &PostResolver{post: post}, nil
}

func (r *Resolver) UpdatePost(ctx context.Context, args struct {
	ID    int32
	Title string
	Text  string
}) (*PostResolver, error) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return nil, errNotAuthenticated
	}
	post, err := r.posts.Update(ctx, uint(args.ID), args.Title, args.Text, userID)
	if err != nil || post == nil {
		return nil, err
	}
	return &PostResolver{post: post}, nil
}

func (r *Resolver) DeletePost(ctx context.Context, args struct{ ID int32 }) (bool, error) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return false, errNotAuthenticated
	}
	return r.posts.Delete(ctx, uint(args.ID), userID)
}

func (r *Resolver) Vote(ctx context.Context, args struct {
	PostID int32
	Value  int32
}) (bool, error) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return false, errNotAuthenticated
	}
	if err := r.posts.Vote(ctx, uint(args.PostID), int(args.Value), userID); err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func issueSession(ctx context.Context, userID uint) error {
	sess := middleware.FromContext(ctx)
	if sess == nil {
		return errors.New("session unavailable")
	}
	return sess.Issue(ctx, userID)
}

// ---- type resolvers ----

// PaginatedPostsResolver resolves one feed page.
type PaginatedPostsResolver struct {
	page *services.PostPage
}

func (r *PaginatedPostsResolver) Posts() []*PostResolver {
	out := make([]*PostResolver, len(r.page.Posts))
	for i := range r.page.Posts {
		out[i] = &PostResolver{post: &r.page.Posts[i]}
	}
	return out
}

func (r *PaginatedPostsResolver) HasMore() bool {
	return r.page.HasMore
}

// PostResolver shapes a post row for the response. textSnippet, creator and
// voteStatus are computed here as projection steps, independent of storage.
type PostResolver struct {
	post *models.Post
}

func (r *PostResolver) ID() int32 {
	return int32(r.post.ID)
}

func (r *PostResolver) Title() string {
	return r.post.Title
}

func (r *PostResolver) Text() string {
	return r.post.Text
}

func (r *PostResolver) TextSnippet() string {
	return services.TextSnippet(r.post.Text)
}

func (r *PostResolver) Points() int32 {
	return int32(r.post.Points)
}

func (r *PostResolver) CreatorID() int32 {
	return int32(r.post.CreatorID)
}

func (r *PostResolver) Creator(ctx context.Context) (*UserResolver, error) {
	loaders := LoadersFrom(ctx)
	if loaders == nil {
		return nil, errors.New("loaders not attached to request")
	}
	user, err := loaders.Users.Load(ctx, r.post.CreatorID)()
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("creator not found")
	}
	return &UserResolver{user: user}, nil
}

// VoteStatus is the requesting user's vote on this post: +1, -1, or null when
// anonymous or unvoted.
func (r *PostResolver) VoteStatus(ctx context.Context) (*int32, error) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return nil, nil
	}
	loaders := LoadersFrom(ctx)
	if loaders == nil {
		return nil, errors.New("loaders not attached to request")
	}
	vote, err := loaders.Votes.Load(ctx, VoteKey{PostID: r.post.ID, UserID: userID})()
	if err != nil {
		return nil, err
	}
	if vote == nil {
		return nil, nil
	}
	value := int32(vote.Value)
	return &value, nil
}

func (r *PostResolver) CreatedAt() string {
	return msEpoch(r.post.CreatedAt)
}

func (r *PostResolver) UpdatedAt() string {
	return msEpoch(r.post.UpdatedAt)
}

// UserResolver shapes a user row for the response.
type UserResolver struct {
	user *models.User
}

func (r *UserResolver) ID() int32 {
	return int32(r.user.ID)
}

func (r *UserResolver) Username() string {
	return r.user.Username
}

// Email is only revealed to its owner; other viewers get an empty string.
func (r *UserResolver) Email(ctx context.Context) string {
	if userID, ok := middleware.CurrentUserID(ctx); ok && userID == r.user.ID {
		return r.user.Email
	}
	return ""
}

func (r *UserResolver) CreatedAt() string {
	return msEpoch(r.user.CreatedAt)
}

func (r *UserResolver) UpdatedAt() string {
	return msEpoch(r.user.UpdatedAt)
}

// UserResponseResolver carries either a user or field-scoped errors, never a
// thrown error, so validation failures stay form-addressable.
type UserResponseResolver struct {
	errors []services.FieldError
	user   *models.User
}

func (r *UserResponseResolver) Errors() *[]*FieldErrorResolver {
	if len(r.errors) == 0 {
		return nil
	}
	out := make([]*FieldErrorResolver, len(r.errors))
	for i := range r.errors {
		out[i] = &FieldErrorResolver{err: r.errors[i]}
	}
	return &out
}

func (r *UserResponseResolver) User() *UserResolver {
	if r.user == nil {
		return nil
	}
	return &UserResolver{user: r.user}
}

// FieldErrorResolver resolves one {field, message} pair.
type FieldErrorResolver struct {
	err services.FieldError
}

func (r *FieldErrorResolver) Field() string {
	return r.err.Field
}

func (r *FieldErrorResolver) Message() string {
	return r.err.Message
}

func msEpoch(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
