package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"redlink/models"
	"redlink/utils"
)

// MaxPageSize caps the feed page size regardless of the requested limit.
const MaxPageSize = 50

const snippetLength = 50

// ErrEmptyTitle rejects posts whose title is blank after sanitizing.
var ErrEmptyTitle = errors.New("title cannot be empty")

// ErrPostNotFound rejects votes on posts that do not exist.
var ErrPostNotFound = errors.New("post not found")

// PostService implements the feed query and post mutations against an
// injected store handle.
type PostService struct {
	db *gorm.DB
}

// NewPostService creates a PostService bound to the given database.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// PostPage is one page of the feed plus whether an older page exists.
type PostPage struct {
	Posts   []models.Post
	HasMore bool
}

// List returns posts ordered by created_at descending. The cursor, when set,
// is a millisecond-epoch string and acts as an exclusive upper bound on
// created_at. One extra row is fetched to decide HasMore without a count
// query. Ties on identical created_at can skip or duplicate a row; a compound
// (created_at, id) cursor would be needed for exact correctness.
func (s *PostService) List(ctx context.Context, limit int, cursor *string) (*PostPage, error) {
	realLimit := limit
	if realLimit > MaxPageSize {
		realLimit = MaxPageSize
	}
	if realLimit < 1 {
		realLimit = 1
	}

	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(realLimit + 1)
	if cursor != nil && *cursor != "" {
		ms, err := strconv.ParseInt(*cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		q = q.Where("created_at < ?", time.UnixMilli(ms))
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}

	hasMore := len(posts) > realLimit
	if hasMore {
		posts = posts[:realLimit]
	}
	return &PostPage{Posts: posts, HasMore: hasMore}, nil
}

// Get returns a single post, or nil when it does not exist. Reads are public.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create inserts a post owned by creatorID. The creator always comes from the
// session, never from client input.
func (s *PostService) Create(ctx context.Context, title, text string, creatorID uint) (*models.Post, error) {
	title = utils.Sanitize(strings.TrimSpace(title))
	if title == "" {
		return nil, ErrEmptyTitle
	}
	post := models.Post{
		Title:     title,
		Text:      utils.Sanitize(text),
		CreatorID: creatorID,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Update changes title and text, scoped to the caller's own post. A non-owner
// or unknown id affects zero rows and is reported as nil rather than a false
// success.
func (s *PostService) Update(ctx context.Context, id uint, title, text string, callerID uint) (*models.Post, error) {
	title = utils.Sanitize(strings.TrimSpace(title))
	if title == "" {
		return nil, ErrEmptyTitle
	}
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND creator_id = ?", id, callerID).
		Updates(map[string]interface{}{
			"title": title,
			"text":  utils.Sanitize(text),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.Get(ctx, id)
}

// Delete removes the caller's own post. Returns false when no row matched.
func (s *PostService) Delete(ctx context.Context, id, callerID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND creator_id = ?", id, callerID).
		Delete(&models.Post{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Vote records or flips the caller's vote on a post. Value is normalized to
// +1 or -1. The upvote write and the points adjustment run in one database
// transaction; the post and upvote rows are lock-read so concurrent votes on
// the same post serialize instead of double-applying a flip under snapshot
// isolation. Voting on a missing post returns ErrPostNotFound. Repeating the
// same direction is a no-op.
func (s *PostService) Vote(ctx context.Context, postID uint, value int, callerID uint) error {
	realValue := 1
	if value == -1 {
		realValue = -1
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Locking the post row also serializes first-time votes, which have
		// no upvote row to lock yet.
		var post models.Post
		if err := forUpdate(tx).Select("id").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		var existing models.Upvote
		err := forUpdate(tx).Where("user_id = ? AND post_id = ?", callerID, postID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first vote on this post
			if err := tx.Create(&models.Upvote{UserID: callerID, PostID: postID, Value: realValue}).Error; err != nil {
				return err
			}
			return addPoints(tx, postID, realValue)
		case err != nil:
			return err
		case existing.Value != realValue:
			// switching direction reverses the old contribution and applies
			// the new one in a single adjustment
			if err := tx.Model(&models.Upvote{}).
				Where("user_id = ? AND post_id = ?", callerID, postID).
				Update("value", realValue).Error; err != nil {
				return err
			}
			return addPoints(tx, postID, 2*realValue)
		default:
			return nil
		}
	})
}

// forUpdate adds a SELECT ... FOR UPDATE row lock. The sqlite driver drops
// the clause; sqlite serializes writers at the database level instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func addPoints(tx *gorm.DB, postID uint, delta int) error {
	return tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("points", gorm.Expr("points + ?", delta)).Error
}

// TextSnippet returns the first 50 characters of text, with a continuation
// marker appended when the body is longer.
func TextSnippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}
