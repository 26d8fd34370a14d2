package graph

import (
	"context"
	"strings"

	dataloader "github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"

	"redlink/models"
)

type loadersCtxKey struct{}

// VoteKey identifies one user's vote on one post.
type VoteKey struct {
	PostID uint
	UserID uint
}

// Loaders are the per-request batched relation caches. They coalesce the
// single-key lookups collected during one resolution pass into one query
// each, and are discarded with the request.
type Loaders struct {
	Users *dataloader.Loader[uint, *models.User]
	Votes *dataloader.Loader[VoteKey, *models.Upvote]
}

// NewLoaders builds fresh loaders against the given store handle.
func NewLoaders(db *gorm.DB) *Loaders {
	return &Loaders{
		Users: dataloader.NewBatchedLoader(userBatch(db)),
		Votes: dataloader.NewBatchedLoader(voteBatch(db)),
	}
}

// WithLoaders attaches fresh per-request loaders to the context.
func WithLoaders(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, loadersCtxKey{}, NewLoaders(db))
}

// LoadersFrom returns the request's loaders, or nil outside a request.
func LoadersFrom(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersCtxKey{}).(*Loaders)
	return l
}

func userBatch(db *gorm.DB) dataloader.BatchFunc[uint, *models.User] {
	return func(ctx context.Context, keys []uint) []*dataloader.Result[*models.User] {
		results := make([]*dataloader.Result[*models.User], len(keys))

		var users []models.User
		if err := db.WithContext(ctx).Where("id IN ?", keys).Find(&users).Error; err != nil {
			for i := range results {
				results[i] = &dataloader.Result[*models.User]{Error: err}
			}
			return results
		}

		byID := make(map[uint]*models.User, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}
		for i, key := range keys {
			results[i] = &dataloader.Result[*models.User]{Data: byID[key]}
		}
		return results
	}
}

func voteBatch(db *gorm.DB) dataloader.BatchFunc[VoteKey, *models.Upvote] {
	return func(ctx context.Context, keys []VoteKey) []*dataloader.Result[*models.Upvote] {
		results := make([]*dataloader.Result[*models.Upvote], len(keys))

		conds := make([]string, 0, len(keys))
		args := make([]interface{}, 0, 2*len(keys))
		for _, key := range keys {
			conds = append(conds, "(post_id = ? AND user_id = ?)")
			args = append(args, key.PostID, key.UserID)
		}

		var votes []models.Upvote
		if err := db.WithContext(ctx).Where(strings.Join(conds, " OR "), args...).Find(&votes).Error; err != nil {
			for i := range results {
				results[i] = &dataloader.Result[*models.Upvote]{Error: err}
			}
			return results
		}

		byKey := make(map[VoteKey]*models.Upvote, len(votes))
		for i := range votes {
			byKey[VoteKey{PostID: votes[i].PostID, UserID: votes[i].UserID}] = &votes[i]
		}
		// keys with no matching row resolve to nil, meaning "no vote"
		for i, key := range keys {
			results[i] = &dataloader.Result[*models.Upvote]{Data: byKey[key]}
		}
		return results
	}
}
