// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"nodeseek_bot/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	GetConfig(ctx context.Context) (*model.Config, error)
	CreateConfig(ctx context.Context, cfg *model.Config) error
	UpdateConfig(ctx context.Context, upd model.ConfigUpdate) (*model.Config, error)

	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	GetSubscription(ctx context.Context, id int64) (*model.Subscription, error)
	UpdateSubscription(ctx context.Context, id int64, upd model.SubscriptionUpdate) (*model.Subscription, error)
	DeleteSubscription(ctx context.Context, id int64) error

	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByPostID(ctx context.Context, postID int64) (*model.Post, error)
	UpdatePostStatus(ctx context.Context, postID int64, status model.PushStatus, pushedAt *time.Time, subID int64) error
	ListRecentPosts(ctx context.Context, limit int) ([]model.Post, error)
	CountPushedSince(ctx context.Context, since time.Time) (int, error)

	Close() error
}
