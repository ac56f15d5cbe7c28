// Package model defines the domain types used across the application.
package model

import "time"

// PushStatus tracks whether a post notification has been delivered.
type PushStatus int

// Push status values. A post is created Pending, becomes Pushed after a
// successful delivery and Skipped when it either did not match any
// subscription or delivery was disabled. A failed delivery leaves the post
// Pending so a later run retries it.
const (
	StatusPending PushStatus = 0
	StatusPushed  PushStatus = 1
	StatusSkipped PushStatus = 2
)

// Label returns a human-readable name for the status.
func (s PushStatus) Label() string {
	switch s {
	case StatusPushed:
		return "pushed"
	case StatusSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// Config is the singleton bot configuration. At most one record exists.
type Config struct {
	ID        int64
	Username  string
	Password  string
	BotToken  string
	ChatID    int64 // 0 means no chat is bound yet
	StopPush  bool
	OnlyTitle bool
	BoundUser string // JSON blob describing the bound Telegram user
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConfigUpdate is a partial update of Config. Nil fields are left untouched.
type ConfigUpdate struct {
	Username  *string
	Password  *string
	BotToken  *string
	ChatID    *int64
	StopPush  *bool
	OnlyTitle *bool
	BoundUser *string
}

// Subscription is a keyword subscription rule. Up to three keywords are
// combined with AND semantics; creator and category act as additional
// filters when present.
type Subscription struct {
	ID        int64
	Keyword1  string
	Keyword2  string
	Keyword3  string
	Creator   string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Keywords returns the non-empty keywords of the subscription in order.
func (s Subscription) Keywords() []string {
	var kws []string
	for _, kw := range []string{s.Keyword1, s.Keyword2, s.Keyword3} {
		if kw != "" {
			kws = append(kws, kw)
		}
	}
	return kws
}

// SubscriptionUpdate is a partial update of Subscription.
type SubscriptionUpdate struct {
	Keyword1 *string
	Keyword2 *string
	Keyword3 *string
	Creator  *string
	Category *string
}

// Post is an ingested feed item. PostID is the external identifier
// extracted from the item link and is the deduplication key.
type Post struct {
	ID         int64
	PostID     int64
	Title      string
	Memo       string
	Category   string
	Creator    string
	PushStatus PushStatus
	SubID      int64 // subscription that triggered the push, 0 if none
	PubDate    time.Time
	PushDate   *time.Time
	CreatedAt  time.Time
}
