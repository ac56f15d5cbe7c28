// Package scheduler runs the feed processing pipeline, on a timer and on
// demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"nodeseek_bot/internal/fetcher"
	"nodeseek_bot/internal/matcher"
	"nodeseek_bot/internal/model"
	"nodeseek_bot/internal/storage"
)

// Sender delivers matched-post notifications.
type Sender interface {
	SendPostNotification(ctx context.Context, post model.Post, keywords []string) error
}

// Report is the aggregate outcome of one pipeline run. The pipeline never
// fails outright; everything that went wrong is an entry in Errors.
type Report struct {
	Processed int           `json:"processed"`
	Matched   int           `json:"matched"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// Pipeline fetches the feed, ingests new posts, matches them against
// subscriptions and dispatches notifications.
type Pipeline struct {
	store  storage.Storage
	fetch  *fetcher.Fetcher
	sender Sender
	log    *slog.Logger

	running atomic.Bool
}

// New creates a Pipeline.
func New(store storage.Storage, fetch *fetcher.Fetcher, sender Sender, log *slog.Logger) *Pipeline {
	return &Pipeline{store: store, fetch: fetch, sender: sender, log: log}
}

// ProcessFeed executes one pipeline pass and returns its report.
//
// Only one pass runs at a time: an overlapping call (scheduled run vs.
// manual trigger) returns immediately with an error entry, since the
// dedup-by-post-id check alone is not race-free. A post left pending after
// a failed dispatch is re-evaluated on a later run against the
// subscription set current at that time; if subscriptions changed in
// between, a different subscription may win. That drift is accepted.
func (p *Pipeline) ProcessFeed(ctx context.Context) Report {
	start := time.Now()
	report := Report{Errors: []string{}}

	if !p.running.CompareAndSwap(false, true) {
		report.Errors = append(report.Errors, "pipeline run already in progress")
		report.Duration = time.Since(start)
		return report
	}
	defer p.running.Store(false)

	cfg, err := p.store.GetConfig(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			report.Errors = append(report.Errors, "system not initialized")
		} else {
			report.Errors = append(report.Errors, fmt.Sprintf("load config: %v", err))
		}
		report.Duration = time.Since(start)
		return report
	}

	subs, err := p.store.ListSubscriptions(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list subscriptions: %v", err))
		report.Duration = time.Since(start)
		return report
	}
	if len(subs) == 0 {
		report.Errors = append(report.Errors, "no subscription rules")
		report.Duration = time.Since(start)
		return report
	}

	raw, err := p.fetch.Fetch(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("fetch feed: %v", err))
		report.Duration = time.Since(start)
		return report
	}

	items, err := fetcher.Parse(raw, p.log)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("parse feed: %v", err))
		report.Duration = time.Since(start)
		return report
	}
	if len(items) == 0 {
		p.log.Info("feed returned no items")
	}

	for _, item := range items {
		p.processItem(ctx, item, subs, *cfg, &report)
	}

	report.Duration = time.Since(start)
	p.log.Info("pipeline run finished",
		"processed", report.Processed, "matched", report.Matched,
		"errors", len(report.Errors), "duration", report.Duration)
	return report
}

func (p *Pipeline) processItem(ctx context.Context, item fetcher.RawItem, subs []model.Subscription, cfg model.Config, report *Report) {
	if item.Title == "" || item.Description == "" || item.Link == "" {
		report.Errors = append(report.Errors, fmt.Sprintf("incomplete item: %q", item.Title))
		return
	}

	postID, ok := fetcher.ExtractPostID(item.Link)
	if !ok {
		report.Errors = append(report.Errors, fmt.Sprintf("no post id in link: %s", item.Link))
		return
	}

	// Dedup boundary: post id equality is the sole key. An already
	// ingested post is skipped silently, which makes re-running the
	// pipeline over the same document idempotent. The one exception is a
	// post still pending from a failed dispatch, which gets another
	// delivery attempt.
	existing, err := p.store.GetPostByPostID(ctx, postID)
	if err == nil {
		if existing.PushStatus == model.StatusPending {
			p.retryPending(ctx, *existing, subs, cfg, report)
		}
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		report.Errors = append(report.Errors, fmt.Sprintf("lookup post %d: %v", postID, err))
		return
	}

	post := model.Post{
		PostID:     postID,
		Title:      item.Title,
		Memo:       item.Description,
		Category:   item.Category,
		Creator:    item.Creator,
		PushStatus: model.StatusPending,
		PubDate:    item.PubDate,
	}
	if err := p.store.CreatePost(ctx, &post); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("create post %d: %v", postID, err))
		return
	}
	report.Processed++

	res := matcher.Match(post, subs, cfg)
	if !res.Matched {
		p.setStatus(ctx, postID, model.StatusSkipped, nil, 0, report)
		return
	}
	report.Matched++

	if cfg.BotToken == "" || cfg.StopPush || cfg.ChatID == 0 {
		p.setStatus(ctx, postID, model.StatusSkipped, nil, res.SubID, report)
		return
	}

	if err := p.sender.SendPostNotification(ctx, post, res.Keywords); err != nil {
		// Left pending on purpose: the next run picks it up again.
		report.Errors = append(report.Errors, fmt.Sprintf("push failed: %s: %v", post.Title, err))
		return
	}
	now := time.Now().UTC()
	p.setStatus(ctx, postID, model.StatusPushed, &now, res.SubID, report)
}

// retryPending re-evaluates a post whose dispatch failed on an earlier
// run. Matching runs against the current subscription set, so a different
// subscription may win than on the first pass; the post does not count
// toward Processed or Matched again.
func (p *Pipeline) retryPending(ctx context.Context, post model.Post, subs []model.Subscription, cfg model.Config, report *Report) {
	res := matcher.Match(post, subs, cfg)
	if !res.Matched {
		p.setStatus(ctx, post.PostID, model.StatusSkipped, nil, 0, report)
		return
	}
	if cfg.BotToken == "" || cfg.StopPush || cfg.ChatID == 0 {
		p.setStatus(ctx, post.PostID, model.StatusSkipped, nil, res.SubID, report)
		return
	}
	if err := p.sender.SendPostNotification(ctx, post, res.Keywords); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("push failed: %s: %v", post.Title, err))
		return
	}
	now := time.Now().UTC()
	p.setStatus(ctx, post.PostID, model.StatusPushed, &now, res.SubID, report)
}

func (p *Pipeline) setStatus(ctx context.Context, postID int64, status model.PushStatus, pushedAt *time.Time, subID int64, report *Report) {
	if err := p.store.UpdatePostStatus(ctx, postID, status, pushedAt, subID); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("update post %d status: %v", postID, err))
	}
}
