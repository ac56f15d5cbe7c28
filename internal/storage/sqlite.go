package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"nodeseek_bot/internal/model"
	"nodeseek_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetConfig returns the singleton configuration record.
// ErrNotFound is returned when the system has not been initialized yet.
func (s *SQLite) GetConfig(ctx context.Context) (*model.Config, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password, bot_token, chat_id, stop_push, only_title, bound_user, created_at, updated_at
		 FROM base_config LIMIT 1`,
	)
	return scanConfig(row)
}

// CreateConfig inserts the singleton configuration record.
// At most one record may exist; a second insert is rejected.
func (s *SQLite) CreateConfig(ctx context.Context, cfg *model.Config) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM base_config`).Scan(&count); err != nil {
		return fmt.Errorf("count config: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("config already exists")
	}

	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO base_config (username, password, bot_token, chat_id, stop_push, only_title, bound_user, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.Username, cfg.Password, nullString(cfg.BotToken), cfg.ChatID,
		boolToInt(cfg.StopPush), boolToInt(cfg.OnlyTitle), nullString(cfg.BoundUser), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	cfg.ID = id
	cfg.CreatedAt, _ = time.Parse(timeLayout, now)
	cfg.UpdatedAt = cfg.CreatedAt
	return nil
}

// UpdateConfig applies a partial update to the singleton configuration and
// returns the updated record.
func (s *SQLite) UpdateConfig(ctx context.Context, upd model.ConfigUpdate) (*model.Config, error) {
	var sets []string
	var args []any

	if upd.Username != nil {
		sets, args = append(sets, "username = ?"), append(args, *upd.Username)
	}
	if upd.Password != nil {
		sets, args = append(sets, "password = ?"), append(args, *upd.Password)
	}
	if upd.BotToken != nil {
		sets, args = append(sets, "bot_token = ?"), append(args, nullString(*upd.BotToken))
	}
	if upd.ChatID != nil {
		sets, args = append(sets, "chat_id = ?"), append(args, *upd.ChatID)
	}
	if upd.StopPush != nil {
		sets, args = append(sets, "stop_push = ?"), append(args, boolToInt(*upd.StopPush))
	}
	if upd.OnlyTitle != nil {
		sets, args = append(sets, "only_title = ?"), append(args, boolToInt(*upd.OnlyTitle))
	}
	if upd.BoundUser != nil {
		sets, args = append(sets, "bound_user = ?"), append(args, nullString(*upd.BoundUser))
	}

	if len(sets) == 0 {
		return s.GetConfig(ctx)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(timeLayout))

	res, err := s.db.ExecContext(ctx,
		`UPDATE base_config SET `+strings.Join(sets, ", ")+
			` WHERE id = (SELECT id FROM base_config LIMIT 1)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetConfig(ctx)
}

// CreateSubscription inserts a new subscription and populates its ID and CreatedAt.
func (s *SQLite) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO keywords_sub (keyword1, keyword2, keyword3, creator, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.Keyword1, sub.Keyword2, sub.Keyword3, sub.Creator, sub.Category, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt, _ = time.Parse(timeLayout, now)
	sub.UpdatedAt = sub.CreatedAt
	return nil
}

// ListSubscriptions returns all subscriptions in stored order (ascending ID).
// The matcher depends on this order for its first-match-wins rule.
func (s *SQLite) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, keyword1, keyword2, keyword3, creator, category, created_at, updated_at
		 FROM keywords_sub ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// GetSubscription returns a single subscription by its ID.
func (s *SQLite) GetSubscription(ctx context.Context, id int64) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, keyword1, keyword2, keyword3, creator, category, created_at, updated_at
		 FROM keywords_sub WHERE id = ?`, id,
	)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

// UpdateSubscription applies a partial update and returns the updated record.
func (s *SQLite) UpdateSubscription(ctx context.Context, id int64, upd model.SubscriptionUpdate) (*model.Subscription, error) {
	var sets []string
	var args []any

	if upd.Keyword1 != nil {
		sets, args = append(sets, "keyword1 = ?"), append(args, *upd.Keyword1)
	}
	if upd.Keyword2 != nil {
		sets, args = append(sets, "keyword2 = ?"), append(args, *upd.Keyword2)
	}
	if upd.Keyword3 != nil {
		sets, args = append(sets, "keyword3 = ?"), append(args, *upd.Keyword3)
	}
	if upd.Creator != nil {
		sets, args = append(sets, "creator = ?"), append(args, *upd.Creator)
	}
	if upd.Category != nil {
		sets, args = append(sets, "category = ?"), append(args, *upd.Category)
	}

	if len(sets) == 0 {
		return s.GetSubscription(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(timeLayout), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE keywords_sub SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetSubscription(ctx, id)
}

// DeleteSubscription removes a subscription by its ID.
func (s *SQLite) DeleteSubscription(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM keywords_sub WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePost inserts a new post and populates its ID and CreatedAt.
// The post_id column carries a UNIQUE constraint, so inserting a duplicate
// external identifier fails rather than silently creating a second record.
func (s *SQLite) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (post_id, title, memo, category, creator, push_status, sub_id, pub_date, push_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.PostID, post.Title, post.Memo, post.Category, post.Creator,
		int(post.PushStatus), nullInt(post.SubID),
		post.PubDate.UTC().Format(timeLayout), nullTime(post.PushDate), now,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	post.ID = id
	post.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetPostByPostID returns a post by its external identifier.
func (s *SQLite) GetPostByPostID(ctx context.Context, postID int64) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, post_id, title, memo, category, creator, push_status, sub_id, pub_date, push_date, created_at
		 FROM posts WHERE post_id = ?`, postID,
	)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

// UpdatePostStatus sets the push status of a post, keyed by external identifier.
func (s *SQLite) UpdatePostStatus(ctx context.Context, postID int64, status model.PushStatus, pushedAt *time.Time, subID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET push_status = ?, push_date = ?, sub_id = ? WHERE post_id = ?`,
		int(status), nullTime(pushedAt), nullInt(subID), postID,
	)
	if err != nil {
		return fmt.Errorf("update post status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecentPosts returns the most recent posts ordered by publish date.
func (s *SQLite) ListRecentPosts(ctx context.Context, limit int) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, title, memo, category, creator, push_status, sub_id, pub_date, push_date, created_at
		 FROM posts ORDER BY pub_date DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// CountPushedSince returns how many posts were pushed at or after the given time.
func (s *SQLite) CountPushedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE push_status = ? AND push_date >= ?`,
		int(model.StatusPushed), since.UTC().Format(timeLayout),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pushed: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanConfig(row scannable) (*model.Config, error) {
	var c model.Config
	var botToken, boundUser sql.NullString
	var stopPush, onlyTitle int
	var created, updated string
	err := row.Scan(&c.ID, &c.Username, &c.Password, &botToken, &c.ChatID,
		&stopPush, &onlyTitle, &boundUser, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}
	c.BotToken = botToken.String
	c.BoundUser = boundUser.String
	c.StopPush = stopPush == 1
	c.OnlyTitle = onlyTitle == 1
	c.CreatedAt, _ = time.Parse(timeLayout, created)
	c.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &c, nil
}

func scanSubscription(row scannable) (*model.Subscription, error) {
	var s model.Subscription
	var created, updated string
	err := row.Scan(&s.ID, &s.Keyword1, &s.Keyword2, &s.Keyword3, &s.Creator, &s.Category, &created, &updated)
	if err != nil {
		return nil, err
	}
	s.CreatedAt, _ = time.Parse(timeLayout, created)
	s.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &s, nil
}

func scanPost(row scannable) (*model.Post, error) {
	var p model.Post
	var status int
	var subID sql.NullInt64
	var pubDate, created string
	var pushDate sql.NullString
	err := row.Scan(&p.ID, &p.PostID, &p.Title, &p.Memo, &p.Category, &p.Creator,
		&status, &subID, &pubDate, &pushDate, &created)
	if err != nil {
		return nil, err
	}
	p.PushStatus = model.PushStatus(status)
	p.SubID = subID.Int64
	p.PubDate, _ = time.Parse(timeLayout, pubDate)
	if pushDate.Valid {
		t, _ := time.Parse(timeLayout, pushDate.String)
		p.PushDate = &t
	}
	p.CreatedAt, _ = time.Parse(timeLayout, created)
	return &p, nil
}
