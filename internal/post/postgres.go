package post

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/petfolk/feedrank/internal/tracing"
)

// PostgresStore is a read-only adapter over the platform's PostgreSQL
// schema, implementing the ranking engine's source interfaces. The engine
// only reads snapshots; all mutations happen in the owning services.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const postColumns = `id, author_id, type, text, hashtags, tags, reactions,
	has_image, has_video, place_id, shared_from_id, report_count, status, created_at`

// scanPost scans one post row, tolerating a NULL reactions column.
func scanPost(scan func(dest ...any) error) (*Post, error) {
	var (
		p         Post
		hashtags  pq.StringArray
		tags      pq.StringArray
		reactions []byte
	)
	err := scan(
		&p.ID, &p.AuthorID, &p.Type, &p.Text, &hashtags, &tags, &reactions,
		&p.HasImage, &p.HasVideo, &p.PlaceID, &p.SharedFromID,
		&p.ReportCount, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Hashtags = hashtags
	p.Tags = tags
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &p.Reactions); err != nil {
			// A bad reactions blob should not sink the whole post.
			slog.Warn("ignoring malformed reactions column", "post_id", p.ID, "error", err)
			p.Reactions = nil
		}
	}
	return &p, nil
}

// GetByID retrieves a post by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (_ *Post, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return p, nil
}

// ListAll returns every post, oldest first for stable downstream ordering.
func (s *PostgresStore) ListAll(ctx context.Context) (_ []*Post, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// ListByAuthorSince returns an author's posts created at or after since,
// newest first.
func (s *PostgresStore) ListByAuthorSince(ctx context.Context, authorID string, since time.Time) (_ []*Post, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE author_id = $1 AND created_at >= $2
		 ORDER BY created_at DESC, id`, authorID, since)
	if err != nil {
		return nil, fmt.Errorf("list posts by author %s: %w", authorID, err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

func collectPosts(rows *sql.Rows) ([]*Post, error) {
	var out []*Post
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountByPost returns the comment count for a post.
func (s *PostgresStore) CountByPost(ctx context.Context, postID string) (_ int, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "comments", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count comments for %s: %w", postID, err)
	}
	return n, nil
}

// ListAllUsers returns every user with their follower edges aggregated
// from the follows table.
func (s *PostgresStore) ListAllUsers(ctx context.Context) (_ []*User, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "users", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, COALESCE(array_agg(f.follower_id) FILTER (WHERE f.follower_id IS NOT NULL), '{}')
		 FROM users u
		 LEFT JOIN follows f ON f.followee_id = u.id
		 GROUP BY u.id
		 ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		var (
			u         User
			followers pq.StringArray
		)
		if err := rows.Scan(&u.ID, &followers); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Followers = followers
		out = append(out, &u)
	}
	return out, rows.Err()
}

// IsSaved reports whether the user saved the post.
func (s *PostgresStore) IsSaved(ctx context.Context, userID, postID string) (_ bool, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "saves", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var saved bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM saves WHERE user_id = $1 AND post_id = $2)`,
		userID, postID).Scan(&saved)
	if err != nil {
		return false, fmt.Errorf("saved lookup %s/%s: %w", userID, postID, err)
	}
	return saved, nil
}

// SaveCountByPost returns how many users saved the post.
func (s *PostgresStore) SaveCountByPost(ctx context.Context, postID string) (_ int, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "saves", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM saves WHERE post_id = $1`, postID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count saves for %s: %w", postID, err)
	}
	return n, nil
}

// GetPlace retrieves a place by id.
func (s *PostgresStore) GetPlace(ctx context.Context, id string) (_ *Place, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var pl Place
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, lat, lng FROM places WHERE id = $1`, id).
		Scan(&pl.ID, &pl.Name, &pl.Location.Lat, &pl.Location.Lng)
	if err == sql.ErrNoRows {
		return nil, ErrPlaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get place %s: %w", id, err)
	}
	return &pl, nil
}

// Users returns the store's UserSource view.
func (s *PostgresStore) Users() UserSource {
	return pgUserView{s}
}

// Saves returns the store's SaveSource view.
func (s *PostgresStore) Saves() SaveSource {
	return pgSaveView{s}
}

type pgUserView struct{ s *PostgresStore }

func (v pgUserView) ListAll(ctx context.Context) ([]*User, error) {
	return v.s.ListAllUsers(ctx)
}

type pgSaveView struct{ s *PostgresStore }

func (v pgSaveView) IsSaved(ctx context.Context, userID, postID string) (bool, error) {
	return v.s.IsSaved(ctx, userID, postID)
}

func (v pgSaveView) CountByPost(ctx context.Context, postID string) (int, error) {
	return v.s.SaveCountByPost(ctx, postID)
}
