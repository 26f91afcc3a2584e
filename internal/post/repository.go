package post

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for repository operations.
var (
	ErrPostNotFound  = errors.New("post not found")
	ErrPlaceNotFound = errors.New("place not found")
)

// Source provides read access to the post corpus. The ranking engine never
// writes through this interface; writes belong to the owning service.
type Source interface {
	// GetByID retrieves a post by id.
	GetByID(ctx context.Context, id string) (*Post, error)

	// ListAll returns every post in the corpus. Used for share-count
	// aggregation, which must see beyond the candidate set.
	ListAll(ctx context.Context) ([]*Post, error)

	// ListByAuthorSince returns an author's posts created at or after the
	// given time, newest first.
	ListByAuthorSince(ctx context.Context, authorID string, since time.Time) ([]*Post, error)
}

// CommentSource provides per-post comment counts.
type CommentSource interface {
	// CountByPost returns how many comments a post has.
	CountByPost(ctx context.Context, postID string) (int, error)
}

// UserSource provides read access to users for follower-count lookups.
type UserSource interface {
	// ListAll returns every user with their follower edges.
	ListAll(ctx context.Context) ([]*User, error)
}

// SaveSource answers save/bookmark questions.
type SaveSource interface {
	// IsSaved reports whether the user has saved the post.
	IsSaved(ctx context.Context, userID, postID string) (bool, error)

	// CountByPost returns how many users saved the post.
	CountByPost(ctx context.Context, postID string) (int, error)
}

// PlaceSource resolves place ids to coordinates.
type PlaceSource interface {
	// GetPlace retrieves a place by id.
	GetPlace(ctx context.Context, id string) (*Place, error)
}

// InMemoryStore is an in-memory implementation of all read interfaces,
// used in tests and as the default backing store when no database is
// configured. Thread-safe via RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	posts    map[string]*Post
	order    []string // insertion order for deterministic ListAll
	places   map[string]*Place
	users    map[string]*User
	comments map[string]int             // postID -> comment count
	saves    map[string]map[string]bool // postID -> userID -> saved
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		posts:    make(map[string]*Post),
		places:   make(map[string]*Place),
		users:    make(map[string]*User),
		comments: make(map[string]int),
		saves:    make(map[string]map[string]bool),
	}
}

// AddPost inserts a post, generating an id when absent.
// Returns the stored post's id.
func (s *InMemoryStore) AddPost(p *Post) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, exists := s.posts[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.posts[p.ID] = p
	return p.ID
}

// AddPlace inserts a place.
func (s *InMemoryStore) AddPlace(pl *Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places[pl.ID] = pl
}

// AddUser inserts a user.
func (s *InMemoryStore) AddUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// SetCommentCount records the comment count for a post.
func (s *InMemoryStore) SetCommentCount(postID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[postID] = n
}

// AddSave records that a user saved a post.
func (s *InMemoryStore) AddSave(userID, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saves[postID] == nil {
		s.saves[postID] = make(map[string]bool)
	}
	s.saves[postID][userID] = true
}

// GetByID retrieves a post by id.
func (s *InMemoryStore) GetByID(_ context.Context, id string) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return p, nil
}

// ListAll returns all posts in insertion order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Post, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.posts[id])
	}
	return out, nil
}

// ListByAuthorSince returns an author's posts created at or after since,
// newest first.
func (s *InMemoryStore) ListByAuthorSince(_ context.Context, authorID string, since time.Time) ([]*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Post
	for _, id := range s.order {
		p := s.posts[id]
		if p.AuthorID == authorID && !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CountByPost returns the comment count for a post.
func (s *InMemoryStore) CountByPost(_ context.Context, postID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.comments[postID], nil
}

// ListAllUsers returns all users. Named to avoid clashing with ListAll on
// posts; the UserSource view is exposed via Users().
func (s *InMemoryStore) ListAllUsers(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, s.users[id])
	}
	return out, nil
}

// IsSaved reports whether the user saved the post.
func (s *InMemoryStore) IsSaved(_ context.Context, userID, postID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves[postID][userID], nil
}

// SaveCountByPost returns how many users saved the post.
func (s *InMemoryStore) SaveCountByPost(_ context.Context, postID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.saves[postID]), nil
}

// GetPlace retrieves a place by id.
func (s *InMemoryStore) GetPlace(_ context.Context, id string) (*Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pl, ok := s.places[id]
	if !ok {
		return nil, ErrPlaceNotFound
	}
	return pl, nil
}

// Users returns the store's UserSource view.
func (s *InMemoryStore) Users() UserSource {
	return userView{s}
}

// Saves returns the store's SaveSource view.
func (s *InMemoryStore) Saves() SaveSource {
	return saveView{s}
}

// userView adapts InMemoryStore to UserSource.
type userView struct{ s *InMemoryStore }

func (v userView) ListAll(ctx context.Context) ([]*User, error) {
	return v.s.ListAllUsers(ctx)
}

// saveView adapts InMemoryStore to SaveSource.
type saveView struct{ s *InMemoryStore }

func (v saveView) IsSaved(ctx context.Context, userID, postID string) (bool, error) {
	return v.s.IsSaved(ctx, userID, postID)
}

func (v saveView) CountByPost(ctx context.Context, postID string) (int, error) {
	return v.s.SaveCountByPost(ctx, postID)
}
