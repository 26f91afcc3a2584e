package feed

import (
	"context"
	"testing"
	"time"

	"github.com/petfolk/feedrank/internal/post"
	"github.com/petfolk/feedrank/internal/prefs"
	"github.com/petfolk/feedrank/internal/ranking"
)

const longText = "a genuinely substantial update about the dogs at the park today, with detail"

// fixture builds a populated in-memory store and preference store.
func fixture(t *testing.T) (*post.InMemoryStore, *prefs.MemoryKV, *Service) {
	t.Helper()

	store := post.NewInMemoryStore()
	kv := prefs.NewMemoryKV()

	svc := NewService(ServiceConfig{
		Posts:    store,
		Comments: store,
		Users:    store.Users(),
		Saves:    store.Saves(),
		Places:   store,
		Prefs:    prefs.NewStore(kv, nil),
	})
	return store, kv, svc
}

func TestRankFeedEndToEnd(t *testing.T) {
	ctx := context.Background()
	store, _, svc := fixture(t)
	now := time.Now()

	store.AddUser(&post.User{ID: "friend", Followers: []string{"viewer"}})
	store.AddUser(&post.User{ID: "stranger"})

	friendPost := &post.Post{ID: "friend-post", AuthorID: "friend", Text: longText, Reactions: map[string]int{"like": 5}, CreatedAt: now.Add(-2 * time.Hour)}
	strangerPost := &post.Post{ID: "stranger-post", AuthorID: "stranger", Text: longText, Reactions: map[string]int{"like": 5}, CreatedAt: now.Add(-2 * time.Hour)}
	store.AddPost(friendPost)
	store.AddPost(strangerPost)
	store.SetCommentCount("friend-post", 2)
	store.SetCommentCount("stranger-post", 2)

	vctx := &ranking.ViewerContext{
		ViewerID:       "viewer",
		Following:      map[string]bool{"friend": true},
		EngagedPostIDs: map[string]bool{"friend-post": true},
	}

	ranked, err := svc.RankFeed(ctx, []*post.Post{strangerPost, friendPost}, vctx)
	if err != nil {
		t.Fatalf("RankFeed() error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("RankFeed() returned %d posts, want 2", len(ranked))
	}
	// The followed author's affinity multiplier must win the tie.
	if ranked[0].Post.ID != "friend-post" {
		t.Errorf("top post = %s, want friend-post", ranked[0].Post.ID)
	}
}

func TestRankFeedAppliesStoredPreferences(t *testing.T) {
	ctx := context.Background()
	store, kv, svc := fixture(t)
	now := time.Now()

	store.AddPost(&post.Post{ID: "muted-post", AuthorID: "a", Text: longText + " crypto update", Reactions: map[string]int{"like": 50}, CreatedAt: now.Add(-time.Hour)})
	store.AddPost(&post.Post{ID: "kept-post", AuthorID: "a", Text: longText, Reactions: map[string]int{"like": 1}, CreatedAt: now.Add(-time.Hour)})

	kv.Set(ctx, "prefs:muted:viewer", []byte(`["crypto"]`))

	all, _ := store.ListAll(ctx)
	vctx := &ranking.ViewerContext{ViewerID: "viewer"}
	ranked, err := svc.RankFeed(ctx, all, vctx)
	if err != nil {
		t.Fatalf("RankFeed() error: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Post.ID != "kept-post" {
		t.Errorf("stored mute list was not applied: got %d results", len(ranked))
	}
}

func TestRankFeedLeavesViewerContextUntouched(t *testing.T) {
	ctx := context.Background()
	store, kv, svc := fixture(t)
	now := time.Now()

	store.AddPost(&post.Post{ID: "crypto-post", AuthorID: "a", Text: longText + " crypto update", Reactions: map[string]int{"like": 5}, CreatedAt: now.Add(-time.Hour)})
	store.AddPost(&post.Post{ID: "spam-post", AuthorID: "a", Text: longText + " spam offer", Reactions: map[string]int{"like": 5}, CreatedAt: now.Add(-time.Hour)})
	store.AddPost(&post.Post{ID: "kept-post", AuthorID: "a", Text: longText, Reactions: map[string]int{"like": 5}, CreatedAt: now.Add(-time.Hour)})

	kv.Set(ctx, "prefs:muted:viewer", []byte(`["crypto"]`))
	kv.Set(ctx, "prefs:hidden:viewer", []byte(`["politics"]`))

	all, _ := store.ListAll(ctx)
	vctx := &ranking.ViewerContext{ViewerID: "viewer", MutedKeywords: []string{"spam"}}
	ranked, err := svc.RankFeed(ctx, all, vctx)
	if err != nil {
		t.Fatalf("RankFeed() error: %v", err)
	}

	// Caller-supplied and stored mutes both exclude.
	if len(ranked) != 1 || ranked[0].Post.ID != "kept-post" {
		t.Errorf("merged mute lists not applied: got %d results", len(ranked))
	}

	// The caller's context must come back exactly as it went in.
	if len(vctx.MutedKeywords) != 1 || vctx.MutedKeywords[0] != "spam" {
		t.Errorf("caller MutedKeywords mutated: %v", vctx.MutedKeywords)
	}
	if vctx.HiddenTopics != nil {
		t.Errorf("caller HiddenTopics mutated: %v", vctx.HiddenTopics)
	}
}

func TestRankFeedReportBlobDemotes(t *testing.T) {
	ctx := context.Background()
	store, kv, svc := fixture(t)
	now := time.Now()

	store.AddPost(&post.Post{ID: "reported", AuthorID: "a", Text: longText, Reactions: map[string]int{"like": 10}, CreatedAt: now.Add(-2 * time.Hour)})
	store.AddPost(&post.Post{ID: "clean", AuthorID: "a", Text: longText, Reactions: map[string]int{"like": 10}, CreatedAt: now.Add(-2 * time.Hour)})

	kv.Set(ctx, "prefs:reports", []byte(`[
		{"postId":"reported"},{"postId":"reported"},{"postId":"reported"}
	]`))

	all, _ := store.ListAll(ctx)
	ranked, err := svc.RankFeed(ctx, all, &ranking.ViewerContext{ViewerID: "viewer"})
	if err != nil {
		t.Fatalf("RankFeed() error: %v", err)
	}
	if ranked[0].Post.ID != "clean" {
		t.Errorf("reported post was not demoted: order = [%s %s]", ranked[0].Post.ID, ranked[1].Post.ID)
	}
}

func TestRankFeedAnonymousViewer(t *testing.T) {
	ctx := context.Background()
	store, _, svc := fixture(t)
	now := time.Now()

	store.AddPost(&post.Post{ID: "p", AuthorID: "a", Text: longText, Reactions: map[string]int{"like": 3}, CreatedAt: now.Add(-time.Hour)})

	all, _ := store.ListAll(ctx)
	ranked, err := svc.RankFeed(ctx, all, nil)
	if err != nil {
		t.Fatalf("RankFeed() with nil context error: %v", err)
	}
	if len(ranked) != 1 {
		t.Errorf("anonymous ranking returned %d posts, want 1", len(ranked))
	}
}

func TestExplainScore(t *testing.T) {
	ctx := context.Background()
	store, _, svc := fixture(t)
	now := time.Now()

	store.AddPost(&post.Post{ID: "p", AuthorID: "friend", Text: longText, Reactions: map[string]int{"like": 10}, CreatedAt: now.Add(-24 * time.Hour)})
	store.SetCommentCount("p", 5)

	exp, err := svc.ExplainScore(ctx, "p", &ranking.ViewerContext{
		ViewerID:  "viewer",
		Following: map[string]bool{"friend": true},
	})
	if err != nil {
		t.Fatalf("ExplainScore() error: %v", err)
	}

	if exp.Score <= 0 {
		t.Errorf("score = %f, want > 0", exp.Score)
	}
	if exp.Signals.Affinity != 0.4 {
		t.Errorf("affinity = %f, want 0.4 for a followed author", exp.Signals.Affinity)
	}
	if exp.Signals.Engagement <= 0 {
		t.Errorf("engagement = %f, want > 0", exp.Signals.Engagement)
	}

	if _, err := svc.ExplainScore(ctx, "missing", nil); err == nil {
		t.Error("ExplainScore() for a missing post should error")
	}
}
