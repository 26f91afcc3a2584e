package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/petfolk/feedrank/internal/post"
)

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	// Double registration must fail rather than silently duplicate.
	if err := m.Register(reg); err == nil {
		t.Error("second Register() should fail")
	}
}

func TestMetricsObserveBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	now := time.Now()
	r := NewRanker(RankerConfig{Metrics: m, Workers: 1})
	r.Rank(context.Background(), BatchInput{
		Posts: []*post.Post{
			{ID: "muted", AuthorID: "a", Text: longText + " crypto", CreatedAt: now.Add(-time.Hour)},
			{ID: "kept", AuthorID: "a", Text: longText, Reactions: map[string]int{"like": 3}, CreatedAt: now.Add(-time.Hour)},
		},
		Ctx: &ViewerContext{MutedKeywords: []string{"crypto"}},
		Now: now,
	})

	if got := testutil.ToFloat64(m.rankedPosts); got != 1 {
		t.Errorf("%s = %f, want 1", MetricRankedPostsTotal, got)
	}
	if got := testutil.ToFloat64(m.excludedPosts); got != 1 {
		t.Errorf("%s = %f, want 1", MetricExcludedPostsTotal, got)
	}
	if got := testutil.ToFloat64(m.cacheMisses); got != 1 {
		t.Errorf("%s = %f, want 1", MetricScoreCacheMisses, got)
	}
	if got := testutil.ToFloat64(m.lastBatchSize); got != 2 {
		t.Errorf("%s = %f, want 2", MetricLastBatchSize, got)
	}
}

// TestNilMetricsAreNoOps ensures an unmetered ranker does not panic.
func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.observeBatch(10, 1, 2, 7, 0.01)
	m.observePenalty("reported")
}
