package ranking

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/petfolk/feedrank/internal/geo"
	"github.com/petfolk/feedrank/internal/post"
)

// Batch-model constants. Engagement weighs comments over shares over saves
// over raw reactions; authors past the follower threshold get their
// engagement damped logarithmically so mega-accounts cannot win on volume
// alone.
const (
	batchCommentWeight = 3.0
	batchShareWeight   = 2.5
	batchSaveWeight    = 1.5

	followerDampThreshold = 1000

	contentTypeFloor  = 0.5
	topicRawDivisor   = 10.0
	proximityBonusMax = 0.2
)

// EngagementLookback is the window over which the rare-author-engagement
// penalty samples an author's posts.
const EngagementLookback = 90 * 24 * time.Hour

// BatchInput carries one ranking invocation's pre-resolved inputs.
// Nothing here is fetched lazily during scoring.
type BatchInput struct {
	// Posts is the candidate set, in caller order. Ties in final score
	// preserve this order.
	Posts []*post.Post

	// AllPosts is the full corpus, used for share-count aggregation and
	// author engagement windows. When nil, Posts stands in for it.
	AllPosts []*post.Post

	// CommentCounts maps post id to comment count.
	CommentCounts map[string]int

	// Places maps place id to resolved place.
	Places map[string]*post.Place

	// FollowerCounts maps author id to follower count.
	FollowerCounts map[string]int

	// SaveCounts maps post id to save count.
	SaveCounts map[string]int

	// ReportCounts maps post id to report count from the moderation
	// store; the larger of this and the post's own counter wins.
	ReportCounts map[string]int

	// Ctx is the viewer context; nil ranks anonymously.
	Ctx *ViewerContext

	// Now fixes the clock for the whole batch. Zero means time.Now().
	Now time.Time
}

// RankedPost is one output row: the post, its final score, and how the
// score came to be.
type RankedPost struct {
	Post      *post.Post `json:"post"`
	Score     float64    `json:"score"`
	CacheHit  bool       `json:"cache_hit"`
	Penalties []string   `json:"penalties,omitempty"`
}

// RankerConfig configures a Ranker. Zero values get sensible defaults.
type RankerConfig struct {
	// Config holds the ranking tunables; nil uses DefaultConfig.
	Config *Config

	// Cache stores batch scores between calls; nil disables caching.
	Cache ScoreCache

	// Rules is the penalty rule list; nil uses DefaultPenaltyRules.
	Rules []PenaltyRule

	// Metrics for ranking observability; nil disables metrics.
	Metrics *Metrics

	// Logger for batch activity; nil uses the default slog logger.
	Logger *slog.Logger

	// Tracer for span-per-invocation tracing; nil disables tracing.
	Tracer trace.Tracer

	// Workers caps scoring parallelism; zero uses GOMAXPROCS.
	Workers int
}

// Ranker scores and orders candidate sets with the batch model. A Ranker
// is stateless per invocation (the score cache is its only cross-call
// state) and safe for concurrent use.
type Ranker struct {
	cfg     *Config
	cache   ScoreCache
	rules   []PenaltyRule
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	workers int
}

// NewRanker creates a Ranker from the given configuration.
func NewRanker(rc RankerConfig) *Ranker {
	if rc.Config == nil {
		rc.Config = DefaultConfig()
	}
	if rc.Rules == nil {
		rc.Rules = DefaultPenaltyRules()
	}
	if rc.Logger == nil {
		rc.Logger = slog.Default()
	}
	if rc.Workers <= 0 {
		rc.Workers = runtime.GOMAXPROCS(0)
	}
	return &Ranker{
		cfg:     rc.Config,
		cache:   rc.Cache,
		rules:   rc.Rules,
		metrics: rc.Metrics,
		logger:  rc.Logger,
		tracer:  rc.Tracer,
		workers: rc.Workers,
	}
}

// Rank scores the candidate set and returns it ordered most-relevant
// first. The ordering is deterministic: identical inputs produce
// identical output, with score ties broken by input order.
//
// Muted posts are excluded entirely; every other post appears in the
// output no matter how malformed or low-quality, it just scores low.
func (r *Ranker) Rank(ctx context.Context, in BatchInput) []RankedPost {
	start := time.Now()

	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "ranking.Rank")
		defer span.End()
		span.SetAttributes(attribute.Int("ranking.candidates", len(in.Posts)))
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	corpus := in.AllPosts
	if corpus == nil {
		corpus = in.Posts
	}

	// Precompute shared lookups once so per-post scoring never scans the
	// corpus again.
	shareCounts := countShares(corpus)
	recentByAuthor := recentPostsByAuthor(corpus, in.Ctx, now)

	// Mute exclusion happens before any scoring.
	var muted []string
	if in.Ctx != nil {
		muted = in.Ctx.MutedKeywords
	}
	candidates := make([]*post.Post, 0, len(in.Posts))
	for _, p := range in.Posts {
		if ContainsMutedKeyword(p, muted) {
			continue
		}
		candidates = append(candidates, p)
	}
	excluded := len(in.Posts) - len(candidates)

	// Per-post scoring has no cross-post dependencies once the lookup
	// maps exist, so it fans out across workers. Results land in their
	// input slot to keep ordering deterministic.
	results := make([]RankedPost, len(candidates))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := r.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.scoreOne(ctx, candidates[i], in, shareCounts, recentByAuthor, now)
			}
		}()
	}
	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	cacheHits := 0
	for i := range results {
		if results[i].CacheHit {
			cacheHits++
		}
		for _, rule := range results[i].Penalties {
			r.metrics.observePenalty(rule)
		}
	}
	elapsed := time.Since(start)
	r.metrics.observeBatch(len(in.Posts), excluded, cacheHits, len(candidates)-cacheHits, elapsed.Seconds())

	r.logger.Debug("ranked batch",
		"candidates", len(in.Posts),
		"excluded", excluded,
		"cache_hits", cacheHits,
		"duration", elapsed)

	return results
}

// scoreOne computes one post's final score: cached-or-fresh base score,
// then compounded penalties.
func (r *Ranker) scoreOne(
	ctx context.Context,
	p *post.Post,
	in BatchInput,
	shareCounts map[string]int,
	recentByAuthor map[string][]*post.Post,
	now time.Time,
) RankedPost {
	base, hit := r.baseScore(ctx, p, in, shareCounts, now)

	reportCount := p.ReportCount
	if n := in.ReportCounts[p.ID]; n > reportCount {
		reportCount = n
	}

	score, applied := ApplyPenalties(base, PenaltyInput{
		Post:              p,
		Topics:            p.TopicTokens(),
		Ctx:               in.Ctx,
		ReportCount:       reportCount,
		AuthorRecentPosts: recentByAuthor[p.AuthorID],
	}, r.rules)

	return RankedPost{Post: p, Score: score, CacheHit: hit, Penalties: applied}
}

// baseScore returns the batch-model base score, reusing the cached value
// for posts past the freshness threshold. Fresh posts are always computed
// because their signals still move quickly.
func (r *Ranker) baseScore(ctx context.Context, p *post.Post, in BatchInput, shareCounts map[string]int, now time.Time) (float64, bool) {
	age := p.Age(now)

	if r.cache != nil && age >= FreshnessThreshold {
		if entry, ok := r.cache.Get(ctx, p.ID); ok {
			return entry.Score, true
		}
	}

	score := r.computeBase(p, in, shareCounts, now)

	if r.cache != nil {
		r.cache.Put(ctx, p.ID, CachedScore{Score: score, ComputedAt: now})
	}
	return score, false
}

// computeBase evaluates the batch scoring formula for one post.
func (r *Ranker) computeBase(p *post.Post, in BatchInput, shareCounts map[string]int, now time.Time) float64 {
	reactions := float64(p.ReactionTotal())
	comments := float64(in.CommentCounts[p.ID])
	shares := float64(shareCounts[p.ID])
	saves := float64(in.SaveCounts[p.ID])

	engagement := reactions +
		comments*batchCommentWeight +
		shares*batchShareWeight +
		saves*batchSaveWeight

	if followers := in.FollowerCounts[p.AuthorID]; followers > followerDampThreshold {
		engagement /= math.Log10(float64(followers))
	}

	score := engagement * RecencyMultiplier(p.Age(now))
	score *= 1 + AffinityScore(in.Ctx, p.AuthorID)
	score *= contentTypeFloor + ContentTypeScore(in.Ctx, p.Kind())
	score *= 1 + TopicPrefRaw(in.Ctx, p.HashtagTokens())/topicRawDivisor

	var place *post.Place
	if p.PlaceID != nil {
		place = in.Places[*p.PlaceID]
	}
	var viewerLoc *geo.Point
	if in.Ctx != nil {
		viewerLoc = in.Ctx.Location
	}
	if prox := PlaceProximity(p, place, viewerLoc, r.cfg.MaxDistanceKm); prox > 0 {
		score *= 1 + proximityBonusMax*prox
	}

	return score
}

// countShares builds the post id -> share count map: how many corpus
// posts point at each post as their share origin.
func countShares(corpus []*post.Post) map[string]int {
	counts := make(map[string]int)
	for _, p := range corpus {
		if p.SharedFromID != nil && *p.SharedFromID != "" {
			counts[*p.SharedFromID]++
		}
	}
	return counts
}

// recentPostsByAuthor collects the lookback-window posts of every author
// the viewer follows, for the rare-engagement penalty. Unfollowed authors
// are skipped since the penalty never evaluates them.
func recentPostsByAuthor(corpus []*post.Post, ctx *ViewerContext, now time.Time) map[string][]*post.Post {
	if ctx == nil || len(ctx.Following) == 0 {
		return nil
	}
	cutoff := now.Add(-EngagementLookback)
	byAuthor := make(map[string][]*post.Post)
	for _, p := range corpus {
		if ctx.Following[p.AuthorID] && !p.CreatedAt.Before(cutoff) {
			byAuthor[p.AuthorID] = append(byAuthor[p.AuthorID], p)
		}
	}
	return byAuthor
}
