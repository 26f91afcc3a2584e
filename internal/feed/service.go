// Package feed assembles ranking inputs from the platform's read-side
// repositories and preference store, and exposes the two ranking
// operations a feed-serving layer consumes: batch feed ranking and
// explainable single-post scoring.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/petfolk/feedrank/internal/post"
	"github.com/petfolk/feedrank/internal/prefs"
	"github.com/petfolk/feedrank/internal/ranking"
)

// ServiceConfig bundles the collaborators a Service needs. Posts,
// comments, users, saves, and places are read-only snapshots owned
// elsewhere; the service never mutates them.
type ServiceConfig struct {
	Posts    post.Source
	Comments post.CommentSource
	Users    post.UserSource
	Saves    post.SaveSource
	Places   post.PlaceSource
	Prefs    *prefs.Store
	Ranker   *ranking.Ranker

	// Config is the ranking configuration used for single-post scoring;
	// nil uses defaults. Batch scoring uses the Ranker's own config.
	Config *ranking.Config

	// Logger for service activity; nil uses the default slog logger.
	Logger *slog.Logger

	// Tracer for span-per-operation tracing; nil disables tracing.
	Tracer trace.Tracer
}

// timeNow is the clock for single-post scoring, swappable in tests.
var timeNow = time.Now

// Service is the boundary between stored platform data and the ranking
// engine. Safe for concurrent use.
type Service struct {
	posts    post.Source
	comments post.CommentSource
	users    post.UserSource
	saves    post.SaveSource
	places   post.PlaceSource
	prefs    *prefs.Store
	ranker   *ranking.Ranker
	cfg      *ranking.Config
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewService creates a feed service.
func NewService(sc ServiceConfig) *Service {
	if sc.Ranker == nil {
		sc.Ranker = ranking.NewRanker(ranking.RankerConfig{Config: sc.Config})
	}
	if sc.Config == nil {
		sc.Config = ranking.DefaultConfig()
	}
	if sc.Logger == nil {
		sc.Logger = slog.Default()
	}
	return &Service{
		posts:    sc.Posts,
		comments: sc.Comments,
		users:    sc.Users,
		saves:    sc.Saves,
		places:   sc.Places,
		prefs:    sc.Prefs,
		ranker:   sc.Ranker,
		cfg:      sc.Config,
		logger:   sc.Logger,
		tracer:   sc.Tracer,
	}
}

// RankFeed scores and orders the candidate posts for the viewer described
// by vctx. The service resolves everything scoring needs up front (comment
// counts, places, follower counts, save and share aggregates, and the
// viewer's persisted preference blobs), then hands the batch to the
// ranker. Per-post lookup failures degrade to zero values; only corpus
// enumeration failures are errors.
func (s *Service) RankFeed(ctx context.Context, candidates []*post.Post, vctx *ranking.ViewerContext) ([]ranking.RankedPost, error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "feed.RankFeed")
		defer span.End()
		span.SetAttributes(attribute.Int("feed.candidates", len(candidates)))
	}

	allPosts, err := s.posts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list post corpus: %w", err)
	}

	followerCounts, err := s.followerCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	in := ranking.BatchInput{
		Posts:          candidates,
		AllPosts:       allPosts,
		CommentCounts:  s.commentCounts(ctx, candidates),
		Places:         s.resolvePlaces(ctx, candidates),
		FollowerCounts: followerCounts,
		SaveCounts:     s.saveCounts(ctx, candidates),
		Ctx:            vctx,
	}

	if s.prefs != nil {
		in.ReportCounts = s.prefs.ReportCounts(ctx)
		if vctx != nil {
			// Stored preference blobs are merged into a copy so the
			// caller's context stays untouched.
			scored := *vctx
			scored.MutedKeywords = append(append([]string(nil), vctx.MutedKeywords...),
				s.prefs.MutedKeywords(ctx, vctx.ViewerID)...)
			scored.HiddenTopics = append(append([]string(nil), vctx.HiddenTopics...),
				s.prefs.HiddenTopics(ctx, vctx.ViewerID)...)
			in.Ctx = &scored
		}
	}

	return s.ranker.Rank(ctx, in), nil
}

// ExplainScore computes the weighted-model score and breakdown for one
// post, for ad hoc and "why am I seeing this" queries. The result is not
// magnitude-comparable with RankFeed scores.
func (s *Service) ExplainScore(ctx context.Context, postID string, vctx *ranking.ViewerContext) (*ranking.Explanation, error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "feed.ExplainScore")
		defer span.End()
		span.SetAttributes(attribute.String("feed.post_id", postID))
	}

	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, err)
	}

	commentCount := 0
	if s.comments != nil {
		if n, err := s.comments.CountByPost(ctx, postID); err == nil {
			commentCount = n
		} else {
			s.logger.Warn("comment count lookup failed, scoring with zero", "post_id", postID, "error", err)
		}
	}

	var place *post.Place
	if p.PlaceID != nil && s.places != nil {
		if pl, err := s.places.GetPlace(ctx, *p.PlaceID); err == nil {
			place = pl
		} else {
			s.logger.Warn("place lookup failed, scoring without proximity", "place_id", *p.PlaceID, "error", err)
		}
	}

	exp := ranking.ExplainPost(p, commentCount, place, s.cfg, vctx, timeNow())
	return &exp, nil
}

// commentCounts resolves comment counts for the candidate set, degrading
// failed lookups to zero.
func (s *Service) commentCounts(ctx context.Context, candidates []*post.Post) map[string]int {
	counts := make(map[string]int, len(candidates))
	if s.comments == nil {
		return counts
	}
	for _, p := range candidates {
		n, err := s.comments.CountByPost(ctx, p.ID)
		if err != nil {
			s.logger.Warn("comment count lookup failed, using zero", "post_id", p.ID, "error", err)
			continue
		}
		counts[p.ID] = n
	}
	return counts
}

// saveCounts resolves save counts for the candidate set, degrading failed
// lookups to zero.
func (s *Service) saveCounts(ctx context.Context, candidates []*post.Post) map[string]int {
	counts := make(map[string]int, len(candidates))
	if s.saves == nil {
		return counts
	}
	for _, p := range candidates {
		n, err := s.saves.CountByPost(ctx, p.ID)
		if err != nil {
			s.logger.Warn("save count lookup failed, using zero", "post_id", p.ID, "error", err)
			continue
		}
		counts[p.ID] = n
	}
	return counts
}

// resolvePlaces fetches every distinct place referenced by the candidate
// set. Unresolvable places are skipped; the affected posts simply score
// zero proximity.
func (s *Service) resolvePlaces(ctx context.Context, candidates []*post.Post) map[string]*post.Place {
	places := make(map[string]*post.Place)
	if s.places == nil {
		return places
	}
	for _, p := range candidates {
		if p.PlaceID == nil || *p.PlaceID == "" {
			continue
		}
		if _, done := places[*p.PlaceID]; done {
			continue
		}
		pl, err := s.places.GetPlace(ctx, *p.PlaceID)
		if err != nil {
			s.logger.Warn("place lookup failed, skipping", "place_id", *p.PlaceID, "error", err)
			continue
		}
		places[*p.PlaceID] = pl
	}
	return places
}

// followerCounts builds the author id -> follower count map from the user
// corpus.
func (s *Service) followerCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	if s.users == nil {
		return counts, nil
	}
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		counts[u.ID] = len(u.Followers)
	}
	return counts, nil
}
