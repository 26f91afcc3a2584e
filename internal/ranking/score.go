package ranking

import (
	"time"

	"github.com/petfolk/feedrank/internal/geo"
	"github.com/petfolk/feedrank/internal/post"
)

// Question-post boost: question posts are surfaced while fresh so they can
// collect answers, with a small residual boost afterwards.
const (
	questionFreshWindow = 72 * time.Hour
	questionFreshBoost  = 1.2
	questionStaleBoost  = 1.08
)

// SignalScores holds the six positive signal values for one post.
type SignalScores struct {
	TimeDecay   float64 `json:"time_decay"`
	Engagement  float64 `json:"engagement"`
	Proximity   float64 `json:"proximity"`
	Affinity    float64 `json:"affinity"`
	ContentType float64 `json:"content_type"`
	Topic       float64 `json:"topic"`
}

// Explanation is the result of explain-style single-post scoring: the raw
// signals, the weights actually used after renormalization over active
// signals, the question boost applied, and the final score.
type Explanation struct {
	Signals          SignalScores `json:"signals"`
	EffectiveWeights Weights      `json:"effective_weights"`
	QuestionBoost    float64      `json:"question_boost"`
	Score            float64      `json:"score"`
}

// ComputeSignals evaluates all six signal extractors for a post.
// place may be nil (no place tag or unresolved); ctx may be nil (anonymous
// viewer); either degrades the dependent signals to 0.
func ComputeSignals(p *post.Post, commentCount int, place *post.Place, cfg *Config, ctx *ViewerContext, now time.Time) SignalScores {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var viewerLoc *geo.Point
	if ctx != nil {
		viewerLoc = ctx.Location
	}

	return SignalScores{
		TimeDecay:   TimeDecay(p.Age(now), cfg.HalfLife()),
		Engagement:  EngagementScore(p.ReactionTotal(), commentCount),
		Proximity:   PlaceProximity(p, place, viewerLoc, cfg.MaxDistanceKm),
		Affinity:    AffinityScore(ctx, p.AuthorID),
		ContentType: ContentTypeScore(ctx, p.Kind()),
		Topic:       TopicScore(ctx, p.TopicTokens()),
	}
}

// ScorePost computes the weighted-model relevance score for a single post.
// This is the explainable scorer; feed output ordering uses the batch
// model instead (see Ranker), and the two are not magnitude-comparable.
func ScorePost(p *post.Post, commentCount int, place *post.Place, cfg *Config, ctx *ViewerContext, now time.Time) float64 {
	return ExplainPost(p, commentCount, place, cfg, ctx, now).Score
}

// ExplainPost computes the weighted-model score along with its full
// breakdown, for debugging and "why am I seeing this" surfaces.
//
// Weight renormalization: a signal is active only when its score is
// strictly positive. Each active signal's configured weight is divided by
// the sum of active signals' weights, so a post is never penalized merely
// for lacking an optional signal (an un-place-tagged post competes on its
// remaining signals at full strength).
func ExplainPost(p *post.Post, commentCount int, place *post.Place, cfg *Config, ctx *ViewerContext, now time.Time) Explanation {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	signals := ComputeSignals(p, commentCount, place, cfg, ctx, now)

	type weighted struct {
		score  float64
		weight float64
		out    *float64
	}

	var eff Weights
	pairs := []weighted{
		{signals.TimeDecay, cfg.Weights.TimeDecay, &eff.TimeDecay},
		{signals.Engagement, cfg.Weights.Engagement, &eff.Engagement},
		{signals.Proximity, cfg.Weights.Proximity, &eff.Proximity},
		{signals.Affinity, cfg.Weights.Affinity, &eff.Affinity},
		{signals.ContentType, cfg.Weights.ContentType, &eff.ContentType},
		{signals.Topic, cfg.Weights.Topic, &eff.Topic},
	}

	var activeWeightSum float64
	for _, pair := range pairs {
		if pair.score > 0 {
			activeWeightSum += pair.weight
		}
	}

	result := Explanation{Signals: signals, QuestionBoost: 1}
	if activeWeightSum <= 0 {
		return result
	}

	var score float64
	for _, pair := range pairs {
		if pair.score > 0 {
			w := pair.weight / activeWeightSum
			*pair.out = w
			score += pair.score * w
		}
	}

	if p.IsQuestion() {
		if p.Age(now) <= questionFreshWindow {
			result.QuestionBoost = questionFreshBoost
		} else {
			result.QuestionBoost = questionStaleBoost
		}
		score *= result.QuestionBoost
	}

	result.EffectiveWeights = eff
	result.Score = score
	return result
}
