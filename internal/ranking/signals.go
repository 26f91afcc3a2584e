package ranking

import (
	"math"
	"time"

	"github.com/petfolk/feedrank/internal/geo"
	"github.com/petfolk/feedrank/internal/post"
)

// Signal extractors. Each is a pure function returning a score in [0, 1];
// missing inputs degrade to 0 rather than erroring, so every extractor is
// safe to call on partial data.

// TimeDecay computes exponential recency decay: 2^(-age/halfLife).
// Returns 1 for brand-new posts, 0.5 at exactly one half-life, and decays
// toward 0 from there. Negative ages (clock skew) clamp to 1.
func TimeDecay(age time.Duration, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return 0
	}
	if age <= 0 {
		return 1
	}
	return clamp01(math.Exp2(-float64(age) / float64(halfLife)))
}

// RecencyMultiplier is the coarse, bucketed recency function used by the
// batch model. Step buckets avoid per-post exponentiation over large
// candidate sets and make recency behavior predictable in aggregate.
func RecencyMultiplier(age time.Duration) float64 {
	switch hours := age.Hours(); {
	case hours < 1:
		return 1.0
	case hours < 3:
		return 0.9
	case hours < 6:
		return 0.7
	case hours < 12:
		return 0.5
	case hours < 24:
		return 0.3
	case hours < 48:
		return 0.1
	default:
		return 0.05
	}
}

// Saturation points for engagement normalization: reaction and comment
// counts at or beyond these values contribute their maximum.
const (
	reactionSaturation = 50.0
	commentSaturation  = 20.0
)

// EngagementScore combines reaction and comment counts into [0, 1].
// Both inputs are normalized against their saturation points, combined
// 70/30 in favor of reactions, then log-compressed so viral outliers do
// not dominate: log10(x*9+1) maps [0,1] onto [0,1] while lifting the
// low end.
func EngagementScore(reactions, comments int) float64 {
	reactionsScore := math.Min(float64(reactions)/reactionSaturation, 1)
	commentsScore := math.Min(float64(comments)/commentSaturation, 1)
	raw := 0.7*reactionsScore + 0.3*commentsScore
	return clamp01(math.Log10(raw*9 + 1))
}

// ProximityScore converts a distance into [0, 1] with smooth exponential
// falloff inside the cutoff radius: exp(-2*d/max). Distances beyond
// maxDistanceKm score exactly 0 rather than asymptotically small, so
// far-away place tags neither help nor hurt.
func ProximityScore(distanceKm, maxDistanceKm float64) float64 {
	if maxDistanceKm <= 0 || distanceKm < 0 || distanceKm > maxDistanceKm {
		return 0
	}
	return clamp01(math.Exp(-2 * distanceKm / maxDistanceKm))
}

// PlaceProximity resolves a post's place tag against the viewer location
// and returns its proximity score. Zero when the post has no place tag,
// the place is unknown, or the viewer location is missing.
func PlaceProximity(p *post.Post, place *post.Place, viewer *geo.Point, maxDistanceKm float64) float64 {
	if p.PlaceID == nil || place == nil || viewer == nil {
		return 0
	}
	return ProximityScore(geo.DistanceKm(*viewer, place.Location), maxDistanceKm)
}

// Affinity signal constants. Follow state, mutuality, and co-ownership are
// flat bonuses; interaction frequency contributes up to interactionScale.
// Interaction weighting orders by effort to fake: views are nearly free,
// messages are not.
const (
	followBonus      = 0.4
	mutualBonus      = 0.2
	coOwnerBonus     = 0.2
	interactionScale = 0.6
	interactionNorm  = 20.0
)

// AffinityScore measures social closeness between the viewer and an
// author in [0, 1].
func AffinityScore(ctx *ViewerContext, authorID string) float64 {
	if ctx == nil {
		return 0
	}

	score := 0.0
	if ctx.Follows(authorID) {
		score += followBonus
		if ctx.IsMutual(authorID) {
			score += mutualBonus
		}
	}
	if ctx.IsCoOwner(authorID) {
		score += coOwnerBonus
	}

	ic := ctx.InteractionsWith(authorID)
	raw := float64(ic.Reactions)*1 +
		float64(ic.Comments)*2 +
		float64(ic.Messages)*3 +
		float64(ic.Views)*0.05
	score += interactionScale * math.Min(raw/interactionNorm, 1)

	return clamp01(score)
}

// ContentTypeScore returns the viewer's learned preference share for the
// post's content kind. A viewer with no recorded preferences scores 0 for
// every kind.
func ContentTypeScore(ctx *ViewerContext, kind post.ContentKind) float64 {
	if ctx == nil {
		return 0
	}
	prefs := ctx.ContentPrefs
	total := prefs.Photo + prefs.Video + prefs.Text
	if total <= 0 {
		return 0
	}
	switch kind {
	case post.KindVideo:
		return clamp01(prefs.Video / total)
	case post.KindPhoto:
		return clamp01(prefs.Photo / total)
	default:
		// Unknown kinds read as text.
		return clamp01(prefs.Text / total)
	}
}

// Topic relevance constants: explicit interest matches contribute a base
// plus a small per-match bump, capped; learned topic preferences
// contribute their normalized weight sum, capped.
const (
	interestBase     = 0.3
	interestPerMatch = 0.05
	interestCap      = 0.5
	learnedCap       = 0.7
)

// TopicScore measures match strength between a post's topics and the
// viewer's explicit interests plus learned topic preferences, in [0, 1].
// Posts with no extractable topics score 0.
func TopicScore(ctx *ViewerContext, topics []string) float64 {
	if ctx == nil || len(topics) == 0 {
		return 0
	}

	score := 0.0

	matches := 0
	for _, topic := range topics {
		if ctx.Interests[topic] {
			matches++
		}
	}
	if matches > 0 {
		score += math.Min(interestBase+interestPerMatch*float64(matches), interestCap)
	}

	var prefTotal float64
	for _, w := range ctx.TopicPrefs {
		prefTotal += w
	}
	if prefTotal > 0 {
		var matched float64
		for _, topic := range topics {
			matched += ctx.TopicPrefs[topic]
		}
		score += math.Min(matched/prefTotal, learnedCap)
	}

	return clamp01(score)
}

// TopicPrefRaw sums the viewer's unnormalized topic-preference weights for
// the given topics. The batch model uses this raw sum directly.
func TopicPrefRaw(ctx *ViewerContext, topics []string) float64 {
	if ctx == nil {
		return 0
	}
	var raw float64
	for _, topic := range topics {
		raw += ctx.TopicPrefs[topic]
	}
	return raw
}

// clamp01 clamps v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
