package ranking

import (
	"strings"

	"github.com/petfolk/feedrank/internal/post"
)

// Penalty factors. All penalties are multiplicative demotions applied
// after base scoring; they compound and their order does not matter.
const (
	HiddenTopicFactor    = 0.2
	ReportedFactor       = 0.3
	RareEngagementFactor = 0.5
	ShortNoMediaFactor   = 0.6
	ExcessHashtagsFactor = 0.5
	ClickbaitFactor      = 0.6
)

// Thresholds for the negative-signal detectors.
const (
	// ReportThreshold is the report count at which a post is demoted.
	ReportThreshold = 3

	// ShortTextThreshold is the stripped text length below which a
	// media-less post is considered low effort.
	ShortTextThreshold = 50

	// MaxHashtags is the distinct hashtag count above which a post is
	// demoted as hashtag spam.
	MaxHashtags = 10

	// RareEngagementRatio is the fraction of a followed author's recent
	// posts the viewer must have engaged with to avoid demotion.
	RareEngagementRatio = 0.1
)

// PenaltyInput bundles everything the negative-signal detectors inspect
// for one post. AuthorRecentPosts is the author's posts within the
// engagement lookback window, pre-fetched by the ranker.
type PenaltyInput struct {
	Post              *post.Post
	Topics            []string
	Ctx               *ViewerContext
	ReportCount       int
	AuthorRecentPosts []*post.Post
}

// PenaltyRule is one named negative-signal detector. Rules are data, not
// code paths: tuning a factor or adding a detector means editing the rule
// list, not the composer.
type PenaltyRule struct {
	Name    string
	Factor  float64
	Applies func(in PenaltyInput) bool
}

// DefaultPenaltyRules returns the standard penalty rule list.
func DefaultPenaltyRules() []PenaltyRule {
	rules := []PenaltyRule{
		{
			Name:    "hidden_topic",
			Factor:  HiddenTopicFactor,
			Applies: matchesHiddenTopic,
		},
		{
			Name:   "reported",
			Factor: ReportedFactor,
			Applies: func(in PenaltyInput) bool {
				return in.ReportCount >= ReportThreshold || in.Post.IsFlagged()
			},
		},
		{
			Name:    "rare_author_engagement",
			Factor:  RareEngagementFactor,
			Applies: rareAuthorEngagement,
		},
		{
			Name:   "short_no_media",
			Factor: ShortNoMediaFactor,
			Applies: func(in PenaltyInput) bool {
				return len(strings.TrimSpace(in.Post.Text)) < ShortTextThreshold && !in.Post.HasMedia()
			},
		},
		{
			Name:   "excessive_hashtags",
			Factor: ExcessHashtagsFactor,
			Applies: func(in PenaltyInput) bool {
				return len(in.Post.HashtagTokens()) > MaxHashtags
			},
		},
		{
			Name:    "clickbait",
			Factor:  ClickbaitFactor,
			Applies: matchesClickbait,
		},
	}
	return rules
}

// clickbaitPhrases are the phrases the clickbait detector looks for in
// post text, all lowercase. The phrase list is data so entries can be
// tuned or retired without touching the rule.
var clickbaitPhrases = []string{
	"you won't believe",
	"you wont believe",
	"shocking",
	"click here",
	"this one trick",
	"doctors hate",
	"number will surprise you",
}

// matchesClickbait reports whether the post text contains any clickbait
// phrase. The demotion applies once no matter how many phrases match.
func matchesClickbait(in PenaltyInput) bool {
	text := strings.ToLower(in.Post.Text)
	for _, phrase := range clickbaitPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// matchesHiddenTopic reports whether the post touches any topic or keyword
// the viewer has hidden. Topics match exactly; keywords also match as text
// substrings since hides are often free-form phrases.
func matchesHiddenTopic(in PenaltyInput) bool {
	if in.Ctx == nil || len(in.Ctx.HiddenTopics) == 0 {
		return false
	}

	topicSet := make(map[string]bool, len(in.Topics))
	for _, t := range in.Topics {
		topicSet[t] = true
	}
	text := strings.ToLower(in.Post.Text)

	for _, hidden := range in.Ctx.HiddenTopics {
		h := strings.ToLower(strings.TrimSpace(hidden))
		if h == "" {
			continue
		}
		if topicSet[h] || strings.Contains(text, h) {
			return true
		}
	}
	return false
}

// rareAuthorEngagement demotes posts from followed authors the viewer
// consistently scrolls past. Only followed authors are evaluated; an
// author with no recent posts is never penalized.
func rareAuthorEngagement(in PenaltyInput) bool {
	if in.Ctx == nil || !in.Ctx.Follows(in.Post.AuthorID) {
		return false
	}
	if len(in.AuthorRecentPosts) == 0 {
		return false
	}

	engaged := 0
	for _, p := range in.AuthorRecentPosts {
		if in.Ctx.EngagedPostIDs[p.ID] {
			engaged++
		}
	}
	ratio := float64(engaged) / float64(len(in.AuthorRecentPosts))
	return ratio < RareEngagementRatio
}

// ApplyPenalties compounds every applicable penalty against base and
// returns the demoted score along with the names of the rules that fired.
func ApplyPenalties(base float64, in PenaltyInput, rules []PenaltyRule) (float64, []string) {
	score := base
	var applied []string
	for _, rule := range rules {
		if rule.Applies(in) {
			score *= rule.Factor
			applied = append(applied, rule.Name)
		}
	}
	return score, applied
}

// ContainsMutedKeyword reports whether the post's text, hashtags, or tags
// contain any of the viewer's muted terms. Muted posts are excluded from
// ranking output entirely, not merely demoted.
func ContainsMutedKeyword(p *post.Post, muted []string) bool {
	if len(muted) == 0 {
		return false
	}

	var sb strings.Builder
	sb.WriteString(strings.ToLower(p.Text))
	for _, token := range p.TopicTokens() {
		sb.WriteByte(' ')
		sb.WriteString(token)
	}
	haystack := sb.String()

	for _, term := range muted {
		t := strings.ToLower(strings.TrimSpace(term))
		if t != "" && strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}
