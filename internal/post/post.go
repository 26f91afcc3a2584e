// Package post provides the post and place models consumed by the
// feed-ranking engine, plus read-side repositories over them.
package post

import (
	"regexp"
	"strings"
	"time"

	"github.com/petfolk/feedrank/internal/geo"
)

// Post type constants. The type is authored, not derived; question posts
// receive a visibility boost in single-post scoring so they can collect
// answers while fresh.
const (
	TypeStatus   = "status"
	TypeQuestion = "question"
)

// Moderation status constants for a post.
const (
	// StatusActive marks a post with no outstanding moderation action.
	StatusActive = "active"

	// StatusFlagged marks a post sitting in the moderation queue.
	// Flagged posts are heavily demoted in ranking but not removed.
	StatusFlagged = "flagged"
)

// ContentKind classifies what medium a post primarily carries.
type ContentKind string

// Content kinds, in classification priority order: a post with video is
// "video" even if it also has images; image-only is "photo"; neither is "text".
const (
	KindVideo ContentKind = "video"
	KindPhoto ContentKind = "photo"
	KindText  ContentKind = "text"
)

// Place is a geotag target referenced by place-tagged posts.
type Place struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Location geo.Point `json:"location"`
}

// Post represents one content item in a ranking candidate set.
// The engine treats posts as read-only snapshots; nothing here is mutated
// during scoring.
type Post struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	Type     string `json:"type,omitempty"`
	Text     string `json:"text"`

	Hashtags []string `json:"hashtags,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	// Reactions maps a reaction category (e.g. "like", "paw") to its count.
	// Likes is the legacy flat list kept for posts predating categorized
	// reactions; it only counts when Reactions is empty.
	Reactions map[string]int `json:"reactions,omitempty"`
	Likes     []string       `json:"likes,omitempty"`

	HasImage bool `json:"has_image,omitempty"`
	HasVideo bool `json:"has_video,omitempty"`

	PlaceID      *string `json:"place_id,omitempty"`
	SharedFromID *string `json:"shared_from_id,omitempty"`

	ReportCount int    `json:"report_count,omitempty"`
	Status      string `json:"status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// inlineTopicPattern matches inline #topic tokens in post text.
var inlineTopicPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// ReactionTotal returns the total reaction count across all categories,
// falling back to the legacy likes list when no categorized reactions exist.
func (p *Post) ReactionTotal() int {
	if len(p.Reactions) == 0 {
		return len(p.Likes)
	}
	total := 0
	for _, n := range p.Reactions {
		total += n
	}
	return total
}

// HasMedia reports whether the post carries any image or video attachment.
func (p *Post) HasMedia() bool {
	return p.HasImage || p.HasVideo
}

// Kind classifies the post's content medium. Video wins over photo;
// anything without media is text, including unknown combinations.
func (p *Post) Kind() ContentKind {
	switch {
	case p.HasVideo:
		return KindVideo
	case p.HasImage:
		return KindPhoto
	default:
		return KindText
	}
}

// IsQuestion reports whether the post is a question-type post.
func (p *Post) IsQuestion() bool {
	return p.Type == TypeQuestion
}

// IsFlagged reports whether the post sits in the moderation queue.
func (p *Post) IsFlagged() bool {
	return p.Status == StatusFlagged
}

// Age returns how old the post is relative to now.
func (p *Post) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}

// TopicTokens extracts the post's topic tokens: explicit hashtags, tags,
// and inline #tokens found in the text, lowercased and de-duplicated.
// Order follows first occurrence so results are deterministic.
func (p *Post) TopicTokens() []string {
	seen := make(map[string]bool)
	var tokens []string

	add := func(raw string) {
		token := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
		if token == "" || seen[token] {
			return
		}
		seen[token] = true
		tokens = append(tokens, token)
	}

	for _, h := range p.Hashtags {
		add(h)
	}
	for _, t := range p.Tags {
		add(t)
	}
	for _, m := range inlineTopicPattern.FindAllStringSubmatch(p.Text, -1) {
		add(m[1])
	}

	return tokens
}

// HashtagTokens returns the post's distinct hashtags (explicit plus inline
// #tokens), lowercased. Tags are not hashtags and are excluded.
func (p *Post) HashtagTokens() []string {
	seen := make(map[string]bool)
	var tokens []string

	add := func(raw string) {
		token := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
		if token == "" || seen[token] {
			return
		}
		seen[token] = true
		tokens = append(tokens, token)
	}

	for _, h := range p.Hashtags {
		add(h)
	}
	for _, m := range inlineTopicPattern.FindAllStringSubmatch(p.Text, -1) {
		add(m[1])
	}

	return tokens
}

// User is the read-side projection of a platform user needed for ranking:
// identity plus follower edges for audience-size damping.
type User struct {
	ID        string   `json:"id"`
	Followers []string `json:"followers,omitempty"`
}
