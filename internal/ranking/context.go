package ranking

import (
	"github.com/petfolk/feedrank/internal/geo"
)

// InteractionCounts tallies a viewer's historical interactions with one
// author. Higher-effort interactions (messages > comments > reactions)
// weigh more in the affinity signal; views are the weakest tell.
type InteractionCounts struct {
	Reactions int `json:"reactions"`
	Comments  int `json:"comments"`
	Messages  int `json:"messages"`
	Views     int `json:"views"`
}

// ContentTypePrefs is the viewer's learned preference distribution over
// content media. Values are relative weights, not required to sum to 1.
type ContentTypePrefs struct {
	Photo float64 `json:"photo"`
	Video float64 `json:"video"`
	Text  float64 `json:"text"`
}

// ViewerContext is the per-viewer snapshot the engine scores against.
// It is assembled by the caller (see feed.Service) and treated as
// read-only for the duration of a ranking call.
type ViewerContext struct {
	ViewerID string

	// Social graph relative to the viewer.
	Following map[string]bool // author ids the viewer follows
	Mutuals   map[string]bool // follows that are reciprocated
	CoOwners  map[string]bool // authors sharing pet ownership with the viewer

	// Interactions maps author id to historical interaction tallies.
	Interactions map[string]InteractionCounts

	// EngagedPostIDs holds ids of posts the viewer reacted to or
	// commented on; used by the rare-author-engagement penalty.
	EngagedPostIDs map[string]bool

	ContentPrefs ContentTypePrefs

	// TopicPrefs maps lowercased topic to a learned preference weight.
	TopicPrefs map[string]float64

	// Interests is the viewer's explicit interest set, lowercased.
	Interests map[string]bool

	MutedKeywords []string
	HiddenTopics  []string

	// Location is the viewer's current position, nil when unknown.
	Location *geo.Point
}

// Follows reports whether the viewer follows the author.
func (c *ViewerContext) Follows(authorID string) bool {
	return c != nil && c.Following[authorID]
}

// IsMutual reports whether the viewer and author follow each other.
func (c *ViewerContext) IsMutual(authorID string) bool {
	return c != nil && c.Mutuals[authorID]
}

// IsCoOwner reports whether the author co-owns a pet with the viewer.
func (c *ViewerContext) IsCoOwner(authorID string) bool {
	return c != nil && c.CoOwners[authorID]
}

// InteractionsWith returns the viewer's interaction tallies for an author,
// zero-valued when none are recorded.
func (c *ViewerContext) InteractionsWith(authorID string) InteractionCounts {
	if c == nil {
		return InteractionCounts{}
	}
	return c.Interactions[authorID]
}
