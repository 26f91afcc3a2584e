package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/petfolk/feedrank/internal/feed"
	"github.com/petfolk/feedrank/internal/geo"
	"github.com/petfolk/feedrank/internal/post"
	"github.com/petfolk/feedrank/internal/ranking"
)

// RankHandlers serves the ranking endpoints.
type RankHandlers struct {
	svc   *feed.Service
	posts post.Source
}

// NewRankHandlers creates rank handlers backed by the given feed service
// and post source.
func NewRankHandlers(svc *feed.Service, posts post.Source) *RankHandlers {
	return &RankHandlers{svc: svc, posts: posts}
}

// ViewerPayload is the wire form of a viewer context. Set membership is
// expressed as lists; the handler converts them to lookup maps.
type ViewerPayload struct {
	ViewerID       string                               `json:"viewer_id"`
	Following      []string                             `json:"following,omitempty"`
	Mutuals        []string                             `json:"mutuals,omitempty"`
	CoOwners       []string                             `json:"co_owners,omitempty"`
	Interactions   map[string]ranking.InteractionCounts `json:"interactions,omitempty"`
	EngagedPostIDs []string                             `json:"engaged_post_ids,omitempty"`
	ContentPrefs   ranking.ContentTypePrefs             `json:"content_prefs"`
	TopicPrefs     map[string]float64                   `json:"topic_prefs,omitempty"`
	Interests      []string                             `json:"interests,omitempty"`
	Location       *geo.Point                           `json:"location,omitempty"`
}

// toContext converts the payload into a ranking.ViewerContext.
func (v *ViewerPayload) toContext() *ranking.ViewerContext {
	if v == nil {
		return nil
	}
	return &ranking.ViewerContext{
		ViewerID:       v.ViewerID,
		Following:      toSet(v.Following),
		Mutuals:        toSet(v.Mutuals),
		CoOwners:       toSet(v.CoOwners),
		Interactions:   v.Interactions,
		EngagedPostIDs: toSet(v.EngagedPostIDs),
		ContentPrefs:   v.ContentPrefs,
		TopicPrefs:     v.TopicPrefs,
		Interests:      lowerSet(v.Interests),
		Location:       v.Location,
	}
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func lowerSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

// RankRequest is the request body for POST /v1/rank.
// PostIDs limits the candidate set; when empty, all posts are candidates.
type RankRequest struct {
	Viewer  *ViewerPayload `json:"viewer,omitempty"`
	PostIDs []string       `json:"post_ids,omitempty"`
}

// RankedItem is one entry of the ranked feed response.
type RankedItem struct {
	PostID    string   `json:"post_id"`
	AuthorID  string   `json:"author_id"`
	Score     float64  `json:"score"`
	CacheHit  bool     `json:"cache_hit"`
	Penalties []string `json:"penalties,omitempty"`
}

// RankResponse is the response body for POST /v1/rank.
type RankResponse struct {
	Items []RankedItem `json:"items"`
}

// Rank handles POST /v1/rank: score and order a candidate set for a viewer.
func (h *RankHandlers) Rank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "Invalid JSON body")
		return
	}

	candidates, err := h.resolveCandidates(r.Context(), req.PostIDs)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load candidates", "error", err)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load candidate posts")
		return
	}

	ranked, err := h.svc.RankFeed(r.Context(), candidates, req.Viewer.toContext())
	if err != nil {
		slog.ErrorContext(r.Context(), "ranking failed", "error", err)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Ranking failed")
		return
	}

	items := make([]RankedItem, 0, len(ranked))
	for _, rp := range ranked {
		items = append(items, RankedItem{
			PostID:    rp.Post.ID,
			AuthorID:  rp.Post.AuthorID,
			Score:     rp.Score,
			CacheHit:  rp.CacheHit,
			Penalties: rp.Penalties,
		})
	}

	writeJSON(w, r.Context(), http.StatusOK, RankResponse{Items: items})
}

// resolveCandidates loads the requested posts, or every post when no ids
// were given. Unknown ids are skipped rather than failing the batch.
func (h *RankHandlers) resolveCandidates(ctx context.Context, ids []string) ([]*post.Post, error) {
	if len(ids) == 0 {
		return h.posts.ListAll(ctx)
	}

	candidates := make([]*post.Post, 0, len(ids))
	for _, id := range ids {
		p, err := h.posts.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, post.ErrPostNotFound) {
				slog.WarnContext(ctx, "skipping unknown candidate post", "post_id", id)
				continue
			}
			return nil, err
		}
		candidates = append(candidates, p)
	}
	return candidates, nil
}

// ExplainRequest is the request body for POST /v1/score/{id}.
type ExplainRequest struct {
	Viewer *ViewerPayload `json:"viewer,omitempty"`
}

// ExplainResponse is the response body for POST /v1/score/{id}.
type ExplainResponse struct {
	PostID      string               `json:"post_id"`
	Explanation *ranking.Explanation `json:"explanation"`
}

// Explain handles POST /v1/score/{id}: score one post for a viewer with a
// per-signal breakdown.
func (h *RankHandlers) Explain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	postID := strings.TrimPrefix(r.URL.Path, "/v1/score/")
	if postID == "" || strings.Contains(postID, "/") {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "Missing or invalid post id")
		return
	}

	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "Invalid JSON body")
		return
	}

	explanation, err := h.svc.ExplainScore(r.Context(), postID, req.Viewer.toContext())
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Post not found")
			return
		}
		slog.ErrorContext(r.Context(), "explain failed", "error", err, "post_id", postID)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Scoring failed")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, ExplainResponse{PostID: postID, Explanation: explanation})
}
