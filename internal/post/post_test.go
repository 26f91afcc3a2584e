package post

import (
	"reflect"
	"testing"
	"time"
)

// TestReactionTotal tests counting across categories and the legacy fallback.
func TestReactionTotal(t *testing.T) {
	tests := []struct {
		name string
		post Post
		want int
	}{
		{
			name: "categorized reactions summed",
			post: Post{Reactions: map[string]int{"like": 3, "paw": 2, "heart": 5}},
			want: 10,
		},
		{
			name: "legacy likes when no categories",
			post: Post{Likes: []string{"u1", "u2", "u3"}},
			want: 3,
		},
		{
			name: "categories win over legacy likes",
			post: Post{Reactions: map[string]int{"like": 1}, Likes: []string{"u1", "u2"}},
			want: 1,
		},
		{
			name: "no engagement at all",
			post: Post{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.post.ReactionTotal(); got != tt.want {
				t.Errorf("ReactionTotal() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestKind tests content-kind classification priority: video > photo > text.
func TestKind(t *testing.T) {
	tests := []struct {
		name string
		post Post
		want ContentKind
	}{
		{name: "video only", post: Post{HasVideo: true}, want: KindVideo},
		{name: "video wins over image", post: Post{HasVideo: true, HasImage: true}, want: KindVideo},
		{name: "image only", post: Post{HasImage: true}, want: KindPhoto},
		{name: "no media is text", post: Post{Text: "hello"}, want: KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.post.Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestTopicTokens tests extraction from hashtags, tags, and inline text.
func TestTopicTokens(t *testing.T) {
	tests := []struct {
		name string
		post Post
		want []string
	}{
		{
			name: "hashtags lowered",
			post: Post{Hashtags: []string{"Dogs", "AGILITY"}},
			want: []string{"dogs", "agility"},
		},
		{
			name: "inline tokens extracted from text",
			post: Post{Text: "morning walk with #Luna at the #dogpark"},
			want: []string{"luna", "dogpark"},
		},
		{
			name: "deduplicated across sources",
			post: Post{
				Hashtags: []string{"dogs"},
				Tags:     []string{"Dogs"},
				Text:     "more #dogs content",
			},
			want: []string{"dogs"},
		},
		{
			name: "leading hash stripped from stored hashtags",
			post: Post{Hashtags: []string{"#rescue"}},
			want: []string{"rescue"},
		},
		{
			name: "no topics",
			post: Post{Text: "plain text without topics"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.post.TopicTokens(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopicTokens() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestAge verifies age is measured against the supplied clock.
func TestAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Post{CreatedAt: now.Add(-36 * time.Hour)}
	if got := p.Age(now); got != 36*time.Hour {
		t.Errorf("Age() = %v, want 36h", got)
	}
}

// TestIsFlagged tests moderation status checks.
func TestIsFlagged(t *testing.T) {
	if (&Post{Status: StatusActive}).IsFlagged() {
		t.Error("active post reported as flagged")
	}
	if !(&Post{Status: StatusFlagged}).IsFlagged() {
		t.Error("flagged post not reported as flagged")
	}
}
