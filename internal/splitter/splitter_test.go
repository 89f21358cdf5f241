package splitter

import (
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      []string
	}{
		{
			name:      "single instruction",
			utterance: "Show me all users",
			want:      []string{"Show me all users"},
		},
		{
			name:      "two sentences",
			utterance: "Add a user named Jane Doe with email jane@example.com. Show all users.",
			want: []string{
				"Add a user named Jane Doe with email jane@example.com",
				"Show all users",
			},
		},
		{
			name:      "conjunction",
			utterance: "add a user named Bob and list all users",
			want:      []string{"add a user named Bob", "list all users"},
		},
		{
			name:      "semicolon and newline",
			utterance: "count the users; weather in Paris\nrecent launches",
			want:      []string{"count the users", "weather in Paris", "recent launches"},
		},
		{
			name:      "consecutive separators collapse",
			utterance: "list users.. and ; show weather in Oslo",
			want:      []string{"list users", "show weather in Oslo"},
		},
		{
			name:      "email dot is not a separator",
			utterance: "find the user whose email is jane@example.com in the database",
			want:      []string{"find the user whose email is jane@example.com in the database"},
		},
		{
			name:      "and inside a word does not split",
			utterance: "show all commands",
			want:      []string{"show all commands"},
		},
		{
			name:      "question and exclamation",
			utterance: "What's the weather in Tokyo? Show all users!",
			want:      []string{"What's the weather in Tokyo", "Show all users"},
		},
		{
			name:      "whitespace only input",
			utterance: "   ",
			want:      nil,
		},
		{
			name:      "trailing punctuation",
			utterance: "list all users.",
			want:      []string{"list all users"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.utterance)
			if len(got) != len(tt.want) {
				t.Fatalf("Split(%q) = %d fragments %v, want %d", tt.utterance, len(got), got, len(tt.want))
			}
			for i, f := range got {
				if f.Text != tt.want[i] {
					t.Errorf("fragment %d = %q, want %q", i, f.Text, tt.want[i])
				}
				if f.OrderIndex != i {
					t.Errorf("fragment %d has order index %d", i, f.OrderIndex)
				}
			}
		})
	}
}

// Reassembling fragments in order preserves the semantic content of the
// original utterance (separators aside).
func TestSplitPreservesContent(t *testing.T) {
	utterance := "Add a user named Jane Doe. Count the users and show the weather in Berlin"
	fragments := Split(utterance)

	var parts []string
	for _, f := range fragments {
		parts = append(parts, f.Text)
	}
	joined := strings.Join(parts, " ")

	for _, word := range []string{"Jane", "Doe", "Count", "Berlin"} {
		if !strings.Contains(joined, word) {
			t.Errorf("reassembled fragments lost %q: %q", word, joined)
		}
	}
}

// The known precision limit: "and" as ordinary content still splits.
func TestSplitAndPrecisionLimit(t *testing.T) {
	got := Split("add a user named Smith and Sons")
	if len(got) != 2 {
		t.Fatalf("expected the lexical rule to split on 'and', got %v", got)
	}
}
