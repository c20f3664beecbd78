package notify

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

// fixedItem renders to exactly n characters including the trailing separator
func fixedItem(i, n int) string {
	prefix := fmt.Sprintf("item %02d ", i)
	return prefix + strings.Repeat("x", n-len(prefix)-2) + "\n\n"
}

func identity(s string) string { return s }

func TestBatchEmpty(t *testing.T) {
	b := Batcher[string]{Render: identity, Header: "H", Budget: 100}
	if got := b.Batch(nil); len(got) != 0 {
		t.Fatalf("Batch(nil) = %v, want no batches", got)
	}
}

func TestBatchSingle(t *testing.T) {
	b := Batcher[string]{Render: identity, Header: "📰 **News**", Budget: DefaultBudget}
	got := b.Batch([]string{"hello\n\n"})

	want := []Batch{{Content: "📰 **News**\n\nhello", Items: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Batch mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchTwelveItemsSplitsInTwo(t *testing.T) {
	header := strings.Repeat("h", 40)
	items := make([]string, 12)
	for i := range items {
		items[i] = fixedItem(i, 180)
	}

	b := Batcher[string]{Render: identity, Header: header, Budget: 1950}
	got := b.Batch(items)

	if len(got) != 2 {
		t.Fatalf("got %d batches, want 2", len(got))
	}
	if got[0].Items != 10 || got[1].Items != 2 {
		t.Errorf("items per batch = %d/%d, want 10/2", got[0].Items, got[1].Items)
	}
	if !strings.HasPrefix(got[1].Content, header+" (Part 2)\n\n") {
		t.Errorf("second batch header = %q", got[1].Content[:60])
	}
}

func TestBatchNumberingAndBudget(t *testing.T) {
	const budget = 300
	items := make([]string, 20)
	for i := range items {
		items[i] = fixedItem(i, 70+i%3*15)
	}

	b := Batcher[string]{Render: identity, Header: "Header", Mention: "<@123456789012345678> ", Budget: budget}
	got := b.Batch(items)

	if len(got) < 3 {
		t.Fatalf("expected several batches, got %d", len(got))
	}

	next := 0
	for i, batch := range got {
		if n := utf8.RuneCountInString(batch.Content); n > budget {
			t.Errorf("batch %d has %d chars, budget %d", i, n, budget)
		}

		prefix := "<@123456789012345678> Header\n\n"
		if i > 0 {
			prefix = fmt.Sprintf("<@123456789012345678> Header (Part %d)\n\n", i+1)
		}
		if !strings.HasPrefix(batch.Content, prefix) {
			t.Fatalf("batch %d prefix = %q, want %q", i, batch.Content[:len(prefix)], prefix)
		}
		if i == 0 && strings.Contains(batch.Content, "(Part") {
			t.Errorf("first batch must not be numbered")
		}

		// body reproduces the items in order
		body := strings.TrimPrefix(batch.Content, prefix)
		want := strings.TrimRight(strings.Join(items[next:next+batch.Items], ""), " \n")
		if body != want {
			t.Errorf("batch %d body mismatch:\n got %q\nwant %q", i, body, want)
		}
		next += batch.Items
	}
	if next != len(items) {
		t.Errorf("batches carried %d items, want %d", next, len(items))
	}
}

func TestBatchOversizedItemStandsAlone(t *testing.T) {
	huge := strings.Repeat("y", 500) + "\n\n"
	items := []string{huge, "small\n\n", huge}

	b := Batcher[string]{Render: identity, Header: "H", Budget: 200}
	got := b.Batch(items)

	wantItems := []int{1, 1, 1}
	var gotItems []int
	for _, batch := range got {
		gotItems = append(gotItems, batch.Items)
	}
	if diff := cmp.Diff(wantItems, gotItems); diff != "" {
		t.Fatalf("items per batch (-want +got):\n%s", diff)
	}
	for i, batch := range got {
		if strings.TrimSpace(batch.Content) == "H" || strings.HasSuffix(batch.Content, ")") {
			t.Errorf("batch %d is header-only: %q", i, batch.Content)
		}
	}
}

func TestBatchCountsCharactersNotBytes(t *testing.T) {
	// 10 emoji are 40 bytes but 10 characters
	item := strings.Repeat("🔗", 10)
	b := Batcher[string]{Render: identity, Header: "H", Budget: 25}
	got := b.Batch([]string{item, item})

	if len(got) != 1 {
		t.Fatalf("got %d batches, want 1 (3 + 20 chars fits in 25)", len(got))
	}
}

func TestCountItems(t *testing.T) {
	batches := []Batch{{Items: 3}, {Items: 4}, {Items: 1}}
	tests := []struct {
		n    int
		want int
	}{
		{0, 0}, {1, 3}, {2, 7}, {3, 8}, {9, 8},
	}
	for _, tt := range tests {
		if got := CountItems(batches, tt.n); got != tt.want {
			t.Errorf("CountItems(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestMentionToken(t *testing.T) {
	if got := MentionToken(""); got != "" {
		t.Errorf("empty id = %q", got)
	}
	if got := MentionToken(" 123456789012345678 "); got != "<@123456789012345678> " {
		t.Errorf("mention = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
