// Package notify turns ordered items into chat-sized message batches.
package notify

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultBudget leaves headroom under Discord's 2000 character message limit
const DefaultBudget = 1950

// Batch is one outbound message
type Batch struct {
	Content string
	Items   int // number of rendered items carried by this batch
}

// Batcher partitions items into batches of at most Budget characters.
// Each batch starts with Mention + Header; batches after the first carry a
// " (Part N)" suffix on the header.
type Batcher[T any] struct {
	Render  func(T) string
	Header  string
	Mention string
	Budget  int
}

// Batch greedily packs rendered items in order. Zero items yield zero
// batches. An item longer than the budget on its own still goes out, alone,
// in its own batch.
func (b Batcher[T]) Batch(items []T) []Batch {
	if len(items) == 0 {
		return nil
	}

	budget := b.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	var batches []Batch
	var current strings.Builder
	currentLen := 0
	count := 0

	start := func(header string) {
		current.Reset()
		current.WriteString(header)
		currentLen = utf8.RuneCountInString(header)
		count = 0
	}
	closeBatch := func() {
		batches = append(batches, Batch{
			Content: strings.TrimRight(current.String(), " \t\r\n"),
			Items:   count,
		})
	}

	start(b.Mention + b.Header + "\n\n")
	for _, item := range items {
		text := b.Render(item)
		n := utf8.RuneCountInString(text)

		if count > 0 && currentLen+n > budget {
			closeBatch()
			start(fmt.Sprintf("%s%s (Part %d)\n\n", b.Mention, b.Header, len(batches)+1))
		}

		current.WriteString(text)
		currentLen += n
		count++
	}
	if count > 0 {
		closeBatch()
	}

	return batches
}

// Texts returns the content of each batch
func Texts(batches []Batch) []string {
	out := make([]string, len(batches))
	for i, b := range batches {
		out[i] = b.Content
	}
	return out
}

// CountItems sums the items carried by the first n batches
func CountItems(batches []Batch, n int) int {
	total := 0
	for i := 0; i < n && i < len(batches); i++ {
		total += batches[i].Items
	}
	return total
}

// MentionToken formats a Discord user mention, or returns "" for an empty id
func MentionToken(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}
	return "<@" + userID + "> "
}

// Truncate shortens s to at most max characters, ending with "..." when cut
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}
