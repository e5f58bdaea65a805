package domain

import (
	"cmp"
	"strings"
)

// DisplayOrder is the curated position of a subtopic within its subject or
// a flashcard within its subtopic. Rows created before ordering existed,
// or while the schema lacks the column, are Unordered.
type DisplayOrder struct {
	index   int
	ordered bool
}

// Ordered returns a DisplayOrder at position i.
func Ordered(i int) DisplayOrder {
	return DisplayOrder{index: i, ordered: true}
}

// Unordered returns the absent DisplayOrder.
func Unordered() DisplayOrder {
	return DisplayOrder{}
}

// Index returns the position and whether one is set.
func (o DisplayOrder) Index() (int, bool) {
	return o.index, o.ordered
}

// IsOrdered reports whether a position is set.
func (o DisplayOrder) IsOrdered() bool {
	return o.ordered
}

// Compare orders positioned items by index and places every Ordered value
// before every Unordered one. Two Unordered values compare equal so callers
// can fall through to their own tie-breaker.
func (o DisplayOrder) Compare(other DisplayOrder) int {
	switch {
	case o.ordered && other.ordered:
		return cmp.Compare(o.index, other.index)
	case o.ordered:
		return -1
	case other.ordered:
		return 1
	default:
		return 0
	}
}

// NextDisplayOrder returns the position after the highest Ordered value,
// or Ordered(0) when nothing is positioned yet.
func NextDisplayOrder(existing []DisplayOrder) DisplayOrder {
	next := 0
	for _, o := range existing {
		if o.ordered && o.index+1 > next {
			next = o.index + 1
		}
	}
	return Ordered(next)
}

// CompareSubtopics sorts subtopics by display order, then case-insensitive
// name, then ID.
func CompareSubtopics(a, b Subtopic) int {
	if c := a.DisplayOrder.Compare(b.DisplayOrder); c != 0 {
		return c
	}
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// CompareFlashcards sorts flashcards by display order, then creation time
// (a missing timestamp sorts first), then ID.
func CompareFlashcards(a, b Flashcard) int {
	if c := a.DisplayOrder.Compare(b.DisplayOrder); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}
