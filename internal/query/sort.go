package query

import (
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewestFirst sorts items by creation time descending, ties broken by id
// descending, the same order the document store uses.
func NewestFirst[T any](items []T, key func(T) (time.Time, primitive.ObjectID)) {
	slices.SortStableFunc(items, func(a, b T) int {
		at, aid := key(a)
		bt, bid := key(b)
		if c := bt.Compare(at); c != 0 {
			return c
		}
		return strings.Compare(bid.Hex(), aid.Hex())
	})
}

// TextMatch approximates a text index lookup: a document matches when any
// search term occurs in any of its indexed fields, ignoring case.
func TextMatch(search string, fields ...string) bool {
	terms := strings.Fields(strings.ToLower(search))
	if len(terms) == 0 {
		return true
	}
	for _, field := range fields {
		field = strings.ToLower(field)
		for _, term := range terms {
			if strings.Contains(field, term) {
				return true
			}
		}
	}
	return false
}
