package query

import (
	"fmt"
	"math"

	"marketplace/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultLimit = 50

// Filter selects the documents of a list query. Zero values mean "no
// constraint"; set filters are AND-ed with the text search.
type Filter struct {
	SearchString    string
	ID              *primitive.ObjectID
	Owner           *primitive.ObjectID
	Freelancer      *primitive.ObjectID
	Statuses        []models.JobStatus
	ExcludeStatuses []models.JobStatus
	Participant     *primitive.ObjectID
	Page            *int
	Limit           *int
}

// Plan is the resolved pagination window of a Filter.
type Plan struct {
	Skip  int64
	Limit int64 // 0 means unbounded
	Page  int   // 0 means page absent
}

func (p Plan) Bounded() bool {
	return p.Limit > 0
}

// NewPlan resolves page and limit. Without a page the whole filtered set is
// returned; with one, pages are 1-indexed windows of limit entries.
func NewPlan(page, limit *int, defaultLimit int) (Plan, error) {
	if defaultLimit < 1 {
		defaultLimit = DefaultLimit
	}

	l := defaultLimit
	if limit != nil {
		if *limit < 1 {
			return Plan{}, fmt.Errorf("query.NewPlan: %w: limit %d", models.ErrInvalidPage, *limit)
		}
		l = *limit
	}

	if page == nil {
		return Plan{}, nil
	}
	if *page < 1 {
		return Plan{}, fmt.Errorf("query.NewPlan: %w: page %d", models.ErrInvalidPage, *page)
	}

	if int64(*page) > math.MaxInt64/int64(l) {
		return Plan{}, fmt.Errorf("query.NewPlan: %w: page %d out of range", models.ErrInvalidPage, *page)
	}

	skip := int64(*page)*int64(l) - int64(l)
	return Plan{Skip: skip, Limit: int64(l), Page: *page}, nil
}

// Plan resolves the pagination window of f.
func (f Filter) Plan(defaultLimit int) (Plan, error) {
	return NewPlan(f.Page, f.Limit, defaultLimit)
}

type MetaData struct {
	TotalDocuments int64 `json:"totalDocuments" bson:"totalDocuments"`
	Page           int   `json:"page,omitempty" bson:"page,omitempty"`
	Limit          int64 `json:"limit" bson:"limit"`
}

type Page[T any] struct {
	Entries  []T      `json:"entries"`
	MetaData MetaData `json:"metaData"`
}

// NewPage wraps one window of results. Entries is never nil.
func NewPage[T any](entries []T, total int64, plan Plan) Page[T] {
	if entries == nil {
		entries = []T{}
	}
	return Page[T]{
		Entries: entries,
		MetaData: MetaData{
			TotalDocuments: total,
			Page:           plan.Page,
			Limit:          plan.Limit,
		},
	}
}

// Window cuts the plan's page out of a fully filtered and sorted slice.
func Window[T any](items []T, plan Plan) []T {
	if plan.Skip >= int64(len(items)) {
		return []T{}
	}
	items = items[plan.Skip:]
	if plan.Bounded() && plan.Limit < int64(len(items)) {
		items = items[:plan.Limit]
	}
	return items
}

// HasStatus reports whether s passes the status set and its negation.
func (f Filter) HasStatus(s models.JobStatus) bool {
	if len(f.Statuses) > 0 && !contains(f.Statuses, s) {
		return false
	}
	return !contains(f.ExcludeStatuses, s)
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
