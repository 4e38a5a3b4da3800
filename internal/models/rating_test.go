package models

import (
	"errors"
	"math"
	"testing"
)

func scores(vals ...float64) []Rating {
	ratings := make([]Rating, 0, len(vals))
	for _, v := range vals {
		ratings = append(ratings, Rating{Score: v})
	}
	return ratings
}

func TestAverageScore(t *testing.T) {
	tests := []struct {
		name    string
		ratings []Rating
		want    float64
	}{
		{"empty", nil, 0},
		{"first rating", scores(5), 5},
		{"appended to existing", scores(4, 5, 3), 4},
		{"nan score", scores(4, math.NaN()), 0},
		{"infinite score", scores(math.Inf(1), 1), 0},
		{"negative scores", scores(-2, 4), 1},
	}

	for _, tt := range tests {
		got := AverageScore(tt.ratings)
		if got != tt.want {
			t.Errorf("%s: AverageScore() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCheckBidTransition(t *testing.T) {
	tests := []struct {
		from, to BidStatus
		want     error
	}{
		{BidPending, BidInterviewing, nil},
		{BidPending, BidAccepted, nil},
		{BidPending, BidRejected, nil},
		{BidInterviewing, BidAccepted, nil},
		{BidInterviewing, BidRejected, nil},
		{BidInterviewing, BidInterviewing, ErrInvalidTransition},
		{BidInterviewing, BidPending, ErrInvalidTransition},
		{BidPending, BidPending, ErrInvalidTransition},
		{BidAccepted, BidRejected, ErrBidFinalized},
		{BidRejected, BidAccepted, ErrBidFinalized},
	}

	for _, tt := range tests {
		err := CheckBidTransition(tt.from, tt.to)
		if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
			t.Errorf("CheckBidTransition(%s, %s) = %v, want %v", tt.from, tt.to, err, tt.want)
		}
	}
}

func TestJobTransitionSources(t *testing.T) {
	if got := JobTransitionSources(JobCompleted); len(got) != 1 || got[0] != JobInProgress {
		t.Errorf("JobTransitionSources(COMPLETED) = %v", got)
	}
	if got := JobTransitionSources(JobCanceled); len(got) != 2 {
		t.Errorf("JobTransitionSources(CANCELED) = %v", got)
	}
	if got := JobTransitionSources(JobInProgress); got != nil {
		t.Errorf("JobTransitionSources(IN_PROGRESS) = %v, want nil", got)
	}
}

func TestErrorCategories(t *testing.T) {
	cases := map[error]error{
		ErrNoJob:           ErrNotFound,
		ErrDuplicateBid:    ErrConflict,
		ErrAlreadyAssigned: ErrConflict,
		ErrJobFinalized:    ErrValidation,
		ErrInvalidPage:     ErrValidation,
	}
	for err, category := range cases {
		if !errors.Is(err, category) {
			t.Errorf("%v should wrap %v", err, category)
		}
	}

	if !errors.Is(Unavailable(errors.New("socket closed")), ErrStoreUnavailable) {
		t.Error("Unavailable() should wrap ErrStoreUnavailable")
	}
	if Unavailable(nil) != nil {
		t.Error("Unavailable(nil) should be nil")
	}
}
