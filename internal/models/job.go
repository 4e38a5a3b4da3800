package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Currency string

const (
	PKR Currency = "PKR"
	USD Currency = "USD"
)

func ValidCurrency(c Currency) bool {
	switch c {
	case PKR, USD:
		return true
	default:
		return false
	}
}

type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobCanceled   JobStatus = "CANCELED"
)

func ValidJobStatus(s JobStatus) bool {
	switch s {
	case JobPending, JobInProgress, JobCompleted, JobCanceled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition may leave s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCanceled
}

// JobTransitionSources returns the statuses a job may be in for an explicit
// transition to target. Only COMPLETED and CANCELED are explicit targets;
// IN_PROGRESS is reached through bid acceptance alone.
func JobTransitionSources(target JobStatus) []JobStatus {
	switch target {
	case JobCompleted:
		return []JobStatus{JobInProgress}
	case JobCanceled:
		return []JobStatus{JobPending, JobInProgress}
	default:
		return nil
	}
}

// Job is the aggregate root: bids and rating snapshots are embedded and
// mutated together with it.
type Job struct {
	Id               primitive.ObjectID  `json:"id" bson:"_id"`
	Title            string              `json:"title" bson:"title"`
	Description      string              `json:"description" bson:"description"`
	Budget           float64             `json:"budget" bson:"budget"`
	Currency         Currency            `json:"currency" bson:"currency"`
	Status           JobStatus           `json:"status" bson:"status"`
	Owner            primitive.ObjectID  `json:"user" bson:"user"`
	Freelancer       *primitive.ObjectID `json:"freelancer" bson:"freelancer"`
	Bids             []Bid               `json:"bids" bson:"bids"`
	EmployerRating   *Rating             `json:"employerRating,omitempty" bson:"employerRating,omitempty"`
	FreelancerRating *Rating             `json:"freelancerRating,omitempty" bson:"freelancerRating,omitempty"`
	IsDisabled       bool                `json:"isDisabled" bson:"isDisabled"`
	CreatedAt        time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// FindBid scans the embedded bid list for id.
func (j *Job) FindBid(id primitive.ObjectID) (Bid, bool) {
	for _, bid := range j.Bids {
		if bid.Id == id {
			return bid, true
		}
	}
	return Bid{}, false
}

// BidBy returns the bid submitted by bidder, if any.
func (j *Job) BidBy(bidder primitive.ObjectID) (Bid, bool) {
	for _, bid := range j.Bids {
		if bid.Bidder == bidder {
			return bid, true
		}
	}
	return Bid{}, false
}

// AcceptedBids counts bids in ACCEPTED status.
func (j *Job) AcceptedBids() int {
	n := 0
	for _, bid := range j.Bids {
		if bid.Status == BidAccepted {
			n++
		}
	}
	return n
}

// JobView is a job as returned to clients: owner and bidders are resolved to
// public profiles.
type JobView struct {
	Id               primitive.ObjectID  `json:"id" bson:"_id"`
	Title            string              `json:"title" bson:"title"`
	Description      string              `json:"description" bson:"description"`
	Budget           float64             `json:"budget" bson:"budget"`
	Currency         Currency            `json:"currency" bson:"currency"`
	Status           JobStatus           `json:"status" bson:"status"`
	Owner            primitive.ObjectID  `json:"userId" bson:"user"`
	OwnerProfile     *PublicProfile      `json:"user" bson:"ownerProfile,omitempty"`
	Freelancer       *primitive.ObjectID `json:"freelancer" bson:"freelancer"`
	Bids             []BidView           `json:"bids" bson:"bids"`
	EmployerRating   *Rating             `json:"employerRating,omitempty" bson:"employerRating,omitempty"`
	FreelancerRating *Rating             `json:"freelancerRating,omitempty" bson:"freelancerRating,omitempty"`
	CreatedAt        time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// NewJobView copies the stored job fields into a view with empty joins.
func NewJobView(j Job) JobView {
	bids := make([]BidView, 0, len(j.Bids))
	for _, bid := range j.Bids {
		bids = append(bids, BidView{Bid: bid})
	}
	return JobView{
		Id:               j.Id,
		Title:            j.Title,
		Description:      j.Description,
		Budget:           j.Budget,
		Currency:         j.Currency,
		Status:           j.Status,
		Owner:            j.Owner,
		Freelancer:       j.Freelancer,
		Bids:             bids,
		EmployerRating:   j.EmployerRating,
		FreelancerRating: j.FreelancerRating,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
}
