package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type BidStatus string

const (
	BidPending      BidStatus = "PENDING"
	BidInterviewing BidStatus = "INTERVIEWING"
	BidAccepted     BidStatus = "ACCEPTED"
	BidRejected     BidStatus = "REJECTED"
)

func ValidBidStatus(s BidStatus) bool {
	switch s {
	case BidPending, BidInterviewing, BidAccepted, BidRejected:
		return true
	default:
		return false
	}
}

// ValidBidDecision reports whether s may be requested by a job owner.
func ValidBidDecision(s BidStatus) bool {
	switch s {
	case BidInterviewing, BidAccepted, BidRejected:
		return true
	default:
		return false
	}
}

func (s BidStatus) Terminal() bool {
	return s == BidAccepted || s == BidRejected
}

// CheckBidTransition validates moving a bid from one status to another.
func CheckBidTransition(from, to BidStatus) error {
	if from.Terminal() {
		return ErrBidFinalized
	}
	switch {
	case from == BidPending && ValidBidDecision(to):
		return nil
	case from == BidInterviewing && to.Terminal():
		return nil
	}
	return ErrInvalidTransition
}

type Bid struct {
	Id          primitive.ObjectID `json:"id" bson:"_id"`
	Bidder      primitive.ObjectID `json:"userId" bson:"user"`
	Description string             `json:"description" bson:"description"`
	Budget      float64            `json:"budget" bson:"budget"`
	Currency    Currency           `json:"currency" bson:"currency"`
	Status      BidStatus          `json:"status" bson:"status"`
}

// BidView is a bid enriched with its bidder's public profile.
type BidView struct {
	Bid           `bson:",inline"`
	BidderProfile *PublicProfile `json:"user" bson:"bidderProfile,omitempty"`
}
