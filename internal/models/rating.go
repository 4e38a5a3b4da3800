package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaterRole is the side of a job a rating is submitted from.
type RaterRole string

const (
	RaterEmployer   RaterRole = "EMPLOYER"
	RaterFreelancer RaterRole = "FREELANCER"
)

func ValidRaterRole(r RaterRole) bool {
	switch r {
	case RaterEmployer, RaterFreelancer:
		return true
	default:
		return false
	}
}

type Rating struct {
	Author    primitive.ObjectID `json:"author" bson:"author"`
	Subject   primitive.ObjectID `json:"user" bson:"user"`
	Job       primitive.ObjectID `json:"job" bson:"job"`
	Text      string             `json:"text" bson:"text"`
	Score     float64            `json:"rating" bson:"rating"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// AverageScore recomputes the mean over every score. An empty list or a
// non-finite result yields 0.
func AverageScore(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r.Score
	}
	avg := sum / float64(len(ratings))
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return 0
	}
	return avg
}

// RatesFreelancer reports whether a rating from r targets the job's freelancer.
func (r RaterRole) RatesFreelancer() bool {
	return r == RaterEmployer
}
