package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LedgerLeg string

const (
	LegEarning LedgerLeg = "earning"
	LegSpent   LedgerLeg = "spent"
)

// CompletionSagaKey identifies the ledger saga run when a job completes.
func CompletionSagaKey(jobId primitive.ObjectID) string {
	return jobId.Hex() + ":completed"
}

// LegKey is the idempotency key of one leg of a saga.
func LegKey(saga string, leg LedgerLeg) string {
	return saga + ":" + string(leg)
}

type LedgerEntry struct {
	SagaKey    string             `json:"sagaKey"`
	Leg        LedgerLeg          `json:"leg"`
	User       primitive.ObjectID `json:"userId"`
	Job        primitive.ObjectID `json:"jobId"`
	Amount     float64            `json:"amount"`
	Currency   Currency           `json:"currency"`
	RecordedAt time.Time          `json:"recordedAt"`
}

// Settlement reports which ledger legs were applied by one saga run.
type Settlement struct {
	Job     primitive.ObjectID `json:"jobId"`
	SagaKey string             `json:"sagaKey"`
	Applied []LedgerLeg        `json:"applied"`
	Skipped []LedgerLeg        `json:"skipped"`
}
