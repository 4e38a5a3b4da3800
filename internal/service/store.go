package service

import (
	"context"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store adapters report a missing document by id with the entity's not found
// error, a conditional write whose guard no longer holds with
// models.ErrStaleWrite, and driver failures with models.ErrStoreUnavailable.

type JobStore interface {
	InsertJob(ctx context.Context, job models.Job) (models.Job, error)
	JobByID(ctx context.Context, id primitive.ObjectID) (models.Job, error)
	ListJobs(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.JobView], error)

	// AddBid appends bid unless the job left PENDING or the bidder already has a bid.
	AddBid(ctx context.Context, jobId primitive.ObjectID, bid models.Bid) error
	// SetBidStatus moves a bid from one status to another.
	SetBidStatus(ctx context.Context, jobId, bidId primitive.ObjectID, from, to models.BidStatus) error
	// AcceptBid accepts a bid and assigns its bidder in one write, guarded by
	// the job being PENDING without a freelancer.
	AcceptBid(ctx context.Context, jobId, bidId primitive.ObjectID, from models.BidStatus, bidder primitive.ObjectID) error
	// RejectOpenBids rejects every PENDING or INTERVIEWING bid except one.
	RejectOpenBids(ctx context.Context, jobId, except primitive.ObjectID) error
	SetJobStatus(ctx context.Context, jobId primitive.ObjectID, from []models.JobStatus, to models.JobStatus) error
	// SetJobRating snapshots a rating onto the job unless that side already rated.
	SetJobRating(ctx context.Context, jobId primitive.ObjectID, role models.RaterRole, rating models.Rating) error
}

type UserStore interface {
	InsertUser(ctx context.Context, user models.User) (models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	ListUsers(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.PublicProfile], error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (models.User, error)
	// SetProfileImage stores an already uploaded image url; "" clears it.
	SetProfileImage(ctx context.Context, id primitive.ObjectID, url string) (models.User, error)

	// AddRating appends rating to the subject, recomputes the average of the
	// profile side role rates and increments ratingCount, unless the subject
	// already holds a rating by the same author for the same job.
	AddRating(ctx context.Context, subject primitive.ObjectID, role models.RaterRole, rating models.Rating) (user models.User, applied bool, err error)
	// ApplyLedgerLeg applies one ledger leg unless key was already applied.
	ApplyLedgerLeg(ctx context.Context, userId primitive.ObjectID, leg models.LedgerLeg, key string, amount float64) (applied bool, err error)
}

type AssetStore interface {
	InsertAsset(ctx context.Context, asset models.Asset) (models.Asset, error)
	ListAssets(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.Asset], error)
}

type ChatStore interface {
	InsertMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	MessageByID(ctx context.Context, id primitive.ObjectID) (models.ChatMessage, error)
	// Messages returns the conversation between a and b, oldest first.
	Messages(ctx context.Context, a, b primitive.ObjectID) ([]models.ChatMessage, error)
	ListConversations(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.Conversation], error)
}

type Store interface {
	JobStore
	UserStore
	AssetStore
	ChatStore
}

// Journal is the append-only audit trail of applied ledger legs.
type Journal interface {
	Record(ctx context.Context, entry models.LedgerEntry) error
	Entries(ctx context.Context, userId primitive.ObjectID) ([]models.LedgerEntry, error)
}
