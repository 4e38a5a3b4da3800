package docstore

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertJob(ctx context.Context, job models.Job) (models.Job, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if job.Id.IsZero() {
		job.Id = primitive.NewObjectID()
	}
	if job.Bids == nil {
		job.Bids = []models.Bid{}
	}
	job.CreatedAt = now()
	job.UpdatedAt = job.CreatedAt

	_, err := s.jobs.InsertOne(ctx, job)
	if err != nil {
		return job, unavailable("InsertJob", err)
	}

	s.log.WithField("job_id", job.Id.Hex()).Debug("job created")
	return job, nil
}

func (s *Store) JobByID(ctx context.Context, id primitive.ObjectID) (models.Job, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var job models.Job
	err := s.jobs.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return job, fmt.Errorf("docstore.Store.JobByID: %w", models.ErrNoJob)
	} else if err != nil {
		return job, unavailable("JobByID", err)
	}
	return job, nil
}

func (s *Store) ListJobs(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.JobView], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.jobs.Aggregate(ctx, jobsPipeline(filter, plan))
	if err != nil {
		return query.Page[models.JobView]{}, unavailable("ListJobs", err)
	}
	defer cursor.Close(ctx)

	var result []facetResult[models.JobView]
	if err := cursor.All(ctx, &result); err != nil {
		return query.Page[models.JobView]{}, unavailable("ListJobs", err)
	}
	if len(result) == 0 {
		return query.NewPage[models.JobView](nil, 0, plan), nil
	}
	return result[0].page(plan), nil
}

// guarded runs a conditional update and reports a missed guard as a stale write.
func (s *Store) guarded(ctx context.Context, method string, filter, update any, opts ...*options.UpdateOptions) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.jobs.UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return unavailable(method, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("docstore.Store.%s: %w", method, models.ErrStaleWrite)
	}
	return nil
}

func (s *Store) AddBid(ctx context.Context, jobId primitive.ObjectID, bid models.Bid) error {
	filter := bson.M{
		"_id":       jobId,
		"status":    models.JobPending,
		"bids.user": bson.M{"$ne": bid.Bidder},
	}
	update := bson.M{
		"$push": bson.M{"bids": bid},
		"$set":  bson.M{"updatedAt": now()},
	}
	return s.guarded(ctx, "AddBid", filter, update)
}

func (s *Store) SetBidStatus(ctx context.Context, jobId, bidId primitive.ObjectID, from, to models.BidStatus) error {
	filter := bson.M{
		"_id":  jobId,
		"bids": bson.M{"$elemMatch": bson.M{"_id": bidId, "status": from}},
	}
	update := bson.M{"$set": bson.M{
		"bids.$.status": to,
		"updatedAt":     now(),
	}}
	return s.guarded(ctx, "SetBidStatus", filter, update)
}

func (s *Store) AcceptBid(ctx context.Context, jobId, bidId primitive.ObjectID, from models.BidStatus, bidder primitive.ObjectID) error {
	filter := bson.M{
		"_id":        jobId,
		"status":     models.JobPending,
		"freelancer": nil,
		"bids":       bson.M{"$elemMatch": bson.M{"_id": bidId, "status": from}},
	}
	update := bson.M{"$set": bson.M{
		"bids.$.status": models.BidAccepted,
		"status":        models.JobInProgress,
		"freelancer":    bidder,
		"updatedAt":     now(),
	}}
	return s.guarded(ctx, "AcceptBid", filter, update)
}

func (s *Store) RejectOpenBids(ctx context.Context, jobId, except primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"bids.$[open].status": models.BidRejected,
		"updatedAt":           now(),
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
		bson.M{
			"open._id":    bson.M{"$ne": except},
			"open.status": bson.M{"$in": bson.A{models.BidPending, models.BidInterviewing}},
		},
	}})

	err := s.guarded(ctx, "RejectOpenBids", bson.M{"_id": jobId}, update, opts)
	if errors.Is(err, models.ErrStaleWrite) {
		return fmt.Errorf("docstore.Store.RejectOpenBids: %w", models.ErrNoJob)
	}
	return err
}

func (s *Store) SetJobStatus(ctx context.Context, jobId primitive.ObjectID, from []models.JobStatus, to models.JobStatus) error {
	filter := bson.M{
		"_id":    jobId,
		"status": bson.M{"$in": from},
	}
	update := bson.M{"$set": bson.M{
		"status":    to,
		"updatedAt": now(),
	}}
	return s.guarded(ctx, "SetJobStatus", filter, update)
}

func (s *Store) SetJobRating(ctx context.Context, jobId primitive.ObjectID, role models.RaterRole, rating models.Rating) error {
	field := "employerRating"
	if role.RatesFreelancer() {
		field = "freelancerRating"
	}

	filter := bson.M{
		"_id": jobId,
		field: nil,
	}
	update := bson.M{"$set": bson.M{
		field:       rating,
		"updatedAt": now(),
	}}
	return s.guarded(ctx, "SetJobRating", filter, update)
}
