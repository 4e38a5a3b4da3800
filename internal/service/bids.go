package service

import (
	"context"
	"fmt"

	"marketplace/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

//// Bids

func (s *Service) SubmitBid(ctx context.Context, caller models.Identity, jobId primitive.ObjectID, bid models.Bid) (models.JobView, error) {
	currency, err := currencyOrDefault(bid.Currency)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitBid: %w", err)
	}

	job, err := s.store.JobByID(ctx, jobId)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitBid: %w", err)
	}

	// owners do not bid on their own jobs
	if job.Owner == caller.SubjectId {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitBid: %w", models.ErrForbidden)
	}
	if err = checkBidInsert(job, caller.SubjectId); err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitBid: %w", err)
	}

	bid = models.Bid{
		Id:          primitive.NewObjectID(),
		Bidder:      caller.SubjectId,
		Description: bid.Description,
		Budget:      bid.Budget,
		Currency:    currency,
		Status:      models.BidPending,
	}

	err = s.store.AddBid(ctx, jobId, bid)
	if stale(err) {
		current, rerr := s.store.JobByID(ctx, jobId)
		if rerr != nil {
			return models.JobView{}, fmt.Errorf("service.Service.SubmitBid: %w", rerr)
		}
		err = checkBidInsert(current, caller.SubjectId)
		if err == nil {
			err = models.ErrStaleWrite
		}
	}
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitBid: %w", err)
	}

	view, err := s.jobView(ctx, jobId)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitBid: %w", err)
	}

	s.log.WithField("job_id", jobId.Hex()).WithField("bid_id", bid.Id.Hex()).Debug("bid submitted")
	s.publishJob(view)
	return view, nil
}

func checkBidInsert(job models.Job, bidder primitive.ObjectID) error {
	if _, exists := job.BidBy(bidder); exists {
		return models.ErrDuplicateBid
	}
	if job.Status != models.JobPending {
		return models.ErrJobNotOpen
	}
	return nil
}

// DecideBid applies the owner's decision to a bid. Accepting assigns the
// bidder as the job's freelancer and starts the job.
func (s *Service) DecideBid(ctx context.Context, caller models.Identity, jobId, bidId primitive.ObjectID, status models.BidStatus) (models.JobView, error) {
	job, err := s.store.JobByID(ctx, jobId)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.DecideBid: %w", err)
	}

	if job.Owner != caller.SubjectId {
		return models.JobView{}, fmt.Errorf("service.Service.DecideBid: %w", models.ErrForbidden)
	}

	bid, ok := job.FindBid(bidId)
	if !ok {
		return models.JobView{}, fmt.Errorf("service.Service.DecideBid: %w", models.ErrNoBid)
	}
	if err = checkBidDecision(job, bid, status); err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.DecideBid: %w", err)
	}

	if status == models.BidAccepted {
		err = s.store.AcceptBid(ctx, jobId, bidId, bid.Status, bid.Bidder)
	} else {
		err = s.store.SetBidStatus(ctx, jobId, bidId, bid.Status, status)
	}
	if stale(err) {
		err = s.classifyDecision(ctx, jobId, bidId, status)
	}
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.DecideBid: %w", err)
	}

	log := s.log.WithField("job_id", jobId.Hex()).WithField("bid_id", bidId.Hex())
	log.Infof("bid moved from %s to %s", bid.Status, status)

	if status == models.BidAccepted && s.rejectSiblingBids {
		if err = s.store.RejectOpenBids(ctx, jobId, bidId); err != nil {
			return models.JobView{}, fmt.Errorf("service.Service.DecideBid: %w", err)
		}
	}

	view, err := s.jobView(ctx, jobId)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.DecideBid: %w", err)
	}

	s.publishJob(view)
	return view, nil
}

func checkBidDecision(job models.Job, bid models.Bid, status models.BidStatus) error {
	if !models.ValidBidDecision(status) {
		return models.ErrInvalidTransition
	}
	if err := models.CheckBidTransition(bid.Status, status); err != nil {
		return err
	}
	if job.Status.Terminal() {
		return models.ErrJobFinalized
	}
	if status == models.BidAccepted && job.Freelancer != nil {
		return models.ErrAlreadyAssigned
	}
	return nil
}

// classifyDecision explains a lost conditional bid write from a fresh read.
func (s *Service) classifyDecision(ctx context.Context, jobId, bidId primitive.ObjectID, status models.BidStatus) error {
	job, err := s.store.JobByID(ctx, jobId)
	if err != nil {
		return err
	}
	bid, ok := job.FindBid(bidId)
	if !ok {
		return models.ErrNoBid
	}
	if err = checkBidDecision(job, bid, status); err != nil {
		return err
	}
	return models.ErrStaleWrite
}
