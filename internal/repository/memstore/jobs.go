package memstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) InsertJob(ctx context.Context, job models.Job) (models.Job, error) {
	if err := alive(ctx); err != nil {
		return job, fmt.Errorf("memstore.Store.InsertJob: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Id.IsZero() {
		job.Id = primitive.NewObjectID()
	}
	if job.Bids == nil {
		job.Bids = []models.Bid{}
	}
	job.CreatedAt = s.now()
	job.UpdatedAt = job.CreatedAt

	stored := cloneJob(&job)
	s.jobs[job.Id] = &stored
	return job, nil
}

func (s *Store) JobByID(ctx context.Context, id primitive.ObjectID) (models.Job, error) {
	if err := alive(ctx); err != nil {
		return models.Job{}, fmt.Errorf("memstore.Store.JobByID: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, fmt.Errorf("memstore.Store.JobByID: %w", models.ErrNoJob)
	}
	return cloneJob(job), nil
}

func (s *Store) ListJobs(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.JobView], error) {
	if err := alive(ctx); err != nil {
		return query.Page[models.JobView]{}, fmt.Errorf("memstore.Store.ListJobs: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Job, 0)
	for _, job := range s.jobs {
		if matchJob(job, filter) {
			matched = append(matched, cloneJob(job))
		}
	}
	query.NewestFirst(matched, func(j models.Job) (time.Time, primitive.ObjectID) {
		return j.CreatedAt, j.Id
	})
	window := query.Window(matched, plan)

	// owner profile per job, then bidder profile per expanded bid row
	views := make([]models.JobView, 0, len(window))
	for _, job := range window {
		view := models.NewJobView(job)
		view.OwnerProfile = s.profile(job.Owner)
		views = append(views, view)
	}
	rows := query.Expand(views, func(v models.JobView) []models.BidView {
		return v.Bids
	})
	rows = query.Resolve(rows, func(b models.BidView) models.BidView {
		b.BidderProfile = s.profile(b.Bidder)
		return b
	})
	views = query.Regroup(rows, func(v models.JobView, bids []models.BidView) models.JobView {
		v.Bids = bids
		return v
	})

	return query.NewPage(views, int64(len(matched)), plan), nil
}

func matchJob(job *models.Job, f query.Filter) bool {
	switch {
	case job.IsDisabled:
		return false
	case f.ID != nil && job.Id != *f.ID:
		return false
	case f.Owner != nil && job.Owner != *f.Owner:
		return false
	case f.Freelancer != nil && (job.Freelancer == nil || *job.Freelancer != *f.Freelancer):
		return false
	case !f.HasStatus(job.Status):
		return false
	}
	return query.TextMatch(f.SearchString, job.Title, job.Description)
}

func (s *Store) AddBid(ctx context.Context, jobId primitive.ObjectID, bid models.Bid) error {
	if err := alive(ctx); err != nil {
		return fmt.Errorf("memstore.Store.AddBid: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobId]
	if !ok || job.Status != models.JobPending {
		return fmt.Errorf("memstore.Store.AddBid: %w", models.ErrStaleWrite)
	}
	if _, exists := job.BidBy(bid.Bidder); exists {
		return fmt.Errorf("memstore.Store.AddBid: %w", models.ErrStaleWrite)
	}

	job.Bids = append(job.Bids, bid)
	job.UpdatedAt = s.now()
	return nil
}

// bidIndex expects s.mu to be held.
func (s *Store) bidIndex(jobId, bidId primitive.ObjectID, status models.BidStatus) (*models.Job, int, bool) {
	job, ok := s.jobs[jobId]
	if !ok {
		return nil, 0, false
	}
	i := slices.IndexFunc(job.Bids, func(b models.Bid) bool {
		return b.Id == bidId && b.Status == status
	})
	return job, i, i >= 0
}

func (s *Store) SetBidStatus(ctx context.Context, jobId, bidId primitive.ObjectID, from, to models.BidStatus) error {
	if err := alive(ctx); err != nil {
		return fmt.Errorf("memstore.Store.SetBidStatus: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, i, ok := s.bidIndex(jobId, bidId, from)
	if !ok {
		return fmt.Errorf("memstore.Store.SetBidStatus: %w", models.ErrStaleWrite)
	}

	job.Bids[i].Status = to
	job.UpdatedAt = s.now()
	return nil
}

func (s *Store) AcceptBid(ctx context.Context, jobId, bidId primitive.ObjectID, from models.BidStatus, bidder primitive.ObjectID) error {
	if err := alive(ctx); err != nil {
		return fmt.Errorf("memstore.Store.AcceptBid: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, i, ok := s.bidIndex(jobId, bidId, from)
	if !ok || job.Status != models.JobPending || job.Freelancer != nil {
		return fmt.Errorf("memstore.Store.AcceptBid: %w", models.ErrStaleWrite)
	}

	job.Bids[i].Status = models.BidAccepted
	job.Status = models.JobInProgress
	job.Freelancer = &bidder
	job.UpdatedAt = s.now()
	return nil
}

func (s *Store) RejectOpenBids(ctx context.Context, jobId, except primitive.ObjectID) error {
	if err := alive(ctx); err != nil {
		return fmt.Errorf("memstore.Store.RejectOpenBids: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobId]
	if !ok {
		return fmt.Errorf("memstore.Store.RejectOpenBids: %w", models.ErrNoJob)
	}

	for i := range job.Bids {
		bid := &job.Bids[i]
		if bid.Id != except && !bid.Status.Terminal() {
			bid.Status = models.BidRejected
		}
	}
	job.UpdatedAt = s.now()
	return nil
}

func (s *Store) SetJobStatus(ctx context.Context, jobId primitive.ObjectID, from []models.JobStatus, to models.JobStatus) error {
	if err := alive(ctx); err != nil {
		return fmt.Errorf("memstore.Store.SetJobStatus: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobId]
	if !ok || !slices.Contains(from, job.Status) {
		return fmt.Errorf("memstore.Store.SetJobStatus: %w", models.ErrStaleWrite)
	}

	job.Status = to
	job.UpdatedAt = s.now()
	return nil
}

func (s *Store) SetJobRating(ctx context.Context, jobId primitive.ObjectID, role models.RaterRole, rating models.Rating) error {
	if err := alive(ctx); err != nil {
		return fmt.Errorf("memstore.Store.SetJobRating: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobId]
	if !ok {
		return fmt.Errorf("memstore.Store.SetJobRating: %w", models.ErrStaleWrite)
	}

	slot := &job.EmployerRating
	if role.RatesFreelancer() {
		slot = &job.FreelancerRating
	}
	if *slot != nil {
		return fmt.Errorf("memstore.Store.SetJobRating: %w", models.ErrStaleWrite)
	}

	*slot = &rating
	job.UpdatedAt = s.now()
	return nil
}
