package service

import (
	"context"
	"fmt"
	"slices"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

//// Jobs

func (s *Service) CreateJob(ctx context.Context, caller models.Identity, job models.Job) (models.JobView, error) {
	currency, err := currencyOrDefault(job.Currency)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.CreateJob: %w", err)
	}

	job = models.Job{
		Title:       job.Title,
		Description: job.Description,
		Budget:      job.Budget,
		Currency:    currency,
		Status:      models.JobPending,
		Owner:       caller.SubjectId,
		Bids:        []models.Bid{},
	}
	job, err = s.store.InsertJob(ctx, job)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.CreateJob: %w", err)
	}

	view, err := s.jobView(ctx, job.Id)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.CreateJob: %w", err)
	}

	s.log.WithField("job_id", job.Id.Hex()).Debug("job created")
	return view, nil
}

func (s *Service) GetJob(ctx context.Context, jobId primitive.ObjectID) (models.JobView, error) {
	view, err := s.jobView(ctx, jobId)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.GetJob: %w", err)
	}
	return view, nil
}

func (s *Service) ListJobs(ctx context.Context, filter query.Filter) (query.Page[models.JobView], error) {
	plan, err := s.plan(filter)
	if err != nil {
		return query.Page[models.JobView]{}, fmt.Errorf("service.Service.ListJobs: %w", err)
	}

	page, err := s.store.ListJobs(ctx, filter, plan)
	if err != nil {
		return query.Page[models.JobView]{}, fmt.Errorf("service.Service.ListJobs: %w", err)
	}
	return page, nil
}

// TransitionJob moves a job owned by the caller to COMPLETED or CANCELED.
// Completion runs the ledger saga; a saga failure is logged and left for
// SettleJob, the status change itself stands.
func (s *Service) TransitionJob(ctx context.Context, caller models.Identity, jobId primitive.ObjectID, status models.JobStatus) (models.JobView, error) {
	job, err := s.store.JobByID(ctx, jobId)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.TransitionJob: %w", err)
	}

	if job.Owner != caller.SubjectId {
		return models.JobView{}, fmt.Errorf("service.Service.TransitionJob: %w", models.ErrForbidden)
	}
	if err = checkJobTransition(job.Status, status); err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.TransitionJob: %w", err)
	}

	err = s.store.SetJobStatus(ctx, jobId, models.JobTransitionSources(status), status)
	if stale(err) {
		// status moved underneath us, report against the current one
		current, rerr := s.store.JobByID(ctx, jobId)
		if rerr != nil {
			return models.JobView{}, fmt.Errorf("service.Service.TransitionJob: %w", rerr)
		}
		err = checkJobTransition(current.Status, status)
		if err == nil {
			err = models.ErrStaleWrite
		}
	}
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.TransitionJob: %w", err)
	}

	log := s.log.WithField("job_id", jobId.Hex())
	log.Infof("job moved from %s to %s", job.Status, status)

	if status == models.JobCompleted {
		job.Status = status
		if _, err := s.settle(ctx, job); err != nil {
			log.Errorf("completion ledger saga failed, retry with settle: %s", err)
		}
	}

	view, err := s.jobView(ctx, jobId)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.TransitionJob: %w", err)
	}

	s.publishJob(view)
	return view, nil
}

func checkJobTransition(from, to models.JobStatus) error {
	sources := models.JobTransitionSources(to)
	switch {
	case sources == nil:
		return models.ErrInvalidTransition
	case from.Terminal():
		return models.ErrJobFinalized
	case !slices.Contains(sources, from):
		return models.ErrInvalidTransition
	}
	return nil
}

// SettleJob re-runs the completion ledger saga of a COMPLETED job. Legs
// already applied are skipped.
func (s *Service) SettleJob(ctx context.Context, caller models.Identity, jobId primitive.ObjectID) (models.Settlement, error) {
	job, err := s.store.JobByID(ctx, jobId)
	if err != nil {
		return models.Settlement{}, fmt.Errorf("service.Service.SettleJob: %w", err)
	}

	if job.Owner != caller.SubjectId && caller.Role != models.RoleAdmin {
		return models.Settlement{}, fmt.Errorf("service.Service.SettleJob: %w", models.ErrForbidden)
	}
	if job.Status != models.JobCompleted {
		return models.Settlement{}, fmt.Errorf("service.Service.SettleJob: %w", models.ErrJobNotCompleted)
	}

	settlement, err := s.settle(ctx, job)
	if err != nil {
		return settlement, fmt.Errorf("service.Service.SettleJob: %w", err)
	}
	return settlement, nil
}
