package service

import (
	"context"
	"fmt"
	"time"

	"marketplace/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

//// Ratings

// SubmitRating rates the other side of a job. An EMPLOYER rating targets the
// freelancer and a FREELANCER rating targets the owner. An empty role is
// inferred from the caller's relation to the job.
func (s *Service) SubmitRating(ctx context.Context, caller models.Identity, jobId primitive.ObjectID, role models.RaterRole, text string, score float64) (models.JobView, error) {
	job, err := s.store.JobByID(ctx, jobId)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitRating: %w", err)
	}

	role, err = raterRole(job, caller.SubjectId, role)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitRating: %w", err)
	}

	var subject primitive.ObjectID
	switch role {
	case models.RaterEmployer:
		if job.Freelancer == nil {
			return models.JobView{}, fmt.Errorf("service.Service.SubmitRating: job has no freelancer: %w", models.ErrNoUser)
		}
		subject = *job.Freelancer
	case models.RaterFreelancer:
		subject = job.Owner
	}

	if rated(job, role) {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitRating: %w", models.ErrAlreadyRated)
	}
	if _, err = s.store.UserByID(ctx, subject); err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitRating: %w", err)
	}

	rating := models.Rating{
		Author:    caller.SubjectId,
		Subject:   subject,
		Job:       jobId,
		Text:      text,
		Score:     score,
		CreatedAt: time.Now().UTC(),
	}

	// the subject is written first and keyed by (job, author), so a retry
	// after a failed snapshot finishes the job side with the stored rating
	user, applied, err := s.store.AddRating(ctx, subject, role, rating)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitRating: %w", err)
	}
	if !applied {
		if prior, ok := user.RatingFor(jobId, caller.SubjectId); ok {
			rating = prior
		}
	}

	err = s.store.SetJobRating(ctx, jobId, role, rating)
	if stale(err) {
		err = models.ErrAlreadyRated
	}
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitRating: %w", err)
	}

	s.log.WithField("job_id", jobId.Hex()).WithField("user_id", subject.Hex()).
		Debugf("rating %v added, %d ratings total", rating.Score, user.RatingCount)

	view, err := s.jobView(ctx, jobId)
	if err != nil {
		return models.JobView{}, fmt.Errorf("service.Service.SubmitRating: %w", err)
	}

	s.publishJob(view)
	return view, nil
}

func raterRole(job models.Job, caller primitive.ObjectID, role models.RaterRole) (models.RaterRole, error) {
	isOwner := job.Owner == caller
	isFreelancer := job.Freelancer != nil && *job.Freelancer == caller

	switch role {
	case "":
		if isOwner {
			return models.RaterEmployer, nil
		}
		if isFreelancer {
			return models.RaterFreelancer, nil
		}
		return role, models.ErrForbidden
	case models.RaterEmployer:
		if !isOwner {
			return role, models.ErrForbidden
		}
	case models.RaterFreelancer:
		if !isFreelancer {
			return role, models.ErrForbidden
		}
	default:
		return role, fmt.Errorf("%w: %s", models.ErrInvalidRole, role)
	}
	return role, nil
}

func rated(job models.Job, role models.RaterRole) bool {
	if role.RatesFreelancer() {
		return job.FreelancerRating != nil
	}
	return job.EmployerRating != nil
}
