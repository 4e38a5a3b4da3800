package service

import (
	"context"
	"fmt"

	"marketplace/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ledgerLeg struct {
	leg  models.LedgerLeg
	user primitive.ObjectID
}

// settle applies both legs of the completion saga of job. Each leg is an
// independent conditional write keyed by saga and leg, so running settle
// again only applies what is missing. Skipped legs are journaled too: the
// journal ignores rows it already holds.
func (s *Service) settle(ctx context.Context, job models.Job) (models.Settlement, error) {
	saga := models.CompletionSagaKey(job.Id)
	result := models.Settlement{
		Job:     job.Id,
		SagaKey: saga,
		Applied: []models.LedgerLeg{},
		Skipped: []models.LedgerLeg{},
	}

	legs := []ledgerLeg{{leg: models.LegSpent, user: job.Owner}}
	if job.Freelancer != nil {
		legs = append([]ledgerLeg{{leg: models.LegEarning, user: *job.Freelancer}}, legs...)
	}

	for _, l := range legs {
		applied, err := s.store.ApplyLedgerLeg(ctx, l.user, l.leg, models.LegKey(saga, l.leg), job.Budget)
		if err != nil {
			return result, fmt.Errorf("service.Service.settle: %s leg: %w", l.leg, err)
		}
		if applied {
			result.Applied = append(result.Applied, l.leg)
		} else {
			result.Skipped = append(result.Skipped, l.leg)
		}

		if s.journal == nil {
			continue
		}
		err = s.journal.Record(ctx, models.LedgerEntry{
			SagaKey:  saga,
			Leg:      l.leg,
			User:     l.user,
			Job:      job.Id,
			Amount:   job.Budget,
			Currency: job.Currency,
		})
		if err != nil {
			return result, fmt.Errorf("service.Service.settle: journal %s leg: %w", l.leg, err)
		}
	}

	s.log.WithField("job_id", job.Id.Hex()).Infof("ledger saga %s applied %v skipped %v", saga, result.Applied, result.Skipped)
	return result, nil
}

func (s *Service) LedgerEntries(ctx context.Context, userId primitive.ObjectID) ([]models.LedgerEntry, error) {
	if _, err := s.store.UserByID(ctx, userId); err != nil {
		return nil, fmt.Errorf("service.Service.LedgerEntries: %w", err)
	}
	if s.journal == nil {
		return []models.LedgerEntry{}, nil
	}

	entries, err := s.journal.Entries(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.LedgerEntries: %w", err)
	}
	return entries, nil
}
