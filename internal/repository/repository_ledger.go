package repository

import (
	"context"
	"fmt"

	"marketplace/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record journals an applied ledger leg. Recording the same leg of a saga
// twice keeps the first row.
func (repo *Repository) Record(ctx context.Context, entry models.LedgerEntry) error {
	query := `
	INSERT INTO ledger_entries (saga_key, leg, user_id, job_id, amount, currency, recorded_at)
	VALUES
		($1, $2, $3, $4, $5, $6, DEFAULT)
	ON CONFLICT (saga_key, leg) DO NOTHING
	`
	_, err := repo.db.ExecContext(ctx, query, entry.SagaKey, entry.Leg, entry.User.Hex(), entry.Job.Hex(), entry.Amount, entry.Currency)
	if err != nil {
		return fmt.Errorf("repository.Repository.Record: %w", models.Unavailable(err))
	}
	return nil
}

func (repo *Repository) Entries(ctx context.Context, userId primitive.ObjectID) ([]models.LedgerEntry, error) {
	query := `
	SELECT
		saga_key, leg, user_id, job_id, amount, currency, recorded_at
	FROM ledger_entries
	WHERE user_id = $1
	ORDER BY recorded_at DESC, id DESC
	`

	rows, err := repo.db.QueryContext(ctx, query, userId.Hex())
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.Entries: %w", models.Unavailable(err))
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		var entry models.LedgerEntry
		var user, job string
		err = rows.Scan(&entry.SagaKey, &entry.Leg, &user, &job, &entry.Amount, &entry.Currency, &entry.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.Entries: rows scan error: %w", err)
		}

		entry.User, err = primitive.ObjectIDFromHex(user)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.Entries: %w", err)
		}
		entry.Job, err = primitive.ObjectIDFromHex(job)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.Entries: %w", err)
		}
		entries = append(entries, entry)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.Entries: %w", models.Unavailable(rows.Err()))
	}

	return entries, nil
}
