package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Journal is an in-process ledger journal used when no PostgreSQL journal is
// configured. Like the SQL journal it keeps the first row per saga leg.
type Journal struct {
	mu      sync.Mutex
	entries []models.LedgerEntry
	seen    map[string]bool
}

func NewJournal() *Journal {
	return &Journal{seen: make(map[string]bool)}
}

func (j *Journal) Record(ctx context.Context, entry models.LedgerEntry) error {
	if err := alive(ctx); err != nil {
		return fmt.Errorf("memstore.Journal.Record: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	key := models.LegKey(entry.SagaKey, entry.Leg)
	if j.seen[key] {
		return nil
	}
	j.seen[key] = true

	entry.RecordedAt = time.Now().UTC()
	j.entries = append(j.entries, entry)
	return nil
}

func (j *Journal) Entries(ctx context.Context, userId primitive.ObjectID) ([]models.LedgerEntry, error) {
	if err := alive(ctx); err != nil {
		return nil, fmt.Errorf("memstore.Journal.Entries: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	result := make([]models.LedgerEntry, 0)
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].User == userId {
			result = append(result, j.entries[i])
		}
	}
	return result, nil
}
