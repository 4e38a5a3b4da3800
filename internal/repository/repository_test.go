package repository

import (
	"context"
	"os"
	"testing"

	"marketplace/internal/config"
	"marketplace/internal/models"

	gofakeit "github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewRepository(t *testing.T) {
	repo := OpenTestRepo(t)
	repo.Close()
}

func TestLedgerJournal(t *testing.T) {
	repo := OpenTestRepo(t)
	defer repo.Close()
	ctx := context.Background()

	freelancer, owner := primitive.NewObjectID(), primitive.NewObjectID()
	job := primitive.NewObjectID()
	saga := models.CompletionSagaKey(job)
	amount := float64(gofakeit.Number(1, 10000))

	earning := models.LedgerEntry{SagaKey: saga, Leg: models.LegEarning, User: freelancer, Job: job, Amount: amount, Currency: models.PKR}
	spent := models.LedgerEntry{SagaKey: saga, Leg: models.LegSpent, User: owner, Job: job, Amount: amount, Currency: models.PKR}

	for _, entry := range []models.LedgerEntry{earning, spent, earning} {
		err := repo.Record(ctx, entry)
		if err != nil {
			t.Fatal(err)
		}
	}

	entries, err := repo.Entries(ctx, freelancer)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("recording a leg twice should keep one row, got %d", len(entries))
	}
	if entries[0].Amount != amount || entries[0].Job != job || entries[0].Leg != models.LegEarning {
		t.Errorf("unexpected journal row: %+v", entries[0])
	}

	entries, err = repo.Entries(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatal(err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("unknown user should have an empty journal, got %v", entries)
	}
}

//// Service

func OpenTestRepo(t *testing.T) *Repository {
	conn := os.Getenv("POSTGRES_TEST_CONN")
	if len(conn) == 0 {
		t.Skip("POSTGRES_TEST_CONN is not set")
	}
	gofakeit.Seed(0)

	cfg, err := config.NewPostgresConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Conn = conn
	cfg.AutoMigrateUp = "false"
	cfg.AutoMigrateDown = "true"

	log, _ := test.NewNullLogger()
	repo, err := NewRepository(context.Background(), nil, cfg, log)
	if err != nil {
		t.Fatalf("Could not open db by URL '%s': %s", cfg.Conn, err)
	}

	err = repo.MigrateDown() // clear potential leftovers
	if err != nil {
		t.Fatal(err)
	}

	err = repo.MigrateUp()
	if err != nil {
		t.Fatal(err)
	}

	return repo
}
