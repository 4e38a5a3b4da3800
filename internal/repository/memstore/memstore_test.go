package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"marketplace/internal/models"
	"marketplace/internal/query"

	gofakeit "github.com/brianvoe/gofakeit/v7"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func AddTestUser(t *testing.T, s *Store) models.User {
	user, err := s.InsertUser(context.Background(), models.User{
		Name:  models.Name{FirstName: gofakeit.FirstName(), LastName: gofakeit.LastName()},
		Email: gofakeit.Email(),
		Role:  models.RoleUser,
	})
	if err != nil {
		t.Fatal(err)
	}
	return user
}

func AddTestJob(t *testing.T, s *Store, owner primitive.ObjectID, title string) models.Job {
	job, err := s.InsertJob(context.Background(), models.Job{
		Title:       title,
		Description: gofakeit.Blurb(),
		Budget:      gofakeit.Price(10, 1000),
		Currency:    models.PKR,
		Status:      models.JobPending,
		Owner:       owner,
	})
	if err != nil {
		t.Fatal(err)
	}
	return job
}

func TestConcurrentDuplicateBids(t *testing.T) {
	gofakeit.Seed(0)
	s := New()
	ctx := context.Background()

	owner, bidder := AddTestUser(t, s), AddTestUser(t, s)
	job := AddTestJob(t, s, owner.Id, gofakeit.BuzzWord())

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.AddBid(ctx, job.Id, models.Bid{Id: primitive.NewObjectID(), Bidder: bidder.Id, Status: models.BidPending})
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, models.ErrStaleWrite) {
			t.Fatal(err)
		}
	}
	if succeeded != 1 {
		t.Errorf("exactly one concurrent bid should land, got %d", succeeded)
	}

	stored, _ := s.JobByID(ctx, job.Id)
	if len(stored.Bids) != 1 {
		t.Errorf("expected one bid, got %d", len(stored.Bids))
	}
}

func TestAcceptBidGuards(t *testing.T) {
	gofakeit.Seed(0)
	s := New()
	ctx := context.Background()

	owner, a, b := AddTestUser(t, s), AddTestUser(t, s), AddTestUser(t, s)
	job := AddTestJob(t, s, owner.Id, gofakeit.BuzzWord())
	bidA := models.Bid{Id: primitive.NewObjectID(), Bidder: a.Id, Status: models.BidPending}
	bidB := models.Bid{Id: primitive.NewObjectID(), Bidder: b.Id, Status: models.BidPending}
	for _, bid := range []models.Bid{bidA, bidB} {
		if err := s.AddBid(ctx, job.Id, bid); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.SetBidStatus(ctx, job.Id, bidB.Id, models.BidPending, models.BidInterviewing); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBidStatus(ctx, job.Id, bidB.Id, models.BidPending, models.BidRejected); !errors.Is(err, models.ErrStaleWrite) {
		t.Errorf("status guard should reject a stale source status, got %v", err)
	}

	if err := s.AcceptBid(ctx, job.Id, bidA.Id, models.BidPending, a.Id); err != nil {
		t.Fatal(err)
	}
	if err := s.AcceptBid(ctx, job.Id, bidB.Id, models.BidInterviewing, b.Id); !errors.Is(err, models.ErrStaleWrite) {
		t.Errorf("second acceptance should miss the guard, got %v", err)
	}

	stored, _ := s.JobByID(ctx, job.Id)
	if stored.Freelancer == nil || *stored.Freelancer != a.Id || stored.AcceptedBids() != 1 {
		t.Errorf("exactly one accepted bid should assign its bidder: %+v", stored)
	}
	if stored.Bids[1].Status != models.BidInterviewing {
		t.Errorf("sibling bid should be untouched, got %s", stored.Bids[1].Status)
	}

	if err := s.RejectOpenBids(ctx, job.Id, bidA.Id); err != nil {
		t.Fatal(err)
	}
	stored, _ = s.JobByID(ctx, job.Id)
	if stored.Bids[0].Status != models.BidAccepted || stored.Bids[1].Status != models.BidRejected {
		t.Errorf("open siblings should be rejected: %+v", stored.Bids)
	}
}

func TestListJobs(t *testing.T) {
	gofakeit.Seed(0)
	s := New()
	ctx := context.Background()

	owner, bidder := AddTestUser(t, s), AddTestUser(t, s)
	first := AddTestJob(t, s, owner.Id, "Golang backend")
	AddTestJob(t, s, owner.Id, "Logo design")
	last := AddTestJob(t, s, owner.Id, "Golang CLI")
	AddTestJob(t, s, bidder.Id, "Golang service")

	if err := s.AddBid(ctx, last.Id, models.Bid{Id: primitive.NewObjectID(), Bidder: bidder.Id, Status: models.BidPending}); err != nil {
		t.Fatal(err)
	}

	page2, limit := 2, 2
	plan, _ := query.NewPlan(&page2, &limit, query.DefaultLimit)
	page, err := s.ListJobs(ctx, query.Filter{Owner: &owner.Id}, plan)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Entries) != 1 || page.MetaData.TotalDocuments != 3 || page.MetaData.Page != 2 {
		t.Fatalf("page 2 by 2 of 3 jobs: %d entries, %+v", len(page.Entries), page.MetaData)
	}
	if page.Entries[0].Id != first.Id {
		t.Error("oldest job should be on the last page")
	}
	if page.Entries[0].Bids == nil || len(page.Entries[0].Bids) != 0 {
		t.Errorf("job without bids should have an empty bid list, got %#v", page.Entries[0].Bids)
	}

	page, err = s.ListJobs(ctx, query.Filter{SearchString: "golang", Owner: &owner.Id}, query.Plan{})
	if err != nil {
		t.Fatal(err)
	}
	if page.MetaData.TotalDocuments != 2 || page.Entries[0].Id != last.Id {
		t.Fatalf("text search should AND with the owner filter: %+v", page.MetaData)
	}
	newest := page.Entries[0]
	if newest.OwnerProfile == nil || newest.OwnerProfile.Email != owner.Email {
		t.Errorf("owner profile should be joined: %+v", newest.OwnerProfile)
	}
	if len(newest.Bids) != 1 || newest.Bids[0].BidderProfile == nil || newest.Bids[0].BidderProfile.Id != bidder.Id {
		t.Errorf("bidder profile should be joined: %+v", newest.Bids)
	}

	page, _ = s.ListJobs(ctx, query.Filter{ExcludeStatuses: []models.JobStatus{models.JobPending}}, query.Plan{})
	if page.MetaData.TotalDocuments != 0 || page.Entries == nil {
		t.Errorf("negated status filter should exclude every pending job: %+v", page)
	}
}

func TestAddRating(t *testing.T) {
	gofakeit.Seed(0)
	s := New()
	ctx := context.Background()
	user := AddTestUser(t, s)

	updated, _, err := s.AddRating(ctx, user.Id, models.RaterFreelancer, models.Rating{Job: primitive.NewObjectID(), Score: 5})
	if err != nil {
		t.Fatal(err)
	}
	if updated.EmployerProfile.Rating != 5 || updated.RatingCount != 1 {
		t.Errorf("first rating should set the average: %+v", updated)
	}

	for _, score := range []float64{4, 3} {
		updated, _, err = s.AddRating(ctx, user.Id, models.RaterFreelancer, models.Rating{Job: primitive.NewObjectID(), Score: score})
		if err != nil {
			t.Fatal(err)
		}
	}
	if updated.EmployerProfile.Rating != 4 || updated.RatingCount != 3 {
		t.Errorf("average over [5 4 3] should be 4, got %v", updated.EmployerProfile.Rating)
	}

	if _, _, err := s.AddRating(ctx, primitive.NewObjectID(), models.RaterEmployer, models.Rating{}); !errors.Is(err, models.ErrNoUser) {
		t.Errorf("missing subject should be reported, got %v", err)
	}

	repeat := models.Rating{Job: primitive.NewObjectID(), Author: primitive.NewObjectID(), Score: 1}
	for i, want := range []bool{true, false} {
		updated, applied, err := s.AddRating(ctx, user.Id, models.RaterFreelancer, repeat)
		if err != nil {
			t.Fatal(err)
		}
		if applied != want {
			t.Errorf("attempt %d: applied = %v, want %v", i+1, applied, want)
		}
		if updated.RatingCount != 4 {
			t.Errorf("attempt %d: same author and job should count once, got %d", i+1, updated.RatingCount)
		}
	}
}

func TestListConversations(t *testing.T) {
	gofakeit.Seed(0)
	s := New()
	ctx := context.Background()

	me, a, b := AddTestUser(t, s), AddTestUser(t, s), AddTestUser(t, s)
	for _, m := range []models.ChatMessage{
		{Sender: me.Id, Receiver: a.Id, Text: "hi a"},
		{Sender: a.Id, Receiver: me.Id, Text: "hi back"},
		{Sender: me.Id, Receiver: b.Id, Text: "hi b"},
		{Sender: a.Id, Receiver: b.Id, Text: "not mine"},
	} {
		if _, err := s.InsertMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	one := 1
	plan, _ := query.NewPlan(&one, &one, query.DefaultLimit)
	page, err := s.ListConversations(ctx, query.Filter{Participant: &me.Id}, plan)
	if err != nil {
		t.Fatal(err)
	}
	if page.MetaData.TotalDocuments != 2 || len(page.Entries) != 1 {
		t.Fatalf("expected 2 conversations paged by 1, got %+v", page.MetaData)
	}
	if page.Entries[0].User != b.Id || page.Entries[0].UserProfile == nil {
		t.Errorf("newest conversation should come first with a profile: %+v", page.Entries[0])
	}

	msgs, err := s.Messages(ctx, me.Id, a.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Text != "hi a" || msgs[1].Text != "hi back" {
		t.Errorf("conversation should be oldest first: %+v", msgs)
	}
}

func TestJournal(t *testing.T) {
	j := NewJournal()
	ctx := context.Background()
	user, job := primitive.NewObjectID(), primitive.NewObjectID()

	entry := models.LedgerEntry{SagaKey: models.CompletionSagaKey(job), Leg: models.LegEarning, User: user, Job: job, Amount: 10}
	for i := 0; i < 2; i++ {
		if err := j.Record(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := j.Entries(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("a saga leg should be journaled once, got %d rows", len(entries))
	}
}

func TestCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.JobByID(ctx, primitive.NewObjectID()); !errors.Is(err, models.ErrStoreUnavailable) {
		t.Errorf("canceled context should surface as unavailability, got %v", err)
	}
}
