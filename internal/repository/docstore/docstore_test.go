package docstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"marketplace/internal/models"
	"marketplace/internal/query"

	gofakeit "github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func OpenTestStore(t *testing.T) *Store {
	uri := os.Getenv("MONGO_TEST_URI")
	if len(uri) == 0 {
		t.Skip("MONGO_TEST_URI is not set")
	}
	gofakeit.Seed(0)

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatal(err)
	}

	db := client.Database("marketplace_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		db.Drop(context.Background())
		client.Disconnect(context.Background())
	})

	log, _ := test.NewNullLogger()
	return New(ctx, db, 0, log)
}

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

func AddTestJob(t *testing.T, s *Store, owner primitive.ObjectID) models.Job {
	job, err := s.InsertJob(context.Background(), models.Job{
		Title:       gofakeit.BuzzWord(),
		Description: gofakeit.Blurb(),
		Budget:      100,
		Currency:    models.PKR,
		Status:      models.JobPending,
		Owner:       owner,
	})
	if err != nil {
		t.Fatal(err)
	}
	return job
}

func TestJobLifecycle(t *testing.T) {
	s := OpenTestStore(t)
	ctx := context.Background()

	owner, bidder, other := AddTestUser(t, s), AddTestUser(t, s), AddTestUser(t, s)
	job := AddTestJob(t, s, owner.Id)

	bid := models.Bid{Id: primitive.NewObjectID(), Bidder: bidder.Id, Budget: 90, Currency: models.PKR, Status: models.BidPending}
	if err := s.AddBid(ctx, job.Id, bid); err != nil {
		t.Fatal(err)
	}
	dup := bid
	dup.Id = primitive.NewObjectID()
	if err := s.AddBid(ctx, job.Id, dup); !errors.Is(err, models.ErrStaleWrite) {
		t.Fatalf("second bid from the same bidder should miss the guard, got %v", err)
	}
	sibling := models.Bid{Id: primitive.NewObjectID(), Bidder: other.Id, Status: models.BidPending}
	if err := s.AddBid(ctx, job.Id, sibling); err != nil {
		t.Fatal(err)
	}

	if err := s.AcceptBid(ctx, job.Id, bid.Id, models.BidPending, bidder.Id); err != nil {
		t.Fatal(err)
	}
	if err := s.AcceptBid(ctx, job.Id, sibling.Id, models.BidPending, other.Id); !errors.Is(err, models.ErrStaleWrite) {
		t.Fatalf("second acceptance should miss the guard, got %v", err)
	}

	stored, err := s.JobByID(ctx, job.Id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.JobInProgress || stored.Freelancer == nil || *stored.Freelancer != bidder.Id {
		t.Errorf("accepted bid should assign the bidder: %+v", stored)
	}
	if len(stored.Bids) != 2 || stored.Bids[1].Status != models.BidPending {
		t.Errorf("sibling bid should be untouched: %+v", stored.Bids)
	}

	if err := s.RejectOpenBids(ctx, job.Id, bid.Id); err != nil {
		t.Fatal(err)
	}
	stored, _ = s.JobByID(ctx, job.Id)
	if stored.Bids[0].Status != models.BidAccepted || stored.Bids[1].Status != models.BidRejected {
		t.Errorf("only open siblings should be rejected: %+v", stored.Bids)
	}

	if err := s.SetJobStatus(ctx, job.Id, models.JobTransitionSources(models.JobCompleted), models.JobCompleted); err != nil {
		t.Fatal(err)
	}
	if err := s.SetJobStatus(ctx, job.Id, models.JobTransitionSources(models.JobCanceled), models.JobCanceled); !errors.Is(err, models.ErrStaleWrite) {
		t.Fatalf("completed job should not be canceled, got %v", err)
	}
}

func TestListJobs(t *testing.T) {
	s := OpenTestStore(t)
	ctx := context.Background()

	owner, bidder := AddTestUser(t, s), AddTestUser(t, s)
	jobs := []models.Job{AddTestJob(t, s, owner.Id), AddTestJob(t, s, owner.Id), AddTestJob(t, s, owner.Id)}
	if err := s.AddBid(ctx, jobs[2].Id, models.Bid{Id: primitive.NewObjectID(), Bidder: bidder.Id, Status: models.BidPending}); err != nil {
		t.Fatal(err)
	}

	plan, _ := query.NewPlan(intPtr(2), intPtr(2), query.DefaultLimit)
	page, err := s.ListJobs(ctx, query.Filter{Owner: &owner.Id}, plan)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Entries) != 1 || page.MetaData.TotalDocuments != 3 {
		t.Fatalf("page 2 by 2 of 3 jobs: got %d entries, total %d", len(page.Entries), page.MetaData.TotalDocuments)
	}
	if page.Entries[0].Id != jobs[0].Id {
		t.Errorf("oldest job should be on the last page")
	}
	if page.Entries[0].Bids == nil || len(page.Entries[0].Bids) != 0 {
		t.Errorf("job without bids should have an empty bid list, got %#v", page.Entries[0].Bids)
	}

	all, err := s.ListJobs(ctx, query.Filter{}, query.Plan{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Entries) != 3 || all.Entries[0].Id != jobs[2].Id {
		t.Fatalf("expected all jobs newest first, got %d", len(all.Entries))
	}
	newest := all.Entries[0]
	if newest.OwnerProfile == nil || newest.OwnerProfile.Id != owner.Id {
		t.Errorf("owner profile should be joined: %+v", newest.OwnerProfile)
	}
	if len(newest.Bids) != 1 || newest.Bids[0].BidderProfile == nil || newest.Bids[0].BidderProfile.Id != bidder.Id {
		t.Errorf("bidder profile should be joined: %+v", newest.Bids)
	}
}

func TestRatingsAndLedger(t *testing.T) {
	s := OpenTestStore(t)
	ctx := context.Background()

	user := AddTestUser(t, s)
	var updated models.User
	var err error
	for _, score := range []float64{4, 5, 3} {
		rating := models.Rating{Author: primitive.NewObjectID(), Subject: user.Id, Job: primitive.NewObjectID(), Score: score}
		updated, _, err = s.AddRating(ctx, user.Id, models.RaterEmployer, rating)
		if err != nil {
			t.Fatal(err)
		}
	}
	if updated.FreelancerProfile.Rating != 4 || updated.RatingCount != 3 || len(updated.Ratings) != 3 {
		t.Errorf("expected average 4 over 3 ratings, got %v over %d", updated.FreelancerProfile.Rating, updated.RatingCount)
	}
	if updated.EmployerProfile.Rating != 0 {
		t.Errorf("employer side should be untouched, got %v", updated.EmployerProfile.Rating)
	}

	key := models.LegKey("job:completed", models.LegEarning)
	for i, want := range []bool{true, false} {
		applied, err := s.ApplyLedgerLeg(ctx, user.Id, models.LegEarning, key, 250)
		if err != nil {
			t.Fatal(err)
		}
		if applied != want {
			t.Errorf("attempt %d: applied = %v, want %v", i+1, applied, want)
		}
	}
	stored, _ := s.UserByID(ctx, user.Id)
	if stored.FreelancerProfile.Earning != 250 || stored.FreelancerProfile.Projects != 1 {
		t.Errorf("ledger leg should apply once: %+v", stored.FreelancerProfile)
	}

	if _, err := s.ApplyLedgerLeg(ctx, primitive.NewObjectID(), models.LegSpent, key, 1); !errors.Is(err, models.ErrNoUser) {
		t.Errorf("missing user should be reported, got %v", err)
	}
}

func TestAddRatingOncePerAuthor(t *testing.T) {
	s := OpenTestStore(t)
	ctx := context.Background()

	user := AddTestUser(t, s)
	rating := models.Rating{Author: primitive.NewObjectID(), Subject: user.Id, Job: primitive.NewObjectID(), Score: 5}

	for i, want := range []bool{true, false} {
		updated, applied, err := s.AddRating(ctx, user.Id, models.RaterEmployer, rating)
		if err != nil {
			t.Fatal(err)
		}
		if applied != want {
			t.Errorf("attempt %d: applied = %v, want %v", i+1, applied, want)
		}
		if updated.RatingCount != 1 || len(updated.Ratings) != 1 {
			t.Errorf("attempt %d: rating should be stored once, got %d", i+1, updated.RatingCount)
		}
	}

	if _, _, err := s.AddRating(ctx, primitive.NewObjectID(), models.RaterEmployer, rating); !errors.Is(err, models.ErrNoUser) {
		t.Errorf("missing subject should be reported, got %v", err)
	}
}

func TestAddRatingMalformedHistory(t *testing.T) {
	s := OpenTestStore(t)
	ctx := context.Background()

	user := AddTestUser(t, s)
	_, err := s.users.UpdateOne(ctx, bson.M{"_id": user.Id}, bson.M{"$push": bson.M{"ratings": bson.M{"rating": nil}}})
	if err != nil {
		t.Fatal(err)
	}

	rating := models.Rating{Author: primitive.NewObjectID(), Subject: user.Id, Job: primitive.NewObjectID(), Score: 4}
	updated, _, err := s.AddRating(ctx, user.Id, models.RaterEmployer, rating)
	if err != nil {
		t.Fatal(err)
	}
	if updated.FreelancerProfile.Rating != 0 {
		t.Errorf("malformed prior score should reset the average to 0, got %v", updated.FreelancerProfile.Rating)
	}
	if updated.RatingCount != 1 {
		t.Errorf("ratingCount = %d, want 1", updated.RatingCount)
	}
}

func TestUpdateProfile(t *testing.T) {
	s := OpenTestStore(t)
	ctx := context.Background()

	user := AddTestUser(t, s)
	bio := "type designer"
	updated, err := s.UpdateProfile(ctx, user.Id, models.ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatal(err)
	}
	if updated.FreelancerProfile.Bio != bio || updated.Name != user.Name {
		t.Errorf("only the bio should change: %+v", updated)
	}

	updated, err = s.SetProfileImage(ctx, user.Id, "https://cdn.example.com/me.png")
	if err != nil {
		t.Fatal(err)
	}
	if updated.ImageUrl != "https://cdn.example.com/me.png" || updated.FreelancerProfile.Bio != bio {
		t.Errorf("image should be set without touching the profile: %+v", updated)
	}

	if _, err := s.UpdateProfile(ctx, primitive.NewObjectID(), models.ProfileUpdate{Bio: &bio}); !errors.Is(err, models.ErrNoUser) {
		t.Errorf("missing user should be reported, got %v", err)
	}
}

func TestInsertUserDuplicateEmail(t *testing.T) {
	s := OpenTestStore(t)

	user := AddTestUser(t, s)
	user.Id = primitive.NilObjectID
	if _, err := s.InsertUser(context.Background(), user); !errors.Is(err, models.ErrDuplicateEmail) {
		t.Errorf("duplicate email should be rejected, got %v", err)
	}
}

func TestConversations(t *testing.T) {
	s := OpenTestStore(t)
	ctx := context.Background()

	me, a, b := AddTestUser(t, s), AddTestUser(t, s), AddTestUser(t, s)
	send := func(from, to primitive.ObjectID, text string) {
		if _, err := s.InsertMessage(ctx, models.ChatMessage{Sender: from, Receiver: to, Text: text}); err != nil {
			t.Fatal(err)
		}
	}
	send(me.Id, a.Id, "hi a")
	send(a.Id, me.Id, "hi back")
	send(me.Id, b.Id, "hi b")

	page, err := s.ListConversations(ctx, query.Filter{Participant: &me.Id}, query.Plan{})
	if err != nil {
		t.Fatal(err)
	}
	if page.MetaData.TotalDocuments != 2 || len(page.Entries) != 2 {
		t.Fatalf("expected 2 conversations, got %+v", page.MetaData)
	}
	if page.Entries[0].User != b.Id || len(page.Entries[1].Messages) != 2 {
		t.Errorf("conversations should be newest first with all messages: %+v", page.Entries)
	}

	msgs, err := s.Messages(ctx, me.Id, a.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Text != "hi a" {
		t.Errorf("conversation should be oldest first: %+v", msgs)
	}

	full, err := s.MessageByID(ctx, msgs[1].Id)
	if err != nil {
		t.Fatal(err)
	}
	if full.SenderProfile == nil || full.SenderProfile.Id != a.Id || full.ReceiverProfile == nil {
		t.Errorf("message should carry both profiles: %+v", full)
	}
}
