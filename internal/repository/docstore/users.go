package docstore

import (
	"context"
	"errors"
	"fmt"
	"math"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertUser(ctx context.Context, user models.User) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if user.Id.IsZero() {
		user.Id = primitive.NewObjectID()
	}
	if user.Ratings == nil {
		user.Ratings = []models.Rating{}
	}
	if user.LedgerKeys == nil {
		user.LedgerKeys = []string{}
	}
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt

	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return user, fmt.Errorf("docstore.Store.InsertUser: %w", models.ErrDuplicateEmail)
	} else if err != nil {
		return user, unavailable("InsertUser", err)
	}

	s.log.WithField("user_id", user.Id.Hex()).Debug("user created")
	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user, fmt.Errorf("docstore.Store.UserByID: %w", models.ErrNoUser)
	} else if err != nil {
		return user, unavailable("UserByID", err)
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.PublicProfile], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.users.Aggregate(ctx, usersPipeline(filter, plan))
	if err != nil {
		return query.Page[models.PublicProfile]{}, unavailable("ListUsers", err)
	}
	defer cursor.Close(ctx)

	var result []facetResult[models.PublicProfile]
	if err := cursor.All(ctx, &result); err != nil {
		return query.Page[models.PublicProfile]{}, unavailable("ListUsers", err)
	}
	if len(result) == 0 {
		return query.NewPage[models.PublicProfile](nil, 0, plan), nil
	}
	return result[0].page(plan), nil
}

func profileSet(update models.ProfileUpdate) bson.M {
	set := bson.M{"updatedAt": now()}
	fields := map[string]*string{
		"name.firstName":             update.FirstName,
		"name.middleName":            update.MiddleName,
		"name.lastName":              update.LastName,
		"freelancerProfile.jobTitle": update.JobTitle,
		"freelancerProfile.bio":      update.Bio,
	}
	for key, v := range fields {
		if v != nil {
			set[key] = *v
		}
	}
	return set
}

func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (models.User, error) {
	return s.updateUser(ctx, "UpdateProfile", id, bson.M{"$set": profileSet(update)})
}

func (s *Store) SetProfileImage(ctx context.Context, id primitive.ObjectID, url string) (models.User, error) {
	return s.updateUser(ctx, "SetProfileImage", id, bson.M{"$set": bson.M{"imageUrl": url, "updatedAt": now()}})
}

func (s *Store) updateUser(ctx context.Context, method string, id primitive.ObjectID, update bson.M) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := notDisabled()
	filter["_id"] = id

	var user models.User
	err := s.users.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user, fmt.Errorf("docstore.Store.%s: %w", method, models.ErrNoUser)
	} else if err != nil {
		return user, unavailable(method, err)
	}
	return user, nil
}

// ratingAverage is sum/count over every stored score, like models.AverageScore:
// a missing or non-numeric score, or a non-finite result, yields 0.
func ratingAverage() bson.D {
	scores := bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: "$ratings"},
		{Key: "as", Value: "r"},
		{Key: "in", Value: "$$r.rating"},
	}}}
	numeric := bson.D{{Key: "$allElementsTrue", Value: bson.A{bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: "$$scores"},
		{Key: "as", Value: "s"},
		{Key: "in", Value: bson.D{{Key: "$isNumber", Value: "$$s"}}},
	}}}}}}
	mean := bson.D{{Key: "$divide", Value: bson.A{
		bson.D{{Key: "$sum", Value: "$$scores"}},
		bson.D{{Key: "$size", Value: "$$scores"}},
	}}}

	return bson.D{{Key: "$let", Value: bson.D{
		{Key: "vars", Value: bson.D{{Key: "scores", Value: scores}}},
		{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{bson.D{{Key: "$size", Value: "$$scores"}}, 0}}},
				numeric,
			}}},
			bson.D{{Key: "$let", Value: bson.D{
				{Key: "vars", Value: bson.D{{Key: "avg", Value: mean}}},
				{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$in", Value: bson.A{"$$avg", bson.A{math.NaN(), math.Inf(1), math.Inf(-1)}}}},
					0,
					"$$avg",
				}}}},
			}}},
			0,
		}}}},
	}}}
}

// ratingUpdate appends rating and recomputes the average over the whole list
// inside one update, so concurrent ratings of the same user cannot interleave.
func ratingUpdate(field string, rating models.Rating) mongo.Pipeline {
	average := ratingAverage()

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "ratings", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$ratings", bson.A{}}}},
				bson.A{bson.D{{Key: "$literal", Value: rating}}},
			}}}},
			{Key: "ratingCount", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$ratingCount", 0}}},
				1,
			}}}},
			{Key: "updatedAt", Value: now()},
		}}},
		{{Key: "$set", Value: bson.D{{Key: field, Value: average}}}},
	}
}

func (s *Store) AddRating(ctx context.Context, subject primitive.ObjectID, role models.RaterRole, rating models.Rating) (models.User, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	field := "employerProfile.rating"
	if role.RatesFreelancer() {
		field = "freelancerProfile.rating"
	}

	filter := bson.M{
		"_id": subject,
		"ratings": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"job":    rating.Job,
			"author": rating.Author,
		}}},
	}

	var user models.User
	err := s.users.FindOneAndUpdate(
		ctx,
		filter,
		ratingUpdate(field, rating),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err == nil {
		return user, true, nil
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return user, false, unavailable("AddRating", err)
	}

	// either this author already rated the subject for the job or the user does not exist
	user, err = s.UserByID(ctx, subject)
	if err != nil {
		return user, false, fmt.Errorf("docstore.Store.AddRating: %w", err)
	}
	return user, false, nil
}

func ledgerIncrement(leg models.LedgerLeg, amount float64) (bson.M, error) {
	switch leg {
	case models.LegEarning:
		return bson.M{"freelancerProfile.earning": amount, "freelancerProfile.projects": 1}, nil
	case models.LegSpent:
		return bson.M{"employerProfile.spent": amount, "employerProfile.projectsCompleted": 1}, nil
	}
	return nil, fmt.Errorf("unknown ledger leg %q", leg)
}

func (s *Store) ApplyLedgerLeg(ctx context.Context, userId primitive.ObjectID, leg models.LedgerLeg, key string, amount float64) (bool, error) {
	inc, err := ledgerIncrement(leg, amount)
	if err != nil {
		return false, fmt.Errorf("docstore.Store.ApplyLedgerLeg: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"_id":        userId,
		"ledgerKeys": bson.M{"$ne": key},
	}
	update := bson.M{
		"$inc":  inc,
		"$push": bson.M{"ledgerKeys": key},
		"$set":  bson.M{"updatedAt": now()},
	}

	res, err := s.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, unavailable("ApplyLedgerLeg", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	// either the leg was applied before or the user does not exist
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": userId})
	if err != nil {
		return false, unavailable("ApplyLedgerLeg", err)
	}
	if n == 0 {
		return false, fmt.Errorf("docstore.Store.ApplyLedgerLeg: %w", models.ErrNoUser)
	}
	return false, nil
}
