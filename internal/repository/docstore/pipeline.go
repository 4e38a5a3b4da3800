package docstore

import (
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	sortNewest = bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}}

	publicProjection = bson.D{
		{Key: "_id", Value: 1},
		{Key: "name", Value: 1},
		{Key: "email", Value: 1},
		{Key: "role", Value: 1},
		{Key: "imageUrl", Value: 1},
		{Key: "freelancerProfile", Value: 1},
		{Key: "employerProfile", Value: 1},
		{Key: "ratingCount", Value: 1},
	}
)

// facetResult is the single document produced by a paged pipeline.
type facetResult[T any] struct {
	MetaData []struct {
		TotalDocuments int64 `bson:"totalDocuments"`
	} `bson:"metaData"`
	Entries []T `bson:"entries"`
}

func (r facetResult[T]) page(plan query.Plan) query.Page[T] {
	var total int64
	if len(r.MetaData) > 0 {
		total = r.MetaData[0].TotalDocuments
	}
	return query.NewPage(r.Entries, total, plan)
}

// paged counts the documents reaching it and, in parallel, pages them and
// runs the enrichment stages on the page only.
func paged(plan query.Plan, sort bson.D, enrich ...bson.D) bson.D {
	entries := bson.A{sort}
	if plan.Skip > 0 {
		entries = append(entries, bson.D{{Key: "$skip", Value: plan.Skip}})
	}
	if plan.Bounded() {
		entries = append(entries, bson.D{{Key: "$limit", Value: plan.Limit}})
	}
	for _, stage := range enrich {
		entries = append(entries, stage)
	}

	return bson.D{{Key: "$facet", Value: bson.D{
		{Key: "metaData", Value: bson.A{bson.D{{Key: "$count", Value: "totalDocuments"}}}},
		{Key: "entries", Value: entries},
	}}}
}

// lookupProfile joins the public profile of the user whose id is at
// localField into as, leaving as unset when the user does not exist.
func lookupProfile(localField, as string) []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "let", Value: bson.D{{Key: "id", Value: "$" + localField}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$_id", "$$id"}}}}}}},
				bson.D{{Key: "$project", Value: publicProjection}},
			}},
			{Key: "as", Value: as},
		}}},
		{{Key: "$addFields", Value: bson.D{{Key: as, Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$" + as, 0}}}}}}},
	}
}

func notDisabled() bson.M {
	return bson.M{"isDisabled": bson.M{"$ne": true}}
}

func withText(match bson.M, search string) bson.M {
	if len(search) > 0 {
		match["$text"] = bson.M{"$search": search}
	}
	return match
}

func jobMatch(f query.Filter) bson.M {
	match := withText(notDisabled(), f.SearchString)
	if f.ID != nil {
		match["_id"] = *f.ID
	}
	if f.Owner != nil {
		match["user"] = *f.Owner
	}
	if f.Freelancer != nil {
		match["freelancer"] = *f.Freelancer
	}

	status := bson.M{}
	if len(f.Statuses) > 0 {
		status["$in"] = f.Statuses
	}
	if len(f.ExcludeStatuses) > 0 {
		status["$nin"] = f.ExcludeStatuses
	}
	if len(status) > 0 {
		match["status"] = status
	}
	return match
}

// jobsPipeline pages matching jobs, attaches the owner profile, then expands
// bids into rows, resolves every bidder and folds the rows back per job.
// Jobs without bids survive the expansion as a row with no bid, which is
// filtered out when regrouping so their bids come back as [].
func jobsPipeline(f query.Filter, plan query.Plan) mongo.Pipeline {
	enrich := lookupProfile("user", "ownerProfile")
	enrich = append(enrich,
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$bids"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	)
	enrich = append(enrich, lookupProfile("bids.user", "bids.bidderProfile")...)
	enrich = append(enrich,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$_id"},
			{Key: "doc", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
			{Key: "bids", Value: bson.D{{Key: "$push", Value: "$bids"}}},
		}}},
		bson.D{{Key: "$addFields", Value: bson.D{{Key: "doc.bids", Value: bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: "$bids"},
			{Key: "as", Value: "bid"},
			{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{bson.D{{Key: "$type", Value: "$$bid._id"}}, "missing"}}}},
		}}}}}}},
		bson.D{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$doc"}}}},
		sortNewest,
	)

	return mongo.Pipeline{
		{{Key: "$match", Value: jobMatch(f)}},
		paged(plan, sortNewest, enrich...),
	}
}

func usersPipeline(f query.Filter, plan query.Plan) mongo.Pipeline {
	match := withText(notDisabled(), f.SearchString)
	if f.ID != nil {
		match["_id"] = *f.ID
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		paged(plan, sortNewest, bson.D{{Key: "$project", Value: publicProjection}}),
	}
}

func assetsPipeline(f query.Filter, plan query.Plan) mongo.Pipeline {
	match := withText(notDisabled(), f.SearchString)
	if f.Owner != nil {
		match["user"] = *f.Owner
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		paged(plan, sortNewest, lookupProfile("user", "ownerProfile")...),
	}
}

// conversationsPipeline groups the participant's messages by counterparty,
// newest message first inside each conversation and across conversations.
func conversationsPipeline(self primitive.ObjectID, f query.Filter, plan query.Plan) mongo.Pipeline {
	match := withText(notDisabled(), f.SearchString)
	match["$or"] = bson.A{bson.M{"sender": self}, bson.M{"receiver": self}}

	sortLatest := bson.D{{Key: "$sort", Value: bson.D{{Key: "lastAt", Value: -1}, {Key: "lastId", Value: -1}}}}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		sortNewest,
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$sender", self}}}, "$receiver", "$sender",
			}}}},
			{Key: "messages", Value: bson.D{{Key: "$push", Value: bson.D{
				{Key: "text", Value: "$text"},
				{Key: "sender", Value: "$sender"},
				{Key: "createdAt", Value: "$createdAt"},
			}}}},
			{Key: "lastAt", Value: bson.D{{Key: "$first", Value: "$createdAt"}}},
			{Key: "lastId", Value: bson.D{{Key: "$first", Value: "$_id"}}},
		}}},
		paged(plan, sortLatest, lookupProfile("_id", "userProfile")...),
	}
}

func messagePipeline(id primitive.ObjectID) mongo.Pipeline {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"_id": id}}}}
	pipeline = append(pipeline, lookupProfile("sender", "senderProfile")...)
	pipeline = append(pipeline, lookupProfile("receiver", "receiverProfile")...)
	return pipeline
}
