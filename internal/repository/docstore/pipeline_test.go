package docstore

import (
	"testing"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intPtr(v int) *int {
	return &v
}

func stageNames(stages bson.A) []string {
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.(bson.D)[0].Key)
	}
	return names
}

func facetEntries(t *testing.T, stage bson.D) bson.A {
	if stage[0].Key != "$facet" {
		t.Fatalf("expected $facet stage, got %s", stage[0].Key)
	}
	facet := stage[0].Value.(bson.D)
	if facet[0].Key != "metaData" || facet[1].Key != "entries" {
		t.Fatalf("unexpected facet layout: %v", facet)
	}
	return facet[1].Value.(bson.A)
}

func TestJobMatch(t *testing.T) {
	owner := primitive.NewObjectID()
	f := query.Filter{
		SearchString:    "golang",
		Owner:           &owner,
		ExcludeStatuses: []models.JobStatus{models.JobCanceled},
	}

	match := jobMatch(f)
	if match["user"] != owner {
		t.Errorf("owner filter missing: %v", match)
	}
	if text, ok := match["$text"].(bson.M); !ok || text["$search"] != "golang" {
		t.Errorf("text search missing: %v", match)
	}
	status, ok := match["status"].(bson.M)
	if !ok || status["$nin"] == nil || status["$in"] != nil {
		t.Errorf("status filter should only negate: %v", match["status"])
	}
	if _, ok := match["freelancer"]; ok {
		t.Error("freelancer filter should be absent")
	}

	match = jobMatch(query.Filter{})
	if _, ok := match["$text"]; ok || len(match) != 1 {
		t.Errorf("empty filter should only exclude disabled jobs: %v", match)
	}
}

func TestJobsPipelinePaging(t *testing.T) {
	plan, err := query.NewPlan(intPtr(2), intPtr(2), query.DefaultLimit)
	if err != nil {
		t.Fatal(err)
	}

	pipeline := jobsPipeline(query.Filter{}, plan)
	if len(pipeline) != 2 || pipeline[0][0].Key != "$match" {
		t.Fatalf("jobs pipeline should be $match then $facet, got %v", pipeline)
	}

	names := stageNames(facetEntries(t, pipeline[1]))
	want := []string{
		"$sort", "$skip", "$limit",
		"$lookup", "$addFields", // owner
		"$unwind",
		"$lookup", "$addFields", // bidders
		"$group", "$addFields", "$replaceRoot", "$sort",
	}
	if len(names) != len(want) {
		t.Fatalf("entries stages = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entries stages = %v, want %v", names, want)
		}
	}

	entries := facetEntries(t, pipeline[1])
	if skip := entries[1].(bson.D)[0].Value; skip != int64(2) {
		t.Errorf("$skip = %v, want 2", skip)
	}
	unwind := entries[5].(bson.D)[0].Value.(bson.D)
	if unwind[1].Key != "preserveNullAndEmptyArrays" || unwind[1].Value != true {
		t.Errorf("bid expansion must keep jobs without bids: %v", unwind)
	}
}

func TestJobsPipelineUnbounded(t *testing.T) {
	pipeline := jobsPipeline(query.Filter{}, query.Plan{})
	for _, name := range stageNames(facetEntries(t, pipeline[1])) {
		if name == "$skip" || name == "$limit" {
			t.Errorf("page-less query should not contain %s", name)
		}
	}
}

func TestConversationsPipeline(t *testing.T) {
	self := primitive.NewObjectID()
	pipeline := conversationsPipeline(self, query.Filter{SearchString: "hello"}, query.Plan{Limit: 10, Page: 1})

	names := make([]string, 0, len(pipeline))
	for _, stage := range pipeline {
		names = append(names, stage[0].Key)
	}
	want := []string{"$match", "$sort", "$group", "$facet"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("conversation stages = %v, want %v", names, want)
		}
	}

	match := pipeline[0][0].Value.(bson.M)
	if _, ok := match["$or"]; !ok {
		t.Error("conversations should match sent and received messages")
	}
}

func TestLookupProfile(t *testing.T) {
	stages := lookupProfile("bids.user", "bids.bidderProfile")
	if len(stages) != 2 {
		t.Fatalf("expected $lookup and $addFields, got %d stages", len(stages))
	}

	lookup := stages[0][0].Value.(bson.D)
	for _, e := range lookup {
		if e.Key == "from" && e.Value != usersCollection {
			t.Errorf("profiles should be joined from %s", usersCollection)
		}
		if e.Key == "as" && e.Value != "bids.bidderProfile" {
			t.Errorf("unexpected join target %v", e.Value)
		}
	}
}
