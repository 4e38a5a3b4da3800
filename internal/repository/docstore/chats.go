package docstore

import (
	"context"
	"fmt"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if msg.Id.IsZero() {
		msg.Id = primitive.NewObjectID()
	}
	msg.SenderProfile, msg.ReceiverProfile = nil, nil
	msg.CreatedAt = now()
	msg.UpdatedAt = msg.CreatedAt

	_, err := s.chats.InsertOne(ctx, msg)
	if err != nil {
		return msg, unavailable("InsertMessage", err)
	}
	return msg, nil
}

func (s *Store) MessageByID(ctx context.Context, id primitive.ObjectID) (models.ChatMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.chats.Aggregate(ctx, messagePipeline(id))
	if err != nil {
		return models.ChatMessage{}, unavailable("MessageByID", err)
	}
	defer cursor.Close(ctx)

	var msgs []models.ChatMessage
	if err := cursor.All(ctx, &msgs); err != nil {
		return models.ChatMessage{}, unavailable("MessageByID", err)
	}
	if len(msgs) == 0 {
		return models.ChatMessage{}, fmt.Errorf("docstore.Store.MessageByID: %w", models.ErrNoMessage)
	}
	return msgs[0], nil
}

func (s *Store) Messages(ctx context.Context, a, b primitive.ObjectID) ([]models.ChatMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := notDisabled()
	filter["$or"] = bson.A{
		bson.M{"sender": a, "receiver": b},
		bson.M{"sender": b, "receiver": a},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.chats.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("Messages", err)
	}
	defer cursor.Close(ctx)

	msgs := make([]models.ChatMessage, 0)
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, unavailable("Messages", err)
	}
	return msgs, nil
}

func (s *Store) ListConversations(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.Conversation], error) {
	if filter.Participant == nil {
		return query.NewPage[models.Conversation](nil, 0, plan), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.chats.Aggregate(ctx, conversationsPipeline(*filter.Participant, filter, plan))
	if err != nil {
		return query.Page[models.Conversation]{}, unavailable("ListConversations", err)
	}
	defer cursor.Close(ctx)

	var result []facetResult[models.Conversation]
	if err := cursor.All(ctx, &result); err != nil {
		return query.Page[models.Conversation]{}, unavailable("ListConversations", err)
	}
	if len(result) == 0 {
		return query.NewPage[models.Conversation](nil, 0, plan), nil
	}
	return result[0].page(plan), nil
}
