package memstore

import (
	"context"
	"fmt"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) InsertMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	if err := alive(ctx); err != nil {
		return msg, fmt.Errorf("memstore.Store.InsertMessage: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Id.IsZero() {
		msg.Id = primitive.NewObjectID()
	}
	msg.SenderProfile, msg.ReceiverProfile = nil, nil
	msg.CreatedAt = s.now()
	msg.UpdatedAt = msg.CreatedAt

	stored := msg
	s.messages[msg.Id] = &stored
	return msg, nil
}

func (s *Store) MessageByID(ctx context.Context, id primitive.ObjectID) (models.ChatMessage, error) {
	if err := alive(ctx); err != nil {
		return models.ChatMessage{}, fmt.Errorf("memstore.Store.MessageByID: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return models.ChatMessage{}, fmt.Errorf("memstore.Store.MessageByID: %w", models.ErrNoMessage)
	}

	result := *msg
	result.SenderProfile = s.profile(msg.Sender)
	result.ReceiverProfile = s.profile(msg.Receiver)
	return result, nil
}

func (s *Store) Messages(ctx context.Context, a, b primitive.ObjectID) ([]models.ChatMessage, error) {
	if err := alive(ctx); err != nil {
		return nil, fmt.Errorf("memstore.Store.Messages: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.ChatMessage, 0)
	for _, msg := range s.messages {
		if msg.IsDisabled {
			continue
		}
		if (msg.Sender == a && msg.Receiver == b) || (msg.Sender == b && msg.Receiver == a) {
			result = append(result, *msg)
		}
	}

	// oldest first: reverse of the list order
	query.NewestFirst(result, func(m models.ChatMessage) (time.Time, primitive.ObjectID) {
		return m.CreatedAt, m.Id
	})
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func (s *Store) ListConversations(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.Conversation], error) {
	if err := alive(ctx); err != nil {
		return query.Page[models.Conversation]{}, fmt.Errorf("memstore.Store.ListConversations: %w", err)
	}
	if filter.Participant == nil {
		return query.NewPage[models.Conversation](nil, 0, plan), nil
	}
	self := *filter.Participant

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]models.ChatMessage, 0)
	for _, msg := range s.messages {
		if msg.IsDisabled || (msg.Sender != self && msg.Receiver != self) {
			continue
		}
		if query.TextMatch(filter.SearchString, msg.Text) {
			msgs = append(msgs, *msg)
		}
	}
	query.NewestFirst(msgs, func(m models.ChatMessage) (time.Time, primitive.ObjectID) {
		return m.CreatedAt, m.Id
	})

	// messages are newest first, so the first message seen per counterparty
	// fixes the conversation's position
	conversations := make([]models.Conversation, 0)
	index := make(map[primitive.ObjectID]int)
	for _, msg := range msgs {
		other := msg.Counterparty(self)
		i, ok := index[other]
		if !ok {
			i = len(conversations)
			index[other] = i
			conversations = append(conversations, models.Conversation{
				User:     other,
				Messages: []models.ConversationMessage{},
				LastAt:   msg.CreatedAt,
			})
		}
		conversations[i].Messages = append(conversations[i].Messages, models.ConversationMessage{
			Text:      msg.Text,
			Sender:    msg.Sender,
			CreatedAt: msg.CreatedAt,
		})
	}

	window := query.Window(conversations, plan)
	for i := range window {
		window[i].UserProfile = s.profile(window[i].User)
	}
	return query.NewPage(window, int64(len(conversations)), plan), nil
}
