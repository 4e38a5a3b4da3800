package service

import (
	"context"
	"fmt"

	"marketplace/internal/models"
	"marketplace/internal/notify"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

//// Chats

// SendMessage stores a message from the caller and notifies the receiver.
func (s *Service) SendMessage(ctx context.Context, caller models.Identity, receiver primitive.ObjectID, text string) (models.ChatMessage, error) {
	if receiver == caller.SubjectId {
		return models.ChatMessage{}, fmt.Errorf("service.Service.SendMessage: %w", models.ErrSelfMessage)
	}
	if _, err := s.store.UserByID(ctx, receiver); err != nil {
		return models.ChatMessage{}, fmt.Errorf("service.Service.SendMessage: %w", err)
	}

	msg, err := s.store.InsertMessage(ctx, models.ChatMessage{
		Text:     text,
		Sender:   caller.SubjectId,
		Receiver: receiver,
	})
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("service.Service.SendMessage: %w", err)
	}

	msg, err = s.store.MessageByID(ctx, msg.Id)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("service.Service.SendMessage: %w", err)
	}

	title := "New message"
	if msg.SenderProfile != nil && len(msg.SenderProfile.Name.Full()) > 0 {
		title = msg.SenderProfile.Name.Full()
	}
	note := models.ChatNotification{Title: title, Text: text}

	s.bus.Publish(notify.NotificationTopic(receiver.Hex()), note)
	s.bus.Publish(notify.BroadcastTopic, note)
	s.bus.Publish(notify.NewMessageTopic(receiver.Hex(), caller.SubjectId.Hex()), msg)

	return msg, nil
}

// Messages returns the conversation between the caller and other, oldest first.
func (s *Service) Messages(ctx context.Context, caller models.Identity, other primitive.ObjectID) ([]models.ChatMessage, error) {
	msgs, err := s.store.Messages(ctx, caller.SubjectId, other)
	if err != nil {
		return nil, fmt.Errorf("service.Service.Messages: %w", err)
	}
	return msgs, nil
}

func (s *Service) ListConversations(ctx context.Context, caller models.Identity, filter query.Filter) (query.Page[models.Conversation], error) {
	filter.Participant = &caller.SubjectId

	plan, err := s.plan(filter)
	if err != nil {
		return query.Page[models.Conversation]{}, fmt.Errorf("service.Service.ListConversations: %w", err)
	}

	page, err := s.store.ListConversations(ctx, filter, plan)
	if err != nil {
		return query.Page[models.Conversation]{}, fmt.Errorf("service.Service.ListConversations: %w", err)
	}
	return page, nil
}
