package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatMessage struct {
	Id              primitive.ObjectID `json:"id" bson:"_id"`
	Text            string             `json:"text" bson:"text"`
	Sender          primitive.ObjectID `json:"senderId" bson:"sender"`
	Receiver        primitive.ObjectID `json:"receiverId" bson:"receiver"`
	SenderProfile   *PublicProfile     `json:"sender,omitempty" bson:"senderProfile,omitempty"`
	ReceiverProfile *PublicProfile     `json:"receiver,omitempty" bson:"receiverProfile,omitempty"`
	IsDisabled      bool               `json:"isDisabled" bson:"isDisabled"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Counterparty returns the participant of m that is not self.
func (m *ChatMessage) Counterparty(self primitive.ObjectID) primitive.ObjectID {
	if m.Sender == self {
		return m.Receiver
	}
	return m.Sender
}

type ConversationMessage struct {
	Text      string             `json:"text" bson:"text"`
	Sender    primitive.ObjectID `json:"senderId" bson:"sender"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// Conversation groups the messages exchanged with one counterparty, newest first.
type Conversation struct {
	User        primitive.ObjectID    `json:"userId" bson:"_id"`
	UserProfile *PublicProfile        `json:"user" bson:"userProfile,omitempty"`
	Messages    []ConversationMessage `json:"messages" bson:"messages"`
	LastAt      time.Time             `json:"lastAt" bson:"lastAt"`
}

// ChatNotification is published when a message arrives.
type ChatNotification struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}
