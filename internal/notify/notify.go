// Package notify fans out change events to subscribers by topic. Publishing
// is fire-and-forget: nothing is persisted, replayed, or retried.
package notify

import (
	"time"

	"github.com/sirupsen/logrus"
)

// BroadcastTopic reaches every client listening for user notifications.
const BroadcastTopic = "notification_"

func JobUpdateTopic(jobId string) string {
	return "job_update_" + jobId
}

func NotificationTopic(userId string) string {
	return BroadcastTopic + userId
}

func NewMessageTopic(recipient, sender string) string {
	return "new_message_" + recipient + "_" + sender
}

type Publisher interface {
	Publish(topic string, payload any)
}

// Envelope is the frame delivered to subscribers.
type Envelope struct {
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type Noop struct{}

func (Noop) Publish(string, any) {}

// Fanout publishes every message to each of its publishers in order.
type Fanout []Publisher

func (f Fanout) Publish(topic string, payload any) {
	for _, p := range f {
		p.Publish(topic, payload)
	}
}

type safe struct {
	next Publisher
	log  logrus.FieldLogger
}

// Safe guards next so a panicking publisher is logged instead of unwinding
// into the caller.
func Safe(next Publisher, log logrus.FieldLogger) Publisher {
	if next == nil {
		next = Noop{}
	}
	return &safe{next: next, log: log}
}

func (s *safe) Publish(topic string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("topic", topic).Errorf("notify: publisher panicked: %v", r)
		}
	}()
	s.next.Publish(topic, payload)
}
