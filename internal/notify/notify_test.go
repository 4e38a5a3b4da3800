package notify

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type recorder struct {
	topics []string
}

func (r *recorder) Publish(topic string, payload any) {
	r.topics = append(r.topics, topic)
}

type panicking struct{}

func (panicking) Publish(string, any) {
	panic("bus is down")
}

func TestTopics(t *testing.T) {
	if got := JobUpdateTopic("42"); got != "job_update_42" {
		t.Errorf("JobUpdateTopic() = %s", got)
	}
	if got := NotificationTopic("7"); got != "notification_7" {
		t.Errorf("NotificationTopic() = %s", got)
	}
	if got := NewMessageTopic("rcv", "snd"); got != "new_message_rcv_snd" {
		t.Errorf("NewMessageTopic() = %s", got)
	}
}

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Fanout{a, Noop{}, b}.Publish("job_update_1", nil)

	if len(a.topics) != 1 || len(b.topics) != 1 {
		t.Errorf("every publisher should receive the message, got %v and %v", a.topics, b.topics)
	}
}

func TestSafeRecovers(t *testing.T) {
	log, hook := test.NewNullLogger()

	p := Safe(panicking{}, log)
	p.Publish("job_update_1", map[string]string{"status": "COMPLETED"})

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("panic should be logged as an error, got %v", entry)
	}
	if entry.Data["topic"] != "job_update_1" {
		t.Errorf("logged topic = %v", entry.Data["topic"])
	}

	// nil publisher degrades to a no-op
	Safe(nil, log).Publish("job_update_1", nil)
}
