package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// GradingCompletedEvent is published once a grading run has committed.
type GradingCompletedEvent struct {
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	TotalScore   float64   `json:"total_score"`
	GradedAt     time.Time `json:"graded_at"`
}

// GradingEventPublisher announces grading outcomes to other services.
type GradingEventPublisher interface {
	PublishGradingCompleted(ctx context.Context, event GradingCompletedEvent) error
}

type natsPublisher interface {
	Publish(subject string, data []byte) error
}

type natsGradingPublisher struct {
	conn    natsPublisher
	subject string
}

// NewNATSGradingPublisher publishes on "<prefix>.grading.completed".
func NewNATSGradingPublisher(conn *nats.Conn, prefix string) GradingEventPublisher {
	return newGradingPublisher(conn, prefix)
}

func newGradingPublisher(conn natsPublisher, prefix string) *natsGradingPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "clearmark"
	}
	return &natsGradingPublisher{conn: conn, subject: prefix + ".grading.completed"}
}

func (p *natsGradingPublisher) PublishGradingCompleted(ctx context.Context, event GradingCompletedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.conn.Publish(p.subject, payload)
}
