// Package events publishes job progress for live listeners.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"thumbgen/internal/pipeline"
)

// SubjectPrefix is followed by the job id.
const SubjectPrefix = "thumbgen.jobs."

// ProgressEvent is the message body published per advanced job.
type ProgressEvent struct {
	pipeline.Result
	At time.Time `json:"at"`
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements pipeline.Notifier over core NATS pub/sub.
type NATSPublisher struct {
	conn publisher
	now  func() time.Time
}

func NewNATSPublisher(conn publisher) *NATSPublisher {
	return &NATSPublisher{conn: conn, now: time.Now}
}

// Connect dials url with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("thumbgen"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

func Subject(jobID string) string {
	return SubjectPrefix + jobID
}

func (p *NATSPublisher) JobAdvanced(_ context.Context, res pipeline.Result) error {
	if res.JobID == "" {
		return fmt.Errorf("events: job id is required")
	}
	data, err := json.Marshal(ProgressEvent{Result: res, At: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("events: marshal progress: %w", err)
	}
	return p.conn.Publish(Subject(res.JobID), data)
}

// Nop discards events.
type Nop struct{}

func (Nop) JobAdvanced(context.Context, pipeline.Result) error { return nil }

var (
	_ pipeline.Notifier = (*NATSPublisher)(nil)
	_ pipeline.Notifier = Nop{}
)
