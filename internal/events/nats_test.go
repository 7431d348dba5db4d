package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"thumbgen/internal/domain"
	"thumbgen/internal/pipeline"
)

type captured struct {
	subject string
	data    []byte
}

type capturePublisher struct{ msgs []captured }

func (c *capturePublisher) Publish(subject string, data []byte) error {
	c.msgs = append(c.msgs, captured{subject, data})
	return nil
}

func TestNATSPublisherJobAdvanced(t *testing.T) {
	conn := &capturePublisher{}
	pub := NewNATSPublisher(conn)
	pub.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	res := pipeline.Result{JobID: "job-7", Status: domain.JobStatusRendering, ProgressPercent: 84, PhaseMessage: "Rendering thumbnails (2/4)"}
	if err := pub.JobAdvanced(context.Background(), res); err != nil {
		t.Fatalf("JobAdvanced returned error: %v", err)
	}
	if len(conn.msgs) != 1 || conn.msgs[0].subject != "thumbgen.jobs.job-7" {
		t.Fatalf("unexpected messages: %+v", conn.msgs)
	}
	var body map[string]any
	if err := json.Unmarshal(conn.msgs[0].data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["jobId"] != "job-7" || body["status"] != "rendering" || body["progressPercent"] != float64(84) {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["at"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("at = %v", body["at"])
	}
}

func TestNATSPublisherRequiresJobID(t *testing.T) {
	pub := NewNATSPublisher(&capturePublisher{})
	if err := pub.JobAdvanced(context.Background(), pipeline.Result{}); err == nil {
		t.Fatal("expected error")
	}
}
