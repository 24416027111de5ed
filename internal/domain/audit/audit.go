// Package audit defines the sink every state change is reported to.
package audit

import (
	"context"
	"time"
)

const (
	ResourceLoanApplication = "loan_application"
	ResourceWorkflowStage   = "loan_workflow_stage"
)

type Entry struct {
	Actor        string    `json:"actor_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Old          any       `json:"old_value,omitempty"`
	New          any       `json:"new_value,omitempty"`
	At           time.Time `json:"at"`
}

type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Buffer collects entries in memory; useful for tests and for deferring
// writes until a transaction commits.
type Buffer struct{ Entries []Entry }

func (b *Buffer) Record(_ context.Context, e Entry) error {
	b.Entries = append(b.Entries, e)
	return nil
}

// Flush replays buffered entries into s and empties the buffer.
func (b *Buffer) Flush(ctx context.Context, s Sink) error {
	for _, e := range b.Entries {
		if err := s.Record(ctx, e); err != nil {
			return err
		}
	}
	b.Entries = nil
	return nil
}
