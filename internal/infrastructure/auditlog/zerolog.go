// Package auditlog writes audit entries to a structured log stream. Durable
// storage of the trail is owned elsewhere.
package auditlog

import (
	"context"

	"equity-lending/internal/domain/audit"

	"github.com/rs/zerolog"
)

type Sink struct{ l zerolog.Logger }

func New(l zerolog.Logger) *Sink {
	return &Sink{l: l.With().Str("stream", "audit").Logger()}
}

func (s *Sink) Record(_ context.Context, e audit.Entry) error {
	s.l.Info().
		Str("actor_id", e.Actor).
		Str("action", e.Action).
		Str("resource_type", e.ResourceType).
		Str("resource_id", e.ResourceID).
		Interface("old_value", e.Old).
		Interface("new_value", e.New).
		Time("at", e.At).
		Msg("audit")
	return nil
}
