package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/model"
)

// TierWriter applies tier changes. The registry updater is the single
// authoritative writer of tier state; everything else only emits events.
type TierWriter interface {
	UpdateAuthorTier(ctx context.Context, authorID string, tier model.Tier) error
}

// RegistryUpdater applies tier.reassigned events to the author registry.
type RegistryUpdater struct {
	writer TierWriter
}

// NewRegistryUpdater creates the registry updater.
func NewRegistryUpdater(writer TierWriter) *RegistryUpdater {
	return &RegistryUpdater{writer: writer}
}

// Register subscribes the updater to the reassignment topic on the bus.
func (u *RegistryUpdater) Register(bus *events.Bus) {
	bus.Subscribe(events.TopicTierReassigned, u.HandleReassigned)
}

// HandleReassigned applies one tier change. Applying the same event twice
// is harmless: the write is an absolute assignment, not an increment.
func (u *RegistryUpdater) HandleReassigned(ctx context.Context, msg events.Message) error {
	var event events.TierReassigned
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("malformed tier.reassigned payload",
			"correlation_id", msg.CorrelationID,
			"error", err)
		return nil
	}

	newTier := model.Tier(event.NewTier)
	if !newTier.Valid() {
		slog.Error("tier.reassigned carries unknown tier",
			"author_id", event.AuthorID,
			"tier", event.NewTier)
		return nil
	}

	if err := u.writer.UpdateAuthorTier(ctx, event.AuthorID, newTier); err != nil {
		return fmt.Errorf("failed to update tier for author %s: %w", event.AuthorID, err)
	}

	slog.Info("author tier reassigned",
		"author_id", event.AuthorID,
		"old_tier", event.OldTier,
		"new_tier", event.NewTier)

	return nil
}
