package repositories

import (
	"context"

	"github.com/woodguard/server/domain/entities"
)

// DetectionRepository persists accepted detection events.
type DetectionRepository interface {
	// Record stores one accepted detection event.
	Record(ctx context.Context, event *entities.DetectionEvent) error
	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]entities.DetectionEvent, error)
}
