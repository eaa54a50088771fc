package ports

import (
	"context"

	"fallout/internal/domain/fallout"
)

// Classifier decides the fallout category of a Failed order. Implementations
// may return an unknown category; callers route those to human review.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, state fallout.RemediationState) (fallout.Category, error)
}
