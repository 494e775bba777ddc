package service

import (
	"context"
	"errors"
	"time"

	"github.com/medgraph/patient-portal-go/internal/config"
	apperrors "github.com/medgraph/patient-portal-go/internal/errors"
)

// storeError translates a raw store failure into the error taxonomy. Timeouts
// and cancellations become the distinct "unavailable" class so callers never
// present infrastructure trouble as a definitive auth outcome.
func storeError(err error) *apperrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Unavailable(err)
	}
	return apperrors.Database(err)
}

// withStoreTimeout bounds a store call; no operation in this subsystem may
// block for unbounded time.
func withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.StoreTimeout)
}

// clock is swappable in tests.
type clock func() time.Time
