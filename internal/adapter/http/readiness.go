package http

import (
	"context"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// ReadinessCheckers reports ready only when every checker does. The first
// failure is returned.
type ReadinessCheckers []sharedobs.ReadinessChecker

// CheckReadiness implements sharedobs.ReadinessChecker.
func (rc ReadinessCheckers) CheckReadiness(ctx context.Context) error {
	for _, c := range rc {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
