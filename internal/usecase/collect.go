package usecase

import (
	"MarketLens/internal/domain/models"
)

// Forcer is the scheduler surface the collect use case needs.
type Forcer interface {
	Force(venue string) (int, error)
	Health() []models.VenueHealth
}

// CollectUseCase exposes on-demand collection and venue health. It is a
// thin wrapper so handlers never touch the scheduler directly.
type CollectUseCase struct {
	sched Forcer
}

func NewCollectUseCase(sched Forcer) *CollectUseCase {
	return &CollectUseCase{sched: sched}
}

// Force triggers an immediate poll cycle for one venue, or all venues
// when venue is empty. It returns the number of tasks signalled.
func (u *CollectUseCase) Force(venue string) (int, error) {
	return u.sched.Force(venue)
}

func (u *CollectUseCase) VenueHealth() []models.VenueHealth {
	return u.sched.Health()
}
