package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/application/services"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
)

// SweepRunner runs one sweep tick on demand
type SweepRunner interface {
	RunSweepTick(ctx context.Context, now time.Time) (services.SweepResult, error)
}

// SweepHandler lets operators trigger a sweep outside the schedule
type SweepHandler struct {
	runner SweepRunner
	clock  providers.Clock
}

// NewSweepHandler creates a new sweep handler
func NewSweepHandler(runner SweepRunner, clock providers.Clock) *SweepHandler {
	return &SweepHandler{runner: runner, clock: clock}
}

// TriggerSweep handles POST /api/admin/sweep
func (h *SweepHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if actor.Role != entities.RoleAdmin {
		respondWithError(w, http.StatusForbidden, "only admins can trigger a sweep")
		return
	}

	result, err := h.runner.RunSweepTick(r.Context(), h.clock.Now())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
