package ai

import (
	"context"

	"shiftroute/internal/modules/route"
)

// Briefer turns an assembled route into a short driver-facing briefing.
// This interface allows swapping LLM providers without touching handlers.
type Briefer interface {
	Brief(ctx context.Context, r route.Route) (*Briefing, error)
}
