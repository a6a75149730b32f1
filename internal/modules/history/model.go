// README: Stored route history entries owned by a caller.
package history

import (
	"errors"
	"time"

	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

var (
	ErrNotFound   = errors.New("route not found")
	ErrBadRequest = errors.New("bad request")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Entry struct {
	ID        types.ID    `json:"id"`
	Owner     types.ID    `json:"owner"`
	Route     route.Route `json:"route"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Summary is the list view of an entry without its locations.
type Summary struct {
	ID           types.ID  `json:"id"`
	Algorithm    string    `json:"algorithm"`
	TripCount    int       `json:"tripCount"`
	TotalRevenue float64   `json:"totalRevenue"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e Entry) Summary() Summary {
	return Summary{
		ID:           e.ID,
		Algorithm:    e.Route.Algorithm,
		TripCount:    e.Route.TripCount,
		TotalRevenue: e.Route.TotalRevenue,
		CreatedAt:    e.CreatedAt,
	}
}
