// README: Google Maps Directions routing oracle.
package maps

import (
	"context"
	"fmt"

	gmaps "googlemaps.github.io/maps"

	"shiftroute/internal/types"
)

// GoogleClient answers travel queries with the Directions API.
type GoogleClient struct {
	client *gmaps.Client
	region string
}

func NewGoogleClient(apiKey, region string) (*GoogleClient, error) {
	client, err := gmaps.NewClient(gmaps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleClient{client: client, region: region}, nil
}

func (c *GoogleClient) Route(ctx context.Context, from, to types.Point) (Estimate, error) {
	r := &gmaps.DirectionsRequest{
		Origin:      latLng(from),
		Destination: latLng(to),
		Mode:        gmaps.TravelModeDriving,
		Region:      c.region,
	}

	routes, _, err := c.client.Directions(ctx, r)
	if err != nil {
		return Estimate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Estimate{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return Estimate{
		DistanceMeters:  float64(leg.Distance.Meters),
		DurationSeconds: leg.Duration.Seconds(),
		Geometry:        routes[0].OverviewPolyline.Points,
		Source:          SourceOracle,
	}, nil
}

func latLng(p types.Point) string {
	return formatCoord(p.Lat) + "," + formatCoord(p.Lng)
}
