// README: OSRM HTTP routing oracle client.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shiftroute/internal/types"
)

type OSRMClient struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

func NewOSRMClient(baseURL, profile string, timeout time.Duration) *OSRMClient {
	if profile == "" {
		profile = "driving"
	}
	return &OSRMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    profile,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry string  `json:"geometry"`
}

func (c *OSRMClient) Route(ctx context.Context, from, to types.Point) (Estimate, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%s,%s;%s,%s?overview=full&geometries=polyline",
		c.baseURL, c.profile,
		formatCoord(from.Lng), formatCoord(from.Lat),
		formatCoord(to.Lng), formatCoord(to.Lat))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("build osrm request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Estimate{}, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Estimate{}, fmt.Errorf("decode osrm response (status %d): %w", resp.StatusCode, err)
	}
	if body.Code != "" && body.Code != "Ok" {
		return Estimate{}, fmt.Errorf("%w: osrm %s %s", ErrNoRoute, body.Code, body.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Estimate{}, fmt.Errorf("osrm status %d", resp.StatusCode)
	}
	if len(body.Routes) == 0 {
		return Estimate{}, ErrNoRoute
	}

	r := body.Routes[0]
	return Estimate{
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
		Geometry:        r.Geometry,
		Source:          SourceOracle,
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
