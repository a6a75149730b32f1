package ai

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"shiftroute/internal/modules/route"
)

func sampleRoute(events int) route.Route {
	r := route.Route{Algorithm: "greedy", TripCount: events / 2, TotalRevenue: 42.5, BreakTime: 1}
	for i := 0; i < events; i++ {
		typ := route.Pickup
		if i%2 == 1 {
			typ = route.Dropoff
		}
		r.Locations = append(r.Locations, route.Location{
			Lat: 1.3, Lng: 103.8, Type: typ, Time: fmt.Sprintf("%d:00 AM", 6+i%6), TripID: (i + 1) / 2,
		})
	}
	return r
}

func TestBuildBriefingPrompt(t *testing.T) {
	prompt, err := buildBriefingPrompt(sampleRoute(4))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(prompt, "Shift plan:\n"))
	require.Contains(t, prompt, `"algorithm":"greedy"`)
	require.Contains(t, prompt, `"totalRevenue":42.5`)
	require.NotContains(t, prompt, "omittedEvents")

	_, err = buildBriefingPrompt(route.Route{})
	require.ErrorIs(t, err, ErrEmptyRoute)
}

func TestBuildBriefingPrompt_TruncatesLongRoutes(t *testing.T) {
	prompt, err := buildBriefingPrompt(sampleRoute(maxPromptEvents + 5))
	require.NoError(t, err)
	require.Contains(t, prompt, `"omittedEvents":5`)
}

func TestParseBriefing(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: `{"summary":"Busy morning.","highlights":["trip 3"]}`, want: "Busy morning."},
		{name: "fenced", in: "```json\n{\"summary\":\"Quiet shift.\"}\n```", want: "Quiet shift."},
		{name: "not json", in: "Sure! Here is your briefing.", wantErr: true},
		{name: "no summary", in: `{"highlights":["x"]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBriefing(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Summary)
		})
	}
}
