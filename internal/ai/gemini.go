// README: Gemini-backed shift briefing generator.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"shiftroute/internal/modules/route"
)

const DefaultModel = "gemini-1.5-flash"

// maxPromptEvents bounds how many route events are quoted in one prompt.
const maxPromptEvents = 40

var ErrEmptyRoute = errors.New("route has no events")

// GeminiBriefer implements Briefer using Google's Gemini models.
type GeminiBriefer struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiBriefer initializes a Gemini client. An empty modelName uses
// DefaultModel.
func NewGeminiBriefer(ctx context.Context, apiKey, modelName string) (*GeminiBriefer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.3)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	return &GeminiBriefer{client: client, model: model}, nil
}

func (b *GeminiBriefer) Close() {
	b.client.Close()
}

// Brief asks the model to summarize the route.
func (b *GeminiBriefer) Brief(ctx context.Context, r route.Route) (*Briefing, error) {
	prompt, err := buildBriefingPrompt(r)
	if err != nil {
		return nil, err
	}

	resp, err := b.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no response candidates from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	return parseBriefing(text.String())
}

const systemPrompt = `Role: You brief a ride-hailing driver on the shift plan they are about to drive.
Rules:
- Use only the facts in the plan. Never invent places, times or amounts.
- Refer to stops by their time and trip number; coordinates are for your reference only.
- Mention the break and what to do right after it.
- Keep the summary under 60 words, at most 3 highlights and 3 tips.
Output JSON schema:
{"summary": "string", "highlights": ["string"], "tips": ["string"]}`

// promptRoute is the compact view of a route quoted in the prompt.
type promptRoute struct {
	Algorithm        string        `json:"algorithm"`
	TripCount        int           `json:"tripCount"`
	TotalRevenue     float64       `json:"totalRevenue"`
	TotalDrivingTime float64       `json:"totalDrivingHours"`
	BreakTime        float64       `json:"breakHours"`
	Events           []promptEvent `json:"events"`
	Truncated        int           `json:"omittedEvents,omitempty"`
}

type promptEvent struct {
	Time    string          `json:"time"`
	Type    route.EventType `json:"type"`
	TripID  int             `json:"trip"`
	Revenue float64         `json:"revenue,omitempty"`
	Lat     float64         `json:"lat"`
	Lng     float64         `json:"lng"`
}

func buildBriefingPrompt(r route.Route) (string, error) {
	if len(r.Locations) == 0 {
		return "", ErrEmptyRoute
	}
	view := promptRoute{
		Algorithm:        r.Algorithm,
		TripCount:        r.TripCount,
		TotalRevenue:     r.TotalRevenue,
		TotalDrivingTime: r.TotalDrivingTime,
		BreakTime:        r.BreakTime,
	}
	for i, loc := range r.Locations {
		if i == maxPromptEvents {
			view.Truncated = len(r.Locations) - maxPromptEvents
			break
		}
		view.Events = append(view.Events, promptEvent{
			Time:    loc.Time,
			Type:    loc.Type,
			TripID:  loc.TripID,
			Revenue: loc.Revenue,
			Lat:     loc.Lat,
			Lng:     loc.Lng,
		})
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return "", fmt.Errorf("encode route for prompt: %w", err)
	}
	return "Shift plan:\n" + string(raw), nil
}

func parseBriefing(text string) (*Briefing, error) {
	clean := cleanJSONString(text)
	var b Briefing
	if err := json.Unmarshal([]byte(clean), &b); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, clean)
	}
	if strings.TrimSpace(b.Summary) == "" {
		return nil, errors.New("briefing has no summary")
	}
	return &b, nil
}

// cleanJSONString removes markdown code fences if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
