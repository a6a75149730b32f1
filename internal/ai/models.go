package ai

// Briefing captures the structured output of the model.
type Briefing struct {
	// Summary is a two or three sentence overview of the shift.
	Summary string `json:"summary"`

	// Highlights name the most lucrative trips or stretches of the shift.
	Highlights []string `json:"highlights"`

	// Tips are practical reminders such as when to head out after the break.
	Tips []string `json:"tips,omitempty"`
}
