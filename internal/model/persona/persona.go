package persona

// Snapshot is an immutable view of a CEO profile at the moment a prompt
// context is assembled. The profile store owns the data; the core only
// reads a copy. Optional fields are empty when the profile has no value,
// not placeholder text.
type Snapshot struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Company           string   `json:"company,omitempty"`
	Position          string   `json:"position,omitempty"`
	Bio               string   `json:"bio,omitempty"`
	DocumentSummaries []string `json:"documentSummaries,omitempty"`
	InterviewExcerpts []string `json:"interviewExcerpts,omitempty"`
	// VoiceID names the synthesis voice cloned from the profile's voice
	// sample. Empty means the persona replies in text only.
	VoiceID string `json:"voiceId,omitempty"`
}

// HasVoice reports whether replies should be rendered to audio.
func (s Snapshot) HasVoice() bool {
	return s.VoiceID != ""
}

// Seed provides default demo personas for development deployments.
func Seed() []Snapshot {
	return []Snapshot{
		{
			ID:       "aya-morikawa",
			Name:     "Aya Morikawa",
			Company:  "Morikawa Robotics",
			Position: "Chief Executive Officer",
			Bio:      "Founded Morikawa Robotics in 2011 after a decade in industrial automation. Took the company public in 2019 and led its expansion into warehouse logistics across Asia.",
			DocumentSummaries: []string{
				"FY2024 shareholder letter: double-digit revenue growth driven by the logistics division, continued investment in autonomous picking.",
				"Mid-term strategy deck: three-pillar plan covering robotics-as-a-service, overseas expansion, and an internal AI platform.",
			},
			InterviewExcerpts: []string{
				"We never automate for automation's sake. Every robot we ship has to give a worker their evening back.",
			},
			VoiceID: "voice-morikawa-01",
		},
		{
			ID:       "daniel-okafor",
			Name:     "Daniel Okafor",
			Company:  "Brightline Energy",
			Position: "CEO & Co-founder",
			Bio:      "Former grid engineer who co-founded Brightline to bring distributed solar storage to emerging markets.",
			InterviewExcerpts: []string{
				"Capital follows reliability. Prove the grid holds through one bad season and the financing conversation changes completely.",
			},
		},
	}
}
