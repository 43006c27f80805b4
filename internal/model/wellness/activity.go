package wellness

// Activity is one stress-relief exercise offered next to the chat.
type Activity struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Instruction  string   `json:"instruction,omitempty"`
	Cycles       int      `json:"cycles,omitempty"`       // 引导次数
	CycleSeconds int      `json:"cycleSeconds,omitempty"` // 每次时长（秒）
	Prompts      []string `json:"prompts,omitempty"`
}

// Seed provides the default stress-relief catalogue.
func Seed() []Activity {
	return []Activity{
		{
			ID:           "breathing",
			Title:        "Breathing Exercise",
			Summary:      "Guided breathing to calm your mind",
			Instruction:  "Inhale as it expands, exhale as it contracts",
			Cycles:       5,
			CycleSeconds: 4,
		},
		{
			ID:      "mindfulness",
			Title:   "Mindfulness Prompts",
			Summary: "Simple exercises to ground yourself",
			Prompts: []string{
				"Take 3 deep breaths and notice how your body feels",
				"Name 5 things you can see right now",
				"What are 3 things you're grateful for today?",
				"Place your hand on your heart and feel it beating",
				"Remember: This feeling is temporary, and you are strong",
			},
		},
		{
			ID:      "affirmations",
			Title:   "Positive Affirmations",
			Summary: "Uplifting messages for your wellbeing",
			Prompts: []string{
				"I am worthy of love and respect",
				"I choose to focus on what I can control",
				"I am doing my best, and that is enough",
				"This too shall pass",
				"I am stronger than my challenges",
			},
		},
	}
}
