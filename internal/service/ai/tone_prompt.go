package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
)

// ToneTemplate defines the system instruction used for one sentiment.
type ToneTemplate struct {
	Role         string
	Situation    string
	Instructions []string
	Length       string
}

// TonePromptManager maps sentiment labels to tone directives.
type TonePromptManager struct {
	templates map[chat.SentimentLabel]*ToneTemplate
}

// NewTonePromptManager creates a prompt manager with the default directives.
func NewTonePromptManager() *TonePromptManager {
	manager := &TonePromptManager{
		templates: make(map[chat.SentimentLabel]*ToneTemplate),
	}
	manager.loadDefaultTemplates()
	return manager
}

// Template returns the directive for label. Labels outside the closed set get the neutral one.
func (pm *TonePromptManager) Template(label chat.SentimentLabel) *ToneTemplate {
	if template, ok := pm.templates[label]; ok {
		return template
	}
	return pm.templates[chat.Neutral]
}

// BuildSystemPrompt renders the system instruction for label.
func (pm *TonePromptManager) BuildSystemPrompt(label chat.SentimentLabel) string {
	template := pm.Template(label)

	var builder strings.Builder
	builder.WriteString(template.Role)
	if template.Situation != "" {
		builder.WriteString("\n")
		builder.WriteString(template.Situation)
	}
	if len(template.Instructions) > 0 {
		builder.WriteString("\n")
		builder.WriteString(strings.Join(template.Instructions, " "))
	}
	builder.WriteString(fmt.Sprintf(" %s", template.Length))
	return builder.String()
}

func (pm *TonePromptManager) loadDefaultTemplates() {
	pm.templates[chat.Negative] = &ToneTemplate{
		Role:      "You are CompanionBot, an empathetic mental health support chatbot.",
		Situation: "The user is expressing negative emotions. Respond with warmth, understanding, and supportive guidance.",
		Instructions: []string{
			"Be compassionate, validate their feelings, and offer gentle encouragement.",
			"If they seem in distress, suggest simple coping strategies like breathing exercises or mindfulness.",
		},
		Length: "Keep responses concise (2-3 sentences).",
	}

	pm.templates[chat.Positive] = &ToneTemplate{
		Role:      "You are CompanionBot, a supportive mental health chatbot.",
		Situation: "The user is expressing positive emotions. Celebrate with them, reinforce their positive mindset, and encourage them to maintain their well-being.",
		Length:    "Keep responses warm and concise (2-3 sentences).",
	}

	pm.templates[chat.Neutral] = &ToneTemplate{
		Role: "You are CompanionBot, a friendly mental health support chatbot.",
		Instructions: []string{
			"Respond with warmth and understanding.",
			"Ask thoughtful questions to better understand their state of mind.",
		},
		Length: "Keep responses concise (2-3 sentences).",
	}
}
