package voice

import "strings"

// AssistantConfig describes the examiner the voice service should run.
// Text fields may contain {{level}} placeholders.
type AssistantConfig struct {
	Name         string            `json:"name"`
	FirstMessage string            `json:"firstMessage"`
	SystemPrompt string            `json:"systemPrompt"`
	Model        ModelConfig       `json:"model"`
	Voice        VoiceConfig       `json:"voice"`
	Transcriber  TranscriberConfig `json:"transcriber"`
}

type ModelConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

type VoiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type TranscriberConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// Overrides are per-call values substituted by the voice service.
type Overrides struct {
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// LevelOverrides returns the overrides carrying the target level.
func LevelOverrides(level string) Overrides {
	return Overrides{VariableValues: map[string]string{"level": level}}
}

const examinerPrompt = `You are a friendly but rigorous speaking examiner running a practice test in the style of the IELTS and TOEFL speaking sections.
The candidate's target level is {{level}}.

Run the test in three parts:
1. Introduction: ask a few short questions about the candidate's home, work or studies.
2. Long turn: give the candidate a topic and ask them to talk about it for one to two minutes.
3. Discussion: ask follow-up questions that explore the topic in more abstract terms.

Adjust the difficulty of your questions to level {{level}}.
Ask one question at a time and keep your own turns short. Do not correct the candidate or give scores during the test.
When the discussion is finished, thank the candidate and say goodbye.`

// DefaultAssistant returns the examiner used for practice calls.
func DefaultAssistant() AssistantConfig {
	return AssistantConfig{
		Name:         "Speaking Examiner",
		FirstMessage: "Hello, and welcome to your {{level}} speaking practice. Could you tell me your full name, please?",
		SystemPrompt: examinerPrompt,
		Model:        ModelConfig{Provider: "google", Model: "gemini-2.0-flash", Temperature: 0.7},
		Voice:        VoiceConfig{Provider: "11labs", VoiceID: "sarah"},
		Transcriber:  TranscriberConfig{Provider: "deepgram", Model: "nova-2", Language: "en"},
	}
}

// Render substitutes {{level}} in every text field.
func (a AssistantConfig) Render(level string) AssistantConfig {
	r := strings.NewReplacer("{{level}}", level, "{{ level }}", level)
	a.Name = r.Replace(a.Name)
	a.FirstMessage = r.Replace(a.FirstMessage)
	a.SystemPrompt = r.Replace(a.SystemPrompt)
	return a
}
