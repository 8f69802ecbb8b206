package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_SubscribeEmitUnsubscribe(t *testing.T) {
	h := NewHub()
	var got []string
	u1 := h.Subscribe(EventSpeechStart, func(Event) { got = append(got, "a") })
	u2 := h.Subscribe(EventSpeechStart, func(Event) { got = append(got, "b") })
	h.Subscribe(EventSpeechEnd, func(Event) { got = append(got, "other") })

	h.Emit(Event{Type: EventSpeechStart})
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 3, h.Count())

	u1()
	u1()
	h.Emit(Event{Type: EventSpeechStart})
	assert.Equal(t, []string{"a", "b", "b"}, got)
	u2()
	assert.Equal(t, 1, h.Count())
}

func TestAssistantRender(t *testing.T) {
	a := DefaultAssistant().Render("C1")
	assert.NotContains(t, a.SystemPrompt, "{{level}}")
	assert.Contains(t, a.SystemPrompt, "target level is C1")
	assert.Contains(t, a.FirstMessage, "C1 speaking practice")
}
