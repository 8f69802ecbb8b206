package evaluation

import (
	"fmt"
	"strings"

	"github.com/chadiek/speaking-coach/internal/domain"
)

// FormatTranscript renders messages as "ROLE: content" blocks separated by a
// blank line, in conversation order.
func FormatTranscript(messages []domain.SavedMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(string(m.Role)), m.Content))
	}
	return strings.Join(lines, "\n\n")
}

const rubric = `Rate the STUDENT (the USER lines) on two scales.

IELTS speaking, each score from 0 to 9 in steps of 0.5:
- fluency: fluency and coherence
- grammar: grammatical range and accuracy
- vocabulary: lexical resource
- pronunciation: pronunciation
- overall: the overall band

TOEFL speaking, each sub-score an integer from 0 to 4:
- delivery
- language_use
- topic_development
- overall: ((delivery + language_use + topic_development) / 3) * 30

Feedback: exactly 4 positives and exactly 4 negatives, each one short sentence
addressed to the student.

Respond with a single JSON object and nothing else: no prose, no markdown, no
code fences. Use exactly this shape:
{
  "ielts_ratings": {"fluency": 0, "grammar": 0, "vocabulary": 0, "pronunciation": 0, "overall": 0},
  "toefl_ratings": {"delivery": 0, "language_use": 0, "topic_development": 0, "overall": 0},
  "feedback": {"positives": ["", "", "", ""], "negatives": ["", "", "", ""]}
}`

// BuildPrompt embeds the transcript and target level in the rating rubric.
func BuildPrompt(messages []domain.SavedMessage, level string) string {
	var b strings.Builder
	b.WriteString("You are an experienced IELTS and TOEFL speaking examiner.\n")
	fmt.Fprintf(&b, "The student is practicing at target level %s.\n\n", level)
	b.WriteString("Conversation transcript:\n\n")
	b.WriteString(FormatTranscript(messages))
	b.WriteString("\n\n")
	b.WriteString(rubric)
	return b.String()
}
