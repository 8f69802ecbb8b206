package suggestion

import (
	"fmt"
	"strings"

	"github.com/chadiek/speaking-coach/internal/domain"
)

const notProvided = "Not provided"

// BuildPrompt asks the model for one natural answer the learner could give to
// the examiner's latest utterance, pitched at level and personalized with
// whatever profile fields are known.
func BuildPrompt(level, examinerUtterance string, profile *domain.Profile) string {
	var p domain.Profile
	if profile != nil {
		p = *profile
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are helping a student practice for a speaking proficiency test (IELTS/TOEFL style).\n")
	fmt.Fprintf(&b, "The student's target level is %s.\n\n", orNotProvided(level))
	fmt.Fprintf(&b, "The examiner just said:\n\"%s\"\n\n", strings.TrimSpace(examinerUtterance))
	b.WriteString("What we know about the student:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orNotProvided(p.Name))
	fmt.Fprintf(&b, "- Age: %s\n", orNotProvided(p.Age))
	fmt.Fprintf(&b, "- Occupation: %s\n", orNotProvided(p.Occupation))
	fmt.Fprintf(&b, "- Country: %s\n", orNotProvided(p.Country))
	fmt.Fprintf(&b, "- Native language: %s\n", orNotProvided(p.NativeLanguage))
	fmt.Fprintf(&b, "- Interests: %s\n", orNotProvided(p.Interests))
	fmt.Fprintf(&b, "- Goal: %s\n\n", orNotProvided(p.Goal))
	b.WriteString("Write one example answer the student could say next, in the first person, ")
	b.WriteString("using vocabulary and grammar appropriate for the target level. ")
	b.WriteString("Where a detail is not provided, invent a plausible one. ")
	b.WriteString("Reply with the answer only: no preamble, no quotes, no markdown.")
	return b.String()
}

func orNotProvided(v string) string {
	if strings.TrimSpace(v) == "" {
		return notProvided
	}
	return strings.TrimSpace(v)
}
