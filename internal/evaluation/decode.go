package evaluation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chadiek/speaking-coach/internal/domain"
)

// FeedbackItems is the required number of positives and of negatives.
const FeedbackItems = 4

// Outcome is the result of decoding a model response. When OK is false,
// Raw holds the untouched response and Reason says what was wrong.
type Outcome struct {
	OK     bool
	Value  domain.Evaluation
	Raw    string
	Reason string
}

// rawEvaluation accepts any JSON number so integrality can be checked
// explicitly.
type rawEvaluation struct {
	IELTS *struct {
		Fluency       *float64 `json:"fluency"`
		Grammar       *float64 `json:"grammar"`
		Vocabulary    *float64 `json:"vocabulary"`
		Pronunciation *float64 `json:"pronunciation"`
		Overall       *float64 `json:"overall"`
	} `json:"ielts_ratings"`
	TOEFL *struct {
		Delivery         *float64 `json:"delivery"`
		LanguageUse      *float64 `json:"language_use"`
		TopicDevelopment *float64 `json:"topic_development"`
	} `json:"toefl_ratings"`
	Feedback *struct {
		Positives []string `json:"positives"`
		Negatives []string `json:"negatives"`
	} `json:"feedback"`
}

// StripFences removes a surrounding ```json ... ``` or ``` ... ``` wrapper.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string, e.g. "json"
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Decode parses and validates a model response. It never returns an error;
// failures are reported through Outcome.
func Decode(raw string) Outcome {
	fail := func(format string, args ...any) Outcome {
		return Outcome{Raw: raw, Reason: fmt.Sprintf(format, args...)}
	}

	var r rawEvaluation
	if err := json.Unmarshal([]byte(StripFences(raw)), &r); err != nil {
		return fail("invalid json: %v", err)
	}
	if r.IELTS == nil || r.TOEFL == nil || r.Feedback == nil {
		return fail("missing ielts_ratings, toefl_ratings or feedback")
	}

	var ev domain.Evaluation
	bands := []struct {
		name string
		v    *float64
		dst  *float64
	}{
		{"fluency", r.IELTS.Fluency, &ev.IELTS.Fluency},
		{"grammar", r.IELTS.Grammar, &ev.IELTS.Grammar},
		{"vocabulary", r.IELTS.Vocabulary, &ev.IELTS.Vocabulary},
		{"pronunciation", r.IELTS.Pronunciation, &ev.IELTS.Pronunciation},
		{"overall", r.IELTS.Overall, &ev.IELTS.Overall},
	}
	for _, b := range bands {
		if b.v == nil {
			return fail("ielts %s missing", b.name)
		}
		band, ok := snapBand(*b.v)
		if !ok {
			return fail("ielts %s %v outside 0-9", b.name, *b.v)
		}
		*b.dst = band
	}

	subs := []struct {
		name string
		v    *float64
		dst  *int
	}{
		{"delivery", r.TOEFL.Delivery, &ev.TOEFL.Delivery},
		{"language_use", r.TOEFL.LanguageUse, &ev.TOEFL.LanguageUse},
		{"topic_development", r.TOEFL.TopicDevelopment, &ev.TOEFL.TopicDevelopment},
	}
	for _, s := range subs {
		if s.v == nil {
			return fail("toefl %s missing", s.name)
		}
		if *s.v != math.Trunc(*s.v) || *s.v < 0 || *s.v > 4 {
			return fail("toefl %s %v is not an integer 0-4", s.name, *s.v)
		}
		*s.dst = int(*s.v)
	}
	ev.TOEFL.Overall = TOEFLOverall(ev.TOEFL.Delivery, ev.TOEFL.LanguageUse, ev.TOEFL.TopicDevelopment)

	pos, neg := r.Feedback.Positives, r.Feedback.Negatives
	if len(pos) != FeedbackItems || len(neg) != FeedbackItems {
		return fail("feedback needs %d positives and %d negatives, got %d and %d",
			FeedbackItems, FeedbackItems, len(pos), len(neg))
	}
	for _, item := range append(append([]string(nil), pos...), neg...) {
		if strings.TrimSpace(item) == "" {
			return fail("feedback contains a blank item")
		}
	}
	ev.Feedback = domain.Feedback{Positives: pos, Negatives: neg}

	return Outcome{OK: true, Value: ev, Raw: raw}
}

var half = decimal.NewFromFloat(0.5)

// snapBand rounds v to the nearest 0.5 band and checks the 0-9 range.
func snapBand(v float64) (float64, bool) {
	if math.IsNaN(v) || v < 0 || v > 9 {
		return 0, false
	}
	d := decimal.NewFromFloat(v).Div(half).Round(0).Mul(half)
	f, _ := d.Float64()
	return f, true
}

// TOEFLOverall derives the 0-120 overall from the three sub-scores,
// rounded to two decimals.
func TOEFLOverall(delivery, languageUse, topicDevelopment int) float64 {
	sum := decimal.NewFromInt(int64(delivery + languageUse + topicDevelopment))
	f, _ := sum.Div(decimal.NewFromInt(3)).Mul(decimal.NewFromInt(30)).Round(2).Float64()
	return f
}
