package evaluation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_WellFormed(t *testing.T) {
	out := Decode(wellFormed)
	require.True(t, out.OK, out.Reason)
	assert.Equal(t, 6.5, out.Value.IELTS.Overall)
	assert.Equal(t, 7.0, out.Value.IELTS.Vocabulary)
	assert.Equal(t, 3, out.Value.TOEFL.LanguageUse)
	assert.Equal(t, 80.0, out.Value.TOEFL.Overall)
	assert.Len(t, out.Value.Feedback.Positives, 4)
	assert.Equal(t, "Past tense slips.", out.Value.Feedback.Negatives[3])
}

func TestDecode_FencedMatchesPlain(t *testing.T) {
	plain := Decode(wellFormed)
	for name, in := range map[string]string{
		"json fence":      "```json\n" + wellFormed + "\n```",
		"bare fence":      "```\n" + wellFormed + "\n```",
		"padded":          "\n  ```json\n" + wellFormed + "```  \n",
	} {
		t.Run(name, func(t *testing.T) {
			out := Decode(in)
			require.True(t, out.OK, out.Reason)
			assert.Equal(t, plain.Value, out.Value)
		})
	}
}

func TestDecode_RecomputesTOEFLOverall(t *testing.T) {
	in := strings.Replace(wellFormed, `"overall": 80`, `"overall": 117`, 1)
	out := Decode(in)
	require.True(t, out.OK)
	assert.Equal(t, 80.0, out.Value.TOEFL.Overall)
}

func TestDecode_SnapsIELTSBands(t *testing.T) {
	in := strings.Replace(wellFormed, `"grammar": 6,`, `"grammar": 6.3,`, 1)
	out := Decode(in)
	require.True(t, out.OK)
	assert.Equal(t, 6.5, out.Value.IELTS.Grammar)
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"prose":           "The student did quite well overall, I would say a 6.5.",
		"few positives":   strings.Replace(wellFormed, `"Clear opening.", `, "", 1),
		"five negatives":  strings.Replace(wellFormed, `"Some article errors.",`, `"Extra.", "Some article errors.",`, 1),
		"ielts range":     strings.Replace(wellFormed, `"vocabulary": 7`, `"vocabulary": 9.5`, 1),
		"toefl fraction":  strings.Replace(wellFormed, `"delivery": 3`, `"delivery": 2.5`, 1),
		"toefl range":     strings.Replace(wellFormed, `"delivery": 3`, `"delivery": 5`, 1),
		"missing field":   strings.Replace(wellFormed, `"pronunciation": 6.5, `, "", 1),
		"missing block":   `{"ielts_ratings": {}, "feedback": {"positives": [], "negatives": []}}`,
		"blank feedback":  strings.Replace(wellFormed, `"Some article errors."`, `"   "`, 1),
		"empty positives": strings.Replace(wellFormed, `"Clear opening.", "Good linking words.", "Natural pace.", "Relevant examples."`, `"", "", "", ""`, 1),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			out := Decode(in)
			assert.False(t, out.OK)
			assert.Equal(t, in, out.Raw)
			assert.NotEmpty(t, out.Reason)
		})
	}
}

func TestTOEFLOverall(t *testing.T) {
	assert.Equal(t, 120.0, TOEFLOverall(4, 4, 4))
	assert.Equal(t, 0.0, TOEFLOverall(0, 0, 0))
	assert.Equal(t, 70.0, TOEFLOverall(2, 2, 3))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripFences(` {"a":1} `))
}
