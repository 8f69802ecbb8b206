package evaluation

const wellFormed = `{
  "ielts_ratings": {"fluency": 6.5, "grammar": 6, "vocabulary": 7, "pronunciation": 6.5, "overall": 6.5},
  "toefl_ratings": {"delivery": 3, "language_use": 3, "topic_development": 2, "overall": 80},
  "feedback": {
    "positives": ["Clear opening.", "Good linking words.", "Natural pace.", "Relevant examples."],
    "negatives": ["Some article errors.", "Limited idioms.", "Short answers.", "Past tense slips."]
  }
}`
