// Package domain holds the types shared by the call orchestrator, the
// evaluation pipeline and the session store.
package domain

import "time"

// CallStatus is the lifecycle state of one voice call.
type CallStatus string

const (
	CallInactive   CallStatus = "inactive"
	CallConnecting CallStatus = "connecting"
	CallActive     CallStatus = "active"
	CallFinished   CallStatus = "finished"
)

// Role identifies who produced a transcript segment.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two conversation roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// SavedMessage is one finalized utterance of the conversation.
type SavedMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Profile is the optional learner context used to personalize suggestions.
type Profile struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name,omitempty"`
	Age            string `json:"age,omitempty"`
	Occupation     string `json:"occupation,omitempty"`
	Country        string `json:"country,omitempty"`
	NativeLanguage string `json:"native_language,omitempty"`
	Interests      string `json:"interests,omitempty"`
	Goal           string `json:"goal,omitempty"`
}

// IELTSRatings uses the 0-9 band scale in 0.5 steps.
type IELTSRatings struct {
	Fluency       float64 `json:"fluency"`
	Grammar       float64 `json:"grammar"`
	Vocabulary    float64 `json:"vocabulary"`
	Pronunciation float64 `json:"pronunciation"`
	Overall       float64 `json:"overall"`
}

// TOEFLRatings has integer 0-4 sub-scores and an overall on the 0-120 scale.
type TOEFLRatings struct {
	Delivery         int     `json:"delivery"`
	LanguageUse      int     `json:"language_use"`
	TopicDevelopment int     `json:"topic_development"`
	Overall          float64 `json:"overall"`
}

// Feedback holds exactly four positive and four negative observations.
type Feedback struct {
	Positives []string `json:"positives"`
	Negatives []string `json:"negatives"`
}

// Evaluation is the structured rating of one session.
type Evaluation struct {
	IELTS    IELTSRatings `json:"ielts_ratings"`
	TOEFL    TOEFLRatings `json:"toefl_ratings"`
	Feedback Feedback     `json:"feedback"`
}

// Session is the persisted practice session. Ratings are nil until the
// session has been evaluated.
type Session struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Level       string        `json:"level"`
	CreatedAt   time.Time     `json:"created_at"`
	IELTSRating *IELTSRatings `json:"ielts_rating,omitempty"`
	TOEFLRating *TOEFLRatings `json:"toefl_rating,omitempty"`
	Feedback    *Feedback     `json:"feedback,omitempty"`
}

// Evaluated reports whether ratings have been attached.
func (s *Session) Evaluated() bool {
	return s != nil && s.IELTSRating != nil && s.TOEFLRating != nil && s.Feedback != nil
}
