package store

import "time"

// Experience is a single interview experience record, the unit the
// retrieval engine indexes. Immutable once fetched for an indexing pass.
type Experience struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	Role        string `json:"role"`

	InterviewYear  int `json:"interview_year"`
	InterviewMonth int `json:"interview_month,omitempty"`

	// Optional fields: empty string / zero means absent
	OfferStatus       string `json:"offer_status,omitempty"`
	DifficultyLevel   int    `json:"difficulty_level,omitempty"` // 1..5
	OverallExperience string `json:"overall_experience,omitempty"`
	PreparationTime   string `json:"preparation_time,omitempty"`
	Tips              string `json:"tips,omitempty"`
	ResourcesUsed     string `json:"resources_used,omitempty"`
	College           string `json:"college,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	Rounds    []InterviewRound `json:"rounds,omitempty"`
	Questions []Question       `json:"questions,omitempty"`
}

// InterviewRound is one stage of an interview process
type InterviewRound struct {
	RoundNumber     int    `json:"round_number"`
	RoundType       string `json:"round_type"`
	RoundName       string `json:"round_name,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Mode            string `json:"mode,omitempty"`
	Description     string `json:"description,omitempty"`
	Difficulty      int    `json:"difficulty,omitempty"`
}

// Question is a single question asked during an interview
type Question struct {
	QuestionText   string `json:"question_text"`
	QuestionType   string `json:"question_type,omitempty"`
	Topic          string `json:"topic,omitempty"`
	Subtopic       string `json:"subtopic,omitempty"`
	Difficulty     int    `json:"difficulty,omitempty"`
	AnswerApproach string `json:"answer_approach,omitempty"`
	Tags           string `json:"tags,omitempty"`
}

// StatusApproved marks records eligible for indexing
const StatusApproved = "approved"
