package models

import "time"

// Analysis holds the risk/quality signals produced by the scoring engine for
// one piece of text. Scores are deterministic for a given input and
// threshold set.
type Analysis struct {
	ProfanityScore float64  `json:"profanity_score"` // [0,1]
	SpamScore      float64  `json:"spam_score"`      // [0,1]
	QualityScore   float64  `json:"quality_score"`   // [0,1]
	SentimentScore float64  `json:"sentiment_score"` // [-1,1]
	IsProfane      bool     `json:"is_profane"`
	IsSpam         bool     `json:"is_spam"`
	AutoFlag       bool     `json:"auto_flag"`
	FlagReasons    []string `json:"flag_reasons,omitempty"`
	CleanedText    string   `json:"cleaned_text,omitempty"`
}

// AnalysisLog is the immutable record of one scoring invocation, kept for
// audit and later re-scoring.
type AnalysisLog struct {
	ID        string    `json:"id"`
	ContentID string    `json:"content_id"`
	Analysis  Analysis  `json:"analysis"`
	CreatedAt time.Time `json:"created_at"`
}
