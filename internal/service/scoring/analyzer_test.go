package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusvoice/contenttrust/internal/config"
)

func TestAnalyzeEmptyInput(t *testing.T) {
	a := NewAnalyzer(config.DefaultThresholds())

	for _, text := range []string{"", "   ", "\n\t", "!!! ..."} {
		analysis := a.Analyze(text)
		assert.Zero(t, analysis.ProfanityScore, "input %q", text)
		assert.Zero(t, analysis.SpamScore, "input %q", text)
		assert.Zero(t, analysis.QualityScore, "input %q", text)
		assert.Zero(t, analysis.SentimentScore, "input %q", text)
		assert.False(t, analysis.AutoFlag, "input %q", text)
		assert.Empty(t, analysis.FlagReasons, "input %q", text)
	}
}

func TestAnalyzeDeterminism(t *testing.T) {
	a := NewAnalyzer(config.DefaultThresholds())
	text := "The lectures were engaging but the damn grading felt unfair. Visit my http://spam.example page!"

	first := a.Analyze(text)
	second := a.Analyze(text)
	assert.Equal(t, first, second)
}

func TestAnalyzePositiveReview(t *testing.T) {
	a := NewAnalyzer(config.DefaultThresholds())

	analysis := a.Analyze("Clear, fair, and genuinely helpful professor")
	assert.Greater(t, analysis.QualityScore, 0.7)
	assert.Greater(t, analysis.SentimentScore, 0.0)
	assert.False(t, analysis.AutoFlag)
	assert.Empty(t, analysis.FlagReasons)
}

func TestAnalyzeProfanity(t *testing.T) {
	a := NewAnalyzer(config.DefaultThresholds())

	analysis := a.Analyze("This fucking class was shit from start to finish")
	assert.True(t, analysis.IsProfane)
	assert.True(t, analysis.AutoFlag)
	assert.Contains(t, analysis.FlagReasons, ReasonProfanity)
	assert.NotEmpty(t, analysis.CleanedText)
	assert.NotContains(t, analysis.CleanedText, "fucking")
	assert.Contains(t, analysis.CleanedText, "f******")
}

func TestAnalyzeSpam(t *testing.T) {
	a := NewAnalyzer(config.DefaultThresholds())

	analysis := a.Analyze("Click here http://a.example http://b.example buy now limited time offer")
	assert.True(t, analysis.IsSpam)
	assert.True(t, analysis.AutoFlag)
	assert.Contains(t, analysis.FlagReasons, ReasonSpam)
	assert.LessOrEqual(t, analysis.SpamScore, 1.0)
}

func TestAnalyzeLowEffort(t *testing.T) {
	a := NewAnalyzer(config.DefaultThresholds())

	tests := []struct {
		name string
		text string
	}{
		{"placeholder body", "n/a"},
		{"single word", "terrible"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := a.Analyze(tt.text)
			assert.LessOrEqual(t, analysis.QualityScore, 0.2)
			assert.True(t, analysis.AutoFlag)
			assert.Contains(t, analysis.FlagReasons, ReasonLowQuality)
		})
	}
}

func TestAnalyzeNegativeSentiment(t *testing.T) {
	a := NewAnalyzer(config.DefaultThresholds())

	analysis := a.Analyze("Horrible awful terrible rude and condescending lectures, avoid this course")
	assert.Negative(t, analysis.SentimentScore)
	assert.True(t, analysis.AutoFlag)
	assert.Contains(t, analysis.FlagReasons, ReasonNegSentiment)
}

func TestThresholdsReload(t *testing.T) {
	a := NewAnalyzer(config.DefaultThresholds())
	text := "The damn syllabus was unclear but the professor explained the material well enough over the semester"

	before := a.Analyze(text)
	assert.False(t, before.IsProfane)

	// a stricter profanity cut-off flips the same text to profane
	strict := a.Thresholds()
	strict.Profanity = 0.01
	a.SetThresholds(strict)

	after := a.Analyze(text)
	assert.True(t, after.IsProfane)
	assert.Contains(t, after.FlagReasons, ReasonProfanity)
	assert.Equal(t, before.ProfanityScore, after.ProfanityScore)
}

func TestScoreRanges(t *testing.T) {
	a := NewAnalyzer(config.DefaultThresholds())

	texts := []string{
		"ok",
		"Great class with fair exams and clear lectures",
		"shit shit shit shit shit",
		"BUY NOW CLICK HERE http://x.example http://y.example http://z.example dm me follow me",
	}
	for _, text := range texts {
		analysis := a.Analyze(text)
		assert.GreaterOrEqual(t, analysis.ProfanityScore, 0.0)
		assert.LessOrEqual(t, analysis.ProfanityScore, 1.0)
		assert.GreaterOrEqual(t, analysis.SpamScore, 0.0)
		assert.LessOrEqual(t, analysis.SpamScore, 1.0)
		assert.GreaterOrEqual(t, analysis.QualityScore, 0.0)
		assert.LessOrEqual(t, analysis.QualityScore, 1.0)
		assert.GreaterOrEqual(t, analysis.SentimentScore, -1.0)
		assert.LessOrEqual(t, analysis.SentimentScore, 1.0)
	}
}
