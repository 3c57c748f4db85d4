package scoring

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/campusvoice/contenttrust/internal/config"
	"github.com/campusvoice/contenttrust/internal/models"
)

// Named reasons appended when a threshold is breached. The ordering of
// checks is fixed so the reason list is deterministic and explainable.
const (
	ReasonProfanity    = "profanity_threshold_exceeded"
	ReasonSpam         = "spam_threshold_exceeded"
	ReasonLowQuality   = "quality_below_floor"
	ReasonNegSentiment = "sentiment_below_floor"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// Analyzer turns raw text into risk/quality signals and an auto-flag
// decision. It is a pure function of its input and the current thresholds;
// thresholds may be swapped at runtime via SetThresholds.
type Analyzer struct {
	mu         sync.RWMutex
	thresholds config.Thresholds
}

// NewAnalyzer creates an analyzer with the given thresholds.
func NewAnalyzer(t config.Thresholds) *Analyzer {
	return &Analyzer{thresholds: t}
}

// SetThresholds replaces the scoring cut-offs. Safe for concurrent use.
func (a *Analyzer) SetThresholds(t config.Thresholds) {
	a.mu.Lock()
	a.thresholds = t
	a.mu.Unlock()
}

// Thresholds returns the current cut-offs.
func (a *Analyzer) Thresholds() config.Thresholds {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.thresholds
}

// Tokenize splits free-form text into lower-cased tokens, stripping
// punctuation, so tokens can be matched against the lexicons.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(nonTokenChars.ReplaceAllString(text, " ")))
}

// Analyze scores the given text. Empty input yields all-neutral scores and
// no auto-flag.
func (a *Analyzer) Analyze(text string) models.Analysis {
	t := a.Thresholds()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.Analysis{}
	}
	tokens := Tokenize(trimmed)
	if len(tokens) == 0 {
		return models.Analysis{}
	}

	analysis := models.Analysis{
		ProfanityScore: profanityScore(tokens),
		SpamScore:      spamScore(trimmed),
		QualityScore:   qualityScore(trimmed, tokens),
		SentimentScore: sentimentScore(tokens),
	}
	analysis.IsProfane = analysis.ProfanityScore >= t.Profanity
	analysis.IsSpam = analysis.SpamScore >= t.Spam
	if analysis.IsProfane {
		analysis.CleanedText = censor(trimmed)
	}

	if analysis.IsProfane {
		analysis.AutoFlag = true
		analysis.FlagReasons = append(analysis.FlagReasons, ReasonProfanity)
	}
	if analysis.IsSpam {
		analysis.AutoFlag = true
		analysis.FlagReasons = append(analysis.FlagReasons, ReasonSpam)
	}
	if analysis.QualityScore <= t.QualityFloor {
		analysis.AutoFlag = true
		analysis.FlagReasons = append(analysis.FlagReasons, ReasonLowQuality)
	}
	if analysis.SentimentScore <= t.SentimentFloor {
		analysis.AutoFlag = true
		analysis.FlagReasons = append(analysis.FlagReasons, ReasonNegSentiment)
	}
	return analysis
}

// profanityScore is the fraction of tokens matching the profanity lexicon.
func profanityScore(tokens []string) float64 {
	matched := 0
	for _, tok := range tokens {
		if _, ok := profanityLexicon[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// spamScore is a normalized count of matches against the spam pattern set:
// links, shouting (capitals or character runs), and templated phrases.
func spamScore(text string) float64 {
	matches := len(linkPattern.FindAllString(text, -1))
	matches += countRepeatRuns(text)
	if capsRatio(text) > 0.6 {
		matches++
	}
	lower := strings.ToLower(text)
	for _, phrase := range spamPhrases {
		if strings.Contains(lower, phrase) {
			matches++
		}
	}
	score := float64(matches) / 4.0
	if score > 1 {
		score = 1
	}
	return score
}

func capsRatio(text string) float64 {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < 20 {
		return 0
	}
	return float64(upper) / float64(letters)
}

// qualityScore rewards length and substantive course-specific vocabulary and
// penalizes low-effort bodies.
func qualityScore(text string, tokens []string) float64 {
	if _, ok := lowEffortBodies[strings.ToLower(strings.TrimSpace(text))]; ok {
		return 0.1
	}
	if len(tokens) == 1 {
		return 0.1
	}

	score := 0.5
	if len(text) >= 40 {
		score += 0.2
	}
	if len(text) >= 120 {
		score += 0.1
	}
	for _, tok := range tokens {
		if _, ok := substantiveLexicon[tok]; ok {
			score += 0.2
			break
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// sentimentScore is the normalized polarity-lexicon sum in [-1,1].
func sentimentScore(tokens []string) float64 {
	pos, neg := 0, 0
	for _, tok := range tokens {
		if _, ok := positiveLexicon[tok]; ok {
			pos++
		}
		if _, ok := negativeLexicon[tok]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// censor masks profane tokens in the original text, preserving the first
// character of each.
func censor(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		tok := strings.ToLower(nonTokenChars.ReplaceAllString(f, ""))
		if _, ok := profanityLexicon[tok]; ok {
			fields[i] = string([]rune(f)[0]) + strings.Repeat("*", len([]rune(f))-1)
		}
	}
	return strings.Join(fields, " ")
}
