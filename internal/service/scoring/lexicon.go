package scoring

import "regexp"

// Lexicons and pattern sets backing the analyzer. These are deliberately
// small, reviewable lists rather than a learned model: every score must be
// explainable from a named list or pattern.

var profanityLexicon = map[string]struct{}{
	"ass": {}, "asshole": {}, "bastard": {}, "bitch": {}, "bullshit": {},
	"crap": {}, "damn": {}, "dick": {}, "douche": {}, "fuck": {},
	"fucking": {}, "hell": {}, "idiot": {}, "jackass": {}, "moron": {},
	"piss": {}, "prick": {}, "shit": {}, "shitty": {}, "slut": {},
	"stupid": {}, "trash": {}, "whore": {},
}

// Tokens counted as positive/negative by the polarity lexicon.
var positiveLexicon = map[string]struct{}{
	"amazing": {}, "awesome": {}, "best": {}, "brilliant": {}, "caring": {},
	"clear": {}, "dedicated": {}, "engaging": {}, "excellent": {}, "fair": {},
	"fantastic": {}, "friendly": {}, "fun": {}, "generous": {}, "genuinely": {},
	"good": {}, "great": {}, "helpful": {}, "inspiring": {}, "interesting": {},
	"kind": {}, "knowledgeable": {}, "love": {}, "loved": {}, "organized": {},
	"passionate": {}, "patient": {}, "recommend": {}, "respectful": {},
	"supportive": {}, "thoughtful": {}, "understanding": {}, "wonderful": {},
}

var negativeLexicon = map[string]struct{}{
	"arrogant": {}, "avoid": {}, "awful": {}, "bad": {}, "boring": {},
	"condescending": {}, "confusing": {}, "cruel": {}, "disappointing": {},
	"dismissive": {}, "disorganized": {}, "dreadful": {}, "harsh": {},
	"hate": {}, "hated": {}, "horrible": {}, "lazy": {}, "mean": {},
	"nightmare": {}, "pointless": {}, "rude": {}, "terrible": {},
	"unclear": {}, "unfair": {}, "unhelpful": {}, "unprepared": {},
	"useless": {}, "waste": {}, "worst": {},
}

// Tokens that indicate substantive review content (course mechanics,
// teaching specifics) rather than a bare opinion.
var substantiveLexicon = map[string]struct{}{
	"assignment": {}, "assignments": {}, "attendance": {}, "class": {},
	"course": {}, "curve": {}, "exam": {}, "exams": {}, "feedback": {},
	"grading": {}, "homework": {}, "lecture": {}, "lectures": {},
	"material": {}, "midterm": {}, "notes": {}, "office": {}, "professor": {},
	"project": {}, "quiz": {}, "quizzes": {}, "reading": {}, "semester": {},
	"syllabus": {}, "teaching": {}, "textbook": {},
}

// Low-effort bodies that cap quality regardless of other signals.
var lowEffortBodies = map[string]struct{}{
	"n/a": {}, "na": {}, "none": {}, "idk": {}, "nothing": {}, "meh": {},
	"ok": {}, "fine": {}, "good": {}, "bad": {},
}

var linkPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// countRepeatRuns counts runs of the same character repeated six or more
// times (e.g. "!!!!!!", "aaaaaa"), which read as shouting. Equivalent to
// matching `(.)\1{5,}`, written as a scan because Go's regexp engine does
// not support backreferences; like `.`, newlines never form a run.
func countRepeatRuns(text string) int {
	runs := 0
	var prev rune
	length := 0
	for _, r := range text {
		if r == prev && r != '\n' {
			length++
			if length == 6 {
				runs++
			}
			continue
		}
		prev = r
		length = 1
	}
	return runs
}

// Templated phrases seen in bulk-submitted spam.
var spamPhrases = []string{
	"click here",
	"buy now",
	"limited time offer",
	"visit my",
	"check out my",
	"make money",
	"free gift",
	"dm me",
	"follow me",
	"subscribe to",
}
