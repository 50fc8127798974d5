package abuse

import (
	"regexp"
	"strings"
	"unicode"
)

// Category labels the kind of abuse detected in a message. The zero value
// means no category was assigned (clean message).
type Category string

const (
	CategoryThreat           Category = "THREAT"
	CategoryMentalHarassment Category = "MENTAL_HARASSMENT"
	CategoryBlackmail        Category = "BLACKMAIL"
	CategoryExploitation     Category = "EXPLOITATION"
	CategorySexualHarassment Category = "SEXUAL_HARASSMENT"
	CategoryCyberbullying    Category = "CYBERBULLYING"
)

// AbusiveThreshold is the score at or above which a message counts as abusive.
const AbusiveThreshold = 4.0

// Result carries the outcome of analyzing one message. It lives for a single
// dispatch cycle; only Score and Category flow into the stored message row.
type Result struct {
	IsAbusive        bool
	Score            float64
	Category         Category // empty unless IsAbusive
	DetectedKeywords []string
	DetectedPatterns []string
	CapsRatio        float64
	PunctRatio       float64
}

type weightedKeyword struct {
	word   string
	weight float64
}

// Keyword weights are ordered so repeated analysis of the same text yields
// evidence lists in the same order.
var keywordWeights = []weightedKeyword{
	// High severity
	{"hate", 9.0},
	{"kill", 10.0},
	{"die", 9.0},
	{"death", 8.5},
	{"murder", 10.0},
	{"suicide", 9.5},

	// Medium-high severity
	{"bitch", 7.0},
	{"fuck", 6.5},
	{"shit", 6.0},
	{"damn", 5.5},
	{"hell", 5.0},
	{"bastard", 7.5},
	{"asshole", 7.0},

	// Medium severity
	{"stupid", 4.5},
	{"idiot", 5.0},
	{"loser", 4.0},
	{"ugly", 3.5},
	{"fat", 3.0},
	{"worthless", 6.0},

	// Harassment phrasing
	{"nobody likes you", 8.0},
	{"everyone hates you", 8.5},
	{"you should", 7.0},
	{"go away", 4.0},
	{"shut up", 5.0},
}

// Coercive phrases all score a flat 7.0: solicitation, extortion, self-harm
// incitement and explicit threats.
var coercivePhrases = []string{
	"send me your nude", "show me your body", "give me your money", "pay me $",
	"expose your secrets", "share your photos", "unless you", "or else",
	"kill yourself", "hurt yourself", "nobody cares", "i will kill you",
	"i will hurt you", "i will find you", "send pics baby",
}

const coercivePhraseScore = 7.0

// Structural patterns catch abusive sentence shapes regardless of specific
// vocabulary. Any match forces the score to at least patternScore.
var structuralPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(you\s+are\s+so\s+\w+)\b`),
	regexp.MustCompile(`\b(i\s+hate\s+you)\b`),
	regexp.MustCompile(`\b(go\s+\w+\s+yourself)\b`),
	regexp.MustCompile(`\b(nobody\s+\w+\s+you)\b`),
	regexp.MustCompile(`\b(you\s+should\s+\w+)\b`),
}

const patternScore = 7.0

// Category keyword sets, checked in fixed priority order. The first set with
// any overlap wins; changing the order changes observable classification.
var threatWords = []string{"kill", "hurt", "beat", "destroy", "revenge", "get you", "find you", "come for you", "murder", "violence"}
var mentalHarassmentWords = []string{"kill yourself", "suicide", "die", "worthless", "nobody cares", "alone", "depressed", "hurt yourself"}
var blackmailWords = []string{"expose", "tell everyone", "share photos", "blackmail", "secret", "unless you", "or else", "expose your secrets", "share your photos"}
var exploitationWords = []string{"money", "pay me", "give me", "steal", "scam", "fraud", "trick", "use you", "give me your money", "pay me $"}
var sexualHarassmentWords = []string{"sexy", "hot", "nude", "naked", "send pics", "show me", "sexual", "body", "breast", "private", "pics baby", "send me your"}

// Detector scores free-form text for abusive content using keyword and
// pattern matching. Analysis is pure and deterministic: identical input
// always yields an identical Result, which evidence reports rely on.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Analyze scores text on a 0-10 scale and assigns an abuse category when the
// score crosses the threshold. It is a total function: empty or
// whitespace-only input returns a clean zero-score result.
func (d *Detector) Analyze(text string) Result {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Result{}
	}

	var res Result
	words := tokenize(lower)

	// The running score is the maximum matched weight, not a sum: one severe
	// term dominates, many mild terms do not add up to a severe verdict.
	// Single words match on word boundaries so "hell" does not fire inside
	// "hello"; multi-word phrases match as substrings.
	for _, kw := range keywordWeights {
		if matchesKeyword(lower, words, kw.word) {
			if kw.weight > res.Score {
				res.Score = kw.weight
			}
			res.DetectedKeywords = append(res.DetectedKeywords, kw.word)
		}
	}

	for _, phrase := range coercivePhrases {
		if strings.Contains(lower, phrase) {
			if coercivePhraseScore > res.Score {
				res.Score = coercivePhraseScore
			}
			res.DetectedKeywords = append(res.DetectedKeywords, phrase)
		}
	}

	for _, pattern := range structuralPatterns {
		matches := pattern.FindAllString(lower, -1)
		if len(matches) > 0 {
			if patternScore > res.Score {
				res.Score = patternScore
			}
			res.DetectedPatterns = append(res.DetectedPatterns, matches...)
		}
	}

	// Stylistic adjustments are additive and applied after the max-based
	// score is fixed.
	res.CapsRatio = capsRatio(text)
	res.PunctRatio = punctRatio(text)
	if res.CapsRatio > 0.7 && len([]rune(text)) > 10 {
		res.Score += 1.0
	}
	if res.PunctRatio > 0.2 {
		res.Score += 0.5
	}

	if res.Score > 10.0 {
		res.Score = 10.0
	}

	res.IsAbusive = res.Score >= AbusiveThreshold
	if res.IsAbusive {
		res.Category = classifyCategory(res.DetectedKeywords, res.DetectedPatterns)
	}
	return res
}

// IsSafe reports whether text would not be flagged as abusive.
func (d *Detector) IsSafe(text string) bool {
	return !d.Analyze(text).IsAbusive
}

// Severity maps a score onto a human-readable band used by evidence reports.
func Severity(score float64) string {
	switch {
	case score >= 8.0:
		return "SEVERE"
	case score >= 6.0:
		return "HIGH"
	case score >= 4.0:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func classifyCategory(keywords, patterns []string) Category {
	keywordsText := strings.ToLower(strings.Join(keywords, " "))

	if containsAny(keywordsText, threatWords) || patternMentionsViolence(patterns) {
		return CategoryThreat
	}
	if containsAny(keywordsText, mentalHarassmentWords) {
		return CategoryMentalHarassment
	}
	if containsAny(keywordsText, blackmailWords) {
		return CategoryBlackmail
	}
	if containsAny(keywordsText, exploitationWords) {
		return CategoryExploitation
	}
	if containsAny(keywordsText, sexualHarassmentWords) {
		return CategorySexualHarassment
	}
	// General abuse with no specific category defaults to cyberbullying.
	return CategoryCyberbullying
}

func tokenize(lower string) map[string]bool {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		words[f] = true
	}
	return words
}

func matchesKeyword(lower string, words map[string]bool, keyword string) bool {
	if strings.ContainsRune(keyword, ' ') {
		return strings.Contains(lower, keyword)
	}
	return words[keyword]
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func patternMentionsViolence(patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(p, "kill") || strings.Contains(p, "hurt") {
			return true
		}
	}
	return false
}

func capsRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(len(runes))
}

func punctRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	punct := 0
	for _, r := range runes {
		if r == '!' || r == '?' {
			punct++
		}
	}
	return float64(punct) / float64(len(runes))
}
