package services

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// Feedback categories in tie-break priority order.
const (
	CategoryContent     = "content"
	CategoryInstructor  = "instructor"
	CategoryTechnical   = "technical"
	CategoryAssessment  = "assessment"
	CategoryInteraction = "interaction"
	CategoryOverall     = "overall"
	CategoryOther       = "other"
)

// Improvement themes.
const (
	ThemeContentUpdates        = "content_updates"
	ThemeInstructionalClarity  = "instructional_clarity"
	ThemeTechnicalPlatform     = "technical_platform"
	ThemeAssessmentDesign      = "assessment_design"
	ThemeInteractionEngagement = "interaction_engagement"
	ThemeStructuralRedesign    = "structural_redesign"
)

// categoryPriority resolves ties when two categories have the same number
// of keyword hits.
var categoryPriority = []string{
	CategoryContent,
	CategoryInstructor,
	CategoryTechnical,
	CategoryAssessment,
	CategoryInteraction,
	CategoryOverall,
}

// categoryKeywords drives categorization. New categories are table rows,
// not code changes.
var categoryKeywords = map[string][]string{
	CategoryContent: {
		"content", "material", "topic", "chapter", "module", "reading",
		"lecture", "video", "slide", "textbook", "curriculum", "syllabus",
		"outdated", "example",
	},
	CategoryInstructor: {
		"instructor", "teacher", "professor", "lecturer", "teaching",
		"explained", "explains", "explanation", "pace", "speaks", "office hours",
	},
	CategoryTechnical: {
		"link", "broken", "error", "crash", "bug", "load", "loading",
		"platform", "website", "browser", "audio", "playback", "download",
		"login", "404",
	},
	CategoryAssessment: {
		"quiz", "exam", "test", "assignment", "homework", "grading",
		"grade", "rubric", "deadline", "submission", "question", "instructions",
	},
	CategoryInteraction: {
		"discussion", "forum", "group", "peer", "collaboration",
		"interaction", "engagement", "feedback", "response", "community",
	},
	CategoryOverall: {
		"overall", "course", "experience", "general", "recommend",
		"structure", "organization", "workload",
	},
}

// themeKeywords maps improvement themes to their trigger keywords.
var themeKeywords = map[string][]string{
	ThemeContentUpdates: {
		"outdated", "old", "update", "stale", "obsolete", "current", "modern", "refresh",
	},
	ThemeInstructionalClarity: {
		"confusing", "unclear", "clarity", "clarify", "explain better",
		"hard to follow", "lost", "vague", "ambiguous",
	},
	ThemeTechnicalPlatform: {
		"broken", "link", "error", "crash", "bug", "slow", "load", "platform", "glitch",
	},
	ThemeAssessmentDesign: {
		"quiz", "exam", "grading", "unfair", "rubric", "too hard",
		"too easy", "instructions", "deadline",
	},
	ThemeInteractionEngagement: {
		"boring", "engaging", "interactive", "discussion", "participation",
		"engagement", "monotone",
	},
	ThemeStructuralRedesign: {
		"redesign", "restructure", "reorganize", "rebuild", "overhaul",
		"sequence", "order of topics", "architecture",
	},
}

// criticalKeywords flag feedback that describes a blocking problem.
var criticalKeywords = []string{
	"broken", "impossible", "cannot", "can't access", "unusable", "crash",
	"urgent", "blocked", "missing", "wrong answer", "error", "failed",
	"doesn't work", "not working",
}

// suggestionKeywords flag feedback that proposes an improvement.
var suggestionKeywords = []string{
	"should", "could", "would be better", "suggest", "recommendation",
	"recommend", "wish", "please add", "it would help", "improve", "consider",
}

var positiveWords = []string{
	"great", "good", "excellent", "helpful", "clear", "love", "enjoyed",
	"amazing", "useful", "well", "best", "fantastic",
}

var negativeWords = []string{
	"bad", "poor", "terrible", "confusing", "frustrating", "boring",
	"difficult", "hate", "waste", "worst", "awful", "useless",
}

// TextAnalysis is the full classifier output for one piece of text.
type TextAnalysis struct {
	IsCritical    bool           `json:"is_critical"`
	HasSuggestion bool           `json:"has_suggestion"`
	Themes        []string       `json:"themes"`
	PositiveCount int            `json:"positive_count"`
	NegativeCount int            `json:"negative_count"`
	KeywordHits   map[string]int `json:"keyword_hits"`
}

// ResponseClassifier categorizes feedback text with keyword lexicons. It is
// deliberately dumb about negation ("not confusing" still hits "confusing");
// callers that need real language understanding should swap this out behind
// the same interface.
type ResponseClassifier struct {
	logger *logrus.Logger
}

func NewResponseClassifier(logger *logrus.Logger) *ResponseClassifier {
	return &ResponseClassifier{logger: logger}
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// normalizeText lowercases, NFC-normalizes and collapses whitespace so
// keyword matching behaves the same regardless of input shape.
func normalizeText(text string) string {
	cleaned := norm.NFC.String(strings.ToLower(text))
	cleaned = whitespaceRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Categorize returns the category whose keyword set has the most hits in
// the text. questionHint breaks a tie in favor of the hinted category; with
// no hits at all the result is "other".
func (rc *ResponseClassifier) Categorize(text, questionHint string) string {
	normalized := normalizeText(text)
	if normalized == "" {
		return CategoryOther
	}

	hits := make(map[string]int, len(categoryKeywords))
	for category, keywords := range categoryKeywords {
		hits[category] = countKeywordHits(normalized, keywords)
	}

	best := CategoryOther
	bestHits := 0
	hint := normalizeText(questionHint)
	for _, category := range categoryPriority {
		n := hits[category]
		if n > bestHits {
			best = category
			bestHits = n
		} else if n == bestHits && n > 0 && hint != "" && strings.Contains(hint, category) && best != category {
			best = category
		}
	}

	return best
}

// Analyze runs the full lexical analysis. It is a pure function of the
// text; empty input yields the zero analysis, never an error.
func (rc *ResponseClassifier) Analyze(text string) TextAnalysis {
	analysis := TextAnalysis{
		Themes:      []string{},
		KeywordHits: make(map[string]int),
	}

	normalized := normalizeText(text)
	if normalized == "" {
		return analysis
	}

	analysis.IsCritical = containsAny(normalized, criticalKeywords)
	analysis.HasSuggestion = containsAny(normalized, suggestionKeywords)

	for _, theme := range []string{
		ThemeContentUpdates, ThemeInstructionalClarity, ThemeTechnicalPlatform,
		ThemeAssessmentDesign, ThemeInteractionEngagement, ThemeStructuralRedesign,
	} {
		if n := countKeywordHits(normalized, themeKeywords[theme]); n > 0 {
			analysis.Themes = append(analysis.Themes, theme)
			analysis.KeywordHits[theme] = n
		}
	}

	analysis.PositiveCount = countKeywordHits(normalized, positiveWords)
	analysis.NegativeCount = countKeywordHits(normalized, negativeWords)

	return analysis
}

// QuickFixHits counts quick-fix keyword occurrences (typo/link class) used
// by the effort factor.
func (rc *ResponseClassifier) QuickFixHits(text string) int {
	return countKeywordHits(normalizeText(text), quickFixKeywords)
}

// StructuralHits counts structural/complex keyword occurrences
// (redesign/architecture class) used by the effort factor.
func (rc *ResponseClassifier) StructuralHits(text string) int {
	return countKeywordHits(normalizeText(text), structuralKeywords)
}

// StrategicHits counts institutional-priority keyword occurrences, plus
// any caller-supplied priority keywords.
func (rc *ResponseClassifier) StrategicHits(text string, extraPriorities []string) int {
	normalized := normalizeText(text)
	hits := countKeywordHits(normalized, strategicKeywords)
	for _, kw := range extraPriorities {
		if kw = normalizeText(kw); kw != "" && strings.Contains(normalized, kw) {
			hits++
		}
	}
	return hits
}

// CosmeticHits counts optional/cosmetic keyword occurrences that pull the
// strategic factor down.
func (rc *ResponseClassifier) CosmeticHits(text string) int {
	return countKeywordHits(normalizeText(text), cosmeticKeywords)
}

var quickFixKeywords = []string{
	"typo", "spelling", "link", "broken link", "date", "misspelled",
	"caption", "label", "minor",
}

var structuralKeywords = []string{
	"redesign", "restructure", "rebuild", "overhaul", "rework", "rewrite",
	"architecture", "from scratch", "entire course", "whole module",
}

var strategicKeywords = []string{
	"learning objective", "core skill", "fundamental", "essential",
	"required", "accreditation", "career", "industry", "certification",
}

var cosmeticKeywords = []string{
	"cosmetic", "optional", "nice to have", "font", "color", "style",
	"minor detail", "aesthetic",
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func countKeywordHits(text string, keywords []string) int {
	if text == "" {
		return 0
	}
	hits := 0
	for _, kw := range keywords {
		hits += strings.Count(text, kw)
	}
	return hits
}
