package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/edusignal/edusignal/internal/config"
	"github.com/edusignal/edusignal/pkg/models"
)

// severityWeights maps severity labels to their numeric contribution.
// Records without a severity use severityDefault.
var severityWeights = map[string]float64{
	models.SeverityCritical: 5,
	models.SeverityHigh:     4,
	models.SeverityMedium:   3,
	models.SeverityLow:      2,
}

const severityDefault = 3.0

// ScoringContext carries optional course metadata. More metadata means
// higher confidence, never a different factor score except for strategic
// priority boosts.
type ScoringContext struct {
	CourseName              string   `json:"course_name,omitempty"`
	Enrollment              int      `json:"enrollment,omitempty"`
	InstitutionalPriorities []string `json:"institutional_priorities,omitempty"`
}

// ScoringEngine computes explainable priority scores for feedback groups.
// All factor and total scores live on the 1-5 scale; confidence is 0-1.
// The clock is injected so urgency and trend are deterministic under test.
type ScoringEngine struct {
	classifier *ResponseClassifier
	config     *config.ScoringConfig
	logger     *logrus.Logger
	now        func() time.Time
}

func NewScoringEngine(classifier *ResponseClassifier, cfg *config.ScoringConfig, logger *logrus.Logger) *ScoringEngine {
	return &ScoringEngine{
		classifier: classifier,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock returns a copy of the engine using the given clock.
func (se *ScoringEngine) WithClock(now func() time.Time) *ScoringEngine {
	clone := *se
	clone.now = now
	return &clone
}

// Calculate scores one feedback group under the given weights. An empty
// group yields the reserved empty breakdown rather than an error.
func (se *ScoringEngine) Calculate(group models.FeedbackGroup, summary models.GroupSummary, weights models.Weights, sctx *ScoringContext) models.ScoreBreakdown {
	if len(group.Records) == 0 {
		return se.emptyBreakdown()
	}
	if sctx == nil {
		sctx = &ScoringContext{}
	}

	factors := models.FactorScores{
		Impact:    se.impactScore(group),
		Urgency:   se.urgencyScore(group),
		Effort:    se.effortScore(group),
		Strategic: se.strategicScore(group, sctx),
		Trend:     se.trendScore(group),
	}

	raw := factors.WeightedTotal(weights)
	total := roundHalfUp(raw)
	if total < 1 {
		total = 1
	} else if total > 5 {
		total = 5
	}
	level := models.PriorityLevels[total]

	return models.ScoreBreakdown{
		Factors:     factors,
		RawTotal:    raw,
		Total:       total,
		Label:       level.Label,
		Action:      level.Action,
		Color:       level.Color,
		Confidence:  se.confidence(group, summary, sctx),
		Explanation: se.explain(group, summary, factors),
	}
}

func (se *ScoringEngine) emptyBreakdown() models.ScoreBreakdown {
	level := models.PriorityLevels[1]
	return models.ScoreBreakdown{
		Factors:    models.FactorScores{Impact: 1, Urgency: 1, Effort: 5, Strategic: 3, Trend: 3},
		RawTotal:   1,
		Total:      1,
		Label:      level.Label,
		Action:     level.Action,
		Color:      level.Color,
		Confidence: 0,
		Explanation: models.Explanation{
			PrimaryReason: "No feedback available for this course",
			Evidence:      []models.Evidence{},
		},
	}
}

// impactScore blends how many distinct students are affected with how
// severe their reports are.
func (se *ScoringEngine) impactScore(group models.FeedbackGroup) float64 {
	students := make(map[string]struct{})
	anonymous := 0
	severitySum := 0.0

	for _, rec := range group.Records {
		if rec.StudentID != nil && *rec.StudentID != "" {
			students[*rec.StudentID] = struct{}{}
		} else {
			// No student id means we cannot dedupe; count each report
			anonymous++
		}

		if rec.Severity != nil {
			if w, ok := severityWeights[*rec.Severity]; ok {
				severitySum += w
				continue
			}
		}
		severitySum += severityDefault
	}

	affected := len(students) + anonymous
	var bucket float64
	switch {
	case affected <= 1:
		bucket = 1
	case affected <= 5:
		bucket = 2
	case affected <= 15:
		bucket = 3
	case affected <= 30:
		bucket = 4
	default:
		bucket = 5
	}

	avgSeverity := severitySum / float64(len(group.Records))
	return clamp(0.6*bucket+0.4*avgSeverity, 1, 5)
}

// urgencyScore starts at 1 and accumulates severity, recency and volume
// bonuses. Recency looks at the newest dated record rather than the mean
// age, so a freshly urgent course cannot be diluted by old complaints on
// file: every bonus is monotone under adding records.
func (se *ScoringEngine) urgencyScore(group models.FeedbackGroup) float64 {
	score := 1.0

	for _, rec := range group.Records {
		if rec.Severity != nil && (*rec.Severity == models.SeverityCritical || *rec.Severity == models.SeverityHigh) {
			score += 2
			break
		}
	}

	if newest, ok := se.newestAge(group); ok {
		switch {
		case newest <= 3*24*time.Hour:
			score += 1.5
		case newest <= 7*24*time.Hour:
			score += 1.0
		case newest <= 14*24*time.Hour:
			score += 0.5
		}
	}

	switch n := len(group.Records); {
	case n >= 5:
		score += 1.0
	case n >= 3:
		score += 0.5
	}

	return clamp(score, 1, 5)
}

// newestAge returns the age of the most recent dated record. Undated
// records are ignored; ok is false when none carry a timestamp.
func (se *ScoringEngine) newestAge(group models.FeedbackGroup) (time.Duration, bool) {
	now := se.now()
	var newest time.Duration
	dated := false
	for _, rec := range group.Records {
		if rec.CreatedAt == nil {
			continue
		}
		age := now.Sub(*rec.CreatedAt)
		if age < 0 {
			age = 0
		}
		if !dated || age < newest {
			newest = age
		}
		dated = true
	}
	return newest, dated
}

// effortScore estimates ease of remediation: 5 is a quick fix, 1 is a
// structural rebuild. Only one direction applies per evaluation; the
// direction with more keyword evidence wins, structural on ties.
func (se *ScoringEngine) effortScore(group models.FeedbackGroup) float64 {
	quickFix := 0
	structural := 0
	for _, rec := range group.Records {
		quickFix += se.classifier.QuickFixHits(rec.Text)
		structural += se.classifier.StructuralHits(rec.Text)
	}

	switch {
	case structural >= 2 && structural >= quickFix:
		return clamp(3-math.Min(2, float64(structural)*0.5), 1, 5)
	case quickFix >= 2:
		return clamp(3+math.Min(2, float64(quickFix)*0.5), 1, 5)
	default:
		return 3
	}
}

// strategicScore starts neutral and moves with institutional-priority
// versus cosmetic keyword evidence.
func (se *ScoringEngine) strategicScore(group models.FeedbackGroup, sctx *ScoringContext) float64 {
	strategic := 0
	cosmetic := 0
	for _, rec := range group.Records {
		strategic += se.classifier.StrategicHits(rec.Text, sctx.InstitutionalPriorities)
		cosmetic += se.classifier.CosmeticHits(rec.Text)
	}

	switch {
	case cosmetic >= 2 && cosmetic > strategic:
		return clamp(3-math.Min(2, float64(cosmetic)*0.5), 1, 5)
	case strategic >= 2:
		return clamp(3+math.Min(2, 0.75*float64(strategic)), 1, 5)
	case strategic == 1:
		return 3.75
	default:
		return 3
	}
}

// trendScore compares the most-recent window against the remainder of the
// group. Fewer than 2 dated records is not enough signal, so the factor
// stays neutral.
func (se *ScoringEngine) trendScore(group models.FeedbackGroup) float64 {
	now := se.now()
	windowStart := now.AddDate(0, 0, -se.config.RecentWindowDays)

	recent := 0
	older := 0
	var dayOffsets, counts []float64
	perDay := make(map[int]int)

	for _, rec := range group.Records {
		if rec.CreatedAt == nil {
			continue
		}
		if rec.CreatedAt.After(windowStart) {
			recent++
		} else {
			older++
		}
		day := int(now.Sub(*rec.CreatedAt).Hours() / 24)
		perDay[day]++
	}

	dated := recent + older
	if dated < 2 {
		return 3
	}

	switch {
	case recent > older:
		// Growing; a rising daily slope pushes it to the top of the band
		for day, n := range perDay {
			dayOffsets = append(dayOffsets, float64(-day))
			counts = append(counts, float64(n))
		}
		if len(dayOffsets) >= 2 {
			_, slope := stat.LinearRegression(dayOffsets, counts, nil, false)
			if slope > 0 {
				return 5
			}
		}
		return 4.5
	case recent == 0 && older >= 2:
		// Nothing new in the window; the issue looks resolved or declining
		return 1.5
	default:
		return 3
	}
}

// confidence averages metadata completeness, feedback-volume adequacy and
// the fraction of records the classifier could place in a real category.
func (se *ScoringEngine) confidence(group models.FeedbackGroup, summary models.GroupSummary, sctx *ScoringContext) float64 {
	completeness := 0.0
	if sctx.CourseName != "" {
		completeness += 0.5
	}
	if sctx.Enrollment > 0 {
		completeness += 0.5
	}

	// Without an enrollment figure, fall back to the configured typical
	// class size so adequacy still scales with 10% of a class.
	enrollment := sctx.Enrollment
	if enrollment <= 0 {
		enrollment = se.config.TypicalEnrollment
	}
	expected := float64(se.config.AdequateFeedback)
	if fromEnrollment := float64(enrollment) * 0.1; fromEnrollment > expected {
		expected = fromEnrollment
	}
	adequacy := 1.0
	if expected > 0 {
		adequacy = math.Min(1, float64(len(group.Records))/expected)
	}

	classified := 0
	for category, n := range summary.CategoryCounts {
		if category != CategoryOther {
			classified += n
		}
	}
	classifiedFraction := 0.0
	if summary.Count > 0 {
		classifiedFraction = float64(classified) / float64(summary.Count)
	}

	return (completeness + adequacy + classifiedFraction) / 3
}

// explain builds the human-readable justification: a primary reason from
// the dominant signal, supporting factor notes, theme-driven actions and
// representative evidence quotes.
func (se *ScoringEngine) explain(group models.FeedbackGroup, summary models.GroupSummary, factors models.FactorScores) models.Explanation {
	return models.Explanation{
		PrimaryReason:      se.primaryReason(summary, factors),
		SupportingFactors:  se.supportingFactors(summary, factors),
		RecommendedActions: se.recommendedActions(summary),
		Evidence:           se.collectEvidence(group),
	}
}

func (se *ScoringEngine) primaryReason(summary models.GroupSummary, factors models.FactorScores) string {
	switch {
	case summary.CriticalCount > 0:
		return fmt.Sprintf("%d of %d responses report a blocking problem", summary.CriticalCount, summary.Count)
	case factors.Urgency >= 4:
		return fmt.Sprintf("Recent surge of feedback (%d responses)", summary.Count)
	case factors.Impact >= 4:
		return fmt.Sprintf("Issue affects a large share of students (%d responses)", summary.Count)
	case summary.AvgRating != nil && *summary.AvgRating < 3:
		return fmt.Sprintf("Low average rating of %.1f/5 across %d responses", *summary.AvgRating, summary.Count)
	default:
		return fmt.Sprintf("Aggregate of %d student responses", summary.Count)
	}
}

func (se *ScoringEngine) supportingFactors(summary models.GroupSummary, factors models.FactorScores) []string {
	var supporting []string

	if top, n := topCount(summary.CategoryCounts, CategoryOther); top != "" && n > 0 {
		supporting = append(supporting, fmt.Sprintf("most feedback concerns %s (%d responses)", top, n))
	}
	if factors.Effort >= 4 {
		supporting = append(supporting, "reported problems look quick to fix")
	} else if factors.Effort <= 2 {
		supporting = append(supporting, "remediation likely requires structural rework")
	}
	if factors.Trend >= 4.5 {
		supporting = append(supporting, "feedback volume is growing week over week")
	} else if factors.Trend <= 2 {
		supporting = append(supporting, "no new reports in the recent window")
	}
	if factors.Strategic >= 4 {
		supporting = append(supporting, "feedback touches institutional priorities")
	}
	if summary.SuggestionCount > 0 {
		supporting = append(supporting, fmt.Sprintf("%d responses include concrete suggestions", summary.SuggestionCount))
	}

	return supporting
}

// themeActions maps each improvement theme to its recommended action.
var themeActions = map[string]string{
	ThemeContentUpdates:        "Refresh outdated course material",
	ThemeInstructionalClarity:  "Rewrite unclear instructions and explanations",
	ThemeTechnicalPlatform:     "Repair broken links and platform issues",
	ThemeAssessmentDesign:      "Review assessment design and grading rubrics",
	ThemeInteractionEngagement: "Add interactive and discussion elements",
	ThemeStructuralRedesign:    "Plan a structural revision of the course",
}

func (se *ScoringEngine) recommendedActions(summary models.GroupSummary) []string {
	type themeCount struct {
		theme string
		n     int
	}
	var ranked []themeCount
	for theme, n := range summary.ThemeCounts {
		ranked = append(ranked, themeCount{theme, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].theme < ranked[j].theme
	})

	var actions []string
	for _, tc := range ranked {
		if action, ok := themeActions[tc.theme]; ok {
			actions = append(actions, action)
		}
		if len(actions) == 3 {
			break
		}
	}
	return actions
}

// collectEvidence picks up to MaxEvidence representative records, most
// severe first and most recent within the same severity, each truncated to
// the configured quote length with source attribution.
func (se *ScoringEngine) collectEvidence(group models.FeedbackGroup) []models.Evidence {
	records := make([]models.FeedbackRecord, 0, len(group.Records))
	for _, rec := range group.Records {
		if strings.TrimSpace(rec.Text) != "" {
			records = append(records, rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		si, sj := severityRank(records[i].Severity), severityRank(records[j].Severity)
		if si != sj {
			return si > sj
		}
		ti, tj := records[i].CreatedAt, records[j].CreatedAt
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})

	limit := se.config.MaxEvidence
	if limit <= 0 {
		limit = 5
	}
	if len(records) > limit {
		records = records[:limit]
	}

	evidence := make([]models.Evidence, 0, len(records))
	for _, rec := range records {
		evidence = append(evidence, models.Evidence{
			Quote:     truncateQuote(rec.Text, se.config.EvidenceQuoteLen),
			Source:    rec.Source,
			Severity:  rec.Severity,
			Rating:    rec.Rating,
			CreatedAt: rec.CreatedAt,
		})
	}
	return evidence
}

func severityRank(severity *string) float64 {
	if severity == nil {
		return 0
	}
	return severityWeights[*severity]
}

func truncateQuote(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 150
	}
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}

func topCount(counts map[string]int, exclude string) (string, int) {
	best := ""
	bestN := 0
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == exclude {
			continue
		}
		if counts[k] > bestN {
			best = k
			bestN = counts[k]
		}
	}
	return best, bestN
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// roundHalfUp rounds to the nearest integer with .5 always rounding up,
// so totals are deterministic at band boundaries.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
