package services

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestResponseClassifier_Categorize(t *testing.T) {
	rc := NewResponseClassifier(testLogger())

	tests := []struct {
		name     string
		text     string
		hint     string
		expected string
	}{
		{
			name:     "content feedback",
			text:     "The lecture videos and reading material feel outdated",
			expected: CategoryContent,
		},
		{
			name:     "instructor feedback",
			text:     "The professor explained the concepts at a good pace",
			expected: CategoryInstructor,
		},
		{
			name:     "technical feedback",
			text:     "The website crashes every time I try to download the slides from the platform, and the login gives a 404 error",
			expected: CategoryTechnical,
		},
		{
			name:     "assessment feedback",
			text:     "The quiz deadline and grading rubric were unfair",
			expected: CategoryAssessment,
		},
		{
			name:     "interaction feedback",
			text:     "More discussion forums and peer collaboration would help engagement",
			expected: CategoryInteraction,
		},
		{
			name:     "no keyword hits",
			text:     "Meh.",
			expected: CategoryOther,
		},
		{
			name:     "empty text",
			text:     "",
			expected: CategoryOther,
		},
		{
			name:     "whitespace only",
			text:     "   \n\t  ",
			expected: CategoryOther,
		},
		{
			name:     "tie resolved by fixed priority order",
			text:     "The assignment instructions were confusing and the link is broken",
			expected: CategoryTechnical,
		},
		{
			name:     "tie resolved by question hint",
			text:     "The assignment instructions were confusing and the link is broken",
			hint:     "How were the assessment materials?",
			expected: CategoryAssessment,
		},
		{
			name:     "case insensitive matching",
			text:     "The LECTURE SLIDES cover great MATERIAL",
			expected: CategoryContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rc.Categorize(tt.text, tt.hint))
		})
	}
}

func TestResponseClassifier_Analyze(t *testing.T) {
	rc := NewResponseClassifier(testLogger())

	t.Run("critical flag", func(t *testing.T) {
		analysis := rc.Analyze("The assignment instructions were confusing and the link is broken")
		assert.True(t, analysis.IsCritical)
		assert.Contains(t, analysis.Themes, ThemeTechnicalPlatform)
		assert.Contains(t, analysis.Themes, ThemeInstructionalClarity)
	})

	t.Run("suggestion flag", func(t *testing.T) {
		analysis := rc.Analyze("You should add more worked examples, it would help a lot")
		assert.True(t, analysis.HasSuggestion)
		assert.False(t, analysis.IsCritical)
	})

	t.Run("sentiment counts", func(t *testing.T) {
		analysis := rc.Analyze("Great course overall but the quizzes were confusing and frustrating")
		assert.Equal(t, 1, analysis.PositiveCount)
		assert.Equal(t, 2, analysis.NegativeCount)
	})

	t.Run("empty text yields zero analysis", func(t *testing.T) {
		analysis := rc.Analyze("")
		assert.False(t, analysis.IsCritical)
		assert.False(t, analysis.HasSuggestion)
		assert.Empty(t, analysis.Themes)
		assert.Zero(t, analysis.PositiveCount)
		assert.Zero(t, analysis.NegativeCount)
	})

	t.Run("theme hit counts recorded", func(t *testing.T) {
		analysis := rc.Analyze("The material is outdated and stale, please update it")
		assert.Contains(t, analysis.Themes, ThemeContentUpdates)
		assert.GreaterOrEqual(t, analysis.KeywordHits[ThemeContentUpdates], 3)
	})
}

func TestResponseClassifier_EffortAndStrategicHits(t *testing.T) {
	rc := NewResponseClassifier(testLogger())

	t.Run("quick fix keywords", func(t *testing.T) {
		assert.Equal(t, 0, rc.QuickFixHits("the content is hard"))
		assert.GreaterOrEqual(t, rc.QuickFixHits("there is a typo and a broken link on the slides"), 2)
	})

	t.Run("structural keywords", func(t *testing.T) {
		assert.GreaterOrEqual(t, rc.StructuralHits("this course needs a complete redesign, maybe a rebuild from scratch"), 3)
	})

	t.Run("strategic with extra priorities", func(t *testing.T) {
		base := rc.StrategicHits("this covers a core skill for my career", nil)
		boosted := rc.StrategicHits("this covers a core skill for my career in data analysis", []string{"data analysis"})
		assert.Equal(t, base+1, boosted)
	})

	t.Run("cosmetic keywords", func(t *testing.T) {
		assert.GreaterOrEqual(t, rc.CosmeticHits("just a cosmetic font issue, nice to have"), 3)
	})
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "hello world", normalizeText("  Hello\n\n  WORLD  "))
	assert.Equal(t, "", normalizeText("   "))
	assert.Equal(t, "a b c", normalizeText("a\tb\r\nc"))
}

func TestCountKeywordHits_RepeatedKeyword(t *testing.T) {
	text := normalizeText(strings.Repeat("broken link ", 3))
	assert.Equal(t, 3, countKeywordHits(text, []string{"broken link"}))
}
