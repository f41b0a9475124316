package grading

import (
	"math"
	"strings"
)

// Band maps a minimum total to a letter grade and remark.
type Band struct {
	Min    float64
	Grade  string
	Remark string
}

// Threshold tables are scanned high to low; the last entry is the
// unconditional fallback.
var (
	seniorBands = []Band{
		{75, "A1", "Excellent"},
		{70, "B2", "Very Good"},
		{65, "B3", "Good"},
		{60, "C4", "Credit"},
		{55, "C5", "Credit"},
		{50, "C6", "Credit"},
		{45, "D7", "Pass"},
		{40, "E8", "Pass"},
		{0, "F9", "Fail"},
	}

	juniorBands = []Band{
		{70, "A", "Excellent"},
		{60, "B", "Good"},
		{50, "C", "Fair"},
		{0, "F", "Fail"},
	}

	primaryBands = []Band{
		{80, "A", "Excellent"},
		{70, "B", "Very Good"},
		{60, "C", "Good"},
		{40, "D", "Fair"},
		{0, "E", "Fail"},
	}
)

// Grade resolves a subject total into a letter grade and remark using the
// threshold table for the given class level. It is pure and total: every
// input maps to exactly one band.
func Grade(total float64, classLevel string) (grade, remark string) {
	bands := bandsFor(classLevel)
	for _, b := range bands[:len(bands)-1] {
		if total >= b.Min {
			return b.Grade, b.Remark
		}
	}
	last := bands[len(bands)-1]
	return last.Grade, last.Remark
}

func bandsFor(classLevel string) []Band {
	level := strings.ToUpper(strings.TrimSpace(classLevel))
	switch {
	case strings.HasPrefix(level, "SSS") || strings.HasPrefix(level, "SS"):
		return seniorBands
	case strings.HasPrefix(level, "JSS") || strings.HasPrefix(level, "JS"):
		return juniorBands
	default:
		return primaryBands
	}
}

// SubjectTotal sums the score components treating nil as zero. The same
// formula applies on the manual-entry and CBT-merge paths.
func SubjectTotal(ca1, ca2, ca3, exam *float64) float64 {
	return orZero(ca1) + orZero(ca2) + orZero(ca3) + orZero(exam)
}

// ResultAverage is the arithmetic mean of subject totals rounded to two
// decimal places, zero when there are no subjects.
func ResultAverage(totals []float64) float64 {
	if len(totals) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range totals {
		sum += t
	}
	return math.Round(sum/float64(len(totals))*100) / 100
}

// MaxScale is the raw ceiling for a CBT category: 60 for end-of-term exams,
// 20 for continuous assessments.
func MaxScale(category string) int {
	if strings.EqualFold(strings.TrimSpace(category), "exam") {
		return 60
	}
	return 20
}

// CBTScore converts a correct-answer count into a rounded percentage and a
// final score on the category scale.
func CBTScore(correct, totalQuestions int, category string) (score, maxScore, percentage int) {
	maxScore = MaxScale(category)
	if totalQuestions <= 0 {
		return 0, maxScore, 0
	}
	pct := float64(correct) / float64(totalQuestions) * 100
	percentage = int(math.Round(pct))
	score = int(math.Round(float64(percentage) / 100 * float64(maxScore)))
	return score, maxScore, percentage
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
