package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradeSeniorBands(t *testing.T) {
	cases := []struct {
		total  float64
		grade  string
		remark string
	}{
		{100, "A1", "Excellent"},
		{75, "A1", "Excellent"},
		{74, "B2", "Very Good"},
		{70, "B2", "Very Good"},
		{65, "B3", "Good"},
		{60, "C4", "Credit"},
		{55, "C5", "Credit"},
		{50, "C6", "Credit"},
		{45, "D7", "Pass"},
		{40, "E8", "Pass"},
		{39, "F9", "Fail"},
		{0, "F9", "Fail"},
	}
	for _, tc := range cases {
		grade, remark := Grade(tc.total, "SSS 1")
		assert.Equal(t, tc.grade, grade, "total %v", tc.total)
		assert.Equal(t, tc.remark, remark, "total %v", tc.total)
	}
}

func TestGradeJuniorBands(t *testing.T) {
	grade, remark := Grade(70, "JSS 2")
	assert.Equal(t, "A", grade)
	assert.Equal(t, "Excellent", remark)

	grade, _ = Grade(60, "JSS 2")
	assert.Equal(t, "B", grade)

	grade, _ = Grade(50, "JSS 2")
	assert.Equal(t, "C", grade)

	grade, remark = Grade(39, "JSS 2")
	assert.Equal(t, "F", grade)
	assert.Equal(t, "Fail", remark)
}

func TestGradePrimaryFallback(t *testing.T) {
	grade, _ := Grade(80, "Primary 4")
	assert.Equal(t, "A", grade)

	grade, _ = Grade(59, "Nursery 1")
	assert.Equal(t, "D", grade)

	grade, _ = Grade(10, "Primary 1")
	assert.Equal(t, "E", grade)
}

// Every total in [0,100] must land in exactly one band per table.
func TestGradeTotality(t *testing.T) {
	levels := []string{"SSS 3", "JSS 1", "Primary 5", ""}
	for _, level := range levels {
		for total := 0; total <= 100; total++ {
			grade, remark := Grade(float64(total), level)
			assert.NotEmpty(t, grade)
			assert.NotEmpty(t, remark)

			again, _ := Grade(float64(total), level)
			assert.Equal(t, grade, again)
		}
	}
}

func TestSubjectTotal(t *testing.T) {
	ca1, ca2, exam := 12.0, 15.0, 48.0
	assert.Equal(t, 75.0, SubjectTotal(&ca1, &ca2, nil, &exam))
	assert.Equal(t, 0.0, SubjectTotal(nil, nil, nil, nil))

	ca3 := 5.0
	assert.Equal(t, 80.0, SubjectTotal(&ca1, &ca2, &ca3, &exam))
}

func TestResultAverage(t *testing.T) {
	assert.Equal(t, 0.0, ResultAverage(nil))
	assert.Equal(t, 70.0, ResultAverage([]float64{60, 70, 80}))
	assert.Equal(t, 66.67, ResultAverage([]float64{60, 70, 70}))
}

func TestCBTScoreBoundaries(t *testing.T) {
	score, max, pct := CBTScore(0, 10, "ca1")
	assert.Equal(t, 0, score)
	assert.Equal(t, 20, max)
	assert.Equal(t, 0, pct)

	score, max, pct = CBTScore(10, 10, "ca2")
	assert.Equal(t, 20, score)
	assert.Equal(t, 20, max)
	assert.Equal(t, 100, pct)

	score, max, pct = CBTScore(10, 10, "exam")
	assert.Equal(t, 60, score)
	assert.Equal(t, 60, max)
	assert.Equal(t, 100, pct)

	// 7/10 on a CA scales to 14/20.
	score, _, pct = CBTScore(7, 10, "ca1")
	assert.Equal(t, 70, pct)
	assert.Equal(t, 14, score)

	// Rounding happens on the percentage first.
	score, _, pct = CBTScore(2, 3, "exam")
	assert.Equal(t, 67, pct)
	assert.Equal(t, 40, score)
}

func TestMaxScale(t *testing.T) {
	assert.Equal(t, 60, MaxScale("exam"))
	assert.Equal(t, 60, MaxScale("EXAM"))
	assert.Equal(t, 20, MaxScale("ca1"))
	assert.Equal(t, 20, MaxScale("ca2"))
	assert.Equal(t, 20, MaxScale("anything-else"))
}
