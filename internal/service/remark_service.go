package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RemarkSubject is one scored subject row handed to the generator.
type RemarkSubject struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
	Grade string  `json:"grade"`
}

// RemarkRating is one affective trait rating handed to the generator.
type RemarkRating struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RemarkInput is the term result context handed to the generator. Position
// is computed at render time and may be empty.
type RemarkInput struct {
	StudentName string          `json:"student_name"`
	ClassLevel  string          `json:"class_level"`
	Term        string          `json:"term"`
	Position    string          `json:"position,omitempty"`
	Average     float64         `json:"average"`
	Subjects    []RemarkSubject `json:"subject_scores"`
	Affective   []RemarkRating  `json:"affective_ratings"`
}

// RemarkPair is the generated teacher and principal remark.
type RemarkPair struct {
	TeacherRemark   string `json:"teacher_remark"`
	PrincipalRemark string `json:"principal_remark"`
}

// RemarkGenerator produces result remarks. Implementations must never fail
// the caller; a broken backend degrades to stock remarks.
type RemarkGenerator interface {
	Generate(ctx context.Context, input RemarkInput) RemarkPair
}

// StaticRemarkGenerator picks a stock remark pair from the result average.
// It is the fallback behind every other generator and the whole generator
// when no backend is configured.
type StaticRemarkGenerator struct{}

// Generate implements RemarkGenerator.
func (StaticRemarkGenerator) Generate(_ context.Context, input RemarkInput) RemarkPair {
	switch {
	case input.Average >= 70:
		return RemarkPair{
			TeacherRemark:   "An excellent performance. Keep it up.",
			PrincipalRemark: "An outstanding result. The school is proud of you.",
		}
	case input.Average >= 55:
		return RemarkPair{
			TeacherRemark:   "A very good result. Aim even higher next term.",
			PrincipalRemark: "A commendable performance. Keep working hard.",
		}
	case input.Average >= 40:
		return RemarkPair{
			TeacherRemark:   "A fair result. More effort is needed in the weaker subjects.",
			PrincipalRemark: "There is room for improvement. Stay focused.",
		}
	default:
		return RemarkPair{
			TeacherRemark:   "A poor result. Serious improvement is required next term.",
			PrincipalRemark: "This result is below expectation. Extra attention is advised.",
		}
	}
}

// HTTPRemarkGenerator asks an external text service for remarks and falls
// back to the static pairs on any error, non-200 or empty field.
type HTTPRemarkGenerator struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	fallback StaticRemarkGenerator
	logger   *zap.Logger
}

// NewHTTPRemarkGenerator constructs an HTTPRemarkGenerator.
func NewHTTPRemarkGenerator(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPRemarkGenerator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPRemarkGenerator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Generate implements RemarkGenerator.
func (g *HTTPRemarkGenerator) Generate(ctx context.Context, input RemarkInput) RemarkPair {
	pair, err := g.call(ctx, input)
	if err != nil {
		g.logger.Warn("remark backend unavailable, using stock remarks", zap.Error(err))
		return g.fallback.Generate(ctx, input)
	}
	return pair
}

func (g *HTTPRemarkGenerator) call(ctx context.Context, input RemarkInput) (RemarkPair, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return RemarkPair{}, fmt.Errorf("encode remark request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/remarks", bytes.NewReader(body))
	if err != nil {
		return RemarkPair{}, fmt.Errorf("build remark request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return RemarkPair{}, fmt.Errorf("call remark backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RemarkPair{}, fmt.Errorf("remark backend returned %d", resp.StatusCode)
	}

	var pair RemarkPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return RemarkPair{}, fmt.Errorf("decode remark response: %w", err)
	}
	if pair.TeacherRemark == "" || pair.PrincipalRemark == "" {
		return RemarkPair{}, fmt.Errorf("remark backend returned empty remarks")
	}
	return pair, nil
}
