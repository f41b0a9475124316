package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRemarkGeneratorBands(t *testing.T) {
	gen := StaticRemarkGenerator{}

	cases := []struct {
		average float64
		want    string
	}{
		{82.5, "excellent"},
		{60, "very good"},
		{45, "fair"},
		{20, "poor"},
	}
	for _, tc := range cases {
		pair := gen.Generate(context.Background(), RemarkInput{Average: tc.average})
		assert.NotEmpty(t, pair.TeacherRemark)
		assert.NotEmpty(t, pair.PrincipalRemark)
		assert.Containsf(t, pair.TeacherRemark, tc.want[1:], "average %.1f", tc.average)
	}
}

func TestHTTPRemarkGeneratorUsesBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/remarks", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"teacher_remark":"Generated teacher remark.","principal_remark":"Generated principal remark."}`))
	}))
	defer srv.Close()

	gen := NewHTTPRemarkGenerator(srv.URL, "key-123", time.Second, nil)
	pair := gen.Generate(context.Background(), RemarkInput{StudentName: "Ada Obi", Average: 72})

	assert.Equal(t, "Generated teacher remark.", pair.TeacherRemark)
	assert.Equal(t, "Generated principal remark.", pair.PrincipalRemark)
}

func TestHTTPRemarkGeneratorSendsFullResultContext(t *testing.T) {
	var got RemarkInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"teacher_remark":"ok","principal_remark":"ok"}`))
	}))
	defer srv.Close()

	gen := NewHTTPRemarkGenerator(srv.URL, "key-123", time.Second, nil)
	gen.Generate(context.Background(), RemarkInput{
		StudentName: "Ada Obi",
		ClassLevel:  "SSS 2",
		Term:        "First Term",
		Position:    "2nd of 18",
		Average:     68.5,
		Subjects: []RemarkSubject{
			{Name: "Mathematics", Total: 75, Grade: "A1"},
			{Name: "English", Total: 62, Grade: "B2"},
		},
		Affective: []RemarkRating{{Name: "Punctuality", Score: 4}},
	})

	assert.Equal(t, "2nd of 18", got.Position)
	require.Len(t, got.Subjects, 2)
	assert.Equal(t, "Mathematics", got.Subjects[0].Name)
	assert.Equal(t, "A1", got.Subjects[0].Grade)
	require.Len(t, got.Affective, 1)
	assert.Equal(t, 4, got.Affective[0].Score)
}

func TestHTTPRemarkGeneratorFallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gen := NewHTTPRemarkGenerator(srv.URL, "key-123", time.Second, nil)
	pair := gen.Generate(context.Background(), RemarkInput{Average: 72})

	require.NotEmpty(t, pair.TeacherRemark)
	assert.Equal(t, StaticRemarkGenerator{}.Generate(context.Background(), RemarkInput{Average: 72}), pair)
}

func TestHTTPRemarkGeneratorFallsBackOnEmptyRemarks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"teacher_remark":"","principal_remark":""}`))
	}))
	defer srv.Close()

	gen := NewHTTPRemarkGenerator(srv.URL, "key-123", time.Second, nil)
	pair := gen.Generate(context.Background(), RemarkInput{Average: 30})
	assert.NotEmpty(t, pair.TeacherRemark)
}
