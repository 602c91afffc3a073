package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/pitchscore/internal/config"
	"github.com/namelens/pitchscore/internal/scoring"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", Path: ":memory:"}, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndListAnalyses(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	result := &scoring.Result{
		Scores:   scoring.Scores{Name: 80, Description: 70, Monetizability: 60, Usefulness: 50, Fun: 40, Simplicity: 30},
		Feedback: scoring.DefaultFeedback(),
	}
	first := NewAnalysis(scoring.ProjectInput{Name: " First ", Description: "one"}, result, base)
	second := NewAnalysis(scoring.ProjectInput{Name: "Second", Description: "two"}, result, base.Add(time.Minute))

	require.NoError(t, s.SaveAnalysis(ctx, "1.1.1.1", first))
	require.NoError(t, s.SaveAnalysis(ctx, "1.1.1.1", second))
	require.NoError(t, s.SaveAnalysis(ctx, "2.2.2.2", NewAnalysis(scoring.ProjectInput{Name: "Other", Description: "x"}, result, base)))

	list, err := s.ListAnalyses(ctx, "1.1.1.1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Second", list[0].ProjectName)
	require.Equal(t, "First", list[1].ProjectName)
	require.Equal(t, 80, list[0].Scores.Name)
	require.Equal(t, base.Add(time.Minute), list[0].Timestamp)
	require.NotNil(t, list[0].Feedback)
	require.Equal(t, scoring.DefaultOverallFeedback, list[0].Feedback.OverallFeedback)

	all, err := s.ListAnalyses(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestSaveAnalysisPrunesToRetention(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		a := NewAnalysis(scoring.ProjectInput{Name: fmt.Sprintf("p%02d", i), Description: "d"}, nil, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.SaveAnalysis(ctx, "ident", a))
	}

	list, err := s.ListAnalyses(ctx, "ident", 100)
	require.NoError(t, err)
	require.Len(t, list, DefaultRetention)
	require.Equal(t, "p14", list[0].ProjectName)
	require.Equal(t, "p05", list[len(list)-1].ProjectName)
}

func TestSaveAnalysisCustomRetention(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, WithRetention(2))

	for i := 0; i < 4; i++ {
		require.NoError(t, s.SaveAnalysis(ctx, "ident", Analysis{ProjectName: fmt.Sprintf("p%d", i), ProjectDescription: "d"}))
	}
	list, err := s.ListAnalyses(ctx, "ident", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "p3", list[0].ProjectName)
	require.Equal(t, "p2", list[1].ProjectName)
}

func TestListAnalysesSkipsMalformedRows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveAnalysis(ctx, "ident", Analysis{ProjectName: "good", ProjectDescription: "d", Timestamp: time.Unix(100, 0)}))
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO analyses (id, identity, project_name, project_description, scores_json, feedback_json, created_at)
		VALUES ('bad-1', 'ident', 'broken', 'd', '{not json', NULL, 200000)`)
	require.NoError(t, err)
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO analyses (id, identity, project_name, project_description, scores_json, feedback_json, created_at)
		VALUES ('bad-2', 'ident', 'bad feedback', 'd', '{"nameScore":5}', '[oops', 300000)`)
	require.NoError(t, err)

	list, err := s.ListAnalyses(ctx, "ident", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "bad feedback", list[0].ProjectName)
	require.Equal(t, 5, list[0].Scores.Name)
	require.Nil(t, list[0].Feedback)
	require.Equal(t, "good", list[1].ProjectName)
}

func TestHistoryOnNilStore(t *testing.T) {
	var s *Store
	require.Error(t, s.SaveAnalysis(context.Background(), "x", Analysis{}))
	_, err := s.ListAnalyses(context.Background(), "x", 1)
	require.Error(t, err)
}
