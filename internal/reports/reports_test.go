package reports

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/treefix50/recapadmin/internal/docstore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	store, err := docstore.Open(":memory:", docstore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(store, nil)
	svc.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	return svc
}

func submit(t *testing.T, svc *Service, seriesID string) string {
	t.Helper()
	id, err := svc.Submit(context.Background(), Report{
		SeriesID:    seriesID,
		SeriesTitle: "Title " + seriesID,
		ChangeType:  ChangeEpisodes,
		Description: "Episode 3 is missing",
		UserEmail:   "viewer@example.com",
	})
	require.NoError(t, err)
	return id
}

func TestSubmitCreatesPendingReport(t *testing.T) {
	svc := newTestService(t)
	id := submit(t, svc, "dark")

	report, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, report.ID)
	require.Equal(t, StatusPending, report.Status)
	require.Equal(t, "2025-03-01T12:01:00Z", report.CreatedAt)
	require.Empty(t, report.ReviewedBy)
}

func TestSubmitValidates(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Submit(context.Background(), Report{SeriesID: "dark"})
	require.ErrorIs(t, err, ErrInvalidReport)

	_, err = svc.Submit(context.Background(), Report{SeriesID: "dark", Description: "x", ChangeType: "cast"})
	require.ErrorIs(t, err, ErrInvalidReport)
}

func TestListNewestFirstAndFiltered(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := submit(t, svc, "a")
	second := submit(t, svc, "b")
	third := submit(t, svc, "c")

	require.NoError(t, svc.Review(ctx, second, StatusReviewed, "admin@example.com"))
	require.NoError(t, svc.Review(ctx, third, StatusRejected, "admin@example.com"))

	all, err := svc.List(ctx, FilterAll)
	require.NoError(t, err)
	ids := lo.Map(all, func(r Report, _ int) string { return r.ID })
	require.Equal(t, []string{third, second, first}, ids)

	pending, err := svc.List(ctx, FilterPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, first, pending[0].ID)

	reviewed, err := svc.List(ctx, FilterReviewed)
	require.NoError(t, err)
	require.Len(t, reviewed, 1)
	require.Equal(t, "admin@example.com", reviewed[0].ReviewedBy)
	require.NotEmpty(t, reviewed[0].ReviewedAt)

	rejected, err := svc.List(ctx, FilterRejected)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	require.Equal(t, third, rejected[0].ID)
}

func TestReviewErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := submit(t, svc, "a")

	require.ErrorIs(t, svc.Review(ctx, id, StatusPending, "admin"), ErrInvalidStatus)
	require.ErrorIs(t, svc.Review(ctx, "missing", StatusReviewed, "admin"), ErrNotFound)
}

func TestParseFilter(t *testing.T) {
	for raw, want := range map[string]Filter{
		"":          FilterAll,
		"all":       FilterAll,
		" Pending ": FilterPending,
		"reviewed":  FilterReviewed,
		"rejected":  FilterRejected,
	} {
		got, err := ParseFilter(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseFilter("archived")
	require.ErrorIs(t, err, ErrInvalidFilter)
}
