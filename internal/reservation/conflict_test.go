package reservation

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-reservation-backend/internal/apperr"
	"lab-reservation-backend/internal/model"
	"lab-reservation-backend/internal/store"
)

func day(d int) time.Time {
	return time.Date(2025, time.February, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	testCases := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		expected       bool
	}{
		{"partial overlap", day(10), day(12), day(11), day(13), true},
		{"touching end to start", day(10), day(12), day(12), day(14), false},
		{"disjoint", day(10), day(11), day(13), day(14), false},
		{"containment", day(10), day(20), day(12), day(13), true},
		{"identical", day(10), day(12), day(10), day(12), true},
		{"same start", day(10), day(11), day(10), day(15), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Overlaps(tc.s1, tc.e1, tc.s2, tc.e2))
			assert.Equal(t, tc.expected, Overlaps(tc.s2, tc.e2, tc.s1, tc.e1), "overlap must be symmetric")
		})
	}
}

func TestOverlaps_MatchesDefinition(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := day(1)
	interval := func() (time.Time, time.Time) {
		s := base.Add(time.Duration(rng.Intn(100)) * time.Hour)
		e := s.Add(time.Duration(1+rng.Intn(48)) * time.Hour)
		return s, e
	}

	for i := 0; i < 1000; i++ {
		s1, e1 := interval()
		s2, e2 := interval()
		want := s1.Before(e2) && s2.Before(e1)
		require.Equal(t, want, Overlaps(s1, e1, s2, e2))
		require.Equal(t, Overlaps(s1, e1, s2, e2), Overlaps(s2, e2, s1, e1))
	}
}

type fakeFinder struct {
	candidates []model.Reservation
	lastQuery  store.OverlapQuery
	err        error
}

func (f *fakeFinder) FindOverlapping(_ context.Context, q store.OverlapQuery) ([]model.Reservation, error) {
	f.lastQuery = q
	return f.candidates, f.err
}

func TestConflictChecker_HasConflict(t *testing.T) {
	ctx := context.Background()
	finder := &fakeFinder{candidates: []model.Reservation{
		{ID: 1, StartDate: day(1), EndDate: day(2)},
		{ID: 2, StartDate: day(10), EndDate: day(12)},
		{ID: 3, StartDate: day(11), EndDate: day(13)},
	}}
	checker := NewConflictChecker(finder)

	conflict, err := checker.FindConflict(ctx, 5, day(11), day(13), 0)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, uint(2), conflict.ID, "first overlapping candidate wins")
	assert.Equal(t, uint(5), finder.lastQuery.EquipmentID)
	assert.ElementsMatch(t, BlockingStatuses, finder.lastQuery.Statuses)

	conflict, err = checker.FindConflict(ctx, 5, day(11), day(12), 2)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, uint(3), conflict.ID, "excluded reservation is skipped")
	assert.Equal(t, uint(2), finder.lastQuery.ExcludeID)

	has, err := checker.HasConflict(ctx, 5, day(12), day(14), 3)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestConflictChecker_Errors(t *testing.T) {
	ctx := context.Background()
	checker := NewConflictChecker(&fakeFinder{})

	_, err := checker.HasConflict(ctx, 1, day(12), day(12), 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = checker.HasConflict(ctx, 1, day(13), day(12), 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	boom := errors.New("db down")
	_, err = NewConflictChecker(&fakeFinder{err: boom}).HasConflict(ctx, 1, day(1), day(2), 0)
	assert.ErrorIs(t, err, boom)
}
