package aggregate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/penguin-meds/internal/aggregate"
	"github.com/Tiliavir/penguin-meds/internal/ledger"
	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/storage"
)

func newStore() (*ledger.Store, *aggregate.Aggregator) {
	s := ledger.New(storage.NewMemoryBackend(), ledger.WithLocation(time.UTC))
	return s, aggregate.New(s)
}

func ts(day string, hour int) time.Time {
	d, err := time.ParseInLocation("2006-01-02", day, time.UTC)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour) * time.Hour)
}

func TestByDayHasNoZeroKeys(t *testing.T) {
	entries := []model.Entry{
		{Amount: 5, Timestamp: ts("2026-02-27", 9)},
		{Amount: 10, Timestamp: ts("2026-02-27", 23)},
		{Amount: 20, Timestamp: ts("2026-03-01", 0)},
	}
	assert.Equal(t, map[string]int{"2026-02-27": 15, "2026-03-01": 20}, aggregate.ByDay(entries))
	assert.Empty(t, aggregate.ByDay(nil))
}

func TestFifteenEntriesOverFourDays(t *testing.T) {
	s, agg := newStore()
	ctx := context.Background()

	plan := map[string][]int{
		"2026-02-24": {5, 10, 15, 20},
		"2026-02-25": {50, 45},
		"2026-02-26": {5, 5, 5, 5, 30},
		"2026-02-28": {25, 35, 40, 10},
	}
	kinds := []model.Kind{model.Flower, model.Tincture, model.DayGummy, model.NightGummy, model.Oil}
	want := map[string]int{}
	grand, n := 0, 0
	for day, amounts := range plan {
		for i, a := range amounts {
			_, err := s.Add(ctx, model.Marijuana, kinds[n%len(kinds)], a, ts(day, 8+i))
			require.NoError(t, err)
			want[day] += a
			grand += a
			n++
		}
	}
	require.Equal(t, 15, n)

	for day, sum := range want {
		got, err := agg.TotalForDay(model.Marijuana, day)
		require.NoError(t, err)
		assert.Equal(t, sum, got, day)
	}
	got, err := agg.TotalForDay(model.Marijuana, "2026-02-27")
	require.NoError(t, err)
	assert.Zero(t, got)

	total, err := agg.TotalForRange(model.Marijuana, "2026-02-24", "2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, grand, total)

	byDay, err := agg.TotalsByDay(model.Marijuana)
	require.NoError(t, err)
	assert.Equal(t, want, byDay)

	byKind, err := agg.TotalsByKind(model.Marijuana, "2026-02-24", "2026-02-28")
	require.NoError(t, err)
	sum := 0
	for _, v := range byKind {
		sum += v
	}
	assert.Equal(t, grand, sum)
}

func TestAddIncreasesDayTotal(t *testing.T) {
	s, agg := newStore()
	ctx := context.Background()

	_, err := s.Add(ctx, model.Nicotine, model.Gum, 2, ts("2026-02-27", 8))
	require.NoError(t, err)
	before, err := agg.TotalForDay(model.Nicotine, "2026-02-27")
	require.NoError(t, err)

	_, err = s.Add(ctx, model.Nicotine, model.Pouch, 7, ts("2026-02-27", 12))
	require.NoError(t, err)
	after, err := agg.TotalForDay(model.Nicotine, "2026-02-27")
	require.NoError(t, err)
	assert.Equal(t, before+7, after)
}

func TestUpdateAmountDoesNotDoubleCount(t *testing.T) {
	s, agg := newStore()
	ctx := context.Background()
	day := "2026-02-27"

	_, err := s.Add(ctx, model.Marijuana, model.Flower, 5, ts("2026-02-26", 8))
	require.NoError(t, err)
	before, err := agg.TotalForDay(model.Marijuana, day)
	require.NoError(t, err)
	otherBefore, err := agg.TotalForDay(model.Marijuana, "2026-02-26")
	require.NoError(t, err)

	e, err := s.Add(ctx, model.Marijuana, model.Oil, 10, ts(day, 9))
	require.NoError(t, err)
	amount := 25
	_, err = s.Update(ctx, model.Marijuana, e.ID, model.Patch{Amount: &amount})
	require.NoError(t, err)

	after, err := agg.TotalForDay(model.Marijuana, day)
	require.NoError(t, err)
	assert.Equal(t, before+25, after)

	otherAfter, err := agg.TotalForDay(model.Marijuana, "2026-02-26")
	require.NoError(t, err)
	assert.Equal(t, otherBefore, otherAfter)
}

func TestUpdateTimestampMovesContribution(t *testing.T) {
	s, agg := newStore()
	ctx := context.Background()

	e, err := s.Add(ctx, model.Nicotine, model.Lozenge, 4, ts("2026-02-27", 22))
	require.NoError(t, err)
	_, err = s.Add(ctx, model.Nicotine, model.Gum, 2, ts("2026-02-28", 9))
	require.NoError(t, err)

	grandBefore, err := agg.TotalForRange(model.Nicotine, "2026-02-01", "2026-03-31")
	require.NoError(t, err)

	moved := ts("2026-02-28", 1)
	_, err = s.Update(ctx, model.Nicotine, e.ID, model.Patch{Timestamp: &moved})
	require.NoError(t, err)

	totals, err := agg.TotalsByDay(model.Nicotine)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2026-02-28": 6}, totals)

	grandAfter, err := agg.TotalForRange(model.Nicotine, "2026-02-01", "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, grandBefore, grandAfter)
}

func TestClearAllEmptiesTotals(t *testing.T) {
	s, agg := newStore()
	ctx := context.Background()
	_, err := s.Add(ctx, model.Nicotine, model.Gum, 2, ts("2026-02-27", 8))
	require.NoError(t, err)
	_, err = s.Add(ctx, model.Marijuana, model.Oil, 5, ts("2026-02-27", 8))
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))
	for _, c := range model.Categories() {
		totals, err := agg.TotalsByDay(c)
		require.NoError(t, err)
		assert.Empty(t, totals)
	}
}

func TestTotalForRangeInvalid(t *testing.T) {
	_, agg := newStore()
	_, err := agg.TotalForRange(model.Nicotine, "2026-02-28", "2026-02-27")
	assert.ErrorIs(t, err, aggregate.ErrInvalidRange)

	_, err = agg.TotalForRange(model.Nicotine, "yesterday", "2026-02-27")
	assert.ErrorIs(t, err, aggregate.ErrInvalidRange)

	got, err := agg.TotalForRange(model.Nicotine, "2026-02-27", "2026-02-27")
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = agg.TotalsByDay("caffeine")
	assert.ErrorIs(t, err, model.ErrInvalidCategory)
}

func TestTotalForWeek(t *testing.T) {
	s, agg := newStore()
	ctx := context.Background()

	// 2026-02-23 is a Monday.
	for _, day := range []string{"2026-02-22", "2026-02-23", "2026-03-01", "2026-03-02"} {
		_, err := s.Add(ctx, model.Nicotine, model.Gum, 3, ts(day, 12))
		require.NoError(t, err)
	}
	got, err := agg.TotalForWeek(model.Nicotine, ts("2026-02-26", 12))
	require.NoError(t, err)
	assert.Equal(t, 6, got)
}
