package form_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/penguin-meds/internal/form"
	"github.com/Tiliavir/penguin-meds/internal/ledger"
	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/storage"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

var fixedNow = time.Date(2026, 2, 27, 14, 45, 30, 0, time.UTC)

type answer struct {
	accept bool
	asked  []string
}

func (a *answer) Confirm(msg string) bool {
	a.asked = append(a.asked, msg)
	return a.accept
}

func setup(t *testing.T) (*form.Controller, *ledger.Store, *answer) {
	t.Helper()
	store := ledger.New(storage.NewMemoryBackend(), ledger.WithLocation(time.UTC))
	a := &answer{accept: true}
	c := form.New(store, a,
		form.WithCategory(model.Marijuana),
		form.WithLocation(time.UTC),
		form.WithClock(func() time.Time { return fixedNow }))
	return c, store, a
}

func TestCreateSubmit(t *testing.T) {
	c, store, _ := setup(t)
	ctx := context.Background()

	e, err := c.Submit(ctx, form.Fields{Kind: "Day Gummy", Amount: "20", Date: "2026-02-25", Time: "08:15 PM"})
	require.NoError(t, err)
	assert.Equal(t, model.DayGummy, e.Kind)
	assert.Equal(t, 20, e.Amount)
	assert.Equal(t, time.Date(2026, 2, 25, 20, 15, 0, 0, time.UTC), e.Timestamp)
	assert.Equal(t, form.ModeCreate, c.State().Mode)
	assert.Equal(t, form.Fields{}, c.Fields())

	list, err := store.ListRecent(model.Marijuana)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateDefaultsToNow(t *testing.T) {
	c, _, _ := setup(t)
	e, err := c.Submit(context.Background(), form.Fields{Kind: "oil", Amount: "5mg"})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, e.Timestamp)
}

func TestCreateValidationKeepsFields(t *testing.T) {
	c, store, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		fields form.Fields
		want   error
	}{
		{"amount off the scale", form.Fields{Kind: "oil", Amount: "7"}, model.ErrInvalidAmount},
		{"amount above range", form.Fields{Kind: "oil", Amount: "55"}, model.ErrInvalidAmount},
		{"amount not numeric", form.Fields{Kind: "oil", Amount: "lots"}, model.ErrInvalidAmount},
		{"amount missing", form.Fields{Kind: "oil"}, model.ErrInvalidAmount},
		{"kind of other category", form.Fields{Kind: "pouch", Amount: "10"}, model.ErrInvalidCategory},
		{"kind missing", form.Fields{Amount: "10"}, model.ErrInvalidCategory},
		{"bad date", form.Fields{Kind: "oil", Amount: "10", Date: "27.02.2026"}, timecalc.ErrInvalidDate},
		{"bad time", form.Fields{Kind: "oil", Amount: "10", Time: "25:99"}, timecalc.ErrInvalidClock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Submit(ctx, tt.fields)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, form.ModeCreate, c.State().Mode)
			assert.Equal(t, tt.fields, c.Fields())
		})
	}
	list, err := store.ListRecent(model.Marijuana)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSelectPrefillsAndEditUpdatesChangedFields(t *testing.T) {
	c, store, _ := setup(t)
	ctx := context.Background()

	orig, err := store.Add(ctx, model.Marijuana, model.Oil, 10, time.Date(2026, 2, 27, 9, 30, 45, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, c.Select(orig.ID))
	assert.Equal(t, form.State{Mode: form.ModeEdit, ID: orig.ID}, c.State())
	assert.Equal(t, form.Fields{Kind: "oil", Amount: "10", Date: "2026-02-27", Time: "09:30"}, c.Fields())

	f := c.Fields()
	f.Amount = "25"
	got, err := c.Submit(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, 25, got.Amount)
	assert.Equal(t, orig.Timestamp, got.Timestamp, "untouched time keeps its seconds")
	assert.Equal(t, form.ModeCreate, c.State().Mode)
}

func TestEditBlankFieldsMeanUnchanged(t *testing.T) {
	c, store, _ := setup(t)
	ctx := context.Background()

	orig, err := store.Add(ctx, model.Marijuana, model.Flower, 15, time.Date(2026, 2, 27, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, c.Select(orig.ID))

	got, err := c.Submit(ctx, form.Fields{Date: "2026-02-28"})
	require.NoError(t, err)
	assert.Equal(t, model.Flower, got.Kind)
	assert.Equal(t, 15, got.Amount)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC), got.Timestamp)

	day, err := store.ListDay(model.Marijuana, "2026-02-28")
	require.NoError(t, err)
	assert.Len(t, day, 1)
}

func TestEditValidationStaysInEdit(t *testing.T) {
	c, store, _ := setup(t)
	ctx := context.Background()

	orig, err := store.Add(ctx, model.Marijuana, model.Oil, 10, fixedNow)
	require.NoError(t, err)
	require.NoError(t, c.Select(orig.ID))

	f := c.Fields()
	f.Amount = "12"
	_, err = c.Submit(ctx, f)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
	assert.Equal(t, form.State{Mode: form.ModeEdit, ID: orig.ID}, c.State())
	assert.Equal(t, "12", c.Fields().Amount)

	got, err := store.Get(model.Marijuana, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Amount)
}

func TestEditOfRemovedEntry(t *testing.T) {
	c, store, _ := setup(t)
	ctx := context.Background()

	orig, err := store.Add(ctx, model.Marijuana, model.Oil, 10, fixedNow)
	require.NoError(t, err)
	require.NoError(t, c.Select(orig.ID))
	require.NoError(t, store.Remove(ctx, model.Marijuana, orig.ID))

	_, err = c.Submit(ctx, form.Fields{Amount: "20"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.Equal(t, form.ModeEdit, c.State().Mode)
}

func TestSelectUnknownID(t *testing.T) {
	c, _, _ := setup(t)
	assert.ErrorIs(t, c.Select("nope"), ledger.ErrNotFound)
	assert.Equal(t, form.ModeCreate, c.State().Mode)
}

func TestDeleteConfirmed(t *testing.T) {
	c, store, a := setup(t)
	ctx := context.Background()

	var first model.Entry
	for i := 0; i < 3; i++ {
		e, err := c.Submit(ctx, form.Fields{Kind: "flower", Amount: "5", Time: []string{"08:00", "09:00", "10:00"}[i]})
		require.NoError(t, err)
		if i == 0 {
			first = e
		}
	}
	list, _ := store.ListRecent(model.Marijuana)
	require.Len(t, list, 3)

	require.NoError(t, c.Select(first.ID))
	removed, err := c.RequestDelete(ctx)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, a.asked, 1)
	assert.Equal(t, form.ModeCreate, c.State().Mode)

	list, _ = store.ListRecent(model.Marijuana)
	assert.Len(t, list, 2)
	assert.ErrorIs(t, store.Remove(ctx, model.Marijuana, first.ID), ledger.ErrNotFound)
}

func TestDeleteDeclined(t *testing.T) {
	c, store, a := setup(t)
	ctx := context.Background()
	a.accept = false

	e, err := store.Add(ctx, model.Marijuana, model.Oil, 10, fixedNow)
	require.NoError(t, err)
	require.NoError(t, c.Select(e.ID))
	before := c.Fields()

	removed, err := c.RequestDelete(ctx)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, form.State{Mode: form.ModeEdit, ID: e.ID}, c.State())
	assert.Equal(t, before, c.Fields())

	_, err = store.Get(model.Marijuana, e.ID)
	assert.NoError(t, err)
}

func TestDeleteWithoutSelection(t *testing.T) {
	c, _, a := setup(t)
	_, err := c.RequestDelete(context.Background())
	assert.ErrorIs(t, err, form.ErrNoSelection)
	assert.Empty(t, a.asked)
}

func TestSwitchCategory(t *testing.T) {
	c, store, _ := setup(t)
	ctx := context.Background()

	e, err := store.Add(ctx, model.Marijuana, model.Oil, 10, fixedNow)
	require.NoError(t, err)
	require.NoError(t, c.Select(e.ID))

	require.NoError(t, c.SwitchCategory(model.Nicotine))
	assert.Equal(t, model.Nicotine, c.Category())
	assert.Equal(t, form.State{Mode: form.ModeCreate}, c.State())
	assert.Equal(t, form.Fields{}, c.Fields())

	got, err := c.Submit(ctx, form.Fields{Kind: "pouch", Amount: "4"})
	require.NoError(t, err)
	assert.Equal(t, model.Nicotine, got.Category)

	assert.ErrorIs(t, c.SwitchCategory("caffeine"), model.ErrInvalidCategory)
	assert.Equal(t, model.Nicotine, c.Category())
}
