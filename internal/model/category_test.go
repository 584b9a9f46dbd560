package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/penguin-meds/internal/model"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    model.Category
		wantErr bool
	}{
		{"marijuana", model.Marijuana, false},
		{"mj", model.Marijuana, false},
		{" NIC ", model.Nicotine, false},
		{"nicotine", model.Nicotine, false},
		{"caffeine", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := model.ParseCategory(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, model.ErrInvalidCategory, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDescriptorAmounts(t *testing.T) {
	mj, err := model.Describe(model.Marijuana)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10, 15, 20, 25, 30, 35, 40, 45, 50}, mj.Amounts)

	nic, err := model.Describe(model.Nicotine)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, nic.Amounts)

	assert.NoError(t, mj.ValidateAmount(25))
	assert.ErrorIs(t, mj.ValidateAmount(7), model.ErrInvalidAmount)
	assert.ErrorIs(t, mj.ValidateAmount(55), model.ErrInvalidAmount)
	assert.ErrorIs(t, nic.ValidateAmount(0), model.ErrInvalidAmount)
	assert.ErrorIs(t, nic.ValidateAmount(11), model.ErrInvalidAmount)
}

func TestParseKind(t *testing.T) {
	mj, err := model.Describe(model.Marijuana)
	require.NoError(t, err)

	k, err := mj.ParseKind("Day  Gummy")
	require.NoError(t, err)
	assert.Equal(t, model.DayGummy, k)

	_, err = mj.ParseKind("pouch")
	assert.ErrorIs(t, err, model.ErrInvalidCategory)
}

func TestDescribeUnknown(t *testing.T) {
	_, err := model.Describe("coffee")
	assert.ErrorIs(t, err, model.ErrInvalidCategory)
}

func TestEntryValidate(t *testing.T) {
	ts := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	good := model.Entry{Category: model.Nicotine, Kind: model.Pouch, Amount: 4, Timestamp: ts}
	assert.NoError(t, good.Validate())

	bad := good
	bad.Kind = model.Oil
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidCategory)

	bad = good
	bad.Amount = 12
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidAmount)
}

func TestPatchApply(t *testing.T) {
	ts := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	e := model.Entry{ID: "a", Category: model.Marijuana, Kind: model.Oil, Amount: 10, Timestamp: ts}

	assert.True(t, model.Patch{}.IsEmpty())

	amount := 25
	got := model.Patch{Amount: &amount}.Apply(e)
	assert.Equal(t, 25, got.Amount)
	assert.Equal(t, model.Oil, got.Kind)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, 10, e.Amount, "original must be untouched")
}
