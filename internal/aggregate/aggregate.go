// Package aggregate derives per-day totals from the entries of a category.
// Every result is recomputed from the source; nothing is cached.
package aggregate

import (
	"errors"
	"fmt"
	"time"

	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

// ErrInvalidRange is returned when a range ends before it starts or a
// bound is not a day-key.
var ErrInvalidRange = errors.New("invalid range")

// Source supplies the entries to aggregate. *ledger.Store satisfies it.
type Source interface {
	ListRecent(c model.Category) ([]model.Entry, error)
}

// Aggregator computes totals over a Source.
type Aggregator struct {
	src Source
}

func New(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// ByDay sums amounts per day-key. Days without entries have no key.
func ByDay(entries []model.Entry) map[string]int {
	out := map[string]int{}
	for _, e := range entries {
		out[timecalc.DayKey(e.Timestamp)] += e.Amount
	}
	return out
}

// TotalsByDay returns the per-day totals for c.
func (a *Aggregator) TotalsByDay(c model.Category) (map[string]int, error) {
	entries, err := a.src.ListRecent(c)
	if err != nil {
		return nil, err
	}
	return ByDay(entries), nil
}

// TotalForDay returns the total for one day-key, 0 when nothing was logged.
func (a *Aggregator) TotalForDay(c model.Category, day string) (int, error) {
	totals, err := a.TotalsByDay(c)
	if err != nil {
		return 0, err
	}
	return totals[day], nil
}

// TotalForRange sums the days from start to end inclusive.
func (a *Aggregator) TotalForRange(c model.Category, start, end string) (int, error) {
	if err := checkRange(start, end); err != nil {
		return 0, err
	}
	totals, err := a.TotalsByDay(c)
	if err != nil {
		return 0, err
	}
	sum := 0
	for day, v := range totals {
		if day >= start && day <= end {
			sum += v
		}
	}
	return sum, nil
}

// TotalForWeek sums the ISO week (Monday to Sunday) containing ref.
func (a *Aggregator) TotalForWeek(c model.Category, ref time.Time) (int, error) {
	from, to := timecalc.WeekRange(ref)
	return a.TotalForRange(c, timecalc.DayKey(from), timecalc.DayKey(to))
}

// TotalsByKind sums amounts per kind over the inclusive range.
func (a *Aggregator) TotalsByKind(c model.Category, start, end string) (map[model.Kind]int, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	entries, err := a.src.ListRecent(c)
	if err != nil {
		return nil, err
	}
	out := map[model.Kind]int{}
	for _, e := range entries {
		if day := timecalc.DayKey(e.Timestamp); day >= start && day <= end {
			out[e.Kind] += e.Amount
		}
	}
	return out, nil
}

// Day-keys are zero-padded, so string order is calendar order.
func checkRange(start, end string) error {
	for _, d := range []string{start, end} {
		if _, err := time.Parse(timecalc.DayLayout, d); err != nil {
			return fmt.Errorf("%w: %q is not a day", ErrInvalidRange, d)
		}
	}
	if end < start {
		return fmt.Errorf("%w: %s is before %s", ErrInvalidRange, end, start)
	}
	return nil
}
