// Package chart projects per-day totals into the labels/data pair a chart
// consumes, and keeps a renderer in sync with the store.
package chart

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/penguin-meds/internal/aggregate"
	"github.com/Tiliavir/penguin-meds/internal/ledger"
	"github.com/Tiliavir/penguin-meds/internal/logging"
	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

// Series is a chart's data: Labels[i] is a day-key, Data[i] its total.
type Series struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// Build orders totals by ascending day-key. Only days with entries appear.
func Build(totals map[string]int) Series {
	s := Series{Labels: make([]string, 0, len(totals)), Data: make([]int, 0, len(totals))}
	for day := range totals {
		s.Labels = append(s.Labels, day)
	}
	sort.Strings(s.Labels)
	for _, day := range s.Labels {
		s.Data = append(s.Data, totals[day])
	}
	return s
}

// Window lists every day from `from` to `to`, with zero for days without entries.
func Window(totals map[string]int, from, to time.Time) Series {
	days := timecalc.DayKeys(from, to)
	s := Series{Labels: days, Data: make([]int, len(days))}
	for i, day := range days {
		s.Data[i] = totals[day]
	}
	return s
}

// Sum returns the total of all data points.
func (s Series) Sum() int {
	n := 0
	for _, v := range s.Data {
		n += v
	}
	return n
}

// Renderer draws a series for a category.
type Renderer interface {
	Render(c model.Category, s Series) error
}

// Subscriber is the part of the store a Feed listens to.
type Subscriber interface {
	Subscribe(fn func(ledger.Change))
}

// Feed recomputes a category's series from the aggregator.
type Feed struct {
	agg *aggregate.Aggregator
	cat model.Category
	log *logging.Logger
}

func NewFeed(agg *aggregate.Aggregator, c model.Category, log *logging.Logger) *Feed {
	if log == nil {
		log = logging.Discard()
	}
	return &Feed{agg: agg, cat: c, log: log.WithComponent(logging.ComponentChart)}
}

// Current recomputes the series from scratch.
func (f *Feed) Current() (Series, error) {
	totals, err := f.agg.TotalsByDay(f.cat)
	if err != nil {
		return Series{}, err
	}
	return Build(totals), nil
}

// Attach renders the current series and re-renders after every change to
// the feed's category.
func (f *Feed) Attach(s Subscriber, r Renderer) error {
	if err := f.push(r); err != nil {
		return err
	}
	s.Subscribe(func(ch ledger.Change) {
		if ch.Category != f.cat {
			return
		}
		if err := f.push(r); err != nil {
			f.log.Warn("chart refresh failed", logging.FieldCategory, f.cat, logging.FieldError, err)
		}
	})
	return nil
}

func (f *Feed) push(r Renderer) error {
	s, err := f.Current()
	if err != nil {
		return err
	}
	return r.Render(f.cat, s)
}

// TextRenderer draws horizontal bars scaled to Width columns.
type TextRenderer struct {
	W     io.Writer
	Width int
}

func (t TextRenderer) Render(c model.Category, s Series) error {
	width := t.Width
	if width <= 0 {
		width = 40
	}
	peak := 0
	for _, v := range s.Data {
		if v > peak {
			peak = v
		}
	}
	if _, err := fmt.Fprintf(t.W, "%s (mg per day)\n", c); err != nil {
		return err
	}
	if len(s.Labels) == 0 {
		_, err := fmt.Fprintln(t.W, "  no entries")
		return err
	}
	for i, day := range s.Labels {
		n := 0
		if peak > 0 {
			n = s.Data[i] * width / peak
		}
		if s.Data[i] > 0 && n == 0 {
			n = 1
		}
		if _, err := fmt.Fprintf(t.W, "  %s │%s%s %d\n", day, strings.Repeat("█", n), strings.Repeat(" ", width-n), s.Data[i]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(t.W, "  total %d mg over %d days\n", s.Sum(), len(s.Labels))
	return err
}
