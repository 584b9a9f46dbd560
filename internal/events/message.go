// Package events publishes entry changes to an AMQP exchange so other
// processes can follow the log.
package events

import (
	"encoding/json"
	"time"

	"github.com/Tiliavir/penguin-meds/internal/ledger"
	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

// Event is the message body published for each change.
type Event struct {
	Op        ledger.Op      `json:"op"`
	Category  model.Category `json:"category"`
	EntryID   string         `json:"entry_id,omitempty"`
	Kind      model.Kind     `json:"kind,omitempty"`
	AmountMg  int            `json:"amount_mg,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Day       string         `json:"day,omitempty"`
	// Delta is the change this event makes to Day's total.
	Delta int       `json:"delta_mg"`
	At    time.Time `json:"at"`
}

// FromChange builds the event for a store change. Removals describe the
// removed entry.
func FromChange(ch ledger.Change, now time.Time) Event {
	ev := Event{Op: ch.Op, Category: ch.Category, At: now}
	e := ch.Entry
	switch ch.Op {
	case ledger.OpRemoved:
		e = ch.Previous
		ev.Delta = -e.Amount
	case ledger.OpUpdated:
		if timecalc.SameDay(ch.Previous.Timestamp, e.Timestamp) {
			ev.Delta = e.Amount - ch.Previous.Amount
		} else {
			ev.Delta = e.Amount
		}
	case ledger.OpAdded:
		ev.Delta = e.Amount
	case ledger.OpCleared:
		return ev
	}
	ts := e.Timestamp
	ev.EntryID = e.ID
	ev.Kind = e.Kind
	ev.AmountMg = e.Amount
	ev.Timestamp = &ts
	ev.Day = timecalc.DayKey(ts)
	return ev
}

// ToJSON encodes the event.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event body.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
