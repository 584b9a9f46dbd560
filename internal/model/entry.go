package model

import "time"

// Entry represents a single logged consumption event.
type Entry struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Kind      Kind      `json:"kind"`
	Amount    int       `json:"amount_mg"`
	Timestamp time.Time `json:"timestamp"`
	// Seq is the insertion sequence; it only orders entries sharing a timestamp.
	Seq uint64 `json:"seq"`
}

// DayFile is the value stored under each entries:<category>:<day> key.
type DayFile struct {
	Date     string   `json:"date"`
	Category Category `json:"category"`
	Entries  []Entry  `json:"entries"`
}

// Patch carries the fields of a partial update. Nil fields are left as is.
type Patch struct {
	Kind      *Kind
	Amount    *int
	Timestamp *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Kind == nil && p.Amount == nil && p.Timestamp == nil
}

// Apply returns a copy of e with the patch fields set.
func (p Patch) Apply(e Entry) Entry {
	if p.Kind != nil {
		e.Kind = *p.Kind
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Timestamp != nil {
		e.Timestamp = *p.Timestamp
	}
	return e
}

// InLocation returns e with its timestamp expressed in loc.
func (e Entry) InLocation(loc *time.Location) Entry {
	e.Timestamp = e.Timestamp.In(loc)
	return e
}
