// Package form holds the create/edit state machine that turns raw field
// text into store mutations. One controller serves every category.
package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Tiliavir/penguin-meds/internal/ledger"
	"github.com/Tiliavir/penguin-meds/internal/logging"
	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

// ErrNoSelection is returned by RequestDelete outside edit mode.
var ErrNoSelection = errors.New("no entry selected")

// Mode is the controller state.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// State is the current mode and, in edit mode, the selected entry id.
type State struct {
	Mode Mode
	ID   string
}

// Fields are the raw form inputs.
type Fields struct {
	Kind   string
	Amount string
	Date   string
	Time   string
}

// FieldsOf renders an entry as form fields.
func FieldsOf(e model.Entry) Fields {
	return Fields{
		Kind:   string(e.Kind),
		Amount: strconv.Itoa(e.Amount),
		Date:   timecalc.DayKey(e.Timestamp),
		Time:   e.Timestamp.Format("15:04"),
	}
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(message string) bool

func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

// Store is the subset of *ledger.Store the controller drives.
type Store interface {
	Add(ctx context.Context, c model.Category, k model.Kind, amount int, at time.Time) (model.Entry, error)
	Update(ctx context.Context, c model.Category, id string, p model.Patch) (model.Entry, error)
	Remove(ctx context.Context, c model.Category, id string) error
	Get(c model.Category, id string) (model.Entry, error)
}

// Controller tracks create/edit state for the active category.
type Controller struct {
	store   Store
	confirm Confirmer
	cat     model.Category
	state   State
	fields  Fields
	prefill Fields
	loc     *time.Location
	now     func() time.Time
	log     *logging.Logger
}

// Option configures a Controller.
type Option func(*Controller)

func WithCategory(c model.Category) Option { return func(f *Controller) { f.cat = c } }

func WithLocation(loc *time.Location) Option { return func(f *Controller) { f.loc = loc } }

// WithClock replaces time.Now for blank date and time fields.
func WithClock(now func() time.Time) Option { return func(f *Controller) { f.now = now } }

func WithLogger(l *logging.Logger) Option {
	return func(f *Controller) { f.log = l.WithComponent(logging.ComponentForm) }
}

// New returns a controller in create mode for the first category.
func New(store Store, confirm Confirmer, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		confirm: confirm,
		cat:     model.Categories()[0],
		loc:     time.Local,
		now:     time.Now,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State             { return c.state }
func (c *Controller) Category() model.Category { return c.cat }

// Fields returns the values currently shown, including the last submitted
// values after a failed submit.
func (c *Controller) Fields() Fields { return c.fields }

// Select enters edit mode for id and pre-populates the fields.
func (c *Controller) Select(id string) error {
	e, err := c.store.Get(c.cat, id)
	if err != nil {
		return err
	}
	c.state = State{Mode: ModeEdit, ID: id}
	c.fields = FieldsOf(e.InLocation(c.loc))
	c.prefill = c.fields
	return nil
}

// Cancel drops any selection and clears the fields.
func (c *Controller) Cancel() {
	c.reset()
}

// SwitchCategory changes the active category and returns to create mode.
func (c *Controller) SwitchCategory(cat model.Category) error {
	if _, err := model.Describe(cat); err != nil {
		return err
	}
	c.cat = cat
	c.reset()
	return nil
}

// Submit adds an entry in create mode or updates the selected entry in edit
// mode. On error the state and the submitted fields are kept.
func (c *Controller) Submit(ctx context.Context, f Fields) (model.Entry, error) {
	c.fields = f
	var (
		e   model.Entry
		err error
	)
	if c.state.Mode == ModeEdit {
		e, err = c.submitEdit(ctx, f)
	} else {
		e, err = c.submitCreate(ctx, f)
	}
	if err != nil && !errors.Is(err, ledger.ErrPersistence) {
		c.log.DebugContext(ctx, "submit rejected",
			logging.FieldCategory, c.cat,
			logging.FieldError, err)
		return model.Entry{}, err
	}
	// A persistence failure still changed the store.
	c.reset()
	return e, err
}

func (c *Controller) submitCreate(ctx context.Context, f Fields) (model.Entry, error) {
	d, err := model.Describe(c.cat)
	if err != nil {
		return model.Entry{}, err
	}
	if strings.TrimSpace(f.Kind) == "" {
		return model.Entry{}, fmt.Errorf("%w: type is required", model.ErrInvalidCategory)
	}
	kind, err := d.ParseKind(f.Kind)
	if err != nil {
		return model.Entry{}, err
	}
	amount, err := parseAmount(f.Amount)
	if err != nil {
		return model.Entry{}, err
	}

	now := c.now().In(c.loc)
	day := timecalc.StartOfDay(now)
	if strings.TrimSpace(f.Date) != "" {
		if day, err = timecalc.ParseDay(f.Date, c.loc); err != nil {
			return model.Entry{}, err
		}
	}
	clock := timecalc.ClockOf(now)
	if strings.TrimSpace(f.Time) != "" {
		if clock, err = timecalc.ParseClock(f.Time); err != nil {
			return model.Entry{}, err
		}
	}
	return c.store.Add(ctx, c.cat, kind, amount, timecalc.Combine(day, clock))
}

// submitEdit patches only the fields that differ from the pre-populated values.
func (c *Controller) submitEdit(ctx context.Context, f Fields) (model.Entry, error) {
	d, err := model.Describe(c.cat)
	if err != nil {
		return model.Entry{}, err
	}
	cur, err := c.store.Get(c.cat, c.state.ID)
	if err != nil {
		return model.Entry{}, err
	}
	cur = cur.InLocation(c.loc)

	var p model.Patch
	if s := strings.TrimSpace(f.Kind); s != "" && s != c.prefill.Kind {
		kind, err := d.ParseKind(s)
		if err != nil {
			return model.Entry{}, err
		}
		if kind != cur.Kind {
			p.Kind = &kind
		}
	}
	if s := strings.TrimSpace(f.Amount); s != "" && s != c.prefill.Amount {
		amount, err := parseAmount(s)
		if err != nil {
			return model.Entry{}, err
		}
		if amount != cur.Amount {
			p.Amount = &amount
		}
	}

	dateChanged := strings.TrimSpace(f.Date) != "" && strings.TrimSpace(f.Date) != c.prefill.Date
	timeChanged := strings.TrimSpace(f.Time) != "" && strings.TrimSpace(f.Time) != c.prefill.Time
	if dateChanged || timeChanged {
		day := timecalc.StartOfDay(cur.Timestamp)
		if dateChanged {
			if day, err = timecalc.ParseDay(f.Date, c.loc); err != nil {
				return model.Entry{}, err
			}
		}
		clock := timecalc.ClockOf(cur.Timestamp)
		if timeChanged {
			if clock, err = timecalc.ParseClock(f.Time); err != nil {
				return model.Entry{}, err
			}
		}
		ts := timecalc.Combine(day, clock)
		if !ts.Equal(cur.Timestamp) {
			p.Timestamp = &ts
		}
	}
	return c.store.Update(ctx, c.cat, c.state.ID, p)
}

// RequestDelete asks for confirmation and removes the selected entry.
// It reports whether the entry was removed; a declined prompt leaves the
// controller in edit mode.
func (c *Controller) RequestDelete(ctx context.Context) (bool, error) {
	if c.state.Mode != ModeEdit {
		return false, ErrNoSelection
	}
	msg := fmt.Sprintf("Delete %s entry %s?", c.cat, c.state.ID)
	if c.confirm == nil || !c.confirm.Confirm(msg) {
		return false, nil
	}
	err := c.store.Remove(ctx, c.cat, c.state.ID)
	if err != nil && !errors.Is(err, ledger.ErrPersistence) {
		return false, err
	}
	c.reset()
	return true, err
}

func (c *Controller) reset() {
	c.state = State{Mode: ModeCreate}
	c.fields = Fields{}
	c.prefill = Fields{}
}

func parseAmount(s string) (int, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "mg"))
	if s == "" {
		return 0, fmt.Errorf("%w: amount is required", model.ErrInvalidAmount)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", model.ErrInvalidAmount, s)
	}
	return n, nil
}
