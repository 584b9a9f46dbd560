package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Tiliavir/penguin-meds/internal/aggregate"
	"github.com/Tiliavir/penguin-meds/internal/config"
	"github.com/Tiliavir/penguin-meds/internal/events"
	"github.com/Tiliavir/penguin-meds/internal/form"
	"github.com/Tiliavir/penguin-meds/internal/ledger"
	"github.com/Tiliavir/penguin-meds/internal/logging"
	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/storage"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

// app bundles everything a command needs, built from the config.
type app struct {
	cfg     config.Config
	log     *logging.Logger
	loc     *time.Location
	backend storage.Backend
	store   *ledger.Store
	agg     *aggregate.Aggregator
	pub     *events.Publisher
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	lc := logging.DefaultConfig()
	lc.Level = level
	log := logging.New(lc)
	logging.SetDefault(log)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	backend, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "open", Key: cfg.Storage.Backend, Err: err}
	}
	store := ledger.New(backend,
		ledger.WithLocation(loc),
		ledger.WithLogger(log))
	if err := store.Load(ctx); err != nil {
		if !errors.Is(err, storage.ErrCorrupt) {
			_ = backend.Close()
			return nil, err
		}
		// Unreadable buckets were moved aside; the rest of the log is usable.
		log.Warn("some days could not be loaded", logging.FieldError, err)
	}

	a := &app{
		cfg:     cfg,
		log:     log.WithComponent(logging.ComponentCLI),
		loc:     loc,
		backend: backend,
		store:   store,
		agg:     aggregate.New(store),
	}

	if cfg.Events.AMQPURL != "" {
		pub, err := events.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.RoutingKey, log)
		if err != nil {
			// The log works without a broker.
			a.log.Warn("change events disabled", logging.FieldError, err)
		} else {
			a.pub = pub
			pub.Forward(ctx, store)
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.pub != nil {
		_ = a.pub.Close()
	}
	_ = a.backend.Close()
}

func (a *app) controller(cat model.Category, confirm form.Confirmer) *form.Controller {
	return form.New(a.store, confirm,
		form.WithCategory(cat),
		form.WithLocation(a.loc),
		form.WithLogger(a.log))
}

func (a *app) now() time.Time { return time.Now().In(a.loc) }

// selectedCategory parses the --category flag.
func selectedCategory() (model.Category, error) {
	return model.ParseCategory(categoryFlag)
}

// dayFlag parses an optional YYYY-MM-DD flag value into a day-key.
func dayFlag(name, value string, loc *time.Location) (string, error) {
	d, err := timecalc.ParseDay(value, loc)
	if err != nil {
		return "", fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return timecalc.DayKey(d), nil
}

// exitCode maps errors to the process exit status: 1 for input the user can
// fix, 2 for storage and everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidCategory),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, aggregate.ErrInvalidRange),
		errors.Is(err, timecalc.ErrInvalidDate),
		errors.Is(err, timecalc.ErrInvalidClock),
		errors.Is(err, form.ErrNoSelection),
		errors.Is(err, errUsage):
		return 1
	default:
		return 2
	}
}

var errUsage = errors.New("usage")

// promptConfirmer asks on out and reads y/yes from in.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(message string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", message)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func confirmer(yes bool, in io.Reader, out io.Writer) form.Confirmer {
	if yes {
		return form.ConfirmFunc(func(string) bool { return true })
	}
	return promptConfirmer{in: in, out: out}
}
