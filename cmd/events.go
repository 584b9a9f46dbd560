package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/penguin-meds/internal/events"
	"github.com/Tiliavir/penguin-meds/internal/logging"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Change events published to RabbitMQ",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print change events as they are published, until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runEventsTail,
}

func init() {
	eventsCmd.AddCommand(eventsTailCmd)
}

func runEventsTail(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Events.AMQPURL == "" {
		return fmt.Errorf("%w: events.amqp_url is not configured", errUsage)
	}
	pub := a.pub
	if pub == nil {
		// openApp only warns when the broker is unreachable; tail needs it.
		if pub, err = events.Dial(a.cfg.Events.AMQPURL, a.cfg.Events.Exchange, a.cfg.Events.RoutingKey, a.log); err != nil {
			return err
		}
		defer pub.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	err = pub.Tail(ctx, func(e events.Event) error {
		fmt.Fprintf(out, "%s  %-9s %-8s %-10s %+5d mg  %s\n",
			e.At.In(a.loc).Format("15:04:05"), e.Category, e.Op, e.Day, e.Delta, e.EntryID)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		a.log.Debug("tail stopped", logging.FieldOperation, "tail")
		return nil
	}
	return err
}
