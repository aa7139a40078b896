package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"solar-parcel-be/pkg/events"
	pktNats "solar-parcel-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var watchDurable string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow finished searches on the NATS event stream",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDurable, "durable", "", "durable consumer name; empty follows new events only")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	sub, err := pktNats.NewSubscriber(natsURL)
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	color.Cyan("Watching %s on %s (Ctrl+C to stop)", pktNats.Subject(events.SearchCompletedType), natsURL)

	return sub.Subscribe(ctx, pktNats.Subject(events.SearchCompletedType), watchDurable, func(_ context.Context, ev events.Event) error {
		sc, err := events.DecodeSearchCompleted(ev.Payload())
		if err != nil {
			return err
		}
		fmt.Println(formatSearch(sc))
		return nil
	})
}

func formatSearch(sc events.SearchCompleted) string {
	outcome := color.GreenString(sc.Outcome)
	switch sc.Outcome {
	case "failed", "off_topic":
		outcome = color.RedString(sc.Outcome)
	case "exhausted", "needs_clarification":
		outcome = color.YellowString(sc.Outcome)
	}
	return fmt.Sprintf("%s  %-19s  %3d parcels  %d attempts  %5dms  %q",
		sc.OccurredAt.Format("15:04:05"), outcome, sc.ParcelCount, sc.Attempts, sc.DurationMs, sc.Query)
}
