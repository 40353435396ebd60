package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/khanhct/trove/internal/events"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream configuration and instance events from NATS",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Event streaming talks to NATS directly, not the HTTP API.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		if natsURL == "" {
			natsURL = os.Getenv("TROVE_NATS_URL")
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS URL; set --nats-url or TROVE_NATS_URL")
		}

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Printf("nats: disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats: reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe("trove.>")
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Fprintln(os.Stderr, "watching trove.> (ctrl-c to stop)")
		for {
			select {
			case <-ctx.Done():
				return nil
			case data, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(data)
			}
		}
	},
}

// printEvent writes one event per line, compacted when the payload is JSON.
func printEvent(data []byte) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(buf.String())
}

func init() {
	watchCmd.Flags().String("nats-url", "", "NATS server URL")
}
