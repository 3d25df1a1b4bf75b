package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/boxwatch/boxwatch/internal/apiclient"
	"github.com/boxwatch/boxwatch/internal/simulator"
	"github.com/boxwatch/boxwatch/internal/synccache"
)

func init() { //nolint: gochecknoinits
	simulateCmd.Flags().StringVar(&simBox, "box", "", "bind the sensor to this box before starting")
	simulateCmd.Flags().StringVar(&simDevice, "device", "", "device id sent with every reading")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 0, "send interval (min 500ms)")
	simulateCmd.Flags().DurationVar(&simDuration, "duration", 0, "stop after this long, 0 runs until interrupted")

	rootCmd.AddCommand(simulateCmd)
}

var (
	simBox      string
	simDevice   string
	simInterval time.Duration
	simDuration time.Duration

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Stream synthetic sensor readings to a boxwatch server",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSimulation()
		},
	}
)

func runSimulation() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if simDuration > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, simDuration)
		defer cancel()
	}

	client := apiclient.New(cfg.Client)
	cache := synccache.New(client)

	if err := cache.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap from %s: %w", cfg.Client.BaseURL, err)
	}

	box := simBox
	if box == "" {
		box = cfg.Simulator.BoxID
	}

	if box != "" && !cache.BindSensorBox(ctx, box) {
		return fmt.Errorf("bind sensor to %s: %s", box, cache.Snapshot().LastError)
	}

	cancelSub := cache.Subscribe(func(s synccache.Snapshot) {
		if len(s.History) > 0 {
			h := s.History[0]
			log.Debug().Str("boxId", h.BoxID).Str("type", h.Type).Uint64("eventId", h.ID).Msg("latest event")
		}
	})
	defer cancelSub()

	url, err := client.WebsocketURL(cfg.Telemetry.Path)
	if err != nil {
		return err
	}

	opts := simulator.Options{
		DeviceID: cfg.Simulator.DeviceID,
		Interval: time.Duration(cfg.Simulator.IntervalMs) * time.Millisecond,
	}

	if simDevice != "" {
		opts.DeviceID = simDevice
	}

	if simInterval > 0 {
		opts.Interval = simInterval
	}

	sim := simulator.New(url, cache)
	if !sim.Start(opts) {
		return fmt.Errorf("start simulator: %s", sim.Status().LastError)
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sim.Stop()
			sim.Wait()
			log.Info().Msg("simulator stopped")

			return nil
		case <-ticker.C:
			st := sim.Status()
			log.Info().
				Bool("running", st.Running).
				Str("state", string(st.State)).
				Str("boxId", st.BoxID).
				Time("lastSentAt", st.LastSentAt).
				Time("lastAnomalyAt", st.LastAnomalyAt).
				Str("lastError", st.LastError).
				Msg("simulator status")

			if !st.Running {
				return fmt.Errorf("telemetry connection lost: %s", st.LastError)
			}
		}
	}
}
