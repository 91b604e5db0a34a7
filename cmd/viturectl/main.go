package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/viturectl/internal/calibration"
	"codeberg.org/mutker/viturectl/internal/config"
	"codeberg.org/mutker/viturectl/internal/control"
	"codeberg.org/mutker/viturectl/internal/device"
	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/hotplug"
	"codeberg.org/mutker/viturectl/internal/logger"
	"codeberg.org/mutker/viturectl/internal/metrics"
	"codeberg.org/mutker/viturectl/internal/mirror"
	"codeberg.org/mutker/viturectl/internal/orientation"
	"codeberg.org/mutker/viturectl/internal/pid"
	"codeberg.org/mutker/viturectl/internal/presence"
	"codeberg.org/mutker/viturectl/internal/relay"
	"codeberg.org/mutker/viturectl/internal/shm"
	"codeberg.org/mutker/viturectl/internal/telemetry"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const sendTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Str("config_file", cfg.ConfigFile).Msg("Config loaded")

	if err := cfg.Validate(); err != nil {
		fatal(err, "Invalid configuration")
	}

	if cfg.OneShot() {
		sendCommands(cfg)
		return
	}

	if err := run(cfg); err != nil {
		fatal(err, "Relay stopped")
	}
	logger.Info().Msg("Exiting...")
}

// sendCommands delivers the command-line calibration to a running relay.
// A relay that is not running is an error.
func sendCommands(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := control.Send(ctx, cfg.ControlAddr, cfg.Commands); err != nil {
		cancel()
		fatal(errors.New().Wrap(errors.ErrSendCommands, err), "Failed to send calibration commands")
	}

	logger.Info().Int("commands", len(cfg.Commands)).Msg("Calibration commands sent")
}

func run(cfg *config.Config) error {
	errFactory := errors.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	pidFile := pid.New(cfg.PIDFile)
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	sender, err := telemetry.Dial(cfg.OpenTrackIP, cfg.OpenTrackPort)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer func() {
		if err := sender.Close(); err != nil {
			logger.ErrorWithCode(errFactory.Wrap(errors.ErrShutdownRelay, err)).Msg("Failed to close OpenTrack socket")
		}
	}()
	logger.Debug().Str("addr", cfg.OpenTrackAddr()).Msg("Connected UDP socket to OpenTrack")

	state := calibration.New()
	latest := &orientation.Latest{}
	stream := orientation.NewStream(orientation.DefaultStreamSize)
	collector := metrics.NewCollector()

	listener, err := control.Listen(cfg.ControlAddr, state, latest, control.WithStats(collector))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer listener.Close()

	relayOpts := []relay.Option{
		relay.WithStats(collector),
		relay.WithTrace(cfg.Debug && cfg.Verbose),
	}
	if cfg.MQTTBroker != "" {
		pub, err := mirror.Connect(mirror.Config{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("MQTT mirror unavailable, continuing without it")
		} else {
			defer pub.Close()
			relayOpts = append(relayOpts, relay.WithMirror(pub))
		}
	}

	historyCfg := metrics.DefaultConfig()
	historyCfg.Enabled = cfg.MetricsEnabled
	historyCfg.Interval = cfg.MetricsInterval
	if cfg.MetricsDB != "" {
		historyCfg.DBPath = cfg.MetricsDB
	}
	history, err := metrics.NewHistory(historyCfg, logger.Default())
	if err != nil {
		return errFactory.Wrap(errors.ErrInitMetrics, err)
	}
	defer func() {
		if err := history.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close metrics history")
		}
	}()

	source, err := newSource(cfg, stream, collector)
	if err != nil {
		return err
	}

	r := relay.New(state, latest, sender, relayOpts...)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return source(ctx) })
	g.Go(func() error {
		if err := listener.Serve(ctx); err != nil {
			return errFactory.Wrap(errors.ErrControlLoop, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.Run(ctx, stream.C()); err != nil {
			return errFactory.Wrap(errors.ErrRelayLoop, err)
		}
		return nil
	})

	if cfg.MetricsAddr != "" {
		srv, err := metrics.Listen(cfg.MetricsAddr, collector)
		if err != nil {
			logger.Warn().Err(err).Msg("Metrics endpoint unavailable")
		} else {
			g.Go(func() error { return srv.Serve(ctx) })
		}
	}
	if cfg.MetricsEnabled {
		g.Go(func() error { return metrics.RunHistory(ctx, collector, history, cfg.MetricsInterval) })
	}

	logger.Info().
		Str("opentrack", cfg.OpenTrackAddr()).
		Str("control", listener.Addr().String()).
		Str("source", cfg.Source).
		Msg("Relay started")

	err = g.Wait()
	logger.Debug().Uint32("frames", r.Frame()).Msg("Relay finished")

	return err
}

// newSource prepares the sample producer selected by the configuration.
// Setup errors are returned immediately; the returned function runs the
// producer until ctx is cancelled and tags its failure with the loop code.
func newSource(cfg *config.Config, stream *orientation.Stream, collector *metrics.Collector) (func(context.Context) error, error) {
	errFactory := errors.New()

	switch cfg.Source {
	case config.SourceSHM:
		seg, err := shm.Attach(cfg.SHMPath)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrInitApp, err)
		}
		logger.Info().Str("path", cfg.SHMPath).Msg("Reading orientation from shared memory")

		src := shm.NewSource(seg, cfg.SHMInterval, stream)

		return func(ctx context.Context) error {
			if err := src.Run(ctx); err != nil {
				return errFactory.Wrap(errors.ErrSourceLoop, err)
			}
			return nil
		}, nil
	default:
		ctrl, err := presence.New(hotplug.VitureDevices, device.NativeSDK(), stream, presence.WithObserver(collector))
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrInitApp, err)
		}
		logger.Info().Msg("Waiting for Viture devices")

		return func(ctx context.Context) error {
			defer func() {
				logger.Debug().Bool("session_active", ctrl.Active()).Msg("Stopping presence controller")
				if err := ctrl.Close(); err != nil {
					logger.Error().Err(err).Msg("Failed to close presence controller")
				}
			}()
			if err := ctrl.Run(ctx); err != nil {
				return errFactory.Wrap(errors.ErrPresenceLoop, err)
			}
			return nil
		}, nil
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func fatal(err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.FatalWithCode(appErr).Msg(msg)
	}
	logger.Fatal().Err(err).Msg(msg)
}
