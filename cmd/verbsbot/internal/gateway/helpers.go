package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/verbsbot/cmd/verbsbot/internal"
	"github.com/tinyland-inc/verbsbot/pkg/bus"
	"github.com/tinyland-inc/verbsbot/pkg/channels"
	"github.com/tinyland-inc/verbsbot/pkg/config"
	"github.com/tinyland-inc/verbsbot/pkg/health"
	"github.com/tinyland-inc/verbsbot/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func gatewayCmd(debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := internal.SetupLogging(cfg.Log, debug); err != nil {
		return fmt.Errorf("error configuring logging: %w", err)
	}
	if debug {
		fmt.Println("🔍 Debug mode enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector, closeDetector, err := internal.NewDetector(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error creating intent detector: %w", err)
	}
	defer func() {
		if err := closeDetector(); err != nil {
			logger.WarnCF("gateway", "Error closing intent backend", map[string]any{"error": err.Error()})
		}
	}()

	msgBus := bus.NewMessageBus(bus.DefaultCapacity)
	defer msgBus.Close()

	channelManager, err := channels.NewManager(cfg, msgBus, detector)
	if err != nil {
		return fmt.Errorf("error creating channel manager: %w", err)
	}

	if removeHook := setupAlerts(cfg, msgBus); removeHook != nil {
		defer removeHook()
	}

	enabledChannels := channelManager.GetEnabledChannels()
	if len(enabledChannels) == 0 {
		return errors.New("no channels enabled")
	}
	fmt.Printf("✓ Channels enabled: %s\n", enabledChannels)

	if err := channelManager.StartAll(ctx); err != nil {
		return fmt.Errorf("error starting channels: %w", err)
	}

	healthServer := health.NewServer(cfg.Gateway.Host, cfg.Gateway.Port, channelManager.Status)
	fmt.Printf("✓ Health endpoints available at http://%s/health and /ready\n", healthServer.Addr())
	fmt.Println("Press Ctrl+C to stop")

	err = run(ctx, channelManager, healthServer)

	fmt.Println("\nShutting down...")
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if stopErr := channelManager.StopAll(stopCtx); stopErr != nil {
		logger.WarnCF("gateway", "Error stopping channels", map[string]any{"error": stopErr.Error()})
	}
	if err != nil {
		return err
	}
	fmt.Println("✓ Gateway stopped")
	return nil
}

// setupAlerts forwards warnings to the Telegram admin chat when one is configured.
func setupAlerts(cfg *config.Config, msgBus *bus.MessageBus) func() {
	if !cfg.Telegram.Enabled || cfg.Telegram.ChatID == 0 {
		return nil
	}
	logger.InfoCF("gateway", "Log alerts enabled", map[string]any{"chat_id": cfg.Telegram.ChatID})
	return logger.AddHook(logger.WARN, channels.NewAlertHook(msgBus, "telegram", cfg.Telegram.ChatID))
}

// run blocks until ctx is cancelled or a channel dies. A dead channel is
// returned as an error so the process exits non-zero and gets restarted.
func run(ctx context.Context, manager *channels.Manager, healthServer *health.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(healthServer.Start)

	g.Go(func() error {
		manager.DispatchOutbound(gctx)
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-manager.Failures():
			return err
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return healthServer.Stop(shutdownCtx)
	})

	return g.Wait()
}
