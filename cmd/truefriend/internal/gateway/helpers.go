package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/tinyland-inc/truefriend/cmd/truefriend/internal"
	"github.com/tinyland-inc/truefriend/pkg/channels"
	"github.com/tinyland-inc/truefriend/pkg/engagement"
	"github.com/tinyland-inc/truefriend/pkg/flow"
	"github.com/tinyland-inc/truefriend/pkg/logger"
	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/providers"
	"github.com/tinyland-inc/truefriend/pkg/qr"
	"github.com/tinyland-inc/truefriend/pkg/relay"
	"github.com/tinyland-inc/truefriend/pkg/router"
	"github.com/tinyland-inc/truefriend/pkg/store"
	"github.com/tinyland-inc/truefriend/pkg/vault"
)

// gatewayCmd wires every service explicitly and runs until interrupted.
// All collaborators are constructed here and injected; nothing holds
// package-level mutable state.
func gatewayCmd(debug bool) error {
	logger.SetDebug(debug)
	defer logger.Sync()

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	v, err := vault.New(cfg.Data.EncryptionKey)
	if err != nil {
		return fmt.Errorf("initializing vault: %w", err)
	}

	dbPath := cfg.Data.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.Open(dbPath, v)
	if err != nil {
		return err
	}
	defer st.Close()

	completer, err := providers.CreateCompleter(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Completion backend: %s\n", completer.Model())

	qrGen, err := qr.NewGenerator(cfg.Data.QRDir(), v)
	if err != nil {
		return err
	}

	rl := relay.New(st)
	defer rl.Close()

	fl := flow.New(st)
	boundary := router.NewBoundary(router.New(st, fl, rl, completer, qrGen))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var active []channels.Channel
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		active = append(active, channels.NewTelegramChannel(
			cfg.Channels.Telegram.Token, cfg.Channels.Telegram.AllowedUsers, boundary.Handle))
	}
	if cfg.Channels.WhatsApp.Enabled {
		active = append(active, channels.NewWhatsAppBridgeChannel(
			cfg.Channels.WhatsApp.Listen, cfg.Channels.WhatsApp.Secret,
			cfg.Channels.WhatsApp.AllowedUsers, boundary.Handle))
	}
	if len(active) == 0 {
		return fmt.Errorf("no channels enabled; configure telegram or whatsapp in %s", internal.GetConfigPath())
	}

	for _, ch := range active {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("starting %s channel: %w", ch.Name(), err)
		}
		go rl.RunWorker(ctx, ch.Platform(), ch)
		fmt.Printf("✓ Channel started: %s\n", ch.Name())
	}

	warnMissingWorkers(active)

	if cfg.Engage.Enabled {
		sched, err := engagement.NewScheduler(st, rl, cfg.Engage.Cron, cfg.Engage.InactiveHours)
		if err != nil {
			return err
		}
		go sched.Run(ctx)
		fmt.Println("✓ Engagement scheduler started")
	}

	fmt.Println("✓ Gateway running. Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	for _, ch := range active {
		_ = ch.Stop(context.Background())
	}
	fmt.Println("✓ Gateway stopped")

	return nil
}

// warnMissingWorkers flags platforms that can still be targeted by the
// relay but have no delivery worker, so envelopes would sit queued.
func warnMissingWorkers(active []channels.Channel) {
	running := map[model.Platform]bool{}
	for _, ch := range active {
		running[ch.Platform()] = true
	}
	for _, p := range []model.Platform{model.PlatformWhatsApp, model.PlatformTelegram} {
		if !running[p] {
			logger.C("gateway").Warnw("no delivery worker for platform; queued messages will wait",
				"platform", string(p))
		}
	}
}
