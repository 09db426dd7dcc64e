package main

import (
    "context"
    "errors"
    "flag"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"

    "github.com/labte-ums/lorawan-dashboard/internal/api"
    "github.com/labte-ums/lorawan-dashboard/internal/config"
    "github.com/labte-ums/lorawan-dashboard/internal/credentials"
    "github.com/labte-ums/lorawan-dashboard/internal/devices"
    "github.com/labte-ums/lorawan-dashboard/internal/notify"
    "github.com/labte-ums/lorawan-dashboard/internal/session"
    "github.com/labte-ums/lorawan-dashboard/internal/storage"
    "github.com/labte-ums/lorawan-dashboard/internal/telemetry"
)

func main() {
    // Command line flags
    var configFile string
    flag.StringVar(&configFile, "config", "config/dashboard.yml", "Configuration file path")
    flag.Parse()

    // Setup logging
    log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
    zerolog.SetGlobalLevel(zerolog.InfoLevel)

    // Load configuration
    cfg, err := config.Load(configFile)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to load configuration")
    }
    if err := cfg.ValidateServer(); err != nil {
        log.Fatal().Err(err).Msg("Invalid server configuration")
    }

    // Set log level
    level, err := zerolog.ParseLevel(cfg.Log.Level)
    if err != nil {
        level = zerolog.InfoLevel
    }
    zerolog.SetGlobalLevel(level)
    if cfg.Log.Format == "json" {
        log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
    }

    cfg.PrintConfigSummary()

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // Credentials
    creds, err := credentials.Load(cfg.Credentials.File)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to load credentials")
    }
    log.Info().
        Int("users", creds.Count("user")).
        Int("admins", creds.Count("admin")).
        Msg("Credentials loaded")

    // Session store
    store, err := storage.Open(ctx, cfg.Storage)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to open session store")
    }
    defer store.Close()

    sessions := session.NewManager(store, creds)
    if err := sessions.Restore(ctx); err != nil {
        log.Fatal().Err(err).Msg("Failed to restore sessions")
    }

    // Telemetry
    client := telemetry.NewClient(cfg.Telemetry)
    aggregator := devices.NewAggregator(client, devices.WithConcurrency(cfg.Devices.FetchConcurrency))

    // Optional: fleet report publishers
    var publishers notify.Multi

    if cfg.NATS.URL != "" {
        log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")
        nc, err := notify.ConnectNATS(cfg.NATS, "lorawan-ums-dashboard")
        if err != nil {
            log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without NATS support")
        } else {
            log.Info().Str("subject", cfg.NATS.Subject).Msg("Connected to NATS")
            publishers = append(publishers, notify.NewNATSPublisher(nc, cfg.NATS.Subject))
        }
    }

    if cfg.MQTT.BrokerURL != "" {
        log.Info().Str("broker", cfg.MQTT.BrokerURL).Msg("Connecting to MQTT...")
        mc, err := notify.ConnectMQTT(cfg.MQTT)
        if err != nil {
            log.Warn().Err(err).Msg("Failed to connect to MQTT, continuing without MQTT support")
        } else {
            publishers = append(publishers, notify.NewMQTTPublisher(mc, cfg.MQTT.Topic, cfg.MQTT.QoS))
        }
    }

    if len(publishers) == 0 {
        log.Info().Msg("No broker configured, fleet reports are not published")
    }
    defer publishers.Close()

    // HTTP server
    server := api.NewServer(cfg, sessions, client, aggregator, api.WithPublisher(publishers))

    errCh := make(chan error, 1)
    go func() {
        if err := server.ListenAndServe(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
    }()

    // Wait for signal
    sigChan := make(chan os.Signal, 1)
    signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

    select {
    case sig := <-sigChan:
        log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
    case err := <-errCh:
        log.Error().Err(err).Msg("Dashboard server failed")
    }

    cancel()

    shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer shutdownCancel()

    if err := server.Shutdown(shutdownCtx); err != nil {
        log.Error().Err(err).Msg("Failed to shutdown server gracefully")
    }

    log.Info().Msg("Dashboard stopped")
}
