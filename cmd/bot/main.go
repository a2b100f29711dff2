package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"geo_checkin_bot/internal/app"
	"geo_checkin_bot/internal/domain/geo"
	"geo_checkin_bot/internal/infra/config"
	"geo_checkin_bot/internal/infra/connectivity"
	idb "geo_checkin_bot/internal/infra/database"
	"geo_checkin_bot/internal/infra/geocoding"
	"geo_checkin_bot/internal/infra/localstore"
	"geo_checkin_bot/internal/infra/logger"
	"geo_checkin_bot/internal/infra/scheduler"
	"geo_checkin_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"environment":    cfg.Environment,
		"admin_id":       cfg.AdminTelegramID,
		"radius_m":       cfg.VerificationRadiusMeters,
		"local_store":    cfg.LocalStorePath,
		"geocoder_url":   cfg.GeocoderURL,
		"submit_timeout": cfg.SubmitTimeout.String(),
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database pool; reachability is tracked by the connectivity monitor, not checked here
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open database connection pool")
	}
	defer db.Close()

	studentRepo := idb.NewPostgresStudentRepository(db)
	checkInRepo := idb.NewPostgresCheckInRepository(db)
	targetRepo := idb.NewPostgresTargetRepository(db)

	store, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open local store")
	}
	defer store.Close()
	deviceID, err := app.DeviceIdentity(store)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load device identity")
	}
	mainLogger.WithField("device_id", deviceID).Info("Device identity loaded")

	monitor := connectivity.NewMonitor(db, cfg.ConnectivityProbeTimeout, logger.Component("connectivity"))
	fallback := geo.Point{Latitude: cfg.FallbackLatitude, Longitude: cfg.FallbackLongitude}

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"text":      c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	studentService := app.NewStudentService(studentRepo, store, cfg.AdminTelegramID, logger.Component("students"))
	checkInService, err := app.NewCheckInService(app.CheckInDeps{
		Resolver:     app.NewTargetResolver(targetRepo, store, logger.Component("targets")),
		Locations:    app.NewLocationAcquirer(fallback, cfg.FallbackAccuracyMeters, cfg.LocationTimeout, logger.Component("location")),
		Geocoder:     geocoding.NewNominatimClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, logger.Component("geocoder")),
		Submitter:    checkInRepo,
		History:      checkInRepo,
		Queue:        app.NewOfflineQueue(store),
		Connectivity: monitor,
		Notifier:     telegram.NewTelebotAdapter(bot),
	}, app.CheckInConfig{
		DeviceID:      deviceID,
		Verifier:      geo.NewVerifier(cfg.VerificationRadiusMeters),
		Fallback:      fallback,
		SubmitTimeout: cfg.SubmitTimeout,
		AdminChatID:   cfg.AdminTelegramID,
	}, logger.Component("checkin"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create check-in service")
	}

	monitor.OnRestore(func(ctx context.Context) {
		checkInService.ReplayAll(ctx)
	})
	// The first successful probe replays whatever was queued before a restart.
	if err := monitor.Check(ctx); err != nil {
		mainLogger.WithError(err).Warn("Database unreachable at startup, check-ins will be queued")
	}

	syncScheduler := scheduler.NewSyncScheduler(
		monitor,
		checkInService,
		logger.Component("scheduler"),
		cfg.CronSpecConnectivityCheck,
		cfg.CronSpecReplaySweep,
	)
	if err := syncScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start sync scheduler")
	}

	handlerLogger := logger.Component("telegram")
	telegram.RegisterBotCommands(ctx, bot, cfg.AdminTelegramID, studentService, handlerLogger)
	telegram.RegisterCheckInHandlers(ctx, bot, checkInService, studentService, telegram.NewLocationWaiter(), monitor, handlerLogger)
	telegram.RegisterAdminHandlers(ctx, bot, studentService, checkInService, cfg.AdminTelegramID, handlerLogger)
	mainLogger.Info("Telegram handlers registered")

	go bot.Start()
	mainLogger.Info("Application started")

	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	bot.Stop()
	syncScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
