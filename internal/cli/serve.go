package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"guardian_bot/internal/app"
	idb "guardian_bot/internal/infra/database"
	"guardian_bot/internal/infra/logger"
	"guardian_bot/internal/infra/scheduler"
	"guardian_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the reminder scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			return runServe(cmd.Context(), rt)
		},
	}
}

func runServe(parent context.Context, rt *runtime) error {
	mainLogger := logger.Component("main")
	cfg := rt.cfg
	if err := cfg.RequireBot(); err != nil {
		return WrapExitError(ExitCommandError, "bot configuration incomplete", err)
	}
	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"admin_id":    cfg.AdminTelegramID,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := idb.EnsureSchema(ctx, rt.session); err != nil {
		return storeExitError("could not prepare database schema", err)
	}
	if done, err := rt.settings.IsScanCompleted(ctx); err != nil {
		mainLogger.WithError(err).Warn("Could not read introduction backfill state")
	} else if !done {
		mainLogger.Info("Introduction history not imported yet, run the import command to backfill it")
	}
	if last, ok, err := rt.reminders.LastDate(ctx); err != nil {
		mainLogger.WithError(err).Warn("Could not read the reminder log")
	} else if ok {
		mainLogger.WithField("date", last.Format("2006-01-02")).Info("Last introduction reminder found")
	}

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Unhandled bot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		return WrapExitError(ExitFailure, "could not create Telegram bot", err)
	}
	notifier := telegram.NewTelebotAdapter(bot)

	// Handlers get their own context so a signal stops intake without cancelling
	// operations that are already running. It is cancelled after they drain.
	handlerCtx, cancelHandlers := context.WithCancel(context.WithoutCancel(parent))
	defer cancelHandlers()
	tracker := telegram.NewHandlerTracker()
	bot.Use(tracker.Middleware)

	reportService := app.NewReportService(rt.reports, rt.cooldowns, rt.guilds, notifier,
		cfg.ReportCooldown, cfg.ReportListLimit, logger.Component("reports"))
	reminderService := app.NewReminderService(rt.locker, rt.reminders, rt.members, rt.stats, notifier,
		cfg.CommunityChatID, cfg.ReminderLocation, cfg.ReminderMaxMentions, logger.Component("reminder"))
	adminService := app.NewAdminService(rt.guilds, reportService, rt.directoryService, reminderService, cfg.AdminTelegramID)

	handlerLogger := logger.Component("telegram")
	telegram.RegisterBotCommands(handlerCtx, bot, cfg, rt.directoryService, handlerLogger)
	telegram.RegisterReportHandlers(handlerCtx, bot, reportService, handlerLogger)
	telegram.RegisterAdminHandlers(handlerCtx, bot, adminService, cfg.AdminTelegramID, handlerLogger)
	telegram.RegisterCommunityHandlers(handlerCtx, bot, rt.directoryService, telegram.CommunityChats{
		IntroductionChatID: cfg.IntroductionChatID,
		CommunityChatID:    cfg.CommunityChatID,
	}, handlerLogger)
	mainLogger.Info("Command handlers registered")

	reminderScheduler := scheduler.NewReminderScheduler(reminderService, logger.Component("scheduler"),
		cfg.CronSpecDailyReminder, cfg.ReminderLocation)
	if err := reminderScheduler.Start(); err != nil {
		return WrapExitError(ExitCommandError, "invalid reminder schedule", err)
	}

	mainLogger.Info("Application setup complete. Bot and Scheduler are starting...")
	go bot.Start()

	<-ctx.Done()
	mainLogger.Info("Shutting down application...")
	shutdown(mainLogger, shutdownTimeout, func() {
		reminderScheduler.Stop()
		bot.Stop()
	}, tracker, cancelHandlers)
	return nil
}

// shutdown stops intake, then waits for running handlers before cancelling
// their context. The caller closes the session afterwards.
func shutdown(log *logrus.Entry, timeout time.Duration, stopIntake func(), handlers *telegram.HandlerTracker, cancelHandlers context.CancelFunc) {
	defer cancelHandlers()
	deadline, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		stopIntake()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-deadline.Done():
		log.Warn("Shutdown timed out, closing the database anyway")
		return
	}

	if n := handlers.Running(); n > 0 {
		log.WithField("handlers", n).Info("Waiting for running handlers")
	}
	if err := handlers.Wait(deadline); err != nil {
		log.WithField("handlers", handlers.Running()).Warn("Handlers still running at shutdown, cancelling them")
		return
	}
	log.Info("Application shut down gracefully.")
}
