package cli

import (
	"guardian_bot/internal/app"
	"guardian_bot/internal/infra/config"
	idb "guardian_bot/internal/infra/database"
	"guardian_bot/internal/infra/logger"
)

// runtime is the store-backed part of the application shared by every command.
type runtime struct {
	cfg     *config.AppConfig
	session *idb.Session

	reports   *idb.PostgresReportRepository
	cooldowns *idb.PostgresCooldownRepository
	directory *idb.PostgresDirectoryRepository
	stats     *idb.PostgresStatsRepository
	guilds    *idb.PostgresGuildRepository
	members   *idb.PostgresMemberRepository
	reminders *idb.PostgresReminderRepository
	settings  *idb.PostgresSettingsRepository
	locker    *idb.PostgresLocker

	directoryService *app.DirectoryService
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "could not load application configuration", err)
	}
	logger.Init(cfg)
	return newRuntime(cfg), nil
}

func newRuntime(cfg *config.AppConfig) *runtime {
	session := idb.NewSession(idb.SessionConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MinConns:       cfg.DBMinConns,
		MaxConns:       cfg.DBMaxConns,
		CommandTimeout: cfg.DBCommandTimeout,
	}, logger.Component("database"))

	rt := &runtime{
		cfg:       cfg,
		session:   session,
		reports:   idb.NewPostgresReportRepository(session),
		cooldowns: idb.NewPostgresCooldownRepository(session),
		directory: idb.NewPostgresDirectoryRepository(session),
		stats:     idb.NewPostgresStatsRepository(session),
		guilds:    idb.NewPostgresGuildRepository(session),
		members:   idb.NewPostgresMemberRepository(session),
		reminders: idb.NewPostgresReminderRepository(session),
		settings:  idb.NewPostgresSettingsRepository(session),
		locker:    idb.NewPostgresLocker(session),
	}
	rt.directoryService = app.NewDirectoryService(rt.directory, rt.stats, rt.members, rt.settings, logger.Component("directory"))
	return rt
}

func (rt *runtime) Close() {
	if err := rt.session.Close(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close database session")
	}
}
