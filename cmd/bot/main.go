package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jessevdk/go-flags"

	"nuclight.org/filevault-tg-bot/app/commands"
	"nuclight.org/filevault-tg-bot/app/health"
	"nuclight.org/filevault-tg-bot/app/services"
	"nuclight.org/filevault-tg-bot/app/storage"
	"nuclight.org/filevault-tg-bot/app/telegram"
	"nuclight.org/filevault-tg-bot/pkg/logger"
)

var opts struct {
	TelegramAPIToken   string        `long:"telegram-api-token" env:"TELEGRAM_API_TOKEN" required:"true" description:"telegram api token"`
	TelegramWorkersNum int           `long:"telegram-workers-num" env:"TELEGRAM_WORKERS_NUM" default:"5" description:"number of workers for telegram updates"`
	OperatorID         int64         `long:"operator-id" env:"OPERATOR_ID" required:"true" description:"telegram id of the sole privileged operator"`
	VaultChannelID     int64         `long:"vault-channel-id" env:"VAULT_CHANNEL_ID" required:"true" description:"channel holding permanent copies of staged items"`
	BackupChannelID    int64         `long:"backup-channel-id" env:"BACKUP_CHANNEL_ID" description:"channel receiving database backups, 0 disables backups"`
	DBPath             string        `long:"db-path" env:"DB_PATH" default:"./db/filevault.sqlite" description:"path to the sqlite database file"`
	HealthAddr         string        `long:"health-addr" env:"HEALTH_ADDR" default:":8080" description:"listen address of the health endpoint"`
	MaxRetention       time.Duration `long:"max-retention" env:"MAX_RETENTION" default:"168h" description:"upper bound of per-session auto-delete duration"`
	SessionTTL         time.Duration `long:"session-ttl" env:"SESSION_TTL" default:"0" description:"absolute session expiry since creation, 0 disables"`
	BroadcastWorkers   int           `long:"broadcast-workers" env:"BROADCAST_WORKERS" default:"8" description:"concurrent sends during broadcast"`
	SentryDSN          string        `long:"sentry-dsn" env:"SENTRY_DSN" description:"sentry dsn, empty disables error reporting"`
	Debug              bool          `long:"debug" env:"DEBUG" description:"enable debug logging"`
}

var Revision = "dev"

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	log := logger.NewLogger(opts.Debug)
	log.Info("starting bot", "revision", Revision)

	if opts.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:     opts.SentryDSN,
			Release: Revision,
		})
		if err != nil {
			log.Error("initializing sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := storage.NewSQLite(ctx, opts.DBPath)
	if err != nil {
		log.Error("creating sqlite3 database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("closing sqlite3 database", "error", err)
		}
	}()

	bot := &telegram.Client{
		Log:        log,
		APIToken:   opts.TelegramAPIToken,
		WorkersNum: opts.TelegramWorkersNum,
	}

	err = bot.Connect(ctx)
	if err != nil {
		log.Error("connecting bot", "error", err)
		os.Exit(1)
	}

	backups := &services.BackupSrv{
		Log:          log,
		DBPath:       opts.DBPath,
		BackupChatID: opts.BackupChannelID,
		Messenger:    bot,
	}

	scheduler := &services.Scheduler{
		Log:       log,
		Store:     db,
		Messenger: bot,
	}

	staging := services.NewStaging()

	finalizer := &services.FinalizerSrv{
		Log:          log,
		VaultChatID:  opts.VaultChannelID,
		MaxRetention: opts.MaxRetention,
		Staging:      staging,
		Store:        db,
		Messenger:    bot,
		Backups:      backups,
	}

	delivery := &services.DeliverySrv{
		Log:        log,
		OperatorID: opts.OperatorID,
		SessionTTL: opts.SessionTTL,
		Store:      db,
		Settings:   db,
		Messenger:  bot,
		Scheduler:  scheduler,
	}

	broadcast := &services.BroadcastSrv{
		Log:         log,
		Concurrency: opts.BroadcastWorkers,
		Store:       db,
		Messenger:   bot,
	}

	bot.Handler = &commands.Handler{
		Log:          log,
		OperatorID:   opts.OperatorID,
		MaxRetention: opts.MaxRetention,
		DBPath:       opts.DBPath,
		Staging:      staging,
		Finalizer:    finalizer,
		Delivery:     delivery,
		Broadcast:    broadcast,
		Backups:      backups,
		Store:        db,
		Responder:    bot,
	}

	// The persisted table is authoritative; re-arm it before any update can
	// schedule new actions.
	err = scheduler.RecoverOnStartup(ctx)
	if err != nil {
		log.Error("recovering scheduler", "error", err)
		os.Exit(1)
	}

	go func() {
		err := http.ListenAndServe(opts.HealthAddr, health.NewRouter(db))
		if err != nil && err != http.ErrServerClosed {
			log.Error("health server", "error", err)
		}
	}()

	err = bot.Run(ctx)
	if err != nil {
		log.Error("starting bot", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("stopping bot")

	scheduler.Stop()
	bot.Wait()

	backupCtx, backupCancel := context.WithTimeout(context.Background(), time.Minute)
	defer backupCancel()
	if _, err := backups.Backup(backupCtx); err != nil {
		log.Error("shutdown backup", "error", err)
	}
}
