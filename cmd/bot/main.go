package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/grabber/internal/bot"
	"github.com/C4T-BuT-S4D/grabber/internal/broadcast"
	"github.com/C4T-BuT-S4D/grabber/internal/config"
	"github.com/C4T-BuT-S4D/grabber/internal/deeplink"
	"github.com/C4T-BuT-S4D/grabber/internal/gate"
	"github.com/C4T-BuT-S4D/grabber/internal/janitor"
	"github.com/C4T-BuT-S4D/grabber/internal/logging"
	"github.com/C4T-BuT-S4D/grabber/internal/media"
	"github.com/C4T-BuT-S4D/grabber/internal/moderation"
	"github.com/C4T-BuT-S4D/grabber/internal/session"
	"github.com/C4T-BuT-S4D/grabber/internal/storage"
	"github.com/C4T-BuT-S4D/grabber/internal/worker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/telebot.v4"
)

func main() {
	setupConfig()
	logging.Init()

	cfg := config.New()
	logrus.Debugf("config: %v", cfg)

	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	store := storage.New(db)
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	initCtx, migrateCancel := context.WithTimeout(ctx, 10*time.Second)
	defer migrateCancel()

	if err := store.Migrate(initCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token: cfg.TelegramToken,
		Poller: &telebot.LongPoller{
			Timeout: 10 * time.Second,
			AllowedUpdates: []string{
				"message",
				"callback_query",
				"inline_query",
				"chosen_inline_result",
			},
		},
		OnError: func(err error, c telebot.Context) {
			logrus.Errorf("telebot error: %v", err)
		},
	})
	if err != nil {
		logrus.Fatalf("Failed to create bot: %v", err)
	}

	staging, err := media.NewStaging(cfg.StagingDir)
	if err != nil {
		logrus.Fatalf("Failed to prepare staging dir: %v", err)
	}

	fetchPool := worker.New(ctx, "fetch", cfg.FetchWorkers)
	broadcastPool := worker.New(ctx, "broadcast", 1)

	pipeline := media.NewPipeline(newFetcher(cfg), staging, tb, fetchPool, media.PipelineConfig{
		AdminID: cfg.AdminID,
		Timeout: cfg.FetchTimeout,
	})

	sessions := session.NewStore()
	links := deeplink.NewLinks(cfg.SessionTTL)

	b := bot.New(cfg, bot.Deps{
		Sender:      tb,
		Guard:       bot.NewGuard(store, gate.New(store, tb), tb, cfg.AdminID),
		Sessions:    sessions,
		Pipeline:    pipeline,
		Broadcaster: broadcast.New(store, tb, cfg.BroadcastRate),
		Moderation:  moderation.New(store, cfg.AdminID),
		Links:       links,
		Settings:    store,
		Background:  broadcastPool,
	})
	b.Register(tb)

	j := janitor.New(staging, sessions, links, cfg.StagingTTL, cfg.SessionTTL)
	if err := j.Start(cfg.CleanupSchedule); err != nil {
		logrus.Fatalf("Failed to start janitor: %v", err)
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Infof("starting bot @%s", tb.Me.Username)
		tb.Start()
	}()

	<-ctx.Done()

	tb.Stop()
	j.Stop()

	logrus.Info("waiting for services to finish")
	fetchPool.Close()
	broadcastPool.Close()
	wg.Wait()
}

func newFetcher(cfg *config.Config) media.Fetcher {
	if cfg.Fetcher == config.FetcherRemote {
		return media.NewRemoteFetcher(cfg.FetcherAPIURL, cfg.FetcherAPIKey)
	}
	return media.NewYTDLPFetcher(cfg.YTDLPPath)
}

func setupConfig() {
	viper.SetDefault("bot_handle_timeout", "10s")
	config.SetupCommon()
}
