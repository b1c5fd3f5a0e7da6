package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/grabber/internal/api"
	"github.com/C4T-BuT-S4D/grabber/internal/config"
	"github.com/C4T-BuT-S4D/grabber/internal/logging"
	"github.com/C4T-BuT-S4D/grabber/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
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

	service := api.NewService(store)
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	service.Register(e)

	go func() {
		if err := e.Start(cfg.APIListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to serve: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Failed to shut down: %v", err)
	}
}

func setupConfig() {
	config.SetupCommon()
}
