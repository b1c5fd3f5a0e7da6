package api

import (
	"context"
	"net/http"

	"github.com/C4T-BuT-S4D/grabber/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Ping(ctx context.Context) error
	GetStats(ctx context.Context) (*storage.Stats, error)
}

type Service struct {
	storage Store
}

func NewService(storage Store) *Service {
	return &Service{
		storage: storage,
	}
}

func (s *Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.HandleHealth())
	e.GET("/stats", s.HandleStats())
}

func (s *Service) HandleHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.storage.Ping(c.Request().Context()); err != nil {
			logrus.Errorf("health check failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "error": "database is unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}

func (s *Service) HandleStats() echo.HandlerFunc {
	return func(c echo.Context) error {
		stats, err := s.storage.GetStats(c.Request().Context())
		if err != nil {
			logrus.Errorf("failed to get stats: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to get stats"})
		}
		return c.JSON(http.StatusOK, stats)
	}
}
