package api

import (
	"time"

	models "MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	"MarketLens/internal/usecase"
	xhttp "MarketLens/pkg/http"
	xlogger "MarketLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports store reachability and per-venue collector health.
type HealthHandler struct {
	logger  *xlogger.Logger
	store   domrepo.Store
	collect *usecase.CollectUseCase
	started time.Time
}

func NewHealthHandler(logger *xlogger.Logger, store domrepo.Store, collect *usecase.CollectUseCase) *HealthHandler {
	return &HealthHandler{logger: logger, store: store, collect: collect, started: time.Now()}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/health", h.Health)
}

type healthResponse struct {
	Status        string               `json:"status"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	Store         string               `json:"store"`
	Venues        []models.VenueHealth `json:"venues"`
}

func (h *HealthHandler) Health(c echo.Context) error {
	res := &healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Store:         "ok",
	}
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Warn("store health check failed", xlogger.Error(err))
		res.Status = "degraded"
		res.Store = err.Error()
	}
	res.Venues = h.collect.VenueHealth()
	for _, v := range res.Venues {
		if v.Status == models.VenueDegraded {
			res.Status = "degraded"
			break
		}
	}
	return xhttp.SuccessResponse(c, res)
}
