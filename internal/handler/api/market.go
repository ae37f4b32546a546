package api

import (
	"time"

	models "MarketLens/internal/domain/models"
	"MarketLens/internal/usecase"
	xhttp "MarketLens/pkg/http"
	xlogger "MarketLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler serves the read API and the force-collect endpoint.
type MarketHandler struct {
	logger  *xlogger.Logger
	query   *usecase.QueryUseCase
	collect *usecase.CollectUseCase
}

func NewMarketHandler(logger *xlogger.Logger, query *usecase.QueryUseCase, collect *usecase.CollectUseCase) *MarketHandler {
	return &MarketHandler{logger: logger, query: query, collect: collect}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/market/:symbol", h.Market)
	g.GET("/orderbook/:symbol", h.OrderBook)
	g.GET("/trades/:symbol", h.Trades)
	g.GET("/derivatives/:symbol", h.Derivatives)
	g.GET("/positioning/:symbol", h.Positioning)
	g.GET("/largeflow/:symbol", h.LargeFlow)
	g.GET("/mm/metrics/:symbol", h.MMMetrics)
	g.GET("/rollups/:symbol", h.Rollups)
	g.GET("/mm/compliance/:symbol", h.MMCompliance)
	g.POST("/collect/force", h.ForceCollect)
}

func rangeWindow(req *models.RangeRequest) (time.Time, time.Time) {
	now := time.Now().UTC()
	to := xhttp.ParseTimeDefault(req.To, now)
	from := xhttp.ParseTimeDefault(req.From, to.Add(-time.Duration(req.Hours)*time.Hour))
	return from, to
}

func (h *MarketHandler) Market(c echo.Context) error {
	req := &models.LatestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	q, err := h.query.LatestQuote(c.Request().Context(), req.Venue, req.Symbol)
	if err != nil {
		h.logger.Error("latest quote error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if q == nil {
		return xhttp.NotFoundResponse(c, "no quote recorded")
	}
	return xhttp.SuccessResponse(c, q)
}

func (h *MarketHandler) OrderBook(c echo.Context) error {
	req := &models.LatestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	b, err := h.query.LatestOrderBook(c.Request().Context(), req.Venue, req.Symbol)
	if err != nil {
		h.logger.Error("latest orderbook error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if b == nil {
		return xhttp.NotFoundResponse(c, "no order book recorded")
	}
	return xhttp.SuccessResponse(c, b)
}

func (h *MarketHandler) Trades(c echo.Context) error {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := rangeWindow(req)

	rows, err := h.query.Trades(c.Request().Context(), req.Venue, req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("trades range error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketHandler) Derivatives(c echo.Context) error {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := rangeWindow(req)

	rows, err := h.query.Derivatives(c.Request().Context(), req.Venue, req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("derivatives range error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketHandler) Positioning(c echo.Context) error {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := rangeWindow(req)

	rows, err := h.query.Positioning(c.Request().Context(), req.Venue, req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("positioning range error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketHandler) LargeFlow(c echo.Context) error {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := rangeWindow(req)

	rows, err := h.query.LargeFlows(c.Request().Context(), req.Venue, req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("largeflow range error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketHandler) Rollups(c echo.Context) error {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := rangeWindow(req)

	rows, err := h.query.Rollups(c.Request().Context(), req.Venue, req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("rollups range error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketHandler) MMMetrics(c echo.Context) error {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := rangeWindow(req)

	rows, err := h.query.Metrics(c.Request().Context(), req.Venue, req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("metrics range error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketHandler) MMCompliance(c echo.Context) error {
	req := &models.ComplianceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	to := time.Now().UTC()
	from := to.Add(-time.Duration(req.Hours) * time.Hour)

	sum, err := h.query.Compliance(c.Request().Context(), req.Venue, req.Symbol, from, to, req.SpreadBps)
	if err != nil {
		h.logger.Error("compliance error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *MarketHandler) ForceCollect(c echo.Context) error {
	req := &models.ForceCollectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	n, err := h.collect.Force(req.Venue)
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"tasks_triggered": n})
}
