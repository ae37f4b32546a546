package api

import "github.com/labstack/echo/v4"

// Router bundles every API handler behind one route registrar.
type Router struct {
	market *MarketHandler
	health *HealthHandler
}

func NewRouter(market *MarketHandler, health *HealthHandler) *Router {
	return &Router{market: market, health: health}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.market.RegisterRoutes(e)
	r.health.RegisterRoutes(e)
}
