package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/repository"
	"MarketLens/internal/usecase"
	applogger "MarketLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

func newTestRouter(t *testing.T, store *repository.MemoryStore) *echo.Echo {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewMarketHandler(log, usecase.NewQueryUseCase(store, nil), nil)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func fptr(v float64) *float64 { return &v }

func TestRollupsEndpoint(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Now().UTC().Truncate(time.Minute)
	err := store.UpsertRollups(context.Background(), []models.RollupRecord{{
		Venue:        "gate",
		Symbol:       "BTCUSDT",
		BucketStart:  now.Add(-5 * time.Minute),
		AvgSpreadBps: fptr(4.2),
		SampleCount:  3,
	}})
	if err != nil {
		t.Fatalf("upsert rollups: %v", err)
	}
	e := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/rollups/BTCUSDT?venue=gate&hours=24", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data struct {
			Rows  []models.RollupRecord `json:"rows"`
			Total int64                 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Total != 1 || len(body.Data.Rows) != 1 {
		t.Fatalf("expected one rollup row, got total=%d rows=%d", body.Data.Total, len(body.Data.Rows))
	}
	row := body.Data.Rows[0]
	if row.SampleCount != 3 || row.AvgSpreadBps == nil || *row.AvgSpreadBps != 4.2 {
		t.Fatalf("unexpected rollup row %+v", row)
	}
}

func TestRollupsEndpointEmptyWindow(t *testing.T) {
	e := newTestRouter(t, repository.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/rollups/BTCUSDT?venue=gate", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Total != 0 {
		t.Fatalf("expected empty window, got total=%d", body.Data.Total)
	}
}
