package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"mortalitytool/internal/model"
	"mortalitytool/internal/store"
)

// Reports is the read side of the report store.
type Reports interface {
	Counts(ctx context.Context, scope model.Scope) ([]model.CountRow, error)
	Categories(ctx context.Context, scope model.Scope) ([]model.CategoryRow, error)
	LatestRun(ctx context.Context) (store.Run, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	reports Reports
	logger  zerolog.Logger
}

func NewHandler(reports Reports, logger zerolog.Logger) *Handler {
	return &Handler{reports: reports, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/reports")
	g.GET("/counts", h.GetCounts)
	g.GET("/categories", h.GetCategories)
	g.GET("/runs/latest", h.GetLatestRun)
}

// TableResponse wraps an aggregate table with the run it came from.
type TableResponse[T any] struct {
	RunID string `json:"run_id"`
	Scope string `json:"scope"`
	Rows  []T    `json:"rows"`
}

// scopeParam reads ?scope=, defaulting to national.
func scopeParam(c echo.Context) (model.Scope, error) {
	s := c.QueryParam("scope")
	if s == "" {
		return model.National, nil
	}
	scope, err := model.ParseScope(s)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return scope, nil
}

func (h *Handler) storeError(err error) error {
	if errors.Is(err, store.ErrNoRuns) {
		return echo.NewHTTPError(http.StatusNotFound, "no report runs stored")
	}
	h.logger.Error().Err(err).Msg("report query failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "report query failed")
}

func (h *Handler) GetCounts(c echo.Context) error {
	scope, err := scopeParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	run, err := h.reports.LatestRun(ctx)
	if err != nil {
		return h.storeError(err)
	}
	rows, err := h.reports.Counts(ctx, scope)
	if err != nil {
		return h.storeError(err)
	}
	return c.JSON(http.StatusOK, TableResponse[model.CountRow]{RunID: run.RunID, Scope: scope.String(), Rows: rows})
}

func (h *Handler) GetCategories(c echo.Context) error {
	scope, err := scopeParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	run, err := h.reports.LatestRun(ctx)
	if err != nil {
		return h.storeError(err)
	}
	rows, err := h.reports.Categories(ctx, scope)
	if err != nil {
		return h.storeError(err)
	}
	return c.JSON(http.StatusOK, TableResponse[model.CategoryRow]{RunID: run.RunID, Scope: scope.String(), Rows: rows})
}

func (h *Handler) GetLatestRun(c echo.Context) error {
	run, err := h.reports.LatestRun(c.Request().Context())
	if err != nil {
		return h.storeError(err)
	}
	return c.JSON(http.StatusOK, run)
}

func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	body := map[string]interface{}{"status": "healthy"}
	if s, ok := h.reports.(interface{ Stats() store.PoolStats }); ok {
		body["pool"] = s.Stats()
	}

	if err := h.reports.Ping(ctx); err != nil {
		body["status"] = "unhealthy"
		body["error"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return c.JSON(http.StatusOK, body)
}
