// Package server exposes the analysis pipeline over HTTP: one analyze
// endpoint and read-only history endpoints backed by the persistence gateway.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/notify"
	"github.com/AntoineSierzputowski/carmen/pipeline"
)

const defaultHistoryLimit = 100

// Server encapsulates the Echo instance and the pipeline collaborators.
type Server struct {
	echo       *echo.Echo
	runner     pipeline.Runner
	store      carmen.AnalysisStore
	dispatcher *notify.Dispatcher
}

// New wires a server around the runner. The store may be nil (history
// endpoints report 503); the dispatcher may be nil (no alert fan-out).
func New(runner pipeline.Runner, store carmen.AnalysisStore, dispatcher *notify.Dispatcher) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("SERVER: Request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))

	s := &Server{
		echo:       e,
		runner:     runner,
		store:      store,
		dispatcher: dispatcher,
	}

	e.GET("/health", s.handleHealth)
	api := e.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/history/:plant_id", s.handlePlantHistory)
	api.GET("/history", s.handleAllHistory)

	return s
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze runs one reading through the pipeline. The test_date query
// parameter back-dates the persisted record; it exists to synthesize history
// when exercising trend behavior.
func (s *Server) handleAnalyze(c echo.Context) error {
	var reading carmen.Reading
	if err := c.Bind(&reading); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if reading.PlantID == "" || reading.PlantType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "plant_id and plant_type are required")
	}

	var opts []pipeline.RunOption
	if raw := c.QueryParam("test_date"); raw != "" {
		if ts, ok := parseTestDate(raw); ok {
			opts = append(opts, pipeline.WithTimestamp(ts))
		} else {
			slog.Warn("SERVER: Ignoring invalid test_date", "test_date", raw)
		}
	}

	outcome, err := s.runner.Run(c.Request().Context(), reading, opts...)
	if err != nil {
		switch {
		case errors.Is(err, carmen.ErrEngineNotReady):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "reasoning engine is not ready")
		case errors.Is(err, carmen.ErrUnknownSpecies):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			slog.Error("SERVER: Analysis failed", "plant_id", reading.PlantID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "error during analysis")
		}
	}

	s.dispatchAlert(reading, outcome.Result)

	return c.JSON(http.StatusOK, outcome.Result)
}

// dispatchAlert fans an ALERT result out to the configured notifiers without
// holding up the response.
func (s *Server) dispatchAlert(reading carmen.Reading, result carmen.Result) {
	if s.dispatcher == nil || s.dispatcher.Empty() || result.Status != carmen.StatusAlert {
		return
	}

	subject := "Plant alert: " + reading.PlantID
	message := result.Message + "\nRecommended action: " + result.Action
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.dispatcher.Dispatch(ctx, subject, message); err != nil {
			slog.Error("SERVER: Alert dispatch incomplete", "plant_id", reading.PlantID, "error", err)
		}
	}()
}

type historyResponse struct {
	PlantID  string                  `json:"plant_id,omitempty"`
	Count    int                     `json:"count"`
	Analyses []carmen.AnalysisRecord `json:"analyses"`
}

func (s *Server) handlePlantHistory(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history store is not available")
	}

	plantID := c.Param("plant_id")
	limit, offset := paging(c)

	records, err := s.store.List(c.Request().Context(), plantID, limit, offset)
	if err != nil {
		slog.Error("SERVER: Failed to list history", "plant_id", plantID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "error retrieving history")
	}

	return c.JSON(http.StatusOK, historyResponse{
		PlantID:  plantID,
		Count:    len(records),
		Analyses: records,
	})
}

func (s *Server) handleAllHistory(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history store is not available")
	}

	limit, offset := paging(c)

	records, err := s.store.ListAll(c.Request().Context(), limit, offset)
	if err != nil {
		slog.Error("SERVER: Failed to list history", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "error retrieving history")
	}

	return c.JSON(http.StatusOK, historyResponse{
		Count:    len(records),
		Analyses: records,
	})
}
