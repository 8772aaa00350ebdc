package api

import (
	"net/http"
	"time"

	"TradeQuorum/internal/domain/models"
	domrepo "TradeQuorum/internal/domain/repository"
	"TradeQuorum/internal/usecase"
	xhttp "TradeQuorum/pkg/http"
	xlogger "TradeQuorum/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RoundsEchoHandler exposes the round pipeline over HTTP.
type RoundsEchoHandler struct {
	logger     *xlogger.Logger
	controller *usecase.RoundController
	facts      domrepo.FactStore
}

func NewRoundsEchoHandler(logger *xlogger.Logger, controller *usecase.RoundController, facts domrepo.FactStore) *RoundsEchoHandler {
	return &RoundsEchoHandler{logger: logger, controller: controller, facts: facts}
}

func (h *RoundsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/rounds", h.TriggerRound)
	g.GET("/rounds/latest", h.LatestRound)
	g.GET("/rounds/latest/decisions", h.LatestDecisions)
	g.GET("/rounds/latest/conflicts", h.LatestConflicts)
	g.GET("/rounds/:id", h.GetRound)
	g.GET("/health", h.Health)
}

// runRoundRequest optionally overrides the configured risk policy for
// one round. Empty fields keep the configured defaults.
type runRoundRequest struct {
	RiskProfile  string `json:"risk_profile" validate:"omitempty,oneof=averse neutral bold"`
	MaxPositions int    `json:"max_positions" default:"0" validate:"gte=0,lte=50"`
}

// TriggerRound runs one full round synchronously and returns its
// report. Rounds are serialized by the controller; a second request
// queues behind the running one.
func (h *RoundsEchoHandler) TriggerRound(c echo.Context) error {
	start := time.Now()
	req := &runRoundRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report, err := h.controller.RunRoundWith(c.Request().Context(), usecase.RoundOverrides{
		Profile:      models.RiskProfile(req.RiskProfile),
		MaxPositions: req.MaxPositions,
	})
	if err != nil {
		h.logger.Error("round failed", xlogger.String("round", report.ID), xlogger.Error(err))
		// The aborted report is still the response body; the status
		// tells the caller the round did not settle.
		return xhttp.DataResponse(c, http.StatusUnprocessableEntity, report)
	}
	h.logger.Info("round settled",
		xlogger.String("round", report.ID),
		xlogger.Int("claims", len(report.Claims)),
		xlogger.Duration("took", time.Since(start)),
	)
	return xhttp.SuccessResponse(c, report)
}

func (h *RoundsEchoHandler) LatestRound(c echo.Context) error {
	report := h.controller.LastReport()
	if report == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no round has run yet"))
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *RoundsEchoHandler) LatestDecisions(c echo.Context) error {
	report := h.controller.LastReport()
	if report == nil || report.Decisions == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no decisions available"))
	}
	return xhttp.SuccessResponse(c, report.Decisions)
}

func (h *RoundsEchoHandler) LatestConflicts(c echo.Context) error {
	report := h.controller.LastReport()
	if report == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no round has run yet"))
	}
	conflicts := report.Conflicts
	total := int64(len(conflicts))
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(conflicts) {
		conflicts = conflicts[:limit]
	}
	return xhttp.ListResponse(c, conflicts, total)
}

// GetRound answers for historical rounds from the fact store. The live
// round is served from controller memory via /rounds/latest.
func (h *RoundsEchoHandler) GetRound(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("round id is required"))
	}
	if latest := h.controller.LastReport(); latest != nil && latest.ID == id {
		return xhttp.SuccessResponse(c, latest)
	}
	if h.facts == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("round %s not found", id))
	}
	report, err := h.facts.GetRound(c.Request().Context(), id)
	if err != nil {
		h.logger.Warn("round lookup failed", xlogger.String("round", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("round %s not found", id))
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *RoundsEchoHandler) Health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.facts != nil {
		if err := h.facts.Health(c.Request().Context()); err != nil {
			status["status"] = "degraded"
			status["fact_store"] = err.Error()
		}
	}
	return xhttp.SuccessResponse(c, status)
}
