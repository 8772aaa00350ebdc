package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/internal/usecase"
	xlogger "TradeQuorum/pkg/logger"

	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) *RoundsEchoHandler {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	controller := usecase.NewRoundController(
		usecase.RoundControllerConfig{Universe: []string{"BTC"}, Profile: models.RiskNeutral, MaxPositions: 5},
		nil,
		usecase.NewClaimVerifier(usecase.DefaultVerifierConfig(), nil, nil, nil),
		usecase.NewConsensusBuilder(nil),
		usecase.NewDecisionGenerator(nil, nil),
		nil,
		nil,
		nil,
		nil,
		nil,
		nil,
	)
	return NewRoundsEchoHandler(log, controller, nil)
}

func postRound(t *testing.T, h *RoundsEchoHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/rounds", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	if err := h.TriggerRound(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestTriggerRoundRejectsUnknownProfile(t *testing.T) {
	rec := postRound(t, newTestHandler(t), `{"risk_profile":"yolo"}`)

	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("expected envelope status 400, got %d: %s", resp.Status, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "ERR_ONEOF") {
		t.Fatalf("expected oneof validation error, got %s", rec.Body.String())
	}
}

func TestTriggerRoundAppliesProfileOverride(t *testing.T) {
	rec := postRound(t, newTestHandler(t), `{"risk_profile":"bold"}`)

	var resp struct {
		Status int `json:"status"`
		Data   struct {
			Profile models.RiskProfile
			State   models.RoundState
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("expected envelope status 200, got %d: %s", resp.Status, rec.Body.String())
	}
	if resp.Data.Profile != models.RiskBold {
		t.Fatalf("expected bold round, got %s", resp.Data.Profile)
	}
	if resp.Data.State != models.RoundSettled {
		t.Fatalf("expected settled round, got %s", resp.Data.State)
	}
}

func TestTriggerRoundEmptyBodyKeepsConfiguredProfile(t *testing.T) {
	rec := postRound(t, newTestHandler(t), "")

	var resp struct {
		Data struct {
			Profile models.RiskProfile
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Profile != models.RiskNeutral {
		t.Fatalf("expected configured profile, got %s", resp.Data.Profile)
	}
}
