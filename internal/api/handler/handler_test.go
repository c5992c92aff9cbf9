package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestiq/harvestiq/internal/api/handler"
	"github.com/harvestiq/harvestiq/internal/api/middleware"
	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/suggest"
)

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	var p models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestSessionKey(t *testing.T) {
	t.Run("user wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(middleware.SessionHeader, "sess-1")
		req = req.WithContext(middleware.WithUserID(req.Context(), "usr_1"))

		assert.Equal(t, "user:usr_1", handler.SessionKey(req))
	})

	t.Run("session header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(middleware.SessionHeader, "  sess-1 ")

		assert.Equal(t, "session:sess-1", handler.SessionKey(req))
	})

	t.Run("long session header is truncated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(middleware.SessionHeader, strings.Repeat("s", 300))

		assert.Equal(t, "session:"+strings.Repeat("s", 128), handler.SessionKey(req))
	})

	t.Run("client ip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "203.0.113.9:51234"

		assert.Equal(t, "ip:203.0.113.9", handler.SessionKey(req))
	})
}

func TestIrrigationHandler_ResolveSchedule(t *testing.T) {
	h := handler.NewIrrigationHandler()

	w := postJSON(t, h.ResolveSchedule, `{
		"sowingDate": "2024-06-01",
		"locale": "en",
		"schedule": [
			{"week": "Week 3-4", "action": "Irrigate", "amount": "50", "reason": "Tillering"},
			{"week": "Week 1-2", "action": "Skip", "reason": "Rain expected"}
		]
	}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var schedule []models.IrrigationWeek
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schedule))
	require.Len(t, schedule, 2)

	assert.Equal(t, "Jun 15 – Jun 28", schedule[0].Week)
	assert.Equal(t, 3, schedule[0].StartWeek)
	require.NotNil(t, schedule[0].Amount)
	assert.Equal(t, 50.0, *schedule[0].Amount)
	require.NotNil(t, schedule[0].Volume)
	assert.Equal(t, int64(500000), schedule[0].Volume.LitersPerHectare)

	assert.Equal(t, "Jun 1 – Jun 14", schedule[1].Week)
	assert.Nil(t, schedule[1].Amount)
	assert.Nil(t, schedule[1].Volume)
}

func TestIrrigationHandler_ResolveSchedule_NonFiniteAmount(t *testing.T) {
	h := handler.NewIrrigationHandler()

	w := postJSON(t, h.ResolveSchedule, `{
		"sowingDate": "2024-06-01",
		"schedule": [{"week": "Week 1-2", "action": "Irrigate", "amount": "NaN"}]
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	var schedule []models.IrrigationWeek
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schedule), w.Body.String())
	require.Len(t, schedule, 1)
	require.NotNil(t, schedule[0].Amount)
	assert.Equal(t, 0.0, *schedule[0].Amount)
	assert.Nil(t, schedule[0].Volume)
}

func TestIrrigationHandler_ResolveSchedule_BadDate(t *testing.T) {
	h := handler.NewIrrigationHandler()

	w := postJSON(t, h.ResolveSchedule, `{"sowingDate": "June 1", "schedule": []}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	p := decodeProblem(t, w)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "sowingDate", p.Errors[0].Field)
}

func TestIrrigationHandler_SummarizeUsage(t *testing.T) {
	h := handler.NewIrrigationHandler()

	w := postJSON(t, h.SummarizeUsage, `{
		"waterSavingsPct": 25,
		"schedule": [
			{"week": "Week 1-2", "action": "Irrigate", "amount": 50},
			{"week": "Week 3-4", "action": "Skip"},
			{"week": "Week 5-6", "action": "Irrigate", "amount": "75"}
		]
	}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var usage models.WaterUsage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &usage))
	assert.Equal(t, 480, usage.BaselineMm)
	assert.Equal(t, 360, usage.UsedMm)
	assert.Equal(t, 75, usage.PctOfBaseline)
	assert.Equal(t, 125.0, usage.PlannedTotalMm)
}

func TestIrrigationHandler_GetVolume(t *testing.T) {
	h := handler.NewIrrigationHandler()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantNil    bool
	}{
		{name: "positive", query: "?amountMm=10", wantStatus: http.StatusOK},
		{name: "zero gives null volume", query: "?amountMm=0", wantStatus: http.StatusOK, wantNil: true},
		{name: "negative gives null volume", query: "?amountMm=-5", wantStatus: http.StatusOK, wantNil: true},
		{name: "missing", query: "", wantStatus: http.StatusBadRequest},
		{name: "not a number", query: "?amountMm=lots", wantStatus: http.StatusBadRequest},
		{name: "nan", query: "?amountMm=NaN", wantStatus: http.StatusBadRequest},
		{name: "infinite", query: "?amountMm=%2BInf", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, http.NoBody)
			w := httptest.NewRecorder()

			h.GetVolume(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				p := decodeProblem(t, w)
				require.Len(t, p.Errors, 1)
				assert.Equal(t, "amountMm", p.Errors[0].Field)
				return
			}
			var resp models.VolumeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			if tt.wantNil {
				assert.Nil(t, resp.Volume)
				return
			}
			require.NotNil(t, resp.Volume)
			assert.Equal(t, int64(100000), resp.Volume.LitersPerHectare)
			assert.Equal(t, int64(40469), resp.Volume.LitersPerAcre)
		})
	}
}

type recordingSuggester struct {
	got    suggest.Request
	result suggest.Suggestion
}

func (s *recordingSuggester) Suggest(_ context.Context, req suggest.Request) suggest.Suggestion {
	s.got = req
	return s.result
}

func TestSuggestHandler_SuggestCrops(t *testing.T) {
	t.Run("passes soil through", func(t *testing.T) {
		s := &recordingSuggester{result: suggest.Suggestion{TopCrop: "Rice", Crops: []string{"Rice"}, Source: suggest.SourceModel}}
		h := handler.NewSuggestHandler(s)

		w := postJSON(t, h.SuggestCrops, `{"soil":{"type":"clay","ph":"6.8","organicMatterPct":2.5,"drainage":"poor"},"location":"Pune"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "clay", s.got.SoilType)
		assert.Equal(t, "6.8", s.got.PH)
		assert.Equal(t, "2.5", s.got.OrganicMatterPct)
		assert.Equal(t, "poor", s.got.Drainage)
		assert.Equal(t, "Pune", s.got.Location)
	})

	t.Run("unavailable backend still answers with a list", func(t *testing.T) {
		s := &recordingSuggester{result: suggest.Suggestion{Source: suggest.SourceUnavailable}}
		h := handler.NewSuggestHandler(s)

		w := postJSON(t, h.SuggestCrops, `{"soil":{}}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"crops":[]`)
	})

	t.Run("validation errors use json names", func(t *testing.T) {
		h := handler.NewSuggestHandler(&recordingSuggester{})

		w := postJSON(t, h.SuggestCrops, `{"soil":{},"location":"`+strings.Repeat("x", 121)+`"}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		p := decodeProblem(t, w)
		require.Len(t, p.Errors, 1)
		assert.Equal(t, "location", p.Errors[0].Field)
		assert.Equal(t, "max", p.Errors[0].Code)
	})

	t.Run("empty body", func(t *testing.T) {
		h := handler.NewSuggestHandler(&recordingSuggester{})

		w := postJSON(t, h.SuggestCrops, ``)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestForecastHandler_ComputeRisk_DefaultOnEmptyWeek(t *testing.T) {
	h := handler.NewForecastHandler(handler.ForecastHandlerConfig{})

	w := postJSON(t, h.ComputeRisk, `{"weekly":[],"crop":"rice"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var risk models.Risk
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &risk))
	assert.Equal(t, 40, risk.Level)
	assert.Equal(t, "low", risk.Bucket)
	assert.Equal(t, "Insufficient data; using default risk.", risk.Reason)
}
