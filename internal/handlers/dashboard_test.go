package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smart_environment/internal/chart"
	"smart_environment/internal/models"
	"smart_environment/internal/service"
)

func testSample(t *testing.T, tempC float64) models.Sample {
	t.Helper()
	s, err := models.NewSample(tempC, 55, models.NumericAirQuality(42),
		time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC), models.SourceLocal)
	if err != nil {
		t.Fatalf("NewSample: %v", err)
	}
	return s
}

func do(r http.Handler, method, target, token string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, vv := range authHeader(token) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestDashboardHandlers_ReadsArePublic(t *testing.T) {
	s1 := testSample(t, 33)
	in := models.Insight{Code: models.InsightHeat, Level: models.LevelAdvisory, Message: "hot"}
	dash := &mockDashboard{
		sample:  &s1,
		insight: &in,
		chart:   []models.Sample{s1},
		status:  models.PollingStatus{Mode: models.ModeLive, Running: true},
	}
	r := newTestRouter(&service.Service{Dashboard: dash, Polling: &mockPolling{status: dash.status}})

	w := do(r, http.MethodGet, "/api/v1/sample", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sample status=%d, body=%s", w.Code, w.Body.String())
	}
	var got models.Sample
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if got.TemperatureC != 33 || got.Source != models.SourceLocal {
		t.Fatalf("unexpected sample: %+v", got)
	}

	w = do(r, http.MethodGet, "/api/v1/insight", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("insight status=%d", w.Code)
	}
	var gotIn models.Insight
	_ = json.Unmarshal(w.Body.Bytes(), &gotIn)
	if gotIn.Code != models.InsightHeat {
		t.Fatalf("unexpected insight: %+v", gotIn)
	}

	w = do(r, http.MethodGet, "/api/v1/chart", "", nil)
	var chartResp struct {
		Count   int             `json:"count"`
		Samples []models.Sample `json:"samples"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &chartResp)
	if w.Code != http.StatusOK || chartResp.Count != 1 {
		t.Fatalf("chart status=%d resp=%+v", w.Code, chartResp)
	}

	w = do(r, http.MethodGet, "/api/v1/dashboard", "", nil)
	var view models.DashboardView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal view: %v", err)
	}
	if view.Sample == nil || view.Insight == nil || len(view.Chart) != 1 || !view.Status.Running {
		t.Fatalf("unexpected view: %+v", view)
	}

	w = do(r, http.MethodGet, "/api/v1/status", "", nil)
	var st models.PollingStatus
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if w.Code != http.StatusOK || st.Mode != models.ModeLive {
		t.Fatalf("status code=%d body=%+v", w.Code, st)
	}
}

func TestDashboardHandlers_NoSampleYet(t *testing.T) {
	r := newTestRouter(&service.Service{Dashboard: &mockDashboard{}})

	for _, path := range []string{"/api/v1/sample", "/api/v1/insight"} {
		w := do(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, w.Code)
		}
	}

	w := do(r, http.MethodGet, "/api/v1/dashboard", "", nil)
	var view map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if _, ok := view["sample"]; ok {
		t.Fatalf("expected sample to be omitted, got %v", view)
	}
}

func TestRefreshHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "success", err: nil, wantCode: http.StatusOK},
		{name: "coalesced", err: service.ErrResolutionInFlight, wantCode: http.StatusAccepted},
		{name: "discarded", err: service.ErrResultDiscarded, wantCode: http.StatusConflict},
		{
			name:     "all providers failed",
			err:      &service.SourceUnavailableError{},
			wantCode: http.StatusServiceUnavailable,
		},
		{name: "unexpected", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dash := &mockDashboard{refreshErr: tc.err}
			r := newTestRouter(&service.Service{Dashboard: dash})

			w := do(r, http.MethodPost, "/api/v1/refresh", "", nil)
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d (body=%s)", tc.wantCode, w.Code, w.Body.String())
			}
			if dash.refreshCount() != 1 {
				t.Fatalf("expected one RefreshNow call, got %d", dash.refreshCount())
			}
		})
	}
}

func TestChartPNGHandler(t *testing.T) {
	t.Run("renders png with requested size", func(t *testing.T) {
		dash := &mockDashboard{}
		r := newTestRouter(&service.Service{Dashboard: dash})

		w := do(r, http.MethodGet, "/api/v1/chart.png?width=640&height=320", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "image/png" {
			t.Fatalf("expected image/png, got %q", ct)
		}
		if dash.lastOptions.Width != 640 || dash.lastOptions.Height != 320 {
			t.Fatalf("unexpected options %+v", dash.lastOptions)
		}
	})

	t.Run("not enough points", func(t *testing.T) {
		r := newTestRouter(&service.Service{Dashboard: &mockDashboard{renderErr: chart.ErrNotEnoughPoints}})
		if w := do(r, http.MethodGet, "/api/v1/chart.png", "", nil); w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
	})

	t.Run("invalid size", func(t *testing.T) {
		r := newTestRouter(&service.Service{Dashboard: &mockDashboard{}})
		if w := do(r, http.MethodGet, "/api/v1/chart.png?width=-1", "", nil); w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestPollingHandlers_StartStopSetMode(t *testing.T) {
	auth := &mockAuth{parseID: 7}
	poll := &mockPolling{status: models.PollingStatus{Mode: models.ModeLive, Running: true}}
	r := newTestRouter(&service.Service{Authorization: auth, Polling: poll})

	// control routes require auth → 401 without header
	if w := do(r, http.MethodPost, "/api/v1/polling/start", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}
	if poll.startCalled != 0 {
		t.Fatalf("Start must not run without auth")
	}

	// start without body uses the default interval
	w := do(r, http.MethodPost, "/api/v1/polling/start", "valid", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start status=%d, body=%s", w.Code, w.Body.String())
	}
	if poll.startCalled != 1 || poll.lastInterval != 0 {
		t.Fatalf("unexpected Start calls=%d interval=%s", poll.startCalled, poll.lastInterval)
	}
	var resp struct {
		Status  string               `json:"status"`
		Polling models.PollingStatus `json:"polling"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != statusStarted || !resp.Polling.Running {
		t.Fatalf("unexpected start response: %+v", resp)
	}

	// start with explicit interval
	w = do(r, http.MethodPost, "/api/v1/polling/start", "valid", []byte(`{"interval":"2s"}`))
	if w.Code != http.StatusOK || poll.lastInterval != 2*time.Second {
		t.Fatalf("start with interval: code=%d interval=%s", w.Code, poll.lastInterval)
	}

	// invalid interval → 400
	w = do(r, http.MethodPost, "/api/v1/polling/start", "valid", []byte(`{"interval":"-3s"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative interval, got %d", w.Code)
	}

	// already running → 409
	poll.startErr = service.ErrAlreadyRunning
	w = do(r, http.MethodPost, "/api/v1/polling/start", "valid", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 when already running, got %d", w.Code)
	}

	// mode
	w = do(r, http.MethodPost, "/api/v1/polling/mode", "valid", []byte(`{"mode":"Simulated"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("mode status=%d, body=%s", w.Code, w.Body.String())
	}
	if poll.setModeCalls != 1 || poll.mode != models.ModeSimulated {
		t.Fatalf("SetMode calls=%d mode=%q", poll.setModeCalls, poll.mode)
	}
	var modeResp struct {
		Status string `json:"status"`
		Mode   string `json:"mode"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &modeResp)
	if modeResp.Status != statusModeSet || modeResp.Mode != "simulated" {
		t.Fatalf("bad mode response: %+v", modeResp)
	}

	// unknown mode is rejected before reaching the scheduler
	w = do(r, http.MethodPost, "/api/v1/polling/mode", "valid", []byte(`{"mode":"turbo"}`))
	if w.Code != http.StatusBadRequest || poll.setModeCalls != 1 {
		t.Fatalf("expected 400 without SetMode call, got %d calls=%d", w.Code, poll.setModeCalls)
	}

	// missing body field → 400
	w = do(r, http.MethodPost, "/api/v1/polling/mode", "valid", []byte(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", w.Code)
	}

	// stop
	w = do(r, http.MethodPost, "/api/v1/polling/stop", "valid", nil)
	if w.Code != http.StatusOK || poll.stopCalled != 1 {
		t.Fatalf("stop status=%d calls=%d", w.Code, poll.stopCalled)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}
