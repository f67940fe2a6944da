package http

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"automiles/ml"
)

func postPredict(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlePredict(t *testing.T) {
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(&fakeModel{mpg: 28})}, 0)

	w := postPredict(h, `{"weight": 3.0}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["mpg"].(float64) != 28 {
		t.Fatalf("unexpected mpg: %v", payload["mpg"])
	}
	if payload["mpg_display"] != "28.0" || payload["weight_lbs"] != "3000" {
		t.Fatalf("unexpected labels: %v", payload)
	}
}

func TestHandlePredictStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		result ml.LoadResult
		body   string
		want   int
	}{
		{"model unavailable", ml.Unavailable(fs.ErrNotExist), `{"weight": 3}`, http.StatusServiceUnavailable},
		{"malformed json", ml.Loaded(&fakeModel{mpg: 1}), `{"weight":`, http.StatusBadRequest},
		{"missing weight", ml.Loaded(&fakeModel{mpg: 1}), `{}`, http.StatusBadRequest},
		{"out of range", ml.Loaded(&fakeModel{mpg: 1}), `{"weight": 0.1}`, http.StatusUnprocessableEntity},
		{"inference error", ml.Loaded(&fakeModel{err: errors.New("shape mismatch")}), `{"weight": 3}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeSource{result: tt.result}, 0)
			w := postPredict(h, tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			var payload map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if payload["error"] == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestHandlePredictMemoizesSuccess(t *testing.T) {
	model := &fakeModel{mpg: 21.4}
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(model)}, 16)

	for i := 0; i < 3; i++ {
		if w := postPredict(h, `{"weight": 2.6}`); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	if model.calls != 1 {
		t.Fatalf("expected one inference call, got %d", model.calls)
	}
}

func TestHandlePredictDoesNotMemoizeFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("shape mismatch")}
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(model)}, 16)

	postPredict(h, `{"weight": 3}`)
	postPredict(h, `{"weight": 3}`)

	if model.calls != 2 {
		t.Fatalf("expected failures to be retried, got %d calls", model.calls)
	}
}

func TestHealthHandler(t *testing.T) {
	h := newTestHandler(t, &fakeSource{result: ml.Unavailable(fs.ErrNotExist)}, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", w.Code, http.StatusOK)
	}
	expected := `{"model_loaded":false,"status":"ok"}`
	if strings.TrimSpace(w.Body.String()) != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", w.Body.String(), expected)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(&fakeModel{mpg: 28})}, 0)

	postPredict(h, `{"weight": 3}`)
	postPredict(h, `{"weight": 30}`)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var payload struct {
		Metrics []struct {
			Name  string  `json:"name"`
			Value float64 `json:"value"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	values := map[string]float64{}
	for _, m := range payload.Metrics {
		values[m.Name] = m.Value
	}
	if values["predictions_total"] != 1 || values["invalid_input_total"] != 1 {
		t.Fatalf("unexpected metrics %v", values)
	}
}
