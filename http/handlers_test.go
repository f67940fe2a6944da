package http

import (
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"automiles/ml"
)

type fakeModel struct {
	mpg   float64
	err   error
	calls int
}

func (f *fakeModel) Predict(x [][]float64) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float64{f.mpg}, nil
}

func (f *fakeModel) NumFeatures() int { return 1 }

type fakeSource struct {
	result ml.LoadResult
	loads  int
}

func (s *fakeSource) Load() ml.LoadResult {
	s.loads++
	return s.result
}

func newTestHandler(t *testing.T, source ModelSource, cacheSize int) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	handlers, err := NewHandlers(source, HandlersConfig{
		ModelPath: "models/car_mileage_lr_model.json",
		CacheSize: cacheSize,
	}, logger)
	if err != nil {
		t.Fatalf("new handlers: %v", err)
	}
	return NewHandler(DefaultServerConfig(), handlers, logger)
}

func postForm(h http.Handler, weight string) *httptest.ResponseRecorder {
	form := url.Values{"weight": {weight}}
	req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIndexRendersForm(t *testing.T) {
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(&fakeModel{mpg: 28})}, 0)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"AutoMiles Predictor",
		`min="0.5"`, `max="10"`, `step="0.1"`, `value="3"`,
		"Example: 3.2 means 3,200 lbs.",
		"Calculate MPG",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Model file not found") {
		t.Error("unexpected model warning")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestIndexWarnsWhenModelMissing(t *testing.T) {
	h := newTestHandler(t, &fakeSource{result: ml.Unavailable(fs.ErrNotExist)}, 0)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	want := "Model file not found. Please ensure &#39;car_mileage_lr_model.json&#39; is in the same directory."
	if !strings.Contains(w.Body.String(), want) {
		t.Fatalf("expected model warning, got %s", w.Body.String())
	}
}

func TestCalculateShowsResult(t *testing.T) {
	model := &fakeModel{mpg: 28.0}
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(model)}, 0)

	w := postForm(h, "3.0")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `<div class="highlight-text">28.0</div>`) {
		t.Errorf("expected MPG 28.0 in body")
	}
	if !strings.Contains(body, "Based on a vehicle weight of 3000 lbs") {
		t.Errorf("expected weight label 3000 in body")
	}
	if !strings.Contains(body, `value="3.0"`) {
		t.Errorf("expected entered weight to be kept")
	}
	if model.calls != 1 {
		t.Fatalf("expected one inference call, got %d", model.calls)
	}
}

func TestCalculateModelUnavailable(t *testing.T) {
	source := &fakeSource{result: ml.Unavailable(fs.ErrNotExist)}
	h := newTestHandler(t, source, 0)

	w := postForm(h, "3.0")

	body := w.Body.String()
	if !strings.Contains(body, "Model could not be loaded.") {
		t.Fatalf("expected unavailable warning, got %s", body)
	}
	if strings.Contains(body, "result-card") {
		t.Fatal("unexpected result card")
	}
}

func TestMissingArtifactEndToEnd(t *testing.T) {
	reads := 0
	loader := ml.NewLoader("car_mileage_lr_model.json", ml.WithReadFunc(func(string) ([]byte, error) {
		reads++
		return nil, fs.ErrNotExist
	}))
	h := newTestHandler(t, loader, 16)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "Model file not found.") {
		t.Fatal("expected load warning on first render")
	}

	w = postForm(h, "3.0")
	if !strings.Contains(w.Body.String(), "Model could not be loaded.") {
		t.Fatal("expected unavailable warning after calculate")
	}
	if reads != 1 {
		t.Fatalf("expected a single storage read, got %d", reads)
	}
}

func TestCalculatePredictionFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("X has 2 features, but LinearRegression is expecting 1")}
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(model)}, 0)

	w := postForm(h, "3.0")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	want := "An error occurred during prediction: X has 2 features, but LinearRegression is expecting 1"
	if !strings.Contains(w.Body.String(), want) {
		t.Fatalf("expected prediction error, got %s", w.Body.String())
	}
}

func TestCalculateRejectsBadInput(t *testing.T) {
	model := &fakeModel{mpg: 28}
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(model)}, 0)

	w := postForm(h, "heavy")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Enter a number between 0.5 and 10.0.") {
		t.Fatalf("expected field error")
	}
	if model.calls != 0 {
		t.Fatal("inference must not run on unparseable input")
	}
}

func TestCalculateOutOfRange(t *testing.T) {
	model := &fakeModel{mpg: 28}
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(model)}, 0)

	w := postForm(h, "12")

	if !strings.Contains(w.Body.String(), "An error occurred during prediction: weight must be between 0.5 and 10.0") {
		t.Fatalf("expected range error, got %s", w.Body.String())
	}
	if model.calls != 0 {
		t.Fatal("inference must not run for out-of-range weight")
	}
}

func TestStaticAssets(t *testing.T) {
	h := newTestHandler(t, &fakeSource{result: ml.Loaded(&fakeModel{})}, 0)

	req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), ".result-card") {
		t.Fatal("expected stylesheet body")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
