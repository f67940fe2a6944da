package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// LoadModel reads an artifact of the given type from path.
func LoadModel(modelType, path string) (Regressor, error) {
	switch modelType {
	case ModelTypeLinearRegression, "":
		model := &LinearRegression{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
}

// DecodeArtifact picks the model implementation from the artifact's type field.
func DecodeArtifact(payload []byte) (Regressor, error) {
	return decodeArtifact("", payload)
}

// decodeArtifact additionally requires the artifact to declare expectType
// when both are set.
func decodeArtifact(expectType string, payload []byte) (Regressor, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if expectType != "" && header.Type != "" && header.Type != expectType {
		return nil, fmt.Errorf("%w: artifact is %q, configured %q", ErrUnsupportedModel, header.Type, expectType)
	}
	switch header.Type {
	case ModelTypeLinearRegression, "":
		model := &LinearRegression{}
		if err := json.Unmarshal(payload, model); err != nil {
			return nil, fmt.Errorf("decode artifact: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, header.Type)
	}
}

// LoadResult is the outcome of a load: either a model or the reason it is
// unavailable.
type LoadResult struct {
	model Regressor
	err   error
}

func Loaded(model Regressor) LoadResult {
	return LoadResult{model: model}
}

func Unavailable(cause error) LoadResult {
	if cause == nil {
		cause = ErrModelUnavailable
	}
	return LoadResult{err: fmt.Errorf("%w: %w", ErrModelUnavailable, cause)}
}

func (r LoadResult) Model() (Regressor, bool) {
	return r.model, r.model != nil
}

func (r LoadResult) OK() bool {
	return r.model != nil
}

// Err is nil for a loaded model and wraps ErrModelUnavailable otherwise.
func (r LoadResult) Err() error {
	if r.model != nil {
		return nil
	}
	if r.err == nil {
		return ErrModelUnavailable
	}
	return r.err
}

type ReadFunc func(path string) ([]byte, error)

type LoaderOption func(*Loader)

func WithReadFunc(read ReadFunc) LoaderOption {
	return func(l *Loader) {
		l.read = read
	}
}

func WithModelType(modelType string) LoaderOption {
	return func(l *Loader) {
		l.modelType = modelType
	}
}

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// Loader reads the artifact on first use and keeps the result for its
// lifetime. Failures are kept as well; the file is read at most once.
type Loader struct {
	path      string
	modelType string
	read      ReadFunc
	logger    *zap.Logger

	once   sync.Once
	result LoadResult
}

func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:   path,
		read:   os.ReadFile,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Path() string {
	return l.path
}

func (l *Loader) Load() LoadResult {
	l.once.Do(func() {
		l.result = l.load()
	})
	return l.result
}

func (l *Loader) load() LoadResult {
	payload, err := l.read(l.path)
	if err != nil {
		l.logger.Warn("model artifact unreadable", zap.String("path", l.path), zap.Error(err))
		return Unavailable(err)
	}
	model, err := decodeArtifact(l.modelType, payload)
	if err != nil {
		l.logger.Warn("model artifact corrupt", zap.String("path", l.path), zap.Error(err))
		return Unavailable(err)
	}
	l.logger.Info("model loaded",
		zap.String("path", l.path),
		zap.Int("features", model.NumFeatures()))
	return Loaded(model)
}
