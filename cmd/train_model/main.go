package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"automiles/logging"
	"automiles/ml"
	"automiles/pipeline"
)

func main() {
	dataPath := flag.String("data", "data/mtcars.csv", "training CSV with wt and mpg columns")
	modelPath := flag.String("model_path", "car_mileage_lr_model.json", "model output path")
	testRatio := flag.Float64("test_ratio", 0.2, "hold-out ratio for evaluation")
	seed := flag.Int64("seed", time.Now().UnixNano(), "shuffle seed")
	logLevel := flag.String("log_level", "info", "log level")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: *logLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, *dataPath, *modelPath, *testRatio, *seed); err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}
	fmt.Printf("model saved to %s\n", *modelPath)
}

func run(logger *zap.Logger, dataPath, modelPath string, testRatio float64, seed int64) error {
	file, err := os.Open(dataPath)
	if err != nil {
		return err
	}
	defer file.Close()

	samples, err := pipeline.ReadSamples(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", dataPath, err)
	}

	cleaner := pipeline.NewDataCleaner(logger)
	cleaned, issues := cleaner.Clean(samples)
	for _, issue := range issues {
		logger.Warn("sample rejected",
			zap.Int("line", issue.Line),
			zap.String("rule", issue.Rule),
			zap.String("reason", issue.Message))
	}
	stats := cleaner.GetStats()
	logger.Info("samples cleaned",
		zap.Int64("total", stats.TotalProcessed),
		zap.Int64("passed", stats.Passed),
		zap.Int64("rejected", stats.Rejected))

	trainX, trainY, testX, testY := splitDataset(cleaned, testRatio, seed)

	model, err := ml.Fit(trainX, trainY)
	if err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	logger.Info("model fitted",
		zap.Float64("slope", model.Coef[0]),
		zap.Float64("intercept", model.Intercept),
		zap.Int("train_samples", len(trainX)))

	if len(testX) > 1 {
		if r2, err := model.RSquared(testX, testY); err == nil {
			logger.Info("hold-out evaluation", zap.Float64("r2", r2), zap.Int("test_samples", len(testX)))
		} else {
			logger.Warn("hold-out evaluation skipped", zap.Error(err))
		}
	}

	if dir := filepath.Dir(modelPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return model.Save(modelPath)
}

// splitDataset shuffles samples and holds out testRatio of them. Tiny
// datasets keep at least two training samples.
func splitDataset(samples []pipeline.Sample, testRatio float64, seed int64) (trainX, trainY, testX, testY []float64) {
	if testRatio < 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(samples))

	split := int(math.Round(float64(len(samples)) * (1 - testRatio)))
	if split < 2 {
		split = min(2, len(samples))
	}
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, samples[idx].Weight)
			trainY = append(trainY, samples[idx].MPG)
		} else {
			testX = append(testX, samples[idx].Weight)
			testY = append(testY, samples[idx].MPG)
		}
	}
	return trainX, trainY, testX, testY
}
