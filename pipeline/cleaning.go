package pipeline

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

var nanValue = math.NaN()

// CleaningRule 清洗规则
type CleaningRule interface {
	Apply(Sample) error
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Rule      string    `json:"rule"`
	Line      int       `json:"line"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CleaningStats 清洗统计
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Issues         map[string]int64 `json:"issues"`
	LastClean      time.Time        `json:"last_clean"`
}

// DataCleaner 数据清洗器
type DataCleaner struct {
	rules  []CleaningRule
	logger *zap.Logger

	mu     sync.RWMutex
	issues []QualityIssue
	stats  CleaningStats
}

// NewDataCleaner returns a cleaner with the default sample rules.
func NewDataCleaner(logger *zap.Logger) *DataCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	cleaner := &DataCleaner{
		logger: logger,
		stats:  CleaningStats{Issues: make(map[string]int64)},
	}

	cleaner.AddRule(NewFiniteRule())
	cleaner.AddRule(NewRangeRule(0.5, 10.0, 0, 150))
	cleaner.AddRule(NewDuplicateRule())

	return cleaner
}

func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
	dc.logger.Debug("added cleaning rule", zap.String("rule", rule.Name()))
}

// Clean returns the samples that pass every rule and the issues raised by
// the rest. A sample is rejected on the first failing rule.
func (dc *DataCleaner) Clean(samples []Sample) ([]Sample, []QualityIssue) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	var cleaned []Sample
	var issues []QualityIssue
	for _, sample := range samples {
		dc.stats.TotalProcessed++

		var issue *QualityIssue
		for _, rule := range dc.rules {
			if err := rule.Apply(sample); err != nil {
				issue = &QualityIssue{
					Rule:      rule.Name(),
					Line:      sample.Line,
					Message:   err.Error(),
					Timestamp: time.Now(),
				}
				dc.stats.Issues[rule.Name()]++
				break
			}
		}

		if issue != nil {
			dc.stats.Rejected++
			issues = append(issues, *issue)
			dc.logger.Debug("sample rejected",
				zap.Int("line", issue.Line),
				zap.String("rule", issue.Rule),
				zap.String("reason", issue.Message))
			continue
		}
		dc.stats.Passed++
		cleaned = append(cleaned, sample)
	}

	dc.issues = append(dc.issues, issues...)
	dc.stats.LastClean = time.Now()
	return cleaned, issues
}

func (dc *DataCleaner) GetStats() CleaningStats {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// GetIssues returns up to limit of the most recent issues; limit <= 0 means all.
func (dc *DataCleaner) GetIssues(limit int) []QualityIssue {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	start := 0
	if limit > 0 && len(dc.issues) > limit {
		start = len(dc.issues) - limit
	}
	out := make([]QualityIssue, len(dc.issues)-start)
	copy(out, dc.issues[start:])
	return out
}

// FiniteRule rejects NaN or infinite values.
type FiniteRule struct{}

func NewFiniteRule() *FiniteRule {
	return &FiniteRule{}
}

func (r *FiniteRule) Name() string {
	return "finite"
}

func (r *FiniteRule) Apply(s Sample) error {
	if math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) {
		return fmt.Errorf("weight is not a finite number")
	}
	if math.IsNaN(s.MPG) || math.IsInf(s.MPG, 0) {
		return fmt.Errorf("mpg is not a finite number")
	}
	return nil
}

// RangeRule keeps samples inside the weights the form accepts and a
// plausible MPG band.
type RangeRule struct {
	MinWeight float64
	MaxWeight float64
	MinMPG    float64
	MaxMPG    float64
}

func NewRangeRule(minWeight, maxWeight, minMPG, maxMPG float64) *RangeRule {
	return &RangeRule{MinWeight: minWeight, MaxWeight: maxWeight, MinMPG: minMPG, MaxMPG: maxMPG}
}

func (r *RangeRule) Name() string {
	return "range"
}

func (r *RangeRule) Apply(s Sample) error {
	if s.Weight < r.MinWeight || s.Weight > r.MaxWeight {
		return fmt.Errorf("weight %.3f outside [%.1f, %.1f]", s.Weight, r.MinWeight, r.MaxWeight)
	}
	if s.MPG <= r.MinMPG || s.MPG > r.MaxMPG {
		return fmt.Errorf("mpg %.2f outside (%.0f, %.0f]", s.MPG, r.MinMPG, r.MaxMPG)
	}
	return nil
}

// DuplicateRule rejects samples already seen with the same label and values.
type DuplicateRule struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDuplicateRule() *DuplicateRule {
	return &DuplicateRule{seen: make(map[string]struct{})}
}

func (r *DuplicateRule) Name() string {
	return "duplicate"
}

func (r *DuplicateRule) Apply(s Sample) error {
	key := fmt.Sprintf("%s|%g|%g", s.Label, s.Weight, s.MPG)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return fmt.Errorf("duplicate sample")
	}
	r.seen[key] = struct{}{}
	return nil
}
