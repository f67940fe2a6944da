package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sample 训练样本: weight in 1000 lbs and observed MPG.
type Sample struct {
	Line   int     `json:"line"`
	Label  string  `json:"label,omitempty"`
	Weight float64 `json:"weight"`
	MPG    float64 `json:"mpg"`
}

var (
	ErrMissingColumn = errors.New("pipeline: missing column")
	ErrEmptyInput    = errors.New("pipeline: no samples")
)

var weightColumns = []string{"wt", "weight"}

// ReadSamples parses a CSV with a header naming the weight ("wt" or
// "weight") and "mpg" columns, as in the mtcars dataset. An unnamed first
// column is kept as the sample label.
func ReadSamples(r io.Reader) ([]Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	weightIdx, mpgIdx, labelIdx := -1, -1, -1
	for i, name := range header {
		name = strings.ToLower(strings.Trim(strings.TrimSpace(name), `"`))
		switch {
		case name == "mpg":
			mpgIdx = i
		case containsString(weightColumns, name) && weightIdx < 0:
			weightIdx = i
		case name == "" || name == "model" || name == "name":
			labelIdx = i
		}
	}
	if weightIdx < 0 {
		return nil, fmt.Errorf("%w: weight (wt)", ErrMissingColumn)
	}
	if mpgIdx < 0 {
		return nil, fmt.Errorf("%w: mpg", ErrMissingColumn)
	}

	var samples []Sample
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) <= weightIdx || len(record) <= mpgIdx {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, max(weightIdx, mpgIdx)+1, len(record))
		}

		weight, err := parseField(record[weightIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: weight: %w", line, err)
		}
		mpg, err := parseField(record[mpgIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: mpg: %w", line, err)
		}

		sample := Sample{Line: line, Weight: weight, MPG: mpg}
		if labelIdx >= 0 && labelIdx < len(record) {
			sample.Label = record[labelIdx]
		}
		samples = append(samples, sample)
	}

	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}
	return samples, nil
}

// parseField accepts "NA" and empty cells as NaN so cleaning rules can
// reject them with a reason.
func parseField(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "NA", "NAN":
		return nanValue, nil
	}
	return strconv.ParseFloat(s, 64)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
