package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"apiheal/internal/domain"
)

// SaveRun writes run results and captured failures to the configured JSON
// output file.
func (s *JSONStorage) SaveRun(results []domain.TestResult, failures []domain.CapturedFailure, duration time.Duration, workers int) error {
	passed := 0
	failed := 0
	for _, r := range results {
		if r.Success {
			passed++
		} else {
			failed++
		}
	}

	output := domain.RunOutput{
		Meta: domain.RunMeta{
			TotalTestFiles:   len(results),
			FailedTestFiles:  failed,
			PassedTestFiles:  passed,
			CapturedFailures: len(failures),
			Duration:         duration.String(),
			DurationSeconds:  duration.Seconds(),
			Workers:          workers,
			Timestamp:        time.Now().Format(time.RFC3339),
		},
		Failures: failures,
	}
	return s.SaveRunOutput(&output)
}

// LoadRun reads the last run output from the configured JSON output file.
func (s *JSONStorage) LoadRun() (*domain.RunOutput, error) {
	path := s.cfg.GetOutputPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run results file: %w", err)
	}
	var output domain.RunOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parse run results: %w", err)
	}
	return &output, nil
}

// SaveRunOutput writes the full run output (e.g. after a heal pass marks
// failures as resolved).
func (s *JSONStorage) SaveRunOutput(output *domain.RunOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run results: %w", err)
	}
	path := s.cfg.GetOutputPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write run results: %w", err)
	}
	return nil
}

// AppendHealResult appends one heal outcome to the heal results log.
func (s *JSONStorage) AppendHealResult(result domain.HealResult) error {
	results, err := s.LoadHealResults()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	results = append(results, result)

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal heal results: %w", err)
	}
	path := s.cfg.GetHealLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write heal results: %w", err)
	}
	return nil
}

// LoadHealResults reads the accumulated heal results log.
func (s *JSONStorage) LoadHealResults() ([]domain.HealResult, error) {
	data, err := os.ReadFile(s.cfg.GetHealLogPath())
	if err != nil {
		return nil, fmt.Errorf("read heal results file: %w", err)
	}
	var results []domain.HealResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse heal results: %w", err)
	}
	return results, nil
}
