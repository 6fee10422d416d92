package storage

import (
	"time"

	"apiheal/internal/config"
	"apiheal/internal/domain"
)

// Storage persists run output and heal results (e.g. for the failures viewer
// and the heal command summary).
type Storage interface {
	SaveRun(results []domain.TestResult, failures []domain.CapturedFailure, duration time.Duration, workers int) error
	LoadRun() (*domain.RunOutput, error)
	// SaveRunOutput writes the full output (e.g. after a heal marks failures resolved).
	SaveRunOutput(output *domain.RunOutput) error
	AppendHealResult(result domain.HealResult) error
	LoadHealResults() ([]domain.HealResult, error)
}

// JSONStorage stores run and heal output in JSON files under the configured
// output paths.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage over the config's output paths.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}
