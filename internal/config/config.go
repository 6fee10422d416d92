package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string
	TestsDir    string

	// Output settings
	FailuresDir    string
	BackupDir      string
	ExchangeDir    string
	OutputJSONFile string
	OutputJSONDir  string
	HealLogFile    string

	// Execution settings
	Workers       int
	MaxRetries    int
	RunnerCommand string
	TestTimeout   time.Duration
	SuiteTimeout  time.Duration
	EngineTimeout time.Duration
	APITimeout    time.Duration

	// Reasoning engine / target API
	APIBaseURL      string
	AnthropicAPIKey string
	Model           string

	// Paths to ignore when scanning
	PathsToIgnore []string

	// Command flags
	Flags Flags
}

// Flags holds command-line flags after parsing
type Flags struct {
	Workers    int
	TestPath   string
	NameFilter string
	MaxRetries int
	TestCases  bool
	FailFast   bool
	All        bool
	Generate   bool
	OpenViewer bool
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:    DefaultProjectPath,
		TestsDir:       DefaultTestsDir,
		FailuresDir:    DefaultFailuresDir,
		BackupDir:      DefaultBackupDir,
		ExchangeDir:    DefaultExchangeDir,
		OutputJSONFile: DefaultOutputJSONFile,
		OutputJSONDir:  DefaultOutputJSONDir,
		HealLogFile:    DefaultHealLogFile,
		Workers:        DefaultWorkers,
		MaxRetries:     DefaultMaxRetries,
		RunnerCommand:  DefaultRunnerCommand,
		TestTimeout:    DefaultTestTimeout,
		SuiteTimeout:   DefaultSuiteTimeout,
		EngineTimeout:  DefaultEngineTimeout,
		APITimeout:     DefaultAPITimeout,
		APIBaseURL:     DefaultAPIBaseURL,
		Model:          DefaultModel,
		Flags:          Flags{Workers: DefaultWorkers, MaxRetries: DefaultMaxRetries},
	}
	cfg.PathsToIgnore = make([]string, len(DefaultPathsToIgnore))
	copy(cfg.PathsToIgnore, DefaultPathsToIgnore)
	return cfg
}

// Load creates a config, reads the environment and applies flags
func Load(flags Flags) *Config {
	cfg := New()
	cfg.Flags = flags

	cfg.LoadEnv()

	if flags.Workers > 0 {
		cfg.Workers = flags.Workers
	}
	if flags.MaxRetries > 0 {
		cfg.MaxRetries = flags.MaxRetries
	}

	return cfg
}

// LoadEnv reads .env from the project directory (if present) and applies
// environment overrides. Secrets never come from flags.
func (c *Config) LoadEnv() {
	envPath := filepath.Join(c.ProjectPath, ".env")
	// .env might not exist, that's okay - use environment variables
	_ = godotenv.Load(envPath)

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := os.Getenv("APIHEAL_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("APIHEAL_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("APIHEAL_RUNNER"); v != "" {
		c.RunnerCommand = v
	}
}

// GetTestsRoot returns the absolute protected test-file root. All read/write
// tool operations are constrained to this directory.
func (c *Config) GetTestsRoot() string {
	p := filepath.Join(c.ProjectPath, c.TestsDir)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetTestPath returns the scan root, using the flag if provided
func (c *Config) GetTestPath() string {
	if c.Flags.TestPath != "" {
		if filepath.IsAbs(c.Flags.TestPath) {
			return c.Flags.TestPath
		}
		return filepath.Join(c.ProjectPath, c.Flags.TestPath)
	}
	return filepath.Join(c.ProjectPath, c.TestsDir)
}

// GetFailuresDir returns the absolute directory failure records are written to.
func (c *Config) GetFailuresDir() string {
	return c.absUnderProject(c.FailuresDir)
}

// GetBackupDir returns the absolute backup directory.
func (c *Config) GetBackupDir() string {
	return c.absUnderProject(c.BackupDir)
}

// GetExchangeDir returns the absolute HTTP exchange log directory.
func (c *Config) GetExchangeDir() string {
	return c.absUnderProject(c.ExchangeDir)
}

// GetOutputPath returns the full path to the run results JSON file.
// Resolves to an absolute path so run and failures always read/write the same
// file regardless of cwd.
func (c *Config) GetOutputPath() string {
	return c.absUnderProject(filepath.Join(c.OutputJSONDir, c.OutputJSONFile))
}

// GetHealLogPath returns the full path to the heal results log.
func (c *Config) GetHealLogPath() string {
	return c.absUnderProject(filepath.Join(c.OutputJSONDir, c.HealLogFile))
}

func (c *Config) absUnderProject(rel string) string {
	p := filepath.Join(c.ProjectPath, rel)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
