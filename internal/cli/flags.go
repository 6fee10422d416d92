package cli

import "apiheal/internal/config"

// Flags holds command-line flags
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

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Workers:    f.Workers,
		TestPath:   f.TestPath,
		NameFilter: f.NameFilter,
		MaxRetries: f.MaxRetries,
		TestCases:  f.TestCases,
		FailFast:   f.FailFast,
		All:        f.All,
		Generate:   f.Generate,
		OpenViewer: f.OpenViewer,
	}
}
