package coverage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// GeneratedMarker tags test files produced by the generator so coverage
// scanning and duplicate checks can skip them.
const GeneratedMarker = "# GENERATED_BY_AGENT"

// Gap is one endpoint/method/status combination not exercised by any test.
type Gap struct {
	Priority       int    `json:"priority"`
	Resource       string `json:"resource"`
	Method         string `json:"method"`
	URLPattern     string `json:"url_pattern"`
	TestType       string `json:"test_type"`
	ExpectedStatus int    `json:"expected_status"`
	Description    string `json:"description"`
}

var (
	methodURLPattern = regexp.MustCompile(`(?i)client\.(get|post|put|patch|delete)\s*\([^)]*["']([^"']+)["']`)
	urlOnlyPattern   = regexp.MustCompile(`f"\{BASE_URL\}([^"]+)"`)
	numericIDSegment = regexp.MustCompile(`/\d+`)
)

// Analyzer scans the test tree for endpoint coverage and matches it
// against the endpoint catalog.
type Analyzer struct {
	testsRoot string
	catalog   []EndpointSpec
}

// NewAnalyzer creates an Analyzer over testsRoot using the given catalog.
func NewAnalyzer(testsRoot string, catalog []EndpointSpec) *Analyzer {
	return &Analyzer{testsRoot: testsRoot, catalog: catalog}
}

// ScanCoverage reads every test file and returns the set of HTTP methods
// exercised per normalized endpoint pattern. Generated files are skipped so
// they never mask a gap they were created to fill.
func (a *Analyzer) ScanCoverage() (map[string]map[string]bool, error) {
	coverage := make(map[string]map[string]bool)

	entries, err := os.ReadDir(a.testsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read tests directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "test_") || !strings.HasSuffix(name, ".py") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(a.testsRoot, name))
		if err != nil {
			continue
		}
		content := string(data)
		if strings.Contains(content, GeneratedMarker) {
			continue
		}
		extractCoverage(content, coverage)
	}
	return coverage, nil
}

func extractCoverage(content string, coverage map[string]map[string]bool) {
	for _, m := range methodURLPattern.FindAllStringSubmatch(content, -1) {
		addCoverage(coverage, strings.ToUpper(m[1]), m[2])
	}
	for _, m := range urlOnlyPattern.FindAllStringSubmatch(content, -1) {
		// Method is not visible in a bare URL literal; GET is the common case.
		addCoverage(coverage, "GET", m[1])
	}
}

func addCoverage(coverage map[string]map[string]bool, method, url string) {
	normalized := NormalizeEndpoint(url)
	if normalized == "" {
		return
	}
	if coverage[normalized] == nil {
		coverage[normalized] = make(map[string]bool)
	}
	coverage[normalized][method] = true
}

// NormalizeEndpoint reduces a concrete URL to its endpoint pattern,
// e.g. "https://host/users/1" -> "/users/{id}".
func NormalizeEndpoint(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		rest := url[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			url = rest[j:]
		} else {
			url = ""
		}
	}
	url = strings.Trim(url, "/")
	if url == "" {
		return ""
	}
	return numericIDSegment.ReplaceAllString("/"+url, "/{id}")
}

// IdentifyGaps matches the scanned coverage against the catalog and returns
// the most important uncovered combinations, error paths first, capped at
// max entries.
func (a *Analyzer) IdentifyGaps(coverage map[string]map[string]bool, max int) []Gap {
	var gaps []Gap

	for _, spec := range a.catalog {
		for _, ec := range spec.ErrorCases {
			normalized := NormalizeEndpoint(ec.URLPattern)
			if normalized == "" {
				continue
			}
			if !coverage[normalized][ec.Method] {
				gaps = append(gaps, Gap{
					Priority:       1,
					Resource:       spec.Resource,
					Method:         ec.Method,
					URLPattern:     ec.URLPattern,
					TestType:       ec.TestType,
					ExpectedStatus: ec.ExpectedStatus,
					Description:    fmt.Sprintf("%s %s should return %d", ec.Method, ec.URLPattern, ec.ExpectedStatus),
				})
			}
		}

		for _, method := range spec.Methods {
			if method != "POST" {
				continue
			}
			normalized := NormalizeEndpoint(spec.Base)
			if !coverage[normalized]["POST"] {
				gaps = append(gaps, Gap{
					Priority:       2,
					Resource:       spec.Resource,
					Method:         "POST",
					URLPattern:     spec.Base,
					TestType:       "validation_error",
					ExpectedStatus: 400,
					Description:    fmt.Sprintf("POST %s with invalid/missing required fields", spec.Base),
				})
			}
		}
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Priority < gaps[j].Priority
	})

	if max > 0 && len(gaps) > max {
		gaps = gaps[:max]
	}
	return gaps
}
