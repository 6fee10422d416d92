package parser

import (
	"fmt"
	"regexp"
	"strings"

	"apiheal/internal/domain"
)

// PytestParser parses pytest verbose output
type PytestParser struct{}

// NewPytestParser creates a new PytestParser
func NewPytestParser() *PytestParser {
	return &PytestParser{}
}

var (
	// ______________ test_get_user_by_id ______________
	sectionHeader = regexp.MustCompile(`^_{3,}\s+(.+?)\s+_{3,}$`)
	// ========== 1 failed, 11 passed in 2.34s ==========
	passedCount = regexp.MustCompile(`(\d+) passed`)
	failedCount = regexp.MustCompile(`(\d+) failed`)
	errorCount  = regexp.MustCompile(`(\d+) error`)
	// E       AssertionError: assert len(data) == 12
	errorLine = regexp.MustCompile(`^E\s+(.*)$`)
	// tests/api/test_users.py:23: AssertionError
	locationLine = regexp.MustCompile(`^(\S+\.py):(\d+):\s*(\w*)`)
	// leading exception name in an E line: "AssertionError: assert ..."
	kindPrefix = regexp.MustCompile(`^([A-Za-z_][\w.]*(?:Error|Exception|Timeout|Failed))\b:?\s*(.*)$`)
)

// ParseTestCounts extracts passed and failed test case counts from pytest
// summary output. Returns (passed, failed). If parsing fails, returns (1,0)
// for success or (0,1) for failure (file-level fallback).
func (p *PytestParser) ParseTestCounts(result domain.TestResult) (passed, failed int) {
	output := result.Output

	if m := passedCount.FindStringSubmatch(output); len(m) >= 2 {
		fmt.Sscanf(m[1], "%d", &passed)
	}
	if m := failedCount.FindStringSubmatch(output); len(m) >= 2 {
		fmt.Sscanf(m[1], "%d", &failed)
	}
	if m := errorCount.FindStringSubmatch(output); len(m) >= 2 {
		var errors int
		fmt.Sscanf(m[1], "%d", &errors)
		failed += errors
	}
	if passed > 0 || failed > 0 {
		return passed, failed
	}

	// Fallback: one "test" per file
	if result.Success {
		return 1, 0
	}
	return 0, 1
}

// ParseFailures parses the FAILURES sections of pytest output into one
// ParsedFailure per failing test case.
func (p *PytestParser) ParseFailures(result domain.TestResult) []ParsedFailure {
	var failures []ParsedFailure
	lines := strings.Split(result.Output, "\n")

	for i := 0; i < len(lines); i++ {
		m := sectionHeader.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		name := sectionTestName(m[1])
		if name == "" {
			continue
		}
		failure, next := p.parseSection(name, i, lines, result.TestPath)
		failures = append(failures, failure)
		i = next - 1
	}

	return failures
}

// sectionTestName extracts the bare test function name from a FAILURES
// section header, which may carry a class or parametrize suffix
// ("TestUsers.test_roles", "test_get_user[1]").
func sectionTestName(header string) string {
	header = strings.TrimSpace(header)
	if idx := strings.LastIndex(header, "."); idx >= 0 {
		header = header[idx+1:]
	}
	if idx := strings.Index(header, "["); idx > 0 {
		header = header[:idx]
	}
	if !strings.HasPrefix(header, "test") {
		return ""
	}
	return header
}

// parseSection consumes one failure section starting at the header line and
// returns the failure plus the index of the line after the section.
func (p *PytestParser) parseSection(name string, start int, lines []string, testPath string) (ParsedFailure, int) {
	failure := ParsedFailure{TestName: name}

	var traceback []string
	var messages []string
	end := len(lines)

	for j := start + 1; j < len(lines); j++ {
		line := lines[j]
		trimmed := strings.TrimSpace(line)

		// Next section or end-of-failures banner terminates this one.
		if sectionHeader.MatchString(trimmed) || strings.HasPrefix(trimmed, "====") {
			end = j
			break
		}

		traceback = append(traceback, line)

		if m := errorLine.FindStringSubmatch(trimmed); m != nil {
			msg := strings.TrimSpace(m[1])
			if len(messages) == 0 {
				if km := kindPrefix.FindStringSubmatch(msg); km != nil {
					failure.ErrorKind = km[1]
					if km[2] != "" {
						msg = km[2]
					} else {
						msg = ""
					}
				}
			}
			if msg != "" {
				messages = append(messages, msg)
			}
			continue
		}

		// Location trailer names the authoritative error kind and the line
		// inside the failing test file.
		if m := locationLine.FindStringSubmatch(trimmed); m != nil {
			if strings.Contains(testPath, m[1]) || strings.Contains(m[1], strings.TrimSuffix(filenameOf(testPath), ".py")) {
				fmt.Sscanf(m[2], "%d", &failure.Line)
				if m[3] != "" {
					failure.ErrorKind = m[3]
				}
			}
		}
	}

	if failure.ErrorKind == "" {
		failure.ErrorKind = "AssertionError"
	}
	failure.ErrorMessage = strings.Join(messages, "\n")
	failure.Traceback = strings.TrimRight(strings.Join(traceback, "\n"), "\n")

	return failure, end
}

func filenameOf(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
