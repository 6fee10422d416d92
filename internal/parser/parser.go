package parser

import "apiheal/internal/domain"

// ParsedFailure is one failing test case extracted from runner output.
type ParsedFailure struct {
	TestName     string
	ErrorKind    string
	ErrorMessage string
	Line         int
	Traceback    string
}

// Parser parses test results and extracts failures
type Parser interface {
	ParseFailures(result domain.TestResult) []ParsedFailure
}
