package discovery

import (
	"fmt"
	"os"
	"regexp"
	"sort"
)

// Parser parses test files to extract test cases
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// testFuncPattern matches top-level and class-level pytest test functions:
//
//	def test_get_user(client):
//	async def test_create_user(client):
//	    def test_nested_in_class(self):
var testFuncPattern = regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+(test_\w+)\s*\(`)

// FindTestCases finds all test case names in a test file
func (p *Parser) FindTestCases(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filePath, err)
	}

	testCasesMap := make(map[string]bool) // avoid duplicates (parametrized overloads)
	for _, match := range testFuncPattern.FindAllStringSubmatch(string(content), -1) {
		if len(match) > 1 {
			testCasesMap[match[1]] = true
		}
	}

	var testCases []string
	for testCase := range testCasesMap {
		testCases = append(testCases, testCase)
	}
	sort.Strings(testCases)

	return testCases, nil
}
