package coverage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"apiheal/internal/agent"
)

var testNamePattern = regexp.MustCompile(`def\s+(test_\w+)`)

// Generator fills coverage gaps by asking the reasoning engine for new test
// skeletons in the style of the existing suite.
type Generator struct {
	client     agent.LLMClient
	analyzer   *Analyzer
	testsRoot  string
	apiBaseURL string
}

// NewGenerator creates a Generator.
func NewGenerator(client agent.LLMClient, analyzer *Analyzer, testsRoot, apiBaseURL string) *Generator {
	return &Generator{
		client:     client,
		analyzer:   analyzer,
		testsRoot:  testsRoot,
		apiBaseURL: apiBaseURL,
	}
}

// Generate produces one test file for a gap and writes it to the tests
// directory. Returns the written path, or "" when the gap is already covered
// by an existing test with the same name.
func (g *Generator) Generate(ctx context.Context, gap Gap) (string, error) {
	examples, existing := g.readExamples()

	prompt := fmt.Sprintf(`Generate a pytest test for this uncovered API case:

- Method: %s
- URL: %s%s
- Expected status: %d
- Test type: %s
- Description: %s

Match the structure and conventions of these existing tests:

%s

Requirements:
- Single test function named test_%s_%s_%s
- Use the "client" fixture and BASE_URL constant like the examples
- Assert the expected status code
- Return ONLY the Python code, no explanation`,
		gap.Method, g.apiBaseURL, gap.URLPattern, gap.ExpectedStatus, gap.TestType,
		gap.Description, examples, gap.Resource, strings.ToLower(gap.Method), gap.TestType)

	resp, err := g.client.Complete(ctx, "", []agent.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return "", fmt.Errorf("test generation failed: %w", err)
	}

	code := stripCodeFence(resp.Text)
	if code == "" {
		return "", fmt.Errorf("reasoning engine produced no test code")
	}

	name := testNamePattern.FindStringSubmatch(code)
	if name == nil {
		return "", fmt.Errorf("generated code contains no test function")
	}
	for _, content := range existing {
		if strings.Contains(content, name[1]) {
			return "", nil
		}
	}

	header := fmt.Sprintf("%s\n\"\"\"Generated test: %s\"\"\"\n\n", GeneratedMarker, gap.Description)
	path := filepath.Join(g.testsRoot, fmt.Sprintf("test_generated_%s_%s.py", gap.Resource, gap.TestType))
	if err := os.WriteFile(path, []byte(header+code+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write generated test: %w", err)
	}
	return path, nil
}

// readExamples returns a prompt-sized sample of existing hand-written tests
// plus the full contents for duplicate checking.
func (g *Generator) readExamples() (string, []string) {
	entries, err := os.ReadDir(g.testsRoot)
	if err != nil {
		return "", nil
	}

	var samples []string
	var all []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "test_") || !strings.HasSuffix(name, ".py") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(g.testsRoot, name))
		if err != nil {
			continue
		}
		content := string(data)
		if strings.Contains(content, GeneratedMarker) {
			continue
		}
		all = append(all, content)
		if len(samples) < 3 {
			if len(content) > 1000 {
				content = content[:1000]
			}
			samples = append(samples, content)
		}
	}
	return strings.Join(samples, "\n\n---\n\n"), all
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
