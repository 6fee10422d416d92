package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"apiheal/internal/domain"
	"apiheal/internal/parser"
)

var unsafeChars = regexp.MustCompile(`[^\w\-]`)

// Hook converts parsed test failures into persisted failure records.
type Hook struct {
	dir string
}

// NewHook creates a Hook that writes records under dir.
func NewHook(dir string) *Hook {
	return &Hook{dir: dir}
}

// Capture builds one failure record for a parsed failure and persists it.
// The exchange, when present, contributes the last HTTP call the test made;
// its absence never blocks capture.
func (h *Hook) Capture(testFile string, pf parser.ParsedFailure, ex *Exchange) (domain.CapturedFailure, error) {
	record := domain.FailureRecord{
		TestFile:     testFile,
		TestName:     pf.TestName,
		ErrorKind:    pf.ErrorKind,
		ErrorMessage: pf.ErrorMessage,
		LineNumber:   pf.Line,
		Traceback:    pf.Traceback,
		Timestamp:    time.Now().Format(time.RFC3339),
	}

	record.Actual, record.Expected = ExtractOperands(pf.ErrorMessage)
	if record.Actual == nil && record.Expected == nil {
		record.Actual, record.Expected = ExtractFromTraceback(pf.Traceback)
	}

	if ex != nil {
		record.APIResponse = ex.Response
		record.RequestMethod = ex.RequestMethod
		record.RequestURL = ex.RequestURL
		record.RequestPayload = ex.RequestPayload
	}

	captured := domain.CapturedFailure{
		TestFile:  testFile,
		TestName:  pf.TestName,
		ErrorKind: pf.ErrorKind,
	}

	recordPath := filepath.Join(h.dir, h.recordName(testFile, pf.TestName))
	if err := h.write(recordPath, &record); err != nil {
		return captured, fmt.Errorf("failed to persist failure record for %s: %w", record.TestID(), err)
	}
	captured.RecordPath = recordPath
	return captured, nil
}

// recordName derives a filesystem-safe record filename from the test
// identity. Including the file path keeps same-named tests in different
// modules from overwriting each other.
func (h *Hook) recordName(testFile, testName string) string {
	safeName := unsafeChars.ReplaceAllString(testName, "_")
	fileToken := strings.NewReplacer("/", "_", "\\", "_", ".", "_").Replace(testFile)
	return fmt.Sprintf("%s_%s.json", safeName, fileToken)
}

func (h *Hook) write(path string, record *domain.FailureRecord) error {
	if err := os.MkdirAll(h.dir, 0755); err != nil {
		return fmt.Errorf("failed to create failures directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		// An unserializable extracted value must not lose the record;
		// stringify the dynamic fields and retry.
		fallback := *record
		if fallback.Actual != nil {
			fallback.Actual = fmt.Sprintf("%v", fallback.Actual)
		}
		if fallback.Expected != nil {
			fallback.Expected = fmt.Sprintf("%v", fallback.Expected)
		}
		if fallback.RequestPayload != nil {
			fallback.RequestPayload = fmt.Sprintf("%v", fallback.RequestPayload)
		}
		if fallback.APIResponse != nil && fallback.APIResponse.Body != nil {
			body := *fallback.APIResponse
			body.Body = fmt.Sprintf("%v", body.Body)
			fallback.APIResponse = &body
		}
		data, err = json.MarshalIndent(&fallback, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize failure record: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write failure record: %w", err)
	}
	return nil
}
