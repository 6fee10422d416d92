package capture

import (
	"bufio"
	"encoding/json"
	"os"

	"apiheal/internal/domain"
)

// Exchange is one request/response pair the instrumented test client wrote
// to its per-file exchange log, keyed by the test's fully-qualified identity.
type Exchange struct {
	TestID         string              `json:"test_id"`
	RequestMethod  string              `json:"request_method"`
	RequestURL     string              `json:"request_url"`
	RequestPayload any                 `json:"request_payload,omitempty"`
	Response       *domain.APIResponse `json:"response,omitempty"`
}

// ReadExchangeLog reads a JSONL exchange log and returns the last exchange
// recorded per test identity. A missing file or malformed lines are not
// errors: capture must never fail because instrumentation data is absent.
func ReadExchangeLog(path string) map[string]Exchange {
	exchanges := make(map[string]Exchange)

	f, err := os.Open(path)
	if err != nil {
		return exchanges
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ex Exchange
		if err := json.Unmarshal(line, &ex); err != nil {
			continue
		}
		if ex.TestID == "" {
			continue
		}
		// Tests can make several calls; the last one before failure is the
		// one worth diagnosing.
		exchanges[ex.TestID] = ex
	}
	return exchanges
}
