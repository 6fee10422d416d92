package healer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"apiheal/internal/agent"
	"apiheal/internal/domain"
)

// FixEngine is the reasoning engine boundary: one call runs a full
// diagnose-and-fix session and reports the tool invocations it made.
type FixEngine interface {
	Run(ctx context.Context, system, prompt string) (*agent.EngineResult, error)
}

// SingleRunner validates a fix by re-running the originally failing test.
type SingleRunner interface {
	RunSingle(ctx context.Context, testID string) domain.SingleTestResult
}

// Restorer rolls a test file back to a backup.
type Restorer interface {
	Restore(backupPath, targetPath string) domain.RestoreResult
}

// Healer drives the bounded retry state machine over one failure record:
// LOADING -> DIAGNOSING -> AWAITING_FIX -> VALIDATING, looping until the
// test passes, retries are exhausted, or the record proves unloadable.
// Healing sessions are strictly sequential; two sessions must never operate
// on the same test file concurrently.
type Healer struct {
	engine        FixEngine
	runner        SingleRunner
	store         Restorer
	projectRoot   string
	maxRetries    int
	engineTimeout time.Duration
}

// New creates a Healer.
func New(engine FixEngine, runner SingleRunner, store Restorer, projectRoot string, maxRetries int, engineTimeout time.Duration) *Healer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Healer{
		engine:        engine,
		runner:        runner,
		store:         store,
		projectRoot:   projectRoot,
		maxRetries:    maxRetries,
		engineTimeout: engineTimeout,
	}
}

// Heal runs one healing session for the failure record at recordPath. Every
// error category is converted into the returned HealResult; nothing
// propagates as a panic or a Go error to the caller.
func (h *Healer) Heal(ctx context.Context, recordPath string) domain.HealResult {
	result := domain.HealResult{
		RecordPath: recordPath,
		TestName:   "unknown",
		State:      domain.StateLoading,
		Timestamp:  time.Now().Format(time.RFC3339),
	}

	// LOADING: malformed input consumes zero attempts.
	record, err := h.loadRecord(recordPath)
	if err != nil {
		result.State = domain.StateFailed
		result.Error = fmt.Sprintf("Failed to load failure record: %v", err)
		return result
	}
	result.TestName = record.TestName
	result.TestFile = record.TestFile

	h.logDiagnosis(record)

	// One HealAttempt per loop iteration. Backups accumulate across the
	// whole session; rollback targets the most recent one, exactly once.
	var attempts []domain.HealAttempt

	for len(attempts) < h.maxRetries {
		attempt := domain.HealAttempt{Number: len(attempts) + 1}
		color.Cyan("\n[ATTEMPT %d/%d] Healing %s...", attempt.Number, h.maxRetries, record.TestName)

		result.State = domain.StateDiagnosing
		prompt := formatPrompt(record, attempt.Number)

		result.State = domain.StateAwaitingFix
		engineCtx, cancel := context.WithTimeout(ctx, h.engineTimeout)
		engineResult, engineErr := h.engine.Run(engineCtx, systemPrompt, prompt)
		cancel()

		if engineResult != nil {
			attempt.EngineOutput = engineResult.Output
			attempt.BackupPaths = engineResult.BackupPaths()
			if d := extractDecision(engineResult.Output); d != "" {
				result.Decision = d
				color.Yellow("[DECISION] %s", d)
			}
		}

		// An engine failure counts as a failed attempt, not a crash.
		if engineErr != nil {
			attempts = append(attempts, attempt)
			result.Attempts = len(attempts)
			color.Red("[RESULT] Reasoning engine error: %v", engineErr)
			if len(attempts) < h.maxRetries {
				result.State = domain.StateRetrying
				color.Yellow("[RETRY] Attempt %d with additional context...", len(attempts)+1)
				continue
			}
			result.Error = fmt.Sprintf("Reasoning engine failed on final attempt: %v", engineErr)
			h.rollback(&result, sessionBackups(attempts), record)
			return result
		}

		result.State = domain.StateValidating
		color.White("[VALIDATION] Running %s...", record.TestName)
		validation := h.runner.RunSingle(ctx, record.TestID())
		attempt.Passed = validation.Passed
		attempts = append(attempts, attempt)
		result.Attempts = len(attempts)

		if validation.Passed {
			result.State = domain.StateSucceeded
			color.Green("[RESULT] Test %s passed after fix", record.TestName)
			result.Success = true
			return result
		}

		color.Red("[RESULT] Test %s still failing", record.TestName)
		if len(attempts) < h.maxRetries {
			result.State = domain.StateRetrying
			color.Yellow("[RETRY] Attempt %d with additional context...", len(attempts)+1)
			continue
		}

		color.Red("[ROLLBACK] All %d attempts failed. Rolling back...", h.maxRetries)
		backups := sessionBackups(attempts)
		result.Error = "All fix attempts failed."
		h.rollback(&result, backups, record)
		// The final message states what actually happened to the file.
		switch {
		case result.RolledBack:
			result.Error = "All fix attempts failed. Rollback applied."
		case len(backups) == 0:
			result.Error = "All fix attempts failed. Nothing to roll back."
		}
	}
	return result
}

// sessionBackups flattens every attempt's backups in creation order.
func sessionBackups(attempts []domain.HealAttempt) []string {
	var backups []string
	for _, attempt := range attempts {
		backups = append(backups, attempt.BackupPaths...)
	}
	return backups
}

// rollback restores the newest session backup onto the original test file.
// At most one rollback happens per session. A session that never wrote
// anything has nothing to roll back.
func (h *Healer) rollback(result *domain.HealResult, backups []string, record *domain.FailureRecord) {
	result.State = domain.StateFailed
	if len(backups) == 0 {
		return
	}
	latest := backups[len(backups)-1]
	target := record.TestFile
	if !filepath.IsAbs(target) {
		target = filepath.Join(h.projectRoot, target)
	}

	restore := h.store.Restore(latest, target)
	if restore.Success {
		result.RolledBack = true
		result.State = domain.StateRolledBack
		color.Yellow("[ROLLBACK] Restored %s from backup", target)
	} else {
		result.Error = fmt.Sprintf("%s Rollback failed: %s", result.Error, restore.Error)
		color.Red("[ROLLBACK] Failed: %s", restore.Error)
	}
}

func (h *Healer) loadRecord(recordPath string) (*domain.FailureRecord, error) {
	data, err := os.ReadFile(recordPath)
	if err != nil {
		return nil, err
	}
	var record domain.FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("malformed record: %w", err)
	}
	if record.TestFile == "" || record.TestName == "" {
		return nil, fmt.Errorf("record is missing test identity")
	}
	return &record, nil
}

func (h *Healer) logDiagnosis(record *domain.FailureRecord) {
	color.White("\n[DIAGNOSIS] %s failed: %s", record.TestName, record.ErrorKind)
	color.White("[DIAGNOSIS] Error: %s", record.ErrorMessage)
	if record.Expected != nil && record.Actual != nil {
		color.White("[DIAGNOSIS] Expected: %v, Actual: %v", record.Expected, record.Actual)
	}
}
