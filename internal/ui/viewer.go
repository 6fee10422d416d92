package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"apiheal/internal/config"
	"apiheal/internal/domain"
	"apiheal/internal/storage"
)

// Viewer displays captured failures in an interactive TUI
type Viewer interface {
	View(results *domain.RunOutput) error
}

// FailureViewer displays captured failures in an interactive TUI. Details
// for each entry are read from its persisted failure record.
type FailureViewer struct {
	config  *config.Config
	storage storage.Storage

	// latest heal outcome per test identity, loaded when the view opens
	healOutcomes map[string]domain.HealResult
}

// NewFailureViewer creates a new FailureViewer
func NewFailureViewer(cfg *config.Config, st storage.Storage) *FailureViewer {
	return &FailureViewer{
		config:  cfg,
		storage: st,
	}
}

// View displays captured failures in an interactive TUI
func (fv *FailureViewer) View(results *domain.RunOutput) error {
	if len(results.Failures) == 0 {
		color.Green("✓ No test failures found!")
		return nil
	}

	fv.healOutcomes = make(map[string]domain.HealResult)
	if healResults, err := fv.storage.LoadHealResults(); err == nil {
		// Appended in order, so the last entry per test is the latest.
		for _, hr := range healResults {
			fv.healOutcomes[hr.TestFile+"::"+hr.TestName] = hr
		}
	}

	// Track resolved failures (by index) - loaded from the run output
	resolved := make(map[int]bool)
	for i, failure := range results.Failures {
		if failure.Resolved {
			resolved[i] = true
		}
	}

	saveResolvedStatus := func() error {
		for i := range results.Failures {
			results.Failures[i].Resolved = resolved[i]
		}
		return fv.storage.SaveRunOutput(results)
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)

	getListItemText := func(index int) string {
		failure := results.Failures[index]
		testName := failure.TestName
		if testName == "" {
			testName = fmt.Sprintf("Test %d", index+1)
		}

		if resolved[index] {
			return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", index+1, testName)
		}
		return fmt.Sprintf("[yellow]%d.[white] %s", index+1, testName)
	}

	updateListItem := func(index int) {
		if index < 0 || index >= list.GetItemCount() {
			return
		}
		list.SetItemText(index, getListItemText(index), "")
	}

	for i := range results.Failures {
		list.AddItem(getListItemText(i), "", 0, nil)
	}

	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan).
		SetSecondaryTextColor(tview.Styles.SecondaryTextColor)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetWordWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	countUnresolved := func() int {
		count := 0
		for i := range results.Failures {
			if !resolved[i] {
				count++
			}
		}
		return count
	}

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	updateHeader := func() {
		headerView.SetText(fmt.Sprintf(
			" Captured Failures (%d total, %d unresolved) | Use ↑↓ to navigate, [yellow]R[white] to mark resolved, → to view details, ← to go back, Ctrl+C to exit ",
			len(results.Failures), countUnresolved()))
	}
	updateHeader()

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index >= 0 && index < len(results.Failures) {
			failure := results.Failures[index]
			statsView.SetText(fv.formatFailureStats(failure, index+1))
			detailsView.SetText(fv.formatFailureDetails(failure))
		}
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyUp, tcell.KeyDown:
			return event
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'r' || event.Rune() == 'R' {
				index := list.GetCurrentItem()
				if index >= 0 && index < len(results.Failures) {
					resolved[index] = !resolved[index]
					updateListItem(index)
					updateHeader()
					updateDetails()
					if err := saveResolvedStatus(); err != nil {
						_ = err
					}
				}
				return nil
			}
		}
		return event
	})

	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(index int, mainText string, secondaryText string, shortcut rune) {
		updateDetails()
	})
	updateDetails()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(
			tview.NewBox().SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
				return x, y, width, height
			}),
			1, 0, false,
		).
		AddItem(flex, 0, 1, true)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

// formatFailureDetails renders one failure using tview color tags. The full
// context comes from the persisted failure record; a missing record degrades
// to the summary fields.
func (fv *FailureViewer) formatFailureDetails(failure domain.CapturedFailure) string {
	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "[red]✗ Test: %s[white]\n\n", failure.TestName)
	fmt.Fprintf(w, "[cyan]File: %s[white]\n", failure.TestFile)

	record := fv.loadRecord(failure.RecordPath)
	if record == nil {
		fmt.Fprintf(w, "[yellow]Error Kind:[white] %s\n", failure.ErrorKind)
		fmt.Fprintf(w, "\n[gray]Failure record unavailable: %s[white]\n", failure.RecordPath)
		w.Flush()
		return builder.String()
	}

	if record.LineNumber > 0 {
		fmt.Fprintf(w, "[yellow]Location: %s:%d[white]\n", record.TestFile, record.LineNumber)
	}
	fmt.Fprintf(w, "\n[yellow]Error:[white] %s\n%s\n\n", record.ErrorKind, record.ErrorMessage)

	if record.Expected != nil || record.Actual != nil {
		fmt.Fprintf(w, "[yellow]Expected:[white] %v\n", record.Expected)
		fmt.Fprintf(w, "[yellow]Actual:[white] %v\n\n", record.Actual)
	}

	if record.APIResponse != nil {
		fmt.Fprintf(w, "[yellow]Last API Call:[white]\n")
		fmt.Fprintf(w, "  %s %s -> %d\n", record.RequestMethod, record.RequestURL, record.APIResponse.StatusCode)
		if body, err := json.MarshalIndent(record.APIResponse.Body, "  ", "  "); err == nil {
			fmt.Fprintf(w, "  %s\n", body)
		}
		fmt.Fprintf(w, "\n")
	}

	if heal, ok := fv.healOutcomes[failure.TestFile+"::"+failure.TestName]; ok {
		if heal.Success {
			fmt.Fprintf(w, "[green]Healed[white] after %d attempt(s)", heal.Attempts)
		} else {
			fmt.Fprintf(w, "[red]Heal failed[white] after %d attempt(s)", heal.Attempts)
			if heal.RolledBack {
				fmt.Fprintf(w, ", rolled back")
			}
		}
		if heal.Decision != "" {
			fmt.Fprintf(w, "\n  [gray]%s[white]", heal.Decision)
		}
		fmt.Fprintf(w, "\n\n")
	}

	if record.Traceback != "" {
		fmt.Fprintf(w, "[yellow]Traceback:[white]\n")
		lines := strings.Split(record.Traceback, "\n")
		for i, line := range lines {
			if i >= 10 {
				fmt.Fprintf(w, "  [gray]... and %d more lines[white]\n", len(lines)-10)
				break
			}
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	w.Flush()
	return builder.String()
}

// formatFailureStats formats the stats header for a captured failure
func (fv *FailureViewer) formatFailureStats(failure domain.CapturedFailure, number int) string {
	path := failure.TestFile
	if path == "" {
		path = "Unknown path"
	}
	testCase := failure.TestName
	if testCase == "" {
		testCase = fmt.Sprintf("Test %d", number)
	}
	return fmt.Sprintf("[cyan]path:[white] [yellow]%s[white]::[yellow]%s[white]\n", path, testCase)
}

func (fv *FailureViewer) loadRecord(path string) *domain.FailureRecord {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var record domain.FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	return &record
}
