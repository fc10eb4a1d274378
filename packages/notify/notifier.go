// Package notify sends run summaries to chat webhooks.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when a case fails or is unmatched
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when every case passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first
	// passing run after a failure
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn accepts the NotifyOn names. Empty means failure.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(strings.ToLower(strings.TrimSpace(s))); on {
	case "":
		return NotifyFailure, nil
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return on, nil
	default:
		return "", fmt.Errorf("invalid notify-on value %q (want always, failure, success or recovery)", s)
	}
}

// RunSummary represents the summary of a run for notifications
type RunSummary struct {
	Collection    string        `json:"collection"`
	Workbook      string        `json:"workbook,omitempty"`
	Total         int           `json:"total"`
	Passed        int           `json:"passed"`
	Failed        int           `json:"failed"`
	Unmatched     int           `json:"unmatched"`
	Dropped       int           `json:"dropped"`
	Duration      time.Duration `json:"duration"`
	FailedResults []FailedCase  `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// Succeeded reports whether every case passed.
func (s *RunSummary) Succeeded() bool {
	return s.Failed == 0 && s.Unmatched == 0
}

// Problems is the number of cases that did not pass.
func (s *RunSummary) Problems() int {
	return s.Failed + s.Unmatched
}

// FailedCase represents a case that did not pass
type FailedCase struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Verdict string `json:"verdict"`
	Detail  string `json:"detail,omitempty"`
}

// maxFailedResults caps the failures listed in one message
const maxFailedResults = 20

// NewRunSummary builds the notification payload for a report.
func NewRunSummary(report *pipeline.Report, workbook string) *RunSummary {
	s := &RunSummary{
		Collection: report.Name,
		Workbook:   workbook,
		Total:      report.Summary.Total,
		Passed:     report.Summary.Passed,
		Failed:     report.Summary.Failed,
		Unmatched:  report.Summary.Unmatched,
		Dropped:    report.Dropped,
		Duration:   report.Duration,
	}
	for _, r := range report.Rows {
		if r.Verdict == model.VerdictPass {
			continue
		}
		if len(s.FailedResults) == maxFailedResults {
			break
		}
		fc := FailedCase{Name: r.DisplayName(), URL: r.URL, Verdict: r.Verdict.String()}
		if r.ActualStatusCode != nil && r.ActualResponseTimeMs != nil {
			fc.Detail = fmt.Sprintf("got %d in %.0fms, want %d in < %gms",
				*r.ActualStatusCode, *r.ActualResponseTimeMs, r.ExpectedStatusCode, r.ExpectedTimeMs)
		}
		s.FailedResults = append(s.FailedResults, fc)
	}
	return s
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about run results
	Notify(summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true, // Assume success initially
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SetLastState seeds the outcome of the previous run, typically from run
// history, so the first run of a process can be detected as a recovery.
func (m *Manager) SetLastState(succeeded bool) {
	m.lastState = succeeded
}

// Len returns the number of registered notifiers.
func (m *Manager) Len() int {
	return len(m.notifiers)
}

// Notify sends notifications based on the configured policy
func (m *Manager) Notify(summary *RunSummary) error {
	shouldNotify := false
	currentSuccess := summary.Succeeded()

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess

	if !shouldNotify {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			lastErr = fmt.Errorf("%s: %w", n.Name(), err)
		}
	}

	return lastErr
}
