package core

// service.go orchestrates the lifecycle of a validation run: table ingest,
// registry matching, validation, duplicate detection and export
// composition. Each run owns its result sets; a rerun of any stage
// replaces that stage's results wholesale and never mutates a previous
// run's data.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors returned by run operations.
var (
	ErrRunNotFound      = errors.New("run not found")
	ErrMatchInProgress  = errors.New("matching already in progress")
	ErrNoMatchRun       = errors.New("no completed matching run")
	ErrEmptyTable       = errors.New("the file is empty or has no data rows")
	ErrNothingValidated = errors.New("no validation result; run validation first")
)

// MatchState tracks where a run's matching stage is.
type MatchState string

const (
	MatchIdle      MatchState = "idle"
	MatchRunning   MatchState = "running"
	MatchCompleted MatchState = "completed"
	MatchCancelled MatchState = "cancelled"
)

// RunSummary is the persisted record of one run, written to the history
// store when the matching stage completes.
type RunSummary struct {
	ID             string        `json:"id"`
	FileName       string        `json:"fileName"`
	TotalRows      int           `json:"totalRows"`
	TotalMatched   int           `json:"totalMatched"`
	TotalUnmatched int           `json:"totalUnmatched"`
	ValidRows      int           `json:"validRows"`
	InvalidRows    int           `json:"invalidRows"`
	Duration       time.Duration `json:"duration"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// RunStore persists run summaries. Implemented by the Postgres history
// store; persistence failures are logged, never fatal to a run.
type RunStore interface {
	SaveRun(ctx context.Context, summary RunSummary) error
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// Run is one upload's processing state. All mutable fields are guarded by
// mu; snapshots handed to callers are copies.
type Run struct {
	ID        string
	FileName  string
	CreatedAt time.Time

	mu          sync.Mutex
	table       *Table
	matchState  MatchState
	match       *MatchRunResult
	cancelMatch context.CancelFunc
	validation  *ValidationResult
	duplicates  *DuplicateResult
	cleaned     map[string]StandardizedRow
}

// RunInfo is the external snapshot of a run.
type RunInfo struct {
	ID         string     `json:"id"`
	FileName   string     `json:"fileName"`
	CreatedAt  time.Time  `json:"createdAt"`
	TotalRows  int        `json:"totalRows"`
	Columns    []string   `json:"columns"`
	MatchState MatchState `json:"matchState"`
}

// Service owns the active runs and wires the engines together.
type Service struct {
	store   RunStore
	matcher RegistryMatcher
	format  IdentifierFormat
	limiter *MatchLimiter

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewService creates the orchestration service. store may be nil when run
// history persistence is disabled.
func NewService(store RunStore, matcher RegistryMatcher, format IdentifierFormat, limiter *MatchLimiter) *Service {
	if limiter == nil {
		limiter = NewMatchLimiter(0, 0)
	}
	return &Service{
		store:   store,
		matcher: matcher,
		format:  format,
		limiter: limiter,
		runs:    make(map[string]*Run),
	}
}

// identityColumns must be present before any processing starts.
var identityColumns = []string{FieldIdentifier, FieldFirstName, FieldLastName}

// CreateRun ingests a parsed table, failing fast on empty data or missing
// identity columns before any row processing.
func (s *Service) CreateRun(fileName string, headers []string, rows [][]string) (RunInfo, error) {
	t := NewTable(headers, rows)
	if len(t.Rows) == 0 {
		return RunInfo{}, ErrEmptyTable
	}
	if err := t.RequireColumns(identityColumns...); err != nil {
		return RunInfo{}, err
	}

	run := &Run{
		ID:         uuid.NewString(),
		FileName:   fileName,
		CreatedAt:  time.Now(),
		table:      t,
		matchState: MatchIdle,
	}

	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	slog.Info("run created",
		"run_id", run.ID,
		"file", fileName,
		"rows", len(t.Rows),
		"columns", len(t.Headers),
	)
	return s.info(run), nil
}

// GetRun returns a snapshot of one run.
func (s *Service) GetRun(id string) (RunInfo, error) {
	run, err := s.run(id)
	if err != nil {
		return RunInfo{}, err
	}
	return s.info(run), nil
}

// StartMatch launches registry matching for the run in the background.
// Returns ErrMatchInProgress if this run is already matching, or
// ErrTooManyMatchRuns when the service-wide concurrency cap is reached.
func (s *Service) StartMatch(ctx context.Context, id string) error {
	run, err := s.run(id)
	if err != nil {
		return err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}

	run.mu.Lock()
	if run.matchState == MatchRunning {
		run.mu.Unlock()
		s.limiter.Release()
		return ErrMatchInProgress
	}
	matchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run.matchState = MatchRunning
	run.match = &MatchRunResult{}
	run.cancelMatch = cancel
	run.cleaned = nil
	run.mu.Unlock()

	go s.runMatch(matchCtx, run)
	return nil
}

// runMatch drives the matcher and keeps the run's snapshot current after
// every batch, so callers can read partial results mid-run.
func (s *Service) runMatch(ctx context.Context, run *Run) {
	defer s.limiter.Release()

	start := time.Now()
	run.mu.Lock()
	records := run.table.Records()
	run.mu.Unlock()

	result, err := s.matcher.Run(ctx, records, func(snapshot *MatchRunResult) {
		run.mu.Lock()
		run.match = snapshot
		run.mu.Unlock()
	})

	run.mu.Lock()
	run.match = result
	if errors.Is(err, context.Canceled) {
		run.matchState = MatchCancelled
	} else {
		run.matchState = MatchCompleted
	}
	run.cancelMatch = nil
	run.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("matching run failed", "run_id", run.ID, "error", err)
	}

	slog.Info("matching run finished",
		"run_id", run.ID,
		"matched", result.TotalMatched(),
		"unmatched", result.TotalUnmatched(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.saveSummary(run, result, time.Since(start))
}

// CancelMatch requests cancellation of an in-flight matching run. The
// matcher stops between batches; partial results remain readable.
func (s *Service) CancelMatch(id string) error {
	run, err := s.run(id)
	if err != nil {
		return err
	}

	run.mu.Lock()
	cancel := run.cancelMatch
	run.mu.Unlock()

	if cancel == nil {
		return ErrNoMatchRun
	}
	cancel()
	return nil
}

// MatchStatus returns the current matching state and cumulative result.
// Safe to call while the run is in progress.
func (s *Service) MatchStatus(id string) (MatchState, *MatchRunResult, error) {
	run, err := s.run(id)
	if err != nil {
		return "", nil, err
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	state := run.matchState
	var snapshot *MatchRunResult
	if run.match != nil {
		snapshot = run.match.Clone()
	}
	return state, snapshot, nil
}

// Validate runs the row validation engine. When matchedOnly is set and a
// matching run has completed, only matched rows are validated; their
// source row numbers are preserved.
func (s *Service) Validate(id string, opts AutoFixOptions, matchedOnly bool) (*ValidationResult, error) {
	run, err := s.run(id)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	table := run.table
	state, match := run.matchState, run.match
	run.mu.Unlock()

	var rowNums []int
	if matchedOnly {
		if state != MatchCompleted || match == nil {
			return nil, ErrNoMatchRun
		}
		rowNums = make([]int, 0, len(match.Matched))
		for _, m := range match.Matched {
			rowNums = append(rowNums, m.Record.Num)
		}
	}

	result := NewValidator(s.format).ValidateRows(table, opts, rowNums)

	run.mu.Lock()
	run.validation = result
	run.mu.Unlock()

	slog.Info("validation completed",
		"run_id", run.ID,
		"valid", len(result.ValidRows),
		"invalid", len(result.InvalidRows),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// ApplyFixes rewrites the run's working table with a corrected copy.
// Earlier validation and duplicate results are discarded; row numbering
// is unchanged so re-validation stays addressable.
func (s *Service) ApplyFixes(id string, includeBarangay bool) (RunInfo, error) {
	run, err := s.run(id)
	if err != nil {
		return RunInfo{}, err
	}

	run.mu.Lock()
	fixed := ApplyAllFixesExceptBarangay(run.table)
	if includeBarangay {
		fixed = ApplyBarangayCertificateFix(fixed)
	}
	run.table = fixed
	run.validation = nil
	run.duplicates = nil
	run.mu.Unlock()

	return s.info(run), nil
}

// DetectDuplicates runs the duplicate engine over the run's records.
func (s *Service) DetectDuplicates(id string) (*DuplicateResult, error) {
	run, err := s.run(id)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	records := run.table.Records()
	run.mu.Unlock()

	result := DetectDuplicates(records, s.format)

	run.mu.Lock()
	run.duplicates = result
	run.mu.Unlock()

	slog.Info("duplicate check completed",
		"run_id", run.ID,
		"valid", len(result.ValidRows),
		"flagged", len(result.InvalidRows),
	)
	return result, nil
}

// Export composes an export table for the given kind, overlaying
// registry-cleaned values for matched rows when available.
func (s *Service) Export(ctx context.Context, id string, kind ExportKind) (*Table, error) {
	run, err := s.run(id)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	table := run.table
	validation := run.validation
	state, match := run.matchState, run.match
	cleaned := run.cleaned
	run.mu.Unlock()

	if kind != ExportCleaned && validation == nil {
		return nil, ErrNothingValidated
	}

	if cleaned == nil && state == MatchCompleted && match != nil {
		ids := match.MatchedIdentifiers()
		if len(ids) > 0 {
			fetched, err := s.matcher.CleanedRecords(ctx, ids)
			if err != nil {
				// The export still works without the overlay.
				slog.Warn("cleaned records fetch failed", "run_id", run.ID, "error", err)
			} else {
				cleaned = fetched
				run.mu.Lock()
				run.cleaned = fetched
				run.mu.Unlock()
			}
		}
	}

	return ComposeExport(table, validation, cleaned, kind), nil
}

// ColumnTotals sums the numeric columns of the run's table.
func (s *Service) ColumnTotals(id string) (map[string]float64, error) {
	run, err := s.run(id)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	return run.table.ColumnTotals(), nil
}

// ListRuns returns persisted run summaries, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRuns(ctx, limit)
}

// LimiterStatus exposes the match limiter state for shutdown and health
// reporting.
func (s *Service) LimiterStatus() MatchLimiterStatus {
	return s.limiter.Status()
}

// WaitForMatches blocks until in-flight matching runs drain or the
// context expires. Used during graceful shutdown.
func (s *Service) WaitForMatches(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// run looks up an active run by ID.
func (s *Service) run(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

func (s *Service) info(run *Run) RunInfo {
	run.mu.Lock()
	defer run.mu.Unlock()
	return RunInfo{
		ID:         run.ID,
		FileName:   run.FileName,
		CreatedAt:  run.CreatedAt,
		TotalRows:  len(run.table.Rows),
		Columns:    append([]string(nil), run.table.Headers...),
		MatchState: run.matchState,
	}
}

// saveSummary persists a run summary best-effort.
func (s *Service) saveSummary(run *Run, match *MatchRunResult, duration time.Duration) {
	if s.store == nil {
		return
	}

	run.mu.Lock()
	summary := RunSummary{
		ID:        run.ID,
		FileName:  run.FileName,
		TotalRows: len(run.table.Rows),
		Duration:  duration,
		CreatedAt: run.CreatedAt,
	}
	if match != nil {
		summary.TotalMatched = match.TotalMatched()
		summary.TotalUnmatched = match.TotalUnmatched()
	}
	if run.validation != nil {
		summary.ValidRows = len(run.validation.ValidRows)
		summary.InvalidRows = len(run.validation.InvalidRows)
	}
	run.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SaveRun(ctx, summary); err != nil {
		slog.Warn("failed to persist run summary", "run_id", summary.ID, "error", err)
	}
}
