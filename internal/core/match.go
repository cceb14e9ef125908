package core

// match.go defines the result model for registry matching runs. The types
// live here so the validation service can consume any matcher
// implementation through the RegistryMatcher interface; the HTTP client
// lives in internal/registry.

import "context"

// MatchStatus classifies one row's outcome against the registry.
type MatchStatus string

const (
	// MatchMatched means the registry returned at least one candidate.
	MatchMatched MatchStatus = "MATCHED"
	// MatchUnmatched means the lookup succeeded with zero candidates.
	MatchUnmatched MatchStatus = "UNMATCHED"
	// MatchError means the lookup itself failed. Counted with unmatched
	// rows downstream but keeps its own tag.
	MatchError MatchStatus = "ERROR"
)

// FieldMismatch is one field-level difference reported for a near-miss.
type FieldMismatch struct {
	Field    string `json:"field"`
	Input    string `json:"input"`
	Registry string `json:"db"`
}

// NearMiss is a registry candidate that almost matched, with the fields
// that disagreed and an optional single best guess.
type NearMiss struct {
	Reason          string          `json:"reason"`
	RecordData      StandardizedRow `json:"recordData"`
	UnmatchedFields []FieldMismatch `json:"unmatchedFields"`
	PotentialMatch  StandardizedRow `json:"potentialMatch,omitempty"`
}

// MatchResult is the immutable per-row outcome of one matching run.
// A rerun replaces the MatchResults for the affected rows wholesale.
type MatchResult struct {
	Record     Record      `json:"record"`
	Status     MatchStatus `json:"status"`
	Identifier string      `json:"identifier,omitempty"`
	Remarks    string      `json:"remarks,omitempty"`
	NearMisses []NearMiss  `json:"nearMisses,omitempty"`
}

// MatchRunResult aggregates a matching run. Totals are derived from the
// row lists so counts can never drift from the underlying data.
type MatchRunResult struct {
	Matched   []MatchResult `json:"matched"`
	Unmatched []MatchResult `json:"unmatched"`
}

// TotalMatched returns the matched row count.
func (r *MatchRunResult) TotalMatched() int { return len(r.Matched) }

// TotalUnmatched returns the count of unmatched and errored rows.
func (r *MatchRunResult) TotalUnmatched() int { return len(r.Unmatched) }

// Total returns the number of rows processed so far.
func (r *MatchRunResult) Total() int { return len(r.Matched) + len(r.Unmatched) }

// Clone deep-copies the row lists so a progress snapshot stays stable
// while the run keeps appending.
func (r *MatchRunResult) Clone() *MatchRunResult {
	return &MatchRunResult{
		Matched:   append([]MatchResult(nil), r.Matched...),
		Unmatched: append([]MatchResult(nil), r.Unmatched...),
	}
}

// MatchedIdentifiers lists the confirmed registry identifiers, in row
// order, for the cleaned-records fetch.
func (r *MatchRunResult) MatchedIdentifiers() []string {
	ids := make([]string, 0, len(r.Matched))
	for _, m := range r.Matched {
		if m.Identifier != "" {
			ids = append(ids, m.Identifier)
		}
	}
	return ids
}

// MatchProgressFunc receives a cumulative snapshot after each batch
// settles. The snapshot is the callee's to keep.
type MatchProgressFunc func(snapshot *MatchRunResult)

// RegistryMatcher is what the validation service needs from a registry
// matching implementation.
type RegistryMatcher interface {
	// Run matches every record in bounded concurrent batches. On context
	// cancellation it returns the partial result together with ctx.Err();
	// partial results are never rolled back.
	Run(ctx context.Context, records []Record, onBatch MatchProgressFunc) (*MatchRunResult, error)

	// CleanedRecords fetches registry-authoritative field values for
	// confirmed identifiers, keyed by identifier.
	CleanedRecords(ctx context.Context, identifiers []string) (map[string]StandardizedRow, error)
}
