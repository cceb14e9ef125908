// Package registry implements the HTTP client and batch matcher for the
// central beneficiary registry. Lookups carry the identity fields as
// request headers; responses list candidate records keyed by an opaque
// group name.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agrikit/rsbsa-validator/internal/core"
)

// DefaultRequestTimeout bounds a single registry lookup.
const DefaultRequestTimeout = 15 * time.Second

// Client talks to the registry matching API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient swaps the underlying HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestTimeout sets the per-lookup timeout.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAPIKey sets the key sent on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// NewClient creates a registry client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// identityHeaders are the canonical fields sent as request headers on a
// match lookup. The registry expects exactly these names.
var identityHeaders = []string{
	core.FieldIdentifier,
	core.FieldFirstName,
	core.FieldMiddleName,
	core.FieldLastName,
	core.FieldExtensionName,
	core.FieldSex,
	core.FieldMotherMaidenName,
}

// candidate is one registry record in a match response.
type candidate map[string]string

// Identifier returns the candidate's confirmed system number.
func (c candidate) Identifier() string { return c["rsbsa_no"] }

// matchResponse is the wire shape of GET /api/match/rsbsa.
type matchResponse struct {
	Success bool                   `json:"success"`
	Data    map[string][]candidate `json:"data"`
	Message string                 `json:"message"`

	UnmatchedRecords []struct {
		Reason          string          `json:"reason"`
		RecordData      map[string]string `json:"recordData"`
		UnmatchedFields []struct {
			Field string `json:"field"`
			Input string `json:"input"`
			DB    string `json:"db"`
		} `json:"unmatchedFields"`
		PotentialMatch map[string]string `json:"potentialMatch"`
	} `json:"unmatchedRecords"`
}

// firstCandidate returns the first candidate of the first group, if any.
// Group names are opaque; the first group carries the best match.
func (r *matchResponse) firstCandidate() (candidate, bool) {
	for _, group := range r.Data {
		if len(group) > 0 {
			return group[0], true
		}
	}
	return nil, false
}

// Lookup matches one record against the registry. A lookup that reaches
// the registry but finds nothing is an unmatched result, not an error.
func (c *Client) Lookup(ctx context.Context, rec core.Record) (core.MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/match/rsbsa", nil)
	if err != nil {
		return core.MatchResult{}, fmt.Errorf("registry: build request: %w", err)
	}
	for _, field := range identityHeaders {
		req.Header.Set(field, rec.Fields[field])
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.MatchResult{}, fmt.Errorf("registry: lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return core.MatchResult{}, fmt.Errorf("registry: read response: %w", err)
	}

	var parsed matchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return core.MatchResult{}, fmt.Errorf("registry: decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return core.MatchResult{}, fmt.Errorf("registry: lookup failed (status %d): %s", resp.StatusCode, parsed.Message)
	}

	result := core.MatchResult{Record: rec}

	if cand, ok := parsed.firstCandidate(); parsed.Success && ok {
		result.Status = core.MatchMatched
		result.Identifier = cand.Identifier()
		return result, nil
	}

	result.Status = core.MatchUnmatched
	result.Remarks = parsed.Message
	if result.Remarks == "" {
		result.Remarks = "No matching record found"
	}
	for _, u := range parsed.UnmatchedRecords {
		miss := core.NearMiss{
			Reason:         u.Reason,
			RecordData:     core.StandardizedRow(u.RecordData),
			PotentialMatch: core.StandardizedRow(u.PotentialMatch),
		}
		for _, f := range u.UnmatchedFields {
			miss.UnmatchedFields = append(miss.UnmatchedFields, core.FieldMismatch{
				Field: f.Field, Input: f.Input, Registry: f.DB,
			})
		}
		result.NearMisses = append(result.NearMisses, miss)
	}
	return result, nil
}

// cleanedResponse is the wire shape of the cleaned-records endpoint.
type cleanedResponse struct {
	Success bool        `json:"success"`
	Data    []candidate `json:"data"`
	Message string      `json:"message"`
}

// CleanedRecords fetches registry-authoritative field values for the
// given confirmed identifiers, keyed by identifier. Registry column
// names are standardized to canonical headers so the export overlay can
// address them.
func (c *Client) CleanedRecords(ctx context.Context, identifiers []string) (map[string]core.StandardizedRow, error) {
	if len(identifiers) == 0 {
		return map[string]core.StandardizedRow{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/api/match/rsbsa/cleaned?ids=" + url.QueryEscape(strings.Join(identifiers, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: cleaned records: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: cleaned records failed (status %d)", resp.StatusCode)
	}

	var parsed cleanedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("registry: decode cleaned records: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("registry: cleaned records rejected: %s", parsed.Message)
	}

	cleaned := make(map[string]core.StandardizedRow, len(parsed.Data))
	for _, item := range parsed.Data {
		id := strings.TrimSpace(item.Identifier())
		if id == "" {
			continue
		}
		row := make(core.StandardizedRow, len(item))
		for k, v := range item {
			if k == "rsbsa_no" {
				row[core.FieldIdentifier] = v
				continue
			}
			row[core.StandardizeHeader(k)] = v
		}
		cleaned[id] = row
	}
	return cleaned, nil
}
