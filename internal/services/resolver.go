package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/shared"
)

// TokenSource supplies bearer tokens. [session.Manager] implements it.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (models.Credential, error)
}

// Params narrow a fetch. Zero values are omitted from the query string.
type Params struct {
	Limit int
	From  time.Time
	To    time.Time
}

func (p Params) values() url.Values {
	v := url.Values{}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if !p.From.IsZero() {
		v.Set("from", p.From.UTC().Format(time.RFC3339))
	}
	if !p.To.IsZero() {
		v.Set("to", p.To.UTC().Format(time.RFC3339))
	}
	return v
}

// Outcome classifies one candidate attempt.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeForbidden    Outcome = "forbidden"
	OutcomeStatus       Outcome = "status"
	OutcomeUnparsable   Outcome = "unparsable"
	OutcomeTransport    Outcome = "transport"
)

// Attempt records one request made while resolving a family.
type Attempt struct {
	Path      string
	Status    int // 0 when the request never completed
	Outcome   Outcome
	RequestID string
	Err       error
}

// ProbeResult reports which candidate served a family.
type ProbeResult struct {
	Family   Family
	Path     string // empty when unresolved
	Count    int
	Attempts []Attempt
	Err      error
}

// Resolver discovers which candidate route serves each family and normalizes its response.
//
// The last winning candidate per family is tried first on later fetches.
// A 401 triggers one token refresh and a retry of the same candidate; a second 401 fails the fetch.
type Resolver struct {
	api    *APIService
	tokens TokenSource
	table  EndpointTable
	logger *log.Logger

	mu        sync.Mutex
	preferred map[Family]string
}

// ResolverOption configures a [Resolver].
type ResolverOption func(*Resolver)

// WithEndpoints replaces the candidate table.
func WithEndpoints(table EndpointTable) ResolverOption {
	return func(r *Resolver) { r.table = table }
}

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(l *log.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a [Resolver] over api using tokens for authorization.
func NewResolver(api *APIService, tokens TokenSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		api:       api,
		tokens:    tokens,
		table:     DefaultEndpoints,
		logger:    shared.NewLogger(nil),
		preferred: map[Family]string{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = shared.WithLogger(r.logger, "component", "resolver")
	return r
}

// Fetch resolves family and returns its normalized records.
func (r *Resolver) Fetch(ctx context.Context, family Family, params Params) ([]models.Record, error) {
	records, _, err := r.resolve(ctx, family, params)
	return records, err
}

// Calls fetches call history.
func (r *Resolver) Calls(ctx context.Context, params Params) ([]models.CallRecord, error) {
	return fetchAs[models.CallRecord](ctx, r, FamilyCalls, params)
}

// Recordings fetches call recordings.
func (r *Resolver) Recordings(ctx context.Context, params Params) ([]models.Recording, error) {
	return fetchAs[models.Recording](ctx, r, FamilyRecordings, params)
}

// PersonalNumbers fetches numbers owned by the account.
func (r *Resolver) PersonalNumbers(ctx context.Context) ([]models.PhoneNumber, error) {
	return fetchAs[models.PhoneNumber](ctx, r, FamilyPersonalNumbers, Params{})
}

// PlatformNumbers fetches numbers offered by the platform.
func (r *Resolver) PlatformNumbers(ctx context.Context) ([]models.PhoneNumber, error) {
	return fetchAs[models.PhoneNumber](ctx, r, FamilyPlatformNumbers, Params{})
}

// Account fetches the account profile.
func (r *Resolver) Account(ctx context.Context) (models.Account, error) {
	accounts, err := fetchAs[models.Account](ctx, r, FamilyAccount, Params{})
	if err != nil {
		return models.Account{}, err
	}
	if len(accounts) == 0 {
		return models.Account{}, &ResolutionError{Kind: DecodeFailed, Family: FamilyAccount}
	}
	return accounts[0], nil
}

// Probe resolves every family and reports the attempts made for each.
func (r *Resolver) Probe(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, 0, len(Families()))
	for _, family := range Families() {
		records, attempts, err := r.resolve(ctx, family, Params{Limit: 1})
		result := ProbeResult{Family: family, Count: len(records), Attempts: attempts, Err: err}
		if err == nil && len(attempts) > 0 {
			result.Path = attempts[len(attempts)-1].Path
		}
		results = append(results, result)
	}
	return results
}

// Preferred returns the path that last served family, or "".
func (r *Resolver) Preferred(family Family) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preferred[family]
}

func (r *Resolver) resolve(ctx context.Context, family Family, params Params) ([]models.Record, []Attempt, error) {
	normalize, ok := normalizers[family]
	candidates := r.ordered(family)
	if !ok || len(candidates) == 0 {
		return nil, nil, &ResolutionError{Kind: UnknownFamily, Family: family}
	}

	token, err := r.tokens.ValidToken(ctx)
	if err != nil {
		return nil, nil, &ResolutionError{Kind: Unauthorized, Family: family, Err: err}
	}

	var (
		attempts       []Attempt
		lastErr        error
		decodeFailures int
		otherFailures  int
		refreshed      bool
		query          = params.values()
	)

	for i := 0; i < len(candidates); {
		c := candidates[i]
		attempt, rows := r.try(ctx, family, c, query, token)
		attempts = append(attempts, attempt)

		switch attempt.Outcome {
		case OutcomeOK:
			r.remember(family, c.Path)
			records := make([]models.Record, 0, len(rows))
			for _, row := range rows {
				records = append(records, normalize(row))
			}
			return records, attempts, nil
		case OutcomeUnauthorized:
			if refreshed {
				return nil, attempts, &ResolutionError{Kind: Unauthorized, Family: family, Err: attempt.Err}
			}
			cred, err := r.tokens.Refresh(ctx)
			if err != nil {
				return nil, attempts, &ResolutionError{Kind: Unauthorized, Family: family, Err: err}
			}
			token, refreshed = cred.AccessToken, true
			continue
		case OutcomeUnparsable:
			decodeFailures++
		case OutcomeTransport:
			// no answer; neither a decode failure nor a refusal
		default:
			otherFailures++
		}

		lastErr = attempt.Err
		i++
	}

	r.forget(family)

	kind := AllEndpointsExhausted
	if decodeFailures > 0 && otherFailures == 0 {
		kind = DecodeFailed
	}
	r.logger.Warn("no candidate served family", "family", family, "attempts", len(attempts), "kind", kind)
	return nil, attempts, &ResolutionError{Kind: kind, Family: family, Err: lastErr}
}

// try performs one candidate request and classifies it. rows is set only for [OutcomeOK].
func (r *Resolver) try(ctx context.Context, family Family, c Candidate, query url.Values, token string) (Attempt, []map[string]any) {
	attempt := Attempt{Path: c.Path}
	var rows []map[string]any

	resp, err := r.api.Get(ctx, c.Path, query, token)
	if err != nil {
		attempt.Outcome = OutcomeTransport
		attempt.Err = fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, c.Path, err)
	} else {
		attempt.Status, attempt.RequestID = resp.StatusCode, resp.RequestID

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			attempt.Outcome = OutcomeUnauthorized
			attempt.Err = fmt.Errorf("%s answered %d", c.Path, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			attempt.Outcome = OutcomeNotFound
			attempt.Err = fmt.Errorf("%w: %s answered %d", shared.ErrAPIRequest, c.Path, resp.StatusCode)
		case resp.StatusCode == http.StatusForbidden:
			attempt.Outcome = OutcomeForbidden
			attempt.Err = fmt.Errorf("%w: %s answered %d", shared.ErrAPIRequest, c.Path, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			attempt.Outcome = OutcomeStatus
			attempt.Err = fmt.Errorf("%w: %s answered %d", shared.ErrAPIRequest, c.Path, resp.StatusCode)
		case !resp.IsJSON:
			attempt.Outcome = OutcomeUnparsable
			attempt.Err = fmt.Errorf("%w: %s: body is not JSON", shared.ErrDecodeFailed, c.Path)
		default:
			d, err := parseResponse(resp.JSONData, c, family.single())
			if err != nil {
				attempt.Outcome = OutcomeUnparsable
				attempt.Err = fmt.Errorf("%w: %s: %v", shared.ErrDecodeFailed, c.Path, err)
			} else {
				attempt.Outcome = OutcomeOK
				rows = d.records()
			}
		}
	}

	r.logger.Debug("candidate attempt",
		"family", family, "path", c.Path, "status", attempt.Status, "outcome", attempt.Outcome, "request_id", attempt.RequestID)
	return attempt, rows
}

// ordered returns the family's candidates with the preferred one first.
func (r *Resolver) ordered(family Family) []Candidate {
	candidates := r.table[family]
	preferred := r.Preferred(family)
	if preferred == "" {
		return candidates
	}

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Path == preferred {
			out = append(out, c)
		}
	}
	for _, c := range candidates {
		if c.Path != preferred {
			out = append(out, c)
		}
	}
	return out
}

func (r *Resolver) remember(family Family, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferred[family] = path
}

func (r *Resolver) forget(family Family) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.preferred, family)
}

func fetchAs[T models.Record](ctx context.Context, r *Resolver, family Family, params Params) ([]T, error) {
	records, err := r.Fetch(ctx, family, params)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		if v, ok := rec.(T); ok {
			out = append(out, v)
		}
	}
	return out, nil
}
