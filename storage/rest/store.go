// Package reststore is a core.TabularStore over a hosted relational REST API (PostgREST dialect).
package reststore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/resultportal/core"
)

const apiPath = "/rest/v1/"

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest store: status %d: %s", e.StatusCode, e.Message)
}

type Store struct {
	baseURL string
	apiKey  string
	client  *rest.Client
}

var _ core.TabularStore = (*Store)(nil) // interface compliance check

// NewStore targets `<baseURL>/rest/v1/<table>`; apiKey is sent as both the apikey and the bearer token.
func NewStore(baseURL, apiKey string, timeout time.Duration) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
	}
}

func (s *Store) request(method rest.Method, table string, prefer ...string) rest.Request {
	headers := map[string]string{
		"apikey":        s.apiKey,
		"Authorization": "Bearer " + s.apiKey,
		"Accept":        "application/json",
		"Content-Type":  "application/json",
	}
	if len(prefer) > 0 {
		headers["Prefer"] = strings.Join(prefer, ",")
	}
	return rest.Request{
		Method:      method,
		BaseURL:     s.baseURL + apiPath + table,
		Headers:     headers,
		QueryParams: make(map[string]string),
	}
}

func addFilters(req *rest.Request, filters []core.Filter) error {
	for _, f := range filters {
		if _, dup := req.QueryParams[f.Column]; dup {
			return errors.Errorf("more than one filter on column %q", f.Column)
		}
		req.QueryParams[f.Column] = f.Value()
	}
	return nil
}

func (s *Store) send(ctx context.Context, req rest.Request) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.client.Send(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: res.StatusCode, Message: errorMessage(res.Body)}
	}

	recs := make([]core.Record, 0)
	if strings.TrimSpace(res.Body) == "" {
		return recs, nil
	}
	if err = json.Unmarshal([]byte(res.Body), &recs); err != nil {
		return nil, errors.Wrap(err, "decoding response")
	}
	return recs, nil
}

func errorMessage(body string) string {
	var payload struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil || payload.Message == "" {
		return strings.TrimSpace(body)
	}
	if payload.Details != "" {
		return payload.Message + " (" + payload.Details + ")"
	}
	return payload.Message
}

func (s *Store) Fetch(ctx context.Context, table string, filters ...core.Filter) ([]core.Record, error) {
	req := s.request(rest.Get, table)
	req.QueryParams["select"] = "*"
	if err := addFilters(&req, filters); err != nil {
		return nil, err
	}
	return s.send(ctx, req)
}

func (s *Store) Insert(ctx context.Context, table string, records ...core.Record) ([]core.Record, error) {
	if len(records) == 0 {
		return []core.Record{}, nil
	}
	req := s.request(rest.Post, table, "return=representation")
	body, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(err, "encoding records")
	}
	req.Body = body
	return s.send(ctx, req)
}

func (s *Store) Upsert(ctx context.Context, table string, records []core.Record, conflictColumns ...string) ([]core.Record, error) {
	if len(conflictColumns) == 0 {
		return nil, errors.New("upsert needs at least one conflict column")
	}
	if len(records) == 0 {
		return []core.Record{}, nil
	}
	req := s.request(rest.Post, table, "return=representation", "resolution=merge-duplicates")
	req.QueryParams["on_conflict"] = strings.Join(conflictColumns, ",")
	body, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(err, "encoding records")
	}
	req.Body = body
	return s.send(ctx, req)
}

func (s *Store) Update(ctx context.Context, table, id string, fields core.Record) (core.Record, error) {
	req := s.request(rest.Patch, table, "return=representation")
	req.QueryParams["id"] = core.Eq("id", id).Value()
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(err, "encoding fields")
	}
	req.Body = body

	recs, err := s.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, core.ErrRecordNotFound
	}
	return recs[0], nil
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	req := s.request(rest.Delete, table, "return=representation")
	req.QueryParams["id"] = core.Eq("id", id).Value()
	recs, err := s.send(ctx, req)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}
