package remoteprover

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog"
)

// HTTPClient implements Client over a REST-style remote prover API,
// grounded on x/superblock/proofs/prover/http_client.go: same base-URL +
// path-join construction, same status-code-to-error mapping, same
// structured log calls at each request site.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPClient constructs a prover client for the given base URL.
func NewHTTPClient(rawURL string, httpClient *http.Client, log zerolog.Logger) (*HTTPClient, error) {
	if rawURL == "" {
		return nil, errors.New("base URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid prover base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &HTTPClient{
		baseURL:    parsed,
		httpClient: httpClient,
		log:        log.With().Str("component", "remote-prover-client").Logger(),
	}, nil
}

type submitTraceRequest struct {
	Label   string `json:"label"`
	Program []byte `json:"program"`
	Input   []byte `json:"input"`
}

type submitProofRequest struct {
	Label string `json:"label"`
	Layout string `json:"layout"`
	PIE   []byte `json:"pie"`
}

type submitResponse struct {
	QueryID string `json:"query_id"`
	Error   string `json:"error"`
}

func (c *HTTPClient) SubmitTraceGeneration(ctx context.Context, label string, program, input []byte) (string, error) {
	return c.submit(ctx, "trace", submitTraceRequest{Label: label, Program: program, Input: input})
}

func (c *HTTPClient) SubmitProofGeneration(ctx context.Context, pie []byte, layout, label string) (string, error) {
	return c.submit(ctx, "proof", submitProofRequest{Label: label, Layout: layout, PIE: pie})
}

func (c *HTTPClient) submit(ctx context.Context, endpoint string, payload any) (string, error) {
	url := c.buildURL(endpoint)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("prepare submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("endpoint", url).Msg("submit request failed")
		return "", fmt.Errorf("submit request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("prover returned %s: %s", res.Status, string(msg))
	}

	var decoded submitResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("prover rejected job: %s", decoded.Error)
	}
	if decoded.QueryID == "" {
		return "", errors.New("prover response missing query_id")
	}

	c.log.Info().Str("endpoint", endpoint).Str("query_id", decoded.QueryID).Msg("job submitted")
	return decoded.QueryID, nil
}

type jobsResponse struct {
	Jobs []struct {
		JobName string `json:"job_name"`
		Status  string `json:"status"`
	} `json:"jobs"`
}

func (c *HTTPClient) GetQueryJobs(ctx context.Context, queryID string) ([]JobRecord, error) {
	endpoint := c.buildURL(path.Join("jobs", queryID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("prepare jobs request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get query jobs: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("prover returned %s: %s", res.Status, string(msg))
	}

	var decoded jobsResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode jobs response: %w", err)
	}

	records := make([]JobRecord, 0, len(decoded.Jobs))
	for _, j := range decoded.Jobs {
		records = append(records, JobRecord{JobName: JobKind(j.JobName), Status: JobStatus(j.Status)})
	}
	return records, nil
}

type resultResponse struct {
	Data string `json:"data"` // base64-encoded proof/trace bytes
}

func (c *HTTPClient) GetProof(ctx context.Context, queryID string) ([]byte, error) {
	return c.fetchResult(ctx, path.Join("proof", queryID))
}

func (c *HTTPClient) GetTrace(ctx context.Context, queryID string) ([]byte, error) {
	return c.fetchResult(ctx, path.Join("trace", queryID))
}

func (c *HTTPClient) fetchResult(ctx context.Context, relPath string) ([]byte, error) {
	endpoint := c.buildURL(relPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("prepare fetch request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("prover returned %s: %s", res.Status, string(msg))
	}

	var decoded resultResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode result response: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(decoded.Data)
	if err != nil {
		return nil, fmt.Errorf("decode result payload: %w", err)
	}
	return raw, nil
}

func (c *HTTPClient) buildURL(elem ...string) string {
	clone := *c.baseURL
	clone.Path = path.Join(append([]string{c.baseURL.Path}, elem...)...)
	return clone.String()
}

var _ Client = (*HTTPClient)(nil)
