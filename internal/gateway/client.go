package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ragconsole/internal/domain"
	"ragconsole/internal/filter"
)

var (
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRejected is returned when the ingestion service answers with an error field.
	ErrRejected = errors.New("rejected by server")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Op     string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Status, e.Body)
}

// Config configures the backend client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client is a REST client for the API gateway.
type Client struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.Named("gateway"),
	}
}

// Login posts form-encoded credentials and returns the access token.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Credential, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Credential{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.do(req, "login", &out); err != nil {
		return domain.Credential{}, err
	}
	if out.AccessToken == "" {
		return domain.Credential{}, fmt.Errorf("login: %w: missing access_token", ErrMalformedResponse)
	}
	return domain.Credential{Token: out.AccessToken, TokenType: out.TokenType}, nil
}

// Upload sends the document as multipart form data together with the chunk size.
func (c *Client) Upload(ctx context.Context, doc domain.Document, chunkSize int) (domain.UploadReceipt, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return domain.UploadReceipt{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(doc.Path))
	if err != nil {
		return domain.UploadReceipt{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return domain.UploadReceipt{}, err
	}
	if err := mw.WriteField("chunk_size", strconv.Itoa(chunkSize)); err != nil {
		return domain.UploadReceipt{}, err
	}
	if err := mw.Close(); err != nil {
		return domain.UploadReceipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return domain.UploadReceipt{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out struct {
		Status            string  `json:"status"`
		ChunksCreated     int     `json:"chunks_created"`
		TotalVectors      int     `json:"total_vectors"`
		ProcessingLatency float64 `json:"processing_latency_seconds"`
		Error             string  `json:"error"`
	}
	if err := c.do(req, "upload", &out); err != nil {
		return domain.UploadReceipt{}, err
	}
	if out.Error != "" {
		return domain.UploadReceipt{}, fmt.Errorf("upload: %w: %s", ErrRejected, out.Error)
	}
	return domain.UploadReceipt{
		Status:            out.Status,
		ChunksCreated:     out.ChunksCreated,
		TotalVectors:      out.TotalVectors,
		ProcessingLatency: out.ProcessingLatency,
	}, nil
}

// Query asks a question with the bearer token attached.
func (c *Client) Query(ctx context.Context, token string, q domain.QueryRequest) (domain.QueryResult, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return domain.QueryResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(data))
	if err != nil {
		return domain.QueryResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	var out struct {
		Answer            string   `json:"answer"`
		RetrievedChunks   []string `json:"retrieved_chunks"`
		RetrievalLatency  float64  `json:"retrieval_latency"`
		GenerationLatency float64  `json:"generation_latency"`
		TotalLatency      float64  `json:"total_latency"`
		ContextLength     int      `json:"context_length"`
		TopK              int      `json:"top_k"`
	}
	if err := c.do(req, "query", &out); err != nil {
		return domain.QueryResult{}, err
	}
	passages := out.RetrievedChunks
	if passages == nil {
		passages = []string{}
	}
	return domain.QueryResult{
		Answer:            out.Answer,
		Passages:          passages,
		RetrievalLatency:  out.RetrievalLatency,
		GenerationLatency: out.GenerationLatency,
		TotalLatency:      out.TotalLatency,
		ContextLength:     out.ContextLength,
		TopK:              out.TopK,
	}, nil
}

// Metrics returns every recorded experiment in store order.
func (c *Client) Metrics(ctx context.Context) ([]domain.Experiment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/metrics", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := c.do(req, "metrics", &out); err != nil {
		return nil, err
	}
	return decodeExperiments(out.Data)
}

// Compare returns the aggregated latency view. Only set filters are sent.
func (c *Client) Compare(ctx context.Context, f domain.Filters) ([]domain.ComparisonRow, error) {
	u := c.baseURL + "/compare"
	if params := filter.Params(f); len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Comparison []json.RawMessage `json:"comparison"`
	}
	if err := c.do(req, "compare", &out); err != nil {
		return nil, err
	}
	return decodeComparison(out.Comparison)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	req.Header.Set("Accept", "application/json")
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("op", op), zap.String("request_id", id), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.log.Debug("request done",
		zap.String("op", op),
		zap.String("request_id", id),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}
