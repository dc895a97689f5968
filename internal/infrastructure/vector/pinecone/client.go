package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/healthflow/ai-assistant/internal/core/domain"
	"github.com/healthflow/ai-assistant/internal/infrastructure/resilience"
)

const defaultControlURL = "https://api.pinecone.io"

// Config describes the serverless index the client manages.
type Config struct {
	ControlURL string
	APIKey     string
	IndexName  string
	Dimension  int
	Metric     string
	Cloud      string
	Region     string

	// ReadyChecks bounds the creation poll in EnsureReady.
	ReadyChecks  int
	ReadyBackoff time.Duration
}

func (c Config) normalize() Config {
	out := c
	if out.ControlURL == "" {
		out.ControlURL = defaultControlURL
	}
	if out.Dimension <= 0 {
		out.Dimension = 384
	}
	if out.Metric == "" {
		out.Metric = "cosine"
	}
	if out.Cloud == "" {
		out.Cloud = "aws"
	}
	if out.Region == "" {
		out.Region = "us-east-1"
	}
	if out.ReadyChecks <= 0 {
		out.ReadyChecks = 30
	}
	if out.ReadyBackoff <= 0 {
		out.ReadyBackoff = time.Second
	}
	return out
}

// Client manages one Pinecone serverless index: idempotent creation with
// a bounded readiness poll, upserts and queries against the data plane.
type Client struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger

	mu   sync.Mutex
	host string
}

func New(cfg Config, executor *resilience.Executor, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg.normalize(),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
		logger:     logger,
	}
}

type indexDescription struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Status struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// EnsureReady creates the index if absent and polls until it reports
// ready, with bounded backoff. Idempotent; called once at startup.
func (c *Client) EnsureReady(ctx context.Context) error {
	c.mu.Lock()
	ready := c.host != ""
	c.mu.Unlock()
	if ready {
		return nil
	}

	desc, err := c.describeIndex(ctx)
	if err != nil {
		var statusErr *apiStatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
			return fmt.Errorf("describe index: %w", err)
		}
		if err := c.createIndex(ctx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		c.logger.Info("index_created",
			"index", c.cfg.IndexName,
			"dimension", c.cfg.Dimension,
			"metric", c.cfg.Metric,
		)
	}

	backoff := c.cfg.ReadyBackoff
	for attempt := 1; ; attempt++ {
		if desc != nil && desc.Status.Ready {
			c.mu.Lock()
			c.host = desc.Host
			c.mu.Unlock()
			c.logger.Info("index_ready", "index", c.cfg.IndexName, "host", desc.Host)
			return nil
		}
		if attempt > c.cfg.ReadyChecks {
			return domain.WrapError(domain.ErrTemporary, "ensure index ready",
				fmt.Errorf("index %s not ready after %d checks", c.cfg.IndexName, c.cfg.ReadyChecks))
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}

		desc, err = c.describeIndex(ctx)
		if err != nil {
			return fmt.Errorf("describe index: %w", err)
		}
	}
}

func (c *Client) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	host, err := c.dataURL()
	if err != nil {
		return err
	}

	type vector struct {
		ID       string         `json:"id"`
		Values   []float32      `json:"values"`
		Metadata map[string]any `json:"metadata"`
	}
	vectors := make([]vector, 0, len(records))
	for _, record := range records {
		vectors = append(vectors, vector{
			ID:     record.ID,
			Values: record.Vector,
			Metadata: map[string]any{
				"source": record.Metadata.Source,
				"doc_id": record.Metadata.DocID,
				"role":   record.Metadata.Role,
				"page":   record.Metadata.Page,
				"text":   record.Metadata.Text,
			},
		})
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, host+"/vectors/upsert", map[string]any{"vectors": vectors}, nil, "upsert")
	}
	if c.executor != nil {
		return c.executor.Execute(ctx, "pinecone.upsert", call, classifyPineconeError)
	}
	return call(ctx)
}

func (c *Client) Query(ctx context.Context, queryVector []float32, topK int) ([]domain.RetrievalMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	host, err := c.dataURL()
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"vector":          queryVector,
		"topK":            topK,
		"includeMetadata": true,
	}

	var response struct {
		Matches []struct {
			ID       string       `json:"id"`
			Score    float64      `json:"score"`
			Metadata wireMetadata `json:"metadata"`
		} `json:"matches"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, host+"/query", payload, &response, "query")
	}
	if c.executor != nil {
		err = c.executor.Execute(ctx, "pinecone.query", call, classifyPineconeError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.RetrievalMatch, 0, len(response.Matches))
	for _, match := range response.Matches {
		out = append(out, domain.RetrievalMatch{
			Score:    match.Score,
			Metadata: match.Metadata.toDomain(),
		})
	}
	return out, nil
}

// wireMetadata tolerates Pinecone returning all numbers as floats.
type wireMetadata struct {
	Source string  `json:"source"`
	DocID  string  `json:"doc_id"`
	Role   string  `json:"role"`
	Page   float64 `json:"page"`
	Text   string  `json:"text"`
}

func (m wireMetadata) toDomain() domain.ChunkMetadata {
	return domain.ChunkMetadata{
		Source: m.Source,
		DocID:  m.DocID,
		Role:   m.Role,
		Page:   int(m.Page),
		Text:   m.Text,
	}
}

func (c *Client) describeIndex(ctx context.Context) (*indexDescription, error) {
	url := fmt.Sprintf("%s/indexes/%s", strings.TrimRight(c.cfg.ControlURL, "/"), c.cfg.IndexName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create describe request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("describe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newAPIStatusError("describe", resp)
	}

	var desc indexDescription
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, fmt.Errorf("decode describe response: %w", err)
	}
	return &desc, nil
}

func (c *Client) createIndex(ctx context.Context) error {
	payload := map[string]any{
		"name":      c.cfg.IndexName,
		"dimension": c.cfg.Dimension,
		"metric":    c.cfg.Metric,
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  c.cfg.Cloud,
				"region": c.cfg.Region,
			},
		},
	}
	url := strings.TrimRight(c.cfg.ControlURL, "/") + "/indexes"
	err := c.postJSON(ctx, url, payload, nil, "create")

	// A concurrent creator winning the race is fine.
	var statusErr *apiStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
		return nil
	}
	return err
}

func (c *Client) dataURL() (string, error) {
	c.mu.Lock()
	host := c.host
	c.mu.Unlock()
	if host == "" {
		return "", domain.WrapError(domain.ErrTemporary, "pinecone data plane", errors.New("index host unknown; EnsureReady not completed"))
	}
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/"), nil
	}
	return "https://" + host, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newAPIStatusError(operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

type apiStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *apiStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("pinecone %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("pinecone %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func newAPIStatusError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &apiStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(raw)),
	}
}

func classifyPineconeError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var statusErr *apiStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
