package fastembed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/healthflow/ai-assistant/internal/infrastructure/resilience"
)

// Client calls a FastEmbed-compatible embedding server speaking the
// text-embeddings-inference /embed contract. Vectors must come back at
// the index dimension (384 for bge-small).
type Client struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, dimension int, executor *resilience.Executor) *Client {
	if dimension <= 0 {
		dimension = 384
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type embedRequest struct {
	Inputs   []string `json:"inputs"`
	Model    string   `json:"model,omitempty"`
	Truncate bool     `json:"truncate"`
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	call := func(callCtx context.Context) error {
		return c.postEmbed(callCtx, texts, &vectors)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "fastembed.embed", call, classifyEmbedError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed result count mismatch: %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, vector := range vectors {
		if len(vector) != c.dimension {
			return nil, fmt.Errorf("embed vector %d has dimension %d, want %d", i, len(vector), c.dimension)
		}
	}
	return vectors, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) postEmbed(ctx context.Context, texts []string, out *[][]float32) error {
	body, err := json.Marshal(embedRequest{
		Inputs:   texts,
		Model:    c.model,
		Truncate: true,
	})
	if err != nil {
		return fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("embed status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("embed status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode embed response: %w", err)
	}
	return nil
}

func classifyEmbedError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
