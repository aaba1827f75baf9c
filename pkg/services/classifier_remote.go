package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	config "budget-insight-api/configs"
	"budget-insight-api/pkg/resilience"
)

const remoteOperation = "classifier.remote"

// RemoteClassifier calls a model serving endpoint over HTTP.
//
// Request:  POST {url} {"text": "..."}
// Response: {"probabilities": [0.1, 0.7, ...]} mapped through the label mapping,
// or {"label": "Sport", "confidence": 0.7}.
type RemoteClassifier struct {
	url        string
	name       string
	mapping    *config.LabelMapping
	httpClient *http.Client
	executor   *resilience.Executor
}

// RemoteClassifierOptions configures a RemoteClassifier.
type RemoteClassifierOptions struct {
	URL     string
	Name    string
	Timeout time.Duration
	Mapping *config.LabelMapping
	// Executor wraps every call; nil calls the endpoint once without breaker.
	Executor *resilience.Executor
}

func NewRemoteClassifier(opts RemoteClassifierOptions) (*RemoteClassifier, error) {
	if opts.URL == "" {
		return nil, errors.New("remote classifier needs a URL")
	}
	if opts.Name == "" {
		opts.Name = "CamemBERT"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &RemoteClassifier{
		url:        opts.URL,
		name:       opts.Name,
		mapping:    opts.Mapping,
		httpClient: &http.Client{Timeout: opts.Timeout},
		executor:   opts.Executor,
	}, nil
}

func (c *RemoteClassifier) Name() string { return c.name }

type remoteRequest struct {
	Text string `json:"text"`
}

type remoteResponse struct {
	Probabilities []float64 `json:"probabilities"`
	Label         string    `json:"label"`
	Confidence    float64   `json:"confidence"`
}

func (c *RemoteClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	var resp remoteResponse
	err := runWith(ctx, c.executor, remoteOperation, func(ctx context.Context) error {
		resp = remoteResponse{}
		return c.post(ctx, text, &resp)
	})
	if err != nil {
		return nil, classifierError(c.name, err)
	}

	if len(resp.Probabilities) > 0 {
		idx, p := argmax(resp.Probabilities)
		return &Prediction{Label: c.mapping.Label(idx), Confidence: clamp01(p), Backend: c.name}, nil
	}
	if resp.Label != "" {
		return &Prediction{Label: resp.Label, Confidence: clamp01(resp.Confidence), Backend: c.name}, nil
	}
	return nil, classifierError(c.name, errors.New("response has neither probabilities nor label"))
}

func (c *RemoteClassifier) post(ctx context.Context, text string, out *remoteResponse) error {
	body, err := json.Marshal(remoteRequest{Text: text})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return &resilience.StatusError{Operation: remoteOperation, StatusCode: res.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// argmax index and value of the largest element, first one on ties.
func argmax(values []float64) (int, float64) {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best, values[best]
}
