package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nft-go/internal/nft"
)

// Generation job states reported by the provider, plus the local timed-out state.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusTimedOut   = "timed-out"
)

// PendingGeneration tracks a submitted generation job while it is polled.
type PendingGeneration struct {
	PollURL  string
	Attempts int
	Status   string
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	Endpoint     string
	APIToken     string
	ModelVersion string
	PollInterval time.Duration
	MaxAttempts  int
}

// Generator creates images through a Replicate-compatible predictions API.
type Generator struct {
	opts   GeneratorOptions
	client *http.Client
	logger nft.Logger

	// sleep waits between polls; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGenerator creates a Generator. Zero interval or attempt values fall back
// to 2s and 20.
func NewGenerator(opts GeneratorOptions, client *http.Client, logger nft.Logger) *Generator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 20
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = nft.NewNopLogger()
	}
	return &Generator{opts: opts, client: client, logger: logger, sleep: sleepContext}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// firstOutput returns the first output URL. The provider returns either a
// list of URLs or a single URL depending on the model.
func (p *prediction) firstOutput() (string, error) {
	var list []string
	if err := json.Unmarshal(p.Output, &list); err == nil {
		if len(list) == 0 || list[0] == "" {
			return "", fmt.Errorf("prediction %s succeeded with no output", p.ID)
		}
		return list[0], nil
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil && single != "" {
		return single, nil
	}
	return "", fmt.Errorf("prediction %s has unexpected output %s", p.ID, p.Output)
}

// Generate submits prompt, polls until the job finishes and downloads the
// first output to destBase + ".png".
func (g *Generator) Generate(ctx context.Context, prompt string, destBase string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", nft.ErrEmptyPrompt
	}
	if g.opts.APIToken == "" {
		return "", fmt.Errorf("%w: REPLICATE_API_TOKEN not set", nft.ErrMissingCredential)
	}

	job, err := g.submit(ctx, prompt)
	if err != nil {
		return "", err
	}
	g.logger.Info("generation submitted", "poll_url", job.PollURL)

	outputURL, err := g.poll(ctx, job)
	if err != nil {
		return "", err
	}

	dest := destBase + ".png"
	if err := g.download(ctx, outputURL, dest); err != nil {
		return "", err
	}
	g.logger.Info("generated image saved", "path", dest, "attempts", job.Attempts)
	return dest, nil
}

func (g *Generator) submit(ctx context.Context, prompt string) (*PendingGeneration, error) {
	body, err := json.Marshal(map[string]any{
		"version": g.opts.ModelVersion,
		"input":   map[string]string{"prompt": prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nft.ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var p prediction
	if err := g.doJSON(req, &p); err != nil {
		return nil, err
	}
	if p.URLs.Get == "" {
		return nil, fmt.Errorf("%w: response has no poll url", nft.ErrGenerationFailed)
	}
	return &PendingGeneration{PollURL: p.URLs.Get, Status: StatusStarting}, nil
}

func (g *Generator) poll(ctx context.Context, job *PendingGeneration) (string, error) {
	last := job.Status
	for job.Attempts < g.opts.MaxAttempts {
		if err := g.sleep(ctx, g.opts.PollInterval); err != nil {
			return "", err
		}
		job.Attempts++

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.PollURL, nil)
		if err != nil {
			return "", fmt.Errorf("%w: %v", nft.ErrGenerationFailed, err)
		}
		var p prediction
		if err := g.doJSON(req, &p); err != nil {
			return "", err
		}
		job.Status = p.Status
		last = p.Status
		g.logger.Debug("generation poll", "attempt", job.Attempts, "status", p.Status)

		switch p.Status {
		case StatusSucceeded:
			out, err := p.firstOutput()
			if err != nil {
				return "", fmt.Errorf("%w: %v", nft.ErrGenerationFailed, err)
			}
			return out, nil
		case StatusFailed, "canceled":
			job.Status = StatusFailed
			return "", fmt.Errorf("%w: job reported %s: %v", nft.ErrGenerationFailed, p.Status, p.Error)
		}
	}

	job.Status = StatusTimedOut
	return "", fmt.Errorf("%w: still %s after %d polls", nft.ErrGenerationTimeout, last, job.Attempts)
}

func (g *Generator) doJSON(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Token "+g.opts.APIToken)
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", nft.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", nft.ErrGenerationFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %s: %s", nft.ErrGenerationFailed, req.Method, req.URL, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", nft.ErrGenerationFailed, err)
	}
	return nil
}

func (g *Generator) download(ctx context.Context, outputURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", nft.ErrDownload, err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", nft.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s returned %s", nft.ErrDownload, outputURL, resp.Status)
	}
	if err := writeBody(dest, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", nft.ErrDownload, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ nft.ImageGenerator = (*Generator)(nil)
