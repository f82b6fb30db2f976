package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
)

const defaultBaseURL = "https://retail.googleapis.com/v2"

// ErrOperationTimeout marks a poll loop that ran out of attempts. It is kept
// distinct from remote failures so callers can alert differently.
var ErrOperationTimeout = errors.New("import operation timed out")

// ImportError reports an operation the destination completed with rejected
// items. The caller decides whether to retry the failed subset.
type ImportError struct {
	OperationName string
	FailureCount  int64
	Samples       []string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import operation %s failed for %d items: %v", e.OperationName, e.FailureCount, e.Samples)
}

// TokenSource provides bearer tokens for the retail API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PollPolicy controls how import operations are polled to completion. Sleep
// is injectable so tests run without real delays.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       func(ctx context.Context, d time.Duration) error
}

func DefaultPollPolicy(interval time.Duration, maxAttempts int) PollPolicy {
	return PollPolicy{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client writes items to a Vertex AI Retail catalog branch. A reported
// success means server-side indexing completed, not merely that the HTTP
// request was accepted.
type Client struct {
	BaseURL string

	branchPath string
	tokens     TokenSource
	policy     PollPolicy
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(projectID, location, catalogID, branchID string, tokens TokenSource, policy PollPolicy, logger *logger.Logger) *Client {
	if policy.Sleep == nil {
		policy.Sleep = sleepContext
	}
	return &Client{
		BaseURL: defaultBaseURL,
		branchPath: fmt.Sprintf("projects/%s/locations/%s/catalogs/%s/branches/%s",
			projectID, location, catalogID, branchID),
		tokens: tokens,
		policy: policy,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Import submits a single item and blocks until the operation resolves.
func (c *Client) Import(ctx context.Context, product *Product) (*ImportResult, error) {
	return c.ImportBatch(ctx, []*Product{product})
}

// ImportBatch submits one inline import request and polls its operation to
// completion.
func (c *Client) ImportBatch(ctx context.Context, products []*Product) (*ImportResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	request := importRequest{
		InputConfig: importInputConfig{
			ProductInlineSource: productInlineSource{Products: products},
		},
		ReconciliationMode: "INCREMENTAL",
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import request: %w", err)
	}

	u := fmt.Sprintf("%s/%s/products:import", c.BaseURL, c.branchPath)
	var op operation
	if err := c.do(ctx, "POST", u, token, payload, &op); err != nil {
		return nil, fmt.Errorf("failed to submit import: %w", err)
	}

	c.logger.Debug("Import operation %s accepted for %d items", op.Name, len(products))
	return c.pollOperation(ctx, token, op.Name)
}

// Delete removes one item from the branch. No existence check is made; the
// destination treats deleting an absent item as an error we surface as-is.
func (c *Client) Delete(ctx context.Context, productID string) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	u := fmt.Sprintf("%s/%s/products/%s", c.BaseURL, c.branchPath, url.PathEscape(productID))
	if err := c.do(ctx, "DELETE", u, token, nil, nil); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", productID, err)
	}
	return nil
}

// pollOperation polls at a fixed interval until the operation reports done or
// the attempt budget is spent. Running out of attempts yields
// ErrOperationTimeout, never a generic failure.
func (c *Client) pollOperation(ctx context.Context, token, name string) (*ImportResult, error) {
	u := fmt.Sprintf("%s/%s", c.BaseURL, name)

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.policy.Sleep(ctx, c.policy.Interval); err != nil {
				return nil, err
			}
		}

		var op operation
		if err := c.do(ctx, "GET", u, token, nil, &op); err != nil {
			return nil, fmt.Errorf("failed to poll operation %s: %w", name, err)
		}
		if !op.Done {
			continue
		}

		if op.Error != nil {
			return nil, &ImportError{
				OperationName: name,
				FailureCount:  op.Metadata.FailureCount,
				Samples:       []string{op.Error.Message},
			}
		}
		if op.Metadata.FailureCount > 0 || len(op.Response.ErrorSamples) > 0 {
			samples := make([]string, 0, len(op.Response.ErrorSamples))
			for _, s := range op.Response.ErrorSamples {
				samples = append(samples, s.Message)
			}
			return nil, &ImportError{
				OperationName: name,
				FailureCount:  op.Metadata.FailureCount,
				Samples:       samples,
			}
		}

		return &ImportResult{
			OperationName: name,
			SuccessCount:  op.Metadata.SuccessCount,
		}, nil
	}

	return nil, fmt.Errorf("operation %s did not complete after %d attempts: %w",
		name, c.policy.MaxAttempts, ErrOperationTimeout)
}

func (c *Client) do(ctx context.Context, method, u, token string, payload []byte, target interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed: %d - %s", resp.StatusCode, string(respBody))
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
