// Package webhook delivers parse reports to HTTP endpoints.
//
// A report is posted as its JSON rendering. Long transcripts can be split
// into batches of messages, one request each; every batch repeats the run
// summary so a receiver can process it alone. Requests that fail with a
// transport error or a 5xx status can be retried with exponential backoff.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ccollicutt/chatlog/pkg/output"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRetryWait is the pause before the first retry.
	DefaultRetryWait = 500 * time.Millisecond

	// BatchHeader carries "i/n" when a report is split over n requests.
	BatchHeader = "X-Chatlog-Batch"
)

// Client sends parse reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Per-request timeout (uses DefaultTimeout if zero)

	// SummaryOnly sends the summary without the messages.
	SummaryOnly bool

	// BatchSize caps the messages per request. Zero sends one request.
	BatchSize int

	// Retries is how many times a failed request is repeated.
	Retries int

	// RetryWait is the pause before the first retry; it doubles each time.
	// Uses DefaultRetryWait if zero.
	RetryWait time.Duration
}

// Response contains the result of a delivery. For batched deliveries the
// status and body are those of the last request made.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error

	// Batches is the number of requests that were accepted.
	Batches int

	// Attempts is the number of requests made, retries included.
	Attempts int
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts a parse report to a webhook endpoint. Delivery stops at the
// first batch that still fails after its retries.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	batches := Split(report, opts.BatchSize)
	if opts.SummaryOnly {
		batches = []*output.Report{report}
	}

	formatter := output.NewJSONFormatter(output.FormatOptions{Quiet: opts.SummaryOnly})
	for i, batch := range batches {
		var payload bytes.Buffer
		if err := formatter.Format(ctx, batch, &payload); err != nil {
			resp.Error = fmt.Errorf("failed to marshal report: %w", err)
			break
		}

		label := ""
		if len(batches) > 1 {
			label = fmt.Sprintf("%d/%d", i+1, len(batches))
		}
		if !c.deliver(ctx, payload.Bytes(), label, opts, resp) {
			if label != "" {
				resp.Error = fmt.Errorf("batch %s: %w", label, resp.Error)
			}
			break
		}
		resp.Batches++
	}

	resp.Duration = time.Since(start)
	return resp
}

// Split divides a report into reports of at most size messages each. The
// summary and metadata are shared by every part. A size of zero or less, or
// a report that already fits, yields the report itself.
func Split(report *output.Report, size int) []*output.Report {
	if size <= 0 || len(report.Messages) <= size {
		return []*output.Report{report}
	}

	parts := make([]*output.Report, 0, (len(report.Messages)+size-1)/size)
	for start := 0; start < len(report.Messages); start += size {
		end := start + size
		if end > len(report.Messages) {
			end = len(report.Messages)
		}
		part := *report
		part.Messages = report.Messages[start:end]
		parts = append(parts, &part)
	}
	return parts
}

// deliver posts payload, retrying transport errors and 5xx responses.
func (c *Client) deliver(ctx context.Context, payload []byte, batch string, opts SendOptions, resp *Response) bool {
	wait := opts.RetryWait
	if wait <= 0 {
		wait = DefaultRetryWait
	}

	for attempt := 0; ; attempt++ {
		resp.Attempts++
		retryable := c.post(ctx, payload, batch, opts, resp)
		if resp.Error == nil {
			return true
		}
		if !retryable || attempt >= opts.Retries {
			return false
		}

		select {
		case <-ctx.Done():
			resp.Error = ctx.Err()
			return false
		case <-time.After(wait):
		}
		wait *= 2
	}
}

// post makes one request and records its outcome in resp. It reports
// whether a failure is worth retrying.
func (c *Client) post(ctx context.Context, payload []byte, batch string, opts SendOptions, resp *Response) bool {
	resp.StatusCode, resp.Body, resp.Error = 0, "", nil

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		return false
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chatlog-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	if batch != "" {
		req.Header.Set(BatchHeader, batch)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		return true
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1024*1024)) // Limit to 1MB
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		return true
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
		return resp.StatusCode >= 500
	}
	return false
}
