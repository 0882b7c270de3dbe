package http_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
)

const maxErrorBody = 4096

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error status=%d body=%s", e.Status, e.Body)
}

// InstrumentedClient is a named client with otelhttp transport, default
// headers and an optional retry policy.
type InstrumentedClient struct {
	Name    string
	BaseURL string
	Headers map[string]string
	Retry   *RetryConfig

	http      *http.Client
	transport *http.Transport
}

// WithoutRetry returns a copy sharing the transport that sends every request once.
func (ic *InstrumentedClient) WithoutRetry() *InstrumentedClient {
	cp := *ic
	cp.Retry = nil
	return &cp
}

func (ic *InstrumentedClient) Get(ctx context.Context, path string, query, headers map[string]string, out any) (*http.Response, error) {
	return ic.Do(ctx, http.MethodGet, path, query, headers, nil, out)
}

func (ic *InstrumentedClient) Post(ctx context.Context, path string, body any, headers map[string]string, out any) (*http.Response, error) {
	return ic.Do(ctx, http.MethodPost, path, nil, headers, body, out)
}

// Do sends a request. body may be nil, []byte, string, io.Reader or any
// JSON-marshalable value. When out is non-nil a JSON response is decoded into it.
func (ic *InstrumentedClient) Do(ctx context.Context, method, path string, query, headers map[string]string, body, out any) (*http.Response, error) {
	if method == "" {
		method = http.MethodGet
	}
	target, err := ic.resolve(path, query)
	if err != nil {
		return nil, err
	}
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	build := func() (*http.Request, error) {
		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rdr)
		if err != nil {
			return nil, err
		}
		ic.stampHeaders(req, headers, contentType)
		return req, nil
	}

	start := time.Now()
	resp, err := ic.send(ctx, build)
	log := []zap.Field{
		zap.String("client", ic.Name),
		zap.String("method", method),
		zap.String("url", target),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		logging.Error(ctx, "outbound request failed", append(log, zap.Error(err))...)
		return resp, err
	}
	logging.Debug(ctx, "outbound request", append(log, zap.Int("status", resp.StatusCode))...)
	return resp, readResponse(resp, out)
}

func (ic *InstrumentedClient) resolve(path string, query map[string]string) (string, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		raw = strings.TrimRight(ic.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("bad url %q: %w", raw, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (ic *InstrumentedClient) stampHeaders(req *http.Request, headers map[string]string, contentType string) {
	for _, set := range []map[string]string{ic.Headers, headers} {
		for k, v := range set {
			req.Header.Set(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, */*")
	}
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("read body: %w", err)
		}
		return data, "", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("marshal body: %w", err)
	}
	return data, "application/json", nil
}

// readResponse drains and closes the body, mapping status >= 400 to *StatusError.
func readResponse(resp *http.Response, out any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(slurp))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request, repeating it on transport errors and 5xx
// answers while the retry policy allows.
func (ic *InstrumentedClient) send(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	attempts := ic.Retry.attempts()
	var lastErr error
	for attempt := 1; ; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := ic.http.Do(req)
		if attempts == 1 || (err == nil && resp.StatusCode < 500) {
			return resp, err
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server error %d", resp.StatusCode)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		if attempt >= attempts {
			return nil, lastErr
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ic.Retry.delay(attempt)):
		}
	}
}

func (r *RetryConfig) attempts() int {
	if r == nil || !r.Enabled || r.MaxAttempts < 1 {
		return 1
	}
	return r.MaxAttempts
}

// delay is the wait after the given failed attempt (1-based).
func (r *RetryConfig) delay(attempt int) time.Duration {
	d := time.Duration(float64(r.InitialBackoff) * math.Pow(r.BackoffMultiplier, float64(attempt-1)))
	if r.MaxBackoff > 0 && d > r.MaxBackoff {
		return r.MaxBackoff
	}
	return d
}
