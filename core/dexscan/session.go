package dexscan

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrShape marks a page record that decoded but is missing the expected
// sub-object. Shape failures are "no data", never retried by the pool.
var ErrShape = errors.New("page record missing expected shape")

// TransientFetchError covers network errors, timeouts and missing page
// content during a visit. The pool retries these once, then quarantines.
type TransientFetchError struct {
	URL string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// Session is one browser-style page visit capability. Each pool worker owns
// exactly one session for its whole lifetime.
type Session interface {
	FetchPage(url string) (string, error)
	Close()
}

// SessionFactory builds the session a worker will own.
type SessionFactory func() (Session, error)

// AttemptCounter counts fetch attempts across every session of a pool run.
// The anti-bot warmup step is keyed off this global count, so the increment
// has to be synchronized.
type AttemptCounter struct {
	mu sync.Mutex
	n  int64
}

func (c *AttemptCounter) Inc() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *AttemptCounter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// HTTPSession visits pages over plain HTTP with a desktop user agent and a
// bounded per-request timeout. The first WarmupAttempts fetches across the
// whole pool take an extra settle pause before the request goes out, the same
// way the interactive flow waits out the anti-bot check on a fresh session.
type HTTPSession struct {
	client         *http.Client
	counter        *AttemptCounter
	warmupAttempts int64
	warmupWait     time.Duration
}

const sessionUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

func NewHTTPSession(counter *AttemptCounter, timeout time.Duration, warmupAttempts int, warmupWait time.Duration) *HTTPSession {
	return &HTTPSession{
		client:         &http.Client{Timeout: timeout},
		counter:        counter,
		warmupAttempts: int64(warmupAttempts),
		warmupWait:     warmupWait,
	}
}

func (s *HTTPSession) FetchPage(url string) (string, error) {
	if s.counter != nil && s.counter.Inc() <= s.warmupAttempts {
		time.Sleep(s.warmupWait)
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", &TransientFetchError{URL: url, Err: err}
	}
	req.Header.Add("User-Agent", sessionUserAgent)
	req.Header.Add("Accept", "application/json, text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &TransientFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", &TransientFetchError{URL: url, Err: fmt.Errorf("response failed, %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransientFetchError{URL: url, Err: err}
	}

	return string(body), nil
}

func (s *HTTPSession) Close() {
	s.client.CloseIdleConnections()
}
