// Package ncbi implements a minimal client for the NCBI BLAST URL API:
// submit a query (CMD=Put), poll the returned request id until the search
// is done, then fetch the result document as XML.
package ncbi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	blastPath       = "/Blast.cgi"
	userAgent       = "nucloflo-blast-bridge/1.0"
	submitAttempts  = 3
	statusReady     = "READY"
	statusWaiting   = "WAITING"
	statusFailed    = "FAILED"
	statusUnknown   = "UNKNOWN"
	defaultInterval = 10 * time.Second
	maxInitialDelay = 60 * time.Second
)

// Client talks to one BLAST service endpoint. The zero value is not usable;
// construct with NewClient.
type Client struct {
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration

	logger log.Logger
}

// NewClient returns a Client for the service at baseURL (e.g.
// https://blast.ncbi.nlm.nih.gov). pollInterval bounds how often the search
// status is checked while waiting for results.
func NewClient(baseURL string, pollInterval time.Duration, logger log.Logger) *Client {
	if pollInterval <= 0 {
		pollInterval = defaultInterval
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		HTTPClient:   &http.Client{Timeout: 2 * time.Minute},
		PollInterval: pollInterval,
		logger:       logger,
	}
}

// Search submits query to the remote service and blocks until the result
// document is available or ctx is done. program selects the BLAST variant
// (blastn, blastp, ...); database is the reference database identifier.
func (c *Client) Search(ctx context.Context, program, database, query string) ([]byte, error) {
	rid, rtoe, err := c.submit(ctx, program, database, query)
	if err != nil {
		return nil, err
	}
	level.Info(c.logger).Log("method", "Search", "rid", rid, "rtoe_seconds", rtoe)

	// the service reports an estimated time to completion; no point polling
	// before it has elapsed
	initial := time.Duration(rtoe) * time.Second
	if initial <= 0 || initial > maxInitialDelay {
		initial = c.PollInterval
	}
	if err := sleep(ctx, initial); err != nil {
		return nil, err
	}

	for {
		status, err := c.status(ctx, rid)
		if err != nil {
			return nil, err
		}
		switch status {
		case statusReady:
			return c.fetch(ctx, rid)
		case statusWaiting:
		case statusFailed:
			return nil, fmt.Errorf("blast search %s failed on the server", rid)
		case statusUnknown:
			return nil, fmt.Errorf("blast search %s expired or was never submitted", rid)
		default:
			return nil, fmt.Errorf("blast search %s returned unexpected status %q", rid, status)
		}
		if err := sleep(ctx, c.PollInterval); err != nil {
			return nil, err
		}
	}
}

// submit issues CMD=Put and extracts the request id and the estimated time
// to completion from the QBlastInfo comment block in the response page.
func (c *Client) submit(ctx context.Context, program, database, query string) (string, int, error) {
	form := url.Values{
		"CMD":      {"Put"},
		"PROGRAM":  {program},
		"DATABASE": {database},
		"QUERY":    {query},
	}
	body, err := c.postForm(ctx, form)
	if err != nil {
		return "", 0, err
	}
	info := extractQBlastInfo(string(body))
	rid, ok := info["RID"]
	if !ok || rid == "" {
		return "", 0, fmt.Errorf("blast submit response contained no RID")
	}
	rtoe, _ := strconv.Atoi(info["RTOE"])
	return rid, rtoe, nil
}

// status issues CMD=Get with FORMAT_OBJECT=SearchInfo and returns the
// Status token from the response.
func (c *Client) status(ctx context.Context, rid string) (string, error) {
	form := url.Values{
		"CMD":           {"Get"},
		"FORMAT_OBJECT": {"SearchInfo"},
		"RID":           {rid},
	}
	body, err := c.postForm(ctx, form)
	if err != nil {
		return "", err
	}
	status := extractField(string(body), "Status=")
	if status == "" {
		return "", fmt.Errorf("blast status response for %s contained no Status", rid)
	}
	return status, nil
}

// fetch retrieves the finished result document as XML.
func (c *Client) fetch(ctx context.Context, rid string) ([]byte, error) {
	form := url.Values{
		"CMD":         {"Get"},
		"FORMAT_TYPE": {"XML"},
		"RID":         {rid},
	}
	return c.postForm(ctx, form)
}

// postForm POSTs form to the Blast endpoint with a small retry loop:
// network errors, 429s and 5xx responses are retried with backoff, anything
// else is returned as-is.
func (c *Client) postForm(ctx context.Context, form url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= submitAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+blastPath,
			strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else {
			data, readErr := readAndClose(resp.Body)
			if resp.StatusCode == http.StatusOK {
				if readErr != nil {
					return nil, readErr
				}
				return data, nil
			}
			lastErr = fmt.Errorf("blast endpoint returned status %d: %s", resp.StatusCode, trim(data))
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return nil, lastErr
			}
			level.Warn(c.logger).Log("method", "postForm", "status", resp.StatusCode, "attempt", attempt)
		}
		if err := sleep(ctx, time.Duration(attempt)*300*time.Millisecond); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func readAndClose(body io.ReadCloser) ([]byte, error) {
	defer body.Close()
	return io.ReadAll(body)
}

// extractQBlastInfo scans the comment block
//
//	<!--QBlastInfoBegin
//	    RID = ABC123
//	    RTOE = 25
//	QBlastInfoEnd
//
// and returns its key/value pairs.
func extractQBlastInfo(page string) map[string]string {
	info := make(map[string]string)
	start := strings.Index(page, "QBlastInfoBegin")
	if start == -1 {
		return info
	}
	end := strings.Index(page[start:], "QBlastInfoEnd")
	if end == -1 {
		return info
	}
	for _, line := range strings.Split(page[start:start+end], "\n") {
		k, v, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		info[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return info
}

// extractField returns the token following prefix up to the next whitespace.
func extractField(page, prefix string) string {
	i := strings.Index(page, prefix)
	if i == -1 {
		return ""
	}
	rest := page[i+len(prefix):]
	if j := strings.IndexAny(rest, " \t\r\n"); j != -1 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func trim(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max]
	}
	return s
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
