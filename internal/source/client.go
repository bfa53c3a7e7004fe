package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"github.com/ALT-F4-LLC/ferry/internal/retry"
)

const userAgent = "ferry (+https://github.com/ALT-F4-LLC/ferry)"

// StatusError is a non-2xx response from the source.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Client fetches source pages. Every request goes through the retry
// controller; server errors and throttling are retried, other statuses are not.
type Client struct {
	http   *http.Client
	retry  *retry.Controller
	logger *logrus.Logger
}

// NewClient creates a Client. A nil httpClient uses a client with a one
// minute timeout.
func NewClient(httpClient *http.Client, ctrl *retry.Controller, logger *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Minute}
	}
	return &Client{http: httpClient, retry: ctrl, logger: logger}
}

// Fetch downloads an HTML page and parses it. The body is decoded using the
// charset announced by the response, falling back to sniffing.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := c.retry.Do(ctx, "GET "+pageURL, func(ctx context.Context) error {
		resp, err := c.get(ctx, pageURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
		if err != nil {
			return fmt.Errorf("decoding %s: %w", pageURL, err)
		}
		doc, err = goquery.NewDocumentFromReader(r)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", pageURL, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Download fetches raw bytes and the response content type.
func (c *Client) Download(ctx context.Context, fileURL string) ([]byte, string, error) {
	var (
		body        []byte
		contentType string
	)
	err := c.retry.Do(ctx, "GET "+fileURL, func(ctx context.Context) error {
		resp, err := c.get(ctx, fileURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", fileURL, err)
		}
		contentType = resp.Header.Get("Content-Type")
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

// get issues one request and classifies a failed status. The caller owns
// the body of a successful response.
func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.WithField("url", target).Debug("fetching")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	resp.Body.Close()

	statusErr := &StatusError{URL: target, Code: resp.StatusCode}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout {
		return nil, retry.Transient(statusErr)
	}
	return nil, statusErr
}
