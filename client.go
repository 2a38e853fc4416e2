// Package bintray provides access to the Bintray REST API.
//
// Bintray is a service which provides software package repositories. It
// supports several kinds of repositories such as Debian, RPM or generic
// file storage. Handles are obtained by walking down the resource
// hierarchy from a Client:
//
//	client.Subject("my-company").
//		Repository("rpm-testing").
//		Package("myapp").
//		Version("1.0")
//
// Most operations can be performed anonymously; mutating operations
// require credentials (see WithCredentials).
package bintray

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultAPIBaseURL is the base URL of the Bintray REST API.
	DefaultAPIBaseURL = "https://api.bintray.com/"

	// DefaultDownloadBaseURL is the base URL published content is
	// served from.
	DefaultDownloadBaseURL = "https://dl.bintray.com/"
)

// Client is a Bintray API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	apiBase    *url.URL
	dlBase     *url.URL
	username   string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client) error

// WithCredentials sets the username and API key used for HTTP basic
// authentication.
func WithCredentials(username, apiKey string) Option {
	return func(c *Client) error {
		c.username = username
		c.apiKey = apiKey
		return nil
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid API base URL: %w", err)
		}
		c.apiBase = u
		return nil
	}
}

// WithDownloadBaseURL overrides the download base URL.
func WithDownloadBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid download base URL: %w", err)
		}
		c.dlBase = u
		return nil
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// NewClient creates a Bintray client. Without options, the client is
// anonymous and points at the public Bintray endpoints.
func NewClient(opts ...Option) (*Client, error) {
	apiBase, _ := url.Parse(DefaultAPIBaseURL)
	dlBase, _ := url.Parse(DefaultDownloadBaseURL)

	c := &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		apiBase:    apiBase,
		dlBase:     dlBase,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Subject returns a handle on a user or organization namespace.
func (c *Client) Subject(name string) *Subject {
	return &Subject{client: c, name: name}
}

// apiURL joins path segments onto the API base URL.
func (c *Client) apiURL(segments ...string) *url.URL {
	return c.apiBase.JoinPath(segments...)
}

// dlURL joins path segments onto the download base URL.
func (c *Client) dlURL(segments ...string) *url.URL {
	return c.dlBase.JoinPath(segments...)
}

// newRequest builds a request with basic auth when credentials are set.
func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.apiKey)
	}
	return req, nil
}

// send executes a request, wrapping transport failures.
func (c *Client) send(op, resource string, req *http.Request) (*http.Response, error) {
	logrus.Debugf("%s(%s): %s %s", op, resource, req.Method, req.URL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{
			Type:     ErrTransport,
			Op:       op,
			Resource: resource,
			Err:      err,
		}
	}
	return resp, nil
}

// sendJSON marshals payload and executes the request with a JSON body.
func (c *Client) sendJSON(ctx context.Context, op, resource, method string, u *url.URL, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Type: ErrAPI, Op: op, Resource: resource, Err: err}
		}
		logrus.Debugf("%s(%s): submitting: %s", op, resource, data)
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, u, body)
	if err != nil {
		return nil, &Error{Type: ErrTransport, Op: op, Resource: resource, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(op, resource, req)
}

// apiError drains the response body and builds an *Error for a
// non-success status. The Bintray API reports errors as a JSON object
// with a single "message" field.
func apiError(op, resource string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	e := &Error{
		Op:         op,
		Resource:   resource,
		StatusCode: resp.StatusCode,
		Message:    apiMessage(body),
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		e.Type = ErrNotFound
		if e.Message == "" {
			e.Message = "not found"
		}
	case http.StatusUnauthorized:
		e.Type = ErrUnauthorized
		if e.Message == "" {
			e.Message = "missing or refused authentication"
		}
	case http.StatusForbidden:
		e.Type = ErrForbidden
		if e.Message == "" {
			e.Message = "requires admin privileges"
		}
	default:
		e.Type = ErrAPI
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
	}

	logrus.Debugf("%s(%s): HTTP %d: %s", op, resource, resp.StatusCode, e.Message)
	return e
}

// apiMessage extracts the "message" field from an API error body.
func apiMessage(body []byte) string {
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return strings.TrimSpace(string(body))
	}
	return msg.Message
}

// decodeJSON reads and unmarshals a JSON response body.
func decodeJSON(op, resource string, resp *http.Response, out interface{}) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Type: ErrAPI, Op: op, Resource: resource, Err: err}
	}
	return nil
}

// drain discards the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
