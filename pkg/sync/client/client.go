package client

//go:generate mockery -name Client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/issue"
	"github.com/sidkik/mirrorball/pkg/sync"
)

// APIPrefix is the path under which every node serves its mirror endpoints.
const APIPrefix = "/api/mirror"

// Client talks to the mirror endpoints of a peer node. Every request is
// retried a fixed number of times before the failure is returned.
type Client interface {
	// States returns the peer's current snapshot.
	States(ctx context.Context) ([]sync.FileState, error)

	// Length returns the size of a file on the peer.
	Length(ctx context.Context, path string) (int64, error)

	// Pull returns exactly `count` bytes of a file on the peer, starting at
	// `start`.
	Pull(ctx context.Context, path string, start, count int64) ([]byte, error)

	// Truncate creates or overwrites a file on the peer.
	Truncate(ctx context.Context, path string, contents []byte) error

	// Append adds to the end of a file on the peer.
	Append(ctx context.Context, path string, contents []byte) error

	Delete(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error

	Issues(ctx context.Context) ([]issue.Info, error)
	Resolve(ctx context.Context, id int, choice string) error
	Refresh(ctx context.Context) error
	Delogo(ctx context.Context, path, option string) error
	Version(ctx context.Context) (string, error)
}

// RenameRequest is the body of a rename request.
type RenameRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

// DelogoRequest is the body of a de-logo request.
type DelogoRequest struct {
	Path   string `json:"path"`
	Option string `json:"option"`
}

// Options configures how the client retries requests.
type Options struct {
	// Attempts is the maximum number of times a request is sent.
	Attempts int

	// Delay is the time between attempts.
	Delay time.Duration

	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// DefaultOptions is the retry policy used when none is configured.
var DefaultOptions = Options{
	Attempts: 50,
	Delay:    500 * time.Millisecond,
	Timeout:  1 * time.Minute,
}

type client struct {
	baseURL    string
	httpClient *http.Client
	opts       Options
}

// New returns a Client for the node served at `baseURL`.
func New(baseURL string, opts Options) Client {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	return &client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + APIPrefix,
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
	}
}

func (c *client) States(ctx context.Context) ([]sync.FileState, error) {
	var states []sync.FileState
	if err := c.getJSON(ctx, "/states", &states); err != nil {
		return nil, err
	}
	return states, nil
}

func (c *client) Length(ctx context.Context, path string) (int64, error) {
	var length int64
	if err := c.getJSON(ctx, "/length/"+escapePath(path), &length); err != nil {
		return 0, err
	}
	return length, nil
}

func (c *client) Pull(ctx context.Context, path string, start, count int64) ([]byte, error) {
	route := fmt.Sprintf("/pull/%d/%d/%s", start, count, escapePath(path))
	return c.do(ctx, http.MethodGet, route, nil, func(body []byte) error {
		if int64(len(body)) != count {
			return errors.WithContext(errors.ErrShortRead,
				fmt.Sprintf("expected %d bytes but got %d", count, len(body)))
		}
		return nil
	})
}

func (c *client) Truncate(ctx context.Context, path string, contents []byte) error {
	_, err := c.do(ctx, http.MethodPut, "/truncate/"+escapePath(path), contents, nil)
	return err
}

func (c *client) Append(ctx context.Context, path string, contents []byte) error {
	_, err := c.do(ctx, http.MethodPut, "/append/"+escapePath(path), contents, nil)
	return err
}

func (c *client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, "/delete/"+escapePath(path), nil, nil)
	return err
}

func (c *client) Rename(ctx context.Context, oldPath, newPath string) error {
	return c.postJSON(ctx, "/rename", RenameRequest{OldName: oldPath, NewName: newPath})
}

func (c *client) Issues(ctx context.Context) ([]issue.Info, error) {
	var issues []issue.Info
	if err := c.getJSON(ctx, "/issues", &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (c *client) Resolve(ctx context.Context, id int, choice string) error {
	return c.postJSON(ctx, "/resolve", issue.Resolution{ID: id, Choice: choice})
}

func (c *client) Refresh(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/diff", nil, nil)
	return err
}

func (c *client) Delogo(ctx context.Context, path, option string) error {
	return c.postJSON(ctx, "/delogo", DelogoRequest{Path: path, Option: option})
}

func (c *client) Version(ctx context.Context) (string, error) {
	var version string
	if err := c.getJSON(ctx, "/version", &version); err != nil {
		return "", err
	}
	return version, nil
}

func (c *client) getJSON(ctx context.Context, route string, dst interface{}) error {
	_, err := c.do(ctx, http.MethodGet, route, nil, func(body []byte) error {
		return json.Unmarshal(body, dst)
	})
	return err
}

func (c *client) postJSON(ctx context.Context, route string, src interface{}) error {
	body, err := json.Marshal(src)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	_, err = c.do(ctx, http.MethodPost, route, body, nil)
	return err
}

// do sends the request until it succeeds, or until the attempts run out.
// `check` validates the response body. A failed check counts as a failed
// attempt.
func (c *client) do(ctx context.Context, method, route string, body []byte,
	check func([]byte) error) ([]byte, error) {

	reqURL := c.baseURL + route
	backoff := wait.Backoff{
		Duration: c.opts.Delay,
		Factor:   1,
		Steps:    c.opts.Attempts,
	}

	var respBody []byte
	var lastErr error
	var attempt int
	err := wait.ExponentialBackoff(backoff, func() (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		attempt++
		respBody, lastErr = c.doOnce(ctx, method, reqURL, body)
		if lastErr == nil && check != nil {
			lastErr = check(respBody)
		}

		if lastErr != nil {
			log.WithError(lastErr).WithFields(log.Fields{
				"method":  method,
				"url":     reqURL,
				"attempt": attempt,
			}).Debug("Peer request failed")
			return false, nil
		}
		return true, nil
	})

	if err == wait.ErrWaitTimeout {
		err = lastErr
	}
	if err != nil {
		return nil, errors.WithKind(
			errors.WithContext(err, fmt.Sprintf("%s %s", method, route)),
			errors.NetworkError)
	}
	return respBody, nil
}

func (c *client) doOnce(ctx context.Context, method, reqURL string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithContext(err, "create request")
	}
	req = req.WithContext(ctx)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithContext(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.HTTPError{
			Method:     method,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}
	return respBody, nil
}

// escapePath escapes each segment of a slash-separated path so that it can be
// used as the tail of a request path.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
