package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const maxErrorBody = 512

// Request is submitted to the remote service once every input has been uploaded.
type Request struct {
	Cmd         string   `json:"cmd"`
	InputFiles  []string `json:"input_files"`
	OutputFiles []string `json:"output_files"`
}

// Response is the answer of the remote service. OutputFiles maps an output file name to its
// base64 encoded content.
type Response struct {
	Message     string            `json:"message"`
	OutputFiles map[string]string `json:"output_files"`
}

type uploadURLRequest struct {
	Filename string `json:"filename"`
}

type uploadURLResponse struct {
	URL string `json:"url"`
}

// Client talks to the remote compute service.
type Client struct {
	baseURL string
	http    *http.Client
	exec    *Executor
}

// ClientOption configures a Client created by NewClient.
type ClientOption func(c *Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a client for the service at baseURL. Every call is retried by exec.
func NewClient(baseURL string, exec *Executor, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, ErrBaseURLMustBeSet
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: time.Minute},
		exec:    exec,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// UploadURL requests a signed location to upload filename to.
func (c *Client) UploadURL(ctx context.Context, filename string) (string, error) {
	return Do(ctx, c.exec, "upload url "+filename, func(ctx context.Context) (string, error) {
		var res uploadURLResponse
		err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/upload-url", uploadURLRequest{Filename: filename}, &res)
		if err != nil {
			return "", err
		}
		if res.URL == "" {
			return "", Permanent(errors.Errorf("no upload url returned for %s", filename))
		}

		return res.URL, nil
	})
}

// Upload sends the content of path to a signed location.
func (c *Client) Upload(ctx context.Context, url, path string) error {
	_, err := Do(ctx, c.exec, "upload "+filepath.Base(path), func(ctx context.Context) (struct{}, error) {
		content, err := os.ReadFile(path)
		if err != nil {
			return struct{}{}, Permanent(errors.Wrapf(err, "unable to read %s", path))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(content))
		if err != nil {
			return struct{}{}, Permanent(errors.Wrap(err, "unable to build upload request"))
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		return struct{}{}, c.send(req, nil)
	})

	return err
}

// Run submits a command and returns the remote response.
func (c *Client) Run(ctx context.Context, request Request) (*Response, error) {
	return Do(ctx, c.exec, "run "+request.Cmd, func(ctx context.Context) (*Response, error) {
		res := &Response{}
		err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/run", request, res)
		if err != nil {
			return nil, err
		}

		return res, nil
	})
}

// Execute uploads every input then runs cmd. Inputs are referenced remotely by base name.
func (c *Client) Execute(ctx context.Context, cmd string, inputs, outputs []string) (*Response, error) {
	names := make([]string, len(inputs))
	for i, input := range inputs {
		names[i] = filepath.Base(input)

		url, err := c.UploadURL(ctx, names[i])
		if err != nil {
			return nil, err
		}

		err = c.Upload(ctx, url, input)
		if err != nil {
			return nil, err
		}
	}

	return c.Run(ctx, Request{Cmd: cmd, InputFiles: names, OutputFiles: outputs})
}

func (c *Client) doJSON(ctx context.Context, method, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return Permanent(errors.Wrap(err, "unable to encode request"))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return Permanent(errors.Wrap(err, "unable to build request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.send(req, out)
}

// send performs req and decodes a JSON body into out when out is not nil. Client errors other
// than timeouts and throttling are permanent.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		if retryable(resp.StatusCode) {
			return statusErr
		}

		return Permanent(statusErr)
	}

	if out == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return Permanent(errors.Wrap(err, "unable to decode response"))
	}

	return nil
}

func retryable(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

// WriteOutputs decodes every output file into dir and returns the written paths sorted by
// name.
func (r *Response) WriteOutputs(dir string) ([]string, error) {
	names := make([]string, 0, len(r.OutputFiles))
	for name := range r.OutputFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return nil, errors.Wrapf(ErrMalformedOutput, "invalid name %q", name)
		}

		content, err := base64.StdEncoding.DecodeString(r.OutputFiles[name])
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedOutput, "%s: %v", name, err)
		}

		path, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to resolve %s", name)
		}

		err = os.WriteFile(path, content, 0o644) //nolint:gosec // outputs are shared with external tools
		if err != nil {
			return nil, errors.Wrapf(err, "unable to write %s", path)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
