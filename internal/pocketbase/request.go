package pocketbase

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
)

// ErrNotFound is matched by API errors with a 404 status.
var ErrNotFound = errors.New("record not found")

// APIError is a non-successful PocketBase response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bad status: %d", e.StatusCode)
	}
	return fmt.Sprintf("bad status: %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type ListResponse struct {
	Items      []Item
	Page       int
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

type Item interface{}

// GetItems makes GET request to a PocketBase list endpoint and returns items from all pages.
func (c *Client) GetItems(url string, q url.Values) ([]Item, error) {
	var items []Item

	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	if q == nil {
		q = make(map[string][]string)
	}
	if q.Get("page") == "" {
		q.Set("page", "1")
	}
	req.URL.RawQuery = q.Encode()

	response, err := c.getList(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got response from PocketBase",
		zap.Int("pages", response.TotalPages),
		zap.Int("total items", response.TotalItems),
		zap.Int("max items per page", response.PerPage),
	)

	items = append(items, response.Items...)

	// PocketBase pages start at 1.
	for response.Page < response.TotalPages && len(response.Items) > 0 {
		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", response.Page, response.TotalPages),
		))

		response, err = c.getList(addPage(req, response.Page+1))
		if err != nil {
			return nil, err
		}

		items = append(items, response.Items...)
	}

	return items, nil
}

func (c *Client) getList(req *http.Request) (*ListResponse, error) {
	var response *ListResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}
	if response == nil {
		return &ListResponse{}, nil
	}
	return response, nil
}

func (c *Client) sendJSON(method, url string, payload, target any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(c.ctx, method, url, body)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return parseAPIError(resp.StatusCode, data)
	}

	if target == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	return json.Unmarshal(data, target)
}

func parseAPIError(status int, data []byte) error {
	var body struct {
		Message string `json:"message"`
	}
	// PocketBase answers with {"code":..,"message":..,"data":{}}; anything else keeps only the status.
	_ = json.Unmarshal(data, &body)

	return &APIError{StatusCode: status, Message: body.Message}
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

// addPage adds page parameter to request URL.
func addPage(req *http.Request, page int) *http.Request {
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	return req
}
