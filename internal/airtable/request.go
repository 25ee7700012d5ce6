package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const contentType = "application/json"

// RemoteRequestError is returned for every non-success response of the Airtable API.
type RemoteRequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *RemoteRequestError) Error() string {
	return fmt.Sprintf("%s %s: bad status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

type listResponse struct {
	Records []*Record `json:"records"`
	Offset  string    `json:"offset,omitempty"`
}

type recordPayload struct {
	Fields Fields `json:"fields"`
}

// listRecords makes GET requests to the table and collects records from all pages.
func (c *Client) listRecords(ctx context.Context, table string, q url.Values) ([]*Record, error) {
	var records []*Record

	for page := 1; ; page++ {
		var response *listResponse
		if err := c.doJSON(ctx, http.MethodGet, c.tableURL(table)+"?"+q.Encode(), nil, &response); err != nil {
			return nil, err
		}

		if response == nil {
			break
		}

		records = append(records, response.Records...)

		if response.Offset == "" {
			break
		}

		c.logger.Debug("additional request needed",
			zap.String("table", table),
			zap.Int("page", page),
			zap.String("offset", response.Offset),
		)
		q.Set("offset", response.Offset)
	}

	return records, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload any, target any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(data)

		c.logger.Debug("request payload", zap.String("url", endpoint), zap.ByteString("payload", data))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	c.logger.Debug("got response from airtable", zap.String("url", endpoint), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		reqErr := &RemoteRequestError{
			Method:     method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
		c.logger.Error("airtable request failed",
			zap.String("method", method),
			zap.String("url", reqErr.URL),
			zap.Int("status", resp.StatusCode),
			zap.String("body", reqErr.Body),
		)
		return reqErr
	}

	if target == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode airtable response: %w", err)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Content-Type", contentType)

	return req
}
