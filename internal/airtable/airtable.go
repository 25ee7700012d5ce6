package airtable

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL         = "https://api.airtable.com"
	apiVersionPath = "/v0"
	userAgent      = "spigell/applicant-screener"
	defaultTimeout = 30 * time.Second
)

// Client is a thin CRUD client for the Airtable REST API.
type Client struct {
	apiKey     string
	baseID     string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, apiKey, baseID string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey: apiKey,
		baseID: baseID,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// List returns every record of the table matching formula. An empty formula matches all records.
func (c *Client) List(ctx context.Context, table, formula string) ([]*Record, error) {
	q := url.Values{}
	if formula != "" {
		q.Set("filterByFormula", formula)
	}

	return c.listRecords(ctx, table, q)
}

func (c *Client) Create(ctx context.Context, table string, fields Fields) (*Record, error) {
	var record *Record
	if err := c.doJSON(ctx, http.MethodPost, c.tableURL(table), &recordPayload{Fields: fields}, &record); err != nil {
		return nil, err
	}

	return record, nil
}

func (c *Client) Update(ctx context.Context, table, id string, fields Fields) (*Record, error) {
	var record *Record
	if err := c.doJSON(ctx, http.MethodPatch, c.recordURL(table, id), &recordPayload{Fields: fields}, &record); err != nil {
		return nil, err
	}

	return record, nil
}

func (c *Client) Delete(ctx context.Context, table, id string) (*Record, error) {
	c.logger.Info("deleting record", zap.String("table", table), zap.String("record_id", id))

	var record *Record
	if err := c.doJSON(ctx, http.MethodDelete, c.recordURL(table, id), nil, &record); err != nil {
		return nil, err
	}

	return record, nil
}

// Upsert updates the first record matching formula or creates a new one when nothing matches.
func (c *Client) Upsert(ctx context.Context, table, formula string, fields Fields) (*Record, error) {
	records, err := c.List(ctx, table, formula)
	if err != nil {
		return nil, err
	}

	c.logger.Info("upserting record",
		zap.String("table", table),
		zap.String("formula", formula),
		zap.Int("found", len(records)),
	)

	if len(records) > 0 {
		c.logger.Info("updating existing record", zap.String("table", table), zap.String("record_id", records[0].ID))
		return c.Update(ctx, table, records[0].ID, fields)
	}

	c.logger.Info("creating new record", zap.String("table", table))
	return c.Create(ctx, table, fields)
}

func (c *Client) tableURL(table string) string {
	return c.APIURL + apiVersionPath + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
}

func (c *Client) recordURL(table, id string) string {
	return c.tableURL(table) + "/" + url.PathEscape(id)
}
