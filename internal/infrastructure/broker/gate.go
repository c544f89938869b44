package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	GateBaseURL = "https://api.gateio.ws"

	gateAPIPrefix        = "/api/v4"
	gateCommissionPath   = gateAPIPrefix + "/rebate/broker/commission_history"
	gateTotalBalancePath = gateAPIPrefix + "/wallet/total_balance"
)

type GateConfig struct {
	APIKey    string
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// GateClient talks to the Gate.io APIv4 broker rebate endpoints.
type GateClient struct {
	baseURL string
	signer  *GateSigner
	client  *http.Client
}

type GateCommissionRecord struct {
	UserID     looseString `json:"userId"`
	Commission looseString `json:"commission"`
	Currency   string      `json:"currency"`
	Timestamp  int64       `json:"timestamp"`
}

type gateErrorBody struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

// looseString accepts both JSON strings and numbers, Gate is not consistent
// about quoting ids and amounts.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	*s = looseString(b)
	return nil
}

func NewGateClient(cfg GateConfig) *GateClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = GateBaseURL
	}
	return &GateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  NewGateSigner(cfg.APIKey, cfg.SecretKey),
		client:  newHTTPClient(cfg.Timeout),
	}
}

func (c *GateClient) Exchange() domain.Exchange {
	return domain.ExchangeGate
}

func (c *GateClient) FetchCommissionHistory(ctx context.Context, window domain.FetchWindow) ([]domain.CommissionRecord, error) {
	var rows []GateCommissionRecord
	if err := c.get(ctx, gateCommissionPath, windowParams(window), &rows); err != nil {
		return nil, err
	}

	records := make([]domain.CommissionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, normalizeGateRecord(row))
	}
	return records, nil
}

func (c *GateClient) TestConnection(ctx context.Context) bool {
	var balance json.RawMessage
	return c.get(ctx, gateTotalBalancePath, nil, &balance) == nil
}

func windowParams(window domain.FetchWindow) url.Values {
	limit := window.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if window.From != nil {
		params.Set("from", strconv.FormatInt(window.From.Unix(), 10))
	}
	if window.To != nil {
		params.Set("to", strconv.FormatInt(window.To.Unix(), 10))
	}
	return params
}

func (c *GateClient) get(ctx context.Context, path string, params url.Values, out any) error {
	query := params.Encode()
	fullURL := c.baseURL + path
	if query != "" {
		fullURL += "?" + query
	}

	headers := c.signer.Headers(http.MethodGet, path, query, "")
	resp, err := doGet(ctx, c.client, fullURL, headers)
	if err != nil {
		return networkError(domain.ExchangeGate, err)
	}

	if !isSuccessStatus(resp.status) {
		var errBody gateErrorBody
		if err := json.Unmarshal(resp.body, &errBody); err != nil || errBody.Label == "" {
			return rejectedError(domain.ExchangeGate, fmt.Sprintf("http_%d", resp.status), strings.TrimSpace(string(resp.body)))
		}
		return rejectedError(domain.ExchangeGate, errBody.Label, errBody.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return networkError(domain.ExchangeGate, fmt.Errorf("failed to parse Gate response: %w", err))
	}
	return nil
}

func normalizeGateRecord(row GateCommissionRecord) domain.CommissionRecord {
	record := domain.CommissionRecord{
		AccountID:   string(row.UserID),
		ExternalRef: row.Currency,
		RawAmount:   string(row.Commission),
	}

	amount, err := decimal.NewFromString(string(row.Commission))
	if err != nil {
		record.Malformed = true
	} else {
		record.Amount = amount
	}

	if row.Timestamp <= 0 {
		record.Malformed = true
	} else {
		record.OccurredAt = time.Unix(row.Timestamp, 0).UTC()
	}

	return record
}
