package broker

import (
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
	OKXBaseURL = "https://www.okx.com"

	okxRebateDailyPath = "/api/v5/broker/nd/rebate-daily"
	okxBrokerInfoPath  = "/api/v5/broker/nd/info"
	okxSuccessCode     = "0"
)

type OKXConfig struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	BaseURL    string
	Timeout    time.Duration
}

// OKXClient talks to the OKX ND-broker API.
type OKXClient struct {
	baseURL string
	signer  *OKXSigner
	client  *http.Client
}

type okxEnvelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type OKXCommissionRecord struct {
	SubAcct    string `json:"subAcct"`
	InstFamily string `json:"instFamily"`
	Commission string `json:"commission"`
	Ts         string `json:"ts"`
}

func NewOKXClient(cfg OKXConfig) *OKXClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = OKXBaseURL
	}
	return &OKXClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  NewOKXSigner(cfg.APIKey, cfg.SecretKey, cfg.Passphrase),
		client:  newHTTPClient(cfg.Timeout),
	}
}

func (c *OKXClient) Exchange() domain.Exchange {
	return domain.ExchangeOKX
}

func (c *OKXClient) FetchCommissionHistory(ctx context.Context, window domain.FetchWindow) ([]domain.CommissionRecord, error) {
	params := url.Values{}
	if window.From != nil {
		params.Set("begin", strconv.FormatInt(window.From.UnixMilli(), 10))
	}
	if window.To != nil {
		params.Set("end", strconv.FormatInt(window.To.UnixMilli(), 10))
	}
	limit := window.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	params.Set("limit", strconv.Itoa(limit))

	var rows []OKXCommissionRecord
	if err := c.get(ctx, okxRebateDailyPath, params, &rows); err != nil {
		return nil, err
	}

	records := make([]domain.CommissionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, normalizeOKXRecord(row))
	}
	return records, nil
}

// GetBrokerInfo returns the raw broker info payload.
func (c *OKXClient) GetBrokerInfo(ctx context.Context) (json.RawMessage, error) {
	var data json.RawMessage
	if err := c.get(ctx, okxBrokerInfoPath, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *OKXClient) TestConnection(ctx context.Context) bool {
	_, err := c.GetBrokerInfo(ctx)
	return err == nil
}

func (c *OKXClient) get(ctx context.Context, path string, params url.Values, out any) error {
	requestPath := path
	if query := params.Encode(); query != "" {
		requestPath = path + "?" + query
	}

	headers := c.signer.Headers(http.MethodGet, requestPath, "")
	resp, err := doGet(ctx, c.client, c.baseURL+requestPath, headers)
	if err != nil {
		return networkError(domain.ExchangeOKX, err)
	}

	var envelope okxEnvelope
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		if !isSuccessStatus(resp.status) {
			return rejectedError(domain.ExchangeOKX, fmt.Sprintf("http_%d", resp.status), strings.TrimSpace(string(resp.body)))
		}
		return networkError(domain.ExchangeOKX, fmt.Errorf("failed to parse OKX response: %w", err))
	}

	if envelope.Code != okxSuccessCode {
		code := envelope.Code
		if code == "" {
			code = fmt.Sprintf("http_%d", resp.status)
		}
		return rejectedError(domain.ExchangeOKX, code, envelope.Msg)
	}

	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return networkError(domain.ExchangeOKX, fmt.Errorf("failed to parse OKX data: %w", err))
	}
	return nil
}

func normalizeOKXRecord(row OKXCommissionRecord) domain.CommissionRecord {
	record := domain.CommissionRecord{
		AccountID:   row.SubAcct,
		ExternalRef: row.InstFamily,
		RawAmount:   row.Commission,
	}

	amount, err := decimal.NewFromString(row.Commission)
	if err != nil {
		record.Malformed = true
	} else {
		record.Amount = amount
	}

	ms, err := strconv.ParseInt(row.Ts, 10, 64)
	if err != nil {
		record.Malformed = true
	} else {
		record.OccurredAt = time.UnixMilli(ms).UTC()
	}

	return record
}
