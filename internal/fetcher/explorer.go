package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"donation-tracker/internal/donation"
)

const (
	defaultExplorerURL = "https://api.etherscan.io/v2/api"
	defaultEndBlock    = 99999999
)

// ExplorerOptions parameterise the block explorer fetcher.
type ExplorerOptions struct {
	BaseURL         string
	ChainID         int64
	APIKey          string
	ContractAddress string
	WalletAddress   string
	StartBlock      uint64
	EndBlock        uint64
	Timeout         time.Duration
	UserAgent       string
}

// Explorer queries an Etherscan-compatible API for internal transactions.
type Explorer struct {
	opts       ExplorerOptions
	logger     zerolog.Logger
	client     *http.Client
	baseURL    string
	normalizer *donation.Normalizer
}

// NewExplorer constructs an explorer fetcher. A zero Timeout leaves the
// transport defaults in place.
func NewExplorer(opts ExplorerOptions, logger zerolog.Logger) *Explorer {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultExplorerURL
	}
	if opts.StartBlock == 0 {
		opts.StartBlock = 1
	}
	if opts.EndBlock == 0 {
		opts.EndBlock = defaultEndBlock
	}

	client := &http.Client{}
	if opts.Timeout > 0 {
		client.Timeout = opts.Timeout
	}

	return &Explorer{
		opts:       opts,
		logger:     logger.With().Str("component", "explorer_fetcher").Logger(),
		client:     client,
		baseURL:    baseURL,
		normalizer: donation.NewNormalizer(opts.WalletAddress),
	}
}

// FetchDonations performs a single request; retries are layered on by Retry.
func (e *Explorer) FetchDonations(ctx context.Context) (donation.Snapshot, error) {
	if e.opts.ContractAddress == "" || e.opts.WalletAddress == "" {
		return donation.Snapshot{}, errors.New("contract and wallet addresses required")
	}

	rows, err := e.fetchRows(ctx)
	if err != nil {
		return donation.Snapshot{}, err
	}

	records := e.normalizer.NormalizeAll(rows)
	snap := donation.BuildSnapshot(records)

	e.logger.Debug().
		Int("rows", len(rows)).
		Int("donations", len(snap.Donations)).
		Float64("total", snap.Total).
		Msg("explorer rows normalised")

	return snap, nil
}

func (e *Explorer) requestURL() string {
	q := url.Values{}
	q.Set("chainid", strconv.FormatInt(e.opts.ChainID, 10))
	q.Set("module", "account")
	q.Set("action", "txlistinternal")
	q.Set("address", e.opts.ContractAddress)
	q.Set("startblock", strconv.FormatUint(e.opts.StartBlock, 10))
	q.Set("endblock", strconv.FormatUint(e.opts.EndBlock, 10))
	q.Set("sort", "asc")
	q.Set("apikey", e.opts.APIKey)
	return e.baseURL + "?" + q.Encode()
}

func (e *Explorer) fetchRows(ctx context.Context) ([]donation.RawTransaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.requestURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(e.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "donationwatch/1.0")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	var res listResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}

	if res.Status != "1" && res.Message != "OK" {
		return nil, &APIError{Status: res.Status, Message: res.Message, Result: resultText(res.Result)}
	}

	if len(res.Result) == 0 || string(res.Result) == "null" {
		return nil, nil
	}

	var rows []donation.RawTransaction
	if err := json.Unmarshal(res.Result, &rows); err != nil {
		return nil, &APIError{Status: res.Status, Message: res.Message, Result: resultText(res.Result)}
	}
	return rows, nil
}

type listResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// The explorer puts its error description in result as a plain string.
func resultText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

var _ DonationFetcher = (*Explorer)(nil)
