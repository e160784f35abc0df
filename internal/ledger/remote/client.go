// Package remote implements ledger.Service over the HTTP API, for smoke
// tools and out-of-process consumers.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"papertrade.org/internal/ledger"
)

// Client is a session-bound API client. Register or Login must succeed
// before any ledger call; all calls act on the session's own account.
type Client struct {
	base string
	hc   *http.Client

	token     string
	accountID string
}

var _ ledger.Service = (*Client)(nil)

func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// AccountID returns the ledger account bound to the current session.
func (c *Client) AccountID() string { return c.accountID }

type sessionResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
}

// Register creates a trader and binds the client to the new session.
func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.startSession(ctx, "/v1/auth/register", email, password)
}

// Login authenticates an existing trader and binds the client to the session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.startSession(ctx, "/v1/auth/login", email, password)
}

func (c *Client) startSession(ctx context.Context, path, email, password string) error {
	var sess sessionResponse
	err := c.do(ctx, http.MethodPost, path, map[string]string{
		"email":    email,
		"password": password,
	}, &sess)
	if err != nil {
		return err
	}
	if sess.Token == "" || sess.AccountID == "" {
		return errors.New("server returned an incomplete session")
	}
	c.token = sess.Token
	c.accountID = sess.AccountID
	return nil
}

func (c *Client) Buy(ctx context.Context, accountID, symbol string, shares int64) (ledger.Transaction, error) {
	return c.trade(ctx, accountID, symbol, ledger.SideBuy, shares)
}

func (c *Client) Sell(ctx context.Context, accountID, symbol string, shares int64) (ledger.Transaction, error) {
	return c.trade(ctx, accountID, symbol, ledger.SideSell, shares)
}

func (c *Client) trade(ctx context.Context, accountID, symbol string, side ledger.Side, shares int64) (ledger.Transaction, error) {
	if err := c.checkSession(accountID); err != nil {
		return ledger.Transaction{}, err
	}
	var tx ledger.Transaction
	err := c.do(ctx, http.MethodPost, "/v1/trades", map[string]any{
		"symbol": symbol,
		"side":   string(side),
		"shares": shares,
	}, &tx)
	return tx, err
}

func (c *Client) GetBalance(ctx context.Context, accountID string) (ledger.Money, error) {
	if err := c.checkSession(accountID); err != nil {
		return 0, err
	}
	var out struct {
		Cash ledger.Money `json:"cash"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/account/balance", nil, &out); err != nil {
		return 0, err
	}
	return out.Cash, nil
}

func (c *Client) GetPortfolio(ctx context.Context, accountID string) (ledger.Portfolio, error) {
	if err := c.checkSession(accountID); err != nil {
		return ledger.Portfolio{}, err
	}
	var pf ledger.Portfolio
	err := c.do(ctx, http.MethodGet, "/v1/account/portfolio", nil, &pf)
	return pf, err
}

func (c *Client) GetHistory(ctx context.Context, accountID string, limit int) ([]ledger.Transaction, error) {
	if err := c.checkSession(accountID); err != nil {
		return nil, err
	}
	path := "/v1/account/transactions"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out struct {
		Items []ledger.Transaction `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) checkSession(accountID string) error {
	if c.token == "" {
		return errors.New("no session: call Register or Login first")
	}
	if accountID != "" && accountID != c.accountID {
		return fmt.Errorf("session is bound to account %s", c.accountID)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
		reader = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeAPIError maps the server's error responses back onto the ledger
// sentinel errors so errors.Is works across the wire.
func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		if strings.Contains(msg, "shares") {
			return fmt.Errorf("%w: %s", ledger.ErrInvalidShares, msg)
		}
	case http.StatusNotFound:
		if strings.Contains(msg, "symbol") {
			return fmt.Errorf("%w: %s", ledger.ErrUnknownSymbol, msg)
		}
		return fmt.Errorf("%w: %s", ledger.ErrNotFound, msg)
	case http.StatusConflict:
		if strings.Contains(msg, "funds") {
			return fmt.Errorf("%w: %s", ledger.ErrInsufficientFunds, msg)
		}
		if strings.Contains(msg, "shares") {
			return fmt.Errorf("%w: %s", ledger.ErrInsufficientShares, msg)
		}
	}
	return fmt.Errorf("api error %d: %s", resp.StatusCode, msg)
}
