// Package rest is a minimal Binance USDⓈ-M futures REST client: an
// unsigned depth snapshot fetch and an HMAC-SHA256 signed order
// endpoint.
package rest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	log       *zap.Logger
	nowMS     func() int64
}

func New(baseURL string, timeout time.Duration, apiKey, apiSecret string, log *zap.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: timeout},
		log:       log,
		nowMS:     func() int64 { return time.Now().UnixMilli() },
	}
}

// DepthSnapshot is the REST order-book snapshot used to seed the book
// before the stream takes over. Levels arrive as [price, qty] string
// pairs.
type DepthSnapshot struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	EventTimeMS  int64       `json:"E"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

func (c *Client) Depth(ctx context.Context, symbol string, limit int) (DepthSnapshot, error) {
	if symbol == "" {
		return DepthSnapshot{}, errors.New("symbol is required")
	}
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var snap DepthSnapshot
	if err := c.get(ctx, "/fapi/v1/depth", q, &snap); err != nil {
		return DepthSnapshot{}, err
	}
	return snap, nil
}

type OrderRequest struct {
	Symbol        string
	Side          string // BUY or SELL
	Quantity      float64
	ReduceOnly    bool
	ClientOrderID string
}

type OrderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
}

// PlaceOrder submits a MARKET order. The query string is signed with
// the account's API secret per the exchange's HMAC-SHA256 scheme.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return OrderResponse{}, errors.New("api key and secret are required for orders")
	}
	if req.Symbol == "" || req.Side == "" {
		return OrderResponse{}, errors.New("order symbol and side are required")
	}
	if req.Quantity <= 0 {
		return OrderResponse{}, errors.New("order quantity must be > 0")
	}
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(req.Symbol))
	q.Set("side", req.Side)
	q.Set("type", "MARKET")
	q.Set("quantity", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	if req.ReduceOnly {
		q.Set("reduceOnly", "true")
	}
	if req.ClientOrderID != "" {
		q.Set("newClientOrderId", req.ClientOrderID)
	}
	q.Set("timestamp", strconv.FormatInt(c.nowMS(), 10))
	q.Set("recvWindow", "5000")
	query := q.Encode()
	query += "&signature=" + c.sign(query)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/fapi/v1/order?"+query, nil)
	if err != nil {
		return OrderResponse{}, err
	}
	httpReq.Header.Set("X-MBX-APIKEY", c.apiKey)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return OrderResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return OrderResponse{}, fmt.Errorf("order rejected: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var order OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return OrderResponse{}, err
	}
	return order, nil
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
