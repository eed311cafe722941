package polymkt

import (
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/crossvenue/prediction-arb/internal/venue"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"
)

// OrderClient submits EIP-712 signed orders to the venue's CLOB gateway.
type OrderClient struct {
	baseURL       string
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string // EOA address (signer)
	proxyAddress  string // proxy address (maker/funder), optional
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	http          *http.Client
	logger        *zap.Logger
}

// OrderClientConfig holds order client configuration.
type OrderClientConfig struct {
	BaseURL       string
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string
	ProxyAddress  string
	SignatureType int
	ChainID       int64
	Timeout       time.Duration
	Logger        *zap.Logger
}

// NewOrderClient creates an order client from a hex private key.
func NewOrderClient(cfg *OrderClientConfig) (*OrderClient, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKey, _ := privateKey.Public().(*ecdsa.PublicKey)
	address := crypto.PubkeyToAddress(*publicKey).Hex()

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = 137 // Polygon mainnet
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OrderClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		privateKey:    privateKey,
		address:       address,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  builder.NewExchangeOrderBuilderImpl(big.NewInt(chainID), nil),
		http:          &http.Client{Timeout: timeout},
		logger:        cfg.Logger,
	}, nil
}

// Venue identifies this client's venue.
func (c *OrderClient) Venue() types.VenueID { return types.VenuePolymkt }

// signedOrderJSON is the wire shape the gateway expects. Salt and
// signatureType are integers, everything else is stringly typed.
type signedOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type orderResponse struct {
	OrderID    string `json:"orderID"`
	Status     string `json:"status"`
	FilledSize string `json:"size_matched"`
	AvgPrice   string `json:"avg_price"`
}

// SubmitOrder builds, signs, and submits one order, returning the venue's
// definitive fill report.
func (c *OrderClient) SubmitOrder(ctx context.Context, req venue.OrderRequest) (*venue.OrderResult, error) {
	maker := c.address
	if c.proxyAddress != "" {
		maker = c.proxyAddress
	}

	side := model.BUY
	if req.Action == venue.ActionSell {
		side = model.SELL
	}

	// Maker amount is USDC spent, taker amount is outcome tokens received.
	// Both are expressed in the venue's 6-decimal raw units, which matches
	// Micros exactly.
	cost := req.LimitPrice.MulSize(req.Size)
	data := &model.OrderData{
		Maker:         maker,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       req.MarketID,
		MakerAmount:   fmt.Sprintf("%d", int64(cost)),
		TakerAmount:   fmt.Sprintf("%d", req.Size*int64(types.Dollar)),
		Side:          side,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.address,
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	signed, err := c.orderBuilder.BuildSignedOrder(c.privateKey, data, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}

	resp, err := c.submit(ctx, signed)
	if err != nil {
		return nil, err
	}

	result := &venue.OrderResult{OrderID: resp.OrderID}
	fmt.Sscanf(resp.FilledSize, "%d", &result.FilledSize)
	var avg float64
	fmt.Sscanf(resp.AvgPrice, "%f", &avg)
	result.AvgPrice = types.MicrosFromFloat(avg)

	switch strings.ToLower(resp.Status) {
	case "matched", "filled":
		result.State = types.OrderFilled
	case "partially_matched":
		result.State = types.OrderPartiallyFilled
	case "rejected", "invalid":
		result.State = types.OrderRejected
		return result, &types.RejectedOrderError{
			Venue:   types.VenuePolymkt,
			OrderID: resp.OrderID,
			Reason:  resp.Status,
		}
	default:
		result.State = types.OrderSubmitted
	}

	return result, nil
}

// CancelOrder cancels a resting order.
func (c *OrderClient) CancelOrder(ctx context.Context, orderID string) error {
	body, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("marshal cancel: %w", err)
	}
	_, err = c.signedRequest(ctx, http.MethodDelete, "/order", body)
	return err
}

func (c *OrderClient) submit(ctx context.Context, order *model.SignedOrder) (*orderResponse, error) {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	jsonOrder := signedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}

	// The owner field is the API key, not the maker address.
	reqBody, err := json.Marshal(map[string]any{
		"order":     jsonOrder,
		"owner":     c.apiKey,
		"orderType": "FOK",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	body, err := c.signedRequest(ctx, http.MethodPost, "/order", reqBody)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}
	return &resp, nil
}

// signedRequest sends an HMAC-authenticated request. The signature covers
// timestamp, method, path, and body, keyed by the url-safe base64 secret.
func (c *OrderClient) signedRequest(ctx context.Context, method, path string, reqBody []byte) ([]byte, error) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	payload := timestamp + method + path + string(reqBody)

	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(payload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)
	req.Header.Set("POLY_ADDRESS", c.address)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.TransientVenueError{Venue: types.VenuePolymkt, Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.TransientVenueError{Venue: types.VenuePolymkt, Op: "read " + path, Err: err}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &types.TransientVenueError{
			Venue: types.VenuePolymkt,
			Op:    method + " " + path,
			Err:   fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &types.RejectedOrderError{
			Venue:  types.VenuePolymkt,
			Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	return body, nil
}
