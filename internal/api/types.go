package api

// Request and response payloads for the REST and WebSocket surface.

// AssetKeyWire is the wire form of an asset.Key: kind is 0 (native),
// 1 (unlimited) or 2 (limited); issuer and code are empty for native.
type AssetKeyWire struct {
	Kind   int    `json:"kind"`
	Issuer string `json:"issuer,omitempty"`
	Code   string `json:"code,omitempty"`
}

// SubmitOrderRequest is the payload for POST /api/v1/orders.
type SubmitOrderRequest struct {
	Source     string       `json:"source"`
	TxHash     string       `json:"txHash"`
	OrderID    string       `json:"orderId,omitempty"` // non-empty => update
	Selling    AssetKeyWire `json:"selling"`
	Buying     AssetKeyWire `json:"buying"`
	Amount     int64        `json:"amount"`
	PriceN     uint32       `json:"priceN"`
	PriceD     uint32       `json:"priceD"`
	FeePercent uint32       `json:"feePercent"`
	Passive    bool         `json:"passive"`
}

// CancelOrderRequest is the payload for POST /api/v1/orders/cancel.
type CancelOrderRequest struct {
	Source  string `json:"source"`
	TxHash  string `json:"txHash"`
	OrderID string `json:"orderId"`
}

// ClaimWire is one fill in an OperationResult's trail.
type ClaimWire struct {
	SellerAddress string `json:"sellerAddress"`
	OrderID       string `json:"orderId"`
	AssetSold     string `json:"assetSold"`
	AmountSold    int64  `json:"amountSold"`
	AssetBought   string `json:"assetBought"`
	AmountBought  int64  `json:"amountBought"`
}

// SubmitOrderResponse reports the dispatcher's outcome for an order op.
type SubmitOrderResponse struct {
	Code          string      `json:"code"`
	Effect        string      `json:"effect"`
	OrderID       string      `json:"orderId,omitempty"`
	Remaining     int64       `json:"remaining,omitempty"`
	OrdersClaimed []ClaimWire `json:"ordersClaimed,omitempty"`
}

// AccountInfo is the REST response for GET /api/v1/accounts/{address}.
type AccountInfo struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

// AssetInfo is one entry in the GET /api/v1/assets listing.
type AssetInfo struct {
	Kind         int    `json:"kind"`
	Issuer       string `json:"issuer,omitempty"`
	Code         string `json:"code,omitempty"`
	MaxSupply    int64  `json:"maxSupply"`
	IssuedAmount int64  `json:"issuedAmount"`
	FeePercent   uint32 `json:"feePercent"`
}

// PriceLevelWire is one [price, size] entry in an order book snapshot.
// Decimal carries the human-readable rendering of PriceN/PriceD for
// clients that would rather not do rational-number arithmetic themselves.
type PriceLevelWire struct {
	PriceN  uint32 `json:"priceN"`
	PriceD  uint32 `json:"priceD"`
	Decimal string `json:"decimal"`
	Amount  int64  `json:"amount"`
}

// OrderBookSnapshot is the REST/WS response for a (selling, buying) pair.
type OrderBookSnapshot struct {
	Selling AssetKeyWire     `json:"selling"`
	Buying  AssetKeyWire     `json:"buying"`
	Levels  []PriceLevelWire `json:"levels"`
}

// OrderBookUpdate is broadcast over the WebSocket hub after every
// ProcessOrder that mutates the book.
type OrderBookUpdate struct {
	Type    string           `json:"type"`
	Selling AssetKeyWire     `json:"selling"`
	Buying  AssetKeyWire     `json:"buying"`
	Levels  []PriceLevelWire `json:"levels"`
}

// WSSubscribeRequest is sent by a client to (un)subscribe to channels.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// ErrorResponse is returned for all 4xx/5xx REST errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
