// Package api exposes the matching engine over REST and WebSocket:
// account and asset reads, order book snapshots, and order
// submission/cancellation routed straight into dispatcher.Dispatch. There
// is no consensus or mempool layer here — each request runs synchronously
// against its own Environment and flushes on success, matching this
// engine's role as an embeddable execution core rather than a full node.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/dispatcher"
	"github.com/ledgerdex/matchcore/internal/feeconfig"
	"github.com/ledgerdex/matchcore/internal/ledgerstate"
	"github.com/ledgerdex/matchcore/internal/orderbook"
	"github.com/ledgerdex/matchcore/internal/price"
	"github.com/ledgerdex/matchcore/internal/resultcode"
)

// Server is the HTTP+WebSocket front end over one ledger/book pair.
type Server struct {
	log     *zap.Logger
	router  *mux.Router
	hub     *Hub
	fees    feeconfig.Config
	accSt   *ledgerstate.AccountStore
	book    orderbook.Store
	assets  *asset.Registry
	blockNo uint64 // monotonic counter driving the order-id codec
}

// NewServer wires a Server against the durable account store, order book,
// and asset registry a running node constructs at startup.
func NewServer(log *zap.Logger, fees feeconfig.Config, accSt *ledgerstate.AccountStore, book orderbook.Store, assets *asset.Registry) *Server {
	s := &Server{
		log:    log,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		fees:   fees,
		accSt:  accSt,
		book:   book,
		assets: assets,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/accounts/{address}", s.handleGetAccount).Methods("GET")
	v1.HandleFunc("/assets", s.handleListAssets).Methods("GET")
	v1.HandleFunc("/orderbook", s.handleGetOrderBook).Methods("GET")
	v1.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	v1.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub loop and serves addr until the process exits or
// ListenAndServe returns an error.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	s.log.Info("api server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addrStr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addrStr) {
		respondError(w, http.StatusBadRequest, "invalid address", addrStr)
		return
	}
	acc, err := s.accSt.Load(common.HexToAddress(addrStr))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load failed", err.Error())
		return
	}
	if acc == nil {
		respondError(w, http.StatusNotFound, "account not found", "")
		return
	}
	respondJSON(w, AccountInfo{Address: acc.Address.Hex(), Balance: acc.Balance})
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	keys := s.assets.List()
	out := make([]AssetInfo, 0, len(keys))
	for _, k := range keys {
		prop, ok := s.assets.Get(k)
		if !ok {
			continue
		}
		out = append(out, AssetInfo{
			Kind:         int(k.Kind),
			Issuer:       k.Issuer.Hex(),
			Code:         k.Code,
			MaxSupply:    prop.MaxSupply,
			IssuedAmount: prop.IssuedAmount,
			FeePercent:   prop.FeePercent,
		})
	}
	respondJSON(w, out)
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	selling, buying, err := parseBookQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid pair", err.Error())
		return
	}
	respondJSON(w, s.snapshot(selling, buying))
}

// snapshot loads up to 50 resting rows (10 pages) for (selling, buying)
// and returns one level entry per row; rows at the same price are not
// merged.
func (s *Server) snapshot(selling, buying asset.Key) OrderBookSnapshot {
	var levels []PriceLevelWire
	offset := 0
	for i := 0; i < 10; i++ {
		page, err := s.book.LoadBest(5, offset, selling, buying)
		if err != nil || len(page) == 0 {
			break
		}
		for _, o := range page {
			levels = append(levels, PriceLevelWire{
				PriceN:  o.Price.N,
				PriceD:  o.Price.D,
				Decimal: priceDecimal(o.Price.N, o.Price.D),
				Amount:  o.Amount,
			})
		}
		offset += len(page)
		if len(page) < 5 {
			break
		}
	}
	return OrderBookSnapshot{Selling: wireKey(selling), Buying: wireKey(buying), Levels: levels}
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Source) {
		respondError(w, http.StatusBadRequest, "invalid source address", req.Source)
		return
	}
	if req.TxHash == "" {
		req.TxHash = uuid.NewString()
	}

	env := ledgerstate.NewEnvironment(s.accSt)
	ctx := &dispatcher.EngineContext{
		Fees:     s.fees,
		Accounts: env,
		Book:     s.book,
		Assets:   s.assets,
		BlockNum: atomic.AddUint64(&s.blockNo, 1),
		TxIndex:  0,
	}

	op := dispatcher.ProcessOrder{
		Source:     common.HexToAddress(req.Source),
		TxHash:     req.TxHash,
		OrderID:    req.OrderID,
		Selling:    keyFromWire(req.Selling),
		Buying:     keyFromWire(req.Buying),
		Amount:     req.Amount,
		Price:      price.Price{N: req.PriceN, D: req.PriceD},
		FeePercent: req.FeePercent,
		Passive:    req.Passive,
	}

	res, err := dispatcher.Dispatch(ctx, 0, op)
	if err != nil {
		s.log.Error("dispatch failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "dispatch failed", err.Error())
		return
	}
	if res.Code == resultcode.Success {
		if err := env.Flush(); err != nil {
			s.log.Error("flush failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "flush failed", err.Error())
			return
		}
		s.broadcastBook(op.Buying, op.Selling)
	}

	respondJSON(w, toSubmitResponse(res))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "missing orderId", "")
		return
	}
	if !common.IsHexAddress(req.Source) {
		respondError(w, http.StatusBadRequest, "invalid source address", req.Source)
		return
	}

	row, found, err := s.book.LoadOrder(req.OrderID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load failed", err.Error())
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "order not found", req.OrderID)
		return
	}

	env := ledgerstate.NewEnvironment(s.accSt)
	ctx := &dispatcher.EngineContext{Fees: s.fees, Accounts: env, Book: s.book, Assets: s.assets}
	op := dispatcher.ProcessOrder{Source: common.HexToAddress(req.Source), TxHash: req.TxHash, OrderID: req.OrderID}

	res, err := dispatcher.Dispatch(ctx, 0, op)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "dispatch failed", err.Error())
		return
	}
	if res.Code == resultcode.Success {
		s.broadcastBook(row.Selling, row.Buying)
	}
	respondJSON(w, toSubmitResponse(res))
}

func (s *Server) broadcastBook(selling, buying asset.Key) {
	snap := s.snapshot(selling, buying)
	update := OrderBookUpdate{Type: "orderbook", Selling: snap.Selling, Buying: snap.Buying, Levels: snap.Levels}
	s.hub.BroadcastToChannel(bookChannel(selling, buying), update)
}

func bookChannel(selling, buying asset.Key) string {
	return fmt.Sprintf("orderbook:%d:%s:%s/%d:%s:%s",
		selling.Kind, selling.Issuer.Hex(), selling.Code,
		buying.Kind, buying.Issuer.Hex(), buying.Code)
}

func toSubmitResponse(res *dispatcher.OperationResult) SubmitOrderResponse {
	out := SubmitOrderResponse{Code: res.Code.String(), Effect: res.Effect.String()}
	if res.Order != nil {
		out.OrderID = res.Order.OrderID
		out.Remaining = res.Order.Amount
	}
	for _, c := range res.OrdersClaimed {
		out.OrdersClaimed = append(out.OrdersClaimed, ClaimWire{
			SellerAddress: c.SellerAddress,
			OrderID:       c.OrderID,
			AssetSold:     c.AssetSold.Code,
			AmountSold:    c.AmountSold,
			AssetBought:   c.AssetBought.Code,
			AmountBought:  c.AmountBought,
		})
	}
	return out
}

// priceDecimal renders n/d with shopspring/decimal's banker-safe division
// rather than float64, avoiding binary-fraction artifacts in API output.
func priceDecimal(n, d uint32) string {
	if d == 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(n)).DivRound(decimal.NewFromInt(int64(d)), 8).String()
}

func wireKey(k asset.Key) AssetKeyWire {
	if k.IsNative() {
		return AssetKeyWire{Kind: int(k.Kind)}
	}
	return AssetKeyWire{Kind: int(k.Kind), Issuer: k.Issuer.Hex(), Code: k.Code}
}

func keyFromWire(w AssetKeyWire) asset.Key {
	return asset.Key{Kind: asset.Kind(w.Kind), Issuer: common.HexToAddress(w.Issuer), Code: w.Code}
}

func parseBookQuery(r *http.Request) (asset.Key, asset.Key, error) {
	q := r.URL.Query()
	sellKind, buyKind := q.Get("sellKind"), q.Get("buyKind")
	if sellKind == "" || buyKind == "" {
		return asset.Key{}, asset.Key{}, fmt.Errorf("sellKind and buyKind are required")
	}
	var sk, bk int
	if _, err := fmt.Sscanf(sellKind, "%d", &sk); err != nil {
		return asset.Key{}, asset.Key{}, err
	}
	if _, err := fmt.Sscanf(buyKind, "%d", &bk); err != nil {
		return asset.Key{}, asset.Key{}, err
	}
	selling := asset.Key{Kind: asset.Kind(sk), Code: q.Get("sellCode")}
	buying := asset.Key{Kind: asset.Kind(bk), Code: q.Get("buyCode")}
	if s := q.Get("sellIssuer"); s != "" {
		selling.Issuer = common.HexToAddress(s)
	}
	if b := q.Get("buyIssuer"); b != "" {
		buying.Issuer = common.HexToAddress(b)
	}
	return selling, buying, nil
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: message})
}
