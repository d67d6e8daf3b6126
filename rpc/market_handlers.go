package rpc

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	nativecommon "tokenmart/native/common"
	"tokenmart/native/market"
)

const (
	codeNotFound         = -32004
	codeForbidden        = -32005
	codeConflict         = -32009
	codeModulePaused     = -32010
	codePaymentRejected  = -32011
	codeCustodyViolation = -32012
)

type itemParam struct {
	Asset    string `json:"asset"`
	TokenID  string `json:"tokenId"`
	Standard string `json:"standard"`
	Quantity uint64 `json:"quantity"`
}

type listItemParams struct {
	Caller   string `json:"caller"`
	Asset    string `json:"asset"`
	TokenID  string `json:"tokenId"`
	Standard string `json:"standard"`
	Quantity uint64 `json:"quantity"`
	Price    string `json:"price"`
	PayToken string `json:"payToken,omitempty"`
}

type cancelItemParams struct {
	Caller  string `json:"caller"`
	Asset   string `json:"asset"`
	TokenID string `json:"tokenId"`
}

type buyItemParams struct {
	Caller  string `json:"caller"`
	Asset   string `json:"asset"`
	TokenID string `json:"tokenId"`
	Paid    string `json:"paid,omitempty"`
}

type makeOfferParams struct {
	Caller string    `json:"caller"`
	Target itemParam `json:"target"`
	Amount string    `json:"amount"`
	Expiry int64     `json:"expiry,omitempty"`
}

type makeBarterOfferParams struct {
	Caller string    `json:"caller"`
	Target itemParam `json:"target"`
	Barter itemParam `json:"barter"`
	Expiry int64     `json:"expiry,omitempty"`
}

type offerIDParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
}

type makeCollectionOfferParams struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	Amount     string `json:"amount"`
	Expiry     int64  `json:"expiry,omitempty"`
}

type acceptCollectionOfferParams struct {
	Caller  string `json:"caller"`
	ID      uint64 `json:"id"`
	TokenID string `json:"tokenId"`
}

type listBundleParams struct {
	Caller   string      `json:"caller"`
	Items    []itemParam `json:"items"`
	Price    string      `json:"price"`
	PayToken string      `json:"payToken,omitempty"`
}

type bundleIDParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
}

type buyBundleParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
	Paid   string `json:"paid,omitempty"`
}

type assetQueryParams struct {
	Asset   string `json:"asset"`
	TokenID string `json:"tokenId"`
}

type idQueryParams struct {
	ID uint64 `json:"id"`
}

func parseAddress(field, value string) ([20]byte, error) {
	addr, err := decodeBech32(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

func parseOptionalToken(value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return market.NativeToken, nil
	}
	return decodeBech32(value)
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%s: invalid amount %q", field, value)
	}
	return amount, nil
}

func parseStandard(value string) (market.Standard, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "single":
		return market.StandardSingle, nil
	case "multi":
		return market.StandardMulti, nil
	default:
		return 0, fmt.Errorf("unknown asset standard %q", value)
	}
}

func parseItem(field string, p itemParam) (market.NFTItem, error) {
	asset, err := parseAddress(field+".asset", p.Asset)
	if err != nil {
		return market.NFTItem{}, err
	}
	tokenID, err := parseAmount(field+".tokenId", p.TokenID)
	if err != nil {
		return market.NFTItem{}, err
	}
	standard, err := parseStandard(p.Standard)
	if err != nil {
		return market.NFTItem{}, fmt.Errorf("%s: %w", field, err)
	}
	return market.NFTItem{Asset: asset, TokenID: tokenID, Standard: standard, Quantity: p.Quantity}, nil
}

// writeEngineError translates engine sentinels into stable JSON-RPC codes so
// clients can branch without string matching.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		writeError(w, http.StatusServiceUnavailable, id, codeModulePaused, err.Error(), nil)
	case errors.Is(err, market.ErrNotListed),
		errors.Is(err, market.ErrOfferNotFound),
		errors.Is(err, market.ErrBundleNotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, err.Error(), nil)
	case errors.Is(err, market.ErrNotSeller),
		errors.Is(err, market.ErrNotOfferer),
		errors.Is(err, market.ErrSelfTrade):
		writeError(w, http.StatusForbidden, id, codeForbidden, err.Error(), nil)
	case errors.Is(err, market.ErrAlreadyListed),
		errors.Is(err, market.ErrOfferNotPending),
		errors.Is(err, market.ErrOfferExpired),
		errors.Is(err, market.ErrOfferMismatch),
		errors.Is(err, market.ErrBundleInactive):
		writeError(w, http.StatusConflict, id, codeConflict, err.Error(), nil)
	case errors.Is(err, market.ErrInsufficientPayment),
		errors.Is(err, market.ErrWrongDenomination):
		writeError(w, http.StatusBadRequest, id, codePaymentRejected, err.Error(), nil)
	case errors.Is(err, market.ErrNotOwned),
		errors.Is(err, market.ErrNotApproved):
		writeError(w, http.StatusBadRequest, id, codeCustodyViolation, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handleListItem(w http.ResponseWriter, req *RPCRequest) {
	var params listItemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenID, err := parseAmount("tokenId", params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	standard, err := parseStandard(params.Standard)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	price, err := parseAmount("price", params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payToken, err := parseOptionalToken(params.PayToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, fmt.Sprintf("payToken: %v", err), nil)
		return
	}
	listing, err := s.engine.ListItem(caller, asset, tokenID, standard, params.Quantity, price, payToken)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, listingView(listing))
}

func (s *Server) handleCancelItem(w http.ResponseWriter, req *RPCRequest) {
	var params cancelItemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenID, err := parseAmount("tokenId", params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.CancelItem(caller, asset, tokenID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "cancelled"})
}

func (s *Server) handleBuyItem(w http.ResponseWriter, req *RPCRequest) {
	var params buyItemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenID, err := parseAmount("tokenId", params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	paid, err := parseAmount("paid", params.Paid)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.BuyItem(caller, asset, tokenID, paid); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "sold"})
}

func (s *Server) handleMakeOffer(w http.ResponseWriter, req *RPCRequest) {
	var params makeOfferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	target, err := parseItem("target", params.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offer, err := s.engine.MakeOffer(caller, target, amount, params.Expiry)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, offerView(offer))
}

func (s *Server) handleMakeBarterOffer(w http.ResponseWriter, req *RPCRequest) {
	var params makeBarterOfferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	target, err := parseItem("target", params.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	barter, err := parseItem("barter", params.Barter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offer, err := s.engine.MakeBarterOffer(caller, target, barter, params.Expiry)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, offerView(offer))
}

func (s *Server) handleCancelOffer(w http.ResponseWriter, req *RPCRequest) {
	var params offerIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.CancelOffer(caller, params.ID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "cancelled"})
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, req *RPCRequest) {
	var params offerIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.AcceptOffer(caller, params.ID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "accepted"})
}

func (s *Server) handleMakeCollectionOffer(w http.ResponseWriter, req *RPCRequest) {
	var params makeCollectionOfferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offer, err := s.engine.MakeCollectionOffer(caller, collection, amount, params.Expiry)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, collectionOfferView(offer))
}

func (s *Server) handleCancelCollectionOffer(w http.ResponseWriter, req *RPCRequest) {
	var params offerIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.CancelCollectionOffer(caller, params.ID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "cancelled"})
}

func (s *Server) handleAcceptCollectionOffer(w http.ResponseWriter, req *RPCRequest) {
	var params acceptCollectionOfferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenID, err := parseAmount("tokenId", params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.AcceptCollectionOffer(caller, params.ID, tokenID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "accepted"})
}

func (s *Server) handleListBundle(w http.ResponseWriter, req *RPCRequest) {
	var params listBundleParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	items := make([]market.NFTItem, 0, len(params.Items))
	for i, p := range params.Items {
		item, err := parseItem(fmt.Sprintf("items[%d]", i), p)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		items = append(items, item)
	}
	price, err := parseAmount("price", params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payToken, err := parseOptionalToken(params.PayToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, fmt.Sprintf("payToken: %v", err), nil)
		return
	}
	bundle, err := s.engine.ListBundle(caller, items, price, payToken)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, bundleView(bundle))
}

func (s *Server) handleCancelBundleListing(w http.ResponseWriter, req *RPCRequest) {
	var params bundleIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.CancelBundleListing(caller, params.ID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "cancelled"})
}

func (s *Server) handleBuyBundle(w http.ResponseWriter, req *RPCRequest) {
	var params buyBundleParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	paid, err := parseAmount("paid", params.Paid)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.BuyBundle(caller, params.ID, paid); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "sold"})
}

func (s *Server) handleGetListing(w http.ResponseWriter, req *RPCRequest) {
	var params assetQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenID, err := parseAmount("tokenId", params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	listing, ok := s.engine.GetListing(asset, tokenID)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "listing not found", nil)
		return
	}
	writeResult(w, req.ID, listingView(listing))
}

func (s *Server) handleGetOffer(w http.ResponseWriter, req *RPCRequest) {
	var params idQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offer, ok := s.engine.GetOffer(params.ID)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "offer not found", nil)
		return
	}
	writeResult(w, req.ID, offerView(offer))
}

func (s *Server) handleGetCollectionOffer(w http.ResponseWriter, req *RPCRequest) {
	var params idQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offer, ok := s.engine.GetCollectionOffer(params.ID)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "collection offer not found", nil)
		return
	}
	writeResult(w, req.ID, collectionOfferView(offer))
}

func (s *Server) handleGetBundle(w http.ResponseWriter, req *RPCRequest) {
	var params idQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	bundle, ok := s.engine.GetBundle(params.ID)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "bundle not found", nil)
		return
	}
	writeResult(w, req.ID, bundleView(bundle))
}

func (s *Server) handleActiveBundles(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	bundles, err := s.engine.ActiveBundles()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	views := make([]*BundleView, 0, len(bundles))
	for _, bundle := range bundles {
		views = append(views, bundleView(bundle))
	}
	writeResult(w, req.ID, views)
}

func (s *Server) handlePendingOffers(w http.ResponseWriter, req *RPCRequest) {
	var params assetQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenID, err := parseAmount("tokenId", params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ids := s.engine.PendingOffers(asset, tokenID)
	writeResult(w, req.ID, map[string]interface{}{"offerIds": ids})
}
