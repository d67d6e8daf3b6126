package market

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"tokenmart/core/events"
	"tokenmart/core/types"
	"tokenmart/crypto"
	nativecommon "tokenmart/native/common"
)

const marketModuleName = "market"

var (
	ErrNilState            = errors.New("market engine: state not configured")
	ErrNilAssets           = errors.New("market engine: asset transferor not configured")
	ErrNilPayments         = errors.New("market engine: payment transferor not configured")
	ErrNilConfig           = errors.New("market engine: config provider not configured")
	ErrNotListed           = errors.New("market: not listed")
	ErrAlreadyListed       = errors.New("market: already listed")
	ErrNotSeller           = errors.New("market: caller is not the seller")
	ErrOfferNotFound       = errors.New("market: offer not found")
	ErrOfferNotPending     = errors.New("market: offer not pending")
	ErrOfferExpired        = errors.New("market: offer expired")
	ErrNotOfferer          = errors.New("market: caller is not the offerer")
	ErrOfferMismatch       = errors.New("market: offer does not match the listed item")
	ErrSelfTrade           = errors.New("market: self-trade barred")
	ErrBundleNotFound      = errors.New("market: bundle not found")
	ErrBundleInactive      = errors.New("market: bundle not active")
	ErrInsufficientPayment = errors.New("market: insufficient payment")
	ErrWrongDenomination   = errors.New("market: wrong payment denomination")
	ErrNotOwned            = errors.New("market: caller does not hold the asset")
	ErrNotApproved         = errors.New("market: engine not approved to move the asset")
)

// engineState is the narrow persistence surface consumed by the engine.
// Every mutator completes fully before returning so no call can observe a
// half-updated record.
type engineState interface {
	ListingPut(*Listing) error
	ListingGet(assetKey [32]byte) (*Listing, bool)

	OfferPut(*Offer) error
	OfferGet(id uint64) (*Offer, bool)
	NextOfferID() (uint64, error)

	CollectionOfferPut(*CollectionOffer) error
	CollectionOfferGet(id uint64) (*CollectionOffer, bool)
	NextCollectionOfferID() (uint64, error)

	BundlePut(*BundleListing) error
	BundleGet(id uint64) (*BundleListing, bool)
	NextBundleID() (uint64, error)
	BundleIDs() ([]uint64, error)

	OfferIndexGet(assetKey [32]byte) (*OfferIndexEntry, bool)
	OfferIndexPut(assetKey [32]byte, entry *OfferIndexEntry) error
}

// AssetTransferor moves custody of tokenized assets on behalf of the engine.
// Single-unit assets expose an ownership query and per-token or blanket
// approval; multi-unit assets expose a balance query and blanket approval
// only.
type AssetTransferor interface {
	Transfer(from, to [20]byte, item NFTItem) error
	OwnerOf(asset [20]byte, tokenID *big.Int) ([20]byte, error)
	BalanceOf(holder [20]byte, asset [20]byte, tokenID *big.Int) (uint64, error)
	IsApproved(owner, operator [20]byte, item NFTItem) (bool, error)
}

// RoyaltyLookup resolves the royalty obligation for an asset at a sale
// price. Implementations may not support an asset at all, or may fail; the
// engine degrades every failure mode to "no royalty".
type RoyaltyLookup interface {
	SupportsRoyalty(asset [20]byte) bool
	RoyaltyInfo(asset [20]byte, tokenID *big.Int, salePrice *big.Int) ([20]byte, *big.Int, error)
}

// PaymentTransferor moves fungible value. Transfer moves balances the caller
// already controls; Pull debits a third party that previously authorized the
// engine.
type PaymentTransferor interface {
	Transfer(token [20]byte, from, to [20]byte, amount *big.Int) error
	Pull(token [20]byte, from, to [20]byte, amount *big.Int) error
}

// Config is the marketplace configuration snapshot injected at the start of
// each call. FeeBps is expressed in basis points of the gross price.
type Config struct {
	FeeBps       uint32
	FeeRecipient [20]byte
	PayToken     [20]byte
}

// ConfigProvider exposes the current configuration to the engine. The engine
// never caches the snapshot across calls.
type ConfigProvider interface {
	MarketConfig() Config
}

// StaticConfig is a ConfigProvider returning a fixed snapshot.
type StaticConfig Config

// MarketConfig implements ConfigProvider.
func (c StaticConfig) MarketConfig() Config { return Config(c) }

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine custodies escrowed assets and payments and settles the four sale
// flows. Every public entry point holds the engine mutex for the lifetime of
// the call, so calls are mutually exclusive with themselves and each other;
// collaborator callbacks can never re-enter mid-settlement.
type Engine struct {
	mu        sync.Mutex
	state     engineState
	assets    AssetTransferor
	payments  PaymentTransferor
	royalties RoyaltyLookup
	config    ConfigProvider
	emitter   events.Emitter
	logger    *slog.Logger
	pauses    nativecommon.PauseView
	nowFn     func() int64
	vault     [20]byte
}

// NewEngine creates a marketplace engine with a no-op emitter and the
// deterministic module vault address. Collaborators are wired through the
// setters before first use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn:   func() int64 { return time.Now().Unix() },
		vault:   crypto.DeriveModuleAddress(marketModuleName),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCollaborators wires the external asset, payment and royalty primitives.
func (e *Engine) SetCollaborators(assets AssetTransferor, payments PaymentTransferor, royalties RoyaltyLookup) {
	e.assets = assets
	e.payments = payments
	e.royalties = royalties
}

// SetConfigProvider configures the source of per-call config snapshots.
func (e *Engine) SetConfigProvider(p ConfigProvider) { e.config = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger overrides the logger used for best-effort failure reporting.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		e.logger = slog.Default()
		return
	}
	e.logger = logger
}

// SetPauses wires the module pause view consulted on every mutating call.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source used by the engine. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Vault returns the escrow custody address of the engine.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	switch {
	case e == nil || e.state == nil:
		return ErrNilState
	case e.assets == nil:
		return ErrNilAssets
	case e.payments == nil:
		return ErrNilPayments
	case e.config == nil:
		return ErrNilConfig
	}
	return nativecommon.Guard(e.pauses, marketModuleName)
}

func (e *Engine) snapshot() Config {
	return e.config.MarketConfig()
}

// AssetKey derives the canonical storage key for one asset+token identity.
func AssetKey(asset [20]byte, tokenID *big.Int) [32]byte {
	id := "0"
	if tokenID != nil {
		id = tokenID.String()
	}
	return ethcrypto.Keccak256Hash(asset[:], []byte(id))
}

// requireCustody verifies the holder owns the item and has authorized the
// engine vault to move it. Both checks are preconditions: a failure aborts
// the call before any state mutation or escrow movement.
func (e *Engine) requireCustody(holder [20]byte, item NFTItem) error {
	switch item.Standard {
	case StandardSingle:
		owner, err := e.assets.OwnerOf(item.Asset, item.TokenID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotOwned, err)
		}
		if owner != holder {
			return ErrNotOwned
		}
	case StandardMulti:
		balance, err := e.assets.BalanceOf(holder, item.Asset, item.TokenID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotOwned, err)
		}
		if balance < item.Quantity {
			return ErrNotOwned
		}
	default:
		return fmt.Errorf("market: invalid asset standard %d", item.Standard)
	}
	approved, err := e.assets.IsApproved(holder, e.vault, item)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotApproved, err)
	}
	if !approved {
		return ErrNotApproved
	}
	return nil
}

// lookupRoyalty resolves the royalty for an asset at the given price. Every
// failure mode (unsupported, error with or without message, amount >= price)
// degrades to a nil result plus the diagnostic events to publish at commit
// time. Lookup failure never aborts a sale.
func (e *Engine) lookupRoyalty(asset [20]byte, tokenID, price *big.Int) (*RoyaltyResult, []*types.Event) {
	if e.royalties == nil || !e.royalties.SupportsRoyalty(asset) {
		return nil, nil
	}
	recipient, amount, err := e.royalties.RoyaltyInfo(asset, tokenID, price)
	if err != nil {
		reason := err.Error()
		if reason == "" {
			reason = "royalty lookup failed"
		}
		return nil, []*types.Event{NewRoyaltyUnavailableEvent(asset, tokenID, reason)}
	}
	result := &RoyaltyResult{Recipient: recipient, Amount: amount}
	if RoyaltySuppressed(price, result) {
		return nil, []*types.Event{NewRoyaltyExceedsPriceEvent(asset, tokenID, amount, price)}
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil
	}
	return result, nil
}

// payOut disburses escrowed value from the vault. The funds were pulled into
// the vault before the state commit, so a failure here indicates ledger
// corruption and aborts the call.
func (e *Engine) payOut(token [20]byte, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	return e.payments.Transfer(token, e.vault, to, amount)
}

// disburse pays the three legs of a settlement from the vault in the fixed
// royalty, fee, seller order.
func (e *Engine) disburse(token [20]byte, s Settlement, feeRecipient, seller [20]byte) error {
	if err := e.payOut(token, s.RoyaltyRecipient, s.Royalty); err != nil {
		return err
	}
	if err := e.payOut(token, feeRecipient, s.Fee); err != nil {
		return err
	}
	return e.payOut(token, seller, s.SellerProceeds)
}

// indexEntry loads the pending-offer index entry for an asset key, returning
// an empty entry when none is stored.
func (e *Engine) indexEntry(key [32]byte) *OfferIndexEntry {
	entry, ok := e.state.OfferIndexGet(key)
	if !ok || entry == nil {
		return NewOfferIndexEntry()
	}
	return entry
}

func (e *Engine) indexAdd(key [32]byte, id uint64) error {
	entry := e.indexEntry(key)
	entry.Add(id)
	return e.state.OfferIndexPut(key, entry)
}

func (e *Engine) indexRemove(key [32]byte, id uint64) error {
	entry := e.indexEntry(key)
	if !entry.Remove(id) {
		return nil
	}
	return e.state.OfferIndexPut(key, entry)
}

func (e *Engine) loadListing(key [32]byte) (*Listing, error) {
	listing, ok := e.state.ListingGet(key)
	if !ok || listing == nil || !listing.Active {
		return nil, ErrNotListed
	}
	return listing, nil
}

func (e *Engine) loadOffer(id uint64) (*Offer, error) {
	offer, ok := e.state.OfferGet(id)
	if !ok {
		return nil, ErrOfferNotFound
	}
	return SanitizeOffer(offer)
}

// GetListing returns the listing recorded for an asset+token, active or not.
func (e *Engine) GetListing(asset [20]byte, tokenID *big.Int) (*Listing, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, false
	}
	listing, ok := e.state.ListingGet(AssetKey(asset, tokenID))
	if !ok {
		return nil, false
	}
	return listing.Clone(), true
}

// GetOffer returns the offer with the given id.
func (e *Engine) GetOffer(id uint64) (*Offer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, false
	}
	offer, ok := e.state.OfferGet(id)
	if !ok {
		return nil, false
	}
	return offer.Clone(), true
}

// GetCollectionOffer returns the collection offer with the given id.
func (e *Engine) GetCollectionOffer(id uint64) (*CollectionOffer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, false
	}
	offer, ok := e.state.CollectionOfferGet(id)
	if !ok {
		return nil, false
	}
	return offer.Clone(), true
}

// GetBundle returns the bundle listing with the given id.
func (e *Engine) GetBundle(id uint64) (*BundleListing, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, false
	}
	bundle, ok := e.state.BundleGet(id)
	if !ok {
		return nil, false
	}
	return bundle.Clone(), true
}

// ActiveBundles returns every bundle listing still open for sale, in id
// order.
func (e *Engine) ActiveBundles() ([]*BundleListing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	ids, err := e.state.BundleIDs()
	if err != nil {
		return nil, err
	}
	bundles := make([]*BundleListing, 0, len(ids))
	for _, id := range ids {
		bundle, ok := e.state.BundleGet(id)
		if !ok || !bundle.Active {
			continue
		}
		bundles = append(bundles, bundle.Clone())
	}
	return bundles, nil
}

// PendingOffers returns the ids currently indexed for an asset+token in
// insertion order.
func (e *Engine) PendingOffers(asset [20]byte, tokenID *big.Int) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	return e.indexEntry(AssetKey(asset, tokenID)).Snapshot()
}
