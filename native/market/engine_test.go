package market

import (
	"bytes"
	"fmt"
	"math/big"
	"testing"

	"tokenmart/core/events"
	"tokenmart/core/types"
)

type mockState struct {
	listings         map[[32]byte]*Listing
	offers           map[uint64]*Offer
	collectionOffers map[uint64]*CollectionOffer
	bundles          map[uint64]*BundleListing
	index            map[[32]byte]*OfferIndexEntry
	offerSeq         uint64
	collectionSeq    uint64
	bundleSeq        uint64
}

func newMockState() *mockState {
	return &mockState{
		listings:         make(map[[32]byte]*Listing),
		offers:           make(map[uint64]*Offer),
		collectionOffers: make(map[uint64]*CollectionOffer),
		bundles:          make(map[uint64]*BundleListing),
		index:            make(map[[32]byte]*OfferIndexEntry),
	}
}

func (m *mockState) ListingPut(l *Listing) error {
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return err
	}
	m.listings[AssetKey(sanitized.Asset, sanitized.TokenID)] = sanitized
	return nil
}

func (m *mockState) ListingGet(key [32]byte) (*Listing, bool) {
	l, ok := m.listings[key]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

func (m *mockState) OfferPut(o *Offer) error {
	sanitized, err := SanitizeOffer(o)
	if err != nil {
		return err
	}
	m.offers[sanitized.ID] = sanitized
	return nil
}

func (m *mockState) OfferGet(id uint64) (*Offer, bool) {
	o, ok := m.offers[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

func (m *mockState) NextOfferID() (uint64, error) {
	m.offerSeq++
	return m.offerSeq, nil
}

func (m *mockState) CollectionOfferPut(o *CollectionOffer) error {
	sanitized, err := SanitizeCollectionOffer(o)
	if err != nil {
		return err
	}
	m.collectionOffers[sanitized.ID] = sanitized
	return nil
}

func (m *mockState) CollectionOfferGet(id uint64) (*CollectionOffer, bool) {
	o, ok := m.collectionOffers[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

func (m *mockState) NextCollectionOfferID() (uint64, error) {
	m.collectionSeq++
	return m.collectionSeq, nil
}

func (m *mockState) BundlePut(b *BundleListing) error {
	sanitized, err := SanitizeBundle(b)
	if err != nil {
		return err
	}
	m.bundles[sanitized.ID] = sanitized
	return nil
}

func (m *mockState) BundleGet(id uint64) (*BundleListing, bool) {
	b, ok := m.bundles[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (m *mockState) NextBundleID() (uint64, error) {
	m.bundleSeq++
	return m.bundleSeq, nil
}

func (m *mockState) BundleIDs() ([]uint64, error) {
	ids := make([]uint64, 0, len(m.bundles))
	for id := uint64(1); id <= m.bundleSeq; id++ {
		if _, ok := m.bundles[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockState) OfferIndexGet(key [32]byte) (*OfferIndexEntry, bool) {
	entry, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

func (m *mockState) OfferIndexPut(key [32]byte, entry *OfferIndexEntry) error {
	if entry == nil || entry.Len() == 0 {
		delete(m.index, key)
		return nil
	}
	m.index[key] = entry.Clone()
	return nil
}

type tokenRef struct {
	asset   [20]byte
	tokenID string
}

func ref(asset [20]byte, tokenID *big.Int) tokenRef {
	id := "0"
	if tokenID != nil {
		id = tokenID.String()
	}
	return tokenRef{asset: asset, tokenID: id}
}

type royaltyPolicy struct {
	recipient [20]byte
	amount    *big.Int
	err       error
}

// mockAssets backs both the asset custody and the royalty lookup surfaces.
type mockAssets struct {
	owners    map[tokenRef][20]byte
	balances  map[[20]byte]map[tokenRef]uint64
	approved  map[[20]byte]map[[20]byte]bool
	royalties map[[20]byte]*royaltyPolicy
	failNext  error
}

func newMockAssets() *mockAssets {
	return &mockAssets{
		owners:    make(map[tokenRef][20]byte),
		balances:  make(map[[20]byte]map[tokenRef]uint64),
		approved:  make(map[[20]byte]map[[20]byte]bool),
		royalties: make(map[[20]byte]*royaltyPolicy),
	}
}

func (m *mockAssets) mintSingle(holder [20]byte, asset [20]byte, tokenID *big.Int) {
	m.owners[ref(asset, tokenID)] = holder
}

func (m *mockAssets) mintMulti(holder [20]byte, asset [20]byte, tokenID *big.Int, qty uint64) {
	if m.balances[holder] == nil {
		m.balances[holder] = make(map[tokenRef]uint64)
	}
	m.balances[holder][ref(asset, tokenID)] += qty
}

func (m *mockAssets) approveAll(owner, operator [20]byte) {
	if m.approved[owner] == nil {
		m.approved[owner] = make(map[[20]byte]bool)
	}
	m.approved[owner][operator] = true
}

func (m *mockAssets) setRoyalty(asset [20]byte, recipient [20]byte, amount *big.Int) {
	m.royalties[asset] = &royaltyPolicy{recipient: recipient, amount: amount}
}

func (m *mockAssets) setRoyaltyError(asset [20]byte, err error) {
	m.royalties[asset] = &royaltyPolicy{err: err}
}

func (m *mockAssets) Transfer(from, to [20]byte, item NFTItem) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	key := ref(item.Asset, item.TokenID)
	switch item.Standard {
	case StandardSingle:
		if m.owners[key] != from {
			return fmt.Errorf("token not held by sender")
		}
		m.owners[key] = to
	case StandardMulti:
		if m.balances[from][key] < item.Quantity {
			return fmt.Errorf("insufficient balance")
		}
		m.balances[from][key] -= item.Quantity
		if m.balances[to] == nil {
			m.balances[to] = make(map[tokenRef]uint64)
		}
		m.balances[to][key] += item.Quantity
	default:
		return fmt.Errorf("bad standard")
	}
	return nil
}

func (m *mockAssets) OwnerOf(asset [20]byte, tokenID *big.Int) ([20]byte, error) {
	owner, ok := m.owners[ref(asset, tokenID)]
	if !ok {
		return [20]byte{}, fmt.Errorf("unknown token")
	}
	return owner, nil
}

func (m *mockAssets) BalanceOf(holder [20]byte, asset [20]byte, tokenID *big.Int) (uint64, error) {
	return m.balances[holder][ref(asset, tokenID)], nil
}

func (m *mockAssets) IsApproved(owner, operator [20]byte, item NFTItem) (bool, error) {
	return m.approved[owner][operator], nil
}

func (m *mockAssets) SupportsRoyalty(asset [20]byte) bool {
	return m.royalties[asset] != nil
}

func (m *mockAssets) RoyaltyInfo(asset [20]byte, tokenID *big.Int, salePrice *big.Int) ([20]byte, *big.Int, error) {
	policy := m.royalties[asset]
	if policy == nil {
		return [20]byte{}, nil, fmt.Errorf("no royalty policy")
	}
	if policy.err != nil {
		return [20]byte{}, nil, policy.err
	}
	return policy.recipient, new(big.Int).Set(policy.amount), nil
}

// mockLedger tracks fungible balances per token. Pulls succeed whenever the
// payer has the funds; authorization is assumed granted.
type mockLedger struct {
	balances map[[20]byte]map[[20]byte]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[[20]byte]map[[20]byte]*big.Int)}
}

func (m *mockLedger) balance(token, addr [20]byte) *big.Int {
	if m.balances[token] == nil {
		m.balances[token] = make(map[[20]byte]*big.Int)
	}
	if m.balances[token][addr] == nil {
		m.balances[token][addr] = big.NewInt(0)
	}
	return m.balances[token][addr]
}

func (m *mockLedger) fund(token, addr [20]byte, amount int64) {
	m.balance(token, addr).Add(m.balance(token, addr), big.NewInt(amount))
}

func (m *mockLedger) Transfer(token [20]byte, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("bad amount")
	}
	src := m.balance(token, from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient funds")
	}
	src.Sub(src, amount)
	m.balance(token, to).Add(m.balance(token, to), amount)
	return nil
}

func (m *mockLedger) Pull(token [20]byte, from, to [20]byte, amount *big.Int) error {
	return m.Transfer(token, from, to, amount)
}

type capturedEmitter struct {
	events []*types.Event
}

func (c *capturedEmitter) Emit(evt events.Event) {
	type carrier interface{ Event() *types.Event }
	if payload, ok := evt.(carrier); ok {
		c.events = append(c.events, payload.Event())
	}
}

func (c *capturedEmitter) byType(eventType string) []*types.Event {
	var matched []*types.Event
	for _, evt := range c.events {
		if evt.Type == eventType {
			matched = append(matched, evt)
		}
	}
	return matched
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	feeRecipient = newTestAddress(0xFE)
	payToken     = newTestAddress(0xEC)
	seller       = newTestAddress(0x01)
	buyer        = newTestAddress(0x02)
	offerer      = newTestAddress(0x03)
	royaltyAddr  = newTestAddress(0x04)
	assetAddr    = newTestAddress(0xA1)
	otherAsset   = newTestAddress(0xA2)
)

type testFixture struct {
	engine  *Engine
	state   *mockState
	assets  *mockAssets
	ledger  *mockLedger
	emitter *capturedEmitter
	now     int64
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		state:   newMockState(),
		assets:  newMockAssets(),
		ledger:  newMockLedger(),
		emitter: &capturedEmitter{},
		now:     1_700_000_000,
	}
	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetCollaborators(f.assets, f.ledger, f.assets)
	f.engine.SetConfigProvider(StaticConfig{
		FeeBps:       250,
		FeeRecipient: feeRecipient,
		PayToken:     payToken,
	})
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.now })
	return f
}

// listedSingle mints a single-unit token to the seller, approves the vault
// and records an active listing at the given price.
func (f *testFixture) listedSingle(t *testing.T, tokenID *big.Int, price int64, token [20]byte) *Listing {
	t.Helper()
	f.assets.mintSingle(seller, assetAddr, tokenID)
	f.assets.approveAll(seller, f.engine.Vault())
	listing, err := f.engine.ListItem(seller, assetAddr, tokenID, StandardSingle, 1, big.NewInt(price), token)
	if err != nil {
		t.Fatalf("list item: %v", err)
	}
	return listing
}

func (f *testFixture) vaultBalance(token [20]byte) *big.Int {
	return new(big.Int).Set(f.ledger.balance(token, f.engine.Vault()))
}

func TestEngineRequiresCollaborators(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.ListItem(seller, assetAddr, big.NewInt(1), StandardSingle, 1, big.NewInt(10), NativeToken); err != ErrNilState {
		t.Fatalf("expected ErrNilState, got %v", err)
	}
	engine.SetState(newMockState())
	if _, err := engine.ListItem(seller, assetAddr, big.NewInt(1), StandardSingle, 1, big.NewInt(10), NativeToken); err != ErrNilAssets {
		t.Fatalf("expected ErrNilAssets, got %v", err)
	}
}

type pausedModules []string

func (p pausedModules) IsPaused(module string) bool {
	for _, name := range p {
		if name == module {
			return true
		}
	}
	return false
}

func TestEngineHonoursPause(t *testing.T) {
	f := newTestFixture(t)
	f.engine.SetPauses(pausedModules{"market"})
	f.assets.mintSingle(seller, assetAddr, big.NewInt(1))
	f.assets.approveAll(seller, f.engine.Vault())
	if _, err := f.engine.ListItem(seller, assetAddr, big.NewInt(1), StandardSingle, 1, big.NewInt(10), NativeToken); err == nil {
		t.Fatalf("expected pause rejection")
	}
}

func TestAssetKeyDistinguishesTokens(t *testing.T) {
	if AssetKey(assetAddr, big.NewInt(1)) == AssetKey(assetAddr, big.NewInt(2)) {
		t.Fatalf("distinct token ids must not collide")
	}
	if AssetKey(assetAddr, big.NewInt(1)) == AssetKey(otherAsset, big.NewInt(1)) {
		t.Fatalf("distinct assets must not collide")
	}
	if AssetKey(assetAddr, nil) != AssetKey(assetAddr, big.NewInt(0)) {
		t.Fatalf("nil token id must normalize to zero")
	}
}
