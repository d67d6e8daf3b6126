package market

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
)

func bundleItems(f *testFixture, t *testing.T, count int) []NFTItem {
	t.Helper()
	items := make([]NFTItem, 0, count)
	for i := 0; i < count; i++ {
		tokenID := big.NewInt(int64(100 + i))
		f.assets.mintSingle(seller, assetAddr, tokenID)
		items = append(items, NFTItem{Asset: assetAddr, TokenID: tokenID, Standard: StandardSingle, Quantity: 1})
	}
	f.assets.approveAll(seller, f.engine.Vault())
	return items
}

func TestListBundleEscrowsEveryItem(t *testing.T) {
	f := newTestFixture(t)
	items := bundleItems(f, t, 3)
	bundle, err := f.engine.ListBundle(seller, items, big.NewInt(900), NativeToken)
	if err != nil {
		t.Fatalf("list bundle: %v", err)
	}
	if bundle.ID == 0 || !bundle.Active {
		t.Fatalf("bundle not recorded active with an id")
	}
	for _, item := range items {
		owner, _ := f.assets.OwnerOf(item.Asset, item.TokenID)
		if owner != f.engine.Vault() {
			t.Fatalf("item %s not escrowed", item.TokenID)
		}
	}
}

func TestListBundleRejectsEmptyAndUnowned(t *testing.T) {
	f := newTestFixture(t)
	if _, err := f.engine.ListBundle(seller, nil, big.NewInt(100), NativeToken); err == nil {
		t.Fatalf("empty bundle must be rejected")
	}
	// Second item is not held by the seller: validation aborts before any
	// escrow transfer.
	held := big.NewInt(100)
	stray := big.NewInt(101)
	f.assets.mintSingle(seller, assetAddr, held)
	f.assets.mintSingle(buyer, assetAddr, stray)
	f.assets.approveAll(seller, f.engine.Vault())
	items := []NFTItem{
		{Asset: assetAddr, TokenID: held, Standard: StandardSingle, Quantity: 1},
		{Asset: assetAddr, TokenID: stray, Standard: StandardSingle, Quantity: 1},
	}
	if _, err := f.engine.ListBundle(seller, items, big.NewInt(100), NativeToken); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}
	owner, _ := f.assets.OwnerOf(assetAddr, held)
	if owner != seller {
		t.Fatalf("rejected bundle moved an item into escrow")
	}
}

// Bundle round-trip: cancelling returns every item with no residual escrow.
func TestCancelBundleReturnsAllItems(t *testing.T) {
	f := newTestFixture(t)
	items := bundleItems(f, t, 4)
	bundle, err := f.engine.ListBundle(seller, items, big.NewInt(900), NativeToken)
	if err != nil {
		t.Fatalf("list bundle: %v", err)
	}
	if err := f.engine.CancelBundleListing(buyer, bundle.ID); !errors.Is(err, ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller, got %v", err)
	}
	if err := f.engine.CancelBundleListing(seller, bundle.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	for _, item := range items {
		owner, _ := f.assets.OwnerOf(item.Asset, item.TokenID)
		if owner != seller {
			t.Fatalf("item %s not returned to seller", item.TokenID)
		}
	}
	if got := f.vaultBalance(NativeToken); got.Sign() != 0 {
		t.Fatalf("residual vault balance %s", got)
	}
	if err := f.engine.CancelBundleListing(seller, bundle.ID); !errors.Is(err, ErrBundleInactive) {
		t.Fatalf("expected ErrBundleInactive, got %v", err)
	}
}

// The worked scenario: 2 items, total 100, share 50. Item 1 royalty 60
// exceeds its share and is suppressed with a diagnostic; item 2 royalty 10
// is honored. Fee percent 0, proceeds 90.
func TestBuyBundlePerItemRoyalties(t *testing.T) {
	f := newTestFixture(t)
	f.engine.SetConfigProvider(StaticConfig{
		FeeBps:       0,
		FeeRecipient: feeRecipient,
		PayToken:     payToken,
	})
	oversized := big.NewInt(200)
	modest := big.NewInt(201)
	f.assets.mintSingle(seller, assetAddr, oversized)
	f.assets.mintSingle(seller, otherAsset, modest)
	f.assets.approveAll(seller, f.engine.Vault())
	royalty2 := newTestAddress(0x31)
	f.assets.setRoyalty(assetAddr, royaltyAddr, big.NewInt(60))
	f.assets.setRoyalty(otherAsset, royalty2, big.NewInt(10))
	items := []NFTItem{
		{Asset: assetAddr, TokenID: oversized, Standard: StandardSingle, Quantity: 1},
		{Asset: otherAsset, TokenID: modest, Standard: StandardSingle, Quantity: 1},
	}
	bundle, err := f.engine.ListBundle(seller, items, big.NewInt(100), NativeToken)
	if err != nil {
		t.Fatalf("list bundle: %v", err)
	}
	f.ledger.fund(NativeToken, buyer, 100)
	if err := f.engine.BuyBundle(buyer, bundle.ID, big.NewInt(100)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := f.ledger.balance(NativeToken, royaltyAddr); got.Sign() != 0 {
		t.Fatalf("suppressed royalty paid: %s", got)
	}
	if got := f.ledger.balance(NativeToken, royalty2); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("item 2 royalty = %s, want 10", got)
	}
	if got := f.ledger.balance(NativeToken, seller); got.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("proceeds = %s, want 90", got)
	}
	if got := f.emitter.byType(EventTypeRoyaltyExceedsPrice); len(got) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(got))
	}
	for _, item := range items {
		owner, _ := f.assets.OwnerOf(item.Asset, item.TokenID)
		if owner != buyer {
			t.Fatalf("item %s not delivered to buyer", item.TokenID)
		}
	}
	if got := f.vaultBalance(NativeToken); got.Sign() != 0 {
		t.Fatalf("residual vault balance %s", got)
	}
}

func TestBuyBundleSingleFeeOnTotal(t *testing.T) {
	f := newTestFixture(t)
	items := bundleItems(f, t, 2)
	f.assets.setRoyalty(assetAddr, royaltyAddr, big.NewInt(50))
	bundle, err := f.engine.ListBundle(seller, items, big.NewInt(1000), NativeToken)
	if err != nil {
		t.Fatalf("list bundle: %v", err)
	}
	f.ledger.fund(NativeToken, buyer, 1000)
	if err := f.engine.BuyBundle(buyer, bundle.ID, big.NewInt(1000)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	// Both items share the same collection policy: 50 each, total 100. One
	// fee of floor(1000*250/10000)=25 on the bundle total.
	if got := f.ledger.balance(NativeToken, royaltyAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("royalties = %s, want 100", got)
	}
	if got := f.ledger.balance(NativeToken, feeRecipient); got.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("fee = %s, want 25", got)
	}
	if got := f.ledger.balance(NativeToken, seller); got.Cmp(big.NewInt(875)) != 0 {
		t.Fatalf("proceeds = %s, want 875", got)
	}
}

func TestBuyBundlePaymentRules(t *testing.T) {
	f := newTestFixture(t)
	items := bundleItems(f, t, 2)
	bundle, err := f.engine.ListBundle(seller, items, big.NewInt(500), NativeToken)
	if err != nil {
		t.Fatalf("list bundle: %v", err)
	}
	f.ledger.fund(NativeToken, buyer, 1000)
	if err := f.engine.BuyBundle(buyer, bundle.ID, big.NewInt(499)); !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}
	if err := f.engine.BuyBundle(buyer, bundle.ID, big.NewInt(700)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	// Overpayment of 200 refunded.
	if got := f.ledger.balance(NativeToken, buyer); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("buyer balance = %s, want 500", got)
	}
	if err := f.engine.BuyBundle(buyer, bundle.ID, big.NewInt(500)); !errors.Is(err, ErrBundleInactive) {
		t.Fatalf("expected ErrBundleInactive, got %v", err)
	}
	if err := f.engine.BuyBundle(buyer, 99, big.NewInt(500)); !errors.Is(err, ErrBundleNotFound) {
		t.Fatalf("expected ErrBundleNotFound, got %v", err)
	}
}

// Bundle sales do not walk the per-token offer index; a pending offer on a
// bundled token survives the sale.
func TestBuyBundleDoesNotCascade(t *testing.T) {
	f := newTestFixture(t)
	items := bundleItems(f, t, 1)
	bundle, err := f.engine.ListBundle(seller, items, big.NewInt(500), NativeToken)
	if err != nil {
		t.Fatalf("list bundle: %v", err)
	}
	f.ledger.fund(payToken, offerer, 300)
	offer, err := f.engine.MakeOffer(offerer, items[0], big.NewInt(300), 0)
	if err != nil {
		t.Fatalf("make offer: %v", err)
	}
	f.ledger.fund(NativeToken, buyer, 500)
	if err := f.engine.BuyBundle(buyer, bundle.ID, big.NewInt(500)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	pending, _ := f.engine.GetOffer(offer.ID)
	if pending.Status != OfferPending {
		t.Fatalf("offer status = %v, want still pending", pending.Status)
	}
}

func TestActiveBundlesSkipsSettledListings(t *testing.T) {
	f := newTestFixture(t)
	items := bundleItems(f, t, 2)
	first, err := f.engine.ListBundle(seller, items[:1], big.NewInt(100), NativeToken)
	if err != nil {
		t.Fatalf("list first: %v", err)
	}
	second, err := f.engine.ListBundle(seller, items[1:], big.NewInt(200), NativeToken)
	if err != nil {
		t.Fatalf("list second: %v", err)
	}
	if err := f.engine.CancelBundleListing(seller, first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	active, err := f.engine.ActiveBundles()
	if err != nil {
		t.Fatalf("active bundles: %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID {
		t.Fatalf("active = %v, want only bundle %d", active, second.ID)
	}
}

func TestListBundleEscrowFailureMessage(t *testing.T) {
	f := newTestFixture(t)
	items := bundleItems(f, t, 2)
	f.assets.failNext = fmt.Errorf("custody hook rejected")
	_, err := f.engine.ListBundle(seller, items, big.NewInt(500), NativeToken)
	if err == nil {
		t.Fatalf("expected escrow failure")
	}
	if !strings.Contains(err.Error(), "bundle escrow") {
		t.Fatalf("escrow failure lacks context: %v", err)
	}
}
