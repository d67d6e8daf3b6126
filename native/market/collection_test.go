package market

import (
	"errors"
	"math/big"
	"testing"
)

func TestMakeCollectionOfferEscrowsAmount(t *testing.T) {
	f := newTestFixture(t)
	f.ledger.fund(payToken, offerer, 800)
	offer, err := f.engine.MakeCollectionOffer(offerer, assetAddr, big.NewInt(800), 0)
	if err != nil {
		t.Fatalf("make collection offer: %v", err)
	}
	if offer.Status != CollectionOfferPending {
		t.Fatalf("status = %v, want pending", offer.Status)
	}
	if got := f.vaultBalance(payToken); got.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("vault escrow = %s, want 800", got)
	}
}

func TestCancelCollectionOfferRefunds(t *testing.T) {
	f := newTestFixture(t)
	f.ledger.fund(payToken, offerer, 800)
	offer, err := f.engine.MakeCollectionOffer(offerer, assetAddr, big.NewInt(800), 0)
	if err != nil {
		t.Fatalf("make collection offer: %v", err)
	}
	if err := f.engine.CancelCollectionOffer(buyer, offer.ID); !errors.Is(err, ErrNotOfferer) {
		t.Fatalf("expected ErrNotOfferer, got %v", err)
	}
	if err := f.engine.CancelCollectionOffer(offerer, offer.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := f.ledger.balance(payToken, offerer); got.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("refund = %s, want 800", got)
	}
	if err := f.engine.CancelCollectionOffer(offerer, offer.ID); !errors.Is(err, ErrOfferNotPending) {
		t.Fatalf("expected ErrOfferNotPending, got %v", err)
	}
}

func TestAcceptCollectionOfferSettles(t *testing.T) {
	f := newTestFixture(t)
	tokenID := big.NewInt(42)
	f.assets.mintSingle(seller, assetAddr, tokenID)
	f.assets.approveAll(seller, f.engine.Vault())
	f.assets.setRoyalty(assetAddr, royaltyAddr, big.NewInt(100))
	f.ledger.fund(payToken, offerer, 1000)

	offer, err := f.engine.MakeCollectionOffer(offerer, assetAddr, big.NewInt(1000), 0)
	if err != nil {
		t.Fatalf("make collection offer: %v", err)
	}
	if err := f.engine.AcceptCollectionOffer(seller, offer.ID, tokenID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	stored, _ := f.engine.GetCollectionOffer(offer.ID)
	if stored.Status != CollectionOfferAccepted {
		t.Fatalf("status = %v, want accepted", stored.Status)
	}
	if stored.FulfilledTokenID == nil || stored.FulfilledTokenID.Cmp(tokenID) != 0 {
		t.Fatalf("fulfilled token id = %v, want %s", stored.FulfilledTokenID, tokenID)
	}
	if stored.Fulfiller != seller {
		t.Fatalf("fulfiller mismatch")
	}
	if got := f.ledger.balance(payToken, royaltyAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("royalty = %s, want 100", got)
	}
	if got := f.ledger.balance(payToken, seller); got.Cmp(big.NewInt(875)) != 0 {
		t.Fatalf("fulfiller proceeds = %s, want 875", got)
	}
	owner, _ := f.assets.OwnerOf(assetAddr, tokenID)
	if owner != offerer {
		t.Fatalf("token not delivered to offerer")
	}
	// Already processed.
	if err := f.engine.AcceptCollectionOffer(seller, offer.ID, tokenID); !errors.Is(err, ErrOfferNotPending) {
		t.Fatalf("expected ErrOfferNotPending, got %v", err)
	}
}

func TestAcceptCollectionOfferGuards(t *testing.T) {
	f := newTestFixture(t)
	tokenID := big.NewInt(42)
	f.ledger.fund(payToken, offerer, 1000)
	offer, err := f.engine.MakeCollectionOffer(offerer, assetAddr, big.NewInt(500), f.now+100)
	if err != nil {
		t.Fatalf("make collection offer: %v", err)
	}
	if err := f.engine.AcceptCollectionOffer(offerer, offer.ID, tokenID); !errors.Is(err, ErrSelfTrade) {
		t.Fatalf("expected ErrSelfTrade, got %v", err)
	}
	// Caller does not hold the token.
	if err := f.engine.AcceptCollectionOffer(seller, offer.ID, tokenID); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}
	f.now += 200
	if err := f.engine.AcceptCollectionOffer(seller, offer.ID, tokenID); !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("expected ErrOfferExpired, got %v", err)
	}
}

// Fulfilling a floor offer deliberately leaves token-scoped offers on the
// fulfilled token pending. Floor offers are collection-wide and sit outside
// the per-token index, so no cascade runs.
func TestAcceptCollectionOfferLeavesTokenOffersPending(t *testing.T) {
	f := newTestFixture(t)
	tokenID := big.NewInt(42)
	f.assets.mintSingle(seller, assetAddr, tokenID)
	f.assets.approveAll(seller, f.engine.Vault())
	f.ledger.fund(payToken, offerer, 1000)
	tokenOfferer := newTestAddress(0x21)
	f.ledger.fund(payToken, tokenOfferer, 400)

	tokenOffer, err := f.engine.MakeOffer(tokenOfferer, NFTItem{Asset: assetAddr, TokenID: tokenID, Standard: StandardSingle, Quantity: 1}, big.NewInt(400), 0)
	if err != nil {
		t.Fatalf("make token offer: %v", err)
	}
	floor, err := f.engine.MakeCollectionOffer(offerer, assetAddr, big.NewInt(1000), 0)
	if err != nil {
		t.Fatalf("make floor offer: %v", err)
	}
	if err := f.engine.AcceptCollectionOffer(seller, floor.ID, tokenID); err != nil {
		t.Fatalf("accept floor offer: %v", err)
	}

	pending, _ := f.engine.GetOffer(tokenOffer.ID)
	if pending.Status != OfferPending {
		t.Fatalf("token offer status = %v, want still pending", pending.Status)
	}
	if ids := f.engine.PendingOffers(assetAddr, tokenID); len(ids) != 1 || ids[0] != tokenOffer.ID {
		t.Fatalf("index = %v, want [%d]", ids, tokenOffer.ID)
	}
	// Its escrow stays in the vault untouched.
	if got := f.vaultBalance(payToken); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("vault balance = %s, want 400", got)
	}
}
