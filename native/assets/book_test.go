package assets

import (
	"errors"
	"math/big"
	"testing"

	"tokenmart/native/market"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var (
	alice    = testAddr(0x01)
	bob      = testAddr(0x02)
	operator = testAddr(0x0E)
	nftAddr  = testAddr(0xA1)
)

func single(tokenID int64) market.NFTItem {
	return market.NFTItem{Asset: nftAddr, TokenID: big.NewInt(tokenID), Standard: market.StandardSingle, Quantity: 1}
}

func multi(tokenID int64, qty uint64) market.NFTItem {
	return market.NFTItem{Asset: nftAddr, TokenID: big.NewInt(tokenID), Standard: market.StandardMulti, Quantity: qty}
}

func TestSingleUnitTransfer(t *testing.T) {
	book := NewBook()
	book.MintSingle(alice, nftAddr, big.NewInt(1))

	owner, err := book.OwnerOf(nftAddr, big.NewInt(1))
	if err != nil || owner != alice {
		t.Fatalf("owner = %v (%v), want alice", owner, err)
	}
	if err := book.Transfer(bob, alice, single(1)); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := book.Transfer(alice, bob, single(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, _ = book.OwnerOf(nftAddr, big.NewInt(1))
	if owner != bob {
		t.Fatalf("owner = %v, want bob", owner)
	}
	if _, err := book.OwnerOf(nftAddr, big.NewInt(99)); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestSingleUnitTransferClearsTokenApproval(t *testing.T) {
	book := NewBook()
	book.MintSingle(alice, nftAddr, big.NewInt(1))
	book.ApproveToken(alice, operator, nftAddr, big.NewInt(1))

	approved, err := book.IsApproved(alice, operator, single(1))
	if err != nil || !approved {
		t.Fatalf("per-token approval not honored")
	}
	if err := book.Transfer(alice, bob, single(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	approved, _ = book.IsApproved(bob, operator, single(1))
	if approved {
		t.Fatalf("per-token approval must not survive a transfer")
	}
}

func TestApproveTokenRequiresOwnership(t *testing.T) {
	book := NewBook()
	book.MintSingle(alice, nftAddr, big.NewInt(1))
	book.ApproveToken(bob, operator, nftAddr, big.NewInt(1))
	if approved, _ := book.IsApproved(alice, operator, single(1)); approved {
		t.Fatalf("non-owner approval must be ignored")
	}
}

func TestOperatorApproval(t *testing.T) {
	book := NewBook()
	book.MintMulti(alice, nftAddr, big.NewInt(2), 10)
	if approved, _ := book.IsApproved(alice, operator, multi(2, 5)); approved {
		t.Fatalf("approval reported before grant")
	}
	book.ApproveAll(alice, operator, nftAddr, true)
	if approved, _ := book.IsApproved(alice, operator, multi(2, 5)); !approved {
		t.Fatalf("blanket approval not honored")
	}
	book.ApproveAll(alice, operator, nftAddr, false)
	if approved, _ := book.IsApproved(alice, operator, multi(2, 5)); approved {
		t.Fatalf("revoked approval still honored")
	}
}

func TestMultiUnitTransfer(t *testing.T) {
	book := NewBook()
	book.MintMulti(alice, nftAddr, big.NewInt(2), 10)

	if err := book.Transfer(alice, bob, multi(2, 11)); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient, got %v", err)
	}
	if err := book.Transfer(alice, bob, multi(2, 0)); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if err := book.Transfer(alice, bob, multi(2, 4)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	balance, _ := book.BalanceOf(alice, nftAddr, big.NewInt(2))
	if balance != 6 {
		t.Fatalf("alice balance = %d, want 6", balance)
	}
	balance, _ = book.BalanceOf(bob, nftAddr, big.NewInt(2))
	if balance != 4 {
		t.Fatalf("bob balance = %d, want 4", balance)
	}
}

func TestRoyaltyPolicy(t *testing.T) {
	book := NewBook()
	if book.SupportsRoyalty(nftAddr) {
		t.Fatalf("royalty supported before any policy")
	}
	recipient := testAddr(0x04)
	book.SetRoyalty(nftAddr, recipient, 500)
	if !book.SupportsRoyalty(nftAddr) {
		t.Fatalf("royalty policy not visible")
	}
	got, amount, err := book.RoyaltyInfo(nftAddr, big.NewInt(1), big.NewInt(1000))
	if err != nil {
		t.Fatalf("royalty info: %v", err)
	}
	if got != recipient {
		t.Fatalf("recipient mismatch")
	}
	if amount.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("amount = %s, want floor(1000*500/10000)=50", amount)
	}
	_, amount, err = book.RoyaltyInfo(nftAddr, big.NewInt(1), nil)
	if err != nil || amount.Sign() != 0 {
		t.Fatalf("nil price must yield zero royalty, got %s (%v)", amount, err)
	}
}
