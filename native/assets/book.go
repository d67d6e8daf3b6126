// Package assets provides the in-process reference implementations of the
// collaborators the market engine consumes: an asset book covering both
// token standards with their approval models, a royalty table, and a
// fungible-balance ledger. A node embedding the engine against real external
// registries would swap these for adapters satisfying the same interfaces.
package assets

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"tokenmart/native/market"
)

var (
	ErrUnknownToken    = errors.New("assets: unknown token")
	ErrNotOwner        = errors.New("assets: transfer from non-owner")
	ErrInsufficient    = errors.New("assets: insufficient balance")
	ErrInvalidQuantity = errors.New("assets: invalid quantity")
)

type tokenKey struct {
	asset   [20]byte
	tokenID string
}

type holdingKey struct {
	holder [20]byte
	tokenKey
}

type operatorKey struct {
	owner    [20]byte
	operator [20]byte
	asset    [20]byte
}

// RoyaltyPolicy configures the royalty obligation of one collection.
type RoyaltyPolicy struct {
	Recipient [20]byte
	Bps       uint32
}

// Book tracks single-unit ownership, multi-unit balances, approvals and
// per-collection royalty policies. It implements both market.AssetTransferor
// and market.RoyaltyLookup.
type Book struct {
	mu sync.RWMutex

	owners            map[tokenKey][20]byte
	tokenApprovals    map[tokenKey][20]byte
	operatorApprovals map[operatorKey]bool
	balances          map[holdingKey]uint64
	royalties         map[[20]byte]RoyaltyPolicy
}

// NewBook returns an empty asset book.
func NewBook() *Book {
	return &Book{
		owners:            make(map[tokenKey][20]byte),
		tokenApprovals:    make(map[tokenKey][20]byte),
		operatorApprovals: make(map[operatorKey]bool),
		balances:          make(map[holdingKey]uint64),
		royalties:         make(map[[20]byte]RoyaltyPolicy),
	}
}

func key(asset [20]byte, tokenID *big.Int) tokenKey {
	id := "0"
	if tokenID != nil {
		id = tokenID.String()
	}
	return tokenKey{asset: asset, tokenID: id}
}

// MintSingle assigns a single-unit token to a holder.
func (b *Book) MintSingle(holder [20]byte, asset [20]byte, tokenID *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owners[key(asset, tokenID)] = holder
}

// MintMulti credits a holder with quantity units of a multi-unit token.
func (b *Book) MintMulti(holder [20]byte, asset [20]byte, tokenID *big.Int, quantity uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := holdingKey{holder: holder, tokenKey: key(asset, tokenID)}
	b.balances[k] += quantity
}

// ApproveToken grants an operator a per-token approval for one single-unit
// token.
func (b *Book) ApproveToken(owner, operator [20]byte, asset [20]byte, tokenID *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.owners[key(asset, tokenID)] == owner {
		b.tokenApprovals[key(asset, tokenID)] = operator
	}
}

// ApproveAll grants or revokes a blanket operator approval for every token
// the owner holds in the asset.
func (b *Book) ApproveAll(owner, operator [20]byte, asset [20]byte, approved bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.operatorApprovals[operatorKey{owner: owner, operator: operator, asset: asset}] = approved
}

// SetRoyalty configures the royalty policy of a collection. Bps above 10000
// are stored as-is; the engine's settlement rules cap the effect.
func (b *Book) SetRoyalty(asset [20]byte, recipient [20]byte, bps uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.royalties[asset] = RoyaltyPolicy{Recipient: recipient, Bps: bps}
}

// Transfer implements market.AssetTransferor. Approval checks are the
// engine's responsibility; the book only enforces custody.
func (b *Book) Transfer(from, to [20]byte, item market.NFTItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(item.Asset, item.TokenID)
	switch item.Standard {
	case market.StandardSingle:
		if item.Quantity != 1 {
			return ErrInvalidQuantity
		}
		owner, ok := b.owners[k]
		if !ok {
			return ErrUnknownToken
		}
		if owner != from {
			return ErrNotOwner
		}
		b.owners[k] = to
		delete(b.tokenApprovals, k)
		return nil
	case market.StandardMulti:
		if item.Quantity == 0 {
			return ErrInvalidQuantity
		}
		fromKey := holdingKey{holder: from, tokenKey: k}
		if b.balances[fromKey] < item.Quantity {
			return ErrInsufficient
		}
		b.balances[fromKey] -= item.Quantity
		b.balances[holdingKey{holder: to, tokenKey: k}] += item.Quantity
		return nil
	default:
		return fmt.Errorf("assets: invalid standard %d", item.Standard)
	}
}

// OwnerOf implements market.AssetTransferor for single-unit tokens.
func (b *Book) OwnerOf(asset [20]byte, tokenID *big.Int) ([20]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	owner, ok := b.owners[key(asset, tokenID)]
	if !ok {
		return [20]byte{}, ErrUnknownToken
	}
	return owner, nil
}

// BalanceOf implements market.AssetTransferor for multi-unit tokens.
func (b *Book) BalanceOf(holder [20]byte, asset [20]byte, tokenID *big.Int) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[holdingKey{holder: holder, tokenKey: key(asset, tokenID)}], nil
}

// IsApproved implements market.AssetTransferor. Single-unit tokens honor
// per-token and blanket approvals; multi-unit tokens blanket only.
func (b *Book) IsApproved(owner, operator [20]byte, item market.NFTItem) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.operatorApprovals[operatorKey{owner: owner, operator: operator, asset: item.Asset}] {
		return true, nil
	}
	if item.Standard == market.StandardSingle {
		return b.tokenApprovals[key(item.Asset, item.TokenID)] == operator, nil
	}
	return false, nil
}

// SupportsRoyalty implements market.RoyaltyLookup.
func (b *Book) SupportsRoyalty(asset [20]byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.royalties[asset]
	return ok
}

// RoyaltyInfo implements market.RoyaltyLookup using a bps-of-price policy.
func (b *Book) RoyaltyInfo(asset [20]byte, tokenID *big.Int, salePrice *big.Int) ([20]byte, *big.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	policy, ok := b.royalties[asset]
	if !ok {
		return [20]byte{}, nil, fmt.Errorf("assets: no royalty policy for collection")
	}
	if salePrice == nil || salePrice.Sign() <= 0 {
		return policy.Recipient, big.NewInt(0), nil
	}
	amount := new(big.Int).Mul(salePrice, big.NewInt(int64(policy.Bps)))
	amount.Div(amount, big.NewInt(10_000))
	return policy.Recipient, amount, nil
}
