package market

import (
	"fmt"
	"math/big"
)

// Standard identifies the transfer semantics of a tokenized asset.
type Standard uint8

const (
	// StandardSingle covers non-fungible tokens with exactly one holder per
	// token id.
	StandardSingle Standard = iota + 1
	// StandardMulti covers semi-fungible tokens tracked by per-holder
	// balances.
	StandardMulti
)

// Valid reports whether the standard value is supported.
func (s Standard) Valid() bool {
	switch s {
	case StandardSingle, StandardMulti:
		return true
	default:
		return false
	}
}

func (s Standard) String() string {
	switch s {
	case StandardSingle:
		return "single"
	case StandardMulti:
		return "multi"
	default:
		return fmt.Sprintf("standard(%d)", uint8(s))
	}
}

// NativeToken is the sentinel payment token denoting the native currency.
var NativeToken = [20]byte{}

// NFTItem identifies a quantity of one asset. It is the unit escrowed by
// bundle listings and barter offers.
type NFTItem struct {
	Asset    [20]byte `json:"asset"`
	TokenID  *big.Int `json:"tokenId"`
	Standard Standard `json:"standard"`
	Quantity uint64   `json:"quantity"`
}

// Clone returns a deep copy of the item.
func (i NFTItem) Clone() NFTItem {
	clone := i
	if i.TokenID != nil {
		clone.TokenID = new(big.Int).Set(i.TokenID)
	} else {
		clone.TokenID = big.NewInt(0)
	}
	return clone
}

// SanitizeItem validates the standard/quantity pairing of an item and returns
// a cloned instance with a non-nil token id.
func SanitizeItem(i NFTItem) (NFTItem, error) {
	clone := i.Clone()
	if !clone.Standard.Valid() {
		return NFTItem{}, fmt.Errorf("market: invalid asset standard %d", clone.Standard)
	}
	if clone.TokenID.Sign() < 0 {
		return NFTItem{}, fmt.Errorf("market: token id must be non-negative")
	}
	switch clone.Standard {
	case StandardSingle:
		if clone.Quantity != 1 {
			return NFTItem{}, fmt.Errorf("market: single-unit assets require quantity 1")
		}
	case StandardMulti:
		if clone.Quantity == 0 {
			return NFTItem{}, fmt.Errorf("market: quantity must be positive")
		}
	}
	return clone, nil
}

// Listing records a direct sale of a single escrowed asset. Listings are kept
// after they resolve; the Active flag distinguishes live listings from
// history.
type Listing struct {
	Asset     [20]byte `json:"asset"`
	TokenID   *big.Int `json:"tokenId"`
	Standard  Standard `json:"standard"`
	Quantity  uint64   `json:"quantity"`
	Seller    [20]byte `json:"seller"`
	Price     *big.Int `json:"price"`
	PayToken  [20]byte `json:"payToken"`
	Active    bool     `json:"active"`
	CreatedAt int64    `json:"createdAt"`
}

// Item returns the escrowed asset of the listing as an NFTItem.
func (l *Listing) Item() NFTItem {
	return NFTItem{Asset: l.Asset, TokenID: l.TokenID, Standard: l.Standard, Quantity: l.Quantity}
}

// Clone returns a deep copy of the listing so callers can safely mutate the
// copy without affecting the stored instance.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.TokenID != nil {
		clone.TokenID = new(big.Int).Set(l.TokenID)
	} else {
		clone.TokenID = big.NewInt(0)
	}
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// SanitizeListing validates and normalises the supplied listing, returning a
// cloned instance with non-nil numeric fields. The original is not mutated.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("market: nil listing")
	}
	clone := l.Clone()
	if _, err := SanitizeItem(clone.Item()); err != nil {
		return nil, err
	}
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("market: listing price must be positive")
	}
	return clone, nil
}

// OfferStatus represents the lifecycle states of a token-scoped offer. The
// terminal states are immutable once reached.
type OfferStatus uint8

const (
	OfferPending OfferStatus = iota + 1
	OfferAccepted
	OfferCancelled
	OfferExpired
)

// Valid reports whether the status value is within the supported range.
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferPending, OfferAccepted, OfferCancelled, OfferExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is final.
func (s OfferStatus) Terminal() bool {
	return s == OfferAccepted || s == OfferCancelled || s == OfferExpired
}

func (s OfferStatus) String() string {
	switch s {
	case OfferPending:
		return "pending"
	case OfferAccepted:
		return "accepted"
	case OfferCancelled:
		return "cancelled"
	case OfferExpired:
		return "expired"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// OfferKind distinguishes the escrowed consideration of an offer.
type OfferKind uint8

const (
	// OfferPayment escrows an amount of the canonical payment token.
	OfferPayment OfferKind = iota + 1
	// OfferBarter escrows a counter-asset to be swapped for the target.
	OfferBarter
)

// Valid reports whether the kind value is supported.
func (k OfferKind) Valid() bool {
	return k == OfferPayment || k == OfferBarter
}

func (k OfferKind) String() string {
	switch k {
	case OfferPayment:
		return "payment"
	case OfferBarter:
		return "barter"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Offer captures a token-scoped offer and its escrowed consideration. The
// escrow is held by the engine vault from creation until the offer leaves
// the pending state.
type Offer struct {
	ID        uint64      `json:"id"`
	Asset     [20]byte    `json:"asset"`
	TokenID   *big.Int    `json:"tokenId"`
	Standard  Standard    `json:"standard"`
	Quantity  uint64      `json:"quantity"`
	Offerer   [20]byte    `json:"offerer"`
	Status    OfferStatus `json:"status"`
	Kind      OfferKind   `json:"kind"`
	PayToken  [20]byte    `json:"payToken"`
	Amount    *big.Int    `json:"amount"`
	Barter    *NFTItem    `json:"barter,omitempty"`
	Expiry    int64       `json:"expiry"`
	CreatedAt int64       `json:"createdAt"`
}

// Target returns the asset the offer wants to acquire.
func (o *Offer) Target() NFTItem {
	return NFTItem{Asset: o.Asset, TokenID: o.TokenID, Standard: o.Standard, Quantity: o.Quantity}
}

// ExpiredAt reports whether the offer deadline has elapsed at the given time.
// A zero expiry never elapses.
func (o *Offer) ExpiredAt(now int64) bool {
	return o.Expiry > 0 && now >= o.Expiry
}

// Clone returns a deep copy of the offer.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	if o.TokenID != nil {
		clone.TokenID = new(big.Int).Set(o.TokenID)
	} else {
		clone.TokenID = big.NewInt(0)
	}
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	if o.Barter != nil {
		barter := o.Barter.Clone()
		clone.Barter = &barter
	}
	return &clone
}

// SanitizeOffer validates and normalises the supplied offer, returning a
// cloned instance. The original is not mutated.
func SanitizeOffer(o *Offer) (*Offer, error) {
	if o == nil {
		return nil, fmt.Errorf("market: nil offer")
	}
	clone := o.Clone()
	if _, err := SanitizeItem(clone.Target()); err != nil {
		return nil, err
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("market: invalid offer status %d", clone.Status)
	}
	if !clone.Kind.Valid() {
		return nil, fmt.Errorf("market: invalid offer kind %d", clone.Kind)
	}
	switch clone.Kind {
	case OfferPayment:
		if clone.Amount.Sign() <= 0 {
			return nil, fmt.Errorf("market: offer amount must be positive")
		}
		if clone.Barter != nil {
			return nil, fmt.Errorf("market: payment offer carries a barter item")
		}
	case OfferBarter:
		if clone.Barter == nil {
			return nil, fmt.Errorf("market: barter offer missing counter-asset")
		}
		barter, err := SanitizeItem(*clone.Barter)
		if err != nil {
			return nil, err
		}
		clone.Barter = &barter
	}
	if clone.Expiry < 0 {
		return nil, fmt.Errorf("market: offer expiry must be non-negative")
	}
	return clone, nil
}

// CollectionOfferStatus represents the lifecycle of a collection-wide floor
// offer.
type CollectionOfferStatus uint8

const (
	CollectionOfferPending CollectionOfferStatus = iota + 1
	CollectionOfferAccepted
	CollectionOfferCancelled
)

// Valid reports whether the status value is within the supported range.
func (s CollectionOfferStatus) Valid() bool {
	switch s {
	case CollectionOfferPending, CollectionOfferAccepted, CollectionOfferCancelled:
		return true
	default:
		return false
	}
}

func (s CollectionOfferStatus) String() string {
	switch s {
	case CollectionOfferPending:
		return "pending"
	case CollectionOfferAccepted:
		return "accepted"
	case CollectionOfferCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// CollectionOffer is a floor offer against an entire collection, fulfillable
// by any holder of a token in it. It is not tied to one token id and is never
// tracked by the per-token offer index.
type CollectionOffer struct {
	ID               uint64                `json:"id"`
	Collection       [20]byte              `json:"collection"`
	Offerer          [20]byte              `json:"offerer"`
	PayToken         [20]byte              `json:"payToken"`
	Amount           *big.Int              `json:"amount"`
	Status           CollectionOfferStatus `json:"status"`
	FulfilledTokenID *big.Int              `json:"fulfilledTokenId,omitempty"`
	Fulfiller        [20]byte              `json:"fulfiller"`
	Expiry           int64                 `json:"expiry"`
	CreatedAt        int64                 `json:"createdAt"`
}

// ExpiredAt reports whether the offer deadline has elapsed at the given time.
func (o *CollectionOffer) ExpiredAt(now int64) bool {
	return o.Expiry > 0 && now >= o.Expiry
}

// Clone returns a deep copy of the collection offer.
func (o *CollectionOffer) Clone() *CollectionOffer {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	if o.FulfilledTokenID != nil {
		clone.FulfilledTokenID = new(big.Int).Set(o.FulfilledTokenID)
	}
	return &clone
}

// SanitizeCollectionOffer validates and normalises the supplied offer.
func SanitizeCollectionOffer(o *CollectionOffer) (*CollectionOffer, error) {
	if o == nil {
		return nil, fmt.Errorf("market: nil collection offer")
	}
	clone := o.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("market: collection offer amount must be positive")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("market: invalid collection offer status %d", clone.Status)
	}
	if clone.Expiry < 0 {
		return nil, fmt.Errorf("market: collection offer expiry must be non-negative")
	}
	return clone, nil
}

// BundleListing escrows a fixed set of assets sold atomically as one unit.
type BundleListing struct {
	ID        uint64    `json:"id"`
	Seller    [20]byte  `json:"seller"`
	Items     []NFTItem `json:"items"`
	Price     *big.Int  `json:"price"`
	PayToken  [20]byte  `json:"payToken"`
	Active    bool      `json:"active"`
	CreatedAt int64     `json:"createdAt"`
}

// Clone returns a deep copy of the bundle listing.
func (b *BundleListing) Clone() *BundleListing {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Price != nil {
		clone.Price = new(big.Int).Set(b.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	clone.Items = make([]NFTItem, len(b.Items))
	for i, item := range b.Items {
		clone.Items[i] = item.Clone()
	}
	return &clone
}

// SanitizeBundle validates and normalises the supplied bundle listing.
func SanitizeBundle(b *BundleListing) (*BundleListing, error) {
	if b == nil {
		return nil, fmt.Errorf("market: nil bundle listing")
	}
	clone := b.Clone()
	if len(clone.Items) == 0 {
		return nil, fmt.Errorf("market: bundle must contain at least one item")
	}
	for i, item := range clone.Items {
		sanitized, err := SanitizeItem(item)
		if err != nil {
			return nil, err
		}
		clone.Items[i] = sanitized
	}
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("market: bundle price must be positive")
	}
	return clone, nil
}
