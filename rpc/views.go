package rpc

import (
	"math/big"

	"tokenmart/crypto"
	"tokenmart/native/market"
)

// View types render engine records with bech32 addresses and decimal string
// amounts so JSON clients never see raw byte arrays or lose big.Int precision.

type ItemView struct {
	Asset    string `json:"asset"`
	TokenID  string `json:"tokenId"`
	Standard string `json:"standard"`
	Quantity uint64 `json:"quantity"`
}

type ListingView struct {
	Asset     string `json:"asset"`
	TokenID   string `json:"tokenId"`
	Standard  string `json:"standard"`
	Quantity  uint64 `json:"quantity"`
	Seller    string `json:"seller"`
	Price     string `json:"price"`
	PayToken  string `json:"payToken"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"createdAt"`
}

type OfferView struct {
	ID        uint64    `json:"id"`
	Asset     string    `json:"asset"`
	TokenID   string    `json:"tokenId"`
	Standard  string    `json:"standard"`
	Quantity  uint64    `json:"quantity"`
	Offerer   string    `json:"offerer"`
	Status    string    `json:"status"`
	Kind      string    `json:"kind"`
	PayToken  string    `json:"payToken"`
	Amount    string    `json:"amount"`
	Barter    *ItemView `json:"barter,omitempty"`
	Expiry    int64     `json:"expiry"`
	CreatedAt int64     `json:"createdAt"`
}

type CollectionOfferView struct {
	ID               uint64 `json:"id"`
	Collection       string `json:"collection"`
	Offerer          string `json:"offerer"`
	PayToken         string `json:"payToken"`
	Amount           string `json:"amount"`
	Status           string `json:"status"`
	FulfilledTokenID string `json:"fulfilledTokenId,omitempty"`
	Fulfiller        string `json:"fulfiller,omitempty"`
	Expiry           int64  `json:"expiry"`
	CreatedAt        int64  `json:"createdAt"`
}

type BundleView struct {
	ID        uint64     `json:"id"`
	Seller    string     `json:"seller"`
	Items     []ItemView `json:"items"`
	Price     string     `json:"price"`
	PayToken  string     `json:"payToken"`
	Active    bool       `json:"active"`
	CreatedAt int64      `json:"createdAt"`
}

func decodeBech32(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func encodeAddr(raw [20]byte) string {
	return crypto.EncodeAddress(raw)
}

func encodeToken(raw [20]byte) string {
	if raw == market.NativeToken {
		return ""
	}
	return crypto.EncodeAddress(raw)
}

func bigText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func itemView(item market.NFTItem) ItemView {
	return ItemView{
		Asset:    encodeAddr(item.Asset),
		TokenID:  bigText(item.TokenID),
		Standard: item.Standard.String(),
		Quantity: item.Quantity,
	}
}

func listingView(l *market.Listing) *ListingView {
	if l == nil {
		return nil
	}
	return &ListingView{
		Asset:     encodeAddr(l.Asset),
		TokenID:   bigText(l.TokenID),
		Standard:  l.Standard.String(),
		Quantity:  l.Quantity,
		Seller:    encodeAddr(l.Seller),
		Price:     bigText(l.Price),
		PayToken:  encodeToken(l.PayToken),
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
	}
}

func offerView(o *market.Offer) *OfferView {
	if o == nil {
		return nil
	}
	view := &OfferView{
		ID:        o.ID,
		Asset:     encodeAddr(o.Asset),
		TokenID:   bigText(o.TokenID),
		Standard:  o.Standard.String(),
		Quantity:  o.Quantity,
		Offerer:   encodeAddr(o.Offerer),
		Status:    o.Status.String(),
		Kind:      o.Kind.String(),
		PayToken:  encodeToken(o.PayToken),
		Amount:    bigText(o.Amount),
		Expiry:    o.Expiry,
		CreatedAt: o.CreatedAt,
	}
	if o.Barter != nil {
		barter := itemView(*o.Barter)
		view.Barter = &barter
	}
	return view
}

func collectionOfferView(o *market.CollectionOffer) *CollectionOfferView {
	if o == nil {
		return nil
	}
	view := &CollectionOfferView{
		ID:         o.ID,
		Collection: encodeAddr(o.Collection),
		Offerer:    encodeAddr(o.Offerer),
		PayToken:   encodeToken(o.PayToken),
		Amount:     bigText(o.Amount),
		Status:     o.Status.String(),
		Expiry:     o.Expiry,
		CreatedAt:  o.CreatedAt,
	}
	if o.FulfilledTokenID != nil {
		view.FulfilledTokenID = o.FulfilledTokenID.String()
		view.Fulfiller = encodeAddr(o.Fulfiller)
	}
	return view
}

func bundleView(b *market.BundleListing) *BundleView {
	if b == nil {
		return nil
	}
	items := make([]ItemView, 0, len(b.Items))
	for _, item := range b.Items {
		items = append(items, itemView(item))
	}
	return &BundleView{
		ID:        b.ID,
		Seller:    encodeAddr(b.Seller),
		Items:     items,
		Price:     bigText(b.Price),
		PayToken:  encodeToken(b.PayToken),
		Active:    b.Active,
		CreatedAt: b.CreatedAt,
	}
}
