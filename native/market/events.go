package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"tokenmart/core/types"
)

const (
	EventTypeItemListed    = "market.listed"
	EventTypeItemCancelled = "market.unlisted"
	EventTypeItemSold      = "market.sold"

	EventTypeOfferMade      = "market.offer.made"
	EventTypeOfferCancelled = "market.offer.cancelled"
	EventTypeOfferAccepted  = "market.offer.accepted"

	EventTypeCollectionOfferMade      = "market.collection_offer.made"
	EventTypeCollectionOfferCancelled = "market.collection_offer.cancelled"
	EventTypeCollectionOfferAccepted  = "market.collection_offer.accepted"

	EventTypeBundleListed    = "market.bundle.listed"
	EventTypeBundleCancelled = "market.bundle.cancelled"
	EventTypeBundleSold      = "market.bundle.sold"

	EventTypeRoyaltyUnavailable  = "market.royalty.unavailable"
	EventTypeRoyaltyExceedsPrice = "market.royalty.exceeds_price"
)

// Cancellation reasons carried on offer cancelled events.
const (
	CancelReasonOfferer = "offerer"
	CancelReasonCascade = "cascade"
)

func addr(b [20]byte) string { return hex.EncodeToString(b[:]) }

func listingAttrs(l *Listing) map[string]string {
	attrs := make(map[string]string)
	if l == nil {
		return attrs
	}
	attrs["asset"] = addr(l.Asset)
	attrs["tokenId"] = l.TokenID.String()
	attrs["standard"] = l.Standard.String()
	attrs["quantity"] = strconv.FormatUint(l.Quantity, 10)
	attrs["seller"] = addr(l.Seller)
	attrs["price"] = l.Price.String()
	if l.PayToken != NativeToken {
		attrs["payToken"] = addr(l.PayToken)
	}
	return attrs
}

func settlementAttrs(attrs map[string]string, s Settlement) map[string]string {
	attrs["royalty"] = s.Royalty.String()
	if s.Royalty.Sign() > 0 {
		attrs["royaltyRecipient"] = addr(s.RoyaltyRecipient)
	}
	attrs["fee"] = s.Fee.String()
	attrs["sellerProceeds"] = s.SellerProceeds.String()
	return attrs
}

// NewItemListedEvent returns the canonical payload for a new direct listing.
func NewItemListedEvent(l *Listing) *types.Event {
	return &types.Event{Type: EventTypeItemListed, Attributes: listingAttrs(l)}
}

// NewItemCancelledEvent returns the payload emitted when a listing is
// withdrawn by its seller.
func NewItemCancelledEvent(l *Listing) *types.Event {
	return &types.Event{Type: EventTypeItemCancelled, Attributes: listingAttrs(l)}
}

// NewItemSoldEvent returns the payload for a direct sale, carrying the full
// settlement breakdown.
func NewItemSoldEvent(l *Listing, buyer [20]byte, s Settlement) *types.Event {
	attrs := settlementAttrs(listingAttrs(l), s)
	attrs["buyer"] = addr(buyer)
	return &types.Event{Type: EventTypeItemSold, Attributes: attrs}
}

func offerAttrs(o *Offer) map[string]string {
	attrs := make(map[string]string)
	if o == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(o.ID, 10)
	attrs["asset"] = addr(o.Asset)
	attrs["tokenId"] = o.TokenID.String()
	attrs["standard"] = o.Standard.String()
	attrs["quantity"] = strconv.FormatUint(o.Quantity, 10)
	attrs["offerer"] = addr(o.Offerer)
	attrs["kind"] = o.Kind.String()
	switch o.Kind {
	case OfferPayment:
		attrs["amount"] = o.Amount.String()
	case OfferBarter:
		if o.Barter != nil {
			attrs["barterAsset"] = addr(o.Barter.Asset)
			attrs["barterTokenId"] = o.Barter.TokenID.String()
			attrs["barterQuantity"] = strconv.FormatUint(o.Barter.Quantity, 10)
		}
	}
	if o.Expiry > 0 {
		attrs["expiry"] = strconv.FormatInt(o.Expiry, 10)
	}
	return attrs
}

// NewOfferMadeEvent returns the payload for a newly escrowed offer.
func NewOfferMadeEvent(o *Offer) *types.Event {
	return &types.Event{Type: EventTypeOfferMade, Attributes: offerAttrs(o)}
}

// NewOfferCancelledEvent returns the payload for an offer cancellation,
// tagged with who initiated it.
func NewOfferCancelledEvent(o *Offer, reason string) *types.Event {
	attrs := offerAttrs(o)
	attrs["reason"] = reason
	attrs["status"] = o.Status.String()
	return &types.Event{Type: EventTypeOfferCancelled, Attributes: attrs}
}

// NewOfferAcceptedEvent returns the payload for an accepted offer. The
// settlement pointer is nil for barter offers, which settle as a straight
// swap.
func NewOfferAcceptedEvent(o *Offer, seller [20]byte, s *Settlement) *types.Event {
	attrs := offerAttrs(o)
	attrs["seller"] = addr(seller)
	if s != nil {
		settlementAttrs(attrs, *s)
	}
	return &types.Event{Type: EventTypeOfferAccepted, Attributes: attrs}
}

func collectionOfferAttrs(o *CollectionOffer) map[string]string {
	attrs := make(map[string]string)
	if o == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(o.ID, 10)
	attrs["collection"] = addr(o.Collection)
	attrs["offerer"] = addr(o.Offerer)
	attrs["amount"] = o.Amount.String()
	if o.Expiry > 0 {
		attrs["expiry"] = strconv.FormatInt(o.Expiry, 10)
	}
	return attrs
}

// NewCollectionOfferMadeEvent returns the payload for a new floor offer.
func NewCollectionOfferMadeEvent(o *CollectionOffer) *types.Event {
	return &types.Event{Type: EventTypeCollectionOfferMade, Attributes: collectionOfferAttrs(o)}
}

// NewCollectionOfferCancelledEvent returns the payload for a cancelled floor
// offer.
func NewCollectionOfferCancelledEvent(o *CollectionOffer) *types.Event {
	return &types.Event{Type: EventTypeCollectionOfferCancelled, Attributes: collectionOfferAttrs(o)}
}

// NewCollectionOfferAcceptedEvent returns the payload for a fulfilled floor
// offer including the fulfilling token and settlement breakdown.
func NewCollectionOfferAcceptedEvent(o *CollectionOffer, s Settlement) *types.Event {
	attrs := settlementAttrs(collectionOfferAttrs(o), s)
	if o.FulfilledTokenID != nil {
		attrs["fulfilledTokenId"] = o.FulfilledTokenID.String()
	}
	attrs["fulfiller"] = addr(o.Fulfiller)
	return &types.Event{Type: EventTypeCollectionOfferAccepted, Attributes: attrs}
}

func bundleAttrs(b *BundleListing) map[string]string {
	attrs := make(map[string]string)
	if b == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(b.ID, 10)
	attrs["seller"] = addr(b.Seller)
	attrs["items"] = strconv.Itoa(len(b.Items))
	attrs["price"] = b.Price.String()
	if b.PayToken != NativeToken {
		attrs["payToken"] = addr(b.PayToken)
	}
	return attrs
}

// NewBundleListedEvent returns the payload for a newly escrowed bundle.
func NewBundleListedEvent(b *BundleListing) *types.Event {
	return &types.Event{Type: EventTypeBundleListed, Attributes: bundleAttrs(b)}
}

// NewBundleCancelledEvent returns the payload emitted when a bundle listing
// is withdrawn.
func NewBundleCancelledEvent(b *BundleListing) *types.Event {
	return &types.Event{Type: EventTypeBundleCancelled, Attributes: bundleAttrs(b)}
}

// NewBundleSoldEvent returns the payload for a bundle sale with the
// aggregate settlement figures.
func NewBundleSoldEvent(b *BundleListing, buyer [20]byte, totalRoyalty, fee, proceeds *big.Int) *types.Event {
	attrs := bundleAttrs(b)
	attrs["buyer"] = addr(buyer)
	attrs["royalty"] = bigString(totalRoyalty)
	attrs["fee"] = bigString(fee)
	attrs["sellerProceeds"] = bigString(proceeds)
	return &types.Event{Type: EventTypeBundleSold, Attributes: attrs}
}

// NewRoyaltyUnavailableEvent records a royalty lookup failure that was
// degraded to zero royalty.
func NewRoyaltyUnavailableEvent(asset [20]byte, tokenID *big.Int, reason string) *types.Event {
	attrs := map[string]string{
		"asset":   addr(asset),
		"tokenId": bigString(tokenID),
		"reason":  reason,
	}
	return &types.Event{Type: EventTypeRoyaltyUnavailable, Attributes: attrs}
}

// NewRoyaltyExceedsPriceEvent records a royalty that was suppressed because
// it met or exceeded the sale price.
func NewRoyaltyExceedsPriceEvent(asset [20]byte, tokenID, amount, price *big.Int) *types.Event {
	attrs := map[string]string{
		"asset":   addr(asset),
		"tokenId": bigString(tokenID),
		"royalty": bigString(amount),
		"price":   bigString(price),
	}
	return &types.Event{Type: EventTypeRoyaltyExceedsPrice, Attributes: attrs}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
