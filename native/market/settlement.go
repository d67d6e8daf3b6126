package market

import (
	"math/big"
)

// RoyaltyResult is the outcome of a royalty lookup for one asset at a given
// sale price.
type RoyaltyResult struct {
	Recipient [20]byte
	Amount    *big.Int
}

// Settlement is the exact split of a gross sale price. The parts always sum
// to the price: floor division pushes any rounding remainder into the seller
// proceeds.
type Settlement struct {
	Price            *big.Int
	Royalty          *big.Int
	RoyaltyRecipient [20]byte
	Fee              *big.Int
	SellerProceeds   *big.Int
}

// ComputeSettlement splits a gross price into royalty, marketplace fee and
// seller proceeds. A nil royalty result, or a royalty amount that meets or
// exceeds the price, is treated as zero royalty; the caller is responsible
// for publishing the corresponding diagnostic. The fee is floor(price*bps/
// 10000) clamped so the total deductions can never exceed the price.
func ComputeSettlement(price *big.Int, royalty *RoyaltyResult, feeBps uint32) Settlement {
	s := Settlement{
		Price:          big.NewInt(0),
		Royalty:        big.NewInt(0),
		Fee:            big.NewInt(0),
		SellerProceeds: big.NewInt(0),
	}
	if price == nil || price.Sign() <= 0 {
		return s
	}
	s.Price = new(big.Int).Set(price)
	if royalty != nil && royalty.Amount != nil && royalty.Amount.Sign() > 0 && royalty.Amount.Cmp(price) < 0 {
		s.Royalty = new(big.Int).Set(royalty.Amount)
		s.RoyaltyRecipient = royalty.Recipient
	}
	remaining := new(big.Int).Sub(s.Price, s.Royalty)
	if feeBps > 0 {
		fee := new(big.Int).Mul(s.Price, big.NewInt(int64(feeBps)))
		fee.Div(fee, big.NewInt(10_000))
		if fee.Cmp(remaining) > 0 {
			fee = new(big.Int).Set(remaining)
		}
		s.Fee = fee
	}
	s.SellerProceeds = new(big.Int).Sub(remaining, s.Fee)
	return s
}

// RoyaltySuppressed reports whether a looked-up royalty would be suppressed
// by ComputeSettlement because it meets or exceeds the price.
func RoyaltySuppressed(price *big.Int, royalty *RoyaltyResult) bool {
	if royalty == nil || royalty.Amount == nil || royalty.Amount.Sign() <= 0 {
		return false
	}
	return price == nil || royalty.Amount.Cmp(price) >= 0
}

// BundleShare returns the equal price share attributed to each item of a
// bundle: floor(total/items). Per-item royalties are computed against this
// share; the remainder implicitly accrues to the seller.
func BundleShare(total *big.Int, items int) *big.Int {
	if total == nil || total.Sign() <= 0 || items <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Div(total, big.NewInt(int64(items)))
}

// BundleFee computes the single marketplace fee assessed on a bundle sale:
// floor(total*bps/10000), capped by what remains after the realized
// royalties so the deductions can never exceed the bundle price.
func BundleFee(total, totalRoyalty *big.Int, feeBps uint32) *big.Int {
	if total == nil || total.Sign() <= 0 || feeBps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(total, big.NewInt(int64(feeBps)))
	fee.Div(fee, big.NewInt(10_000))
	remaining := new(big.Int).Set(total)
	if totalRoyalty != nil && totalRoyalty.Sign() > 0 {
		remaining.Sub(remaining, totalRoyalty)
	}
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	if fee.Cmp(remaining) > 0 {
		fee = remaining
	}
	return fee
}
