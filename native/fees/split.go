// Package fees computes how the proceeds of a primary sale are divided
// between the platform, the royalty receiver and the seller.
package fees

import (
	"errors"
	"math/big"
)

const (
	// WeightDecimal scales profit share percentages: 10% is 10 * WeightDecimal.
	WeightDecimal = 1_000_000
	// RoyaltyDenominator is the basis of royalty fee numerators (10000 = 100%).
	RoyaltyDenominator = 10_000
)

var (
	errNegativeAmount   = errors.New("fees: amount must be non-negative")
	errProfitShareRange = errors.New("fees: profit share exceeds 100%")
	errRoyaltyNumerator = errors.New("fees: royalty numerator exceeds denominator")

	maxProfitShare        = new(big.Int).Mul(big.NewInt(100), big.NewInt(WeightDecimal))
	royaltyDenominatorBig = big.NewInt(RoyaltyDenominator)
)

// MaxProfitShare is 100% expressed in profit share units.
const MaxProfitShare = 100 * WeightDecimal

// SplitInput describes one purchase to be divided.
type SplitInput struct {
	Amount         *big.Int
	CreatedByAdmin bool
	// ProfitShare is the platform cut scaled by 100 * WeightDecimal. Ignored
	// for admin created campaigns.
	ProfitShare uint64
	// Royalty is the royalty owed on Amount before any cap is applied.
	Royalty *big.Int
}

// Split is the frozen outcome of a fee computation.
type Split struct {
	Royalty  *big.Int
	Platform *big.Int
	Seller   *big.Int
}

// Total returns royalty + platform + seller.
func (s Split) Total() *big.Int {
	total := new(big.Int)
	for _, part := range []*big.Int{s.Royalty, s.Platform, s.Seller} {
		if part != nil {
			total.Add(total, part)
		}
	}
	return total
}

// Compute divides in.Amount. Admin created campaigns pay royalty first and
// route the rest to the platform. Other campaigns take the platform cut
// first and cap the royalty at what remains for the seller.
func Compute(in SplitInput) (Split, error) {
	amount := clone(in.Amount)
	royalty := clone(in.Royalty)
	if amount.Sign() < 0 || royalty.Sign() < 0 {
		return Split{}, errNegativeAmount
	}
	if in.CreatedByAdmin {
		if royalty.Cmp(amount) > 0 {
			royalty.Set(amount)
		}
		return Split{
			Royalty:  royalty,
			Platform: new(big.Int).Sub(amount, royalty),
			Seller:   big.NewInt(0),
		}, nil
	}
	share := new(big.Int).SetUint64(in.ProfitShare)
	if share.Cmp(maxProfitShare) > 0 {
		return Split{}, errProfitShareRange
	}
	platform := new(big.Int).Mul(amount, share)
	platform.Quo(platform, maxProfitShare)
	remainder := new(big.Int).Sub(amount, platform)
	if royalty.Cmp(remainder) > 0 {
		royalty.Set(remainder)
	}
	return Split{
		Royalty:  royalty,
		Platform: platform,
		Seller:   new(big.Int).Sub(remainder, royalty),
	}, nil
}

// Royalty returns price * numerator / RoyaltyDenominator.
func Royalty(price *big.Int, numerator uint64) (*big.Int, error) {
	if numerator > RoyaltyDenominator {
		return nil, errRoyaltyNumerator
	}
	out := new(big.Int).Mul(clone(price), new(big.Int).SetUint64(numerator))
	return out.Quo(out, royaltyDenominatorBig), nil
}

// Add returns the element-wise sum of two splits.
func Add(a, b Split) Split {
	return Split{
		Royalty:  new(big.Int).Add(clone(a.Royalty), clone(b.Royalty)),
		Platform: new(big.Int).Add(clone(a.Platform), clone(b.Platform)),
		Seller:   new(big.Int).Add(clone(a.Seller), clone(b.Seller)),
	}
}

func clone(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
