package fees

import (
	"math/big"
	"testing"
)

// ether returns whole.milli in 18 decimal base units.
func ether(whole, milli int64) *big.Int {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	return new(big.Int).Mul(big.NewInt(whole*1000+milli), unit)
}

func TestComputeUserCampaign(t *testing.T) {
	// 4 units at 1 with 10% profit share and a 20% royalty.
	amount := ether(4, 0)
	royalty, err := Royalty(amount, 2000)
	if err != nil {
		t.Fatalf("royalty: %v", err)
	}
	split, err := Compute(SplitInput{Amount: amount, ProfitShare: 10 * WeightDecimal, Royalty: royalty})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if split.Royalty.Cmp(ether(0, 800)) != 0 {
		t.Fatalf("royalty = %s", split.Royalty)
	}
	if split.Platform.Cmp(ether(0, 400)) != 0 {
		t.Fatalf("platform = %s", split.Platform)
	}
	if split.Seller.Cmp(ether(2, 800)) != 0 {
		t.Fatalf("seller = %s", split.Seller)
	}
	if split.Total().Cmp(amount) != 0 {
		t.Fatalf("split does not sum to amount")
	}
}

func TestComputeCapsRoyaltyAtRemainder(t *testing.T) {
	// 6 units at 0.99 with a 95% royalty: royalty is capped at 90% of gross.
	amount := ether(5, 940)
	royalty, _ := Royalty(amount, 9500)
	split, err := Compute(SplitInput{Amount: amount, ProfitShare: 10 * WeightDecimal, Royalty: royalty})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if split.Platform.Cmp(ether(0, 594)) != 0 {
		t.Fatalf("platform = %s", split.Platform)
	}
	if split.Royalty.Cmp(ether(5, 346)) != 0 {
		t.Fatalf("royalty = %s", split.Royalty)
	}
	if split.Seller.Sign() != 0 {
		t.Fatalf("seller = %s", split.Seller)
	}
}

func TestComputeAdminCampaign(t *testing.T) {
	cases := []struct {
		name     string
		bps      uint64
		royalty  *big.Int
		platform *big.Int
	}{
		{name: "full royalty", bps: 10_000, royalty: ether(1, 0), platform: big.NewInt(0)},
		{name: "half royalty", bps: 5_000, royalty: ether(0, 500), platform: ether(0, 500)},
		{name: "explicit zero", bps: 0, royalty: big.NewInt(0), platform: ether(1, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			royalty, _ := Royalty(ether(1, 0), tc.bps)
			split, err := Compute(SplitInput{Amount: ether(1, 0), CreatedByAdmin: true, ProfitShare: 50 * WeightDecimal, Royalty: royalty})
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if split.Royalty.Cmp(tc.royalty) != 0 || split.Platform.Cmp(tc.platform) != 0 || split.Seller.Sign() != 0 {
				t.Fatalf("unexpected split %+v", split)
			}
		})
	}
}

func TestComputeSumsExactlyWithRounding(t *testing.T) {
	for amount := int64(0); amount < 500; amount += 7 {
		royalty, _ := Royalty(big.NewInt(amount), 333)
		split, err := Compute(SplitInput{Amount: big.NewInt(amount), ProfitShare: 3_333_333, Royalty: royalty})
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if split.Total().Cmp(big.NewInt(amount)) != 0 {
			t.Fatalf("amount %d split into %s", amount, split.Total())
		}
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	if _, err := Compute(SplitInput{Amount: big.NewInt(-1)}); err == nil {
		t.Fatalf("expected negative amount error")
	}
	if _, err := Compute(SplitInput{Amount: big.NewInt(1), ProfitShare: MaxProfitShare + 1}); err == nil {
		t.Fatalf("expected profit share error")
	}
	if _, err := Royalty(big.NewInt(1), RoyaltyDenominator+1); err == nil {
		t.Fatalf("expected numerator error")
	}
	sum := Add(Split{Royalty: big.NewInt(1)}, Split{Platform: big.NewInt(2), Seller: big.NewInt(3)})
	if sum.Total().Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("add = %s", sum.Total())
	}
}
