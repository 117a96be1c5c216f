package sale

import (
	"math/big"
	"testing"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

// milliEther returns n / 1000 ether.
func milliEther(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000))
}

func TestCurrentDutchPriceSteps(t *testing.T) {
	const start, end = 1_000, 10_000 // 90 steps of 100s
	maxPrice, minPrice, dec := milliEther(1000), milliEther(100), milliEther(10)

	cases := []struct {
		name string
		now  uint64
		want *big.Int
	}{
		{"before start", 10, milliEther(1000)},
		{"at start", start, milliEther(1000)},
		{"inside first interval", start + 99, milliEther(1000)},
		{"one interval", start + 100, milliEther(990)},
		{"ten intervals", start + 1_050, milliEther(900)},
		{"at end", end, milliEther(100)},
		{"after end", end + 5_000, milliEther(100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CurrentDutchPrice(start, end, maxPrice, minPrice, dec, tc.now)
			if got.Cmp(tc.want) != 0 {
				t.Fatalf("price at %d = %s, want %s", tc.now, got, tc.want)
			}
		})
	}
}

func TestCurrentDutchPriceMonotonicAndBounded(t *testing.T) {
	maxPrice, minPrice, dec := big.NewInt(1_000), big.NewInt(7), big.NewInt(3)
	prev := CurrentDutchPrice(50, 777, maxPrice, minPrice, dec, 0)
	for now := uint64(0); now < 1_000; now++ {
		price := CurrentDutchPrice(50, 777, maxPrice, minPrice, dec, now)
		if price.Cmp(prev) > 0 {
			t.Fatalf("price increased at %d: %s > %s", now, price, prev)
		}
		if price.Cmp(minPrice) < 0 || price.Cmp(maxPrice) > 0 {
			t.Fatalf("price out of bounds at %d: %s", now, price)
		}
		prev = price
	}
}

func TestCurrentDutchPriceDegenerateWindow(t *testing.T) {
	// More steps than seconds: the interval rounds to zero.
	got := CurrentDutchPrice(100, 110, big.NewInt(1_000), big.NewInt(1), big.NewInt(1), 105)
	if got.Int64() != 1 {
		t.Fatalf("expected floor, got %s", got)
	}
	if got := CurrentDutchPrice(100, 110, big.NewInt(5), big.NewInt(1), nil, 105); got.Int64() != 5 {
		t.Fatalf("missing decrement must keep the ceiling, got %s", got)
	}
}

func TestValidDutchPrice(t *testing.T) {
	cases := []struct {
		name          string
		max, min, dec *big.Int
		want          bool
	}{
		{"valid", milliEther(1000), milliEther(100), milliEther(10), true},
		{"zero floor", big.NewInt(10), big.NewInt(0), big.NewInt(1), false},
		{"ceiling not above floor", big.NewInt(10), big.NewInt(10), big.NewInt(1), false},
		{"not divisible", big.NewInt(10), big.NewInt(1), big.NewInt(4), false},
		{"zero decrement", big.NewInt(10), big.NewInt(1), big.NewInt(0), false},
		{"missing", nil, big.NewInt(1), big.NewInt(1), false},
	}
	for _, tc := range cases {
		if got := ValidDutchPrice(tc.max, tc.min, tc.dec); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
