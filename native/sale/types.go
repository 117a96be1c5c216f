package sale

import "math/big"

// CloseMode records how a sale is being settled once closing has begun.
type CloseMode uint8

const (
	CloseModeNone CloseMode = iota
	CloseModeDistribute
	CloseModeRefund
)

// Sale is one sellable allocation: a single token or a quantity of a
// multi-edition token held in engine custody until settlement.
type Sale struct {
	ID        uint64
	ProjectID uint64
	Token     [20]byte
	TokenID   uint64
	// Amount is the remaining purchasable quantity.
	Amount uint64
	// Total is the quantity placed in custody at creation.
	Total     uint64
	IsSoldOut bool
	IsClose   bool
	CloseMode CloseMode

	FixedPrice        *big.Int
	MaxPrice          *big.Int
	MinPrice          *big.Int
	PriceDecrementAmt *big.Int

	// RoyaltyReceiver set to a non-zero address overrides the asset's own
	// royalty declaration, including an explicit zero RoyaltyFee.
	RoyaltyReceiver [20]byte
	RoyaltyFee      uint64

	MerkleRoot [32]byte
}

// Clone returns a deep copy of the sale.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	clone := *s
	clone.FixedPrice = cloneBigInt(s.FixedPrice)
	clone.MaxPrice = cloneBigInt(s.MaxPrice)
	clone.MinPrice = cloneBigInt(s.MinPrice)
	clone.PriceDecrementAmt = cloneBigInt(s.PriceDecrementAmt)
	return &clone
}

// HasRoyaltyOverride reports whether the sale carries its own royalty.
func (s *Sale) HasRoyaltyOverride() bool {
	return s != nil && s.RoyaltyReceiver != [20]byte{}
}

// Bill is the deferred settlement record of one buyer on one sale. The fee
// split is frozen at purchase time.
type Bill struct {
	SaleID          uint64
	Account         [20]byte
	Amount          uint64
	RoyaltyReceiver [20]byte
	RoyaltyFee      *big.Int
	SuperAdminFee   *big.Int
	SellerFee       *big.Int
}

// Paid returns the total value the buyer paid into the bill.
func (b *Bill) Paid() *big.Int {
	total := new(big.Int)
	for _, part := range []*big.Int{b.RoyaltyFee, b.SuperAdminFee, b.SellerFee} {
		if part != nil {
			total.Add(total, part)
		}
	}
	return total
}

// Input defines one sale to materialize. TokenID zero asks the engine to
// mint a new token into custody using URI.
type Input struct {
	TokenID         uint64
	URI             string
	Amount          uint64
	RoyaltyReceiver [20]byte
	RoyaltyFee      uint64

	FixedPrice        *big.Int
	MaxPrice          *big.Int
	MinPrice          *big.Int
	PriceDecrementAmt *big.Int
}

// ProjectInfo is the view of a campaign the engine needs to price, sell and
// settle its sales.
type ProjectInfo struct {
	ID                 uint64
	Manager            [20]byte
	Token              [20]byte
	IsCreatedByAdmin   bool
	IsSingle           bool
	IsPack             bool
	IsFixed            bool
	IsInstantPayment   bool
	SaleStart          uint64
	SaleEnd            uint64
	MinSales           uint64
	Amount             uint64
	Sold               uint64
	ProfitShare        uint64
	Ended              bool
	TotalBuyersWaiting uint64
	MerkleRoot         [32]byte
	FixedPricePack     *big.Int
	MaxPricePack       *big.Int
	MinPricePack       *big.Int
	PriceDecrementPack *big.Int
}

// SoftCapMissed reports whether a soft cap is set and was not reached.
func (p *ProjectInfo) SoftCapMissed() bool {
	return p.MinSales > 0 && p.Sold < p.MinSales
}

// CloseResult reports the outcome of one bounded close step.
type CloseResult struct {
	// Remaining is the unused part of the caller's budget.
	Remaining uint64
	// Settled counts the bills paid out or refunded.
	Settled uint64
	// Closed is true once the sale reached its terminal state.
	Closed bool
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
