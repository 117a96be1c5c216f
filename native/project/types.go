package project

import (
	"math/big"

	"launchpad/native/sale"
)

// Status tracks the lifecycle of a campaign. It only moves forward.
type Status uint8

const (
	StatusInactive Status = iota
	StatusStarted
	StatusEnded
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusInactive, StatusStarted, StatusEnded:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusStarted:
		return "started"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Project is a manager's campaign grouping one or more sales under shared
// timing, pricing and soft cap terms.
type Project struct {
	ID               uint64
	Manager          [20]byte
	Token            [20]byte
	IsCreatedByAdmin bool
	IsSingle         bool
	IsPack           bool
	IsFixed          bool
	IsInstantPayment bool
	SaleStart        uint64
	SaleEnd          uint64
	// MinSales is the soft cap in tokens. Zero disables it.
	MinSales uint64
	Amount   uint64
	Sold     uint64
	// ProfitShare is the platform cut scaled by 100 * fees.WeightDecimal.
	ProfitShare                    uint64
	Status                         Status
	TotalBuyersWaitingDistribution uint64
	MerkleRoot                     [32]byte

	FixedPricePack        *big.Int
	MaxPricePack          *big.Int
	MinPricePack          *big.Int
	PriceDecrementAmtPack *big.Int
}

func (p *Project) softCapMissed() bool {
	return p.MinSales > 0 && p.Sold < p.MinSales
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	clone := *p
	clone.FixedPricePack = cloneBigInt(p.FixedPricePack)
	clone.MaxPricePack = cloneBigInt(p.MaxPricePack)
	clone.MinPricePack = cloneBigInt(p.MinPricePack)
	clone.PriceDecrementAmtPack = cloneBigInt(p.PriceDecrementAmtPack)
	return &clone
}

func (p *Project) info() *sale.ProjectInfo {
	return &sale.ProjectInfo{
		ID:                 p.ID,
		Manager:            p.Manager,
		Token:              p.Token,
		IsCreatedByAdmin:   p.IsCreatedByAdmin,
		IsSingle:           p.IsSingle,
		IsPack:             p.IsPack,
		IsFixed:            p.IsFixed,
		IsInstantPayment:   p.IsInstantPayment,
		SaleStart:          p.SaleStart,
		SaleEnd:            p.SaleEnd,
		MinSales:           p.MinSales,
		Amount:             p.Amount,
		Sold:               p.Sold,
		ProfitShare:        p.ProfitShare,
		Ended:              p.Status == StatusEnded,
		TotalBuyersWaiting: p.TotalBuyersWaitingDistribution,
		MerkleRoot:         p.MerkleRoot,
		FixedPricePack:     cloneBigInt(p.FixedPricePack),
		MaxPricePack:       cloneBigInt(p.MaxPricePack),
		MinPricePack:       cloneBigInt(p.MinPricePack),
		PriceDecrementPack: cloneBigInt(p.PriceDecrementAmtPack),
	}
}

// PublishParams are the campaign level terms supplied at publish time. A
// zero Token asks the factory for a new collection described by Name,
// Symbol, URI and the default royalty.
type PublishParams struct {
	Token            [20]byte
	Name             string
	Symbol           string
	URI              string
	IsPack           bool
	IsSingle         bool
	IsFixed          bool
	IsInstantPayment bool
	RoyaltyReceiver  [20]byte
	RoyaltyFee       uint64
	MinSales         uint64
	ProfitShare      uint64
	SaleStart        uint64
	SaleEnd          uint64

	FixedPricePack        *big.Int
	MaxPricePack          *big.Int
	MinPricePack          *big.Int
	PriceDecrementAmtPack *big.Int
}

// Config holds the engine wide settings persisted in state.
type Config struct {
	SaleAddress         [20]byte
	ServiceFundReceiver [20]byte
	OpFundReceiver      [20]byte
	CreateProjectFee    *big.Int
	ActiveProjectFee    *big.Int
	OpFundLimit         *big.Int
	SaleCreateLimit     uint64
	CloseLimit          uint64
	ProfitShareMinimum  uint64
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.CreateProjectFee = cloneBigInt(c.CreateProjectFee)
	clone.ActiveProjectFee = cloneBigInt(c.ActiveProjectFee)
	clone.OpFundLimit = cloneBigInt(c.OpFundLimit)
	return &clone
}

// InitConfig wires collaborators and seeds the configuration.
type InitConfig struct {
	Roles      permissions
	Assets     assetChecker
	Factory    collectionFactory
	Membership memberChecker
	Sales      saleEngine
	Config
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
