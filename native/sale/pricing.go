package sale

import (
	"math/big"

	"launchpad/native/fees"
)

// CurrentDutchPrice evaluates a linearly decaying auction at now. The range
// [minPrice, maxPrice] is split into (max-min)/decrement steps spread evenly
// across the sale window. The result is maxPrice up to start and never drops
// below minPrice.
func CurrentDutchPrice(start, end uint64, maxPrice, minPrice, decrement *big.Int, now uint64) *big.Int {
	ceiling := cloneBigInt(maxPrice)
	floor := cloneBigInt(minPrice)
	if now <= start || decrement == nil || decrement.Sign() <= 0 || ceiling.Cmp(floor) <= 0 {
		return ceiling
	}
	steps := new(big.Int).Quo(new(big.Int).Sub(ceiling, floor), decrement)
	if steps.Sign() == 0 || end <= start {
		return floor
	}
	interval := new(big.Int).Quo(new(big.Int).SetUint64(end-start), steps)
	if interval.Sign() == 0 {
		return floor
	}
	elapsed := new(big.Int).Quo(new(big.Int).SetUint64(now-start), interval)
	price := ceiling.Sub(ceiling, elapsed.Mul(elapsed, decrement))
	if price.Cmp(floor) < 0 {
		return floor
	}
	return price
}

func (e *Engine) unitPrice(project *ProjectInfo, record *Sale) *big.Int {
	if project.IsPack {
		return e.packPrice(project)
	}
	if project.IsFixed {
		return cloneBigInt(record.FixedPrice)
	}
	return CurrentDutchPrice(project.SaleStart, project.SaleEnd, record.MaxPrice, record.MinPrice, record.PriceDecrementAmt, e.now())
}

func (e *Engine) packPrice(project *ProjectInfo) *big.Int {
	if project.IsFixed {
		return cloneBigInt(project.FixedPricePack)
	}
	return CurrentDutchPrice(project.SaleStart, project.SaleEnd, project.MaxPricePack, project.MinPricePack, project.PriceDecrementPack, e.now())
}

// SalePrice returns the live per-token price of a sale.
func (e *Engine) SalePrice(saleID uint64) (*big.Int, error) {
	record, project, err := e.saleWithProject(saleID)
	if err != nil {
		return nil, err
	}
	return e.unitPrice(project, record), nil
}

// PackPrice returns the live price of one unit of a pack project.
func (e *Engine) PackPrice(projectID uint64) (*big.Int, error) {
	if e.projects == nil {
		return nil, errProjectUnwired
	}
	project, err := e.projects.ProjectInfo(projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsPack {
		return nil, ErrProjectNotPack
	}
	return e.packPrice(project), nil
}

// RoyaltyInfo resolves the royalty owed on a sale at price. A sale level
// override wins over the asset's own declaration.
func (e *Engine) RoyaltyInfo(saleID uint64, price *big.Int) ([20]byte, *big.Int, error) {
	record, ok, err := e.loadSale(saleID)
	if err != nil {
		return [20]byte{}, nil, err
	}
	if !ok {
		return [20]byte{}, nil, ErrInvalidSale
	}
	return e.royaltyOf(record, price)
}

func (e *Engine) royaltyOf(record *Sale, price *big.Int) ([20]byte, *big.Int, error) {
	if record.HasRoyaltyOverride() {
		amount, err := fees.Royalty(price, record.RoyaltyFee)
		if err != nil {
			return [20]byte{}, nil, err
		}
		return record.RoyaltyReceiver, amount, nil
	}
	if e.assets == nil {
		return [20]byte{}, big.NewInt(0), nil
	}
	return e.assets.RoyaltyInfo(record.Token, record.TokenID, price)
}

// TotalRoyaltyFee sums the royalties owed by saleIDs sold at the matching
// prices.
func (e *Engine) TotalRoyaltyFee(saleIDs []uint64, prices []*big.Int) (*big.Int, error) {
	if len(saleIDs) != len(prices) {
		return nil, ErrInvalidAmount
	}
	total := new(big.Int)
	for i, id := range saleIDs {
		_, amount, err := e.RoyaltyInfo(id, prices[i])
		if err != nil {
			return nil, err
		}
		total.Add(total, amount)
	}
	return total, nil
}

func (e *Engine) saleWithProject(saleID uint64) (*Sale, *ProjectInfo, error) {
	if e.projects == nil {
		return nil, nil, errProjectUnwired
	}
	record, ok, err := e.loadSale(saleID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrInvalidSale
	}
	project, err := e.projects.ProjectInfo(record.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return record, project, nil
}

func (e *Engine) splitFor(project *ProjectInfo, record *Sale, amount *big.Int) ([20]byte, fees.Split, error) {
	receiver, royalty, err := e.royaltyOf(record, amount)
	if err != nil {
		return [20]byte{}, fees.Split{}, err
	}
	split, err := fees.Compute(fees.SplitInput{
		Amount:         amount,
		CreatedByAdmin: project.IsCreatedByAdmin,
		ProfitShare:    project.ProfitShare,
		Royalty:        royalty,
	})
	if err != nil {
		return [20]byte{}, fees.Split{}, err
	}
	return receiver, split, nil
}
