package project

import (
	"math/big"

	"launchpad/core/types"
	"launchpad/native/factory"
	"launchpad/native/fees"
	"launchpad/native/nft"
	"launchpad/native/sale"
)

func totalUnits(isSingle bool, inputs []sale.Input) uint64 {
	if isSingle {
		return uint64(len(inputs))
	}
	var total uint64
	for _, in := range inputs {
		total += in.Amount
	}
	return total
}

func (e *Engine) isAdmin(addr [20]byte) bool {
	return e.roles.IsAdmin(addr) || e.roles.IsSuperAdmin(addr)
}

// RequiredCreateFee returns the payment publish expects for params.
func (e *Engine) RequiredCreateFee(token [20]byte) (*big.Int, error) {
	cfg, err := e.ready()
	if err != nil {
		return nil, err
	}
	return requiredFee(cfg, token), nil
}

func requiredFee(cfg *Config, token [20]byte) *big.Int {
	fee := cloneBigInt(cfg.CreateProjectFee)
	if types.IsZeroAddress(token) {
		fee.Add(fee, cloneBigInt(cfg.ActiveProjectFee))
	}
	return fee
}

func (e *Engine) validToken(cfg *Config, token [20]byte, isSingle bool) bool {
	if token == cfg.SaleAddress || token == e.sales.Address() || token == e.address {
		return false
	}
	switch e.assets.Kind(token) {
	case nft.KindSingle:
		return isSingle
	case nft.KindMulti:
		return !isSingle
	default:
		return false
	}
}

func validPackPrice(params *PublishParams) bool {
	if !params.IsPack {
		return true
	}
	if params.IsFixed {
		return params.FixedPricePack == nil || params.FixedPricePack.Sign() >= 0
	}
	return sale.ValidDutchPrice(params.MaxPricePack, params.MinPricePack, params.PriceDecrementAmtPack)
}

// Publish creates a campaign for caller and materializes its sales. value
// is the create fee paid by caller.
func (e *Engine) Publish(caller [20]byte, params PublishParams, inputs []sale.Input, value *big.Int) (uint64, error) {
	cfg, err := e.ready()
	if err != nil {
		return 0, err
	}
	if len(inputs) == 0 {
		return 0, ErrSalesEmpty
	}
	if uint64(len(inputs)) > cfg.SaleCreateLimit {
		return 0, ErrReachedSaleCreateLimit
	}
	if params.SaleStart <= e.now() || params.SaleStart >= params.SaleEnd {
		return 0, ErrInvalidSaleTime
	}
	if params.MinSales > 0 && params.IsInstantPayment {
		return 0, ErrInvalidInstantPayment
	}
	if !types.IsZeroAddress(params.Token) && !e.validToken(cfg, params.Token, params.IsSingle) {
		return 0, ErrInvalidToken
	}
	if types.IsZeroAddress(params.Token) {
		for _, in := range inputs {
			if in.TokenID != 0 {
				return 0, ErrInvalidToken
			}
		}
	}
	preview := &sale.ProjectInfo{IsSingle: params.IsSingle, IsPack: params.IsPack, IsFixed: params.IsFixed}
	if err := sale.ValidateInputs(preview, inputs); err != nil {
		return 0, err
	}
	amount := totalUnits(params.IsSingle, inputs)
	if params.MinSales > amount {
		return 0, ErrInvalidMinSales
	}
	if !validPackPrice(&params) {
		return 0, ErrInvalidPrice
	}
	if params.RoyaltyFee > fees.RoyaltyDenominator {
		return 0, ErrInvalidFee
	}
	if value == nil || value.Cmp(requiredFee(cfg, params.Token)) != 0 {
		return 0, ErrInvalidCreateFee
	}
	byAdmin := e.isAdmin(caller)
	profitShare := params.ProfitShare
	if byAdmin {
		profitShare = 0
	} else {
		if !e.membership.Has(caller) {
			return 0, ErrNotMember
		}
		if profitShare < cfg.ProfitShareMinimum || profitShare > fees.MaxProfitShare {
			return 0, ErrInvalidProfitShare
		}
	}

	if err := e.collectCreateFee(cfg, caller, value); err != nil {
		return 0, err
	}
	token := params.Token
	if types.IsZeroAddress(token) {
		token, err = e.factory.CreateCollection(e.address, factory.Request{
			Owner:           caller,
			Single:          params.IsSingle,
			Name:            params.Name,
			Symbol:          params.Symbol,
			URI:             params.URI,
			RoyaltyReceiver: params.RoyaltyReceiver,
			RoyaltyFee:      params.RoyaltyFee,
			Minters:         [][20]byte{e.sales.Address()},
		})
		if err != nil {
			return 0, err
		}
	}
	var lastID uint64
	if _, err := e.state.KVGet(lastIDKey, &lastID); err != nil {
		return 0, err
	}
	lastID++
	record := &Project{
		ID:                    lastID,
		Manager:               caller,
		Token:                 token,
		IsCreatedByAdmin:      byAdmin,
		IsSingle:              params.IsSingle,
		IsPack:                params.IsPack,
		IsFixed:               params.IsFixed,
		IsInstantPayment:      params.IsInstantPayment,
		SaleStart:             params.SaleStart,
		SaleEnd:               params.SaleEnd,
		MinSales:              params.MinSales,
		Amount:                amount,
		ProfitShare:           profitShare,
		Status:                StatusStarted,
		FixedPricePack:        cloneBigInt(params.FixedPricePack),
		MaxPricePack:          cloneBigInt(params.MaxPricePack),
		MinPricePack:          cloneBigInt(params.MinPricePack),
		PriceDecrementAmtPack: cloneBigInt(params.PriceDecrementAmtPack),
	}
	if err := e.state.KVPut(lastIDKey, lastID); err != nil {
		return 0, err
	}
	if err := e.storeProject(record); err != nil {
		return 0, err
	}
	saleIDs, err := e.sales.CreateSales(e.address, record.ID, inputs)
	if err != nil {
		return 0, err
	}
	e.emit(newPublishedEvent(record, len(saleIDs), value))
	return record.ID, nil
}

// collectCreateFee takes the fee from caller. It is forwarded to the
// operational fund receiver while that account is below the configured
// limit and otherwise accrues on the engine account.
func (e *Engine) collectCreateFee(cfg *Config, caller [20]byte, value *big.Int) error {
	if value.Sign() == 0 {
		return nil
	}
	if err := e.state.Transfer(caller, e.address, value); err != nil {
		return err
	}
	balance, err := e.state.Balance(cfg.OpFundReceiver)
	if err != nil {
		return err
	}
	if balance.Cmp(cloneBigInt(cfg.OpFundLimit)) >= 0 {
		return nil
	}
	return e.state.Transfer(e.address, cfg.OpFundReceiver, value)
}

// AddSales appends sales to a campaign before it goes live. Manager only.
// When isRoyalty is false any per-sale royalty override is dropped.
func (e *Engine) AddSales(caller [20]byte, projectID uint64, isRoyalty bool, newMinSales uint64, inputs []sale.Input) ([]uint64, error) {
	cfg, err := e.ready()
	if err != nil {
		return nil, err
	}
	record, ok, err := e.loadProject(projectID)
	if err != nil {
		return nil, err
	}
	if !ok || record.Manager != caller {
		return nil, ErrNotManager
	}
	if record.Status != StatusStarted {
		return nil, ErrInvalidProject
	}
	if e.now() >= record.SaleStart {
		return nil, ErrProjectIsLive
	}
	existing, err := e.sales.SaleIDsOfProject(projectID)
	if err != nil {
		return nil, err
	}
	if uint64(len(existing)+len(inputs)) > cfg.SaleCreateLimit {
		return nil, ErrReachedSaleCreateLimit
	}
	if err := sale.ValidateInputs(record.info(), inputs); err != nil {
		return nil, err
	}
	amount := record.Amount + totalUnits(record.IsSingle, inputs)
	if newMinSales < record.MinSales || newMinSales > amount {
		return nil, ErrInvalidMinSales
	}
	if newMinSales > 0 && record.IsInstantPayment {
		return nil, ErrInvalidInstantPayment
	}
	added := make([]sale.Input, len(inputs))
	copy(added, inputs)
	if !isRoyalty {
		for i := range added {
			added[i].RoyaltyReceiver = [20]byte{}
			added[i].RoyaltyFee = 0
		}
	}
	record.Amount = amount
	record.MinSales = newMinSales
	if err := e.storeProject(record); err != nil {
		return nil, err
	}
	ids, err := e.sales.CreateSales(e.address, projectID, added)
	if err != nil {
		return nil, err
	}
	e.emit(newSalesAddedEvent(record, len(ids)))
	return ids, nil
}

// SetManager hands a campaign to another account. Admins only.
func (e *Engine) SetManager(caller [20]byte, projectID uint64, account [20]byte) error {
	if _, err := e.ready(); err != nil {
		return err
	}
	if err := e.roles.RequireAdminOrSuperAdmin(caller); err != nil {
		return err
	}
	record, ok, err := e.loadProject(projectID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidProject
	}
	if types.IsZeroAddress(account) {
		return ErrInvalidAccount
	}
	if record.Manager == account {
		return ErrAccountExists
	}
	previous := record.Manager
	record.Manager = account
	if err := e.storeProject(record); err != nil {
		return err
	}
	e.emit(newManagerEvent(record.ID, previous, account))
	return nil
}

// SetMerkleRoot installs a campaign wide allowlist. Only the operational
// fund receiver may call it.
func (e *Engine) SetMerkleRoot(caller [20]byte, projectID uint64, root [32]byte) error {
	cfg, err := e.ready()
	if err != nil {
		return err
	}
	if caller != cfg.OpFundReceiver {
		return ErrNotOpFundReceiver
	}
	record, ok, err := e.loadProject(projectID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidProject
	}
	record.MerkleRoot = root
	if err := e.storeProject(record); err != nil {
		return err
	}
	e.emit(newMerkleRootEvent(record.ID, root))
	return nil
}
