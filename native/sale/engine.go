package sale

import (
	"errors"
	"math/big"
	"time"

	"launchpad/core/events"
	"launchpad/core/types"
	"launchpad/native/nft"
)

var (
	ErrInvalidSetting        = errors.New("Invalid setting")
	ErrInvalidNFTChecker     = errors.New("Invalid nftChecker")
	ErrInvalidProjectAddress = errors.New("Invalid Project address")
	ErrInvalidRandomizer     = errors.New("Invalid randomizer address")
	ErrNotProject            = errors.New("Caller is not the Project")
	ErrNotOpFundReceiver     = errors.New("Caller is not the opFundReceiver")
	ErrInvalidSale           = errors.New("Invalid sale")
	ErrInvalidSaleID         = errors.New("Invalid sale id")
	ErrInvalidProject        = errors.New("Invalid project")
	ErrSalesEmpty            = errors.New("Sales is empty")
	ErrInvalidAmount         = errors.New("Invalid amount")
	ErrInvalidPrice          = errors.New("Invalid price")
	ErrInvalidTokenURI       = errors.New("Invalid tokenUri")
	ErrProjectIsPack         = errors.New("Project is pack")
	ErrProjectNotPack        = errors.New("Project is not pack")
	ErrInvalidWinner         = errors.New("Invalid winner")
	ErrSoldOut               = errors.New("Sold out")
	ErrInvalidValue          = errors.New("Invalid value")
	ErrSaleNotAvailable      = errors.New("Sale is not available")
	ErrDuplicateSetting      = errors.New("Duplicate setting")
	ErrRoyaltyChanged        = errors.New("Royalty receiver changed")

	errNilState         = errors.New("sale engine: state not configured")
	errNotInitialized   = errors.New("sale engine: not initialized")
	errProjectUnwired   = errors.New("sale engine: project ledger not configured")
	errAlreadyInitiated = errors.New("sale engine: already initialized")
)

type engineState interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) (bool, error)
	KVGetList(key []byte, out interface{}) error
	Transfer(from, to [20]byte, amount *big.Int) error
}

type permissions interface {
	RequireSuperAdmin(caller [20]byte) error
}

type assetLedger interface {
	Kind(collection [20]byte) nft.Kind
	Mint(caller, collection, to [20]byte, amount uint64, uri string) (uint64, error)
	MintWithRoyalty(caller, collection, to [20]byte, amount uint64, uri string, receiver [20]byte, fee uint64) (uint64, error)
	Transfer(caller, collection, from, to [20]byte, id, amount uint64) error
	RoyaltyInfo(collection [20]byte, id uint64, price *big.Int) ([20]byte, *big.Int, error)
}

// projectLedger is the campaign side of the peer relationship. Every
// mutating call carries the engine address so the peer can verify it.
type projectLedger interface {
	ProjectInfo(id uint64) (*ProjectInfo, error)
	OpFundReceiver() [20]byte
	ServiceFundReceiver() [20]byte
	SetSoldQuantityToProject(caller [20]byte, projectID, quantity uint64) error
	AddTotalBuyersWaitingDistribution(caller [20]byte, projectID uint64) error
	End(caller [20]byte, projectID uint64) error
}

// Engine owns sales, prices them, sells them and settles them. Sale tokens
// are held under the engine address until they are delivered.
type Engine struct {
	address  [20]byte
	state    engineState
	roles    permissions
	assets   assetLedger
	projects projectLedger
	emitter  events.Emitter
	nowFn    func() int64
}

// NewEngine creates a sale engine identified by address.
func NewEngine(address [20]byte) *Engine {
	return &Engine{
		address: address,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// Address returns the custody address of the engine.
func (e *Engine) Address() [20]byte { return e.address }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetProjectLedger wires the campaign engine used for callbacks.
func (e *Engine) SetProjectLedger(projects projectLedger) { e.projects = projects }

// SetNowFunc overrides the time source. Passing nil restores the wall clock.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Initialize binds the role registry and the asset ledger. It may only run
// once.
func (e *Engine) Initialize(roles permissions, assets assetLedger) error {
	if e.roles != nil {
		return errAlreadyInitiated
	}
	if roles == nil {
		return ErrInvalidSetting
	}
	if assets == nil {
		return ErrInvalidNFTChecker
	}
	e.roles = roles
	e.assets = assets
	return nil
}

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.roles == nil || e.assets == nil {
		return errNotInitialized
	}
	return nil
}

// ProjectAddress returns the only address allowed to drive sale creation
// and settlement.
func (e *Engine) ProjectAddress() ([20]byte, error) { return e.loadAddress(projectAddressKey) }

// RandomizerAddress returns the configured random source.
func (e *Engine) RandomizerAddress() ([20]byte, error) { return e.loadAddress(randomizerKey) }

// SetProjectAddress configures the campaign engine address. Super admin only.
func (e *Engine) SetProjectAddress(caller, addr [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.roles.RequireSuperAdmin(caller); err != nil {
		return err
	}
	if types.IsZeroAddress(addr) {
		return ErrInvalidProjectAddress
	}
	if err := e.state.KVPut(projectAddressKey, addr); err != nil {
		return err
	}
	e.emit(newAddressEvent(EventTypeProjectAddressSet, [20]byte{}, addr))
	return nil
}

// SetRandomizerAddress swaps the random source. Super admin only.
func (e *Engine) SetRandomizerAddress(caller, addr [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.roles.RequireSuperAdmin(caller); err != nil {
		return err
	}
	if types.IsZeroAddress(addr) {
		return ErrInvalidRandomizer
	}
	previous, err := e.loadAddress(randomizerKey)
	if err != nil {
		return err
	}
	if err := e.state.KVPut(randomizerKey, addr); err != nil {
		return err
	}
	e.emit(newAddressEvent(EventTypeRandomizerSet, previous, addr))
	return nil
}

func (e *Engine) requireProject(caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	project, err := e.loadAddress(projectAddressKey)
	if err != nil {
		return err
	}
	if types.IsZeroAddress(project) || caller != project {
		return ErrNotProject
	}
	if e.projects == nil {
		return errProjectUnwired
	}
	return nil
}

// ValidateInputs applies the per-sale checks shared by publish and addSales.
func ValidateInputs(project *ProjectInfo, inputs []Input) error {
	if len(inputs) == 0 {
		return ErrSalesEmpty
	}
	for i := range inputs {
		in := &inputs[i]
		if in.TokenID == 0 && in.URI == "" {
			return ErrInvalidTokenURI
		}
		if !project.IsSingle && in.Amount == 0 {
			return ErrInvalidAmount
		}
		if project.IsSingle && in.Amount > 1 {
			return ErrInvalidAmount
		}
		if project.IsPack {
			continue
		}
		if project.IsFixed {
			if in.FixedPrice != nil && in.FixedPrice.Sign() < 0 {
				return ErrInvalidPrice
			}
			continue
		}
		if !ValidDutchPrice(in.MaxPrice, in.MinPrice, in.PriceDecrementAmt) {
			return ErrInvalidPrice
		}
	}
	return nil
}

// ValidDutchPrice reports whether the bounds describe a reachable auction:
// a positive floor below the ceiling and a decrement that divides the range.
func ValidDutchPrice(maxPrice, minPrice, decrement *big.Int) bool {
	if maxPrice == nil || minPrice == nil || decrement == nil {
		return false
	}
	if minPrice.Sign() <= 0 || maxPrice.Cmp(minPrice) <= 0 || decrement.Sign() <= 0 {
		return false
	}
	span := new(big.Int).Sub(maxPrice, minPrice)
	return new(big.Int).Mod(span, decrement).Sign() == 0
}

// CreateSales materializes inputs for projectID. Existing tokens move from
// the manager into custody; TokenID zero mints into custody. Project only.
func (e *Engine) CreateSales(caller [20]byte, projectID uint64, inputs []Input) ([]uint64, error) {
	if err := e.requireProject(caller); err != nil {
		return nil, err
	}
	project, err := e.projects.ProjectInfo(projectID)
	if err != nil {
		return nil, err
	}
	if err := ValidateInputs(project, inputs); err != nil {
		return nil, err
	}
	var lastID uint64
	if _, err := e.state.KVGet(lastIDKey, &lastID); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(inputs))
	for i := range inputs {
		in := inputs[i]
		amount := in.Amount
		if project.IsSingle {
			amount = 1
		}
		tokenID := in.TokenID
		if tokenID == 0 {
			if in.RoyaltyReceiver != ([20]byte{}) {
				tokenID, err = e.assets.MintWithRoyalty(e.address, project.Token, e.address, amount, in.URI, in.RoyaltyReceiver, in.RoyaltyFee)
			} else {
				tokenID, err = e.assets.Mint(e.address, project.Token, e.address, amount, in.URI)
			}
		} else {
			err = e.assets.Transfer(e.address, project.Token, project.Manager, e.address, tokenID, amount)
		}
		if err != nil {
			return nil, err
		}
		lastID++
		record := &Sale{
			ID:                lastID,
			ProjectID:         projectID,
			Token:             project.Token,
			TokenID:           tokenID,
			Amount:            amount,
			Total:             amount,
			FixedPrice:        cloneBigInt(in.FixedPrice),
			MaxPrice:          cloneBigInt(in.MaxPrice),
			MinPrice:          cloneBigInt(in.MinPrice),
			PriceDecrementAmt: cloneBigInt(in.PriceDecrementAmt),
			RoyaltyReceiver:   in.RoyaltyReceiver,
			RoyaltyFee:        in.RoyaltyFee,
		}
		if err := e.storeSale(record); err != nil {
			return nil, err
		}
		if err := e.state.KVAppend(projectSalesKey(projectID), encodeID(record.ID)); err != nil {
			return nil, err
		}
		if err := e.state.KVAppend(projectOpenKey(projectID), encodeID(record.ID)); err != nil {
			return nil, err
		}
		ids = append(ids, record.ID)
		e.emit(newSaleEvent(EventTypeSaleCreated, record))
	}
	if err := e.state.KVPut(lastIDKey, lastID); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetCloseSale marks a sale closed without settlement. Project only.
func (e *Engine) SetCloseSale(caller [20]byte, saleID uint64) error {
	if err := e.requireProject(caller); err != nil {
		return err
	}
	record, ok, err := e.loadSale(saleID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSale
	}
	return e.markClosed(record)
}

// ResetAmountSale zeroes the purchasable quantity of a sale. Project only.
func (e *Engine) ResetAmountSale(caller [20]byte, saleID uint64) error {
	if err := e.requireProject(caller); err != nil {
		return err
	}
	record, ok, err := e.loadSale(saleID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSale
	}
	record.Amount = 0
	record.IsSoldOut = true
	return e.storeSale(record)
}

// SetMerkleRoot installs the allowlist of a sale. Only the operational fund
// receiver may call it.
func (e *Engine) SetMerkleRoot(caller [20]byte, saleID uint64, root [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.projects == nil {
		return errProjectUnwired
	}
	if caller != e.projects.OpFundReceiver() {
		return ErrNotOpFundReceiver
	}
	record, ok, err := e.loadSale(saleID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSale
	}
	record.MerkleRoot = root
	if err := e.storeSale(record); err != nil {
		return err
	}
	e.emit(newMerkleRootEvent(record.ID, root))
	return nil
}

func (e *Engine) markClosed(record *Sale) error {
	if record.IsClose {
		return nil
	}
	record.IsClose = true
	if err := e.storeSale(record); err != nil {
		return err
	}
	if _, err := e.state.KVRemove(projectOpenKey(record.ProjectID), encodeID(record.ID)); err != nil {
		return err
	}
	e.emit(newSaleEvent(EventTypeSaleClosed, record))
	return nil
}

// Sale returns a copy of the stored sale.
func (e *Engine) Sale(id uint64) (*Sale, bool, error) {
	return e.loadSale(id)
}

// LastID returns the most recently assigned sale id.
func (e *Engine) LastID() (uint64, error) {
	if e.state == nil {
		return 0, errNilState
	}
	var id uint64
	_, err := e.state.KVGet(lastIDKey, &id)
	return id, err
}

// SaleIDsOfProject returns every sale id of a project in creation order.
func (e *Engine) SaleIDsOfProject(projectID uint64) ([]uint64, error) {
	return e.idList(projectSalesKey(projectID))
}

// SalesOfProject loads every sale of a project in creation order.
func (e *Engine) SalesOfProject(projectID uint64) ([]*Sale, error) {
	ids, err := e.SaleIDsOfProject(projectID)
	if err != nil {
		return nil, err
	}
	out := make([]*Sale, 0, len(ids))
	for _, id := range ids {
		record, ok, err := e.loadSale(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, record)
		}
	}
	return out, nil
}

// CurrentSalesInPack returns the open, unsold sales of a project in
// creation order.
func (e *Engine) CurrentSalesInPack(projectID uint64) ([]*Sale, error) {
	ids, err := e.idList(projectOpenKey(projectID))
	if err != nil {
		return nil, err
	}
	out := make([]*Sale, 0, len(ids))
	for _, id := range ids {
		record, ok, err := e.loadSale(id)
		if err != nil {
			return nil, err
		}
		if ok && !record.IsSoldOut && !record.IsClose {
			out = append(out, record)
		}
	}
	return out, nil
}

// SaleNotCloseLength returns how many sales of a project are still open.
func (e *Engine) SaleNotCloseLength(projectID uint64) (uint64, error) {
	ids, err := e.idList(projectOpenKey(projectID))
	if err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

// SaleIDNotCloseByIndex returns the open sale id at index.
func (e *Engine) SaleIDNotCloseByIndex(projectID, index uint64) (uint64, error) {
	ids, err := e.idList(projectOpenKey(projectID))
	if err != nil {
		return 0, err
	}
	if index >= uint64(len(ids)) {
		return 0, ErrInvalidSaleID
	}
	return ids[index], nil
}

// Bill returns the pending bill of buyer on a sale.
func (e *Engine) Bill(saleID uint64, buyer [20]byte) (*Bill, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	return e.loadBill(saleID, buyer)
}

// BuyersWaitingDistribution lists buyers whose bills are still pending.
func (e *Engine) BuyersWaitingDistribution(saleID uint64) ([][20]byte, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.buyers(saleID)
}
