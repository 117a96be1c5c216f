package project

import (
	"errors"
	"math/big"
	"time"

	"launchpad/core/events"
	"launchpad/core/types"
	"launchpad/native/factory"
	"launchpad/native/fees"
	"launchpad/native/nft"
	"launchpad/native/sale"
)

var (
	ErrInvalidSetting          = errors.New("Invalid setting")
	ErrInvalidNFTChecker       = errors.New("Invalid nftChecker")
	ErrInvalidFactory          = errors.New("Invalid osbFactory")
	ErrInvalidMembership       = errors.New("Invalid osbSoul")
	ErrInvalidOpFundReceiver   = errors.New("Invalid opFundReceiver")
	ErrInvalidSaleCreateLimit  = errors.New("Invalid saleCreateLimit")
	ErrInvalidCloseLimit       = errors.New("Invalid closeLimit")
	ErrReachedSaleCreateLimit  = errors.New("Reached sale create Limit")
	ErrInvalidSaleTime         = errors.New("Invalid sale time")
	ErrInvalidInstantPayment   = errors.New("Invalid isInstantPayment")
	ErrInvalidToken            = errors.New("Invalid token")
	ErrInvalidMinSales         = errors.New("Invalid minSales")
	ErrInvalidCreateFee        = errors.New("Invalid create fee")
	ErrNotMember               = errors.New("Caller is not the member")
	ErrInvalidProfitShare      = errors.New("Invalid profitShare")
	ErrNotManager              = errors.New("Caller is not the manager")
	ErrProjectIsLive           = errors.New("Project is live")
	ErrInvalidAccount          = errors.New("Invalid account")
	ErrAccountExists           = errors.New("Account already exists")
	ErrInvalidSaleAddress      = errors.New("Invalid Sale address")
	ErrInvalidFee              = errors.New("Invalid fee")
	ErrInvalidLimit            = errors.New("Invalid limit")
	ErrNotOpFundReceiver       = errors.New("Caller is not the opFundReceiver")
	ErrNotSale                 = errors.New("Caller is not the sale")
	ErrAmountExceedsBalance    = errors.New("Amount exceeds balance")
	ErrDuplicateSetting        = errors.New("Duplicate setting")
	ErrInvalidProject          = errors.New("Invalid project")
	ErrSalesEmpty              = sale.ErrSalesEmpty
	ErrInvalidAmount           = sale.ErrInvalidAmount
	ErrInvalidPrice            = sale.ErrInvalidPrice
	ErrInvalidSaleID           = sale.ErrInvalidSaleID
	ErrInvalidSoftCap          = sale.ErrInvalidSoftCap
	ErrInvalidTokenURI         = sale.ErrInvalidTokenURI
	errNilState                = errors.New("project engine: state not configured")
	errNotInitialized          = errors.New("project engine: not initialized")
	errAlreadyInitialized      = errors.New("project engine: already initialized")
	errMissingConfig           = errors.New("project engine: configuration missing")
	errMissingSaleEngineObject = errors.New("project engine: sale engine not configured")
)

type engineState interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
	Balance(addr [20]byte) (*big.Int, error)
	Transfer(from, to [20]byte, amount *big.Int) error
}

type permissions interface {
	SuperAdmin() ([20]byte, error)
	IsSuperAdmin(addr [20]byte) bool
	IsAdmin(addr [20]byte) bool
	RequireSuperAdmin(caller [20]byte) error
	RequireAdminOrSuperAdmin(caller [20]byte) error
}

type assetChecker interface {
	Kind(collection [20]byte) nft.Kind
}

type collectionFactory interface {
	CreateCollection(caller [20]byte, req factory.Request) ([20]byte, error)
}

type memberChecker interface {
	Has(account [20]byte) bool
}

type saleEngine interface {
	Address() [20]byte
	CreateSales(caller [20]byte, projectID uint64, inputs []sale.Input) ([]uint64, error)
	Close(caller [20]byte, budget, projectID, saleID uint64, giveBack bool) (sale.CloseResult, error)
	Sale(id uint64) (*sale.Sale, bool, error)
	SaleIDsOfProject(projectID uint64) ([]uint64, error)
	SaleNotCloseLength(projectID uint64) (uint64, error)
}

// Engine orchestrates campaigns. It validates publish terms, tracks the
// aggregate counters the sale engine reports and drives paginated closes.
type Engine struct {
	address    [20]byte
	state      engineState
	roles      permissions
	assets     assetChecker
	factory    collectionFactory
	membership memberChecker
	sales      saleEngine
	emitter    events.Emitter
	nowFn      func() int64
}

// NewEngine creates a campaign engine whose account is address. Create fees
// that are not forwarded accrue on that account.
func NewEngine(address [20]byte) *Engine {
	return &Engine{
		address: address,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// Address returns the engine account.
func (e *Engine) Address() [20]byte { return e.address }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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

// Initialize wires the collaborators. The stored configuration is seeded
// from cfg unless a previous run already persisted one, so a restarted node
// keeps the settings changed through the setters.
func (e *Engine) Initialize(cfg InitConfig) error {
	if e.state == nil {
		return errNilState
	}
	if e.roles != nil {
		return errAlreadyInitialized
	}
	if cfg.Roles == nil {
		return ErrInvalidSetting
	}
	if cfg.Assets == nil {
		return ErrInvalidNFTChecker
	}
	if cfg.Factory == nil {
		return ErrInvalidFactory
	}
	if cfg.Membership == nil {
		return ErrInvalidMembership
	}
	if cfg.Sales == nil {
		return errMissingSaleEngineObject
	}
	stored, ok, err := e.loadConfig()
	if err != nil {
		return err
	}
	if !ok {
		stored = cfg.Config.Clone()
		if types.IsZeroAddress(stored.OpFundReceiver) {
			return ErrInvalidOpFundReceiver
		}
		if stored.SaleCreateLimit == 0 {
			return ErrInvalidSaleCreateLimit
		}
		if stored.CloseLimit == 0 {
			return ErrInvalidCloseLimit
		}
		if stored.ProfitShareMinimum > fees.MaxProfitShare {
			return ErrInvalidProfitShare
		}
		if types.IsZeroAddress(stored.SaleAddress) {
			stored.SaleAddress = cfg.Sales.Address()
		}
		if types.IsZeroAddress(stored.ServiceFundReceiver) {
			superAdmin, err := cfg.Roles.SuperAdmin()
			if err != nil {
				return err
			}
			stored.ServiceFundReceiver = superAdmin
		}
		if err := e.storeConfig(stored); err != nil {
			return err
		}
	}
	e.roles = cfg.Roles
	e.assets = cfg.Assets
	e.factory = cfg.Factory
	e.membership = cfg.Membership
	e.sales = cfg.Sales
	return nil
}

func (e *Engine) ready() (*Config, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if e.roles == nil {
		return nil, errNotInitialized
	}
	cfg, ok, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errMissingConfig
	}
	return cfg, nil
}

// Config returns a copy of the stored configuration.
func (e *Engine) Config() (*Config, error) {
	return e.ready()
}

// OpFundReceiver returns the account allowed to install allowlists.
func (e *Engine) OpFundReceiver() [20]byte {
	cfg, err := e.ready()
	if err != nil {
		return [20]byte{}
	}
	return cfg.OpFundReceiver
}

// ServiceFundReceiver returns the account collecting the platform share.
func (e *Engine) ServiceFundReceiver() [20]byte {
	cfg, err := e.ready()
	if err != nil {
		return [20]byte{}
	}
	return cfg.ServiceFundReceiver
}

func (e *Engine) updateConfig(caller [20]byte, requireSuper bool, key string, mutate func(cfg *Config) error) error {
	cfg, err := e.ready()
	if err != nil {
		return err
	}
	if requireSuper {
		err = e.roles.RequireSuperAdmin(caller)
	} else {
		err = e.roles.RequireAdminOrSuperAdmin(caller)
	}
	if err != nil {
		return err
	}
	if err := mutate(cfg); err != nil {
		return err
	}
	if err := e.storeConfig(cfg); err != nil {
		return err
	}
	e.emit(newConfigEvent(key, caller))
	return nil
}

func setAddress(dst *[20]byte, value [20]byte, invalid error) error {
	if types.IsZeroAddress(value) {
		return invalid
	}
	if *dst == value {
		return ErrDuplicateSetting
	}
	*dst = value
	return nil
}

// SetSaleAddress changes the address the sale engine calls back with.
func (e *Engine) SetSaleAddress(caller, addr [20]byte) error {
	return e.updateConfig(caller, true, "saleAddress", func(cfg *Config) error {
		return setAddress(&cfg.SaleAddress, addr, ErrInvalidSaleAddress)
	})
}

// SetServiceFundReceiver changes the recipient of the platform share.
func (e *Engine) SetServiceFundReceiver(caller, addr [20]byte) error {
	return e.updateConfig(caller, true, "serviceFundReceiver", func(cfg *Config) error {
		return setAddress(&cfg.ServiceFundReceiver, addr, ErrInvalidAccount)
	})
}

// SetOpFundReceiver changes the recipient of create fees.
func (e *Engine) SetOpFundReceiver(caller, addr [20]byte) error {
	return e.updateConfig(caller, true, "opFundReceiver", func(cfg *Config) error {
		return setAddress(&cfg.OpFundReceiver, addr, ErrInvalidAccount)
	})
}

// SetCreateProjectFee changes the flat publish fee.
func (e *Engine) SetCreateProjectFee(caller [20]byte, fee *big.Int) error {
	return e.updateConfig(caller, true, "createProjectFee", func(cfg *Config) error {
		if fee == nil || fee.Sign() <= 0 {
			return ErrInvalidFee
		}
		cfg.CreateProjectFee = new(big.Int).Set(fee)
		return nil
	})
}

// SetActiveProjectFee changes the surcharge for campaigns whose collection
// is deployed by the factory.
func (e *Engine) SetActiveProjectFee(caller [20]byte, fee *big.Int) error {
	return e.updateConfig(caller, true, "activeProjectFee", func(cfg *Config) error {
		if fee == nil || fee.Sign() <= 0 {
			return ErrInvalidFee
		}
		cfg.ActiveProjectFee = new(big.Int).Set(fee)
		return nil
	})
}

// SetSaleCreateLimit changes the maximum number of sales per campaign.
func (e *Engine) SetSaleCreateLimit(caller [20]byte, limit uint64) error {
	return e.updateConfig(caller, true, "saleCreateLimit", func(cfg *Config) error {
		if limit == 0 {
			return ErrInvalidLimit
		}
		cfg.SaleCreateLimit = limit
		return nil
	})
}

// SetOpFundLimit changes the balance above which create fees stay on the
// engine account.
func (e *Engine) SetOpFundLimit(caller [20]byte, limit *big.Int) error {
	return e.updateConfig(caller, true, "opFundLimit", func(cfg *Config) error {
		if limit == nil || limit.Sign() <= 0 {
			return ErrInvalidLimit
		}
		cfg.OpFundLimit = new(big.Int).Set(limit)
		return nil
	})
}

// SetProfitShareMinimum changes the lowest platform share a member may offer.
func (e *Engine) SetProfitShareMinimum(caller [20]byte, minimum uint64) error {
	return e.updateConfig(caller, true, "profitShareMinimum", func(cfg *Config) error {
		if minimum > fees.MaxProfitShare {
			return ErrInvalidProfitShare
		}
		cfg.ProfitShareMinimum = minimum
		return nil
	})
}

// SetCloseLimit changes the per-call close budget. Admins may call it.
func (e *Engine) SetCloseLimit(caller [20]byte, limit uint64) error {
	return e.updateConfig(caller, false, "closeLimit", func(cfg *Config) error {
		if limit == 0 {
			return ErrInvalidLimit
		}
		cfg.CloseLimit = limit
		return nil
	})
}
