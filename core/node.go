package core

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"launchpad/core/events"
	"launchpad/core/state"
	"launchpad/core/types"
	"launchpad/native/factory"
	"launchpad/native/gift"
	"launchpad/native/membership"
	"launchpad/native/nft"
	"launchpad/native/project"
	"launchpad/native/randomizer"
	"launchpad/native/roles"
	"launchpad/native/sale"
	"launchpad/observability/metrics"
	"launchpad/storage"
)

var genesisKey = []byte("node/genesis-applied")

// Node is the central controller, wiring state, collaborators and both
// engines together. Every operation runs under one lock inside a state
// transaction; events reach the sinks only after the transaction commits.
type Node struct {
	mu     sync.Mutex
	closed bool

	db       storage.Database
	state    *state.Manager
	roles    *roles.Registry
	assets   *nft.Registry
	factory  *factory.Factory
	members  *membership.Token
	random   *randomizer.Source
	gifts    *gift.Engine
	sales    *sale.Engine
	projects *project.Engine

	buffer  *events.Buffer
	stream  *Stream
	sinks   []events.Emitter
	logger  *slog.Logger
	metrics *metrics.LaunchpadMetrics
	nowFn   func() int64
}

// Option customizes a Node.
type Option func(*Node)

// WithLogger sets the logger used for committed events and rejections.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithSink adds an emitter receiving every committed event.
func WithSink(sink events.Emitter) Option {
	return func(n *Node) {
		if sink != nil {
			n.sinks = append(n.sinks, sink)
		}
	}
}

// WithClock overrides the unix time source of the engines.
func WithClock(now func() int64) Option {
	return func(n *Node) {
		if now != nil {
			n.nowFn = now
		}
	}
}

// WithStream replaces the default stream hub.
func WithStream(stream *Stream) Option {
	return func(n *Node) {
		if stream != nil {
			n.stream = stream
		}
	}
}

// NewNode opens the ledger on db. The genesis is applied on first boot only.
func NewNode(db storage.Database, genesis *Genesis, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	if err := genesis.Validate(); err != nil {
		return nil, err
	}
	g := genesis.withDefaults()

	n := &Node{
		db:      db,
		state:   state.NewManager(db),
		buffer:  &events.Buffer{},
		stream:  NewStream(0),
		logger:  slog.Default(),
		metrics: metrics.Launchpad(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(n)
	}

	n.roles = roles.NewRegistry(n.state)
	n.assets = nft.NewRegistry()
	n.assets.SetState(n.state)
	n.assets.SetEmitter(n.buffer)
	n.factory = factory.New(g.FactoryAddress, n.state, n.assets, n.roles)
	n.factory.SetEmitter(n.buffer)
	n.members = membership.New(n.state, n.roles)
	n.members.SetEmitter(n.buffer)
	n.random = randomizer.New(g.RandomizerAddress, n.state, n.roles, n.now)
	n.random.SetEmitter(n.buffer)
	gifts, err := gift.New(g.GiftAddress, n.assets)
	if err != nil {
		return nil, err
	}
	n.gifts = gifts
	n.gifts.SetEmitter(n.buffer)

	n.sales = sale.NewEngine(g.SaleAddress)
	n.sales.SetState(n.state)
	n.sales.SetEmitter(n.buffer)
	n.sales.SetNowFunc(n.now)
	n.projects = project.NewEngine(g.ProjectAddress)
	n.projects.SetState(n.state)
	n.projects.SetEmitter(n.buffer)
	n.projects.SetNowFunc(n.now)
	n.sales.SetProjectLedger(n.projects)

	boot := func() error {
		if err := n.sales.Initialize(n.roles, n.assets); err != nil {
			return err
		}
		if err := n.applyGenesis(g); err != nil {
			return err
		}
		return n.projects.Initialize(project.InitConfig{
			Roles:      n.roles,
			Assets:     n.assets,
			Factory:    n.factory,
			Membership: n.members,
			Sales:      n.sales,
			Config:     g.Project,
		})
	}
	if err := n.state.Atomic(boot); err != nil {
		return nil, fmt.Errorf("node: boot: %w", err)
	}
	// Genesis events describe the ledger setup; subscribers start after it.
	n.buffer.Drain()
	return n, nil
}

func (n *Node) now() int64 { return n.nowFn() }

func (n *Node) applyGenesis(g *Genesis) error {
	applied, err := n.state.KVGet(genesisKey, nil)
	if err != nil || applied {
		return err
	}
	if err := n.roles.Bootstrap(g.SuperAdmin); err != nil {
		return fmt.Errorf("bootstrap roles: %w", err)
	}
	for _, admin := range g.Admins {
		if err := n.roles.SetAdmin(g.SuperAdmin, admin, true); err != nil {
			return fmt.Errorf("grant admin %s: %w", types.HexAddress(admin), err)
		}
	}
	controllers := append([][20]byte{g.ProjectAddress}, g.Controllers...)
	for _, controller := range controllers {
		if err := n.roles.SetController(g.SuperAdmin, controller, true); err != nil {
			return fmt.Errorf("grant controller %s: %w", types.HexAddress(controller), err)
		}
	}
	for _, member := range g.Members {
		if _, err := n.members.Mint(g.SuperAdmin, member, ""); err != nil {
			return fmt.Errorf("grant membership %s: %w", types.HexAddress(member), err)
		}
	}
	for addr, amount := range g.Balances {
		if err := n.state.Credit(addr, amount); err != nil {
			return fmt.Errorf("credit %s: %w", types.HexAddress(addr), err)
		}
	}
	if err := n.random.Seed(g.RandomSeed); err != nil {
		return err
	}
	if err := n.sales.SetProjectAddress(g.SuperAdmin, g.ProjectAddress); err != nil {
		return err
	}
	if err := n.sales.SetRandomizerAddress(g.SuperAdmin, g.RandomizerAddress); err != nil {
		return err
	}
	return n.state.KVPut(genesisKey, true)
}

// exec runs fn as one transaction. On failure every write and event of fn
// is discarded.
func (n *Node) exec(op string, fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNodeClosed
	}
	start := time.Now()
	err := n.state.Atomic(fn)
	pending := n.buffer.Drain()
	n.metrics.ObserveOperation(op, time.Since(start))
	if err != nil {
		if IsRejection(err) {
			n.metrics.ObserveRejection(err.Error())
			n.logger.Warn("operation rejected", slog.String("op", op), slog.String("reason", err.Error()))
		} else {
			n.metrics.ObserveRejection("internal")
			n.logger.Error("operation failed", slog.String("op", op), slog.Any("error", err))
		}
		return err
	}
	for _, evt := range pending {
		n.publish(evt)
	}
	return nil
}

func (n *Node) publish(evt events.Event) {
	observeEvent(n.metrics, evt)
	logEvent(n.logger, evt)
	n.stream.Emit(evt)
	for _, sink := range n.sinks {
		sink.Emit(evt)
	}
}

func (n *Node) query(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNodeClosed
	}
	return fn()
}

// Close releases the database. Further calls fail with ErrNodeClosed.
func (n *Node) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	n.db.Close()
}

// Subscribe streams committed events after cursor.
func (n *Node) Subscribe(ctx context.Context, cursor string) (<-chan StreamEvent, func(), []StreamEvent, error) {
	return n.stream.Subscribe(ctx, cursor)
}

// ProjectAddress returns the campaign engine account.
func (n *Node) ProjectAddress() [20]byte { return n.projects.Address() }

// SaleAddress returns the sale engine custody account.
func (n *Node) SaleAddress() [20]byte { return n.sales.Address() }

// GiftAddress returns the gifting operator holders approve.
func (n *Node) GiftAddress() [20]byte { return n.gifts.Address() }

// --- campaign operations ---

func (n *Node) Publish(caller [20]byte, params project.PublishParams, inputs []sale.Input, value *big.Int) (uint64, error) {
	var id uint64
	err := n.exec("publish", func() error {
		var err error
		id, err = n.projects.Publish(caller, params, inputs, value)
		return err
	})
	return id, err
}

func (n *Node) AddSales(caller [20]byte, projectID uint64, isRoyalty bool, minSales uint64, inputs []sale.Input) ([]uint64, error) {
	var ids []uint64
	err := n.exec("add_sales", func() error {
		var err error
		ids, err = n.projects.AddSales(caller, projectID, isRoyalty, minSales, inputs)
		return err
	})
	return ids, err
}

func (n *Node) SetManager(caller [20]byte, projectID uint64, account [20]byte) error {
	return n.exec("set_manager", func() error {
		return n.projects.SetManager(caller, projectID, account)
	})
}

func (n *Node) SetProjectMerkleRoot(caller [20]byte, projectID uint64, root [32]byte) error {
	return n.exec("set_project_merkle_root", func() error {
		return n.projects.SetMerkleRoot(caller, projectID, root)
	})
}

func (n *Node) CloseProject(caller [20]byte, projectID uint64, saleIDs []uint64, giveBack bool) (*project.CloseOutcome, error) {
	var outcome *project.CloseOutcome
	err := n.exec("close_project", func() error {
		var err error
		outcome, err = n.projects.CloseProject(caller, projectID, saleIDs, giveBack)
		return err
	})
	return outcome, err
}

func (n *Node) WithdrawFund(caller [20]byte) (*big.Int, error) {
	var amount *big.Int
	err := n.exec("withdraw_fund", func() error {
		var err error
		amount, err = n.projects.WithdrawFund(caller)
		return err
	})
	return amount, err
}

// ConfigUpdate lists campaign engine settings to change. Nil fields are left
// untouched; the whole update applies or none of it does.
type ConfigUpdate struct {
	SaleAddress         *[20]byte
	ServiceFundReceiver *[20]byte
	OpFundReceiver      *[20]byte
	CreateProjectFee    *big.Int
	ActiveProjectFee    *big.Int
	OpFundLimit         *big.Int
	SaleCreateLimit     *uint64
	CloseLimit          *uint64
	ProfitShareMinimum  *uint64
}

func (n *Node) UpdateProjectConfig(caller [20]byte, update ConfigUpdate) error {
	return n.exec("update_project_config", func() error {
		p := n.projects
		steps := []struct {
			set bool
			fn  func() error
		}{
			{update.SaleAddress != nil, func() error { return p.SetSaleAddress(caller, *update.SaleAddress) }},
			{update.ServiceFundReceiver != nil, func() error { return p.SetServiceFundReceiver(caller, *update.ServiceFundReceiver) }},
			{update.OpFundReceiver != nil, func() error { return p.SetOpFundReceiver(caller, *update.OpFundReceiver) }},
			{update.CreateProjectFee != nil, func() error { return p.SetCreateProjectFee(caller, update.CreateProjectFee) }},
			{update.ActiveProjectFee != nil, func() error { return p.SetActiveProjectFee(caller, update.ActiveProjectFee) }},
			{update.OpFundLimit != nil, func() error { return p.SetOpFundLimit(caller, update.OpFundLimit) }},
			{update.SaleCreateLimit != nil, func() error { return p.SetSaleCreateLimit(caller, *update.SaleCreateLimit) }},
			{update.CloseLimit != nil, func() error { return p.SetCloseLimit(caller, *update.CloseLimit) }},
			{update.ProfitShareMinimum != nil, func() error { return p.SetProfitShareMinimum(caller, *update.ProfitShareMinimum) }},
		}
		applied := 0
		for _, step := range steps {
			if !step.set {
				continue
			}
			if err := step.fn(); err != nil {
				return err
			}
			applied++
		}
		if applied == 0 {
			return project.ErrInvalidSetting
		}
		return nil
	})
}

// --- sale operations ---

func (n *Node) Buy(caller [20]byte, saleID uint64, proof [][32]byte, quantity uint64, value *big.Int) error {
	return n.exec("buy", func() error {
		return n.sales.Buy(caller, saleID, proof, quantity, value)
	})
}

func (n *Node) BuyPack(caller [20]byte, projectID uint64, proof [][32]byte, quantity uint64, value *big.Int) error {
	return n.exec("buy_pack", func() error {
		return n.sales.BuyPack(caller, projectID, proof, quantity, value)
	})
}

func (n *Node) SetSaleMerkleRoot(caller [20]byte, saleID uint64, root [32]byte) error {
	return n.exec("set_sale_merkle_root", func() error {
		return n.sales.SetMerkleRoot(caller, saleID, root)
	})
}

// --- collaborators ---

func (n *Node) GrantMembership(caller, account [20]byte, uri string) (uint64, error) {
	var id uint64
	err := n.exec("grant_membership", func() error {
		var err error
		id, err = n.members.Mint(caller, account, uri)
		return err
	})
	return id, err
}

func (n *Node) SetAdmin(caller, account [20]byte, allow bool) error {
	return n.exec("set_admin", func() error {
		return n.roles.SetAdmin(caller, account, allow)
	})
}

func (n *Node) SetApprovalForAll(owner, operator [20]byte, approved bool) error {
	return n.exec("set_approval", func() error {
		return n.assets.SetApprovalForAll(owner, operator, approved)
	})
}

func (n *Node) Draw(caller [20]byte, bound uint64) (uint64, error) {
	var value uint64
	err := n.exec("draw", func() error {
		var err error
		value, err = n.random.Draw(caller, bound)
		return err
	})
	return value, err
}

// Gift sends one unit of tokenIDs[i] to accounts[i] out of caller's
// holdings. Caller must first approve GiftAddress on the collection.
func (n *Node) Gift(caller, token [20]byte, tokenIDs []uint64, accounts [][20]byte) error {
	return n.exec("gift", func() error {
		return n.gifts.Gifting(caller, token, tokenIDs, accounts)
	})
}

// --- queries ---

func (n *Node) Project(id uint64) (*project.Project, bool, error) {
	var (
		record *project.Project
		ok     bool
	)
	err := n.query(func() error {
		var err error
		record, ok, err = n.projects.Project(id)
		return err
	})
	return record, ok, err
}

func (n *Node) ProjectConfig() (*project.Config, error) {
	var cfg *project.Config
	err := n.query(func() error {
		var err error
		cfg, err = n.projects.Config()
		return err
	})
	return cfg, err
}

func (n *Node) RequiredCreateFee(token [20]byte) (*big.Int, error) {
	var fee *big.Int
	err := n.query(func() error {
		var err error
		fee, err = n.projects.RequiredCreateFee(token)
		return err
	})
	return fee, err
}

// CloseProgress reports what remains before a campaign can end.
type CloseProgress struct {
	OpenSales      uint64
	BuyersWaiting  uint64
	RemainingCalls uint64
}

func (n *Node) CloseProgress(projectID uint64) (*CloseProgress, error) {
	progress := &CloseProgress{}
	err := n.query(func() error {
		var err error
		if progress.OpenSales, err = n.projects.TotalSalesNotClose(projectID); err != nil {
			return err
		}
		if progress.BuyersWaiting, err = n.projects.TotalBuyersWaitingDistribution(projectID); err != nil {
			return err
		}
		progress.RemainingCalls, err = n.projects.CountNumberOfCloses(projectID)
		return err
	})
	return progress, err
}

func (n *Node) Sale(id uint64) (*sale.Sale, bool, error) {
	var (
		record *sale.Sale
		ok     bool
	)
	err := n.query(func() error {
		var err error
		record, ok, err = n.sales.Sale(id)
		return err
	})
	return record, ok, err
}

func (n *Node) SalesOfProject(projectID uint64) ([]*sale.Sale, error) {
	var out []*sale.Sale
	err := n.query(func() error {
		var err error
		out, err = n.sales.SalesOfProject(projectID)
		return err
	})
	return out, err
}

func (n *Node) CurrentSalesInPack(projectID uint64) ([]*sale.Sale, error) {
	var out []*sale.Sale
	err := n.query(func() error {
		var err error
		out, err = n.sales.CurrentSalesInPack(projectID)
		return err
	})
	return out, err
}

func (n *Node) SalePrice(saleID uint64) (*big.Int, error) {
	var price *big.Int
	err := n.query(func() error {
		var err error
		price, err = n.sales.SalePrice(saleID)
		return err
	})
	return price, err
}

func (n *Node) PackPrice(projectID uint64) (*big.Int, error) {
	var price *big.Int
	err := n.query(func() error {
		var err error
		price, err = n.sales.PackPrice(projectID)
		return err
	})
	return price, err
}

func (n *Node) Bill(saleID uint64, buyer [20]byte) (*sale.Bill, bool, error) {
	var (
		bill *sale.Bill
		ok   bool
	)
	err := n.query(func() error {
		var err error
		bill, ok, err = n.sales.Bill(saleID, buyer)
		return err
	})
	return bill, ok, err
}

func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.query(func() error {
		var err error
		balance, err = n.state.Balance(addr)
		return err
	})
	return balance, err
}

// TokenBalance returns the units of a collection token held by owner.
func (n *Node) TokenBalance(collection, owner [20]byte, id uint64) (uint64, error) {
	var held uint64
	err := n.query(func() error {
		var err error
		held, err = n.assets.BalanceOf(collection, owner, id)
		return err
	})
	return held, err
}

func (n *Node) IsMember(account [20]byte) bool {
	var ok bool
	_ = n.query(func() error {
		ok = n.members.Has(account)
		return nil
	})
	return ok
}
