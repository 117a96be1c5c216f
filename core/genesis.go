package core

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"launchpad/core/types"
	"launchpad/native/project"
)

// Genesis seeds a fresh ledger. It is applied once; later boots only re-wire
// the engines against the persisted state.
type Genesis struct {
	SuperAdmin  [20]byte
	Admins      [][20]byte
	Controllers [][20]byte
	Members     [][20]byte

	ProjectAddress    [20]byte
	SaleAddress       [20]byte
	FactoryAddress    [20]byte
	RandomizerAddress [20]byte
	GiftAddress       [20]byte
	RandomSeed        [32]byte

	Project  project.Config
	Balances map[[20]byte]*big.Int
}

// EngineAddress derives the well known account of a named engine.
func EngineAddress(name string) [20]byte {
	var addr [20]byte
	digest := ethcrypto.Keccak256([]byte("launchpad/engine/" + name))
	copy(addr[:], digest[12:])
	return addr
}

func (g *Genesis) withDefaults() *Genesis {
	out := *g
	defaults := []struct {
		dst  *[20]byte
		name string
	}{
		{&out.ProjectAddress, "project"},
		{&out.SaleAddress, "sale"},
		{&out.FactoryAddress, "factory"},
		{&out.RandomizerAddress, "randomizer"},
		{&out.GiftAddress, "gift"},
	}
	for _, d := range defaults {
		if types.IsZeroAddress(*d.dst) {
			*d.dst = EngineAddress(d.name)
		}
	}
	if types.IsZeroAddress(out.Project.SaleAddress) {
		out.Project.SaleAddress = out.SaleAddress
	}
	if out.RandomSeed == ([32]byte{}) {
		copy(out.RandomSeed[:], ethcrypto.Keccak256(out.SuperAdmin[:]))
	}
	return &out
}

// Validate checks the fields NewNode cannot default.
func (g *Genesis) Validate() error {
	if g == nil {
		return fmt.Errorf("genesis: missing")
	}
	if types.IsZeroAddress(g.SuperAdmin) {
		return fmt.Errorf("genesis: super admin required")
	}
	if types.IsZeroAddress(g.Project.OpFundReceiver) {
		return fmt.Errorf("genesis: opFundReceiver required")
	}
	if g.Project.SaleCreateLimit == 0 || g.Project.CloseLimit == 0 {
		return fmt.Errorf("genesis: saleCreateLimit and closeLimit must be positive")
	}
	seen := map[[20]byte]string{}
	for _, engine := range []struct {
		name string
		addr [20]byte
	}{
		{"project", g.ProjectAddress},
		{"sale", g.SaleAddress},
		{"factory", g.FactoryAddress},
		{"randomizer", g.RandomizerAddress},
		{"gift", g.GiftAddress},
	} {
		if types.IsZeroAddress(engine.addr) {
			continue
		}
		if other, dup := seen[engine.addr]; dup {
			return fmt.Errorf("genesis: %s and %s share address %s", other, engine.name, types.HexAddress(engine.addr))
		}
		seen[engine.addr] = engine.name
	}
	for addr, amount := range g.Balances {
		if amount == nil || amount.Sign() < 0 {
			return fmt.Errorf("genesis: invalid balance for %s", types.HexAddress(addr))
		}
	}
	return nil
}
