package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"launchpad/core"
	"launchpad/core/types"
	"launchpad/native/fees"
)

// GenesisConfig is the textual form of core.Genesis. Addresses are 0x hex,
// amounts are decimal wei strings.
type GenesisConfig struct {
	SuperAdmin  string   `toml:"SuperAdmin" yaml:"super_admin"`
	Admins      []string `toml:"Admins" yaml:"admins"`
	Controllers []string `toml:"Controllers" yaml:"controllers"`
	Members     []string `toml:"Members" yaml:"members"`

	ProjectAddress    string `toml:"ProjectAddress,omitempty" yaml:"project_address,omitempty"`
	SaleAddress       string `toml:"SaleAddress,omitempty" yaml:"sale_address,omitempty"`
	FactoryAddress    string `toml:"FactoryAddress,omitempty" yaml:"factory_address,omitempty"`
	RandomizerAddress string `toml:"RandomizerAddress,omitempty" yaml:"randomizer_address,omitempty"`
	GiftAddress       string `toml:"GiftAddress,omitempty" yaml:"gift_address,omitempty"`
	RandomSeed        string `toml:"RandomSeed,omitempty" yaml:"random_seed,omitempty"`

	ServiceFundReceiver string `toml:"ServiceFundReceiver,omitempty" yaml:"service_fund_receiver,omitempty"`
	OpFundReceiver      string `toml:"OpFundReceiver" yaml:"op_fund_receiver"`
	CreateProjectFee    string `toml:"CreateProjectFee" yaml:"create_project_fee"`
	ActiveProjectFee    string `toml:"ActiveProjectFee" yaml:"active_project_fee"`
	OpFundLimit         string `toml:"OpFundLimit" yaml:"op_fund_limit"`
	SaleCreateLimit     uint64 `toml:"SaleCreateLimit" yaml:"sale_create_limit"`
	CloseLimit          uint64 `toml:"CloseLimit" yaml:"close_limit"`
	ProfitShareMinimum  uint64 `toml:"ProfitShareMinimum" yaml:"profit_share_minimum"`

	Balances map[string]string `toml:"Balances" yaml:"balances"`
}

func (g *GenesisConfig) applyDefaults() {
	if g.CreateProjectFee == "" {
		g.CreateProjectFee = "100000000000000000"
	}
	if g.ActiveProjectFee == "" {
		g.ActiveProjectFee = "50000000000000000"
	}
	if g.OpFundLimit == "" {
		g.OpFundLimit = "1000000000000000000"
	}
	if g.SaleCreateLimit == 0 {
		g.SaleCreateLimit = 50
	}
	if g.CloseLimit == 0 {
		g.CloseLimit = 100
	}
	if g.ProfitShareMinimum == 0 {
		g.ProfitShareMinimum = 5_000_000
	}
}

// ParseAmount decodes a decimal wei amount bounded to 256 bits.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return value.ToBig(), nil
}

func parseOptionalAddress(field, raw string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, nil
	}
	addr, err := types.ParseAddress(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: genesis %s: %w", field, err)
	}
	return addr, nil
}

func parseAddressList(field string, raw []string) ([][20]byte, error) {
	out := make([][20]byte, 0, len(raw))
	for i, entry := range raw {
		addr, err := types.ParseAddress(entry)
		if err != nil {
			return nil, fmt.Errorf("config: genesis %s[%d]: %w", field, i, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

// Parse converts the textual genesis into the node's form and validates it.
func (g GenesisConfig) Parse() (*core.Genesis, error) {
	out := &core.Genesis{Balances: map[[20]byte]*big.Int{}}
	var err error
	if strings.TrimSpace(g.SuperAdmin) == "" {
		return nil, fmt.Errorf("config: genesis SuperAdmin must be set")
	}
	addresses := []struct {
		field string
		raw   string
		dst   *[20]byte
	}{
		{"SuperAdmin", g.SuperAdmin, &out.SuperAdmin},
		{"ProjectAddress", g.ProjectAddress, &out.ProjectAddress},
		{"SaleAddress", g.SaleAddress, &out.SaleAddress},
		{"FactoryAddress", g.FactoryAddress, &out.FactoryAddress},
		{"RandomizerAddress", g.RandomizerAddress, &out.RandomizerAddress},
		{"GiftAddress", g.GiftAddress, &out.GiftAddress},
		{"ServiceFundReceiver", g.ServiceFundReceiver, &out.Project.ServiceFundReceiver},
		{"OpFundReceiver", g.OpFundReceiver, &out.Project.OpFundReceiver},
	}
	for _, a := range addresses {
		if *a.dst, err = parseOptionalAddress(a.field, a.raw); err != nil {
			return nil, err
		}
	}
	if out.Admins, err = parseAddressList("Admins", g.Admins); err != nil {
		return nil, err
	}
	if out.Controllers, err = parseAddressList("Controllers", g.Controllers); err != nil {
		return nil, err
	}
	if out.Members, err = parseAddressList("Members", g.Members); err != nil {
		return nil, err
	}
	if seed := strings.TrimPrefix(strings.TrimSpace(g.RandomSeed), "0x"); seed != "" {
		decoded, err := hex.DecodeString(seed)
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("config: genesis RandomSeed must be 32 hex bytes")
		}
		copy(out.RandomSeed[:], decoded)
	}

	amounts := []struct {
		field string
		raw   string
		dst   **big.Int
	}{
		{"CreateProjectFee", g.CreateProjectFee, &out.Project.CreateProjectFee},
		{"ActiveProjectFee", g.ActiveProjectFee, &out.Project.ActiveProjectFee},
		{"OpFundLimit", g.OpFundLimit, &out.Project.OpFundLimit},
	}
	for _, a := range amounts {
		value, err := ParseAmount(a.raw)
		if err != nil {
			return nil, fmt.Errorf("config: genesis %s: %w", a.field, err)
		}
		*a.dst = value
	}
	out.Project.SaleCreateLimit = g.SaleCreateLimit
	out.Project.CloseLimit = g.CloseLimit
	out.Project.ProfitShareMinimum = g.ProfitShareMinimum
	if g.ProfitShareMinimum > fees.MaxProfitShare {
		return nil, fmt.Errorf("config: genesis ProfitShareMinimum above 100%%")
	}

	for rawAddr, rawAmount := range g.Balances {
		addr, err := types.ParseAddress(rawAddr)
		if err != nil {
			return nil, fmt.Errorf("config: genesis Balances key %q: %w", rawAddr, err)
		}
		amount, err := ParseAmount(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("config: genesis Balances[%s]: %w", rawAddr, err)
		}
		out.Balances[addr] = amount
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return out, nil
}
