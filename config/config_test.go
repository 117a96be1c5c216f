package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"launchpad/core/types"
)

const (
	superHex  = "0x1111111111111111111111111111111111111111"
	opFundHex = "0x0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f"
	memberHex = "0x1010101010101010101010101010101010101010"
)

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "launchpad.toml")
	contents := `ListenAddress = "127.0.0.1:9000"
StorageBackend = "bolt"

[index]
Driver = "sqlite"
DSN = "index.db"

[auth]
HMACSecret = "topsecret"
Issuer = "launchpad"

[rate_limit]
BuyPerMinute = 30

[genesis]
SuperAdmin = "` + superHex + `"
Members = ["` + memberHex + `"]
OpFundReceiver = "` + opFundHex + `"
CreateProjectFee = "1000000000000000000"
CloseLimit = 25

[genesis.Balances]
"` + memberHex + `" = "5000000000000000000"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
	require.Equal(t, "bolt", cfg.StorageBackend)
	require.Equal(t, "./launchpad-data", cfg.DataDir)
	require.Equal(t, 30.0, cfg.RateLimit.BuyPerMinute)
	require.Equal(t, 10, cfg.RateLimit.Burst)

	genesis, err := cfg.Genesis.Parse()
	require.NoError(t, err)
	super, _ := types.ParseAddress(superHex)
	member, _ := types.ParseAddress(memberHex)
	require.Equal(t, super, genesis.SuperAdmin)
	require.Equal(t, [][20]byte{member}, genesis.Members)
	require.Equal(t, uint64(25), genesis.Project.CloseLimit)
	require.Equal(t, uint64(50), genesis.Project.SaleCreateLimit)
	require.Equal(t, "1000000000000000000", genesis.Project.CreateProjectFee.String())
	require.Equal(t, "5000000000000000000", genesis.Balances[member].String())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launchpad.yaml")
	contents := `listen: ":7000"
storage_backend: memory
auth:
  hmac_secret_env: LAUNCHPAD_TEST_SECRET
genesis:
  super_admin: "` + superHex + `"
  op_fund_receiver: "` + opFundHex + `"
  admins: ["` + memberHex + `"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	t.Setenv("LAUNCHPAD_TEST_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.ListenAddress)
	require.Equal(t, "memory", cfg.StorageBackend)
	require.Equal(t, "from-env", cfg.Auth.Secret())
	require.Len(t, cfg.Genesis.Admins, 1)
}

func TestLoadWritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "launchpad.toml")
	_, err := Load(path)
	require.Error(t, err, "a default config has no secret or super admin")
	require.Contains(t, err.Error(), "edit it before starting")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(raw), "ListenAddress"))
}

func TestLoadRejects(t *testing.T) {
	base := `[auth]
HMACSecret = "s"

[genesis]
SuperAdmin = "` + superHex + `"
OpFundReceiver = "` + opFundHex + `"
`
	cases := []struct {
		name  string
		extra string
		want  string
	}{
		{"unknown field", "Bogus = 1\n", "unknown field"},
		{"bad backend", "StorageBackend = \"redis\"\n", "StorageBackend"},
		{"index without dsn", "[index]\nDriver = \"postgres\"\n", "DSN"},
		{"bad fee", "[genesis.Balances]\n\"" + memberHex + "\" = \"-1\"\n", "invalid amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.toml")
			contents := base
			if strings.HasPrefix(tc.extra, "[") {
				contents += tc.extra
			} else {
				contents = tc.extra + contents
			}
			require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseAmountBounds(t *testing.T) {
	v, err := ParseAmount("")
	require.NoError(t, err)
	require.Zero(t, v.Sign())
	_, err = ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639936")
	require.Error(t, err, "2^256 overflows")
	_, err = ParseAmount("1.5")
	require.Error(t, err)
}
