package launchpadd

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"launchpad/core"
	"launchpad/core/types"
	"launchpad/indexer"
	"launchpad/native/project"
	"launchpad/storage"
)

const testSecret = "test-secret"

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

var (
	superAdmin = addr(0x01)
	member     = addr(0x10)
	buyer      = addr(0x21)
	opFund     = addr(0x0F)
)

type testEnv struct {
	t     *testing.T
	now   int64
	node  *core.Node
	index *indexer.Store
	srv   *httptest.Server
}

func newTestEnv(t *testing.T, limit RateLimit) *testEnv {
	t.Helper()
	env := &testEnv{t: t, now: 500}
	index, err := indexer.Open(indexer.DriverSQLite, filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	env.index = index

	genesis := &core.Genesis{
		SuperAdmin: superAdmin,
		Members:    [][20]byte{member},
		Project: project.Config{
			OpFundReceiver:   opFund,
			CreateProjectFee: ether(1),
			ActiveProjectFee: ether(1),
			OpFundLimit:      ether(10),
			SaleCreateLimit:  10,
			CloseLimit:       10,
		},
		Balances: map[[20]byte]*big.Int{member: ether(100), buyer: ether(100)},
	}
	node, err := core.NewNode(storage.NewMemDB(), genesis,
		core.WithClock(func() int64 { return env.now }),
		core.WithSink(index))
	require.NoError(t, err)
	env.node = node

	auth, err := NewAuthenticator(AuthConfig{HMACSecret: testSecret, Issuer: "launchpad"}, nil)
	require.NoError(t, err)
	if limit.RequestsPerMinute == 0 {
		limit = RateLimit{RequestsPerMinute: 6000, Burst: 100}
	}
	srv, err := New(Config{Node: node, Index: index, Auth: auth, RateLimit: limit})
	require.NoError(t, err)
	env.srv = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		env.srv.Close()
		node.Close()
		_ = index.Close()
	})
	return env
}

func (e *testEnv) token(subject [20]byte) string {
	e.t.Helper()
	token, err := IssueToken(testSecret, subject, "launchpad", "", time.Hour)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body interface{}, out interface{}) int {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(e.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	} else if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func publishRequest() PublishRequest {
	return PublishRequest{
		Name:        "Genesis",
		Symbol:      "GEN",
		URI:         "ipfs://collection",
		IsFixed:     true,
		ProfitShare: 10_000_000,
		SaleStart:   1_000,
		SaleEnd:     2_000,
		Sales:       []SaleInput{{URI: "ipfs://a", Amount: 5, FixedPrice: ether(1).String()}},
		Value:       ether(2).String(),
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, RateLimit{})
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", "", nil, nil))
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/metrics", "", nil, nil))
}

func TestWritesRequireValidToken(t *testing.T) {
	env := newTestEnv(t, RateLimit{})
	var body errorBody
	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/projects", "", publishRequest(), &body))
	require.Equal(t, "authentication required", body.Error)

	forged, err := IssueToken("other-secret", member, "launchpad", "", time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/projects", forged, publishRequest(), nil))

	wrongIssuer, err := IssueToken(testSecret, member, "elsewhere", "", time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/config/project", wrongIssuer, nil, nil))
}

func TestPublishBuyAndQuery(t *testing.T) {
	env := newTestEnv(t, RateLimit{})
	memberToken, buyerToken := env.token(member), env.token(buyer)

	var fee map[string]string
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/fees/create", "", nil, &fee))
	require.Equal(t, ether(2).String(), fee["fee"])

	underpaid := publishRequest()
	underpaid.Value = ether(1).String()
	var failure errorBody
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/projects", memberToken, underpaid, &failure))
	require.Equal(t, project.ErrInvalidCreateFee.Error(), failure.Error)

	malformed := publishRequest()
	malformed.Value = "-5"
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/projects", memberToken, malformed, nil))

	var created map[string]uint64
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/projects", memberToken, publishRequest(), &created))
	require.Equal(t, uint64(1), created["projectId"])

	var view ProjectView
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/projects/1", "", nil, &view))
	require.Equal(t, "started", view.Status)
	require.Equal(t, types.HexAddress(member), view.Manager)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/projects/9", "", nil, nil))

	var sales []SaleView
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/projects/1/sales", "", nil, &sales))
	require.Len(t, sales, 1)

	buy := BuyRequest{Quantity: 2, Value: ether(2).String()}
	var notYet errorBody
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/sales/1/buy", buyerToken, buy, &notYet))
	require.Equal(t, "Sale is not available", notYet.Error)

	env.now = 1_100
	require.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/sales/1/buy", buyerToken, buy, nil))

	var bill BillView
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/sales/1/bills/"+types.HexAddress(buyer), "", nil, &bill))
	require.Equal(t, uint64(2), bill.Amount)
	require.Equal(t, ether(2).String(), bill.Paid)

	var balance map[string]string
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/accounts/"+types.HexAddress(buyer)+"/balance", "", nil, &balance))
	require.Equal(t, ether(98).String(), balance["balance"])

	env.now = 2_100
	var outcome map[string]interface{}
	closeReq := CloseRequest{SaleIDs: []uint64{1}}
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/projects/1/close", memberToken, closeReq, &outcome))
	require.Equal(t, true, outcome["ended"])

	var indexed []IndexedEvent
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/events?type=sale.purchased", "", nil, &indexed))
	require.Len(t, indexed, 1)
	require.Equal(t, "2", indexed[0].Attributes["quantity"])
}

func TestAdminConfigUpdate(t *testing.T) {
	env := newTestEnv(t, RateLimit{})
	limit := uint64(3)
	req := ConfigRequest{CloseLimit: &limit}

	var failure errorBody
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/admin/project-config", env.token(member), req, &failure))
	require.Equal(t, "Caller is not the admin", failure.Error)

	var cfg ConfigView
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/admin/project-config", env.token(superAdmin), req, &cfg))
	require.Equal(t, uint64(3), cfg.CloseLimit)
}

func TestBuyIsRateLimited(t *testing.T) {
	env := newTestEnv(t, RateLimit{RequestsPerMinute: 1, Burst: 1})
	token := env.token(buyer)
	buy := BuyRequest{Quantity: 1, Value: "1"}
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/sales/1/buy", token, buy, nil))
	require.Equal(t, http.StatusTooManyRequests, env.do(http.MethodPost, "/sales/1/buy", token, buy, nil))
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/fees/create", "", nil, nil), "reads are not limited")
}

func TestEventStreamReplaysBacklog(t *testing.T) {
	env := newTestEnv(t, RateLimit{})
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/projects", env.token(member), publishRequest(), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/events/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	seen := map[string]bool{}
	for !seen[project.EventTypeProjectPublished] {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var evt core.StreamEvent
		require.NoError(t, json.Unmarshal(data, &evt))
		require.NotZero(t, evt.Sequence)
		seen[evt.Type] = true
	}
}

func TestGiftValidation(t *testing.T) {
	env := newTestEnv(t, RateLimit{})
	req := GiftRequest{Token: types.HexAddress(member), TokenIDs: []uint64{1}, Accounts: []string{types.HexAddress(buyer)}}
	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/gifts", "", req, nil))

	var body errorBody
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/gifts", env.token(member), req, &body))
	require.Equal(t, "Invalid token", body.Error)

	req.Accounts = []string{"nope"}
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/gifts", env.token(member), req, nil))
}
