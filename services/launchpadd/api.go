package launchpadd

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"launchpad/core"
	"launchpad/core/types"
	"launchpad/native/project"
	"launchpad/native/sale"
)

const maxBodyBytes = 1 << 20

// requestError is a malformed request, reported as 400.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return value, nil
}

func parseAddress(field, raw string) ([20]byte, error) {
	addr, err := types.ParseAddress(raw)
	if err != nil {
		return [20]byte{}, badRequest("%s: %v", field, err)
	}
	return addr, nil
}

func parseOptionalAddress(field, raw string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, nil
	}
	return parseAddress(field, raw)
}

// parseAmount decodes a decimal wei string. Empty input yields nil.
func parseAmount(field, raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, badRequest("%s: invalid amount %q", field, raw)
	}
	return value.ToBig(), nil
}

func parseHash(field, raw string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil || len(decoded) != len(out) {
		return out, badRequest("%s: expected 32 hex bytes", field)
	}
	copy(out[:], decoded)
	return out, nil
}

func parseProof(raw []string) ([][32]byte, error) {
	proof := make([][32]byte, 0, len(raw))
	for i, entry := range raw {
		node, err := parseHash(fmt.Sprintf("proof[%d]", i), entry)
		if err != nil {
			return nil, err
		}
		proof = append(proof, node)
	}
	return proof, nil
}

func hashHex(h [32]byte) string {
	if h == ([32]byte{}) {
		return ""
	}
	return "0x" + hex.EncodeToString(h[:])
}

func amountString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func addressString(addr [20]byte) string {
	if types.IsZeroAddress(addr) {
		return ""
	}
	return types.HexAddress(addr)
}

// SaleInput is the wire form of sale.Input.
type SaleInput struct {
	TokenID           uint64 `json:"tokenId,omitempty"`
	URI               string `json:"uri,omitempty"`
	Amount            uint64 `json:"amount,omitempty"`
	RoyaltyReceiver   string `json:"royaltyReceiver,omitempty"`
	RoyaltyFee        uint64 `json:"royaltyFee,omitempty"`
	FixedPrice        string `json:"fixedPrice,omitempty"`
	MaxPrice          string `json:"maxPrice,omitempty"`
	MinPrice          string `json:"minPrice,omitempty"`
	PriceDecrementAmt string `json:"priceDecrementAmt,omitempty"`
}

func (in SaleInput) toInput(index int) (sale.Input, error) {
	field := func(name string) string { return fmt.Sprintf("sales[%d].%s", index, name) }
	out := sale.Input{TokenID: in.TokenID, URI: in.URI, Amount: in.Amount, RoyaltyFee: in.RoyaltyFee}
	var err error
	if out.RoyaltyReceiver, err = parseOptionalAddress(field("royaltyReceiver"), in.RoyaltyReceiver); err != nil {
		return out, err
	}
	amounts := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"fixedPrice", in.FixedPrice, &out.FixedPrice},
		{"maxPrice", in.MaxPrice, &out.MaxPrice},
		{"minPrice", in.MinPrice, &out.MinPrice},
		{"priceDecrementAmt", in.PriceDecrementAmt, &out.PriceDecrementAmt},
	}
	for _, a := range amounts {
		if *a.dst, err = parseAmount(field(a.name), a.raw); err != nil {
			return out, err
		}
	}
	return out, nil
}

func toInputs(raw []SaleInput) ([]sale.Input, error) {
	out := make([]sale.Input, 0, len(raw))
	for i, in := range raw {
		converted, err := in.toInput(i)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

// PublishRequest creates a campaign. Value is the create fee paid.
type PublishRequest struct {
	Token                 string      `json:"token,omitempty"`
	Name                  string      `json:"name,omitempty"`
	Symbol                string      `json:"symbol,omitempty"`
	URI                   string      `json:"uri,omitempty"`
	IsPack                bool        `json:"isPack"`
	IsSingle              bool        `json:"isSingle"`
	IsFixed               bool        `json:"isFixed"`
	IsInstantPayment      bool        `json:"isInstantPayment"`
	RoyaltyReceiver       string      `json:"royaltyReceiver,omitempty"`
	RoyaltyFee            uint64      `json:"royaltyFee,omitempty"`
	MinSales              uint64      `json:"minSales,omitempty"`
	ProfitShare           uint64      `json:"profitShare,omitempty"`
	SaleStart             uint64      `json:"saleStart"`
	SaleEnd               uint64      `json:"saleEnd"`
	FixedPricePack        string      `json:"fixedPricePack,omitempty"`
	MaxPricePack          string      `json:"maxPricePack,omitempty"`
	MinPricePack          string      `json:"minPricePack,omitempty"`
	PriceDecrementAmtPack string      `json:"priceDecrementAmtPack,omitempty"`
	Sales                 []SaleInput `json:"sales"`
	Value                 string      `json:"value"`
}

func (req PublishRequest) params() (project.PublishParams, []sale.Input, *big.Int, error) {
	params := project.PublishParams{
		Name:             req.Name,
		Symbol:           req.Symbol,
		URI:              req.URI,
		IsPack:           req.IsPack,
		IsSingle:         req.IsSingle,
		IsFixed:          req.IsFixed,
		IsInstantPayment: req.IsInstantPayment,
		RoyaltyFee:       req.RoyaltyFee,
		MinSales:         req.MinSales,
		ProfitShare:      req.ProfitShare,
		SaleStart:        req.SaleStart,
		SaleEnd:          req.SaleEnd,
	}
	var err error
	if params.Token, err = parseOptionalAddress("token", req.Token); err != nil {
		return params, nil, nil, err
	}
	if params.RoyaltyReceiver, err = parseOptionalAddress("royaltyReceiver", req.RoyaltyReceiver); err != nil {
		return params, nil, nil, err
	}
	packs := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"fixedPricePack", req.FixedPricePack, &params.FixedPricePack},
		{"maxPricePack", req.MaxPricePack, &params.MaxPricePack},
		{"minPricePack", req.MinPricePack, &params.MinPricePack},
		{"priceDecrementAmtPack", req.PriceDecrementAmtPack, &params.PriceDecrementAmtPack},
	}
	for _, p := range packs {
		if *p.dst, err = parseAmount(p.name, p.raw); err != nil {
			return params, nil, nil, err
		}
	}
	inputs, err := toInputs(req.Sales)
	if err != nil {
		return params, nil, nil, err
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		return params, nil, nil, err
	}
	return params, inputs, value, nil
}

type AddSalesRequest struct {
	IsRoyalty bool        `json:"isRoyalty"`
	MinSales  uint64      `json:"minSales"`
	Sales     []SaleInput `json:"sales"`
}

type CloseRequest struct {
	SaleIDs  []uint64 `json:"saleIds"`
	GiveBack bool     `json:"giveBack"`
}

type MerkleRootRequest struct {
	Root string `json:"root"`
}

type AccountRequest struct {
	Account string `json:"account"`
	URI     string `json:"uri,omitempty"`
	Allow   *bool  `json:"allow,omitempty"`
}

type ApprovalRequest struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

type BuyRequest struct {
	Quantity uint64   `json:"quantity"`
	Value    string   `json:"value"`
	Proof    []string `json:"proof,omitempty"`
}

type DrawRequest struct {
	Bound uint64 `json:"bound"`
}

// GiftRequest pairs tokenIds[i] with accounts[i].
type GiftRequest struct {
	Token    string   `json:"token"`
	TokenIDs []uint64 `json:"tokenIds"`
	Accounts []string `json:"accounts"`
}

func (req GiftRequest) parse() ([20]byte, [][20]byte, error) {
	token, err := parseAddress("token", req.Token)
	if err != nil {
		return [20]byte{}, nil, err
	}
	accounts := make([][20]byte, len(req.Accounts))
	for i, raw := range req.Accounts {
		if accounts[i], err = parseAddress(fmt.Sprintf("accounts[%d]", i), raw); err != nil {
			return [20]byte{}, nil, err
		}
	}
	return token, accounts, nil
}

// ConfigRequest mirrors core.ConfigUpdate; omitted fields are unchanged.
type ConfigRequest struct {
	SaleAddress         *string `json:"saleAddress,omitempty"`
	ServiceFundReceiver *string `json:"serviceFundReceiver,omitempty"`
	OpFundReceiver      *string `json:"opFundReceiver,omitempty"`
	CreateProjectFee    *string `json:"createProjectFee,omitempty"`
	ActiveProjectFee    *string `json:"activeProjectFee,omitempty"`
	OpFundLimit         *string `json:"opFundLimit,omitempty"`
	SaleCreateLimit     *uint64 `json:"saleCreateLimit,omitempty"`
	CloseLimit          *uint64 `json:"closeLimit,omitempty"`
	ProfitShareMinimum  *uint64 `json:"profitShareMinimum,omitempty"`
}

func (req ConfigRequest) update() (core.ConfigUpdate, error) {
	update := core.ConfigUpdate{
		SaleCreateLimit:    req.SaleCreateLimit,
		CloseLimit:         req.CloseLimit,
		ProfitShareMinimum: req.ProfitShareMinimum,
	}
	addrs := []struct {
		name string
		raw  *string
		dst  **[20]byte
	}{
		{"saleAddress", req.SaleAddress, &update.SaleAddress},
		{"serviceFundReceiver", req.ServiceFundReceiver, &update.ServiceFundReceiver},
		{"opFundReceiver", req.OpFundReceiver, &update.OpFundReceiver},
	}
	for _, a := range addrs {
		if a.raw == nil {
			continue
		}
		parsed, err := parseAddress(a.name, *a.raw)
		if err != nil {
			return update, err
		}
		*a.dst = &parsed
	}
	amounts := []struct {
		name string
		raw  *string
		dst  **big.Int
	}{
		{"createProjectFee", req.CreateProjectFee, &update.CreateProjectFee},
		{"activeProjectFee", req.ActiveProjectFee, &update.ActiveProjectFee},
		{"opFundLimit", req.OpFundLimit, &update.OpFundLimit},
	}
	for _, a := range amounts {
		if a.raw == nil {
			continue
		}
		parsed, err := parseAmount(a.name, *a.raw)
		if err != nil {
			return update, err
		}
		if parsed == nil {
			parsed = new(big.Int)
		}
		*a.dst = parsed
	}
	return update, nil
}

// --- views ---

type ProjectView struct {
	ID                             uint64 `json:"id"`
	Manager                        string `json:"manager"`
	Token                          string `json:"token"`
	IsCreatedByAdmin               bool   `json:"isCreatedByAdmin"`
	IsSingle                       bool   `json:"isSingle"`
	IsPack                         bool   `json:"isPack"`
	IsFixed                        bool   `json:"isFixed"`
	IsInstantPayment               bool   `json:"isInstantPayment"`
	SaleStart                      uint64 `json:"saleStart"`
	SaleEnd                        uint64 `json:"saleEnd"`
	MinSales                       uint64 `json:"minSales"`
	Amount                         uint64 `json:"amount"`
	Sold                           uint64 `json:"sold"`
	ProfitShare                    uint64 `json:"profitShare"`
	Status                         string `json:"status"`
	TotalBuyersWaitingDistribution uint64 `json:"totalBuyersWaitingDistribution"`
	MerkleRoot                     string `json:"merkleRoot,omitempty"`
	FixedPricePack                 string `json:"fixedPricePack,omitempty"`
	MaxPricePack                   string `json:"maxPricePack,omitempty"`
	MinPricePack                   string `json:"minPricePack,omitempty"`
	PriceDecrementAmtPack          string `json:"priceDecrementAmtPack,omitempty"`
}

func projectView(p *project.Project) ProjectView {
	return ProjectView{
		ID:                             p.ID,
		Manager:                        addressString(p.Manager),
		Token:                          addressString(p.Token),
		IsCreatedByAdmin:               p.IsCreatedByAdmin,
		IsSingle:                       p.IsSingle,
		IsPack:                         p.IsPack,
		IsFixed:                        p.IsFixed,
		IsInstantPayment:               p.IsInstantPayment,
		SaleStart:                      p.SaleStart,
		SaleEnd:                        p.SaleEnd,
		MinSales:                       p.MinSales,
		Amount:                         p.Amount,
		Sold:                           p.Sold,
		ProfitShare:                    p.ProfitShare,
		Status:                         p.Status.String(),
		TotalBuyersWaitingDistribution: p.TotalBuyersWaitingDistribution,
		MerkleRoot:                     hashHex(p.MerkleRoot),
		FixedPricePack:                 amountString(p.FixedPricePack),
		MaxPricePack:                   amountString(p.MaxPricePack),
		MinPricePack:                   amountString(p.MinPricePack),
		PriceDecrementAmtPack:          amountString(p.PriceDecrementAmtPack),
	}
}

type SaleView struct {
	ID                uint64 `json:"id"`
	ProjectID         uint64 `json:"projectId"`
	Token             string `json:"token"`
	TokenID           uint64 `json:"tokenId"`
	Amount            uint64 `json:"amount"`
	Total             uint64 `json:"total"`
	IsSoldOut         bool   `json:"isSoldOut"`
	IsClose           bool   `json:"isClose"`
	FixedPrice        string `json:"fixedPrice,omitempty"`
	MaxPrice          string `json:"maxPrice,omitempty"`
	MinPrice          string `json:"minPrice,omitempty"`
	PriceDecrementAmt string `json:"priceDecrementAmt,omitempty"`
	RoyaltyReceiver   string `json:"royaltyReceiver,omitempty"`
	RoyaltyFee        uint64 `json:"royaltyFee,omitempty"`
	MerkleRoot        string `json:"merkleRoot,omitempty"`
}

func saleView(s *sale.Sale) SaleView {
	return SaleView{
		ID:                s.ID,
		ProjectID:         s.ProjectID,
		Token:             addressString(s.Token),
		TokenID:           s.TokenID,
		Amount:            s.Amount,
		Total:             s.Total,
		IsSoldOut:         s.IsSoldOut,
		IsClose:           s.IsClose,
		FixedPrice:        amountString(s.FixedPrice),
		MaxPrice:          amountString(s.MaxPrice),
		MinPrice:          amountString(s.MinPrice),
		PriceDecrementAmt: amountString(s.PriceDecrementAmt),
		RoyaltyReceiver:   addressString(s.RoyaltyReceiver),
		RoyaltyFee:        s.RoyaltyFee,
		MerkleRoot:        hashHex(s.MerkleRoot),
	}
}

func saleViews(records []*sale.Sale) []SaleView {
	out := make([]SaleView, 0, len(records))
	for _, record := range records {
		out = append(out, saleView(record))
	}
	return out
}

type BillView struct {
	SaleID          uint64 `json:"saleId"`
	Account         string `json:"account"`
	Amount          uint64 `json:"amount"`
	RoyaltyReceiver string `json:"royaltyReceiver,omitempty"`
	RoyaltyFee      string `json:"royaltyFee"`
	SuperAdminFee   string `json:"superAdminFee"`
	SellerFee       string `json:"sellerFee"`
	Paid            string `json:"paid"`
}

func billView(b *sale.Bill) BillView {
	return BillView{
		SaleID:          b.SaleID,
		Account:         addressString(b.Account),
		Amount:          b.Amount,
		RoyaltyReceiver: addressString(b.RoyaltyReceiver),
		RoyaltyFee:      amountString(b.RoyaltyFee),
		SuperAdminFee:   amountString(b.SuperAdminFee),
		SellerFee:       amountString(b.SellerFee),
		Paid:            b.Paid().String(),
	}
}

type ConfigView struct {
	SaleAddress         string `json:"saleAddress"`
	ServiceFundReceiver string `json:"serviceFundReceiver"`
	OpFundReceiver      string `json:"opFundReceiver"`
	CreateProjectFee    string `json:"createProjectFee"`
	ActiveProjectFee    string `json:"activeProjectFee"`
	OpFundLimit         string `json:"opFundLimit"`
	SaleCreateLimit     uint64 `json:"saleCreateLimit"`
	CloseLimit          uint64 `json:"closeLimit"`
	ProfitShareMinimum  uint64 `json:"profitShareMinimum"`
}

func configView(c *project.Config) ConfigView {
	return ConfigView{
		SaleAddress:         addressString(c.SaleAddress),
		ServiceFundReceiver: addressString(c.ServiceFundReceiver),
		OpFundReceiver:      addressString(c.OpFundReceiver),
		CreateProjectFee:    amountString(c.CreateProjectFee),
		ActiveProjectFee:    amountString(c.ActiveProjectFee),
		OpFundLimit:         amountString(c.OpFundLimit),
		SaleCreateLimit:     c.SaleCreateLimit,
		CloseLimit:          c.CloseLimit,
		ProfitShareMinimum:  c.ProfitShareMinimum,
	}
}

var errNotFound = errors.New("not found")

func parseAddressParam(r *http.Request, name string) ([20]byte, error) {
	return parseAddress(name, chi.URLParam(r, name))
}
