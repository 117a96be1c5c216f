package launchpadd

import (
	"math/big"
	"net/http"

	"launchpad/core/types"
)

// --- campaign writes ---

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req PublishRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	params, inputs, value, err := req.params()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.node.Publish(caller, params, inputs, value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"projectId": id})
}

func (s *Server) handleAddSales(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	projectID, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req AddSalesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	inputs, err := toInputs(req.Sales)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ids, err := s.node.AddSales(caller, projectID, req.IsRoyalty, req.MinSales, inputs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]uint64{"saleIds": ids})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	projectID, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req CloseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	outcome, err := s.node.CloseProject(caller, projectID, req.SaleIDs, req.GiveBack)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"processed": outcome.Processed,
		"closed":    outcome.Closed,
		"settled":   outcome.Settled,
		"ended":     outcome.Ended,
	})
}

func (s *Server) handleProjectMerkleRoot(w http.ResponseWriter, r *http.Request) {
	s.handleMerkleRoot(w, r, s.node.SetProjectMerkleRoot)
}

func (s *Server) handleSaleMerkleRoot(w http.ResponseWriter, r *http.Request) {
	s.handleMerkleRoot(w, r, s.node.SetSaleMerkleRoot)
}

func (s *Server) handleMerkleRoot(w http.ResponseWriter, r *http.Request, set func(caller [20]byte, id uint64, root [32]byte) error) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req MerkleRootRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	root, err := parseHash("root", req.Root)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := set(caller, id, root); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetManager(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	projectID, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req AccountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	account, err := parseOptionalAddress("account", req.Account)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.node.SetManager(caller, projectID, account); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req ApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	operator, err := parseAddress("operator", req.Operator)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.node.SetApprovalForAll(caller, operator, req.Approved); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGift(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req GiftRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, accounts, err := req.parse()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.node.Gift(caller, token, req.TokenIDs, accounts); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- purchases ---

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handlePurchase(w, r, s.node.Buy)
}

func (s *Server) handleBuyPack(w http.ResponseWriter, r *http.Request) {
	s.handlePurchase(w, r, s.node.BuyPack)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request, buy func(caller [20]byte, id uint64, proof [][32]byte, quantity uint64, value *big.Int) error) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req BuyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	proof, err := parseProof(req.Proof)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := buy(caller, id, proof, req.Quantity, value); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- administration ---

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req ConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	update, err := req.update()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.node.UpdateProjectConfig(caller, update); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleProjectConfig(w, r)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := s.node.WithdrawFund(caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

func (s *Server) handleGrantMembership(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req AccountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	account, err := parseOptionalAddress("account", req.Account)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.node.GrantMembership(caller, account, req.URI)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"tokenId": id})
}

func (s *Server) handleSetAdmin(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req AccountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	account, err := parseOptionalAddress("account", req.Account)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	allow := req.Allow == nil || *req.Allow
	if err := s.node.SetAdmin(caller, account, allow); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req DrawRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	value, err := s.node.Draw(caller, req.Bound)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"value": value})
}

// --- queries ---

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	record, ok, err := s.node.Project(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, projectView(record))
}

func (s *Server) handleProjectSales(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.node.SalesOfProject(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saleViews(records))
}

func (s *Server) handlePack(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	price, err := s.node.PackPrice(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	remaining, err := s.node.CurrentSalesInPack(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"price":     amountString(price),
		"remaining": saleViews(remaining),
	})
}

func (s *Server) handleCloseProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	progress, err := s.node.CloseProgress(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{
		"openSales":      progress.OpenSales,
		"buyersWaiting":  progress.BuyersWaiting,
		"remainingCalls": progress.RemainingCalls,
	})
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	record, ok, err := s.node.Sale(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, saleView(record))
}

func (s *Server) handleSalePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	price, err := s.node.SalePrice(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"price": amountString(price)})
}

func (s *Server) handleBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	buyer, err := parseAddressParam(r, "buyer")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bill, ok, err := s.node.Bill(id, buyer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, billView(bill))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddressParam(r, "addr")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.node.Balance(account)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account": types.HexAddress(account),
		"balance": balance.String(),
	})
}

func (s *Server) handleProjectConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.node.ProjectConfig()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configView(cfg))
}

func (s *Server) handleCreateFee(w http.ResponseWriter, r *http.Request) {
	token, err := parseOptionalAddress("token", r.URL.Query().Get("token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fee, err := s.node.RequiredCreateFee(token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fee": fee.String()})
}
