package project

import (
	"math/big"

	"launchpad/native/sale"
)

// CloseOutcome summarizes one CloseProject call.
type CloseOutcome struct {
	Processed []uint64
	Closed    []uint64
	Settled   uint64
	Ended     bool
}

// CloseProject settles or refunds the listed sales, spending at most
// CloseLimit steps. Sales left unfinished stay open for the next call.
// Manager only. A campaign below its soft cap is refunded whether or not
// giveBack is set. The campaign ends once every sale is closed and no buyer
// is left waiting.
func (e *Engine) CloseProject(caller [20]byte, projectID uint64, saleIDs []uint64, giveBack bool) (*CloseOutcome, error) {
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
	if record.Status != StatusStarted || (e.now() < record.SaleEnd && record.Sold < record.Amount) {
		return nil, ErrInvalidProject
	}
	if giveBack && record.Sold >= record.MinSales {
		return nil, ErrInvalidSoftCap
	}
	if err := e.validateCloseIDs(projectID, saleIDs); err != nil {
		return nil, err
	}
	refund := giveBack || record.softCapMissed()

	outcome := &CloseOutcome{}
	budget := cfg.CloseLimit
	for _, id := range saleIDs {
		if budget == 0 {
			break
		}
		result, err := e.sales.Close(e.address, budget, projectID, id, refund)
		if err != nil {
			return nil, err
		}
		budget = result.Remaining
		outcome.Processed = append(outcome.Processed, id)
		outcome.Settled += result.Settled
		if result.Closed {
			outcome.Closed = append(outcome.Closed, id)
		}
	}
	if outcome.Settled > record.TotalBuyersWaitingDistribution {
		record.TotalBuyersWaitingDistribution = 0
	} else {
		record.TotalBuyersWaitingDistribution -= outcome.Settled
	}
	open, err := e.sales.SaleNotCloseLength(projectID)
	if err != nil {
		return nil, err
	}
	if open == 0 && record.TotalBuyersWaitingDistribution == 0 {
		record.Status = StatusEnded
		outcome.Ended = true
	}
	if err := e.storeProject(record); err != nil {
		return nil, err
	}
	e.emit(newCloseEvent(record, outcome, refund))
	if outcome.Ended {
		e.emit(newEndedEvent(projectID))
	}
	return outcome, nil
}

func (e *Engine) validateCloseIDs(projectID uint64, saleIDs []uint64) error {
	if len(saleIDs) == 0 {
		return ErrInvalidSaleID
	}
	seen := make(map[uint64]struct{}, len(saleIDs))
	for _, id := range saleIDs {
		if _, dup := seen[id]; dup {
			return ErrInvalidSaleID
		}
		seen[id] = struct{}{}
		record, ok, err := e.sales.Sale(id)
		if err != nil {
			return err
		}
		if !ok || record.ProjectID != projectID || record.IsClose {
			return ErrInvalidSaleID
		}
	}
	return nil
}

func (e *Engine) requireSale(caller [20]byte) error {
	cfg, err := e.ready()
	if err != nil {
		return err
	}
	if caller != cfg.SaleAddress {
		return ErrNotSale
	}
	return nil
}

func (e *Engine) saleCallback(caller [20]byte, projectID uint64, mutate func(record *Project) error) error {
	if err := e.requireSale(caller); err != nil {
		return err
	}
	record, ok, err := e.loadProject(projectID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidProject
	}
	if err := mutate(record); err != nil {
		return err
	}
	return e.storeProject(record)
}

// SetSoldQuantityToProject records the campaign's sold total. The total may
// only grow and never exceeds the offered amount. Sale engine only.
func (e *Engine) SetSoldQuantityToProject(caller [20]byte, projectID, quantity uint64) error {
	return e.saleCallback(caller, projectID, func(record *Project) error {
		if quantity < record.Sold || quantity > record.Amount {
			return ErrInvalidAmount
		}
		record.Sold = quantity
		return nil
	})
}

// AddTotalBuyersWaitingDistribution counts one more pending bill. Sale
// engine only.
func (e *Engine) AddTotalBuyersWaitingDistribution(caller [20]byte, projectID uint64) error {
	return e.saleCallback(caller, projectID, func(record *Project) error {
		record.TotalBuyersWaitingDistribution++
		return nil
	})
}

// End terminates a campaign. Sale engine only.
func (e *Engine) End(caller [20]byte, projectID uint64) error {
	err := e.saleCallback(caller, projectID, func(record *Project) error {
		record.Status = StatusEnded
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(newEndedEvent(projectID))
	return nil
}

// WithdrawFund sends the accrued create fees to the super admin.
func (e *Engine) WithdrawFund(caller [20]byte) (*big.Int, error) {
	if _, err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.roles.RequireSuperAdmin(caller); err != nil {
		return nil, err
	}
	balance, err := e.state.Balance(e.address)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, ErrAmountExceedsBalance
	}
	if err := e.state.Transfer(e.address, caller, balance); err != nil {
		return nil, err
	}
	e.emit(newWithdrawEvent(caller, balance))
	return balance, nil
}

// ProjectInfo returns the campaign view used by the sale engine.
func (e *Engine) ProjectInfo(id uint64) (*sale.ProjectInfo, error) {
	record, ok, err := e.loadProject(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidProject
	}
	return record.info(), nil
}

// Project returns a copy of the stored campaign.
func (e *Engine) Project(id uint64) (*Project, bool, error) {
	return e.loadProject(id)
}

// LastID returns the most recently assigned campaign id.
func (e *Engine) LastID() (uint64, error) {
	if e.state == nil {
		return 0, errNilState
	}
	var id uint64
	_, err := e.state.KVGet(lastIDKey, &id)
	return id, err
}

// Manager returns the manager of a campaign.
func (e *Engine) Manager(id uint64) ([20]byte, error) {
	record, ok, err := e.loadProject(id)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrInvalidProject
	}
	return record.Manager, nil
}

// IsManager reports whether addr manages the campaign.
func (e *Engine) IsManager(id uint64, addr [20]byte) bool {
	manager, err := e.Manager(id)
	return err == nil && manager == addr
}

// TotalBuyersWaitingDistribution returns the number of pending bills.
func (e *Engine) TotalBuyersWaitingDistribution(id uint64) (uint64, error) {
	record, ok, err := e.loadProject(id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrInvalidProject
	}
	return record.TotalBuyersWaitingDistribution, nil
}

// TotalSalesNotClose returns how many sales of the campaign are still open.
func (e *Engine) TotalSalesNotClose(id uint64) (uint64, error) {
	if e.sales == nil {
		return 0, errNotInitialized
	}
	return e.sales.SaleNotCloseLength(id)
}

// CountNumberOfCloses returns how many CloseProject calls are still needed
// with the current close limit.
func (e *Engine) CountNumberOfCloses(id uint64) (uint64, error) {
	cfg, err := e.ready()
	if err != nil {
		return 0, err
	}
	waiting, err := e.TotalBuyersWaitingDistribution(id)
	if err != nil {
		return 0, err
	}
	open, err := e.TotalSalesNotClose(id)
	if err != nil {
		return 0, err
	}
	steps := open + waiting
	return (steps + cfg.CloseLimit - 1) / cfg.CloseLimit, nil
}
