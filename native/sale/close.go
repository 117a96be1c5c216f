package sale

import "errors"

var ErrInvalidSoftCap = errors.New("Invalid softCap")

// Close performs one bounded settlement step of a sale. Each bill processed
// costs one unit of budget and so does closing the sale itself; the unused
// part is returned so the caller can carry it over to the next sale.
// Project only.
//
// A campaign that missed its soft cap is always refunded: every pending bill
// is paid back and, once the queue is empty, every token in custody returns
// to the manager. giveBack asks for that path explicitly and is rejected when
// the soft cap was met. Otherwise the unsold remainder returns to the manager
// and each bill is paid out and delivered. The sale closes only after its
// bill queue is empty.
func (e *Engine) Close(caller [20]byte, budget uint64, projectID, saleID uint64, giveBack bool) (CloseResult, error) {
	result := CloseResult{Remaining: budget}
	if err := e.requireProject(caller); err != nil {
		return result, err
	}
	record, ok, err := e.loadSale(saleID)
	if err != nil {
		return result, err
	}
	if !ok || record.ProjectID != projectID || record.IsClose {
		return result, ErrInvalidSaleID
	}
	project, err := e.projects.ProjectInfo(projectID)
	if err != nil {
		return result, err
	}
	if giveBack && project.Sold >= project.MinSales {
		return result, ErrInvalidSoftCap
	}
	refund := giveBack || project.SoftCapMissed()
	mode := CloseModeDistribute
	if refund {
		mode = CloseModeRefund
	}
	if record.CloseMode != CloseModeNone && record.CloseMode != mode {
		return result, ErrInvalidSaleID
	}
	if record.CloseMode == CloseModeNone {
		record.CloseMode = mode
		if err := e.storeSale(record); err != nil {
			return result, err
		}
	}
	if !refund && record.Amount > 0 {
		unsold := record.Amount
		if err := e.assets.Transfer(e.address, record.Token, e.address, project.Manager, record.TokenID, unsold); err != nil {
			return result, err
		}
		record.Amount = 0
		record.IsSoldOut = true
		if err := e.storeSale(record); err != nil {
			return result, err
		}
		e.emit(newReturnedEvent(record, project.Manager, unsold))
	}
	buyers, err := e.buyers(saleID)
	if err != nil {
		return result, err
	}
	for _, buyer := range buyers {
		if result.Remaining == 0 {
			break
		}
		bill, ok, err := e.loadBill(saleID, buyer)
		if err != nil {
			return result, err
		}
		if ok {
			if refund {
				err = e.refund(record, bill)
			} else {
				err = e.distribute(project, record, bill)
			}
			if err != nil {
				return result, err
			}
			if err := e.state.KVDelete(billKey(saleID, buyer)); err != nil {
				return result, err
			}
		}
		if _, err := e.state.KVRemove(buyersKey(saleID), buyer[:]); err != nil {
			return result, err
		}
		result.Remaining--
		result.Settled++
	}
	if result.Settled < uint64(len(buyers)) || result.Remaining == 0 {
		return result, nil
	}
	if refund {
		if err := e.assets.Transfer(e.address, record.Token, e.address, project.Manager, record.TokenID, record.Total); err != nil {
			return result, err
		}
		e.emit(newReturnedEvent(record, project.Manager, record.Total))
	}
	if err := e.markClosed(record); err != nil {
		return result, err
	}
	result.Remaining--
	result.Closed = true
	return result, nil
}

func (e *Engine) refund(record *Sale, bill *Bill) error {
	paid := bill.Paid()
	if err := e.state.Transfer(e.address, bill.Account, paid); err != nil {
		return err
	}
	e.emit(newBillEvent(EventTypeBillRefunded, record, bill))
	return nil
}

func (e *Engine) distribute(project *ProjectInfo, record *Sale, bill *Bill) error {
	if err := e.state.Transfer(e.address, bill.RoyaltyReceiver, bill.RoyaltyFee); err != nil {
		return err
	}
	if err := e.state.Transfer(e.address, e.projects.ServiceFundReceiver(), bill.SuperAdminFee); err != nil {
		return err
	}
	if err := e.state.Transfer(e.address, project.Manager, bill.SellerFee); err != nil {
		return err
	}
	if err := e.assets.Transfer(e.address, record.Token, e.address, bill.Account, record.TokenID, bill.Amount); err != nil {
		return err
	}
	e.emit(newBillEvent(EventTypeBillSettled, record, bill))
	return nil
}
