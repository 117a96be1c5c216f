package sale

import (
	"math/big"

	"launchpad/crypto/merkle"
	"launchpad/native/fees"
)

func allowlisted(root [32]byte, caller [20]byte, proof [][32]byte) bool {
	if root == ([32]byte{}) {
		return true
	}
	return merkle.Verify(root, caller, proof)
}

func (e *Engine) withinWindow(project *ProjectInfo) bool {
	now := e.now()
	return !project.Ended && now >= project.SaleStart && now <= project.SaleEnd
}

// Buy purchases quantity tokens of a sale. value must equal the live price
// times quantity.
func (e *Engine) Buy(caller [20]byte, saleID uint64, proof [][32]byte, quantity uint64, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	record, project, err := e.saleWithProject(saleID)
	if err != nil {
		return err
	}
	if project.IsPack {
		return ErrProjectIsPack
	}
	if !e.withinWindow(project) {
		return ErrSaleNotAvailable
	}
	root := record.MerkleRoot
	if root == ([32]byte{}) {
		root = project.MerkleRoot
	}
	if !allowlisted(root, caller, proof) {
		return ErrInvalidWinner
	}
	if record.IsSoldOut || record.IsClose || record.Amount == 0 {
		return ErrSoldOut
	}
	if quantity == 0 || quantity > record.Amount {
		return ErrInvalidAmount
	}
	total := new(big.Int).Mul(e.unitPrice(project, record), new(big.Int).SetUint64(quantity))
	if value == nil || value.Cmp(total) != 0 {
		return ErrInvalidValue
	}
	if !project.IsInstantPayment {
		if err := e.checkBillRoyalty(record, caller, total); err != nil {
			return err
		}
	}
	if err := e.state.Transfer(caller, e.address, total); err != nil {
		return err
	}
	record.Amount -= quantity
	record.IsSoldOut = record.Amount == 0
	if err := e.storeSale(record); err != nil {
		return err
	}
	if err := e.projects.SetSoldQuantityToProject(e.address, project.ID, project.Sold+quantity); err != nil {
		return err
	}
	if err := e.settlePurchase(project, record, caller, quantity, total); err != nil {
		return err
	}
	e.emit(newPurchaseEvent(EventTypePurchased, record, caller, quantity, total, project.IsInstantPayment))
	if project.IsInstantPayment {
		return e.maybeEnd(project.ID)
	}
	return nil
}

// BuyPack purchases quantity whole sales of a pack project, consumed in
// creation order. value must equal quantity times the live pack price.
func (e *Engine) BuyPack(caller [20]byte, projectID uint64, proof [][32]byte, quantity uint64, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.projects == nil {
		return errProjectUnwired
	}
	project, err := e.projects.ProjectInfo(projectID)
	if err != nil {
		return err
	}
	if !project.IsPack {
		return ErrProjectNotPack
	}
	if !e.withinWindow(project) {
		return ErrSaleNotAvailable
	}
	if !allowlisted(project.MerkleRoot, caller, proof) {
		return ErrInvalidWinner
	}
	open, err := e.CurrentSalesInPack(projectID)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return ErrSoldOut
	}
	all, err := e.SaleIDsOfProject(projectID)
	if err != nil {
		return err
	}
	if quantity == 0 || quantity > uint64(len(all)) {
		return ErrInvalidAmount
	}
	if quantity > uint64(len(open)) {
		return ErrSoldOut
	}
	price := e.packPrice(project)
	total := new(big.Int).Mul(price, new(big.Int).SetUint64(quantity))
	if value == nil || value.Cmp(total) != 0 {
		return ErrInvalidValue
	}
	for _, record := range open[:quantity] {
		if !allowlisted(record.MerkleRoot, caller, proof) {
			return ErrInvalidWinner
		}
	}
	if err := e.state.Transfer(caller, e.address, total); err != nil {
		return err
	}
	sold := project.Sold
	for _, record := range open[:quantity] {
		units := record.Amount
		record.Amount = 0
		record.IsSoldOut = true
		if err := e.storeSale(record); err != nil {
			return err
		}
		sold += units
		if err := e.settlePurchase(project, record, caller, units, price); err != nil {
			return err
		}
		e.emit(newPurchaseEvent(EventTypePackPurchased, record, caller, units, price, project.IsInstantPayment))
	}
	if err := e.projects.SetSoldQuantityToProject(e.address, project.ID, sold); err != nil {
		return err
	}
	if project.IsInstantPayment {
		return e.maybeEnd(project.ID)
	}
	return nil
}

// settlePurchase freezes the fee split of a purchase. Instant projects pay
// out and deliver now; the others accumulate a bill for close.
func (e *Engine) settlePurchase(project *ProjectInfo, record *Sale, buyer [20]byte, quantity uint64, amount *big.Int) error {
	receiver, split, err := e.splitFor(project, record, amount)
	if err != nil {
		return err
	}
	if project.IsInstantPayment {
		if err := e.payout(project, receiver, split); err != nil {
			return err
		}
		if err := e.assets.Transfer(e.address, record.Token, e.address, buyer, record.TokenID, quantity); err != nil {
			return err
		}
		if record.IsSoldOut {
			return e.markClosed(record)
		}
		return nil
	}
	return e.recordBill(project, record, buyer, quantity, receiver, split)
}

// checkBillRoyalty rejects a purchase whose royalty would go to a different
// account than the one the buyer's open bill already owes. A bill pays its
// accrued royalty to a single receiver at close.
func (e *Engine) checkBillRoyalty(record *Sale, buyer [20]byte, amount *big.Int) error {
	bill, ok, err := e.loadBill(record.ID, buyer)
	if err != nil || !ok {
		return err
	}
	receiver, royalty, err := e.royaltyOf(record, amount)
	if err != nil {
		return err
	}
	if receiver == bill.RoyaltyReceiver || royalty == nil || royalty.Sign() == 0 {
		return nil
	}
	if bill.RoyaltyFee != nil && bill.RoyaltyFee.Sign() > 0 {
		return ErrRoyaltyChanged
	}
	return nil
}

// recordBill adds a purchase to the buyer's bill. A bill that has accrued no
// royalty yet adopts the receiver of the new purchase.
func (e *Engine) recordBill(project *ProjectInfo, record *Sale, buyer [20]byte, quantity uint64, receiver [20]byte, split fees.Split) error {
	bill, ok, err := e.loadBill(record.ID, buyer)
	if err != nil {
		return err
	}
	if !ok {
		bill = &Bill{
			SaleID:          record.ID,
			Account:         buyer,
			RoyaltyReceiver: receiver,
			RoyaltyFee:      new(big.Int),
			SuperAdminFee:   new(big.Int),
			SellerFee:       new(big.Int),
		}
		if err := e.state.KVAppend(buyersKey(record.ID), buyer[:]); err != nil {
			return err
		}
		if err := e.projects.AddTotalBuyersWaitingDistribution(e.address, project.ID); err != nil {
			return err
		}
	}
	if receiver != bill.RoyaltyReceiver && (bill.RoyaltyFee == nil || bill.RoyaltyFee.Sign() == 0) {
		bill.RoyaltyReceiver = receiver
	}
	bill.Amount += quantity
	bill.RoyaltyFee = new(big.Int).Add(cloneBigInt(bill.RoyaltyFee), split.Royalty)
	bill.SuperAdminFee = new(big.Int).Add(cloneBigInt(bill.SuperAdminFee), split.Platform)
	bill.SellerFee = new(big.Int).Add(cloneBigInt(bill.SellerFee), split.Seller)
	return e.state.KVPut(billKey(record.ID, buyer), bill)
}

func (e *Engine) payout(project *ProjectInfo, royaltyReceiver [20]byte, split fees.Split) error {
	if err := e.state.Transfer(e.address, royaltyReceiver, split.Royalty); err != nil {
		return err
	}
	if err := e.state.Transfer(e.address, e.projects.ServiceFundReceiver(), split.Platform); err != nil {
		return err
	}
	return e.state.Transfer(e.address, project.Manager, split.Seller)
}

// maybeEnd ends the project once every sale is closed and nobody is waiting
// for a distribution.
func (e *Engine) maybeEnd(projectID uint64) error {
	open, err := e.SaleNotCloseLength(projectID)
	if err != nil || open > 0 {
		return err
	}
	project, err := e.projects.ProjectInfo(projectID)
	if err != nil {
		return err
	}
	if project.Ended || project.TotalBuyersWaiting > 0 {
		return nil
	}
	return e.projects.End(e.address, projectID)
}
