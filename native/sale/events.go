package sale

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"launchpad/core/types"
)

const (
	EventTypeSaleCreated       = "sale.created"
	EventTypeSaleClosed        = "sale.closed"
	EventTypePurchased         = "sale.purchased"
	EventTypePackPurchased     = "sale.pack_purchased"
	EventTypeBillSettled       = "sale.bill.settled"
	EventTypeBillRefunded      = "sale.bill.refunded"
	EventTypeUnsoldReturned    = "sale.unsold_returned"
	EventTypeMerkleRootSet     = "sale.merkle_root_set"
	EventTypeProjectAddressSet = "sale.project_address_set"
	EventTypeRandomizerSet     = "sale.randomizer_address_set"
)

func saleAttributes(record *Sale) map[string]string {
	return map[string]string{
		"saleId":    strconv.FormatUint(record.ID, 10),
		"projectId": strconv.FormatUint(record.ProjectID, 10),
		"token":     types.HexAddress(record.Token),
		"tokenId":   strconv.FormatUint(record.TokenID, 10),
	}
}

func newSaleEvent(eventType string, record *Sale) *types.Event {
	attrs := saleAttributes(record)
	attrs["amount"] = strconv.FormatUint(record.Amount, 10)
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newPurchaseEvent(eventType string, record *Sale, buyer [20]byte, quantity uint64, value *big.Int, instant bool) *types.Event {
	attrs := saleAttributes(record)
	attrs["buyer"] = types.HexAddress(buyer)
	attrs["quantity"] = strconv.FormatUint(quantity, 10)
	attrs["value"] = cloneBigInt(value).String()
	attrs["remaining"] = strconv.FormatUint(record.Amount, 10)
	if instant {
		attrs["settlement"] = "instant"
	} else {
		attrs["settlement"] = "bill"
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newBillEvent(eventType string, record *Sale, bill *Bill) *types.Event {
	attrs := saleAttributes(record)
	attrs["buyer"] = types.HexAddress(bill.Account)
	attrs["quantity"] = strconv.FormatUint(bill.Amount, 10)
	attrs["royaltyFee"] = cloneBigInt(bill.RoyaltyFee).String()
	attrs["superAdminFee"] = cloneBigInt(bill.SuperAdminFee).String()
	attrs["sellerFee"] = cloneBigInt(bill.SellerFee).String()
	if bill.RoyaltyReceiver != ([20]byte{}) {
		attrs["royaltyReceiver"] = types.HexAddress(bill.RoyaltyReceiver)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newReturnedEvent(record *Sale, manager [20]byte, quantity uint64) *types.Event {
	attrs := saleAttributes(record)
	attrs["manager"] = types.HexAddress(manager)
	attrs["quantity"] = strconv.FormatUint(quantity, 10)
	return &types.Event{Type: EventTypeUnsoldReturned, Attributes: attrs}
}

func newMerkleRootEvent(saleID uint64, root [32]byte) *types.Event {
	return &types.Event{
		Type: EventTypeMerkleRootSet,
		Attributes: map[string]string{
			"saleId": strconv.FormatUint(saleID, 10),
			"root":   "0x" + hex.EncodeToString(root[:]),
		},
	}
}

func newAddressEvent(eventType string, previous, next [20]byte) *types.Event {
	attrs := map[string]string{"address": types.HexAddress(next)}
	if previous != ([20]byte{}) {
		attrs["previous"] = types.HexAddress(previous)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
