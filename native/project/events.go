package project

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"launchpad/core/types"
)

const (
	EventTypeProjectPublished = "project.published"
	EventTypeSalesAdded       = "project.sales_added"
	EventTypeManagerChanged   = "project.manager_changed"
	EventTypeMerkleRootSet    = "project.merkle_root_set"
	EventTypeProjectClosed    = "project.closed"
	EventTypeProjectEnded     = "project.ended"
	EventTypeConfigUpdated    = "project.config_updated"
	EventTypeFundWithdrawn    = "project.fund_withdrawn"
)

func projectAttributes(record *Project) map[string]string {
	return map[string]string{
		"projectId": strconv.FormatUint(record.ID, 10),
		"manager":   types.HexAddress(record.Manager),
		"token":     types.HexAddress(record.Token),
		"status":    record.Status.String(),
	}
}

func newPublishedEvent(record *Project, sales int, fee *big.Int) *types.Event {
	attrs := projectAttributes(record)
	attrs["sales"] = strconv.Itoa(sales)
	attrs["amount"] = strconv.FormatUint(record.Amount, 10)
	attrs["createFee"] = cloneBigInt(fee).String()
	attrs["createdByAdmin"] = strconv.FormatBool(record.IsCreatedByAdmin)
	return &types.Event{Type: EventTypeProjectPublished, Attributes: attrs}
}

func newSalesAddedEvent(record *Project, sales int) *types.Event {
	attrs := projectAttributes(record)
	attrs["sales"] = strconv.Itoa(sales)
	attrs["amount"] = strconv.FormatUint(record.Amount, 10)
	attrs["minSales"] = strconv.FormatUint(record.MinSales, 10)
	return &types.Event{Type: EventTypeSalesAdded, Attributes: attrs}
}

func newManagerEvent(projectID uint64, previous, next [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeManagerChanged,
		Attributes: map[string]string{
			"projectId": strconv.FormatUint(projectID, 10),
			"previous":  types.HexAddress(previous),
			"manager":   types.HexAddress(next),
		},
	}
}

func newMerkleRootEvent(projectID uint64, root [32]byte) *types.Event {
	return &types.Event{
		Type: EventTypeMerkleRootSet,
		Attributes: map[string]string{
			"projectId": strconv.FormatUint(projectID, 10),
			"root":      "0x" + hex.EncodeToString(root[:]),
		},
	}
}

func newCloseEvent(record *Project, outcome *CloseOutcome, giveBack bool) *types.Event {
	attrs := projectAttributes(record)
	attrs["processed"] = strconv.Itoa(len(outcome.Processed))
	attrs["closed"] = strconv.Itoa(len(outcome.Closed))
	attrs["settled"] = strconv.FormatUint(outcome.Settled, 10)
	attrs["waiting"] = strconv.FormatUint(record.TotalBuyersWaitingDistribution, 10)
	attrs["giveBack"] = strconv.FormatBool(giveBack)
	return &types.Event{Type: EventTypeProjectClosed, Attributes: attrs}
}

func newEndedEvent(projectID uint64) *types.Event {
	return &types.Event{
		Type:       EventTypeProjectEnded,
		Attributes: map[string]string{"projectId": strconv.FormatUint(projectID, 10)},
	}
}

func newConfigEvent(key string, caller [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeConfigUpdated,
		Attributes: map[string]string{
			"setting": key,
			"caller":  types.HexAddress(caller),
		},
	}
}

func newWithdrawEvent(to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFundWithdrawn,
		Attributes: map[string]string{
			"to":     types.HexAddress(to),
			"amount": cloneBigInt(amount).String(),
		},
	}
}
