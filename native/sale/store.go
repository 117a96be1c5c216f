package sale

import (
	"encoding/binary"
	"fmt"
)

var (
	lastIDKey          = []byte("sale/last-id")
	projectAddressKey  = []byte("sale/config/project")
	randomizerKey      = []byte("sale/config/randomizer")
	salePrefix         = []byte("sale/record/")
	projectSalesPrefix = []byte("sale/project-sales/")
	projectOpenPrefix  = []byte("sale/project-open/")
	billPrefix         = []byte("sale/bill/")
	buyersPrefix       = []byte("sale/buyers/")
)

func encodeID(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

func decodeID(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("sale: malformed id encoding (%d bytes)", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func prefixed(prefix []byte, parts ...[]byte) []byte {
	key := append([]byte(nil), prefix...)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}

func saleKey(id uint64) []byte { return prefixed(salePrefix, encodeID(id)) }

func projectSalesKey(projectID uint64) []byte {
	return prefixed(projectSalesPrefix, encodeID(projectID))
}

func projectOpenKey(projectID uint64) []byte {
	return prefixed(projectOpenPrefix, encodeID(projectID))
}

func billKey(saleID uint64, buyer [20]byte) []byte {
	return prefixed(billPrefix, encodeID(saleID), buyer[:])
}

func buyersKey(saleID uint64) []byte { return prefixed(buyersPrefix, encodeID(saleID)) }

func (e *Engine) loadSale(id uint64) (*Sale, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	record := new(Sale)
	ok, err := e.state.KVGet(saleKey(id), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

func (e *Engine) storeSale(record *Sale) error {
	if e.state == nil {
		return errNilState
	}
	return e.state.KVPut(saleKey(record.ID), record)
}

func (e *Engine) idList(key []byte) ([]uint64, error) {
	if e.state == nil {
		return nil, errNilState
	}
	var raw [][]byte
	if err := e.state.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		id, err := decodeID(entry)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *Engine) buyers(saleID uint64) ([][20]byte, error) {
	var raw [][]byte
	if err := e.state.KVGetList(buyersKey(saleID), &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		var addr [20]byte
		copy(addr[:], entry)
		out = append(out, addr)
	}
	return out, nil
}

func (e *Engine) loadBill(saleID uint64, buyer [20]byte) (*Bill, bool, error) {
	bill := new(Bill)
	ok, err := e.state.KVGet(billKey(saleID, buyer), bill)
	if err != nil || !ok {
		return nil, false, err
	}
	return bill, true, nil
}

func (e *Engine) loadAddress(key []byte) ([20]byte, error) {
	var addr [20]byte
	if e.state == nil {
		return addr, errNilState
	}
	if _, err := e.state.KVGet(key, &addr); err != nil {
		return addr, err
	}
	return addr, nil
}
