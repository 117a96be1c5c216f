package state

import (
	"errors"
	"fmt"
	"math/big"
)

var balancePrefix = []byte("balance:")

// ErrInsufficientBalance is returned when a debit exceeds the available funds.
var ErrInsufficientBalance = errors.New("state: insufficient balance")

func balanceKey(addr [20]byte) []byte {
	buf := make([]byte, len(balancePrefix)+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], addr[:])
	return buf
}

// Balance retrieves the native currency balance of addr.
func (m *Manager) Balance(addr [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(balanceKey(addr), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetBalance stores the native currency balance of addr.
func (m *Manager) SetBalance(addr [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	if amount.Sign() == 0 {
		return m.KVDelete(balanceKey(addr))
	}
	return m.KVPut(balanceKey(addr), amount)
}

// Credit adds amount to the balance of addr.
func (m *Manager) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative credit not allowed")
	}
	current, err := m.Balance(addr)
	if err != nil {
		return err
	}
	return m.SetBalance(addr, current.Add(current, amount))
}

// Transfer moves amount between two accounts. Zero amounts are a no-op.
func (m *Manager) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative transfer amount")
	}
	if from == to {
		return nil
	}
	fromBal, err := m.Balance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := m.Balance(to)
	if err != nil {
		return err
	}
	if err := m.SetBalance(from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return m.SetBalance(to, toBal.Add(toBal, amount))
}
