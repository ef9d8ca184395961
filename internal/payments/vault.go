package payments

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAmountOverflow    = errors.New("amount overflows the vault balance")
)

// Vault is the native-currency balance table backing marketplace settlement.
// Buyers fund an address here; a purchase debits the paid value, forwards
// exactly the cost to the seller and refunds the excess, all inside the
// registry's atomic unit. Not safe for concurrent use on its own.
type Vault struct {
	balances map[string]uint64
}

func NewVault() *Vault {
	return &Vault{balances: make(map[string]uint64)}
}

// Deposit credits an address with native currency.
func (v *Vault) Deposit(addr string, amount uint64) error {
	cur := v.balances[addr]
	if cur+amount < cur {
		return fmt.Errorf("deposit %d to %s: %w", amount, addr, ErrAmountOverflow)
	}
	v.balances[addr] = cur + amount
	return nil
}

func (v *Vault) BalanceOf(addr string) uint64 {
	return v.balances[addr]
}

// Debit removes funds from an address. Fails without side effect when the
// balance is short.
func (v *Vault) Debit(addr string, amount uint64) error {
	if v.balances[addr] < amount {
		return fmt.Errorf("debit %d from %s (have %d): %w", amount, addr, v.balances[addr], ErrInsufficientFunds)
	}
	v.balances[addr] -= amount
	if v.balances[addr] == 0 {
		delete(v.balances, addr)
	}
	return nil
}

// Credit adds funds to an address.
func (v *Vault) Credit(addr string, amount uint64) error {
	return v.Deposit(addr, amount)
}
