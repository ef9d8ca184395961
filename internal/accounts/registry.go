package accounts

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNotAdmin          = errors.New("caller is not the registry admin")
	ErrUnauthorized      = errors.New("caller may not adjust account counters")
	ErrAlreadyRegistered = errors.New("address already registered")
	ErrNotFound          = errors.New("account not found")
	ErrUnderflow         = errors.New("counter adjustment would underflow")
	ErrOverflow          = errors.New("counter adjustment would overflow")
)

// Account is one participant record. Counters are maintained by the
// marketplace and retirement registry through the authorized-contract gate.
type Account struct {
	Address      string    `json:"address"`
	IsAuditor    bool      `json:"is_auditor"`
	TotalCredits uint64    `json:"total_credits"`
	TotalRetired uint64    `json:"total_retired"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Registry holds identity and role records. Accounts are a prerequisite for
// participation: every ledger owner address must have a record here first.
// Not safe for concurrent use on its own; the owning registry serializes.
type Registry struct {
	admin              string
	authorizedContract string

	accounts map[string]*Account
	order    []string
}

func NewRegistry(admin string) *Registry {
	return &Registry{
		admin:    admin,
		accounts: make(map[string]*Account),
	}
}

func (r *Registry) IsAdmin(addr string) bool {
	return addr == r.admin
}

// RegisterAccount creates a participant record. Admin only.
func (r *Registry) RegisterAccount(caller, addr string, initialCredits uint64, isAuditor bool) (*Account, error) {
	if !r.IsAdmin(caller) {
		return nil, ErrNotAdmin
	}
	if _, ok := r.accounts[addr]; ok {
		return nil, fmt.Errorf("register %s: %w", addr, ErrAlreadyRegistered)
	}
	acct := &Account{
		Address:      addr,
		IsAuditor:    isAuditor,
		TotalCredits: initialCredits,
		RegisteredAt: time.Now().UTC(),
	}
	r.accounts[addr] = acct
	r.order = append(r.order, addr)
	return acct, nil
}

// RemoveAccount deletes the record only. Any ledger balance or retirement
// held by the address is frozen in place, never liquidated: further
// participation fails NotFound but balance reads still report the address.
func (r *Registry) RemoveAccount(caller, addr string) error {
	if !r.IsAdmin(caller) {
		return ErrNotAdmin
	}
	if _, ok := r.accounts[addr]; !ok {
		return fmt.Errorf("remove %s: %w", addr, ErrNotFound)
	}
	delete(r.accounts, addr)
	for i, a := range r.order {
		if a == addr {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetAuthorizedContract allow-lists the single component address permitted
// to adjust counters without being admin.
func (r *Registry) SetAuthorizedContract(caller, addr string) error {
	if !r.IsAdmin(caller) {
		return ErrNotAdmin
	}
	r.authorizedContract = addr
	return nil
}

func (r *Registry) canAdjust(caller string) bool {
	return r.IsAdmin(caller) || (r.authorizedContract != "" && caller == r.authorizedContract)
}

// AdjustCredits applies a signed delta to an account's totalCredits.
func (r *Registry) AdjustCredits(caller, addr string, delta int64) error {
	if !r.canAdjust(caller) {
		return ErrUnauthorized
	}
	acct, ok := r.accounts[addr]
	if !ok {
		return fmt.Errorf("adjust credits for %s: %w", addr, ErrNotFound)
	}
	next, err := applyDelta(acct.TotalCredits, delta)
	if err != nil {
		return fmt.Errorf("adjust credits for %s by %d: %w", addr, delta, err)
	}
	acct.TotalCredits = next
	return nil
}

// AdjustRetired applies a signed delta to an account's totalRetired.
func (r *Registry) AdjustRetired(caller, addr string, delta int64) error {
	if !r.canAdjust(caller) {
		return ErrUnauthorized
	}
	acct, ok := r.accounts[addr]
	if !ok {
		return fmt.Errorf("adjust retired for %s: %w", addr, ErrNotFound)
	}
	next, err := applyDelta(acct.TotalRetired, delta)
	if err != nil {
		return fmt.Errorf("adjust retired for %s by %d: %w", addr, delta, err)
	}
	acct.TotalRetired = next
	return nil
}

func applyDelta(current uint64, delta int64) (uint64, error) {
	if delta >= 0 {
		inc := uint64(delta)
		if current > math.MaxUint64-inc {
			return 0, ErrOverflow
		}
		return current + inc, nil
	}
	dec := uint64(-delta)
	if dec > current {
		return 0, ErrUnderflow
	}
	return current - dec, nil
}

func (r *Registry) IsAuditor(addr string) bool {
	acct, ok := r.accounts[addr]
	return ok && acct.IsAuditor
}

func (r *Registry) IsRegistered(addr string) bool {
	_, ok := r.accounts[addr]
	return ok
}

func (r *Registry) GetAccountByAddress(addr string) (*Account, error) {
	acct, ok := r.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", addr, ErrNotFound)
	}
	cp := *acct
	return &cp, nil
}

// GetAllAccounts returns every record in insertion order. This is the only
// enumeration in the system with a stable order guarantee.
func (r *Registry) GetAllAccounts() []Account {
	out := make([]Account, 0, len(r.order))
	for _, addr := range r.order {
		out = append(out, *r.accounts[addr])
	}
	return out
}
