package core

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/accounts"
	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/journal"
	"carbon-registry/registry-backend/internal/ledger"
	"carbon-registry/registry-backend/internal/marketplace"
	"carbon-registry/registry-backend/internal/payments"
	"carbon-registry/registry-backend/internal/projects"
	"carbon-registry/registry-backend/internal/retirement"
)

// CreditView is a credit item joined with its live ledger state. Balance is
// filled only on owner-scoped queries.
type CreditView struct {
	projects.CreditItem
	Supply  uint64 `json:"supply"`
	Sold    uint64 `json:"sold"`
	Balance uint64 `json:"balance,omitempty"`
}

// Registry is the in-process component graph with its single serialization
// point. Every mutating operation runs under the write lock and is
// all-or-nothing: components validate every leg before the first mutation,
// so a typed failure leaves balances, indices, counters and listings
// byte-identical to the pre-call state. Reads take the read lock and always
// observe the last fully committed state. Events and journal entries are
// emitted strictly after commit.
type Registry struct {
	mu sync.RWMutex

	accounts    *accounts.Registry
	ledger      *ledger.Ledger
	projects    *projects.Service
	marketplace *marketplace.Service
	retirements *retirement.Service
	vault       *payments.Vault

	publisher events.Publisher
	recorder  journal.Recorder
	logger    *zap.Logger
}

// New wires the component graph. The marketplace/retirement component
// address is allow-listed on the account registry at construction so the
// settlement paths can adjust counters without per-call admin checks.
func New(adminAddr string, publisher events.Publisher, recorder journal.Recorder, logger *zap.Logger) *Registry {
	acct := accounts.NewRegistry(adminAddr)
	led := ledger.New()

	projCaller := led.Authorize("projects")
	marketCaller := led.Authorize("marketplace")
	retireCaller := led.Authorize("retirement")

	vault := payments.NewVault()
	proj := projects.NewService(acct, led, projCaller, logger)
	market := marketplace.NewService(proj, led, marketCaller, vault, logger)
	retire := retirement.NewService(acct, led, retireCaller, logger)
	proj.SetLister(market)
	market.SetRetirer(retire)

	if err := acct.SetAuthorizedContract(adminAddr, retirement.ComponentAddress); err != nil {
		logger.Fatal("authorized contract wiring failed", zap.Error(err))
	}

	if recorder == nil {
		recorder = journal.NewNoopRecorder()
	}
	return &Registry{
		accounts:    acct,
		ledger:      led,
		projects:    proj,
		marketplace: market,
		retirements: retire,
		vault:       vault,
		publisher:   publisher,
		recorder:    recorder,
		logger:      logger,
	}
}

func (r *Registry) committed(op, actor string, tokenID *uint64, payload map[string]interface{}) {
	if r.publisher != nil {
		r.publisher.Publish(events.Event{Type: op, Payload: payload})
	}
	if err := r.recorder.Record(context.Background(), op, actor, tokenID, payload); err != nil {
		r.logger.Error("journal write failed", zap.String("operation", op), zap.Error(err))
	}
}

// Account registry operations

func (r *Registry) RegisterAccount(caller, addr string, initialCredits uint64, isAuditor bool) (*accounts.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, err := r.accounts.RegisterAccount(caller, addr, initialCredits, isAuditor)
	if err != nil {
		return nil, err
	}
	r.committed("account.registered", caller, nil, map[string]interface{}{
		"address": addr, "is_auditor": isAuditor, "initial_credits": initialCredits,
	})
	return acct, nil
}

func (r *Registry) RemoveAccount(caller, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.accounts.RemoveAccount(caller, addr); err != nil {
		return err
	}
	r.committed("account.removed", caller, nil, map[string]interface{}{"address": addr})
	return nil
}

func (r *Registry) SetAuthorizedContract(caller, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.accounts.SetAuthorizedContract(caller, addr); err != nil {
		return err
	}
	r.committed("account.authorized_contract", caller, nil, map[string]interface{}{"address": addr})
	return nil
}

func (r *Registry) AdjustCredits(caller, addr string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.accounts.AdjustCredits(caller, addr, delta); err != nil {
		return err
	}
	r.committed("account.credits_adjusted", caller, nil, map[string]interface{}{"address": addr, "delta": delta})
	return nil
}

func (r *Registry) AdjustRetired(caller, addr string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.accounts.AdjustRetired(caller, addr, delta); err != nil {
		return err
	}
	r.committed("account.retired_adjusted", caller, nil, map[string]interface{}{"address": addr, "delta": delta})
	return nil
}

func (r *Registry) IsAuditor(addr string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts.IsAuditor(addr)
}

func (r *Registry) GetAccountByAddress(addr string) (*accounts.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts.GetAccountByAddress(addr)
}

func (r *Registry) GetAllAccounts() []accounts.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts.GetAllAccounts()
}

// Project registry operations

func (r *Registry) RegisterProject(caller string, tokenSupply uint64, metadataURI string, pricePerCredit uint64) (*projects.CreditItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, err := r.projects.RegisterProject(caller, tokenSupply, metadataURI, pricePerCredit)
	if err != nil {
		return nil, err
	}
	r.committed("project.registered", caller, &item.TokenID, map[string]interface{}{
		"token_id": item.TokenID, "supply": tokenSupply, "price_per_credit": pricePerCredit,
	})
	return item, nil
}

func (r *Registry) ApproveProject(caller string, tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.projects.ApproveProject(caller, tokenID); err != nil {
		return err
	}
	r.committed("project.approved", caller, &tokenID, map[string]interface{}{"token_id": tokenID})
	return nil
}

func (r *Registry) DeclineProject(caller string, tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.projects.DeclineProject(caller, tokenID); err != nil {
		return err
	}
	r.committed("project.declined", caller, &tokenID, map[string]interface{}{"token_id": tokenID})
	return nil
}

func (r *Registry) GetProject(tokenID uint64) (*projects.CreditItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.projects.Item(tokenID)
}

// Marketplace operations

func (r *Registry) ListCreditsForSale(caller string, tokenID, pricePerCredit uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.marketplace.ListCreditsForSale(caller, tokenID, pricePerCredit); err != nil {
		return err
	}
	r.committed("credits.listed", caller, &tokenID, map[string]interface{}{
		"token_id": tokenID, "price_per_credit": pricePerCredit,
	})
	return nil
}

func (r *Registry) BuyCredits(buyer string, tokenID, amount, paidValue uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.accounts.IsRegistered(buyer) {
		return accounts.ErrNotFound
	}
	if err := r.marketplace.BuyCredits(buyer, tokenID, amount, paidValue); err != nil {
		return err
	}
	r.committed("credits.purchased", buyer, &tokenID, map[string]interface{}{
		"token_id": tokenID, "amount": amount, "paid": paidValue,
	})
	return nil
}

func (r *Registry) GetAllListedCredits() []CreditView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.marketplace.AllListedCredits()
	out := make([]CreditView, 0, len(items))
	for _, item := range items {
		out = append(out, r.viewOf(item, ""))
	}
	return out
}

func (r *Registry) ListedTokensCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.marketplace.ListedTokensCount()
}

// Payment vault operations

func (r *Registry) Deposit(addr string, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.vault.Deposit(addr, amount); err != nil {
		return err
	}
	r.committed("vault.deposited", addr, nil, map[string]interface{}{"address": addr, "amount": amount})
	return nil
}

func (r *Registry) VaultBalance(addr string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vault.BalanceOf(addr)
}

// Retirement operations

func (r *Registry) RetireCredits(caller string, tokenID, amount uint64, certificateURI string) (*retirement.Retirement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.retirements.RetireCredits(caller, tokenID, amount, certificateURI)
	if err != nil {
		return nil, err
	}
	r.committed("credits.retired", caller, &tokenID, map[string]interface{}{
		"retirement_id": rec.ID, "token_id": tokenID, "amount": amount,
	})
	return rec, nil
}

// MarketRetireCredits is the marketplace-facing retire alias; identical in
// effect to RetireCredits.
func (r *Registry) MarketRetireCredits(caller string, tokenID, amount uint64, certificateURI string) (*retirement.Retirement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.marketplace.RetireCredits(caller, tokenID, amount, certificateURI)
	if err != nil {
		return nil, err
	}
	r.committed("credits.retired", caller, &tokenID, map[string]interface{}{
		"retirement_id": rec.ID, "token_id": tokenID, "amount": amount,
	})
	return rec, nil
}

func (r *Registry) CertificateRetirement(caller string, retirementID uint64, newURI string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.retirements.CertificateRetirement(caller, retirementID, newURI); err != nil {
		return err
	}
	r.committed("retirement.certificated", caller, nil, map[string]interface{}{
		"retirement_id": retirementID, "certificate_uri": newURI,
	})
	return nil
}

func (r *Registry) GetRetirement(retirementID uint64) (*retirement.Retirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retirements.Get(retirementID)
}

func (r *Registry) RetirementsTotalSupply() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retirements.TotalSupply()
}

func (r *Registry) RetirementByIndex(i int) (*retirement.Retirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retirements.TokenByIndex(i)
}

func (r *Registry) RetirementOfOwnerByIndex(owner string, i int) (*retirement.Retirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retirements.TokenOfOwnerByIndex(owner, i)
}

func (r *Registry) GetAllRetirements() []retirement.Retirement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retirements.GetAllRetirements()
}

func (r *Registry) GetOwnedRetirements(owner string) []retirement.Retirement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retirements.GetOwnedRetirements(owner)
}

// Ledger reads

func (r *Registry) BalanceOf(owner string, tokenID uint64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.BalanceOf(owner, tokenID)
}

func (r *Registry) TokenSupply(tokenID uint64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.TokenSupply(tokenID)
}

func (r *Registry) TokenSold(tokenID uint64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.TokenSold(tokenID)
}

func (r *Registry) TokenOwners(tokenID uint64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.TokenOwners(tokenID)
}

func (r *Registry) OwnerCount(tokenID uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.OwnerCount(tokenID)
}

func (r *Registry) TotalTokensCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.TotalTokensCount()
}

func (r *Registry) TokenByIndex(i int) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.TokenByIndex(i)
}

func (r *Registry) OwnedTokensCount(owner string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.OwnedTokensCount(owner)
}

func (r *Registry) OwnerTokenByIndex(owner string, i int) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.OwnerTokenByIndex(owner, i)
}

// GetAllCredits returns every registered credit item joined with its ledger
// state.
func (r *Registry) GetAllCredits() []CreditView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.projects.Items()
	out := make([]CreditView, 0, len(items))
	for _, item := range items {
		out = append(out, r.viewOf(item, ""))
	}
	return out
}

// GetOwnedCredits returns the credit items the owner holds a nonzero balance
// of, with the owner's balance filled in.
func (r *Registry) GetOwnedCredits(owner string) []CreditView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []CreditView
	for _, item := range r.projects.Items() {
		if r.ledger.BalanceOf(owner, item.TokenID) == 0 {
			continue
		}
		out = append(out, r.viewOf(item, owner))
	}
	return out
}

// viewOf must be called with the lock held.
func (r *Registry) viewOf(item projects.CreditItem, owner string) CreditView {
	v := CreditView{
		CreditItem: item,
		Supply:     r.ledger.TokenSupply(item.TokenID),
		Sold:       r.ledger.TokenSold(item.TokenID),
	}
	if owner != "" {
		v.Balance = r.ledger.BalanceOf(owner, item.TokenID)
	}
	return v
}
