package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("caller is not authorized to mutate the ledger")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrIndexOutOfBounds    = errors.New("index out of bounds")
	ErrTokenExists         = errors.New("token id already has supply")
	ErrNotFound            = errors.New("token not found")
	ErrBurnExceedsSupply   = errors.New("burn amount exceeds token supply")
)

// Caller is an opaque capability handed out by Authorize. Only components
// holding a valid Caller may invoke the mutating primitives.
type Caller struct {
	id *callerID
}

type callerID struct {
	name string
}

// Ledger is the sole owner of credit balances and the enumeration indices.
// It is not safe for concurrent use on its own; the owning registry
// serializes every call.
type Ledger struct {
	tokens map[uint64]*tokenState

	allTokens []uint64
	allIndex  map[uint64]int

	owned      map[string][]uint64
	ownedIndex map[string]map[uint64]int

	authorized map[*callerID]bool
}

type tokenState struct {
	supply      uint64
	sold        uint64
	metadataURI string

	balances   map[string]uint64
	owners     []string
	ownerIndex map[string]int
}

func New() *Ledger {
	return &Ledger{
		tokens:     make(map[uint64]*tokenState),
		allIndex:   make(map[uint64]int),
		owned:      make(map[string][]uint64),
		ownedIndex: make(map[string]map[uint64]int),
		authorized: make(map[*callerID]bool),
	}
}

// Authorize issues a mutation capability to a named component. The registry
// grants one each to the project registry, marketplace and retirement
// registry at wiring time.
func (l *Ledger) Authorize(name string) Caller {
	id := &callerID{name: name}
	l.authorized[id] = true
	return Caller{id: id}
}

func (l *Ledger) checkCaller(c Caller) error {
	if c.id == nil || !l.authorized[c.id] {
		return ErrUnauthorized
	}
	return nil
}

// Mint creates the full supply of a fresh token id under a single owner.
func (l *Ledger) Mint(c Caller, tokenID uint64, owner string, amount uint64, metadataURI string) error {
	if err := l.checkCaller(c); err != nil {
		return err
	}
	if st, ok := l.tokens[tokenID]; ok && st.supply > 0 {
		return fmt.Errorf("mint token %d: %w", tokenID, ErrTokenExists)
	}
	st := &tokenState{
		supply:      amount,
		metadataURI: metadataURI,
		balances:    map[string]uint64{owner: amount},
		ownerIndex:  make(map[string]int),
	}
	l.tokens[tokenID] = st
	st.addOwner(owner)
	l.addToken(tokenID)
	l.addOwned(owner, tokenID)
	return nil
}

// Transfer moves amount between two holders of tokenID, maintaining the
// owner set and per-owner token indices.
func (l *Ledger) Transfer(c Caller, tokenID uint64, from, to string, amount uint64) error {
	if err := l.checkCaller(c); err != nil {
		return err
	}
	st := l.tokens[tokenID]
	if st == nil || st.balances[from] < amount {
		return fmt.Errorf("transfer %d of token %d from %s: %w", amount, tokenID, from, ErrInsufficientBalance)
	}
	if amount == 0 || from == to {
		return nil
	}
	if st.balances[to] == 0 {
		st.addOwner(to)
		l.addOwned(to, tokenID)
	}
	st.balances[from] -= amount
	st.balances[to] += amount
	if st.balances[from] == 0 {
		delete(st.balances, from)
		st.removeOwner(from)
		l.removeOwned(from, tokenID)
	}
	return nil
}

// Burn destroys amount held by owner and shrinks the token supply. When the
// supply hits zero the token id leaves the global enumeration.
func (l *Ledger) Burn(c Caller, tokenID uint64, owner string, amount uint64) error {
	if err := l.checkCaller(c); err != nil {
		return err
	}
	st := l.tokens[tokenID]
	if st == nil || st.balances[owner] < amount {
		return fmt.Errorf("burn %d of token %d from %s: %w", amount, tokenID, owner, ErrInsufficientBalance)
	}
	if st.supply < amount {
		return fmt.Errorf("burn %d of token %d: %w", amount, tokenID, ErrBurnExceedsSupply)
	}
	if amount == 0 {
		return nil
	}
	st.balances[owner] -= amount
	st.supply -= amount
	if st.balances[owner] == 0 {
		delete(st.balances, owner)
		st.removeOwner(owner)
		l.removeOwned(owner, tokenID)
	}
	if st.supply == 0 {
		l.removeToken(tokenID)
	}
	return nil
}

// SetTokenSold is marketplace bookkeeping for cumulative units sold.
func (l *Ledger) SetTokenSold(c Caller, tokenID uint64, sold uint64) error {
	if err := l.checkCaller(c); err != nil {
		return err
	}
	st := l.tokens[tokenID]
	if st == nil {
		return fmt.Errorf("token %d: %w", tokenID, ErrNotFound)
	}
	st.sold = sold
	return nil
}

func (l *Ledger) BalanceOf(owner string, tokenID uint64) uint64 {
	if st := l.tokens[tokenID]; st != nil {
		return st.balances[owner]
	}
	return 0
}

func (l *Ledger) TokenSupply(tokenID uint64) uint64 {
	if st := l.tokens[tokenID]; st != nil {
		return st.supply
	}
	return 0
}

func (l *Ledger) TokenSold(tokenID uint64) uint64 {
	if st := l.tokens[tokenID]; st != nil {
		return st.sold
	}
	return 0
}

func (l *Ledger) TokenMetadataURI(tokenID uint64) string {
	if st := l.tokens[tokenID]; st != nil {
		return st.metadataURI
	}
	return ""
}

// TokenOwners returns the owner set as a sequence. Order is positional over
// the dense owner array and unstable across removals.
func (l *Ledger) TokenOwners(tokenID uint64) []string {
	st := l.tokens[tokenID]
	if st == nil {
		return nil
	}
	out := make([]string, len(st.owners))
	copy(out, st.owners)
	return out
}

func (l *Ledger) OwnerCount(tokenID uint64) int {
	if st := l.tokens[tokenID]; st != nil {
		return len(st.owners)
	}
	return 0
}

func (l *Ledger) TotalTokensCount() int {
	return len(l.allTokens)
}

func (l *Ledger) TokenByIndex(i int) (uint64, error) {
	if i < 0 || i >= len(l.allTokens) {
		return 0, fmt.Errorf("token index %d of %d: %w", i, len(l.allTokens), ErrIndexOutOfBounds)
	}
	return l.allTokens[i], nil
}

func (l *Ledger) OwnedTokensCount(owner string) int {
	return len(l.owned[owner])
}

func (l *Ledger) OwnerTokenByIndex(owner string, i int) (uint64, error) {
	toks := l.owned[owner]
	if i < 0 || i >= len(toks) {
		return 0, fmt.Errorf("owned token index %d of %d for %s: %w", i, len(toks), owner, ErrIndexOutOfBounds)
	}
	return toks[i], nil
}

// OwnedTokens returns every token id the owner currently holds a nonzero
// balance of.
func (l *Ledger) OwnedTokens(owner string) []uint64 {
	toks := l.owned[owner]
	out := make([]uint64, len(toks))
	copy(out, toks)
	return out
}

// AllTokens returns every token id with remaining supply.
func (l *Ledger) AllTokens() []uint64 {
	out := make([]uint64, len(l.allTokens))
	copy(out, l.allTokens)
	return out
}

// Dense-array index maintenance. Removal is swap-with-last-and-pop, so every
// operation stays O(1) at the cost of stable ordering.

func (l *Ledger) addToken(tokenID uint64) {
	l.allIndex[tokenID] = len(l.allTokens)
	l.allTokens = append(l.allTokens, tokenID)
}

func (l *Ledger) removeToken(tokenID uint64) {
	pos, ok := l.allIndex[tokenID]
	if !ok {
		return
	}
	last := len(l.allTokens) - 1
	moved := l.allTokens[last]
	l.allTokens[pos] = moved
	l.allIndex[moved] = pos
	l.allTokens = l.allTokens[:last]
	delete(l.allIndex, tokenID)
}

func (l *Ledger) addOwned(owner string, tokenID uint64) {
	idx := l.ownedIndex[owner]
	if idx == nil {
		idx = make(map[uint64]int)
		l.ownedIndex[owner] = idx
	}
	idx[tokenID] = len(l.owned[owner])
	l.owned[owner] = append(l.owned[owner], tokenID)
}

func (l *Ledger) removeOwned(owner string, tokenID uint64) {
	idx := l.ownedIndex[owner]
	pos, ok := idx[tokenID]
	if !ok {
		return
	}
	toks := l.owned[owner]
	last := len(toks) - 1
	moved := toks[last]
	toks[pos] = moved
	idx[moved] = pos
	l.owned[owner] = toks[:last]
	delete(idx, tokenID)
	if len(idx) == 0 {
		delete(l.ownedIndex, owner)
		delete(l.owned, owner)
	}
}

func (st *tokenState) addOwner(owner string) {
	st.ownerIndex[owner] = len(st.owners)
	st.owners = append(st.owners, owner)
}

func (st *tokenState) removeOwner(owner string) {
	pos, ok := st.ownerIndex[owner]
	if !ok {
		return
	}
	last := len(st.owners) - 1
	moved := st.owners[last]
	st.owners[pos] = moved
	st.ownerIndex[moved] = pos
	st.owners = st.owners[:last]
	delete(st.ownerIndex, owner)
}
