package payments

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAndDebit(t *testing.T) {
	v := NewVault()
	require.NoError(t, v.Deposit("0xbuyer", 500))
	assert.Equal(t, uint64(500), v.BalanceOf("0xbuyer"))

	require.NoError(t, v.Debit("0xbuyer", 200))
	assert.Equal(t, uint64(300), v.BalanceOf("0xbuyer"))

	err := v.Debit("0xbuyer", 301)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(300), v.BalanceOf("0xbuyer"))
}

func TestDepositOverflow(t *testing.T) {
	v := NewVault()
	require.NoError(t, v.Deposit("0xwhale", math.MaxUint64))
	err := v.Deposit("0xwhale", 1)
	assert.ErrorIs(t, err, ErrAmountOverflow)
	assert.Equal(t, uint64(math.MaxUint64), v.BalanceOf("0xwhale"))
}

func TestDebitUnknownAddress(t *testing.T) {
	v := NewVault()
	assert.ErrorIs(t, v.Debit("0xnobody", 1), ErrInsufficientFunds)
}
