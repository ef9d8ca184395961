package accounts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const admin = "0xadmin"

func TestRegisterAccountAdminOnly(t *testing.T) {
	r := NewRegistry(admin)

	_, err := r.RegisterAccount("0xmallory", "0xalice", 100, false)
	assert.ErrorIs(t, err, ErrNotAdmin)

	acct, err := r.RegisterAccount(admin, "0xalice", 100, false)
	require.NoError(t, err)
	assert.Equal(t, "0xalice", acct.Address)
	assert.Equal(t, uint64(100), acct.TotalCredits)
	assert.False(t, acct.IsAuditor)
	assert.False(t, acct.RegisteredAt.IsZero())

	_, err = r.RegisterAccount(admin, "0xalice", 100, false)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRemoveAccount(t *testing.T) {
	r := NewRegistry(admin)
	_, err := r.RegisterAccount(admin, "0xalice", 100, false)
	require.NoError(t, err)

	assert.ErrorIs(t, r.RemoveAccount("0xalice", "0xalice"), ErrNotAdmin)
	assert.ErrorIs(t, r.RemoveAccount(admin, "0xghost"), ErrNotFound)

	require.NoError(t, r.RemoveAccount(admin, "0xalice"))
	_, err = r.GetAccountByAddress("0xalice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, r.GetAllAccounts())
}

func TestAdjustCountersAuthorization(t *testing.T) {
	r := NewRegistry(admin)
	_, err := r.RegisterAccount(admin, "0xalice", 100, false)
	require.NoError(t, err)

	assert.ErrorIs(t, r.AdjustCredits("0xmallory", "0xalice", 10), ErrUnauthorized)

	require.NoError(t, r.SetAuthorizedContract(admin, "registry:settlement"))
	require.NoError(t, r.AdjustCredits("registry:settlement", "0xalice", -30))
	require.NoError(t, r.AdjustRetired("registry:settlement", "0xalice", 30))

	acct, err := r.GetAccountByAddress("0xalice")
	require.NoError(t, err)
	assert.Equal(t, uint64(70), acct.TotalCredits)
	assert.Equal(t, uint64(30), acct.TotalRetired)
}

func TestAdjustUnderflow(t *testing.T) {
	r := NewRegistry(admin)
	_, err := r.RegisterAccount(admin, "0xalice", 10, false)
	require.NoError(t, err)

	err = r.AdjustCredits(admin, "0xalice", -11)
	assert.ErrorIs(t, err, ErrUnderflow)

	acct, _ := r.GetAccountByAddress("0xalice")
	assert.Equal(t, uint64(10), acct.TotalCredits)

	assert.ErrorIs(t, r.AdjustRetired(admin, "0xalice", -1), ErrUnderflow)
}

func TestAdjustOverflow(t *testing.T) {
	r := NewRegistry(admin)
	_, err := r.RegisterAccount(admin, "0xalice", math.MaxUint64-5, false)
	require.NoError(t, err)

	err = r.AdjustCredits(admin, "0xalice", 6)
	assert.ErrorIs(t, err, ErrOverflow)

	acct, _ := r.GetAccountByAddress("0xalice")
	assert.Equal(t, uint64(math.MaxUint64-5), acct.TotalCredits)

	require.NoError(t, r.AdjustCredits(admin, "0xalice", 5))
	require.NoError(t, r.AdjustRetired(admin, "0xalice", math.MaxInt64))
	require.NoError(t, r.AdjustRetired(admin, "0xalice", math.MaxInt64))
	assert.ErrorIs(t, r.AdjustRetired(admin, "0xalice", 2), ErrOverflow)
}

func TestAdjustUnknownAccount(t *testing.T) {
	r := NewRegistry(admin)
	assert.ErrorIs(t, r.AdjustCredits(admin, "0xghost", 5), ErrNotFound)
}

func TestIsAuditor(t *testing.T) {
	r := NewRegistry(admin)
	_, err := r.RegisterAccount(admin, "0xaudry", 0, true)
	require.NoError(t, err)
	_, err = r.RegisterAccount(admin, "0xalice", 0, false)
	require.NoError(t, err)

	assert.True(t, r.IsAuditor("0xaudry"))
	assert.False(t, r.IsAuditor("0xalice"))
	assert.False(t, r.IsAuditor("0xghost"))
}

func TestGetAllAccountsInsertionOrder(t *testing.T) {
	r := NewRegistry(admin)
	for _, addr := range []string{"0xc", "0xa", "0xb"} {
		_, err := r.RegisterAccount(admin, addr, 0, false)
		require.NoError(t, err)
	}
	require.NoError(t, r.RemoveAccount(admin, "0xa"))
	_, err := r.RegisterAccount(admin, "0xd", 0, false)
	require.NoError(t, err)

	var order []string
	for _, acct := range r.GetAllAccounts() {
		order = append(order, acct.Address)
	}
	assert.Equal(t, []string{"0xc", "0xb", "0xd"}, order)
}

func TestGetAccountReturnsCopy(t *testing.T) {
	r := NewRegistry(admin)
	_, err := r.RegisterAccount(admin, "0xalice", 10, false)
	require.NoError(t, err)

	acct, err := r.GetAccountByAddress("0xalice")
	require.NoError(t, err)
	acct.TotalCredits = 9999

	fresh, err := r.GetAccountByAddress("0xalice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), fresh.TotalCredits)
}
