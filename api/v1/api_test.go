package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/auth"
	"carbon-registry/registry-backend/internal/core"
)

const (
	secret  = "test-secret"
	admin   = "0xadmin"
	auditor = "0xaudry"
	seller  = "0xseller"
	buyer   = "0xbuyer"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registry := core.New(admin, nil, nil, zap.NewNop())
	router := gin.New()
	Register(router.Group("/api/v1"), registry, nil, secret, zap.NewNop())
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, asAddr string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if asAddr != "" {
		token, err := auth.IssueToken(secret, asAddr, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedAccounts(t *testing.T, router *gin.Engine) {
	t.Helper()
	for _, acct := range []map[string]interface{}{
		{"address": auditor, "is_auditor": true},
		{"address": seller, "initial_credits": 1000},
		{"address": buyer, "initial_credits": 1000},
	} {
		rec := do(t, router, http.MethodPost, "/api/v1/accounts", admin, acct)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestMutationRequiresBearerToken(t *testing.T) {
	router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/v1/accounts", "", map[string]interface{}{"address": seller})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAccountAdminGate(t *testing.T) {
	router := newTestServer(t)
	seedAccounts(t, router)

	rec := do(t, router, http.MethodPost, "/api/v1/accounts", seller, map[string]interface{}{"address": "0xnew"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/accounts", admin, map[string]interface{}{"address": seller})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/accounts", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var accountList []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accountList))
	assert.Len(t, accountList, 3)
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	router := newTestServer(t)
	seedAccounts(t, router)

	rec := do(t, router, http.MethodPost, "/api/v1/projects", seller, map[string]interface{}{
		"token_supply": 100, "metadata_uri": "ipfs://meta", "price_per_credit": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "PENDING", item["status"])

	rec = do(t, router, http.MethodPost, "/api/v1/projects/1/approve", seller, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/projects/1/approve", auditor, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/projects/1/approve", auditor, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/projects/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "APPROVED", item["status"])
	assert.Equal(t, true, item["is_listed"])
}

func TestBuyAndRetireOverHTTP(t *testing.T) {
	router := newTestServer(t)
	seedAccounts(t, router)

	rec := do(t, router, http.MethodPost, "/api/v1/projects", seller, map[string]interface{}{
		"token_supply": 100, "metadata_uri": "ipfs://meta", "price_per_credit": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/v1/projects/1/approve", auditor, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/vault/deposit", buyer, map[string]interface{}{"amount": 1000})
	require.Equal(t, http.StatusOK, rec.Code)

	// Underpayment settles nothing.
	rec = do(t, router, http.MethodPost, "/api/v1/market/buy", buyer, map[string]interface{}{
		"token_id": 1, "amount": 50, "paid_value": 249,
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/market/buy", buyer, map[string]interface{}{
		"token_id": 1, "amount": 50, "paid_value": 250,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/v1/retirements", buyer, map[string]interface{}{
		"token_id": 1, "amount": 50, "certificate_uri": "ipfs://cert",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var retirementRec map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &retirementRec))
	assert.Equal(t, float64(1), retirementRec["id"])
	assert.Equal(t, false, retirementRec["is_certificated"])

	rec = do(t, router, http.MethodPost, "/api/v1/retirements/1/certificate", auditor, map[string]interface{}{
		"certificate_uri": "ipfs://cert-final",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/retirements/1/certificate.pdf", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestProjectMetadataOverHTTP(t *testing.T) {
	router := newTestServer(t)
	seedAccounts(t, router)

	metaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Mangrove Restoration","region":"Sundarbans"}`))
	}))
	defer metaSrv.Close()

	rec := do(t, router, http.MethodPost, "/api/v1/projects", seller, map[string]interface{}{
		"token_supply": 100, "metadata_uri": metaSrv.URL, "price_per_credit": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/v1/projects/1/metadata", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Mangrove Restoration", doc["name"])

	rec = do(t, router, http.MethodGet, "/api/v1/projects/99/metadata", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	metaSrv.Close()
	rec = do(t, router, http.MethodGet, "/api/v1/projects/1/metadata", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestEnumerationBoundsOverHTTP(t *testing.T) {
	router := newTestServer(t)
	seedAccounts(t, router)

	rec := do(t, router, http.MethodGet, "/api/v1/credits/by-index/0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/retirements/by-index/0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
