package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"mint-backend/internal/ledger"
	"mint-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminWallet  = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	buyerWallet  = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	strangerAddr = "0x1111111111111111111111111111111111111111"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	fallback, err := ledger.NewFallbackStore(filepath.Join(t.TempDir(), "fallback.db"))
	require.NoError(t, err)
	return ledger.NewLedger(nil, fallback, nil, testLogger())
}

func newOrderRouter(t *testing.T, orderLedger *ledger.Ledger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewOrderHandler(orderLedger, []string{adminWallet}, testLogger())

	router := gin.New()
	router.GET("/api/orders", handler.List)
	router.POST("/api/orders", handler.Create)
	return router
}

func postOrder(t *testing.T, router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateOrder(t *testing.T) {
	orderLedger := newTestLedger(t)
	router := newOrderRouter(t, orderLedger)

	w := postOrder(t, router, CreateOrderRequest{
		WalletAddress: buyerWallet,
		ShippingInfo: models.ShippingInfo{
			Name:    "Test User",
			Email:   "test@example.com",
			Address: "1 Main St",
			Country: "US",
		},
		Timestamp: 1700000000000,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Order.ID)
	// the stored wallet is always lowercase
	assert.Equal(t, strings.ToLower(buyerWallet), resp.Order.WalletAddress)
	assert.Equal(t, int64(1700000000000), resp.Order.Timestamp)

	orders, err := orderLedger.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Test User", orders[0].ShippingInfo.Name)
}

func TestCreateOrderInvalidWallet(t *testing.T) {
	router := newOrderRouter(t, newTestLedger(t))

	w := postOrder(t, router, CreateOrderRequest{WalletAddress: "not-a-wallet"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postOrder(t, router, CreateOrderRequest{WalletAddress: "0x123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderMalformedBody(t *testing.T) {
	router := newOrderRouter(t, newTestLedger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderAnonymousScrubsShipping(t *testing.T) {
	orderLedger := newTestLedger(t)
	router := newOrderRouter(t, orderLedger)

	w := postOrder(t, router, CreateOrderRequest{
		WalletAddress: buyerWallet,
		IsAnonymous:   true,
		ShippingInfo: models.ShippingInfo{
			Name:    "Real Name",
			Email:   "real@example.com",
			Address: "Secret Street 1",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	orders, err := orderLedger.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].IsAnonymous)
	assert.Equal(t, models.AnonymousShippingInfo(), orders[0].ShippingInfo)
}

func TestCreateOrderTruncatesShipping(t *testing.T) {
	orderLedger := newTestLedger(t)
	router := newOrderRouter(t, orderLedger)

	w := postOrder(t, router, CreateOrderRequest{
		WalletAddress: buyerWallet,
		ShippingInfo: models.ShippingInfo{
			Name:    strings.Repeat("n", 150),
			Address: strings.Repeat("a", 500),
			Size:    "XXXXXXXXXXXL",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	orders, err := orderLedger.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].ShippingInfo.Name, 100)
	assert.Len(t, orders[0].ShippingInfo.Address, 200)
	assert.Len(t, orders[0].ShippingInfo.Size, 10)
}

func TestListOrdersAuthorization(t *testing.T) {
	orderLedger := newTestLedger(t)
	router := newOrderRouter(t, orderLedger)

	// no wallet
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// wallet not on the allow-list
	req = httptest.NewRequest(http.MethodGet, "/api/orders?wallet="+strangerAddr, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// allow-listed wallet, deliberately different casing
	req = httptest.NewRequest(http.MethodGet, "/api/orders?wallet="+strings.ToUpper(adminWallet[2:]), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code) // missing 0x prefix stays rejected

	req = httptest.NewRequest(http.MethodGet, "/api/orders?wallet="+strings.ToLower(adminWallet), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Orders []models.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Orders)
}
