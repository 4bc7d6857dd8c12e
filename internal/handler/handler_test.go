package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submonth/storefront/internal/domain/catalog"
	"github.com/submonth/storefront/internal/domain/currency"
	"github.com/submonth/storefront/internal/domain/order"
	"github.com/submonth/storefront/internal/domain/payment"
)

type fixture struct {
	mux     *http.ServeMux
	carts   *memCarts
	ledger  *memLedger
	gateway *mockGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	carts := newMemCarts()
	ledger := newMemLedger()
	gateway := &mockGateway{}
	catalogRepo := &memCatalog{products: []catalog.Product{
		testProduct("netflix-1m", "Netflix Premium", "10.00"),
		testProduct("spotify-1m", "Spotify Family", "5.00"),
	}}
	config := &memConfig{}

	checkout := order.NewCheckoutService(carts, catalogRepo, config, ledger, gateway, order.NewAssembler())
	reconciler := order.NewReconciler(ledger, gateway)

	h := NewHandler(carts, catalogRepo, config, ledger, checkout, reconciler)
	mux := http.NewServeMux()
	h.Routes(mux)

	return &fixture{mux: mux, carts: carts, ledger: ledger, gateway: gateway}
}

func (f *fixture) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decodeResp[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func validCheckout() map[string]any {
	return map[string]any{
		"firstName": "Rahim",
		"lastName":  "Uddin",
		"email":     "rahim@example.com",
		"phone":     "+8801712345678",
		"currency":  "USD",
	}
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/cart", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeResp[cartResponse](t, w).Items)

	w = f.do(t, http.MethodPost, "/api/cart/items", "s1", map[string]any{"productId": "netflix-1m", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/cart/items", "s1", map[string]any{"productId": "netflix-1m", "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResp[cartResponse](t, w)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity, "quantities merge")

	w = f.do(t, http.MethodPut, "/api/cart/items/netflix-1m", "s1", map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decodeResp[cartResponse](t, w).Items[0].Quantity)

	w = f.do(t, http.MethodDelete, "/api/cart/items/netflix-1m", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeResp[cartResponse](t, w).Items)
}

func TestCartRequiresSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartRejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/cart/items", "s1", map[string]any{"productId": "netflix-1m", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartRemoveMissingItem(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodDelete, "/api/cart/items/netflix-1m", "s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutHappyPath(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/cart/items", "s1", map[string]any{"productId": "netflix-1m", "quantity": 2})

	w := f.do(t, http.MethodPost, "/api/checkout", "s1", validCheckout())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResp[checkoutResponse](t, w)
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, "https://pay.example.com/c/test", resp.PaymentURL)

	o, err := f.ledger.Get(t.Context(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)

	// Cart survives until payment settles.
	w = f.do(t, http.MethodGet, "/api/cart", "s1", nil)
	assert.Len(t, decodeResp[cartResponse](t, w).Items, 1)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/checkout", "s1", validCheckout())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutInvalidCustomer(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/cart/items", "s1", map[string]any{"productId": "netflix-1m", "quantity": 1})

	body := validCheckout()
	body["email"] = "not-an-email"
	w := f.do(t, http.MethodPost, "/api/checkout", "s1", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeResp[errorResponse](t, w).Message, "email")
}

func TestCheckoutUnknownProduct(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/cart/items", "s1", map[string]any{"productId": "gone-product", "quantity": 1})

	w := f.do(t, http.MethodPost, "/api/checkout", "s1", validCheckout())
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCheckoutGatewayRejection(t *testing.T) {
	f := newFixture(t)
	f.gateway.chargeErr = &payment.GatewayError{Op: "create", Message: "invalid api key"}
	f.do(t, http.MethodPost, "/api/cart/items", "s1", map[string]any{"productId": "netflix-1m", "quantity": 1})

	w := f.do(t, http.MethodPost, "/api/checkout", "s1", validCheckout())
	assert.Equal(t, http.StatusBadGateway, w.Code)

	orders, err := f.ledger.List(t.Context(), order.Filter{})
	require.NoError(t, err)
	assert.Empty(t, orders, "failed checkout leaves no order behind")
}

func seedOrder(t *testing.T, f *fixture, id string, status order.Status) {
	t.Helper()
	require.NoError(t, f.ledger.Create(t.Context(), &order.Order{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		Customer:  order.Customer{Name: "Rahim Uddin", Email: "rahim@example.com", Phone: "+8801712345678"},
		Items: []order.LineItem{
			{ProductID: "netflix-1m", Name: "Netflix Premium", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00"), Duration: "1 month"},
		},
		Currency: currency.USD,
		Status:   status,
		Version:  1,
	}))
}

func TestVerifyPaymentCompletesOrder(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000001", order.StatusPending)
	f.gateway.verifyResult = &payment.VerifyResult{
		Status:        payment.StatusCompleted,
		TransactionID: "TXN1",
		PaymentMethod: "bkash",
		Amount:        decimal.RequireFromString("20.00"),
		Currency:      "USD",
		Meta:          payment.VerifyMeta{OrderID: "ORD-00000001"},
	}

	w := f.do(t, http.MethodPost, "/api/payment/verify", "", map[string]any{"transaction_id": "TXN1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResp[orderResponse](t, w)
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, "TXN1", resp.Payment.TransactionID)
}

func TestVerifyPaymentIncomplete(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000002", order.StatusPending)
	f.gateway.verifyResult = &payment.VerifyResult{
		Status:        "PENDING",
		TransactionID: "TXN2",
		Meta:          payment.VerifyMeta{OrderID: "ORD-00000002"},
	}

	w := f.do(t, http.MethodPost, "/api/payment/verify", "", map[string]any{"transaction_id": "TXN2"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	o, err := f.ledger.Get(t.Context(), "ORD-00000002")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
}

func TestVerifyPaymentMissingTransactionID(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/payment/verify", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCustomerOrders(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000003", order.StatusCompleted)

	w := f.do(t, http.MethodGet, "/api/orders?email=rahim@example.com", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeResp[[]orderResponse](t, w), 1)

	w = f.do(t, http.MethodGet, "/api/orders?email=other@example.com", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeResp[[]orderResponse](t, w))

	w = f.do(t, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminListOrdersStatusFilter(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000004", order.StatusPending)
	seedOrder(t, f, "ORD-00000005", order.StatusCompleted)

	w := f.do(t, http.MethodGet, "/api/admin/orders?status=completed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResp[[]orderResponse](t, w)
	require.Len(t, resp, 1)
	assert.Equal(t, "ORD-00000005", resp[0].ID)

	w = f.do(t, http.MethodGet, "/api/admin/orders?status=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminOrderActions(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000006", order.StatusPending)

	w := f.do(t, http.MethodPost, "/api/admin/orders/ORD-00000006/process", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "processing", decodeResp[orderResponse](t, w).Status)

	w = f.do(t, http.MethodPost, "/api/admin/orders/ORD-00000006/confirm", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decodeResp[orderResponse](t, w).Status)

	w = f.do(t, http.MethodPost, "/api/admin/orders/ORD-00000006/cancel", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decodeResp[orderResponse](t, w).Status)

	// Reopen lands in processing, not pending.
	w = f.do(t, http.MethodPost, "/api/admin/orders/ORD-00000006/reopen", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "processing", decodeResp[orderResponse](t, w).Status)
}

func TestAdminOrderActionInvalidEdge(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000007", order.StatusCancelled)

	w := f.do(t, http.MethodPost, "/api/admin/orders/ORD-00000007/confirm", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminOrderActionUnknown(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000008", order.StatusPending)

	w := f.do(t, http.MethodPost, "/api/admin/orders/ORD-00000008/archive", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminOrderActionMissingOrder(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/admin/orders/ORD-99999999/process", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminUpdateOrderNotes(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000009", order.StatusProcessing)

	w := f.do(t, http.MethodPatch, "/api/admin/orders/ORD-00000009", "", map[string]any{"notes": "delivered via email"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResp[orderResponse](t, w)
	assert.Equal(t, "delivered via email", resp.Notes)
	assert.Equal(t, "processing", resp.Status, "status unchanged")
}

func TestAdminUpdateOrderStatusAndNotes(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000010", order.StatusProcessing)

	w := f.do(t, http.MethodPatch, "/api/admin/orders/ORD-00000010", "",
		map[string]any{"status": "completed", "notes": "manual confirm"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResp[orderResponse](t, w)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "manual confirm", resp.Notes)
}

func TestAdminUpdateOrderEmptyBody(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f, "ORD-00000011", order.StatusPending)

	w := f.do(t, http.MethodPatch, "/api/admin/orders/ORD-00000011", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProductsAndConfig(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	products := decodeResp[[]productResponse](t, w)
	require.Len(t, products, 2)
	assert.Equal(t, "netflix-1m", products[0].ID)
	require.Len(t, products[0].Pricing, 1)
	assert.Equal(t, "1 month", products[0].Pricing[0].Duration)

	w = f.do(t, http.MethodGet, "/api/config", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decodeResp[configResponse](t, w)
	assert.True(t, cfg.USDToBDTRate.Equal(decimal.RequireFromString("110")))
	assert.NotEmpty(t, cfg.ContactEmail)
}
