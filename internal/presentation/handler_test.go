package presentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RaikyD/order-lifecycle-service/internal/application"
	"github.com/RaikyD/order-lifecycle-service/internal/domain"
	"github.com/RaikyD/order-lifecycle-service/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardEvents struct{}

func (discardEvents) Emit(context.Context, string, string, any) error { return nil }

type staticProducts map[string]int64

func (s staticProducts) Lookup(_ context.Context, id string) (*domain.Product, error) {
	price, ok := s[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &domain.Product{ID: id, Price: price}, nil
}

func newRouter() (http.Handler, *application.OrdersService) {
	svc := application.NewOrdersService(repository.NewMemoryRepository(), discardEvents{}, staticProducts{"p1": 1000})
	r := chi.NewRouter()
	NewOrdersHandler(svc).Register(r)
	return r, svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const checkout = `{"userId":"u1","orderCode":"1700000000000","paymentMethod":"COD",
	"carts":[{"sellerId":"s1","products":[{"productId":"p1","quantity":1}]}]}`

func createPaid(t *testing.T, h http.Handler, svc *application.OrdersService) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/orders", checkout)
	require.Equal(t, http.StatusCreated, rec.Code)

	var res domain.CreateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.OrderIDs, 1)

	_, err := svc.ApplyPaymentResult(context.Background(), domain.PaymentSuccessCommand{
		OrderIDs: res.OrderIDs, Status: "SUCCESS", PaymentID: "pay-1",
	})
	require.NoError(t, err)
	return res.OrderIDs[0]
}

func TestHealth(t *testing.T) {
	h, _ := newRouter()
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateOrders(t *testing.T) {
	h, _ := newRouter()

	rec := do(t, h, http.MethodPost, "/api/v1/orders", checkout)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/orders", checkout)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"duplicate":true`)

	rec = do(t, h, http.MethodPost, "/api/v1/orders", strings.Replace(checkout, "1700000000000", "abc", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/orders", strings.Replace(checkout, `"p1"`, `"p2"`, 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/orders", `{"userId":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderActions(t *testing.T) {
	h, svc := newRouter()
	id := createPaid(t, h, svc)
	base := "/api/v1/orders/" + id

	rec := do(t, h, http.MethodPost, base+"/complete", `{"sellerId":"s1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "PENDING_ACCEPT")

	rec = do(t, h, http.MethodPost, base+"/confirm", `{"sellerId":"s2"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/confirm", `{"sellerId":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/cancel-request", `{"userId":"u1","reason":"late"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.StatusRequestedCancel))

	rec = do(t, h, http.MethodPost, base+"/cancel-request/reject", `{"sellerId":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/complete", `{"sellerId":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var o domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, domain.StatusDelivered, o.Status)
	assert.Equal(t, int64(1000), o.FinalTotal)
}

func TestListOrders(t *testing.T) {
	h, svc := newRouter()
	createPaid(t, h, svc)

	rec := do(t, h, http.MethodGet, "/api/v1/orders?userId=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	rec = do(t, h, http.MethodGet, "/api/v1/sellers/s1/orders?status=pending_accept,confirmed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	rec = do(t, h, http.MethodGet, "/api/v1/sellers/s9/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/orders", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/orders/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
