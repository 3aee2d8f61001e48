package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-surprise-bags/internal/memstore"
	"github.com/ariefcatur/go-surprise-bags/internal/redisx"
	"github.com/ariefcatur/go-surprise-bags/internal/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var now = time.Date(2025, 2, 2, 12, 0, 0, 0, time.UTC)

type memCache struct {
	mu        sync.Mutex
	summaries map[string]reservation.OrderSummary
	idem      map[string]string
	failClaim error
}

func newMemCache() *memCache {
	return &memCache{summaries: map[string]reservation.OrderSummary{}, idem: map[string]string{}}
}

func (c *memCache) GetSummary(_ context.Context, orderID string) (reservation.OrderSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.summaries[orderID]
	return s, ok, nil
}

func (c *memCache) PutSummary(_ context.Context, sum reservation.OrderSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[sum.OrderID] = sum
	return nil
}

func (c *memCache) DropSummary(_ context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.summaries, orderID)
	return nil
}

func (c *memCache) Claim(_ context.Context, customerID, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failClaim != nil {
		return "", false, c.failClaim
	}
	k := customerID + ":" + key
	v, ok := c.idem[k]
	if !ok {
		c.idem[k] = ""
		return "", true, nil
	}
	if v == "" {
		return "", false, redisx.ErrInProgress
	}
	return v, false, nil
}

func (c *memCache) Remember(_ context.Context, customerID, key, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idem[customerID+":"+key] = orderID
	return nil
}

func (c *memCache) Forget(_ context.Context, customerID, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.idem, customerID+":"+key)
	return nil
}

type env struct {
	srv   http.Handler
	store *memstore.Store
	cache *memCache
}

func setup(t *testing.T, qty int) env {
	t.Helper()
	st := memstore.New()
	st.PutBag(reservation.Bag{
		ID: "bag-1", StoreID: "store-1", Name: "Evening Surprise",
		Quantity: qty, Status: reservation.BagAvailable,
		PickupStart: now.Add(4 * time.Hour), PickupEnd: now.Add(5 * time.Hour),
	})
	st.PutCustomer(reservation.Customer{ID: "cust-1"})

	svc := reservation.NewService(st, nil, nil, zaptest.NewLogger(t), 0)
	svc.Now = func() time.Time { return now }

	cache := newMemCache()
	r := NewRouter()
	(&OrdersHandler{Service: svc, Cache: cache, Log: zaptest.NewLogger(t)}).Register(r)
	return env{srv: r, store: st, cache: cache}
}

func (e env) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func customer(id string) map[string]string { return map[string]string{HeaderCustomerID: id} }

func TestOrders_Flow(t *testing.T) {
	e := setup(t, 1)

	rec := e.do(t, http.MethodPost, "/orders", `{"bagId":"bag-1"}`, customer("cust-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sum := decode[reservation.OrderSummary](t, rec)
	assert.Equal(t, reservation.StatusPending, sum.Status)
	assert.Len(t, sum.PickupCode, 6)
	assert.Equal(t, "Evening Surprise", sum.Bag.Name)

	rec = e.do(t, http.MethodPost, "/orders", `{"bagId":"bag-1"}`, customer("cust-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, reservation.KindUnavailable, decode[errorResp](t, rec).Kind)

	rec = e.do(t, http.MethodPost, "/orders/"+sum.OrderID+"/confirm", "", map[string]string{HeaderStoreID: "store-2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/orders/"+sum.OrderID+"/confirm", "", map[string]string{HeaderStoreID: "store-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reservation.StatusConfirmed, decode[reservation.OrderSummary](t, rec).Status)

	_, ok, _ := e.cache.GetSummary(context.Background(), sum.OrderID)
	assert.False(t, ok, "confirm drops the cached summary")

	rec = e.do(t, http.MethodPost, "/orders/"+sum.OrderID+"/validate-pickup", `{"pickupCode":"`+sum.PickupCode+`"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	wrong := "000000"
	if sum.PickupCode == wrong {
		wrong = "111111"
	}
	rec = e.do(t, http.MethodPost, "/orders/"+sum.OrderID+"/validate-pickup", `{"pickupCode":"`+wrong+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, reservation.KindInvalidCode, decode[errorResp](t, rec).Kind)

	rec = e.do(t, http.MethodPost, "/orders/"+sum.OrderID+"/cancel", "", customer("cust-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reservation.StatusCancelled, decode[reservation.OrderSummary](t, rec).Status)

	rec = e.do(t, http.MethodPost, "/orders/"+sum.OrderID+"/cancel", "", customer("cust-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, reservation.KindAlreadyCancelled, decode[errorResp](t, rec).Kind)

	rec = e.do(t, http.MethodGet, "/bags", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bags := decode[[]reservation.Bag](t, rec)
	require.Len(t, bags, 1)
	assert.Equal(t, 1, bags[0].Quantity)
}

func TestOrders_Validation(t *testing.T) {
	e := setup(t, 1)

	rec := e.do(t, http.MethodPost, "/orders", `{"bagId":"bag-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/orders", `{`, customer("cust-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/orders", `{"bagId":" "}`, customer("cust-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/orders", `{"bagId":"nope"}`, customer("cust-1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/orders/x/confirm", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/orders/x/cancel", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/orders/x/validate-pickup", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/orders/x", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, reservation.KindNotFound, decode[errorResp](t, rec).Kind)
}

func TestOrders_IdempotentCreate(t *testing.T) {
	e := setup(t, 5)
	h := map[string]string{HeaderCustomerID: "cust-1", HeaderIdempotencyKey: "k-1"}

	first := e.do(t, http.MethodPost, "/orders", `{"bagId":"bag-1"}`, h)
	require.Equal(t, http.StatusCreated, first.Code)
	second := e.do(t, http.MethodPost, "/orders", `{"bagId":"bag-1"}`, h)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))

	a := decode[reservation.OrderSummary](t, first)
	b := decode[reservation.OrderSummary](t, second)
	assert.Equal(t, a.OrderID, b.OrderID)

	bag, err := e.store.GetBag(context.Background(), "bag-1")
	require.NoError(t, err)
	assert.Equal(t, 4, bag.Quantity, "replay must not reserve again")

	// in-flight claim
	e.cache.idem["cust-1:k-2"] = ""
	rec := e.do(t, http.MethodPost, "/orders", `{"bagId":"bag-1"}`, map[string]string{HeaderCustomerID: "cust-1", HeaderIdempotencyKey: "k-2"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// failure frees the key
	rec = e.do(t, http.MethodPost, "/orders", `{"bagId":"nope"}`, map[string]string{HeaderCustomerID: "cust-1", HeaderIdempotencyKey: "k-3"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, held := e.cache.idem["cust-1:k-3"]
	assert.False(t, held)
}

func TestOrders_CacheOutageFallsBack(t *testing.T) {
	e := setup(t, 2)
	e.cache.failClaim = errors.New("redis: connection refused")

	rec := e.do(t, http.MethodPost, "/orders", `{"bagId":"bag-1"}`, map[string]string{HeaderCustomerID: "cust-1", HeaderIdempotencyKey: "k-1"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestOrders_GetServedFromCache(t *testing.T) {
	e := setup(t, 1)
	rec := e.do(t, http.MethodPost, "/orders", `{"bagId":"bag-1"}`, customer("cust-1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	sum := decode[reservation.OrderSummary](t, rec)

	rec = e.do(t, http.MethodGet, "/orders/"+sum.OrderID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sum.OrderID, decode[reservation.OrderSummary](t, rec).OrderID)

	stale := sum
	stale.Bag.Name = "from cache"
	require.NoError(t, e.cache.PutSummary(context.Background(), stale))
	rec = e.do(t, http.MethodGet, "/orders/"+sum.OrderID, "", nil)
	assert.Equal(t, "from cache", decode[reservation.OrderSummary](t, rec).Bag.Name)
}

func TestOrders_StatusChangeDropsCachedSummary(t *testing.T) {
	e := setup(t, 1)
	rec := e.do(t, http.MethodPost, "/orders", `{"bagId":"bag-1"}`, customer("cust-1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	sum := decode[reservation.OrderSummary](t, rec)

	_, ok, _ := e.cache.GetSummary(context.Background(), sum.OrderID)
	assert.False(t, ok, "create does not write the cache")

	rec = e.do(t, http.MethodPost, "/orders/"+sum.OrderID+"/confirm", "", map[string]string{HeaderStoreID: "store-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	confirmed := decode[reservation.OrderSummary](t, rec)

	rec = e.do(t, http.MethodPost, "/orders/"+sum.OrderID+"/cancel", "", customer("cust-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	// a late writer puts the older CONFIRMED summary back, then a read refills
	require.NoError(t, e.cache.PutSummary(context.Background(), confirmed))
	rec = e.do(t, http.MethodPost, "/orders/"+sum.OrderID+"/cancel", "", customer("cust-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, ok, _ = e.cache.GetSummary(context.Background(), sum.OrderID)
	assert.True(t, ok, "failed mutations leave the cache alone")

	require.NoError(t, e.cache.DropSummary(context.Background(), sum.OrderID))
	rec = e.do(t, http.MethodGet, "/orders/"+sum.OrderID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reservation.StatusCancelled, decode[reservation.OrderSummary](t, rec).Status)

	cached, ok, _ := e.cache.GetSummary(context.Background(), sum.OrderID)
	require.True(t, ok, "get refills the cache")
	assert.Equal(t, reservation.StatusCancelled, cached.Status)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{reservation.ErrTooLate, http.StatusBadRequest},
		{reservation.ErrInvalidState, http.StatusBadRequest},
		{reservation.ErrUnauthorized, http.StatusForbidden},
		{reservation.ErrTransient, http.StatusServiceUnavailable},
		{errors.New("pq: password authentication failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, tt.err)
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}

	rec := httptest.NewRecorder()
	writeError(rec, reservation.ErrTransient)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	writeError(rec, errors.New("secret dsn"))
	assert.Equal(t, "internal error", decode[errorResp](t, rec).Error)
}

func TestRouter_Health(t *testing.T) {
	r := NewRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
