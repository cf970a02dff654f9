package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstore-backend/api/middleware"
	"github.com/angelmondragon/bookstore-backend/internal/checkout"
	internalorders "github.com/angelmondragon/bookstore-backend/internal/orders"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/pagination"
)

type stubCheckout struct {
	input checkout.Input
	err   error
}

func (s *stubCheckout) Checkout(_ context.Context, userID uuid.UUID, input checkout.Input) (*models.Order, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return sampleOrder(userID), nil
}

type stubOrders struct {
	params pagination.Params
	err    error
}

func (s *stubOrders) List(_ context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.params = params
	return &internalorders.OrderList{Orders: []internalorders.OrderDTO{internalorders.FromModel(sampleOrder(userID))}, NextCursor: "next"}, s.err
}

func (s *stubOrders) Get(_ context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	order := sampleOrder(userID)
	order.ID = orderID
	return order, nil
}

func (s *stubOrders) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	at := time.Now().UTC()
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &at
	return order, nil
}

func sampleOrder(userID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		OrderCode:     1001,
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodCOD,
		Subtotal:      decimal.RequireFromString("30"),
		DiscountTotal: decimal.Zero,
		Total:         decimal.RequireFromString("30"),
		Items: []models.OrderItem{{
			ProductID: uuid.New(),
			Title:     "Dune",
			UnitPrice: decimal.RequireFromString("10"),
			Quantity:  3,
			LineTotal: decimal.RequireFromString("30"),
		}},
	}
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func withOrderID(req *http.Request, id string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

const addressBody = `{"shipping_address":{"full_name":"Ada","phone":"0900000000","street":"1 Main","city":"HCM","state":"HCM","zip":"70000","country":"VN"},"payment_method":"cod"}`

func TestCreateReturns201(t *testing.T) {
	svc := &stubCheckout{}
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(addressBody))))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "cod", svc.input.PaymentMethod)
	assert.Equal(t, "Ada", svc.input.ShippingAddress.FullName)
	assert.Contains(t, rec.Body.String(), `"order_code":1001`)
	assert.Contains(t, rec.Body.String(), `"total":"30.00"`)
}

func TestCreateSurfacesEmptyCart(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")}
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(addressBody))))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "cart is empty")
}

func TestCreateRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	Create(&stubCheckout{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(addressBody)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListPassesPagination(t *testing.T) {
	svc := &stubOrders{}
	rec := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pagination.Params{Limit: 5, Cursor: "abc"}, svc.params)
	assert.Contains(t, rec.Body.String(), `"next_cursor":"next"`)
}

func TestListRejectsOversizedLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	List(&stubOrders{}, nil).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=1000", nil)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetailNotFound(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	rec := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(rec, withOrderID(authed(httptest.NewRequest(http.MethodGet, "/", nil)), uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelReturnsCancelledOrder(t *testing.T) {
	id := uuid.New()
	rec := httptest.NewRecorder()
	Cancel(&stubOrders{}, nil).ServeHTTP(rec, withOrderID(authed(httptest.NewRequest(http.MethodPatch, "/", nil)), id.String()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"cancelled"`)
	assert.Contains(t, rec.Body.String(), id.String())
}

func TestCancelConflict(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order is shipped and can no longer be cancelled")}
	rec := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(rec, withOrderID(authed(httptest.NewRequest(http.MethodPatch, "/", nil)), uuid.NewString()))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
