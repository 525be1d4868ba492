package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/payment"
	"github.com/fjod/cats-den/internal/repository"
	"github.com/fjod/cats-den/internal/service"
)

const orderBody = `{
	"items": [{"kittenId": "k1", "kittenName": "Luna", "kittenBreed": "British Shorthair", "price": 1500}],
	"shippingAddress": {"name": "Jane Doe", "street": "1 Main St", "city": "Springfield", "state": "IL",
		"postalCode": "62701", "country": "US", "phone": "555-0100"},
	"subtotal": 1500, "shipping": 150, "tax": 120, "total": 1770
}`

func newOrdersHandler(mock *OrderServiceMock) *OrdersHandler {
	return NewOrdersHandler(mock, "pk_test_mock", 5*time.Second, logger.Discard())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestCreateOrder_Success(t *testing.T) {
	mock := &OrderServiceMock{order: &domain.Order{OrderNumber: "CD-20260314-0042"}}
	handler := newOrdersHandler(mock)
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(orderBody)))

	handler.CreateOrder(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)
	var resp CreateOrderResponseDTO
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "CD-20260314-0042", resp.OrderNumber)
	assert.Equal(t, "Order created successfully", resp.Message)
	assert.Equal(t, "user-1", mock.gotUserID)
	require.Len(t, mock.gotReq.Items, 1)
	assert.Equal(t, "k1", mock.gotReq.Items[0].KittenID)
	assert.Equal(t, "62701", mock.gotReq.ShippingAddress.PostalCode)
	assert.Equal(t, 1770.0, mock.gotReq.Total)
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	mock := &OrderServiceMock{}
	handler := newOrdersHandler(mock)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(orderBody))

	handler.CreateOrder(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, CodeUnauthorized, decodeError(t, recorder).Code)
	assert.Zero(t, mock.Calls())
}

func TestCreateOrder_InvalidJSON(t *testing.T) {
	mock := &OrderServiceMock{}
	handler := newOrdersHandler(mock)
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{not json")))

	handler.CreateOrder(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, CodeInvalidInput, decodeError(t, recorder).Code)
	assert.Zero(t, mock.Calls())
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantField  string
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        &service.ValidationError{Field: "total", Message: "Order totals do not match the items in your cart"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeValidation,
			wantField:  "total",
			wantMsg:    "Order totals do not match the items in your cart",
		},
		{
			name:       "storage failure",
			err:        errors.New("failed to create order: server selection timeout"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   CodeDatabase,
			wantMsg:    "We're experiencing technical difficulties. Please try again later.",
		},
		{
			name:       "unauthenticated",
			err:        service.ErrUnauthenticated,
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeUnauthorized,
			wantMsg:    "Authentication required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newOrdersHandler(&OrderServiceMock{err: tt.err})
			recorder := httptest.NewRecorder()
			request := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(orderBody)))

			handler.CreateOrder(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			body := decodeError(t, recorder)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantField, body.Field)
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.NotContains(t, recorder.Body.String(), "server selection")
		})
	}
}

func TestListOrders_Success(t *testing.T) {
	mock := &OrderServiceMock{orders: []*domain.Order{
		{OrderNumber: "CD-20260314-0002", UserID: "user-1"},
		{OrderNumber: "CD-20260313-0001", UserID: "user-1"},
	}}
	handler := newOrdersHandler(mock)
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	handler.ListOrders(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var orders []domain.Order
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	assert.Equal(t, "CD-20260314-0002", orders[0].OrderNumber)
}

func TestListOrders_EmptyIsArray(t *testing.T) {
	handler := newOrdersHandler(&OrderServiceMock{})
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	handler.ListOrders(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `[]`, recorder.Body.String())
}

func TestListOrders_Unauthenticated(t *testing.T) {
	mock := &OrderServiceMock{orders: []*domain.Order{{OrderNumber: "CD-20260314-0002"}}}
	handler := newOrdersHandler(mock)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/orders", nil)

	handler.ListOrders(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "CD-20260314-0002")
	assert.Zero(t, mock.Calls())
}

func TestGetOrder_NotFound(t *testing.T) {
	handler := newOrdersHandler(&OrderServiceMock{err: repository.ErrOrderNotFound})
	recorder := httptest.NewRecorder()
	request := withURLParam(withUser(httptest.NewRequest(http.MethodGet, "/api/orders/CD-1", nil)), "orderNumber", "CD-1")

	handler.GetOrder(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, recorder).Code)
}

func TestCreatePaymentIntent_Success(t *testing.T) {
	mock := &OrderServiceMock{intent: &payment.Intent{
		ID:           "pi_1",
		ClientSecret: "pi_1_secret_abc",
		Amount:       payment.Amount{Amount: 177000, Currency: "usd"},
	}}
	handler := newOrdersHandler(mock)
	recorder := httptest.NewRecorder()
	request := withURLParam(withUser(httptest.NewRequest(http.MethodPost, "/api/orders/CD-1/payment-intent", nil)), "orderNumber", "CD-1")

	handler.CreatePaymentIntent(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)
	var resp PaymentIntentResponseDTO
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "pi_1_secret_abc", resp.ClientSecret)
	assert.Equal(t, "pk_test_mock", resp.PublishableKey)
	assert.Equal(t, int64(177000), resp.Amount)
}

func TestCreatePaymentIntent_NotPayable(t *testing.T) {
	handler := newOrdersHandler(&OrderServiceMock{err: service.ErrOrderNotPayable})
	recorder := httptest.NewRecorder()
	request := withURLParam(withUser(httptest.NewRequest(http.MethodPost, "/api/orders/CD-1/payment-intent", nil)), "orderNumber", "CD-1")

	handler.CreatePaymentIntent(recorder, request)

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestUpdateStatus(t *testing.T) {
	mock := &OrderServiceMock{order: &domain.Order{OrderNumber: "CD-1", Status: domain.OrderStatusShipped}}
	handler := newOrdersHandler(mock)
	recorder := httptest.NewRecorder()
	request := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/admin/orders/CD-1/status",
		strings.NewReader(`{"status":"shipped"}`)), "orderNumber", "CD-1")

	handler.UpdateStatus(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, domain.OrderStatusShipped, mock.gotStatus)
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	handler := newOrdersHandler(&OrderServiceMock{err: service.ErrIllegalTransition})
	recorder := httptest.NewRecorder()
	request := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/admin/orders/CD-1/status",
		strings.NewReader(`{"status":"pending"}`)), "orderNumber", "CD-1")

	handler.UpdateStatus(recorder, request)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, CodeInvalidInput, decodeError(t, recorder).Code)
}
