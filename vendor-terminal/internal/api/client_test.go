package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/orders", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "m1", r.Header.Get("X-Merchant-ID"))
		_ = json.NewEncoder(w).Encode([]d.Order{{ID: "o1", Status: d.OrderStatusPending}})
	}))
	defer srv.Close()

	orders, err := NewClient(srv.URL, "m1", time.Second).ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
}

func TestUpdateStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/orders/o1/status", r.URL.Path)
		var req d.UpdateOrderStatusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, d.OrderStatusAccepted, req.Status)
		_ = json.NewEncoder(w).Encode(d.UpdateOrderStatusResponse{Success: true, Order: &d.Order{ID: "o1", Status: req.Status}})
	}))
	defer srv.Close()

	order, err := NewClient(srv.URL, "m1", time.Second).UpdateStatus(context.Background(), "o1", d.OrderStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, d.OrderStatusAccepted, order.Status)
}

func TestUpdateStatus_DomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(d.ErrorResponse{Error: "conflict", Code: d.CodeIllegalOrderStatus, Details: "cancelled"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "m1", time.Second).UpdateStatus(context.Background(), "o1", d.OrderStatusAccepted)
	assert.ErrorIs(t, err, d.ErrIllegalOrderStatus)
}

func TestUpdateStatus_Network(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL, "m1", time.Second).UpdateStatus(context.Background(), "o1", d.OrderStatusAccepted)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestListActive_Unstructured5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "m1", time.Second).ListActive(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}
