package apiclient

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

func TestDo_SendsFixedAndPerRequestHeaders(t *testing.T) {
	var got http.Header
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "payment service", time.Second, map[string]string{"X-User-ID": "user-1"})
	var out map[string]string
	err := c.Do(context.Background(), http.MethodPost, "/x", map[string]string{"Idempotency-Key": "k1"}, map[string]string{"a": "b"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "user-1", got.Get("X-User-ID"))
	assert.Equal(t, "k1", got.Get("Idempotency-Key"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "b", gotBody["a"])
	assert.Equal(t, "yes", out["ok"])
}

func TestDo_ErrorCodesMapToSentinels(t *testing.T) {
	cases := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusUnprocessableEntity, d.CodeVerificationFailed, d.ErrVerificationFailed},
		{http.StatusGone, d.CodeExpiredIntent, d.ErrExpiredIntent},
		{http.StatusPaymentRequired, d.CodePaymentFailed, d.ErrPaymentFailed},
		{http.StatusServiceUnavailable, d.CodeGatewayUnavailable, d.ErrGatewayUnavailable},
		{http.StatusBadRequest, d.CodeValidation, d.ErrValidation},
		{http.StatusConflict, d.CodeIllegalOrderStatus, d.ErrIllegalOrderStatus},
		{http.StatusForbidden, d.CodeMerchantClosed, d.ErrMerchantClosed},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(d.ErrorResponse{Error: "x", Code: tc.code, Details: "detail"})
			}))
			defer srv.Close()

			err := New(srv.URL, "payment service", time.Second, nil).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
			assert.ErrorIs(t, err, tc.want)
			assert.NotErrorIs(t, err, ErrNetwork)
			assert.Contains(t, err.Error(), "detail")
		})
	}
}

func TestDo_UnknownCodeNamesService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_ = json.NewEncoder(w).Encode(d.ErrorResponse{Error: "short and stout", Code: "teapot"})
	}))
	defer srv.Close()

	err := New(srv.URL, "order service", time.Second, nil).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.Error(t, err)
	assert.EqualError(t, err, "order service: short and stout (teapot)")
}

func TestDo_Unstructured4xxIsNotNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	err := New(srv.URL, "payment service", time.Second, nil).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Contains(t, err.Error(), "404")
}

func TestDo_UndecodableBodyIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{truncated"))
	}))
	defer srv.Close()

	var out map[string]string
	err := New(srv.URL, "payment service", time.Second, nil).Do(context.Background(), http.MethodGet, "/x", nil, nil, &out)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestDo_CancelledContextIsNotNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := New(srv.URL, "payment service", time.Second, nil).Do(ctx, http.MethodGet, "/x", nil, nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrNetwork)
}
