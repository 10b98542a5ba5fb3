package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	c := New(ts.URL, "test-key")
	return c, ts
}

func TestCheckStatusDecodesEnvelope(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"status":"success","data":{"txn_id":"tx-1","status":"completed"}}`))
	})
	defer ts.Close()

	st, err := c.CheckStatus(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", st.TxnID)
	assert.Equal(t, "completed", st.Status)
}

func TestErrorEnvelopeSurfacesMessage(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":"error","data":{"message":"invalid currency"}}`))
	})
	defer ts.Close()

	_, err := c.WalletBalance(context.Background(), "XYZ")
	require.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "invalid currency")
}

func TestMissingAPIKeyFailsFast(t *testing.T) {
	called := false
	c, ts := newTestClient(func(http.ResponseWriter, *http.Request) { called = true })
	defer ts.Close()
	c.APIKey = ""

	_, err := c.CheckStatus(context.Background(), "tx-1")
	assert.ErrorIs(t, err, ErrGateway)
	assert.False(t, called, "sem api key não sai requisição")
}

func TestCreateInvoiceSendsExpectedParams(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "USD", q.Get("source_currency"))
		assert.Equal(t, "10.00", q.Get("source_amount"))
		assert.Equal(t, "none", q.Get("callback_url"))
		assert.Contains(t, q.Get("order_number"), "u1-")
		_, _ = w.Write([]byte(`{"status":"success","data":{"txn_id":"tx-9","invoice_url":"https://pay/tx-9"}}`))
	})
	defer ts.Close()

	inv, err := c.CreateInvoice(context.Background(), "u1", 10, "GP deposit")
	require.NoError(t, err)
	assert.Equal(t, "tx-9", inv.TxnID)
	assert.Equal(t, "https://pay/tx-9", inv.InvoiceURL)
}

func TestWalletBalanceFloat(t *testing.T) {
	assert.Equal(t, 1.5, WalletBalance{Balance: "1.5"}.Float())
	assert.Equal(t, 0.0, WalletBalance{Balance: "junk"}.Float())
}

func TestPayoutRefFallsBackToID(t *testing.T) {
	assert.Equal(t, "a", Payout{TxnID: "a", ID: "b"}.Ref())
	assert.Equal(t, "b", Payout{ID: "b"}.Ref())
}
