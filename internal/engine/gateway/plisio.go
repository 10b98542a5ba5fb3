// Package gateway implementa o cliente do gateway de pagamento cripto (Plisio).
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrGateway = errors.New("payment gateway error")

// Invoice é a fatura de depósito emitida pelo gateway.
type Invoice struct {
	TxnID          string `json:"txn_id"`
	WalletHash     string `json:"wallet_hash"`
	InvoiceURL     string `json:"invoice_url"`
	SourceCurrency string `json:"source_currency"`
	SourceAmount   string `json:"source_amount"`
	Currency       string `json:"currency"`
	Amount         string `json:"amount"`
	QRCode         string `json:"qr_code"`
}

// InvoiceStatus é o estado corrente de uma fatura no gateway.
type InvoiceStatus struct {
	TxnID  string `json:"txn_id"`
	Status string `json:"status"` // pending | confirming | completed | expired | failed
}

// Payout é a resposta de um saque criado no gateway.
type Payout struct {
	TxnID string `json:"txn_id"`
	ID    string `json:"id"`
}

// Ref retorna a referência externa do payout, qualquer que seja o campo preenchido.
func (p Payout) Ref() string {
	if p.TxnID != "" {
		return p.TxnID
	}
	return p.ID
}

// WalletBalance é o saldo da carteira do operador em uma moeda.
type WalletBalance struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// Float interpreta o saldo textual da API; zero para valores ilegíveis.
func (w WalletBalance) Float() float64 {
	f, err := strconv.ParseFloat(w.Balance, 64)
	if err != nil {
		return 0
	}
	return f
}

// Client fala com a API REST do Plisio.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// envelope padrão das respostas: {"status":"success","data":{...}} ou
// {"status":"error","data":{"message":...}}
type apiEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type apiError struct {
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key not configured", ErrGateway)
	}
	params.Set("api_key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	if env.Status != "success" {
		var apiErr apiError
		_ = json.Unmarshal(env.Data, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = "http " + res.Status
		}
		return fmt.Errorf("%w: %s", ErrGateway, apiErr.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", ErrGateway, err)
		}
	}
	return nil
}

// CreateInvoice emite uma fatura de depósito em USD.
// O orderID entra com timestamp pra manter order_number único no gateway.
func (c *Client) CreateInvoice(ctx context.Context, orderID string, amountUSD float64, orderName string) (Invoice, error) {
	params := url.Values{}
	params.Set("order_number", fmt.Sprintf("%s-%d", orderID, time.Now().UnixMilli()))
	params.Set("order_name", orderName)
	params.Set("source_currency", "USD")
	params.Set("source_amount", strconv.FormatFloat(amountUSD, 'f', 2, 64))
	params.Set("currency", "USDT")
	params.Set("callback_url", "none") // status via polling, sem webhook

	var inv Invoice
	if err := c.get(ctx, "/invoices/new", params, &inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// InvoiceDetails busca a fatura completa (endereço de pagamento, URL, QR).
func (c *Client) InvoiceDetails(ctx context.Context, txnID string) (Invoice, error) {
	var inv Invoice
	if err := c.get(ctx, "/operations/"+url.PathEscape(txnID), url.Values{}, &inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// CheckStatus consulta o status corrente de uma fatura.
func (c *Client) CheckStatus(ctx context.Context, txnID string) (InvoiceStatus, error) {
	params := url.Values{}
	params.Set("txn_id", txnID)

	var st InvoiceStatus
	if err := c.get(ctx, "/operations/"+url.PathEscape(txnID), params, &st); err != nil {
		return InvoiceStatus{}, err
	}
	return st, nil
}

// CreatePayout envia cripto para o endereço do usuário (cash_out).
func (c *Client) CreatePayout(ctx context.Context, currency, address string, amount float64) (Payout, error) {
	params := url.Values{}
	params.Set("currency", strings.ToUpper(currency))
	params.Set("to", address)
	params.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	params.Set("type", "cash_out")

	var p Payout
	if err := c.get(ctx, "/operations/withdraw", params, &p); err != nil {
		return Payout{}, err
	}
	return p, nil
}

// WalletBalance consulta o saldo da carteira do operador em uma moeda.
func (c *Client) WalletBalance(ctx context.Context, currency string) (WalletBalance, error) {
	lower := strings.ToLower(currency)
	params := url.Values{}
	params.Set("currency", lower)

	var b WalletBalance
	if err := c.get(ctx, "/balances/"+url.PathEscape(lower), params, &b); err != nil {
		return WalletBalance{}, err
	}
	return b, nil
}
