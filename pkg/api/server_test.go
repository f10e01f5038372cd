package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joripage/matching-engine/pkg/exchange"
	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	seed := []ledger.Account{
		{ID: "1", Balances: map[string]decimal.Decimal{"GOOGLE": decimal.NewFromInt(10), "USD": decimal.NewFromInt(50000)}},
		{ID: "2", Balances: map[string]decimal.Decimal{"GOOGLE": decimal.NewFromInt(10), "USD": decimal.NewFromInt(50000)}},
	}
	x := exchange.New(exchange.Config{BaseAsset: "GOOGLE", QuoteAsset: "USD", Accounts: seed})
	srv := httptest.NewServer(NewServer(x, Config{}, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	out := map[string]json.RawMessage{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func decimalField(t *testing.T, raw json.RawMessage) decimal.Decimal {
	t.Helper()
	var v decimal.Decimal
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode decimal %s: %v", raw, err)
	}
	return v
}

func TestOrderFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/order", `{"side":"ask","price":100,"quantity":5,"userId":"1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ask: status %d", resp.StatusCode)
	}
	if !decimalField(t, body["filledQuantity"]).IsZero() {
		t.Errorf("ask filled %s", body["filledQuantity"])
	}

	resp, body = do(t, http.MethodPost, srv.URL+"/order", `{"side":"bid","price":"100","quantity":"3","userId":"2"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bid: status %d", resp.StatusCode)
	}
	if got := decimalField(t, body["filledQuantity"]); !got.Equal(decimal.NewFromInt(3)) {
		t.Errorf("bid filled %s", got)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/balance/2", "")
	var balances map[string]decimal.Decimal
	if err := json.Unmarshal(body["balances"], &balances); err != nil {
		t.Fatalf("decode balances: %v", err)
	}
	if !balances["GOOGLE"].Equal(decimal.NewFromInt(13)) || !balances["USD"].Equal(decimal.NewFromInt(49700)) {
		t.Errorf("unexpected balances %v", balances)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/depth", "")
	var depth DepthSnapshot
	if err := json.Unmarshal(body["depth"], &depth); err != nil {
		t.Fatalf("decode depth: %v", err)
	}
	if len(depth.Bids) != 0 || len(depth.Asks) != 1 {
		t.Fatalf("unexpected depth %+v", depth)
	}
	if !depth.Asks[0].Price.Equal(decimal.NewFromInt(100)) || !depth.Asks[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("unexpected ask level %+v", depth.Asks[0])
	}
}

func TestQuoteOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/order", `{"side":"ask","price":100,"quantity":1,"userId":"1"}`)
	do(t, http.MethodPost, srv.URL+"/order", `{"side":"ask","price":101,"quantity":3,"userId":"1"}`)

	resp, body := do(t, http.MethodGet, srv.URL+"/quote?side=bid&quantity=2", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("quote: status %d", resp.StatusCode)
	}
	if got := decimalField(t, body["quote"]); !got.Equal(decimal.NewFromInt(201)) {
		t.Errorf("expected 201, got %s", got)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/quote", `{"side":"bid","quantity":10}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if string(body["error"]) != `"Not enough liquidity"` {
		t.Errorf("unexpected error body %s", body["error"])
	}
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "malformed json", method: http.MethodPost, path: "/order", body: `{"side":`, status: http.StatusBadRequest},
		{name: "bad side", method: http.MethodPost, path: "/order", body: `{"side":"buy","price":1,"quantity":1,"userId":"1"}`, status: http.StatusBadRequest},
		{name: "zero quantity", method: http.MethodPost, path: "/order", body: `{"side":"bid","price":1,"quantity":0,"userId":"1"}`, status: http.StatusBadRequest},
		{name: "unknown user", method: http.MethodPost, path: "/order", body: `{"side":"bid","price":1,"quantity":1,"userId":"9"}`, status: http.StatusNotFound},
		{name: "quote bad quantity", method: http.MethodGet, path: "/quote?side=bid&quantity=abc", status: http.StatusBadRequest},
		{name: "quote missing params", method: http.MethodGet, path: "/quote", status: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, path: "/order", status: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, tt.method, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestUnknownBalanceIsZero(t *testing.T) {
	srv := newTestServer(t)
	_, body := do(t, http.MethodGet, srv.URL+"/balance/nobody", "")
	var balances map[string]decimal.Decimal
	if err := json.Unmarshal(body["balances"], &balances); err != nil {
		t.Fatalf("decode balances: %v", err)
	}
	if len(balances) != 2 || !balances["USD"].IsZero() || !balances["GOOGLE"].IsZero() {
		t.Errorf("expected zeroed balances, got %v", balances)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(requestIDHeader); got != "abc-123" {
		t.Errorf("expected echoed request id, got %q", got)
	}
}
