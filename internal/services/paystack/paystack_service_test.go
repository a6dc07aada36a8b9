package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testService(ts *httptest.Server) *PaystackService {
	return &PaystackService{
		Client:    &http.Client{Timeout: 5 * time.Second},
		SecretKey: "sk_test_xxx",
		BaseURL:   ts.URL,
	}
}

func TestNewPaystackService(t *testing.T) {
	svc := NewPaystackService("sk_test_xxx", "")
	if svc.BaseURL != "https://api.paystack.co" {
		t.Errorf("default base URL = %q", svc.BaseURL)
	}
	if svc.SecretKey != "sk_test_xxx" {
		t.Errorf("secret key = %q", svc.SecretKey)
	}

	svc = NewPaystackService("sk_test_xxx", "http://localhost:9999")
	if svc.BaseURL != "http://localhost:9999" {
		t.Errorf("base URL override = %q", svc.BaseURL)
	}
}

func TestInitializeCharge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_xxx" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req InitializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Amount != 500000 {
			t.Errorf("amount = %d, want 500000", req.Amount)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         req.Reference,
			},
		})
	}))
	defer ts.Close()

	svc := testService(ts)
	resp, err := svc.InitializeCharge(context.Background(), InitializeRequest{
		Email:     "user@example.com",
		Amount:    500000,
		Reference: "DEP_test_1",
	})
	if err != nil {
		t.Fatalf("InitializeCharge: %v", err)
	}
	if resp.Data.AuthorizationURL != "https://checkout.paystack.com/abc123" {
		t.Errorf("authorization_url = %q", resp.Data.AuthorizationURL)
	}
	if resp.Data.Reference != "DEP_test_1" {
		t.Errorf("reference = %q", resp.Data.Reference)
	}
}

func TestInitializeChargeGatewayDeclines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Invalid key",
		})
	}))
	defer ts.Close()

	svc := testService(ts)
	_, err := svc.InitializeCharge(context.Background(), InitializeRequest{
		Email:  "user@example.com",
		Amount: 1000,
	})
	if err == nil {
		t.Fatal("expected error for status:false response")
	}
	if !strings.Contains(err.Error(), "Invalid key") {
		t.Errorf("error should carry the gateway message, got %v", err)
	}
}

func TestVerifyCharge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/DEP_test_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"status":    "success",
				"reference": "DEP_test_1",
				"amount":    500000,
				"channel":   "card",
			},
		})
	}))
	defer ts.Close()

	svc := testService(ts)
	resp, err := svc.VerifyCharge(context.Background(), "DEP_test_1")
	if err != nil {
		t.Fatalf("VerifyCharge: %v", err)
	}
	if resp.Data.Status != "success" {
		t.Errorf("status = %q, want success", resp.Data.Status)
	}
	if resp.Data.Amount != 500000 {
		t.Errorf("amount = %d, want 500000", resp.Data.Amount)
	}
}

func TestResolveAccount(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bank/resolve" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("account_number") != "0123456789" || q.Get("bank_code") != "058" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Account number resolved",
			"data": map[string]interface{}{
				"account_number": "0123456789",
				"account_name":   "ADA OBI",
				"bank_id":        9,
			},
		})
	}))
	defer ts.Close()

	svc := testService(ts)
	res, err := svc.ResolveAccount(context.Background(), "0123456789", "058")
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	if res.AccountName != "ADA OBI" {
		t.Errorf("account_name = %q", res.AccountName)
	}
}

func TestListBanks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Banks retrieved",
			"data": []map[string]interface{}{
				{"id": 9, "name": "GTBank", "code": "058", "currency": "NGN", "active": true},
				{"id": 21, "name": "Zenith Bank", "code": "057", "currency": "NGN", "active": true},
			},
		})
	}))
	defer ts.Close()

	svc := testService(ts)
	banks, err := svc.ListBanks(context.Background())
	if err != nil {
		t.Fatalf("ListBanks: %v", err)
	}
	if len(banks) != 2 {
		t.Fatalf("got %d banks, want 2", len(banks))
	}
	if banks[0].Code != "058" {
		t.Errorf("first bank code = %q", banks[0].Code)
	}
}
