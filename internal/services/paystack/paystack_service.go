package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type PaystackService struct {
	Client    *http.Client
	SecretKey string
	BaseURL   string
}

func NewPaystackService(secretKey, baseURL string) *PaystackService {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}

	return &PaystackService{
		Client:    &http.Client{Timeout: 15 * time.Second},
		SecretKey: secretKey,
		BaseURL:   baseURL,
	}
}

type InitializeRequest struct {
	Email     string            `json:"email"`
	Amount    int64             `json:"amount"` // kobo
	Reference string            `json:"reference,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type InitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeCharge starts a hosted checkout for the given email and amount.
func (s *PaystackService) InitializeCharge(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	var resp InitializeResponse
	if err := s.post(ctx, "/transaction/initialize", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack error: %s", resp.Message)
	}
	return &resp, nil
}

type VerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"` // success, failed, abandoned
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Channel   string `json:"channel"`
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}

// VerifyCharge fetches the outcome of a previously initialized charge.
func (s *PaystackService) VerifyCharge(ctx context.Context, reference string) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := s.get(ctx, "/transaction/verify/"+url.PathEscape(reference), &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack error: %s", resp.Message)
	}
	return &resp, nil
}

type Bank struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Longcode string `json:"longcode"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
	Type     string `json:"type"`
	Active   bool   `json:"active"`
}

type bankListResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    []Bank `json:"data"`
}

// ListBanks returns the Nigerian bank list.
func (s *PaystackService) ListBanks(ctx context.Context) ([]Bank, error) {
	var resp bankListResponse
	if err := s.get(ctx, "/bank?country=nigeria", &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack error: %s", resp.Message)
	}
	return resp.Data, nil
}

type AccountResolution struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankID        int    `json:"bank_id"`
}

type resolveResponse struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    AccountResolution `json:"data"`
}

// ResolveAccount looks up the account holder's name for a bank account.
func (s *PaystackService) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*AccountResolution, error) {
	path := fmt.Sprintf("/bank/resolve?account_number=%s&bank_code=%s",
		url.QueryEscape(accountNumber), url.QueryEscape(bankCode))

	var resp resolveResponse
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack error: %s", resp.Message)
	}
	return &resp.Data, nil
}

type RecipientRequest struct {
	Type          string `json:"type"` // nuban
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency,omitempty"`
}

type RecipientResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		RecipientCode string `json:"recipient_code"`
	} `json:"data"`
}

// CreateTransferRecipient registers a payout destination with the gateway.
func (s *PaystackService) CreateTransferRecipient(ctx context.Context, req RecipientRequest) (*RecipientResponse, error) {
	var resp RecipientResponse
	if err := s.post(ctx, "/transferrecipient", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack error: %s", resp.Message)
	}
	return &resp, nil
}

type TransferRequest struct {
	Source    string `json:"source"` // balance
	Amount    int64  `json:"amount"` // kobo
	Recipient string `json:"recipient"`
	Reason    string `json:"reason,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type TransferResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		TransferCode string `json:"transfer_code"`
		Status       string `json:"status"`
		Reference    string `json:"reference"`
	} `json:"data"`
}

// InitiateTransfer starts a payout to a previously created recipient.
func (s *PaystackService) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	var resp TransferResponse
	if err := s.post(ctx, "/transfer", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack error: %s", resp.Message)
	}
	return &resp, nil
}

func (s *PaystackService) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, out)
}

func (s *PaystackService) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.SecretKey)
	return s.do(req, out)
}

func (s *PaystackService) do(req *http.Request, out interface{}) error {
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}
	return nil
}
