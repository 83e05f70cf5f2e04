package payu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ゲートウェイが返す取引状態
type TransactionState string

const (
	StateApproved TransactionState = "APPROVED"
	StateDeclined TransactionState = "DECLINED"
	StateError    TransactionState = "ERROR"
)

// 即時決済のリクエスト。金額は最小通貨単位の整数。
type ChargeRequest struct {
	ReferenceCode string `json:"referenceCode"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Method        string `json:"method"`
	CardToken     string `json:"cardToken,omitempty"`
	BuyerEmail    string `json:"buyerEmail"`
	Description   string `json:"description,omitempty"`
}

type ChargeResponse struct {
	TransactionID string           `json:"transactionId"`
	State         TransactionState `json:"transactionState"`
	ReferenceCode string           `json:"referenceCode"`
	Message       string           `json:"responseMessage"`
}

// Chargerはusecaseが依存する約束。テストではモックする。
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResponse, error)
}

// 決済ゲートウェイへの同期HTTPクライアント。
// タイムアウトは固定。タイムアウト・接続失敗はエラーで返す（リトライはしない）。
type Client struct {
	baseURL    string
	apiKey     string
	merchantID string
	httpClient *http.Client
}

func NewClient(baseURL string, apiKey string, merchantID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		merchantID: merchantID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Charge(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	payload := struct {
		MerchantID string `json:"merchantId"`
		ChargeRequest
	}{
		MerchantID:    c.merchantID,
		ChargeRequest: req,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ChargeResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return ChargeResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	//拒否も200系で返ってくる。500系はゲートウェイ側の障害。
	if resp.StatusCode >= 500 {
		return ChargeResponse{}, fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	var out ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ChargeResponse{}, fmt.Errorf("gateway response: %w", err)
	}

	switch out.State {
	case StateApproved, StateDeclined, StateError:
	default:
		return ChargeResponse{}, fmt.Errorf("gateway state %q", out.State)
	}

	return out, nil
}
