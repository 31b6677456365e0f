package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"storepay/internal/config"
	"storepay/internal/pkg/httpclient"
	"storepay/internal/pkg/utils"
)

// InicisGateway drives the standard card payment window.
type InicisGateway struct {
	cfg    config.InicisConfig
	client *httpclient.Client
}

func NewInicisGateway(cfg config.InicisConfig) *InicisGateway {
	return &InicisGateway{
		cfg:    cfg,
		client: httpclient.New().WithTimeout(30 * time.Second),
	}
}

func (g *InicisGateway) Name() string {
	return ProviderInicis
}

// BuildPaymentForm produces the signed hidden-field form the payment
// window script submits. The field order matches what the window script
// expects; signature and verification must be computed over the exact
// oid/price/timestamp strings placed in the form.
func (g *InicisGateway) BuildPaymentForm(ctx context.Context, req *FormRequest) (*PaymentForm, error) {
	if req.OrderNo == "" || req.Amount <= 0 {
		return nil, fmt.Errorf("inicis: order number and positive amount required")
	}

	price := strconv.FormatInt(req.Amount, 10)
	timestamp := utils.MillisString()

	fields := []FormField{
		{"version", "1.0"},
		{"mid", g.cfg.MerchantID},
		{"oid", req.OrderNo},
		{"price", price},
		{"timestamp", timestamp},
		{"use_chkfake", "Y"},
		{"signature", RequestSignature(req.OrderNo, price, timestamp)},
		{"verification", RequestVerification(req.OrderNo, price, g.cfg.SignKey, timestamp)},
		{"mKey", MerchantKey(g.cfg.MerchantID, g.cfg.SignKey)},
		{"currency", "WON"},
		{"goodname", req.GoodName},
		{"buyername", req.BuyerName},
		{"buyertel", req.BuyerTel},
		{"buyeremail", req.BuyerEmail},
		{"returnUrl", req.ReturnURL},
		{"closeUrl", req.CloseURL},
		{"acceptmethod", "below1000"},
		{"gopaymethod", "Card"},
	}

	return &PaymentForm{
		Provider:  ProviderInicis,
		ActionURL: g.cfg.PayURL,
		Fields:    fields,
	}, nil
}

// Approve exchanges the authToken from the return post for a settled
// transaction. The window only proves the user finished the dialog; money
// moves on this call.
func (g *InicisGateway) Approve(ctx context.Context, cb *CallbackFields) (*ApproveResult, error) {
	if cb.AuthURL == "" || cb.AuthToken == "" {
		return nil, fmt.Errorf("inicis approve: authUrl and authToken required")
	}

	timestamp := utils.MillisString()
	form := map[string]string{
		"mid":          g.cfg.MerchantID,
		"authToken":    cb.AuthToken,
		"timestamp":    timestamp,
		"signature":    AuthSignature(cb.AuthToken, timestamp),
		"verification": AuthVerification(cb.AuthToken, g.cfg.SignKey, timestamp),
		"charset":      "UTF-8",
		"format":       "JSON",
	}

	reqJSON, _ := json.Marshal(form)
	resp, err := g.client.PostForm(cb.AuthURL, form)
	if err != nil {
		return nil, fmt.Errorf("inicis approve failed: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("inicis approve parse error: %w", err)
	}

	out := &ApproveResult{
		ResultCode:  stringField(result, "resultCode"),
		ResultMsg:   stringField(result, "resultMsg"),
		Tid:         stringField(result, "tid"),
		Amount:      intField(result, "TotPrice"),
		CardName:    stringField(result, "P_FN_NM"),
		CardCode:    stringField(result, "CARD_Code"),
		ApplNum:     stringField(result, "applNum"),
		RequestURL:  cb.AuthURL,
		RawRequest:  string(reqJSON),
		RawResponse: string(resp),
	}
	out.Approved = out.ResultCode == "0000"
	return out, nil
}

// Refund reverses a settled transaction through the merchant API.
func (g *InicisGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error) {
	if req.Tid == "" {
		return nil, fmt.Errorf("inicis refund: tid required")
	}

	timestamp := utils.CompactTimestamp(time.Now())
	data := map[string]string{
		"tid": req.Tid,
		"msg": req.Reason,
	}
	dataJSON, _ := json.Marshal(data)

	body := map[string]interface{}{
		"mid":       g.cfg.MerchantID,
		"type":      "refund",
		"paymethod": "Card",
		"timestamp": timestamp,
		"clientIp":  req.ClientIP,
		"hashData":  RefundHash(g.cfg.APIKey, g.cfg.MerchantID, "refund", timestamp, string(dataJSON)),
		"data":      data,
	}

	reqJSON, _ := json.Marshal(body)
	resp, err := g.client.Post(g.cfg.RefundURL, body)
	if err != nil {
		return nil, fmt.Errorf("inicis refund failed: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("inicis refund parse error: %w", err)
	}

	code := stringField(result, "resultCode")
	return &RefundResult{
		Refunded:    code == "00",
		ResultCode:  code,
		ResultMsg:   stringField(result, "resultMsg"),
		RequestURL:  g.cfg.RefundURL,
		RawRequest:  string(reqJSON),
		RawResponse: string(resp),
	}, nil
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func intField(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}
