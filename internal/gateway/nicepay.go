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

// NicepayGateway drives the alternate card payment window.
type NicepayGateway struct {
	cfg    config.NicepayConfig
	client *httpclient.Client
}

func NewNicepayGateway(cfg config.NicepayConfig) *NicepayGateway {
	return &NicepayGateway{
		cfg:    cfg,
		client: httpclient.New().WithTimeout(30 * time.Second),
	}
}

func (g *NicepayGateway) Name() string {
	return ProviderNicepay
}

// BuildPaymentForm produces the signed request form. SignData covers
// EdiDate + MID + Amt, so those three must land in the form unchanged.
func (g *NicepayGateway) BuildPaymentForm(ctx context.Context, req *FormRequest) (*PaymentForm, error) {
	if req.OrderNo == "" || req.Amount <= 0 {
		return nil, fmt.Errorf("nicepay: order number and positive amount required")
	}

	amt := strconv.FormatInt(req.Amount, 10)
	ediDate := utils.CompactTimestamp(time.Now())

	fields := []FormField{
		{"PayMethod", "CARD"},
		{"MID", g.cfg.MerchantID},
		{"Moid", req.OrderNo},
		{"Amt", amt},
		{"EdiDate", ediDate},
		{"SignData", SignData(ediDate, g.cfg.MerchantID, amt, g.cfg.MerchantKey)},
		{"GoodsName", req.GoodName},
		{"BuyerName", req.BuyerName},
		{"BuyerTel", req.BuyerTel},
		{"BuyerEmail", req.BuyerEmail},
		{"ReturnURL", req.ReturnURL},
		{"CharSet", "utf-8"},
	}

	return &PaymentForm{
		Provider:  ProviderNicepay,
		ActionURL: g.cfg.PayURL,
		Fields:    fields,
	}, nil
}

// Approve finishes an authenticated transaction. The window hands back
// Moid, AuthToken and TxTid; all three plus a clean auth result code are
// required before the approval call is attempted.
func (g *NicepayGateway) Approve(ctx context.Context, cb *CallbackFields) (*ApproveResult, error) {
	if cb.OrderNo == "" || cb.AuthToken == "" || cb.Tid == "" {
		return nil, fmt.Errorf("nicepay approve: Moid, AuthToken and TxTid required")
	}
	if cb.ResultCode != "0000" {
		return &ApproveResult{
			Approved:   false,
			ResultCode: cb.ResultCode,
			ResultMsg:  cb.ResultMsg,
			Tid:        cb.Tid,
		}, nil
	}

	approveURL := cb.AuthURL
	if approveURL == "" {
		return nil, fmt.Errorf("nicepay approve: NextAppURL missing")
	}

	amt := strconv.FormatInt(cb.Amount, 10)
	ediDate := utils.CompactTimestamp(time.Now())
	form := map[string]string{
		"TID":       cb.Tid,
		"AuthToken": cb.AuthToken,
		"MID":       g.cfg.MerchantID,
		"Amt":       amt,
		"EdiDate":   ediDate,
		"SignData":  sha256Hex(cb.AuthToken + g.cfg.MerchantID + amt + ediDate + g.cfg.MerchantKey),
		"CharSet":   "utf-8",
		"EdiType":   "JSON",
	}

	reqJSON, _ := json.Marshal(form)
	resp, err := g.client.PostForm(approveURL, form)
	if err != nil {
		// The auth hold survives a dead approval call; release it so the
		// card is not blocked until the hold expires on its own.
		g.netCancel(cb, amt)
		return nil, fmt.Errorf("nicepay approve failed: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("nicepay approve parse error: %w", err)
	}

	out := &ApproveResult{
		ResultCode:  stringField(result, "ResultCode"),
		ResultMsg:   stringField(result, "ResultMsg"),
		Tid:         stringField(result, "TID"),
		Amount:      intField(result, "Amt"),
		CardName:    stringField(result, "CardName"),
		CardCode:    stringField(result, "CardCode"),
		ApplNum:     stringField(result, "AuthCd"),
		RequestURL:  approveURL,
		RawRequest:  string(reqJSON),
		RawResponse: string(resp),
	}
	if out.Tid == "" {
		out.Tid = cb.Tid
	}
	out.Approved = nicepaySuccessCodes[out.ResultCode]
	return out, nil
}

// netCancel asks the provider to drop an unapproved auth hold. Best
// effort: the hold also times out provider-side.
func (g *NicepayGateway) netCancel(cb *CallbackFields, amt string) {
	if cb.NetCancelURL == "" {
		return
	}
	ediDate := utils.CompactTimestamp(time.Now())
	_, _ = g.client.PostForm(cb.NetCancelURL, map[string]string{
		"TID":       cb.Tid,
		"AuthToken": cb.AuthToken,
		"MID":       g.cfg.MerchantID,
		"Amt":       amt,
		"EdiDate":   ediDate,
		"SignData":  sha256Hex(cb.AuthToken + g.cfg.MerchantID + amt + ediDate + g.cfg.MerchantKey),
		"NetCancel": "1",
		"CharSet":   "utf-8",
		"EdiType":   "JSON",
	})
}

// Refund cancels a settled transaction.
func (g *NicepayGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error) {
	if req.Tid == "" {
		return nil, fmt.Errorf("nicepay refund: tid required")
	}

	amt := strconv.FormatInt(req.Amount, 10)
	ediDate := utils.CompactTimestamp(time.Now())
	form := map[string]string{
		"MID":               g.cfg.MerchantID,
		"TID":               req.Tid,
		"Moid":              req.OrderNo,
		"CancelAmt":         amt,
		"CancelMsg":         req.Reason,
		"PartialCancelCode": "0",
		"EdiDate":           ediDate,
		"SignData":          sha256Hex(g.cfg.MerchantID + amt + ediDate + g.cfg.MerchantKey),
		"CharSet":           "utf-8",
		"EdiType":           "JSON",
	}

	reqJSON, _ := json.Marshal(form)
	resp, err := g.client.PostForm(g.cfg.CancelURL, form)
	if err != nil {
		return nil, fmt.Errorf("nicepay refund failed: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("nicepay refund parse error: %w", err)
	}

	code := stringField(result, "ResultCode")
	return &RefundResult{
		Refunded:    code == "2001",
		ResultCode:  code,
		ResultMsg:   stringField(result, "ResultMsg"),
		RequestURL:  g.cfg.CancelURL,
		RawRequest:  string(reqJSON),
		RawResponse: string(resp),
	}, nil
}
