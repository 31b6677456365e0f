package gateway

import (
	"context"
	"fmt"
	"math/rand"
)

// Provider names.
const (
	ProviderInicis  = "inicis"
	ProviderNicepay = "nicepay"
	ModeAuto        = "auto"
)

// FormField is one hidden input of the payment window form. Order matters
// to some provider scripts, so fields are a slice, not a map.
type FormField struct {
	Name  string
	Value string
}

// PaymentForm is everything a checkout page needs to open a provider's
// payment window: the endpoint plus the signed hidden fields.
type PaymentForm struct {
	Provider  string
	ActionURL string
	Fields    []FormField
}

// FormRequest describes the order being paid.
type FormRequest struct {
	OrderNo    string
	Amount     int64
	GoodName   string
	BuyerName  string
	BuyerTel   string
	BuyerEmail string
	ReturnURL  string
	CloseURL   string
}

// ApproveResult is the outcome of the server-side approval leg.
type ApproveResult struct {
	Approved    bool
	Tid         string
	Amount      int64
	ResultCode  string
	ResultMsg   string
	CardName    string
	CardCode    string
	ApplNum     string
	RequestURL  string
	RawRequest  string
	RawResponse string
}

// RefundRequest asks a provider to reverse a settled transaction.
type RefundRequest struct {
	OrderNo  string
	Tid      string
	Amount   int64
	Reason   string
	ClientIP string
}

// RefundResult is the provider's answer to a refund call.
type RefundResult struct {
	Refunded    bool
	ResultCode  string
	ResultMsg   string
	RequestURL  string
	RawRequest  string
	RawResponse string
}

// Gateway is the capability a payment provider must offer. Each provider
// differs in field naming, hash recipes and endpoints; callers never
// branch on the provider name.
type Gateway interface {
	Name() string
	BuildPaymentForm(ctx context.Context, req *FormRequest) (*PaymentForm, error)
	Approve(ctx context.Context, cb *CallbackFields) (*ApproveResult, error)
	Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error)
}

// Selector picks the gateway for a new order and resolves gateways by
// name for callbacks and refunds.
type Selector struct {
	mode     string
	byName   map[string]Gateway
	gateways []Gateway
}

func NewSelector(mode string, gateways ...Gateway) *Selector {
	byName := make(map[string]Gateway, len(gateways))
	for _, gw := range gateways {
		byName[gw.Name()] = gw
	}
	return &Selector{mode: mode, byName: byName, gateways: gateways}
}

// Pick returns the gateway for a new order. In "auto" mode the choice is
// random per order.
func (s *Selector) Pick() Gateway {
	if s.mode == ModeAuto || s.byName[s.mode] == nil {
		return s.gateways[rand.Intn(len(s.gateways))]
	}
	return s.byName[s.mode]
}

// ByName resolves a gateway by provider name.
func (s *Selector) ByName(name string) (Gateway, error) {
	gw, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown payment provider: %s", name)
	}
	return gw, nil
}
