package gateway

import (
	"net/url"
	"strconv"
	"strings"
)

// CallbackFields is the normalized view of whatever a payment window
// posted back. Raw always keeps every original parameter so nothing is
// lost for auditing.
type CallbackFields struct {
	OrderNo      string
	ResultCode   string
	ResultMsg    string
	Tid          string
	Amount       int64
	AuthToken    string
	AuthURL      string
	NetCancelURL string
	Raw          map[string]string
}

// Flatten collapses posted form/query values to a flat map. The first
// value wins when a key is repeated.
func Flatten(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for key, vals := range values {
		if _, ok := params[key]; ok {
			continue
		}
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	return params
}

// fieldSource is one step in the extraction chain: a label plus the
// aliases it tries, in priority order. Steps are independent so each
// provider's naming can be tested on its own.
type fieldSource struct {
	name    string
	aliases []string
}

var (
	orderNoSource    = fieldSource{"orderNo", []string{"orderNumber", "orderNo", "oid", "P_OID", "MOID", "Moid", "moid"}}
	resultCodeSource = fieldSource{"resultCode", []string{"resultCode", "P_STATUS", "ResultCode", "AuthResultCode"}}
	resultMsgSource  = fieldSource{"resultMsg", []string{"resultMsg", "P_RMESG1", "ResultMsg", "AuthResultMsg"}}
	tidSource        = fieldSource{"tid", []string{"tid", "P_TID", "TID", "TxTid", "transactionId"}}
	amountSource     = fieldSource{"amount", []string{"amount", "price", "P_AMT", "Amt", "TotPrice"}}
)

func (s fieldSource) extract(params map[string]string) string {
	for _, alias := range s.aliases {
		if v := strings.TrimSpace(params[alias]); v != "" {
			return v
		}
	}
	return ""
}

// Normalize maps raw gateway parameters onto CallbackFields using the
// alias chains of both providers.
func Normalize(params map[string]string) *CallbackFields {
	f := &CallbackFields{
		OrderNo:      orderNoSource.extract(params),
		ResultCode:   resultCodeSource.extract(params),
		ResultMsg:    resultMsgSource.extract(params),
		Tid:          tidSource.extract(params),
		AuthToken:    firstOf(params, "authToken", "AuthToken"),
		AuthURL:      firstOf(params, "authUrl", "AuthUrl", "NextAppURL"),
		NetCancelURL: firstOf(params, "netCancelUrl", "NetCancelURL"),
		Raw:          params,
	}
	if raw := amountSource.extract(params); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.Amount = n
		}
	}
	return f
}

func firstOf(params map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(params[key]); v != "" {
			return v
		}
	}
	return ""
}

// Genuine reports whether the post looks like a real gateway result: it
// must carry an order number plus either a result code or a tid. Anything
// else is treated as an error page and never reaches reconciliation.
func (f *CallbackFields) Genuine() bool {
	if f.OrderNo == "" {
		return false
	}
	return f.ResultCode != "" || f.Tid != ""
}

// Succeeded reports whether the result code is a success code for the
// provider that produced it.
func (f *CallbackFields) Succeeded(provider string) bool {
	switch provider {
	case ProviderNicepay:
		return nicepaySuccessCodes[f.ResultCode]
	default:
		return f.ResultCode == "0000"
	}
}

var nicepaySuccessCodes = map[string]bool{
	"0000": true,
	"2001": true,
	"2211": true,
}
