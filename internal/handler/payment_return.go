package handler

import (
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storepay/internal/gateway"
	"storepay/internal/middleware"
	"storepay/internal/payments"
)

// PaymentReturnHandler is the endpoint payment windows post back to. It
// normalizes whatever the provider sent, reconciles it, and renders the
// relay page that reports the verdict to the opener window.
type PaymentReturnHandler struct {
	processor *payments.Processor
	deduper   middleware.CallbackDeduper
	logger    *zap.Logger
	appOrigin string
}

func NewPaymentReturnHandler(processor *payments.Processor, deduper middleware.CallbackDeduper, appOrigin string, logger *zap.Logger) *PaymentReturnHandler {
	return &PaymentReturnHandler{
		processor: processor,
		deduper:   deduper,
		logger:    logger,
		appOrigin: appOrigin,
	}
}

// Handle accepts both POST form bodies and GET query parameters; the two
// providers use both depending on the dialog path taken.
func (h *PaymentReturnHandler) Handle(c echo.Context) error {
	req := c.Request()
	if err := req.ParseForm(); err != nil {
		h.logger.Warn("payment return parse failed", zap.Error(err))
		return h.renderRelay(c, &payments.Outcome{
			Status:  payments.OutcomeError,
			Message: "invalid payment result",
		})
	}

	params := gateway.Flatten(req.Form)
	fields := gateway.Normalize(params)
	if !fields.Genuine() {
		// Not a gateway result: never reconcile, just report the error.
		h.logger.Warn("unrecognizable payment return", zap.Int("param_count", len(params)))
		return h.renderRelay(c, &payments.Outcome{
			Status:  payments.OutcomeError,
			Message: "invalid payment result",
		})
	}

	ctx := req.Context()
	var outcome *payments.Outcome
	if h.deduper != nil && fields.Tid != "" {
		if dup, err := h.deduper.Seen(ctx, fields.OrderNo+":"+fields.Tid); err == nil && dup {
			outcome = h.processor.CurrentOutcome(fields.OrderNo)
		}
	}
	if outcome == nil {
		outcome = h.processor.ProcessResult(ctx, fields)
	}

	return h.renderRelay(c, outcome)
}

const relayHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Payment Result</title>
    <style>
        body { font-family: sans-serif; background: #f2f2f2; margin: 0; padding: 20px; display: flex; justify-content: center; align-items: center; min-height: 100vh; }
        .box { background: #fff; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); padding: 40px; text-align: center; max-width: 400px; width: 100%; }
        h1 { color: #333; margin-bottom: 20px; }
        p { color: #666; margin-bottom: 10px; }
    </style>
</head>
<body>
    <div class="box">
        <h1>{{.Title}}</h1>
        {{if .OrderNo}}<p>Order: <span>{{.OrderNo}}</span></p>{{end}}
        <p>{{.Message}}</p>
        <p>This window will close automatically.</p>
    </div>
    <script>
    (function() {
        var delivered = false;
        var payload = {
            type: 'PAYMENT_COMPLETE',
            status: {{.Status}},
            message: {{.Message}},
            data: {
                orderNo: {{.OrderNo}},
                amount: {{.Amount}},
                tid: {{.Tid}}
            }
        };
        function deliver() {
            if (delivered) return;
            delivered = true;
            window.opener.postMessage(payload, {{.TargetOrigin}});
        }
        if (window.opener && !window.opener.closed) {
            deliver();
            setTimeout(function() { window.close(); }, 2000);
        } else {
            setTimeout(function() { window.location.href = {{.FallbackURL}}; }, 3000);
        }
    })();
    </script>
</body>
</html>`

var relayTmpl = template.Must(template.New("relay").Parse(relayHTML))

// renderRelay always answers 200 with the relay page; a reconciliation
// problem surfaces as a failed status in the payload, never as a broken
// window the user is stuck in.
func (h *PaymentReturnHandler) renderRelay(c echo.Context, outcome *payments.Outcome) error {
	title := "Payment failed"
	if outcome.Status == payments.OutcomeSuccess {
		title = "Payment complete"
	}

	data := map[string]interface{}{
		"Title":        title,
		"Status":       outcome.Status,
		"Message":      outcome.Message,
		"OrderNo":      outcome.OrderNo,
		"Amount":       outcome.Amount,
		"Tid":          outcome.Tid,
		"TargetOrigin": h.appOrigin,
		"FallbackURL":  h.appOrigin + "/order",
	}

	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return relayTmpl.Execute(c.Response().Writer, data)
}
