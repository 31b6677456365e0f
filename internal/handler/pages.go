package handler

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storepay/internal/gateway"
	"storepay/internal/pkg/utils"
	"storepay/internal/repository"
)

// PageRepos bundles repositories for the storefront pages.
type PageRepos struct {
	User  *repository.UserRepository
	Order *repository.OrderRepository
	Log   *repository.LogRepository
}

// PageHandler renders the checkout pages: the order page with its
// awaiting-result state machine, the signed payment window form, and the
// terminal landing pages.
type PageHandler struct {
	repos     *PageRepos
	selector  *gateway.Selector
	logger    *zap.Logger
	baseURL   string
	timeoutMs int64
}

func NewPageHandler(repos *PageRepos, selector *gateway.Selector, baseURL string, awaitTimeoutMs int64, logger *zap.Logger) *PageHandler {
	if awaitTimeoutMs <= 0 {
		awaitTimeoutMs = 5 * 60 * 1000
	}
	return &PageHandler{
		repos:     repos,
		selector:  selector,
		logger:    logger,
		baseURL:   baseURL,
		timeoutMs: awaitTimeoutMs,
	}
}

// Checkout handles GET /order. The embedded script owns the payment
// attempt lifecycle: one attempt at a time, result only via a
// PAYMENT_COMPLETE message from this site's origin, and a failure path
// for both a closed window and a missing result.
func (h *PageHandler) Checkout(c echo.Context) error {
	return h.render(c, checkoutTmpl, map[string]interface{}{
		"AppOrigin": h.baseURL,
		"TimeoutMs": h.timeoutMs,
	})
}

// PaymentPopup handles GET /order/payment-popup. It rebuilds the signed
// form server-side from the stored order so the window never trusts
// amounts from the query string.
func (h *PageHandler) PaymentPopup(c echo.Context) error {
	orderNo := c.QueryParam("orderNo")
	if orderNo == "" {
		return c.Redirect(http.StatusFound, "/order/failed?message=missing+order+number")
	}

	order, err := h.repos.Order.FindByOrderNo(orderNo)
	if err != nil {
		return c.Redirect(http.StatusFound, "/order/failed?message=order+not+found")
	}
	if order.IsTerminal() || order.CardAmount <= 0 {
		return c.Redirect(http.StatusFound, "/order/failed?message=order+is+not+payable")
	}

	user, err := h.repos.User.FindByID(order.UserID)
	if err != nil {
		return c.Redirect(http.StatusFound, "/order/failed?message=user+not+found")
	}

	gw, err := h.selector.ByName(order.Provider)
	if err != nil {
		h.logger.Error("gateway resolve failed", zap.String("provider", order.Provider), zap.Error(err))
		return c.Redirect(http.StatusFound, "/order/failed?message=payment+provider+unavailable")
	}

	form, err := gw.BuildPaymentForm(c.Request().Context(), &gateway.FormRequest{
		OrderNo:    order.OrderNo,
		Amount:     order.CardAmount,
		GoodName:   "Order " + order.OrderNo,
		BuyerName:  user.Name,
		BuyerTel:   user.PhoneNumber,
		BuyerEmail: user.Email,
		ReturnURL:  h.baseURL + "/order/payment-result",
		CloseURL:   h.baseURL + "/order",
	})
	if err != nil {
		h.logger.Error("payment form build failed", zap.String("order_no", orderNo), zap.Error(err))
		return c.Redirect(http.StatusFound, "/order/failed?message=could+not+start+payment")
	}

	// Audit trail for the request we are about to fire; never blocks.
	clientIP := c.RealIP()
	go func() {
		fieldMap := make(map[string]string, len(form.Fields))
		for _, f := range form.Fields {
			fieldMap[f.Name] = f.Value
		}
		if err := h.repos.Log.CreatePaymentLog(order.OrderNo, "PAYMENT_REQUEST_POPUP", form.ActionURL, fieldMap, clientIP); err != nil {
			h.logger.Warn("payment request log failed", zap.String("order_no", order.OrderNo), zap.Error(err))
		}
	}()

	return h.render(c, popupTmpl, map[string]interface{}{
		"ActionURL": form.ActionURL,
		"Fields":    form.Fields,
		"Provider":  form.Provider,
	})
}

// Success handles GET /order/success.
func (h *PageHandler) Success(c echo.Context) error {
	amount := c.QueryParam("amount")
	if n, err := strconv.ParseInt(amount, 10, 64); err == nil {
		amount = utils.FormatNumber(n)
	}
	return h.render(c, resultTmpl, map[string]interface{}{
		"Title":   "Payment complete",
		"OrderNo": c.QueryParam("orderNo"),
		"Amount":  amount,
		"Message": c.QueryParam("message"),
	})
}

// Failed handles GET /order/failed.
func (h *PageHandler) Failed(c echo.Context) error {
	msg := c.QueryParam("message")
	if msg == "" {
		msg = "The payment was not completed."
	}
	return h.render(c, resultTmpl, map[string]interface{}{
		"Title":   "Payment failed",
		"Message": msg,
	})
}

func (h *PageHandler) render(c echo.Context, tmpl *template.Template, data interface{}) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return tmpl.Execute(c.Response().Writer, data)
}

var checkoutTmpl = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Checkout</title>
    <style>
        body { font-family: sans-serif; background: #f5f5f5; margin: 0; padding: 40px 20px; }
        .card { background: #fff; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); padding: 30px; max-width: 480px; margin: 0 auto; }
        label { display: block; margin: 12px 0 4px; color: #444; }
        input { width: 100%; padding: 8px; border: 1px solid #ccc; border-radius: 4px; }
        button { margin-top: 20px; width: 100%; padding: 12px; background: #2563eb; color: #fff; border: 0; border-radius: 4px; font-size: 16px; }
        button:disabled { background: #9ca3af; }
        #status { margin-top: 16px; color: #666; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Checkout</h1>
        <label for="amount">Order amount</label>
        <input id="amount" type="number" min="1" value="10000">
        <label for="points">Points to use</label>
        <input id="points" type="number" min="0" value="0">
        <button id="payBtn">Pay</button>
        <div id="status"></div>
    </div>
    <script>
    (function() {
        var APP_ORIGIN = {{.AppOrigin}};
        var AWAIT_TIMEOUT_MS = {{.TimeoutMs}};

        var state = 'idle';
        var popup = null;
        var pollTimer = null;
        var deadlineTimer = null;
        var settled = false;

        var btn = document.getElementById('payBtn');
        var statusEl = document.getElementById('status');

        function setStatus(text) { statusEl.textContent = text; }

        function cleanup() {
            if (pollTimer) { clearInterval(pollTimer); pollTimer = null; }
            if (deadlineTimer) { clearTimeout(deadlineTimer); deadlineTimer = null; }
            if (popup && !popup.closed) { popup.close(); }
            popup = null;
        }

        // Terminal transition. First caller wins; late or duplicate
        // messages are ignored.
        function finish(status, message, data) {
            if (settled) return;
            settled = true;
            cleanup();
            state = 'done';
            data = data || {};
            if (status === 'success') {
                window.location.href = '/order/success?orderNo=' + encodeURIComponent(data.orderNo || '')
                    + '&amount=' + encodeURIComponent(data.amount || '')
                    + '&message=' + encodeURIComponent(message || '');
            } else {
                window.location.href = '/order/failed?message=' + encodeURIComponent(message || 'Payment failed');
            }
        }

        window.addEventListener('message', function(event) {
            if (event.origin !== APP_ORIGIN) return;
            if (!event.data || event.data.type !== 'PAYMENT_COMPLETE') return;
            if (state !== 'awaiting') return;
            finish(event.data.status, event.data.message, event.data.data);
        });

        function startAwaiting(openedPopup) {
            state = 'awaiting';
            popup = openedPopup;
            setStatus('Waiting for the payment window...');
            pollTimer = setInterval(function() {
                if (popup && popup.closed) {
                    finish('failed', 'The payment window was closed before a result arrived.');
                }
            }, 500);
            deadlineTimer = setTimeout(function() {
                finish('failed', 'Timed out waiting for the payment result.');
            }, AWAIT_TIMEOUT_MS);
        }

        btn.addEventListener('click', function() {
            if (state !== 'idle') return;
            state = 'submitting';
            btn.disabled = true;
            setStatus('Creating order...');

            var body = {
                totalAmount: parseInt(document.getElementById('amount').value, 10) || 0,
                pointsUsed: parseInt(document.getElementById('points').value, 10) || 0
            };

            fetch('/api/payment/create-order', {
                method: 'POST',
                headers: {
                    'Content-Type': 'application/json',
                    'Authorization': 'Bearer ' + (localStorage.getItem('token') || '')
                },
                body: JSON.stringify(body)
            }).then(function(resp) { return resp.json(); }).then(function(payload) {
                if (!payload.status) {
                    state = 'idle';
                    btn.disabled = false;
                    setStatus(payload.msg || 'Order creation failed');
                    return;
                }
                var order = payload.obj.order;
                if (order.status === 'COMPLETED') {
                    // Fully covered by points, no payment window needed.
                    finish('success', 'Paid with points', { orderNo: order.orderNo, amount: order.totalAmount });
                    return;
                }
                var opened = window.open(payload.obj.popupUrl, 'paymentPopup', 'width=720,height=700');
                if (!opened) {
                    state = 'idle';
                    btn.disabled = false;
                    setStatus('Please allow popups and try again.');
                    return;
                }
                startAwaiting(opened);
            }).catch(function() {
                state = 'idle';
                btn.disabled = false;
                setStatus('Order creation failed');
            });
        });
    })();
    </script>
</body>
</html>`))

var popupTmpl = template.Must(template.New("popup").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Payment</title>
    <style>
        body { font-family: sans-serif; background: #f9fafb; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; }
        .box { text-align: center; color: #555; }
    </style>
</head>
<body>
    <div class="box">
        <h2>Opening payment window...</h2>
        <p>If nothing happens, please disable your popup blocker.</p>
    </div>
    <form id="payForm" method="POST" action="{{.ActionURL}}" accept-charset="UTF-8" style="display:none">
        {{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">
        {{end}}
    </form>
    <script>
        document.getElementById('payForm').submit();
    </script>
</body>
</html>`))

var resultTmpl = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: sans-serif; background: #f2f2f2; margin: 0; padding: 20px; display: flex; justify-content: center; align-items: center; min-height: 100vh; }
        .box { background: #fff; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); padding: 40px; text-align: center; max-width: 400px; width: 100%; }
        h1 { color: #333; margin-bottom: 20px; }
        p { color: #666; margin-bottom: 10px; }
        a { color: #2563eb; }
    </style>
</head>
<body>
    <div class="box">
        <h1>{{.Title}}</h1>
        {{if .OrderNo}}<p>Order: {{.OrderNo}}</p>{{end}}
        {{if .Amount}}<p>Amount: {{.Amount}}</p>{{end}}
        {{if .Message}}<p>{{.Message}}</p>{{end}}
        <p><a href="/order">Back to checkout</a></p>
    </div>
</body>
</html>`))
