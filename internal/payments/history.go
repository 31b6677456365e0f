package payments

import (
	"fmt"

	"storepay/internal/models"
)

// OrderHistory is one order with the payment rows worth showing.
type OrderHistory struct {
	Order    models.Order     `json:"order"`
	Payments []models.Payment `json:"payments"`
}

// History returns a user's orders with their visible payment rows,
// newest order first.
func (p *Processor) History(userID uint, limit, page int) ([]OrderHistory, int64, error) {
	orders, total, err := p.repos.Order.FindByUserID(userID, limit, page)
	if err != nil {
		return nil, 0, fmt.Errorf("order history lookup failed: %w", err)
	}

	orderNos := make([]string, 0, len(orders))
	for _, o := range orders {
		orderNos = append(orderNos, o.OrderNo)
	}
	rows, err := p.repos.Payment.FindByOrderNos(orderNos)
	if err != nil {
		return nil, 0, fmt.Errorf("payment history lookup failed: %w", err)
	}

	byOrder := make(map[string][]models.Payment)
	for _, row := range rows {
		byOrder[row.OrderNo] = append(byOrder[row.OrderNo], row)
	}

	history := make([]OrderHistory, 0, len(orders))
	for _, o := range orders {
		history = append(history, OrderHistory{
			Order:    o,
			Payments: VisiblePayments(byOrder[o.OrderNo]),
		})
	}
	return history, total, nil
}

// VisiblePayments filters an order's rows for display: an original
// CARD/POINT row is hidden once a matching refund with the same tid
// exists, and rows are deduplicated by tid within a type.
func VisiblePayments(rows []models.Payment) []models.Payment {
	refundedTids := make(map[string]bool)
	for _, row := range rows {
		if row.IsRefund() {
			refundedTids[row.Tid] = true
		}
	}

	seen := make(map[string]bool)
	visible := make([]models.Payment, 0, len(rows))
	for _, row := range rows {
		if !row.IsRefund() && refundedTids[row.Tid] {
			continue
		}
		key := row.PaymentType + "|" + row.Tid
		if row.Tid != "" && seen[key] {
			continue
		}
		seen[key] = true
		visible = append(visible, row)
	}
	return visible
}

// OrderDetail returns one order with all of its payment rows, unfiltered.
func (p *Processor) OrderDetail(orderNo string) (*OrderHistory, error) {
	order, err := p.repos.Order.FindByOrderNo(orderNo)
	if err != nil {
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}
	rows, err := p.repos.Payment.FindByOrderNo(orderNo)
	if err != nil {
		return nil, fmt.Errorf("payment lookup failed: %w", err)
	}
	return &OrderHistory{Order: *order, Payments: rows}, nil
}
