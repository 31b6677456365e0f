package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepay/internal/models"
)

func cardRow(tid string, amount int64) models.Payment {
	return models.Payment{
		OrderNo:     "ORD1",
		Tid:         tid,
		Amount:      amount,
		Status:      models.PaymentStatusCompleted,
		PaymentType: models.PaymentTypeCard,
	}
}

func refundRow(tid string, amount int64) models.Payment {
	return models.Payment{
		OrderNo:     "ORD1",
		Tid:         tid,
		Amount:      -amount,
		Status:      models.PaymentStatusCompleted,
		PaymentType: models.PaymentTypeCardRefund,
	}
}

func TestVisiblePaymentsHidesRefundedOriginal(t *testing.T) {
	rows := []models.Payment{
		cardRow("T1", 10000),
		refundRow("T1", 10000),
	}

	visible := VisiblePayments(rows)
	require.Len(t, visible, 1)
	assert.Equal(t, models.PaymentTypeCardRefund, visible[0].PaymentType)
	assert.Equal(t, int64(-10000), visible[0].Amount)
}

func TestVisiblePaymentsKeepsUnrefundedRows(t *testing.T) {
	rows := []models.Payment{
		cardRow("T1", 10000),
		{OrderNo: "ORD1", Tid: "POINTS_1", Amount: 500, Status: models.PaymentStatusCompleted, PaymentType: models.PaymentTypePoint},
	}

	visible := VisiblePayments(rows)
	assert.Len(t, visible, 2)
}

func TestVisiblePaymentsDedupesByTidWithinType(t *testing.T) {
	// Redelivered callbacks can leave duplicate rows with the same tid.
	rows := []models.Payment{
		cardRow("T1", 10000),
		cardRow("T1", 10000),
	}

	visible := VisiblePayments(rows)
	assert.Len(t, visible, 1)
}

func TestVisiblePaymentsKeepsEmptyTidRows(t *testing.T) {
	rows := []models.Payment{
		{OrderNo: "ORD1", Tid: "", Amount: 100, PaymentType: models.PaymentTypePoint},
		{OrderNo: "ORD1", Tid: "", Amount: 200, PaymentType: models.PaymentTypePoint},
	}

	// Rows without a tid cannot be correlated, so both stay visible.
	visible := VisiblePayments(rows)
	assert.Len(t, visible, 2)
}

func TestVisiblePaymentsPointRefundPair(t *testing.T) {
	rows := []models.Payment{
		{OrderNo: "ORD1", Tid: "POINTS_1", Amount: 500, PaymentType: models.PaymentTypePoint},
		{OrderNo: "ORD1", Tid: "POINTS_1", Amount: -500, PaymentType: models.PaymentTypePointRefund},
		cardRow("T1", 9500),
	}

	visible := VisiblePayments(rows)
	require.Len(t, visible, 2)
	types := []string{visible[0].PaymentType, visible[1].PaymentType}
	assert.Contains(t, types, models.PaymentTypePointRefund)
	assert.Contains(t, types, models.PaymentTypeCard)
}
