package service

import (
	"context"
	"testing"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidOrderWithItem(t *testing.T, h *harness) domain.TransactionItem {
	t.Helper()

	trx := h.seedPending("TRX-ITEM", 75000, regularItem(5, 75000))
	_, err := h.payments.HandleNotification(context.Background(), notification("TRX-ITEM", "settlement", ""))
	require.NoError(t, err)
	return trx.Items[0]
}

func TestItemCreditedOnce(t *testing.T) {
	h := newHarness(t)
	item := paidOrderWithItem(t, h)
	ctx := context.Background()

	_, err := h.items.UpdateItemStatus(ctx, 5, item.ID, "processing")
	require.NoError(t, err)

	resp, err := h.items.UpdateItemStatus(ctx, 5, item.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, "processing", resp.PreviousStatus)
	assert.True(t, resp.BalanceCredited)
	assert.Equal(t, "75000.00", resp.BalanceChange)

	resp, err = h.items.UpdateItemStatus(ctx, 5, item.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, "0.00", resp.BalanceChange)

	assert.True(t, decimal.NewFromInt(75000).Equal(h.store.balance(5)))

	resp, err = h.items.UpdateItemStatus(ctx, 5, item.ID, "cancel")
	require.NoError(t, err)
	assert.False(t, resp.BalanceCredited)
	assert.Equal(t, "-75000.00", resp.BalanceChange)

	_, err = h.items.UpdateItemStatus(ctx, 5, item.ID, "cancel")
	require.NoError(t, err)

	assert.True(t, decimal.Zero.Equal(h.store.balance(5)))

	ledger := h.store.ledgerEntries()
	require.Len(t, ledger, 2)
	assert.Equal(t, domain.BalanceCredit, ledger[0].Type)
	assert.Equal(t, domain.BalanceDebit, ledger[1].Type)
	assert.True(t, ledger[0].Amount.Equal(ledger[1].Amount))
}

func TestItemStatusErrors(t *testing.T) {
	type TestCase struct {
		Name        string
		StoreID     int64
		ItemID      func(item domain.TransactionItem) int64
		Steps       []string
		Status      string
		ExpectedErr error
	}

	own := func(item domain.TransactionItem) int64 { return item.ID }

	testCases := []TestCase{
		{Name: "unknown item", StoreID: 5, ItemID: func(domain.TransactionItem) int64 { return 999 }, Status: "processing", ExpectedErr: errs.ErrNotFound},
		{Name: "other store", StoreID: 6, ItemID: own, Status: "processing", ExpectedErr: errs.ErrForbidden},
		{Name: "skip processing", StoreID: 5, ItemID: own, Status: "completed", ExpectedErr: errs.ErrInvalidItemTransition},
		{Name: "reopen cancelled", StoreID: 5, ItemID: own, Steps: []string{"cancel"}, Status: "pending", ExpectedErr: errs.ErrInvalidItemTransition},
		{Name: "back to pending", StoreID: 5, ItemID: own, Steps: []string{"processing"}, Status: "pending", ExpectedErr: errs.ErrInvalidItemTransition},
		{Name: "unknown status", StoreID: 5, ItemID: own, Status: "shipped", ExpectedErr: errs.ErrClient},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			h := newHarness(t)
			item := paidOrderWithItem(t, h)
			ctx := context.Background()

			for _, step := range tc.Steps {
				_, err := h.items.UpdateItemStatus(ctx, 5, item.ID, step)
				require.NoError(t, err)
			}

			_, err := h.items.UpdateItemStatus(ctx, tc.StoreID, tc.ItemID(item), tc.Status)
			assert.ErrorIs(t, err, tc.ExpectedErr)
			assert.True(t, decimal.Zero.Equal(h.store.balance(5)))
		})
	}
}

func TestItemCompletionRequiresPaidOrder(t *testing.T) {
	h := newHarness(t)
	trx := h.seedPending("TRX-UNPAID", 75000, regularItem(5, 75000))
	item := trx.Items[0]
	ctx := context.Background()

	_, err := h.items.UpdateItemStatus(ctx, 5, item.ID, "processing")
	require.NoError(t, err)

	_, err = h.items.UpdateItemStatus(ctx, 5, item.ID, "completed")
	assert.ErrorIs(t, err, errs.ErrNotPaid)
	assert.Equal(t, domain.ItemStatusProcessing, h.store.item(item.ID).ItemStatus)

	resp, err := h.items.UpdateItemStatus(ctx, 5, item.ID, "cancel")
	require.NoError(t, err)
	assert.Equal(t, "0.00", resp.BalanceChange)
	assert.Empty(t, h.store.ledgerEntries())
}
