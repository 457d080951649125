package order

import (
	"testing"

	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr bool
	}{
		{name: "valid", order: Order{UserID: "user_1", ExternalSessionID: "cs_1", TotalAmount: 100}},
		{name: "free order", order: Order{UserID: "user_1", ExternalSessionID: "cs_1"}},
		{name: "missing user", order: Order{ExternalSessionID: "cs_1"}, wantErr: true},
		{name: "missing session", order: Order{UserID: "user_1"}, wantErr: true},
		{name: "negative amount", order: Order{UserID: "user_1", ExternalSessionID: "cs_1", TotalAmount: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, ierr.IsValidation(err))
		})
	}
}

func TestOrderItemValidate(t *testing.T) {
	item := OrderItem{OrderID: "ord_1", ProductID: "prod_1", Quantity: 1}
	require.NoError(t, item.Validate())

	item.Quantity = 0
	err := item.Validate()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	item = OrderItem{ProductID: "prod_1", Quantity: 1}
	assert.True(t, ierr.IsValidation(item.Validate()))
}
