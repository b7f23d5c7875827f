package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var payoutTerms = WithdrawalTerms{MinCoins: 3000, BlockCoins: 300, BlockINR: 100}
var exchangeTerms = WithdrawalTerms{MinCoins: 20000, BlockCoins: 2000, BlockINR: 1000}

func TestValidateWithdrawalAmount(t *testing.T) {
	tests := []struct {
		name  string
		coins int64
		terms WithdrawalTerms
		want  error
	}{
		{"payout at minimum", 3000, payoutTerms, nil},
		{"payout below minimum", 2999, payoutTerms, ErrBelowMinimum},
		{"payout not block aligned", 3100, payoutTerms, ErrNotDivisible},
		{"payout many blocks", 9000, payoutTerms, nil},
		{"exchange at minimum", 20000, exchangeTerms, nil},
		{"exchange below minimum", 19999, exchangeTerms, ErrBelowMinimum},
		{"exchange not block aligned", 21000, exchangeTerms, ErrNotDivisible},
		{"exchange two extra blocks", 24000, exchangeTerms, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWithdrawalAmount(tt.coins, tt.terms)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWithdrawalTermsINRFor(t *testing.T) {
	assert.Equal(t, 1000.0, payoutTerms.INRFor(3000))
	assert.Equal(t, 100.0, payoutTerms.INRFor(300))
	assert.Equal(t, 10000.0, exchangeTerms.INRFor(20000))
	assert.Equal(t, 12000.0, exchangeTerms.INRFor(24000))
}

func TestValidateTipAmount(t *testing.T) {
	assert.NoError(t, validateTipAmount(10, 10, 10000))
	assert.NoError(t, validateTipAmount(10000, 10, 10000))
	assert.ErrorIs(t, validateTipAmount(9, 10, 10000), ErrAmountOutOfRange)
	assert.ErrorIs(t, validateTipAmount(10001, 10, 10000), ErrAmountOutOfRange)
	assert.ErrorIs(t, validateTipAmount(-50, 10, 10000), ErrAmountOutOfRange)
}
