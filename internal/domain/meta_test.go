package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMetaTagsKind(t *testing.T) {
	b, err := EncodeMeta(&TipDetails{SenderID: 1, RecipientID: 2, PlatformFee: 30})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(b, &obj))
	assert.Equal(t, "tip", obj["kind"])
	assert.Equal(t, float64(30), obj["platform_fee"])
}

func TestEncodeMetaNil(t *testing.T) {
	b, err := EncodeMeta(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}

func TestDecodeMetaRoundTrip(t *testing.T) {
	in := &ExchangeDetails{
		Blocks:    10,
		INRAmount: 10000,
		Bank:      BankDetails{AccountName: "A Writer", UPIID: "writer@upi"},
	}

	b, err := EncodeMeta(in)
	require.NoError(t, err)

	out, err := DecodeMeta(b)
	require.NoError(t, err)
	require.IsType(t, &ExchangeDetails{}, out)
	assert.Equal(t, in, out.(*ExchangeDetails))
}

func TestDecodeMetaVariants(t *testing.T) {
	tests := []struct {
		name string
		in   TransactionMeta
	}{
		{"purchase", &PurchaseDetails{Gateway: "razorpay", GatewayOrderID: "order_1", INRPaid: 99}},
		{"unlock", &UnlockDetails{ChapterID: 7, AuthorID: 3, Price: 50, PlatformFee: 15}},
		{"payout", &PayoutDetails{Blocks: 10, INRAmount: 1000, Bank: BankDetails{AccountNumber: "123", IFSC: "HDFC0001"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := EncodeMeta(tt.in)
			require.NoError(t, err)
			out, err := DecodeMeta(b)
			require.NoError(t, err)
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestDecodeMetaUnknownKind(t *testing.T) {
	out, err := DecodeMeta([]byte(`{"kind":"mystery","x":1}`))
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestDecodeMetaEmpty(t *testing.T) {
	out, err := DecodeMeta(nil)
	assert.NoError(t, err)
	assert.Nil(t, out)

	out, err = DecodeMeta([]byte(`{}`))
	assert.NoError(t, err)
	assert.Nil(t, out)
}
