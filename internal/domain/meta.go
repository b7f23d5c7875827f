package domain

import (
	"encoding/json"
	"time"
)

// TransactionMeta is the typed payload a ledger entry may carry. Each
// transaction type has its own variant; the JSON encoding is tagged with a
// "kind" field so rows stay self-describing.
type TransactionMeta interface {
	metaKind() string
}

const (
	metaKindPurchase = "purchase"
	metaKindTip      = "tip"
	metaKindUnlock   = "unlock"
	metaKindPayout   = "payout"
	metaKindExchange = "exchange"
)

// PurchaseDetails records a gateway-confirmed coin purchase.
type PurchaseDetails struct {
	Gateway        string  `json:"gateway,omitempty"`
	GatewayOrderID string  `json:"gateway_order_id"`
	INRPaid        float64 `json:"inr_paid"`
}

func (PurchaseDetails) metaKind() string { return metaKindPurchase }

// TipDetails is attached to both legs of a tip.
type TipDetails struct {
	SenderID    int64 `json:"sender_id"`
	RecipientID int64 `json:"recipient_id"`
	SeriesID    int64 `json:"series_id,omitempty"`
	ChapterID   int64 `json:"chapter_id,omitempty"`
	// PlatformFee is the coin margin kept by the platform on this tip.
	PlatformFee int64 `json:"platform_fee"`
}

func (TipDetails) metaKind() string { return metaKindTip }

// UnlockDetails is attached to both legs of a premium chapter unlock.
type UnlockDetails struct {
	ChapterID   int64 `json:"chapter_id"`
	AuthorID    int64 `json:"author_id"`
	Price       int64 `json:"price"`
	PlatformFee int64 `json:"platform_fee"`
}

func (UnlockDetails) metaKind() string { return metaKindUnlock }

// BankDetails carries the destination account for a withdrawal. The account
// number is stored as given; masking is a presentation concern.
type BankDetails struct {
	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
}

// PayoutDetails is attached to a payout_request entry.
type PayoutDetails struct {
	Blocks      int64      `json:"blocks"`
	INRAmount   float64    `json:"inr_amount"`
	Bank        BankDetails `json:"bank,omitempty"`
	ConfirmedBy int64      `json:"confirmed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func (PayoutDetails) metaKind() string { return metaKindPayout }

// ExchangeDetails is attached to a coin_exchange entry.
type ExchangeDetails struct {
	Blocks       int64       `json:"blocks"`
	INRAmount    float64     `json:"inr_amount"`
	Bank         BankDetails `json:"bank"`
	PaymentNote  string      `json:"payment_note,omitempty"`
	PaymentRef   string      `json:"payment_ref,omitempty"`
	RejectReason string      `json:"reject_reason,omitempty"`
	ConfirmedBy  int64       `json:"confirmed_by,omitempty"`
	ProcessedAt  *time.Time  `json:"processed_at,omitempty"`
}

func (ExchangeDetails) metaKind() string { return metaKindExchange }

// EncodeMeta serializes a meta variant with its kind tag. A nil meta encodes
// as an empty object.
func EncodeMeta(m TransactionMeta) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	kind, err := json.Marshal(m.metaKind())
	if err != nil {
		return nil, err
	}
	obj["kind"] = kind

	return json.Marshal(obj)
}

// DecodeMeta parses a tagged meta payload back into its variant. Untagged or
// empty payloads decode to nil.
func DecodeMeta(b []byte) (TransactionMeta, error) {
	if len(b) == 0 {
		return nil, nil
	}

	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, err
	}

	switch probe.Kind {
	case metaKindPurchase:
		var d PurchaseDetails
		return &d, json.Unmarshal(b, &d)
	case metaKindTip:
		var d TipDetails
		return &d, json.Unmarshal(b, &d)
	case metaKindUnlock:
		var d UnlockDetails
		return &d, json.Unmarshal(b, &d)
	case metaKindPayout:
		var d PayoutDetails
		return &d, json.Unmarshal(b, &d)
	case metaKindExchange:
		var d ExchangeDetails
		return &d, json.Unmarshal(b, &d)
	default:
		return nil, nil
	}
}
