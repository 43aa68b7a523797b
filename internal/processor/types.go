package processor

import "encoding/json"

// PaymentRecord is the wire shape of one transaction at the processor.
// Optional fields are pointers so that an absent field is distinguishable
// from a zero value. Raw holds the verbatim payload for forward
// compatibility and is retained through storage.
type PaymentRecord struct {
	ID              string          `json:"id"`
	Amount          string          `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	TransactionTime *string         `json:"transactionDateTime,omitempty"`
	CustomerName    *string         `json:"customerName,omitempty"`
	CustomerCode    *string         `json:"customerCode,omitempty"`
	CardBrand       *string         `json:"cardType,omitempty"`
	CardLast4       *string         `json:"maskedAccount,omitempty"`
	AuthCode        *string         `json:"authCode,omitempty"`
	AuthMessage     *string         `json:"authMessage,omitempty"`
	ResponseCode    *string         `json:"responseCode,omitempty"`
	TenderType      *string         `json:"tenderType,omitempty"`
	SourceChannel   *string         `json:"source,omitempty"`
	SettlementBatch *string         `json:"settlementBatchRef,omitempty"`
	RefundedAmount  *string         `json:"refundedAmount,omitempty"`
	SettledAmount   *string         `json:"settledAmount,omitempty"`
	InvoiceIDs      []string        `json:"invoiceIds,omitempty"`
	InvoiceNumber   *string         `json:"invoiceNumber,omitempty"`
	Raw             json.RawMessage `json:"-"`
}

// PaymentPage is the envelope returned by the payment list endpoint
type PaymentPage struct {
	RecordCount int
	Records     []PaymentRecord
}

// UnmarshalJSON decodes the list envelope while preserving each record's
// verbatim JSON in Raw.
func (p *PaymentPage) UnmarshalJSON(data []byte) error {
	var envelope struct {
		RecordCount int               `json:"recordCount"`
		Records     []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	p.RecordCount = envelope.RecordCount
	p.Records = make([]PaymentRecord, 0, len(envelope.Records))
	for _, raw := range envelope.Records {
		var rec PaymentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		rec.Raw = raw
		p.Records = append(p.Records, rec)
	}
	return nil
}

// LineItem is one invoice line at the processor
type LineItem struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Quantity    *string `json:"quantity,omitempty"`
	UnitPrice   *string `json:"unitPrice,omitempty"`
	Total       *string `json:"total,omitempty"`
}

// InvoiceRecord is the wire shape of one invoice at the processor
type InvoiceRecord struct {
	ID            string          `json:"id"`
	InvoiceNumber *string         `json:"invoiceNumber,omitempty"`
	CustomerName  *string         `json:"customerName,omitempty"`
	CustomerID    *string         `json:"customerId,omitempty"`
	Total         *string         `json:"total,omitempty"`
	PaidTotal     *string         `json:"paidTotal,omitempty"`
	Balance       *string         `json:"balance,omitempty"`
	Status        *string         `json:"status,omitempty"`
	Currency      *string         `json:"currency,omitempty"`
	InvoiceDate   *string         `json:"createdDateTime,omitempty"`
	DueDate       *string         `json:"dueDate,omitempty"`
	LineItems     []LineItem      `json:"lineItems,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// InvoicePage is the envelope returned by the invoice list endpoint
type InvoicePage struct {
	RecordCount int
	Records     []InvoiceRecord
}

// UnmarshalJSON decodes the list envelope while preserving each record's
// verbatim JSON in Raw.
func (p *InvoicePage) UnmarshalJSON(data []byte) error {
	var envelope struct {
		RecordCount int               `json:"recordCount"`
		Records     []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	p.RecordCount = envelope.RecordCount
	p.Records = make([]InvoiceRecord, 0, len(envelope.Records))
	for _, raw := range envelope.Records {
		var rec InvoiceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		rec.Raw = raw
		p.Records = append(p.Records, rec)
	}
	return nil
}
