package domain

import "time"

// ============================================================
// Quotes — upstream read models
// ============================================================

// Quote is one row of the customer quote list.
type Quote struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status"`
	CreateDate time.Time `json:"createDate"`
	UpdateDate time.Time `json:"updateDate"`
	ItemCount  int       `json:"itemCount"`
	City       string    `json:"city"`
	State      string    `json:"state"`
}

// QuoteDetail is the full quote as returned by GET /quote/{id}.
type QuoteDetail struct {
	ID                  int64      `json:"id"`
	Status              string     `json:"status"`
	CreateDate          time.Time  `json:"createDate"`
	PrescriptionImageID int64      `json:"prescriptionImageId,omitempty"`
	Items               []LineItem `json:"items"`
	Address             Address    `json:"address"`
}

// LineItem is one compound entry within a quote.
type LineItem struct {
	ID                   int64                 `json:"id"`
	MainCompoundName     string                `json:"mainCompoundName"`
	PharmaceuticalForm   string                `json:"pharmaceuticalForm"`
	ConcentrationValue   float64               `json:"concentrationValue"`
	ConcentrationUnit    string                `json:"concentrationUnit"`
	TotalQuantity        int                   `json:"totalQuantity"`
	QuantityUnit         string                `json:"quantityUnit"`
	Observation          string                `json:"observation"`
	AdditionalComponents []AdditionalComponent `json:"additionalComponents"`
}

// AdditionalComponent is one active ingredient nested under a line item.
type AdditionalComponent struct {
	ID                   int64   `json:"id"`
	ActiveIngredientName string  `json:"activeIngredientName"`
	ConcentrationValue   float64 `json:"concentrationValue"`
	ConcentrationUnit    string  `json:"concentrationUnit"`
}

// Address is a delivery address as stored upstream.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
}

// ============================================================
// Quote composition — wizard drafts
// ============================================================

// DraftState is the wizard state machine position.
type DraftState string

const (
	DraftCollectingAttachment DraftState = "collecting_attachment"
	DraftCollectingLineItems  DraftState = "collecting_line_items"
	DraftCollectingAddress    DraftState = "collecting_address"
	DraftSubmitting           DraftState = "submitting"
	DraftSubmitted            DraftState = "submitted"
	DraftFailed               DraftState = "failed"
)

// PrescriptionAttachment is the uploaded prescription held until submission.
type PrescriptionAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// ComponentDraft is an additional component being composed.
type ComponentDraft struct {
	ActiveIngredientName string  `json:"activeIngredientName"`
	ConcentrationValue   float64 `json:"concentrationValue"`
	ConcentrationUnit    string  `json:"concentrationUnit"`
}

// LineItemDraft is a compound line item being composed.
type LineItemDraft struct {
	MainCompoundName     string           `json:"mainCompoundName"`
	PharmaceuticalForm   string           `json:"pharmaceuticalForm"`
	ConcentrationValue   float64          `json:"concentrationValue"`
	ConcentrationUnit    string           `json:"concentrationUnit"`
	TotalQuantity        int              `json:"totalQuantity"`
	QuantityUnit         string           `json:"quantityUnit"`
	Observation          string           `json:"observation"`
	AdditionalComponents []ComponentDraft `json:"additionalComponents"`
}

// AddressDraft is the delivery address being composed.
type AddressDraft struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
}

// QuoteDraft is the in-progress quote, built incrementally across wizard
// steps and discarded on cancel or successful submission. Never partially
// submitted.
type QuoteDraft struct {
	ID           string                  `json:"id"`
	State        DraftState              `json:"state"`
	Attachment   *PrescriptionAttachment `json:"attachment,omitempty"`
	LineItems    []LineItemDraft         `json:"lineItems"`
	Address      *AddressDraft           `json:"address,omitempty"`
	LastError    string                  `json:"lastError,omitempty"`
	CreatedAt    time.Time               `json:"createdAt"`
	LastActivity time.Time               `json:"lastActivity"`
}
