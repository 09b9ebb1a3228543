package domain

// CustomerHome aggregates the customer landing page data.
type CustomerHome struct {
	Quotes []Quote `json:"quotes"`
	Orders []Order `json:"orders"`
}

// PharmacyHome aggregates the pharmacy landing page data.
type PharmacyHome struct {
	PendingQuotes []Quote `json:"pendingQuotes"`
	Orders        []Order `json:"orders"`
}
