package domain

// VerdictReason is the closed set of outcomes of the tax ID checksum.
type VerdictReason string

const (
	ReasonNotApplicable   VerdictReason = "not_applicable"
	ReasonMalformed       VerdictReason = "malformed"
	ReasonChecksumOK      VerdictReason = "checksum_ok"
	ReasonLegacyException VerdictReason = "checksum_ok_legacy_exception"
	ReasonChecksumFailed  VerdictReason = "checksum_failed"
)

// Verdict is the result of validating one business registration number (統一編號).
// Total is the weighted digit sum and is only meaningful when the arithmetic ran.
type Verdict struct {
	Valid   bool          `json:"valid"`
	Reason  VerdictReason `json:"reason"`
	Total   int           `json:"total,omitempty"`
	Message string        `json:"message"`
}

// IdentifierField names which record field a verdict belongs to.
type IdentifierField string

const (
	FieldBuyerTaxID  IdentifierField = "buyer_tax_id"
	FieldSellerTaxID IdentifierField = "seller_tax_id"
)

type IdentifierVerdict struct {
	Field   IdentifierField `json:"field"`
	TaxID   string          `json:"tax_id"`
	Primary bool            `json:"primary"`
	Verdict Verdict         `json:"verdict"`
}
