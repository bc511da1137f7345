package domain

import "strings"

type Direction string

const (
	DirectionSales    Direction = "sales"
	DirectionPurchase Direction = "purchase"
	DirectionExport   Direction = "export"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionSales, DirectionPurchase, DirectionExport:
		return true
	default:
		return false
	}
}

// FormatCodes lists the 格式代號 accepted for each direction.
var FormatCodes = map[Direction]map[string]string{
	DirectionSales: {
		"31": "三聯式統一發票",
		"32": "二聯式統一發票",
		"33": "三聯式銷貨退回或折讓證明單",
		"34": "二聯式銷貨退回或折讓證明單",
		"35": "三聯式收銀機統一發票及電子發票",
		"36": "免用統一發票",
		"37": "特種稅額計算之銷售額",
		"38": "特種稅額之銷貨退回或折讓證明單",
	},
	DirectionPurchase: {
		"21": "三聯式統一發票",
		"22": "載有稅額之其他憑證",
		"23": "三聯式進貨退出或折讓證明單",
		"24": "二聯式進貨退出或折讓證明單",
		"25": "三聯式收銀機統一發票及電子發票",
		"26": "彙總登錄之三聯式統一發票",
		"27": "彙總登錄之載有稅額其他憑證",
		"28": "海關代徵營業稅繳納證",
		"29": "海關退還溢繳營業稅申報單",
	},
	DirectionExport: {
		"31": "三聯式統一發票",
		"33": "三聯式銷貨退回或折讓證明單",
		"35": "三聯式收銀機統一發票及電子發票",
	},
}

// TaxTypes lists the 課稅別 codes.
var TaxTypes = map[string]string{
	"1": "應稅",
	"2": "零稅率",
	"3": "免稅",
	"F": "作廢",
	"D": "空白未使用",
}

// CustomsModes applies to zero-rated exports only.
var CustomsModes = map[string]string{
	"1": "非經海關出口",
	"2": "經海關出口",
}

// InvoiceRecord is one entered invoice line. Only the tax ID fields are
// interpreted; everything else is forwarded to the model as-is.
type InvoiceRecord struct {
	Direction        Direction `json:"direction"`
	FormatCode       string    `json:"format_code"`
	BuyerTaxID       string    `json:"buyer_tax_id,omitempty"`
	SellerTaxID      string    `json:"seller_tax_id,omitempty"`
	InvoiceNumber    string    `json:"invoice_number,omitempty"`
	InvoiceNumberEnd string    `json:"invoice_number_end,omitempty"`
	SalesAmount      int64     `json:"sales_amount"`
	TaxAmount        int64     `json:"tax_amount"`
	Period           string    `json:"period,omitempty"`
	TaxType          string    `json:"tax_type,omitempty"`
	Aggregate        bool      `json:"aggregate"`
	CustomsMode      string    `json:"customs_mode,omitempty"`
}

// PrimaryField is the counter-party identifier for the record's direction.
func (r InvoiceRecord) PrimaryField() IdentifierField {
	if r.Direction == DirectionPurchase {
		return FieldSellerTaxID
	}
	return FieldBuyerTaxID
}

func (r InvoiceRecord) FormatLabel() string {
	if label, ok := FormatCodes[r.Direction][strings.TrimSpace(r.FormatCode)]; ok {
		return label
	}
	return ""
}

func (r InvoiceRecord) TaxTypeLabel() string {
	return TaxTypes[strings.ToUpper(strings.TrimSpace(r.TaxType))]
}

// CheckResult is what a compliance check hands back to the rendering layer.
type CheckResult struct {
	Record   InvoiceRecord       `json:"record"`
	Verdicts []IdentifierVerdict `json:"verdicts"`
	Outcome  AnalysisOutcome     `json:"outcome"`
	Rules    string              `json:"rules_source,omitempty"`
}

func (r CheckResult) PrimaryVerdict() (IdentifierVerdict, bool) {
	for _, v := range r.Verdicts {
		if v.Primary {
			return v, true
		}
	}
	return IdentifierVerdict{}, false
}
