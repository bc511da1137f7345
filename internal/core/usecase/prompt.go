package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

var directionLabels = map[domain.Direction]string{
	domain.DirectionSales:    "銷項",
	domain.DirectionPurchase: "進項",
	domain.DirectionExport:   "零稅率外銷",
}

// BuildCompliancePrompt embeds the record, the identifier verdicts and the
// rule table verbatim into the instruction sent to the model.
func BuildCompliancePrompt(record domain.InvoiceRecord, verdicts []domain.IdentifierVerdict, rules *domain.RuleTable) string {
	var recordBuilder strings.Builder
	line := func(label string, value any) {
		recordBuilder.WriteString(fmt.Sprintf("- %s: %v\n", label, value))
	}

	line("申報類別", directionLabels[record.Direction])
	line("格式代號", withLabel(record.FormatCode, record.FormatLabel()))
	for _, v := range verdicts {
		line(identifierLabel(v.Field), fmt.Sprintf("%s (邏輯檢核結果: %s)", displayTaxID(v.TaxID), v.Verdict.Message))
	}
	if record.InvoiceNumber != "" {
		line("憑證號碼", record.InvoiceNumber)
	}
	if record.InvoiceNumberEnd != "" {
		line("迄號", record.InvoiceNumberEnd)
	}
	line("銷售額", record.SalesAmount)
	line("稅額", record.TaxAmount)
	line("開立年月", record.Period)
	line("課稅別", withLabel(record.TaxType, record.TaxTypeLabel()))
	line("彙加註記", record.Aggregate)
	if record.Direction == domain.DirectionExport || record.CustomsMode != "" {
		line("通關方式", withLabel(record.CustomsMode, domain.CustomsModes[record.CustomsMode]))
	}

	return fmt.Sprintf(`你是台灣營業稅務專家。請依《營業人使用統一發票及進銷項憑證申報作業規定》與下列系統規則，審核這筆%s資料是否合規。

【系統規則】
%s

【使用者資料】
%s
請依以下結構回覆：
1. 合規診斷：逐項說明是否符合規定（例如格式 32 稅額應為 0、折讓單 33/34/38 不得彙加、稅額是否為銷售額之 5%%）。
2. 異常提醒：明確列出違反規定之欄位。
3. 具體修正建議：引導使用者完成正確申報。
`, directionLabels[record.Direction], rules.Text(), recordBuilder.String())
}

func withLabel(code, label string) string {
	if code == "" {
		return "(未填)"
	}
	if label == "" {
		return code
	}
	return code + " " + label
}

func identifierLabel(field domain.IdentifierField) string {
	if field == domain.FieldSellerTaxID {
		return "賣方統編"
	}
	return "買受人統編"
}

func displayTaxID(id string) string {
	if strings.TrimSpace(id) == "" {
		return "(未填)"
	}
	return id
}
