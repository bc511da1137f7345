// Package mcpadapter exposes the tax ID validator and the compliance check
// as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/core/ports"
)

const (
	ToolValidateTaxID = "validate_tax_id"
	ToolCheckInvoice  = "check_invoice"
)

type Handlers struct {
	validator ports.TaxIDValidator
	checker   ports.ComplianceChecker
}

func NewHandlers(validator ports.TaxIDValidator, checker ports.ComplianceChecker) *Handlers {
	return &Handlers{validator: validator, checker: checker}
}

func NewServer(name, version string, h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Validate Taiwan business registration numbers (統一編號) and run VAT invoice compliance checks."),
	)
	s.AddTool(validateTaxIDTool(), h.ValidateTaxID)
	s.AddTool(checkInvoiceTool(), h.CheckInvoice)
	return s
}

func validateTaxIDTool() mcp.Tool {
	return mcp.NewTool(ToolValidateTaxID,
		mcp.WithDescription("Check the weighted checksum of an 8-digit Taiwan business registration number."),
		mcp.WithString("tax_id",
			mcp.Required(),
			mcp.Description("The 統一編號 to validate."),
		),
	)
}

func checkInvoiceTool() mcp.Tool {
	return mcp.NewTool(ToolCheckInvoice,
		mcp.WithDescription("Validate the invoice's tax IDs and ask the configured models for a compliance review."),
		mcp.WithString("direction",
			mcp.Description("Invoice direction."),
			mcp.Enum(string(domain.DirectionSales), string(domain.DirectionPurchase), string(domain.DirectionExport)),
		),
		mcp.WithString("format_code", mcp.Description("格式代號, e.g. 31.")),
		mcp.WithString("buyer_tax_id", mcp.Description("買受人統編.")),
		mcp.WithString("seller_tax_id", mcp.Description("賣方統編.")),
		mcp.WithString("invoice_number", mcp.Description("First invoice number.")),
		mcp.WithString("invoice_number_end", mcp.Description("Last invoice number for aggregated entries.")),
		mcp.WithNumber("sales_amount", mcp.Description("Sales amount in TWD.")),
		mcp.WithNumber("tax_amount", mcp.Description("Tax amount in TWD.")),
		mcp.WithString("period", mcp.Description("Filing period, e.g. 11302.")),
		mcp.WithString("tax_type", mcp.Description("課稅別: 1, 2, 3, F or D.")),
		mcp.WithBoolean("aggregate", mcp.Description("Whether the entry is aggregated (彙加).")),
		mcp.WithString("customs_mode", mcp.Description("Zero-rated exports only: 1 or 2.")),
	)
}

func (h *Handlers) ValidateTaxID(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taxID, err := req.RequireString("tax_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	verdict := h.validator.Validate(taxID)
	return jsonResult(map[string]any{
		"tax_id":  taxID,
		"valid":   verdict.Valid,
		"reason":  verdict.Reason,
		"message": verdict.Message,
	})
}

// CheckInvoice reports an analysis failure as a normal result; only input
// and infrastructure errors become tool errors.
func (h *Handlers) CheckInvoice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	record := recordFromArguments(req)
	result, err := h.checker.Check(ctx, record)
	if err != nil {
		code := domain.ErrorCode(err)
		slog.Warn("mcp_check_failed", "code", code, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("check failed [%s]: %v", code, err)), nil
	}
	return jsonResult(map[string]any{
		"verdicts": result.Verdicts,
		"outcome":  result.Outcome,
		"summary":  result.Outcome.Summary(),
		"rules":    result.Rules,
	})
}

func recordFromArguments(req mcp.CallToolRequest) domain.InvoiceRecord {
	return domain.InvoiceRecord{
		Direction:        domain.Direction(strings.ToLower(strings.TrimSpace(req.GetString("direction", "")))),
		FormatCode:       req.GetString("format_code", ""),
		BuyerTaxID:       req.GetString("buyer_tax_id", ""),
		SellerTaxID:      req.GetString("seller_tax_id", ""),
		InvoiceNumber:    req.GetString("invoice_number", ""),
		InvoiceNumberEnd: req.GetString("invoice_number_end", ""),
		SalesAmount:      int64(req.GetFloat("sales_amount", 0)),
		TaxAmount:        int64(req.GetFloat("tax_amount", 0)),
		Period:           req.GetString("period", ""),
		TaxType:          req.GetString("tax_type", ""),
		Aggregate:        req.GetBool("aggregate", false),
		CustomsMode:      req.GetString("customs_mode", ""),
	}
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
