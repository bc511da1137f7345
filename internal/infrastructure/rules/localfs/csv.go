package localfs

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func parseCSV(raw []byte) (*domain.RuleTable, error) {
	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return headerAndRows(records), nil
}

// decodeText returns raw as UTF-8. Anything that is not valid UTF-8 is
// treated as Big5, the common legacy encoding for Taiwanese spreadsheets.
func decodeText(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, nil
	}
	decoded, _, err := transform.Bytes(traditionalchinese.Big5.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decode big5: %w", err)
	}
	return decoded, nil
}
