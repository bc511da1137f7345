// Package taxid validates Taiwan business registration numbers (統一編號).
package taxid

import (
	"fmt"
	"strings"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

const Length = 8

var weights = [Length]int{1, 2, 1, 2, 1, 2, 4, 1}

// Validate checks a tax ID against the weighted digit-sum rule. An empty
// or whitespace-only ID is "not applicable" and passes. Anything else must
// be exactly eight ASCII digits as given; surrounding whitespace is
// malformed.
//
// The legacy exception (7th digit '7' and total+1 divisible by 5) is only
// consulted after the primary check fails. It is kept exactly as the
// historical screens applied it; its origin has not been verified against
// Ministry of Finance publications.
func Validate(id string) domain.Verdict {
	if strings.TrimSpace(id) == "" {
		return domain.Verdict{
			Valid:   true,
			Reason:  domain.ReasonNotApplicable,
			Message: "not applicable: no tax ID entered",
		}
	}
	if !wellFormed(id) {
		return domain.Verdict{
			Valid:   false,
			Reason:  domain.ReasonMalformed,
			Message: fmt.Sprintf("malformed: tax ID must be exactly %d digits", Length),
		}
	}

	total := WeightedSum(id)
	if total%5 == 0 {
		return domain.Verdict{
			Valid:   true,
			Reason:  domain.ReasonChecksumOK,
			Total:   total,
			Message: "checksum ok",
		}
	}
	if id[6] == '7' && (total+1)%5 == 0 {
		return domain.Verdict{
			Valid:   true,
			Reason:  domain.ReasonLegacyException,
			Total:   total,
			Message: "checksum ok (legacy exception for 7th digit 7)",
		}
	}
	return domain.Verdict{
		Valid:   false,
		Reason:  domain.ReasonChecksumFailed,
		Total:   total,
		Message: fmt.Sprintf("checksum failed: weighted sum %d is not divisible by 5", total),
	}
}

// WeightedSum folds each weighted digit product into its digit sum and adds
// them up. The caller must pass a well-formed ID.
func WeightedSum(id string) int {
	total := 0
	for i := 0; i < Length; i++ {
		p := int(id[i]-'0') * weights[i]
		total += p/10 + p%10
	}
	return total
}

func wellFormed(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// Validator adapts Validate to ports.TaxIDValidator.
type Validator struct{}

func (Validator) Validate(id string) domain.Verdict {
	return Validate(id)
}
