package model

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Categorical encoder tables, fixed at artifact build time. Codes start at 1;
// 0 is the neutral code for values the encoder has never seen.
//
// NOTE: coercing unseen categories to the neutral code silently shifts the
// feature toward "unknown" rather than rejecting the request. That behavior
// is preserved for compatibility but is surfaced as a warning on every
// response so callers can see it happened.
var encoders = map[string][]string{
	"Occupation":            domain.Occupations,
	"Credit_Mix":            domain.CreditMixes,
	"Payment_of_Min_Amount": {"Yes", "No"},
	"Payment_Behaviour":     domain.PaymentBehaviours,
}

// neutralCode is assigned to categorical values absent from the encoder.
const neutralCode = 0

// EncodeCategoricals maps the categorical features to integer codes and
// returns a warning for every value coerced to the neutral code.
func EncodeCategoricals(f *domain.FeatureVector) (map[string]int, []string) {
	values := map[string]string{
		"Occupation":            f.Occupation,
		"Credit_Mix":            f.CreditMix,
		"Payment_of_Min_Amount": f.PaymentOfMinAmount,
		"Payment_Behaviour":     f.PaymentBehaviour,
	}

	codes := make(map[string]int, len(values))
	var warnings []string

	for feature, value := range values {
		code := neutralCode
		for i, known := range encoders[feature] {
			if value == known {
				code = i + 1
				break
			}
		}
		if code == neutralCode {
			warnings = append(warnings, fmt.Sprintf(
				"unseen value %q for %s coerced to neutral code", value, feature))
		}
		codes[feature] = code
	}

	return codes, warnings
}
