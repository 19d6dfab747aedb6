package service

import "patient-payments/internal/core/domain"

// FirstDigitClassifier is a placeholder classifier: a leading 3, 4 or 5 is
// treated as credit and anything else as debit. It is not BIN-accurate and
// should be replaced by a BIN table lookup when one is available.
type FirstDigitClassifier struct{}

// Classify implements ports.CardClassifier.
func (FirstDigitClassifier) Classify(digits string) domain.CardKind {
	if digits == "" {
		return domain.CardKindDebit
	}
	switch digits[0] {
	case '3', '4', '5':
		return domain.CardKindCredit
	default:
		return domain.CardKindDebit
	}
}
