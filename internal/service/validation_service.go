package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"patient-payments/internal/core/domain"
	"patient-payments/internal/core/ports"
	"patient-payments/pkg/apperror"
)

const (
	minCardDigits = 12
	maxCardDigits = 19
)

var (
	cvvPattern         = regexp.MustCompile(`^[0-9]{3,4}$`)
	expiryMonthPattern = regexp.MustCompile(`^[0-9]{1,2}$`)
	expiryYearPattern  = regexp.MustCompile(`^([0-9]{2}|[0-9]{4})$`)
)

// CardValidator implements ports.PaymentValidator.
type CardValidator struct {
	classifier ports.CardClassifier
	now        func() time.Time
}

// NewCardValidator creates a validator. A nil classifier falls back to
// FirstDigitClassifier and a nil clock to time.Now.
func NewCardValidator(classifier ports.CardClassifier, now func() time.Time) *CardValidator {
	if classifier == nil {
		classifier = FirstDigitClassifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &CardValidator{classifier: classifier, now: now}
}

// Validate checks card number, expiry and CVV in that order and stops at the
// first failure.
func (v *CardValidator) Validate(details domain.CardDetails) (domain.ValidatedCard, error) {
	digits, ok := normalizeCardNumber(details.CardNumber)
	if !ok || !LuhnValid(digits) {
		return domain.ValidatedCard{}, apperror.ErrInvalidCardNumber()
	}

	month, year, ok := parseExpiry(details.ExpiryMonth, details.ExpiryYear)
	if !ok {
		return domain.ValidatedCard{}, apperror.ErrInvalidExpiry()
	}
	now := v.now()
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return domain.ValidatedCard{}, apperror.ErrCardExpired()
	}

	if !cvvPattern.MatchString(details.CVV) {
		return domain.ValidatedCard{}, apperror.ErrInvalidCVV()
	}

	return domain.ValidatedCard{
		Number:      digits,
		Kind:        v.classifier.Classify(digits),
		ExpiryMonth: month,
		ExpiryYear:  year,
	}, nil
}

// LuhnValid reports whether digits passes the Luhn checksum. digits must
// contain only ASCII digits.
func LuhnValid(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// normalizeCardNumber strips spaces and dashes. Any other non-digit, or a
// length outside 12..19, is rejected.
func normalizeCardNumber(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == ' ' || c == '-':
			continue
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			return "", false
		}
	}
	digits := b.String()
	if len(digits) < minCardDigits || len(digits) > maxCardDigits {
		return "", false
	}
	return digits, true
}

// parseExpiry accepts MM or M and YY or YYYY. Two-digit years are 20YY.
func parseExpiry(rawMonth, rawYear string) (int, int, bool) {
	rawMonth = strings.TrimSpace(rawMonth)
	rawYear = strings.TrimSpace(rawYear)
	if !expiryMonthPattern.MatchString(rawMonth) || !expiryYearPattern.MatchString(rawYear) {
		return 0, 0, false
	}

	month, _ := strconv.Atoi(rawMonth)
	year, _ := strconv.Atoi(rawYear)
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	if len(rawYear) == 2 {
		year += 2000
	}
	return month, year, true
}
