package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidDiscountCode = errors.New("invalid discount code")

// DiscountCode is a service-level promo code of the form XXXXXXXXXX-<pct>%.
// It is a distinct value type from an appointment's confirmation code and is
// never stored in the confirmation code field.
type DiscountCode string

// NewDiscountCode mints a code carrying the given whole-number percentage.
func NewDiscountCode(percent int) (DiscountCode, error) {
	if percent <= 0 || percent >= 100 {
		return "", fmt.Errorf("%w: percent %d out of range", ErrInvalidDiscountCode, percent)
	}
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return DiscountCode(fmt.Sprintf("%s-%d%%", raw[:10], percent)), nil
}

// Percent extracts the discount percentage embedded in the code.
func (c DiscountCode) Percent() (int, error) {
	s := string(c)
	i := strings.LastIndex(s, "-")
	if i < 0 || !strings.HasSuffix(s, "%") {
		return 0, ErrInvalidDiscountCode
	}
	pct, err := strconv.Atoi(s[i+1 : len(s)-1])
	if err != nil || pct <= 0 || pct >= 100 {
		return 0, ErrInvalidDiscountCode
	}
	return pct, nil
}
