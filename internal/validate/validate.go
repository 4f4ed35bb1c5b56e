package validate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
)

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid listing: " + strings.Join(parts, "; ")
}

// Fields checks every field and returns the parsed values, or a
// *ValidationError naming each field that failed.
func Fields(in domain.FormInput) (domain.ListingFields, error) {
	var out domain.ListingFields
	errs := make(map[string]string)

	out.Title = required(errs, "title", in.Title)
	out.Description = required(errs, "description", in.Description)
	out.Location = required(errs, "location", in.Location)

	out.Bedroom = count(errs, "bedroom", in.Bedroom)
	out.LivingRoom = count(errs, "livingRoom", in.LivingRoom)
	out.Toilet = count(errs, "toilet", in.Toilet)
	out.Kitchen = count(errs, "kitchen", in.Kitchen)

	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	switch {
	case strings.TrimSpace(in.Price) == "":
		errs["price"] = "is required"
	case err != nil:
		errs["price"] = "must be a number"
	case !price.IsPositive():
		errs["price"] = "must be greater than zero"
	default:
		out.Price = price
	}

	period := domain.PaymentPeriod(strings.ToLower(strings.TrimSpace(in.PaymentPeriod)))
	if period.Valid() {
		out.PaymentPeriod = period
	} else {
		errs["paymentPeriod"] = fmt.Sprintf("must be one of %s", periodList())
	}

	if len(errs) > 0 {
		return domain.ListingFields{}, &ValidationError{Fields: errs}
	}
	return out, nil
}

func required(errs map[string]string, name, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		errs[name] = "is required"
	}
	return v
}

func count(errs map[string]string, name, v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		errs[name] = "is required"
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		errs[name] = "must be a whole number"
		return 0
	}
	if n < 0 {
		errs[name] = "must not be negative"
		return 0
	}
	return n
}

func periodList() string {
	names := make([]string, len(domain.PaymentPeriods))
	for i, p := range domain.PaymentPeriods {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
