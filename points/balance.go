package points

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/internal/utils"
)

// Balance is the value the server reported, taken from "balance", else
// "point", else the whole body.
type Balance struct {
	Value any
}

func balanceFrom(resp *api.Response) Balance {
	if obj, ok := resp.Object(); ok {
		for _, key := range []string{"balance", "point"} {
			if v, found := obj[key]; found && v != nil {
				return Balance{Value: v}
			}
		}
		return Balance{Value: obj}
	}
	if resp.IsJSON {
		return Balance{Value: resp.JSON}
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return Balance{Value: text}
	}
	return Balance{}
}

// Number is the balance as a number, if it is one.
func (b Balance) Number() (float64, bool) {
	switch v := b.Value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// String renders "1,234 P", "-" when empty, or the raw value otherwise.
func (b Balance) String() string {
	if b.Value == nil {
		return "- P"
	}
	if n, ok := b.Number(); ok {
		return FormatAmount(n) + " P"
	}
	if s := utils.AsString(b.Value); s != "" {
		return s
	}
	data, _ := json.Marshal(b.Value)
	return string(data)
}

// FormatAmount groups the integer part in thousands.
func FormatAmount(n float64) string {
	s := strconv.FormatFloat(n, 'f', -1, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}
