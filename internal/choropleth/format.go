package choropleth

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders numbers for display in one locale. The zero value
// formats Indonesian numbers without a unit.
type Formatter struct {
	printer *message.Printer
	unit    string
}

// NewFormatter returns a formatter for a BCP 47 locale such as "id" or
// "en-US". An unparseable locale falls back to Indonesian.
func NewFormatter(locale, unit string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Indonesian
	}
	return Formatter{printer: message.NewPrinter(tag), unit: unit}
}

// Area formats a per-region area with up to three fraction digits and the unit.
func (f Formatter) Area(v float64) string {
	return f.withUnit(f.decimal(v, 3))
}

// Total formats an aggregate area with at most one fraction digit and the unit.
func (f Formatter) Total(v float64) string {
	return f.withUnit(f.decimal(v, 1))
}

func (f Formatter) withUnit(s string) string {
	if f.unit == "" {
		return s
	}
	return s + " " + f.unit
}

// Count formats a feature count.
func (f Formatter) Count(n int) string {
	return strconv.Itoa(n)
}

// Percent formats an opacity fraction as a whole percentage.
func (f Formatter) Percent(fraction float64) string {
	return strconv.Itoa(int(math.Round(fraction*100))) + "%"
}

// decimal rounds half away from zero before handing the value to x/text,
// whose float path only rounds half to even.
func (f Formatter) decimal(v float64, digits int) string {
	scale := math.Pow(10, float64(digits))
	v = math.Round(v*scale) / scale
	p := f.printer
	if p == nil {
		p = message.NewPrinter(language.Indonesian)
	}
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(digits)))
}
