package dashboard

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
)

// Currency is the ISO code amounts are shown in.
const Currency = "UGX"

// Amount is a money value with its display form.
type Amount struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Short   string  `json:"short"`
}

// formatter renders numbers for one response. A message.Printer is not
// shared between goroutines, so each response builds its own.
type formatter struct {
	p *message.Printer
}

func newFormatter() formatter {
	return formatter{p: message.NewPrinter(language.English)}
}

// amount groups thousands ("UGX 1,234,567") and abbreviates millions
// ("UGX 1.23M").
func (f formatter) amount(v float64) Amount {
	return Amount{
		Value:   v,
		Display: f.p.Sprintf("%s %d", Currency, int64(math.Round(v))),
		Short:   fmt.Sprintf("%s %.2fM", Currency, v/1_000_000),
	}
}

func (f formatter) count(n int) string {
	return f.p.Sprintf("%d", n)
}

// TruncatePercent drops the fractional part: 66.9 is shown as "66%".
func TruncatePercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int64(math.Trunc(v)))
}

// MonthName returns the English month name, or "Unknown" outside 1..12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return "Unknown"
	}
	return time.Month(month).String()
}

func monthLabel(s crmapi.MonthlySales) string {
	if s.Year == 0 {
		return MonthName(s.Month)
	}
	return fmt.Sprintf("%s %d", MonthName(s.Month), s.Year)
}

// share rounds part/total to a whole percentage.
func share(part, total int) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(part)*100/float64(total))
}
