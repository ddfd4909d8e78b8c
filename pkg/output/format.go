// Package output renders calculation results as pretty tables or CSV.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/format"
	"github.com/iwvelando/ltvcalc/pkg/loans"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

func money(p *message.Printer, amount float64) string {
	return p.Sprintf(constants.CurrencySymbol+"%.2f", amount)
}

// PrettyBounds outputs the financing bounds as a human-readable table.
func PrettyBounds(w io.Writer, b ltv.Bounds) {
	p := printer()
	fmt.Fprintf(w, "--- Financing bounds for %s ---\n", ownershipLabel(b.Ownership))
	fmt.Fprintf(w, "Price of estate  | %s\n", money(p, b.PriceOfEstate))
	fmt.Fprintf(w, "LTV ratio        | %s\n", format.Ratio(b.Ratio))
	fmt.Fprintf(w, "Max loan amount  | %s\n", money(p, b.MaxLoan))
	fmt.Fprintf(w, "Min down payment | %s\n", money(p, b.MinDown))
	fmt.Fprintf(w, "Max down payment | %s\n", money(p, b.MaxDown))
}

// CsvBounds outputs the financing bounds in comma-separated value format.
func CsvBounds(w io.Writer, b ltv.Bounds) {
	fmt.Fprintf(w, `"propertyOwnership","priceOfEstate","ltvRatio","maxLoanAmount","minDownPayment","maxDownPayment"`+"\n")
	fmt.Fprintf(w, `"%s","%.2f","%.4f","%.2f","%.2f","%.2f"`+"\n",
		csvField(string(b.Ownership)), b.PriceOfEstate, b.Ratio, b.MaxLoan, b.MinDown, b.MaxDown)
}

// PrettySync outputs the result of a form sync.
func PrettySync(w io.Writer, r ltv.SyncResult) {
	p := printer()
	fmt.Fprintf(w, "--- Form sync ---\n")
	fmt.Fprintf(w, "Property ownership | %s\n", ownershipLabel(r.Values.PropertyOwnership))
	fmt.Fprintf(w, "Price of estate    | %s\n", money(p, r.Values.PriceOfEstate))
	fmt.Fprintf(w, "Initial fee        | %s\n", money(p, r.Values.InitialFee))
	if r.Adjusted {
		fmt.Fprintf(w, "Adjusted           | yes\n")
	} else {
		fmt.Fprintf(w, "Adjusted           | no\n")
	}
	if r.Bounds != nil {
		fmt.Fprintf(w, "Allowed fee range  | %s - %s\n", money(p, r.Bounds.MinDown), money(p, r.Bounds.MaxDown))
	}
}

// CsvSync outputs the result of a form sync in comma-separated value format.
func CsvSync(w io.Writer, r ltv.SyncResult) {
	fmt.Fprintf(w, `"propertyOwnership","priceOfEstate","initialFee","adjusted","minDownPayment","maxDownPayment"`+"\n")
	minDown, maxDown := "", ""
	if r.Bounds != nil {
		minDown = fmt.Sprintf("%.2f", r.Bounds.MinDown)
		maxDown = fmt.Sprintf("%.2f", r.Bounds.MaxDown)
	}
	fmt.Fprintf(w, `"%s","%.2f","%.2f","%t","%s","%s"`+"\n",
		csvField(string(r.Values.PropertyOwnership)), r.Values.PriceOfEstate, r.Values.InitialFee, r.Adjusted, minDown, maxDown)
}

// PrettyPayment outputs a mortgage quote.
func PrettyPayment(w io.Writer, q loans.Quote) {
	p := printer()
	fmt.Fprintf(w, "--- Mortgage payment ---\n")
	fmt.Fprintf(w, "Principal       | %s\n", money(p, q.Principal))
	fmt.Fprintf(w, "Annual rate     | %s\n", format.Percent(q.AnnualRate))
	fmt.Fprintf(w, "Term            | %d years\n", q.TermYears)
	fmt.Fprintf(w, "Monthly payment | %s\n", money(p, q.MonthlyPayment))
	fmt.Fprintf(w, "Total payment   | %s\n", money(p, q.TotalPayment))
	fmt.Fprintf(w, "Total interest  | %s\n", money(p, q.TotalInterest))
}

// CsvPayment outputs a mortgage quote in comma-separated value format.
func CsvPayment(w io.Writer, q loans.Quote) {
	fmt.Fprintf(w, `"principal","annualRate","termYears","monthlyPayment","totalPayment","totalInterest"`+"\n")
	fmt.Fprintf(w, `"%.2f","%.2f","%d","%.2f","%.2f","%.2f"`+"\n",
		q.Principal, q.AnnualRate, q.TermYears, q.MonthlyPayment, q.TotalPayment, q.TotalInterest)
}

// PrettyParameters outputs calculation parameters, LTV table first.
func PrettyParameters(w io.Writer, parameters params.Parameters) {
	source := "live"
	if parameters.IsFallback {
		source = "fallback"
	}
	fmt.Fprintf(w, "--- Calculation parameters for %s (%s) ---\n", parameters.BusinessPath, source)
	fmt.Fprintf(w, "Current interest rate | %s\n", format.Percent(parameters.CurrentInterestRate))
	if parameters.LastUpdated != nil {
		fmt.Fprintf(w, "Last updated          | %s\n", parameters.LastUpdated.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Ownership          | LTV    | Min down\n")
	fmt.Fprintf(w, "_________          | ___    | ________\n")
	for _, status := range sortedKeys(parameters.PropertyOwnershipLTVs) {
		rule := parameters.PropertyOwnershipLTVs[status]
		fmt.Fprintf(w, "%-18s | %s | %s\n", status, format.Percent(rule.LTV), format.Percent(rule.MinDownPayment))
	}
	for _, category := range sortedKeys(parameters.Standards) {
		for _, name := range sortedKeys(parameters.Standards[category]) {
			fmt.Fprintf(w, "%s.%s = %.2f\n", category, name, parameters.Standards[category][name].Value)
		}
	}
}

// CsvParameters outputs the ownership LTV table and standards as rows.
func CsvParameters(w io.Writer, parameters params.Parameters) {
	fmt.Fprintf(w, `"businessPath","category","name","value"`+"\n")
	fmt.Fprintf(w, `"%s","rates","current_interest_rate","%.2f"`+"\n", csvField(string(parameters.BusinessPath)), parameters.CurrentInterestRate)
	for _, status := range sortedKeys(parameters.PropertyOwnershipLTVs) {
		fmt.Fprintf(w, `"%s","property_ownership_ltv","%s","%.2f"`+"\n",
			csvField(string(parameters.BusinessPath)), csvField(status), parameters.PropertyOwnershipLTVs[status].LTV)
	}
	for _, category := range sortedKeys(parameters.Standards) {
		for _, name := range sortedKeys(parameters.Standards[category]) {
			fmt.Fprintf(w, `"%s","%s","%s","%.2f"`+"\n",
				csvField(string(parameters.BusinessPath)), csvField(category), csvField(name), parameters.Standards[category][name].Value)
		}
	}
}

// csvField escapes a value for a double-quoted CSV field.
func csvField(value string) string {
	return strings.ReplaceAll(value, `"`, `""`)
}

func ownershipLabel(o ltv.Ownership) string {
	if o == "" {
		return "unspecified ownership"
	}
	return string(o)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
