package transform

import (
	"math"
	"strings"

	"github.com/go-quern/quern"
)

// BalanceTolerance is the absolute tolerance for voucher debit/credit
// equality checks
const BalanceTolerance = 0.01

// DefaultStatementRules classify account codes by leading digit
var DefaultStatementRules = map[string]string{
	"1": "balance_sheet",
	"2": "balance_sheet",
	"3": "balance_sheet",
	"4": "income_statement",
	"5": "income_statement",
	"6": "income_statement",
	"7": "income_statement",
	"8": "income_statement",
	"9": "income_statement",
}

// debitFlags are the direction values which mark a row as a debit entry
var debitFlags = map[string]bool{
	"D":     true,
	"debit": true,
	"借":     true,
}

// AccountingStrategy derives double-entry bookkeeping columns: calendar
// fields and a year-month period key, a statement-type classification from
// account-code prefixes, a debit/credit split of the signed amount on the
// direction flag, and a per-voucher balance check. The balance check runs
// over voucher groups within the partition at hand: a voucher whose rows
// span partitions is checked per partition, so partition counts should align
// with voucher boundaries when exact cross-voucher balancing matters.
type AccountingStrategy struct{}

// Name identifies this Strategy in diagnostics and registries
func (s *AccountingStrategy) Name() string { return "accounting" }

// Transform derives the accounting columns
func (s *AccountingStrategy) Transform(frame *quern.Frame, opts *Options) (*quern.Frame, error) {
	out := frame.Clone()
	if err := addCalendarColumns(out, "date"); err != nil {
		return nil, err
	}
	dates, err := out.Times("date")
	if err != nil {
		return nil, err
	}
	accountCodes, err := out.Strings("account_code")
	if err != nil {
		return nil, err
	}
	directions, err := out.Strings("direction")
	if err != nil {
		return nil, err
	}
	amounts, err := floatColumn(out, "amount")
	if err != nil {
		return nil, err
	}
	vouchers, err := out.Strings("voucher_id")
	if err != nil {
		return nil, err
	}

	rules := opts.statementRules()
	n := out.NumRows()
	periods := make([]string, n)
	statements := make([]string, n)
	debits := make([]float64, n)
	credits := make([]float64, n)
	for i := 0; i < n; i++ {
		periods[i] = periodKey(dates[i])
		statements[i] = classifyStatement(accountCodes[i], rules)
		if debitFlags[directions[i]] {
			debits[i] = amounts[i]
		} else {
			credits[i] = amounts[i]
		}
	}

	// per-voucher balance check, stamped onto every row of the voucher
	debitSums := make(map[string]float64, len(vouchers))
	creditSums := make(map[string]float64, len(vouchers))
	for i, voucher := range vouchers {
		debitSums[voucher] += debits[i]
		creditSums[voucher] += credits[i]
	}
	balanced := make([]bool, n)
	for i, voucher := range vouchers {
		balanced[i] = math.Abs(debitSums[voucher]-creditSums[voucher]) <= BalanceTolerance
	}

	newCols := []struct {
		col    quern.Column
		values interface{}
	}{
		{quern.Column{Name: "period", Type: quern.StringType}, periods},
		{quern.Column{Name: "statement_type", Type: quern.StringType}, statements},
		{quern.Column{Name: "debit_amount", Type: quern.FloatType}, debits},
		{quern.Column{Name: "credit_amount", Type: quern.FloatType}, credits},
		{quern.Column{Name: "balanced", Type: quern.BoolType}, balanced},
	}
	for _, c := range newCols {
		if err := out.AddColumn(c.col, c.values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// classifyStatement picks the statement type whose rule prefix is the
// longest match for the account code. Codes matching no rule are labelled
// "unclassified".
func classifyStatement(accountCode string, rules map[string]string) string {
	best := ""
	statement := "unclassified"
	for prefix, s := range rules {
		if strings.HasPrefix(accountCode, prefix) && len(prefix) > len(best) {
			best = prefix
			statement = s
		}
	}
	return statement
}
