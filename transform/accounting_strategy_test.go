package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-quern/quern"
)

func createVoucherFrame(t *testing.T, rows []voucherRow) *quern.Frame {
	schema, err := quern.CreateSchema(
		quern.Column{Name: "voucher_id", Type: quern.StringType},
		quern.Column{Name: "date", Type: quern.TimeType},
		quern.Column{Name: "account_code", Type: quern.StringType},
		quern.Column{Name: "direction", Type: quern.StringType},
		quern.Column{Name: "amount", Type: quern.FloatType},
	)
	require.Nil(t, err)
	frame := quern.CreateFrame(schema)
	for _, row := range rows {
		require.Nil(t, frame.AppendRow(row.voucher, row.date, row.account, row.direction, row.amount))
	}
	return frame
}

type voucherRow struct {
	voucher   string
	date      time.Time
	account   string
	direction string
	amount    float64
}

func TestAccountingStrategyDerivesColumns(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	frame := createVoucherFrame(t, []voucherRow{
		{"V001", date, "1001", "D", 100},
		{"V001", date, "5301", "C", 100},
	})
	out, err := (&AccountingStrategy{}).Transform(frame, nil)
	require.Nil(t, err)
	for _, name := range []string{
		"year", "month", "day", "weekday", "period",
		"statement_type", "debit_amount", "credit_amount", "balanced",
	} {
		require.True(t, out.Schema().HasColumn(name), "missing column %s", name)
	}

	periods, err := out.Strings("period")
	require.Nil(t, err)
	require.Equal(t, "2024-03", periods[0])

	statements, err := out.Strings("statement_type")
	require.Nil(t, err)
	require.Equal(t, "balance_sheet", statements[0])    // 1xxx
	require.Equal(t, "income_statement", statements[1]) // 5xxx

	debits, err := out.Floats("debit_amount")
	require.Nil(t, err)
	credits, err := out.Floats("credit_amount")
	require.Nil(t, err)
	require.Equal(t, []float64{100, 0}, debits)
	require.Equal(t, []float64{0, 100}, credits)
}

func TestAccountingStrategyBalanceStamping(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	frame := createVoucherFrame(t, []voucherRow{
		// V001 balances exactly
		{"V001", date, "1001", "D", 250},
		{"V001", date, "5301", "C", 250},
		// V002 differs by exactly the tolerance; still balanced
		{"V002", date, "1122", "D", 100.00},
		{"V002", date, "5301", "C", 100.01},
		// V003 differs beyond the tolerance; every row stamped false
		{"V003", date, "1001", "D", 300},
		{"V003", date, "2202", "C", 200},
		{"V003", date, "5301", "C", 99.98},
	})
	out, err := (&AccountingStrategy{}).Transform(frame, nil)
	require.Nil(t, err)
	balanced, err := out.Bools("balanced")
	require.Nil(t, err)
	require.Equal(t, []bool{true, true, true, true, false, false, false}, balanced)
}

func TestAccountingStrategyDirectionFlags(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	frame := createVoucherFrame(t, []voucherRow{
		{"V1", date, "1001", "debit", 10},
		{"V1", date, "5301", "credit", 10},
		{"V2", date, "1001", "借", 20},
		{"V2", date, "5301", "贷", 20},
	})
	out, err := (&AccountingStrategy{}).Transform(frame, nil)
	require.Nil(t, err)
	debits, err := out.Floats("debit_amount")
	require.Nil(t, err)
	require.Equal(t, []float64{10, 0, 20, 0}, debits)
}

func TestAccountingStrategyCustomRules(t *testing.T) {
	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	frame := createVoucherFrame(t, []voucherRow{
		{"V1", date, "9901", "D", 5},
		{"V1", date, "Z001", "C", 5},
	})
	out, err := (&AccountingStrategy{}).Transform(frame, &Options{
		StatementRules: map[string]string{"99": "off_balance", "9": "income_statement"},
	})
	require.Nil(t, err)
	statements, err := out.Strings("statement_type")
	require.Nil(t, err)
	// longest matching prefix wins; unmatched codes are unclassified
	require.Equal(t, "off_balance", statements[0])
	require.Equal(t, "unclassified", statements[1])
}

func TestAccountingStrategyRequiresVoucherColumns(t *testing.T) {
	schema, err := quern.CreateSchema(quern.Column{Name: "date", Type: quern.TimeType})
	require.Nil(t, err)
	frame := quern.CreateFrame(schema)
	require.Nil(t, frame.AppendRow(time.Now()))
	_, err = (&AccountingStrategy{}).Transform(frame, nil)
	require.NotNil(t, err)
}
