package datagen

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/format"
)

func TestSalesDayIsDeterministic(t *testing.T) {
	gen := SalesGenerator{RowsPerDay: 10}
	first, err := gen.Day(0)
	require.Nil(t, err)
	second, err := gen.Day(0)
	require.Nil(t, err)
	require.Equal(t, 10, first.NumRows())
	for row := 0; row < first.NumRows(); row++ {
		for col := 0; col < first.NumColumns(); col++ {
			require.Equal(t, first.Value(row, col), second.Value(row, col))
		}
	}

	// a different seed changes the data
	other, err := (&SalesGenerator{RowsPerDay: 10, Seed: 99}).Day(0)
	require.Nil(t, err)
	same := true
	for row := 0; row < first.NumRows() && same; row++ {
		same = first.Value(row, 9) == other.Value(row, 9)
	}
	require.False(t, same)
}

func TestSalesDayTotalsAreConsistent(t *testing.T) {
	gen := SalesGenerator{RowsPerDay: 50}
	frame, err := gen.Day(2)
	require.Nil(t, err)
	quantities, err := frame.Ints("quantity")
	require.Nil(t, err)
	unitPrices, err := frame.Floats("unit_price")
	require.Nil(t, err)
	discounts, err := frame.Floats("discount")
	require.Nil(t, err)
	totals, err := frame.Floats("total_price")
	require.Nil(t, err)
	for i := range totals {
		want := math.Round(float64(quantities[i])*unitPrices[i]*(1-discounts[i])*100) / 100
		require.InDelta(t, want, totals[i], 0.001)
		require.True(t, quantities[i] >= 1 && quantities[i] <= 10)
		require.True(t, discounts[i] >= 0 && discounts[i] <= 0.3)
	}
}

func TestSalesGenerateWritesDailyFiles(t *testing.T) {
	dir := t.TempDir()
	gen := SalesGenerator{Days: 3, RowsPerDay: 5}
	paths, err := gen.Generate(dir)
	require.Nil(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "sales_20240101.csv"),
		filepath.Join(dir, "sales_20240102.csv"),
		filepath.Join(dir, "sales_20240103.csv"),
	}, paths)

	codec, err := format.Detect(paths[0])
	require.Nil(t, err)
	frame, err := codec.Read(paths[0], format.Params{"parse_dates": []string{"date"}})
	require.Nil(t, err)
	require.Equal(t, 5, frame.NumRows())
	schema, err := SalesSchema()
	require.Nil(t, err)
	for _, name := range schema.ColumnNames() {
		require.True(t, frame.Schema().HasColumn(name), "missing column %s", name)
	}
}

// voucherSums returns the per-voucher debit and credit totals of a book
func voucherSums(t *testing.T, frame *quern.Frame) (map[string]float64, map[string]float64) {
	ids, err := frame.Strings("voucher_id")
	require.Nil(t, err)
	directions, err := frame.Strings("direction")
	require.Nil(t, err)
	amounts, err := frame.Floats("amount")
	require.Nil(t, err)
	debits := make(map[string]float64)
	credits := make(map[string]float64)
	for i, id := range ids {
		if directions[i] == "D" {
			debits[id] += amounts[i]
		} else {
			credits[id] += amounts[i]
		}
	}
	return debits, credits
}

func TestVoucherBooksBalance(t *testing.T) {
	gen := VoucherGenerator{Months: 2, VouchersPerMonth: 10}
	book, err := gen.Book(0)
	require.Nil(t, err)
	// two rows per voucher, a debit and a credit
	require.Equal(t, 40, book.NumRows())

	debits, credits := voucherSums(t, book)
	require.Equal(t, 20, len(debits))
	for id, debit := range debits {
		require.InDelta(t, debit, credits[id], 0.001, "voucher %s does not balance", id)
	}
}

func TestVoucherUnbalancedInjection(t *testing.T) {
	gen := VoucherGenerator{Months: 1, VouchersPerMonth: 10, Unbalanced: 3}
	book, err := gen.Book(1)
	require.Nil(t, err)

	debits, credits := voucherSums(t, book)
	broken := 0
	for id, debit := range debits {
		if math.Abs(debit-credits[id]) > 0.01 {
			broken++
		}
	}
	require.Equal(t, 3, broken)
}

func TestVoucherGenerateWritesSpreadsheets(t *testing.T) {
	dir := t.TempDir()
	gen := VoucherGenerator{Companies: 2, Months: 1, VouchersPerMonth: 4}
	paths, err := gen.Generate(dir)
	require.Nil(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "vouchers_C00.xlsx"),
		filepath.Join(dir, "vouchers_C01.xlsx"),
	}, paths)

	codec, err := format.Detect(paths[1])
	require.Nil(t, err)
	frame, err := codec.Read(paths[1], nil)
	require.Nil(t, err)
	require.Equal(t, 8, frame.NumRows())
	companies, err := frame.Strings("company")
	require.Nil(t, err)
	for _, company := range companies {
		require.Equal(t, "C01", company)
	}
}
