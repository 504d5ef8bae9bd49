package datagen

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/format"
)

type account struct {
	code string
	name string
}

var accountCodes = []account{
	{"1001", "Cash"},
	{"1122", "Accounts Receivable"},
	{"2202", "Accounts Payable"},
	{"4001", "Share Capital"},
	{"5301", "Revenue"},
	{"6601", "Operating Expense"},
}

// VoucherGenerator writes one spreadsheet of double-entry vouchers per
// company, named vouchers_<company>.xlsx, with the columns the accounting
// transform strategy consumes. Every voucher balances unless Unbalanced asks
// for deliberately broken ones.
type VoucherGenerator struct {
	// Companies is the number of voucher books to generate. Defaults to 2.
	Companies int
	// Months is the number of months covered per book. Defaults to 2.
	Months int
	// VouchersPerMonth is the number of vouchers per month. Defaults to 20.
	VouchersPerMonth int
	// Unbalanced injects this many vouchers per book whose debit and credit
	// sums differ by more than the balance tolerance
	Unbalanced int
	// Start is the first voucher month. Defaults to 2024-01.
	Start time.Time
	// Seed fixes the generated data. Defaults to 1.
	Seed int64
}

func (g *VoucherGenerator) defaults() VoucherGenerator {
	out := *g
	if out.Companies < 1 {
		out.Companies = 2
	}
	if out.Months < 1 {
		out.Months = 2
	}
	if out.VouchersPerMonth < 1 {
		out.VouchersPerMonth = 20
	}
	if out.Start.IsZero() {
		out.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if out.Seed == 0 {
		out.Seed = 1
	}
	return out
}

// VoucherSchema returns the schema of generated voucher Frames
func VoucherSchema() (*quern.Schema, error) {
	return quern.CreateSchema(
		quern.Column{Name: "voucher_id", Type: quern.StringType},
		quern.Column{Name: "date", Type: quern.TimeType},
		quern.Column{Name: "company", Type: quern.StringType},
		quern.Column{Name: "account_code", Type: quern.StringType},
		quern.Column{Name: "account_name", Type: quern.StringType},
		quern.Column{Name: "direction", Type: quern.StringType},
		quern.Column{Name: "amount", Type: quern.FloatType},
	)
}

// Book generates the voucher Frame for one company index
func (g *VoucherGenerator) Book(company int) (*quern.Frame, error) {
	conf := g.defaults()
	schema, err := VoucherSchema()
	if err != nil {
		return nil, err
	}
	frame := quern.CreateFrame(schema)
	rng := rand.New(rand.NewSource(conf.Seed + int64(company)))
	companyName := fmt.Sprintf("C%02d", company)
	unbalancedLeft := conf.Unbalanced
	for month := 0; month < conf.Months; month++ {
		monthStart := conf.Start.AddDate(0, month, 0)
		for v := 0; v < conf.VouchersPerMonth; v++ {
			voucherID := fmt.Sprintf("%s-%s-%04d", companyName, monthStart.Format("200601"), v)
			date := monthStart.AddDate(0, 0, rng.Intn(28))
			amount := math.Round(rng.Float64()*100000*100) / 100
			debitAccount := accountCodes[rng.Intn(len(accountCodes))]
			creditAccount := accountCodes[rng.Intn(len(accountCodes))]
			creditAmount := amount
			if unbalancedLeft > 0 {
				creditAmount = amount + 5 // well past the 0.01 tolerance
				unbalancedLeft--
			}
			rows := []struct {
				account   account
				direction string
				amount    float64
			}{
				{debitAccount, "D", amount},
				{creditAccount, "C", creditAmount},
			}
			for _, row := range rows {
				err := frame.AppendRow(
					voucherID, date, companyName,
					row.account.code, row.account.name,
					row.direction, row.amount,
				)
				if err != nil {
					return nil, err
				}
			}
		}
	}
	return frame, nil
}

// Generate writes the voucher books into dir and returns their paths
func (g *VoucherGenerator) Generate(dir string) ([]string, error) {
	conf := g.defaults()
	codec, err := format.Detect("vouchers.xlsx")
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, conf.Companies)
	for company := 0; company < conf.Companies; company++ {
		frame, err := conf.Book(company)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, fmt.Sprintf("vouchers_C%02d.xlsx", company))
		if err := codec.Write(frame, path, codec.Defaults()); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
