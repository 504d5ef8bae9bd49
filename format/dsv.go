package format

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/go-quern/quern"
)

// utf8BOM is emitted by the utf-8-sig encoding and stripped on read
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// dsvCodec reads and writes delimiter-separated text (.csv, .txt).
//
// Read parameters: delimiter, header (bool, default true), schema, dtype,
// parse_dates. Write parameters: delimiter, index, encoding ("utf-8-sig"
// emits a byte-order mark), date_format.
type dsvCodec struct{}

// Kind returns the short name of this Codec's format family
func (c *dsvCodec) Kind() string { return "dsv" }

// Defaults returns the default parameters for this Codec
func (c *dsvCodec) Defaults() Params { return Params{} }

// Read reads a delimited text file into a Frame
func (c *dsvCodec) Read(path string, params Params) (*quern.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	// tolerate a BOM regardless of the encoding parameter
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	reader := csv.NewReader(br)
	reader.Comma = params.Rune("delimiter", ',')
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return quern.CreateFrame(nil), nil
	}
	var names []string
	if params.Bool("header", true) {
		names = rows[0]
		rows = rows[1:]
	} else {
		names = make([]string, len(rows[0]))
		for i := range names {
			names[i] = "col" + strconv.Itoa(i)
		}
	}
	return buildFrame(names, rows, params)
}

// Write serializes a Frame to a delimited text file
func (c *dsvCodec) Write(frame *quern.Frame, path string, params Params) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if params.String("encoding", "") == "utf-8-sig" {
		if _, err := bw.Write(utf8BOM); err != nil {
			return err
		}
	}
	writer := csv.NewWriter(bw)
	writer.Comma = params.Rune("delimiter", ',')
	header, cells := renderTable(frame, params)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range cells {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
