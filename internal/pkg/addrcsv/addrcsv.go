// Package addrcsv pulls address-like cells out of uploaded CSV files.
//
// Any trimmed, non-empty cell containing "@" is a candidate; there is no
// further address grammar check, so files with arbitrary column layouts
// work. Results are deduplicated by exact match in first-seen order.
package addrcsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/samber/lo"
)

var bom = []byte("\ufeff")

// Extract returns the distinct address candidates of raw in the order they
// first appear. Malformed rows are skipped; Extract never fails.
func Extract(raw []byte) []string {
	raw = bytes.TrimPrefix(raw, bom)
	raw = bytes.ToValidUTF8(raw, nil)

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	var candidates []string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			break
		}

		for _, cell := range row {
			if cell = strings.TrimSpace(cell); strings.Contains(cell, "@") {
				candidates = append(candidates, cell)
			}
		}
	}

	return lo.Uniq(candidates)
}
