package fileio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ReadAnyMaps picks a parser by extension and returns rows as []map[header]value.
// headerRow is 1-based.
func ReadAnyMaps(r io.Reader, filename string, headerRow int) ([]map[string]string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		return readXLSX(r, headerRow)
	case ".xls":
		return readXLS(r, headerRow)
	case ".csv", ".txt":
		return readCSV(r, headerRow)
	default:
		return nil, fmt.Errorf("unsupported file: %s", filename)
	}
}

// Ledger is the side of a transfer a file belongs to.
type Ledger int

const (
	LedgerUnknown Ledger = iota
	LedgerOutbound
	LedgerInbound
)

var (
	outboundHints = []string{"saida", "saída", "concedido", "envio"}
	inboundHints  = []string{"entrada", "recebido"}
)

// LedgerOf guesses the ledger from a file name ("Saidas_Marco.xlsx" -> outbound).
func LedgerOf(filename string) Ledger {
	name := strings.ToLower(filepath.Base(filename))
	for _, h := range outboundHints {
		if strings.Contains(name, h) {
			return LedgerOutbound
		}
	}
	for _, h := range inboundHints {
		if strings.Contains(name, h) {
			return LedgerInbound
		}
	}
	return LedgerUnknown
}

// normalizeCell trims ordinary and non-breaking spaces.
func normalizeCell(s string) string {
	s = strings.NewReplacer("\u00A0", " ", "\u202F", " ").Replace(s)
	return strings.TrimSpace(s)
}

// pickHeader takes the header row and fills empty names with "Column N".
func pickHeader(rows [][]string, headerRow int) []string {
	idx := headerRow - 1
	if idx < 0 || idx >= len(rows) {
		idx = 0
	}
	h := rows[idx]
	out := make([]string, len(h))
	for i, v := range h {
		v = strings.TrimSpace(v)
		if v == "" {
			v = fmt.Sprintf("Column %d", i+1)
		}
		out[i] = v
	}
	return out
}

// rowsToMaps converts rows below the header into maps, skipping blank rows.
func rowsToMaps(rows [][]string, headers []string, headerRow int) []map[string]string {
	var out []map[string]string
	for r := max(headerRow, 1); r < len(rows); r++ {
		rec := rows[r]
		m := make(map[string]string, len(headers))
		empty := true
		for c, name := range headers {
			var v string
			if c < len(rec) {
				v = rec[c]
			}
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			m[name] = v
		}
		if !empty {
			out = append(out, m)
		}
	}
	return out
}
