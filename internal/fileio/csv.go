package fileio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// readCSV reads CSV with headerRow (1-based), auto-detecting encoding and converting to UTF-8.
// Exports from the hospital ERP are usually Windows-1252 or ISO-8859-1 with ";" separators.
func readCSV(r io.Reader, headerRow int) ([]map[string]string, error) {
	br := bufio.NewReader(r)

	// Peek a bit to detect encoding and separator
	peek, _ := br.Peek(4096)
	cs := "utf-8"
	if len(peek) > 0 && !isUTF8(peek) {
		if det, err := chardet.NewTextDetector().DetectBest(peek); err == nil && det != nil {
			cs = strings.ToLower(det.Charset)
		}
	}

	var dec io.Reader = br
	switch cs {
	case "windows-1252", "cp1252":
		dec = transform.NewReader(br, charmap.Windows1252.NewDecoder())
	case "iso-8859-1", "latin1":
		dec = transform.NewReader(br, charmap.ISO8859_1.NewDecoder())
	default:
		// assume UTF-8, drop BOM
		if bytes.HasPrefix(peek, []byte("\xEF\xBB\xBF")) {
			_, _ = br.Discard(3)
		}
	}

	cr := csv.NewReader(dec)
	cr.Comma = sniffComma(peek, headerRow)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	h := pickHeader(rows, headerRow)
	return rowsToMaps(rows, h, headerRow), nil
}

// sniffComma picks ";" when the header line has more of them than commas.
// Data lines are not looked at: decimal commas would skew the count.
func sniffComma(peek []byte, headerRow int) rune {
	lines := bytes.Split(peek, []byte("\n"))
	line := lines[0]
	if i := headerRow - 1; i > 0 && i < len(lines) {
		line = lines[i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// isUTF8 ignores a multibyte sequence cut at the end of the peek buffer.
func isUTF8(b []byte) bool {
	for i := 0; i < 4 && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}
