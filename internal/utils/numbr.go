package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	excelize "github.com/xuri/excelize/v2"
)

var rxKeepNums = regexp.MustCompile(`[^\d\.\-]`)

// ParseFloatBR парсит "1.234,50", "197,00", "1.234.567", "12.000", "3.5" и т.п.
// Точка — разделитель тысяч, если есть запятая, если точек несколько
// или если после единственной точки "000"/больше трёх цифр.
func ParseFloatBR(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// убрать неразрывные/узкие пробелы и обычные пробелы
	s = strings.NewReplacer("\u00A0", "", "\u202F", "", " ", "", "\t", "", "R$", "").Replace(s)

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, ","):
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, "."):
		parts := strings.Split(s, ".")
		if len(parts) > 2 || parts[1] == "000" || len(parts[1]) > 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	// оставить только цифры, точку и минус (на случай мусора)
	s = rxKeepNums.ReplaceAllString(s, "")
	if s == "" || s == "-" || s == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// 9999-12-31
const maxExcelSerial = 2958466

var dateLayouts = []string{
	"02/01/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01-02-06", // так excelize форматирует даты без стиля
	"02/01/06",
}

// ParseDate распознаёт дату в привычных форматах таблиц и серийный номер Excel.
// Нераспознанная дата → zero time, false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
			return t, true
		}
	}
	// серийный номер Excel (ячейка без формата даты)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f < maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return t.Round(time.Second), true
		}
	}
	return time.Time{}, false
}

// Round2 — округление денег/количеств до сотых (half away from zero).
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Share делит total пропорционально part/whole без накопления ошибки float.
func Share(total, part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromFloat(total).
		Mul(decimal.NewFromFloat(part)).
		Div(decimal.NewFromFloat(whole)).
		InexactFloat64()
}
