package service

import (
	"math"
	"regexp"

	"transfer-recon/internal/reconcile/model"
)

var reDocDigits = regexp.MustCompile(`\d+`)

// DocNumber — первая группа цифр свободного номера документа ("NF-000991/A" → "000991").
func DocNumber(doc string) string {
	return reDocDigits.FindString(doc)
}

// decorated — запись и посчитанные один раз производные поля.
// Сама запись после декорирования не меняется.
type decorated struct {
	rec  model.TransferRecord
	idx  int // позиция во входном срезе
	src  string
	dst  string
	doc  string
	desc model.Descriptor
}

// decorate нормализует записи и отбрасывает исключённые подразделения.
func decorate(rows []model.TransferRecord) (out []decorated, excluded int) {
	out = make([]decorated, 0, len(rows))
	for i, r := range rows {
		r.Value, r.Qty = finite(r.Value), finite(r.Qty)
		src, dst := NormalizeUnit(r.Source), NormalizeUnit(r.Dest)
		if IsExcludedUnit(src) || IsExcludedUnit(dst) {
			excluded++
			continue
		}
		out = append(out, decorated{
			rec:  r,
			idx:  i,
			src:  src,
			dst:  dst,
			doc:  DocNumber(r.Document),
			desc: Decompose(r.Product),
		})
	}
	return out, excluded
}

// NaN и ±Inf считаются нулём, как и нераспознанное число
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// индекс входящих по номеру документа; позиции в порядке входа
type docIndex map[string][]int

func buildDocIndex(rows []decorated) docIndex {
	idx := make(docIndex)
	for i, r := range rows {
		if r.doc == "" {
			continue
		}
		idx[r.doc] = append(idx[r.doc], i)
	}
	return idx
}

// consumed — какие входящие уже связаны с исходящими. Только растёт.
type consumed []bool

func (c consumed) take(i int)     { c[i] = true }
func (c consumed) has(i int) bool { return c[i] }
