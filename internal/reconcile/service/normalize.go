package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"transfer-recon/internal/reconcile/model"
)

// Единицы измерения: вариант → стандарт (замена целым словом)
var measureSynonyms = map[string]string{
	"GR": "G", "GRAMA": "G", "GRAMAS": "G",
	"MILIGRAMA": "MG", "MILIGRAMAS": "MG",
	"MILILITRO": "ML", "MILILITROS": "ML",
	"MICROGRAMA": "MCG", "MICROGRAMAS": "MCG",
	"UNIDADE": "UI", "UNIDADES": "UI",
	"LITRO": "L", "LITROS": "L",
	"METRO": "M", "METROS": "M",
	"CENTIMETRO": "CM", "CENTIMETROS": "CM",
	"MILIMETRO": "MM", "MILIMETROS": "MM",
}

var reMeasureWord = func() *regexp.Regexp {
	words := make([]string, 0, len(measureSynonyms))
	for w := range measureSynonyms {
		words = append(words, w)
	}
	// длинные варианты раньше коротких
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return regexp.MustCompile(`\b(` + strings.Join(words, "|") + `)\b`)
}()

// Порядок важен: берётся первое вхождение подстрокой.
var formVocabulary = []string{
	"AMPOLA", "AMP", "COMPRIMIDO", "COMP", "CP", "CAPSULA", "CAPS",
	"FRASCO", "FR", "SERINGA", "SER", "BOLSA", "ENVELOPE", "ENV",
	"TUBO", "BISNAGA", "SACHE", "BLISTER", "CARTELA",
	"POTE", "VIDRO", "UNIDADE", "UN", "CAIXA", "CX",
}

var stopWords = map[string]struct{}{
	"DE": {}, "DA": {}, "DO": {}, "COM": {}, "PARA": {}, "EM": {}, "A": {}, "O": {}, "E": {}, "C/": {},
	"SOLUCAO": {}, "SOL": {}, "INJETAVEL": {}, "INJ": {}, "ORAL": {}, "USO": {}, "ADULTO": {},
	"PEDIATRICO": {}, "ESTERIL": {}, "DESCARTAVEL": {}, "DESC": {},
}

const (
	maxKeywords       = 5
	principalKeywords = 2
)

const concUnit = `MG|G|ML|MCG|UI|L`

var (
	// 10MG/2ML, 0,9%/100ML
	reConcRatio = regexp.MustCompile(`(\d+[,.]?\d*)\s*(` + concUnit + `|%)\s*/\s*(\d+[,.]?\d*)\s*(` + concUnit + `)`)
	// 500MG, 0,9% (но не числитель дроби — проверяется после поиска)
	reConcBare  = regexp.MustCompile(`(\d+[,.]?\d*)\s*(` + concUnit + `|%)`)
	reSlashNext = regexp.MustCompile(`^\s*/`)

	reQtyHint   = regexp.MustCompile(`(?:C/|C |X|COM )\s*(\d+)`)
	reDimension = regexp.MustCompile(`\d+\.?\d*\s*[xX]\s*\d+\.?\d*`)
	reNumber    = regexp.MustCompile(`\d+\.?\d*`)
	reNonWord   = regexp.MustCompile(`[^\w\s]`)
	decComma    = regexp.MustCompile(`(\d),(\d)`)
)

// Decompose раскладывает свободное описание товара на признаки.
// Пустое или мусорное описание даёт пустой дескриптор.
func Decompose(desc string) model.Descriptor {
	s := strings.ToUpper(strings.TrimSpace(stripDiacritics(desc)))
	s = normalizeMeasureUnits(s)

	d := model.Descriptor{Original: s, Keywords: []string{}}
	if s == "" {
		return d
	}

	d.Normalized = collapseSpaces(reNonWord.ReplaceAllString(s, " "))
	d.Concentration = extractConcentration(s)

	for _, f := range formVocabulary {
		if strings.Contains(s, f) {
			d.Form = f
			break
		}
	}

	if m := reQtyHint.FindStringSubmatch(s); m != nil {
		d.QuantityHint = m[1]
	}

	if dim := reDimension.FindString(decComma.ReplaceAllString(s, "$1.$2")); dim != "" {
		d.Dimension = normalizeDimension(dim)
	}

	for _, w := range strings.Fields(d.Normalized) {
		if _, stop := stopWords[w]; stop || len(w) <= 2 {
			continue
		}
		d.Keywords = append(d.Keywords, w)
		if len(d.Keywords) == maxKeywords {
			break
		}
	}
	if len(d.Keywords) > 0 {
		n := min(principalKeywords, len(d.Keywords))
		d.Principal = strings.Join(d.Keywords[:n], " ")
	}
	return d
}

// ===== helpers =====

// É→E, Ç→C и т.п.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func normalizeMeasureUnits(s string) string {
	return reMeasureWord.ReplaceAllStringFunc(s, func(w string) string {
		return measureSynonyms[w]
	})
}

// Сначала все дроби, потом одиночные значения; запятая → точка.
func extractConcentration(s string) string {
	var out []string
	for _, m := range reConcRatio.FindAllString(s, -1) {
		out = append(out, strings.ReplaceAll(m, ",", "."))
	}
	for _, loc := range reConcBare.FindAllStringIndex(s, -1) {
		if reSlashNext.MatchString(s[loc[1]:]) {
			continue
		}
		out = append(out, strings.ReplaceAll(s[loc[0]:loc[1]], ",", "."))
	}
	return strings.Join(out, " ")
}

// "10 x 5" и "5X10" → "5X10"
func normalizeDimension(dim string) string {
	nums := reNumber.FindAllString(strings.ReplaceAll(dim, " ", ""), -1)
	vals := make([]float64, 0, len(nums))
	for _, n := range nums {
		if v, err := strconv.ParseFloat(n, 64); err == nil {
			vals = append(vals, v)
		}
	}
	sort.Float64s(vals)
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, "X")
}

// Схлопывание пробелов
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
