// нормализуем имена колонок и превращаем строки таблиц в записи журнала
package handler

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"transfer-recon/internal/reconcile/model"
	"transfer-recon/internal/utils"
)

// Заголовки, которые встречаются в выгрузках разных больниц.
const (
	defDateKey    = "Data|DATA|Data Transação|Data Movimento"
	defSourceKey  = "Unidade Origem|Origem|Filial Saida"
	defDestKey    = "Unidade Destino|Destino|Filial Entrada"
	defDocKey     = "Documento|NF|Nr Doc|Nota Fiscal"
	defProductKey = "Produto|Descricao|ds_produto|Descrição Produto"
	defSpeciesKey = "Especie|Espécie|Categoria"
	defValueKey   = "Valor|VLR TOTAL|valor_total|Valor Total"
	defQtyKey     = "Qtd|Quantidade|qt_entrada|Qtde"
)

var reNonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// нижний регистр, без диакритики и служебных символов, одиночные пробелы
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	// цепочка с состоянием — своя на каждый вызов
	deaccent := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = reNonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Корни слов: если и желаемое имя, и колонка содержат один корень — сильный сигнал.
var headerStems = []string{"data", "origem", "destino", "document", "produto", "descri", "especie", "valor", "qt", "quant"}

// ищем реальный ключ в записи по желаемому имени.
// Поддерживает варианты через "|" (например: "Documento|NF|Nr Doc")
func resolveKey(rec map[string]string, want string) string {
	want = strings.TrimSpace(want)
	if want == "" {
		return ""
	}
	alts := strings.Split(want, "|")
	for i := range alts {
		alts[i] = strings.TrimSpace(alts[i])
	}

	// 1) точное совпадение (как есть)
	for _, a := range alts {
		if _, ok := rec[a]; ok {
			return a
		}
	}

	// 2) нормализованные сравнения и contains (для составных заголовков)
	nWantAll := make([]string, 0, len(alts))
	for _, a := range alts {
		if n := normHeaderKey(a); n != "" {
			nWantAll = append(nWantAll, n)
		}
	}

	bestKey := ""
	bestScore := 0
	for k := range rec {
		nk := normHeaderKey(k)
		if nk == "" {
			continue
		}
		for _, n := range nWantAll {
			if nk == n {
				return k
			}
		}
		score := 0
		for _, n := range nWantAll {
			if strings.Contains(nk, n) || strings.Contains(n, nk) {
				score = max(score, len(n))
			}
		}
		if score > 0 {
			for _, st := range headerStems {
				if strings.HasPrefix(nWantAll[0], st) && strings.HasPrefix(nk, st) {
					score += 100
					break
				}
			}
		}
		// при равенстве — лексикографически меньший ключ, чтобы не зависеть от порядка map
		if score > bestScore || (score == bestScore && score > 0 && k < bestKey) {
			bestScore, bestKey = score, k
		}
	}
	return bestKey
}

func mappingFrom(r *http.Request, prefix string, headerRow int) model.Mapping {
	get := func(name, def string) string {
		if v := strings.TrimSpace(r.FormValue(prefix + name)); v != "" {
			return v
		}
		return def
	}
	return model.Mapping{
		DateKey:    get("date", defDateKey),
		SourceKey:  get("source", defSourceKey),
		DestKey:    get("dest", defDestKey),
		DocKey:     get("doc", defDocKey),
		ProductKey: get("product", defProductKey),
		SpeciesKey: get("species", defSpeciesKey),
		ValueKey:   get("value", defValueKey),
		QtyKey:     get("qty", defQtyKey),
		HeaderRow:  atoi(r.FormValue(prefix+"header_row"), headerRow),
	}
}

func toRecords(maps []map[string]string, m model.Mapping) []model.TransferRecord {
	recs := make([]model.TransferRecord, 0, len(maps))
	if len(maps) == 0 {
		return recs
	}
	// ключи резолвим по первой записи: у всех строк одной таблицы они одинаковые
	first := maps[0]
	keys := struct{ date, src, dst, doc, prod, spec, val, qty string }{
		date: resolveKey(first, m.DateKey),
		src:  resolveKey(first, m.SourceKey),
		dst:  resolveKey(first, m.DestKey),
		doc:  resolveKey(first, m.DocKey),
		prod: resolveKey(first, m.ProductKey),
		spec: resolveKey(first, m.SpeciesKey),
		val:  resolveKey(first, m.ValueKey),
		qty:  resolveKey(first, m.QtyKey),
	}

	for _, rec := range maps {
		// пропуск повторных шапок и строк итогов
		if looksLikeHeaderMap(rec) {
			continue
		}
		prod := strings.TrimSpace(rec[keys.prod])
		doc := strings.TrimSpace(rec[keys.doc])
		if prod == "" && doc == "" {
			continue
		}
		date, _ := utils.ParseDate(rec[keys.date])
		val, _ := utils.ParseFloatBR(rec[keys.val])
		qty, _ := utils.ParseFloatBR(rec[keys.qty])
		recs = append(recs, model.TransferRecord{
			Date:     date,
			Source:   strings.TrimSpace(rec[keys.src]),
			Dest:     strings.TrimSpace(rec[keys.dst]),
			Document: doc,
			Product:  prod,
			Species:  strings.TrimSpace(rec[keys.spec]),
			Value:    val,
			Qty:      qty,
		})
	}
	return recs
}

func looksLikeHeaderMap(m map[string]string) bool {
	cnt := 0
	for _, v := range m {
		s := normHeaderKey(v)
		if s == "produto" || s == "documento" || s == "quantidade" || strings.HasPrefix(s, "total geral") {
			cnt++
		}
	}
	return cnt >= 2
}
