package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"transfer-recon/internal/reconcile/model"
	"transfer-recon/internal/utils"
)

// Веса и пороги основного цикла.
const (
	WeightDocument          = 40
	WeightProduct           = 0.45
	WeightUnit              = 5
	WeightValue             = 2
	ValueProximity          = 0.01 // доля от стоимости исходящей
	ProductThresholdQtyOK   = 40
	ProductThresholdQtyMiss = 85
	MinCommitScore          = 50
	QualityExcellentMin     = 90
	QualityGoodMin          = 75
	aggregatedScore         = 100
)

const (
	ReasonNoDocument = "no document number"
	ReasonOrphan     = "received without shipment"
)

// ErrNilInput — вызывающий передал nil вместо коллекции строк.
var ErrNilInput = errors.New("reconcile: nil input collection")

// candidate — лучшая на данный момент входящая для одной исходящей.
type candidate struct {
	in      int
	score   float64
	product ProductScore
	parts   []string
}

// Run — основная сверка: исходящие ↔ входящие.
// Каждая исходящая даёт ровно одну строку результата, затем идут
// «сиротские» входящие. Каждая входящая используется не более одного раза.
func Run(outbound, inbound []model.TransferRecord) (model.Result, error) {
	if outbound == nil || inbound == nil {
		return model.Result{}, fmt.Errorf("%w (outbound nil: %t, inbound nil: %t)",
			ErrNilInput, outbound == nil, inbound == nil)
	}

	// 1) Нормализация и разбор описаний — один раз на строку
	out, exOut := decorate(outbound)
	in, exIn := decorate(inbound)

	// 2) Индекс входящих по номеру документа
	idx := buildDocIndex(in)
	used := make(consumed, len(in))

	st := model.Stats{Excluded: exOut + exIn}
	rows := make([]model.AnalysisRow, 0, len(out))

	// 3) Сначала группы (одна входящая на несколько исходящих)
	agg := matchAggregates(out, in, idx, used)

	// 4) Построчный поиск
	for i, r := range out {
		if a, ok := agg[i]; ok {
			rows = append(rows, aggregatedRow(r, in[a.in], a))
			st.Conforming++
			st.MatchesAggregated++
			continue
		}

		best, found := findBest(r, in, idx[r.doc], used)
		if !found {
			rows = append(rows, notReceivedRow(r, notFoundReason(r.doc, idx)))
			st.NotFound++
			st.NonConforming++
			continue
		}
		used.take(best.in)

		row, conf := matchedRow(r, in[best.in], best)
		switch row.Quality {
		case model.QualityExcellent:
			st.MatchesExcellent++
		case model.QualityGood:
			st.MatchesGood++
		default:
			st.MatchesReasonable++
		}
		if conf.Conforming() {
			st.Conforming++
		} else {
			st.NonConforming++
			if !conf.ValueOK {
				st.ValueDivergent++
			}
			if !conf.QtyOK {
				st.QtyDivergent++
			}
		}
		rows = append(rows, row)
	}

	// 5) Входящие без исходящих
	for _, o := range findOrphans(out, in, used) {
		rows = append(rows, orphanRow(o))
		st.Orphans++
		st.NonConforming++
	}

	return model.Result{Rows: rows, Stats: st}, nil
}

// findBest перебирает свободных кандидатов с тем же номером документа.
// Побеждает строго больший балл; при равенстве остаётся первый найденный.
func findBest(r decorated, in []decorated, cands []int, used consumed) (candidate, bool) {
	var best candidate
	found := false
	for _, ci := range cands {
		if used.has(ci) {
			continue
		}
		c := in[ci]
		// номер документа — обязательное условие, не «мягкий» сигнал
		if r.doc == "" || c.doc != r.doc {
			continue
		}
		total := float64(WeightDocument)
		parts := []string{"Doc:✓" + r.doc}

		ps := ScoreProducts(r.desc, c.desc, true)
		threshold := ProductThresholdQtyMiss
		if math.Abs(c.rec.Qty-r.rec.Qty) < QtyTolerance {
			threshold = ProductThresholdQtyOK
		}
		if ps.Score < threshold {
			continue
		}
		total += float64(ps.Score) * WeightProduct
		parts = append(parts, fmt.Sprintf("Prod:%d%%", ps.Score))

		if sameUnit(r.src, c.src) || sameUnit(r.dst, c.dst) {
			total += WeightUnit
			parts = append(parts, "Unit:✓")
		}
		if v := r.rec.Value; v > 0 && math.Abs(v-c.rec.Value)/v <= ValueProximity {
			total += WeightValue
			parts = append(parts, "Value:≈")
		}

		if total >= MinCommitScore && (!found || total > best.score) {
			best = candidate{in: ci, score: total, product: ps, parts: parts}
			found = true
		}
	}
	return best, found
}

func sameUnit(a, b string) bool { return a != "" && a == b }

func notFoundReason(doc string, idx docIndex) string {
	switch {
	case doc == "":
		return ReasonNoDocument
	case len(idx[doc]) == 0:
		return fmt.Sprintf("document %s not found", doc)
	default:
		return fmt.Sprintf("document %s: no matching item", doc)
	}
}

func qualityTier(score float64) string {
	switch {
	case score >= QualityExcellentMin:
		return model.QualityExcellent
	case score >= QualityGoodMin:
		return model.QualityGood
	default:
		return model.QualityReasonable
	}
}

// ===== строки результата =====

func baseRow(r decorated) model.AnalysisRow {
	return model.AnalysisRow{
		Date:          r.rec.Date,
		Source:        r.src,
		Dest:          r.dst,
		Document:      r.doc,
		ProductOut:    r.rec.Product,
		ProductIn:     "-",
		Species:       r.rec.Species,
		ValueOut:      ptr(r.rec.Value),
		QtyOut:        ptr(r.rec.Qty),
		OutboundIndex: ptr(r.idx),
	}
}

func matchedRow(r, e decorated, best candidate) (model.AnalysisRow, Conformance) {
	conf := Classify(r.rec.Value, e.rec.Value, r.rec.Qty, e.rec.Qty)

	row := baseRow(r)
	row.InboundDate = e.rec.Date
	row.ProductIn = e.rec.Product
	row.ValueIn = ptr(e.rec.Value)
	row.ValueDiff = ptr(conf.ValueDiff)
	row.QtyIn = ptr(e.rec.Qty)
	row.QtyDiff = ptr(conf.QtyDiff)
	row.LeadTimeDays = leadTime(r.rec.Date, e.rec.Date)
	row.Quality = qualityTier(best.score)
	row.Score = ptr(best.score)
	row.ProductDetail = best.product.Detail
	row.Notes = fmt.Sprintf("Score:%.0f%% | %s", best.score, strings.Join(best.parts, " | "))
	row.InboundIndex = ptr(e.idx)
	if conf.Conforming() {
		row.Status = model.StatusConforming
		row.Divergence = "-"
	} else {
		row.Status = model.StatusNonConforming
		row.Divergence = conf.Reason()
	}
	return row, conf
}

// Участник группы: считается соответствующим, стоимость — пропорциональная доля.
func aggregatedRow(r, e decorated, a aggregateMatch) model.AnalysisRow {
	row := baseRow(r)
	row.InboundDate = e.rec.Date
	row.ProductIn = e.rec.Product
	row.ValueIn = ptr(a.valueIn)
	row.ValueDiff = ptr(utils.Round2(r.rec.Value - a.valueIn))
	row.QtyIn = ptr(a.qtyIn)
	row.QtyDiff = ptr(utils.Round2(r.rec.Qty - a.qtyIn))
	row.LeadTimeDays = leadTime(r.rec.Date, e.rec.Date)
	row.Status = model.StatusConforming
	row.Divergence = "-"
	row.Quality = model.QualityAggregated
	row.Score = ptr(float64(aggregatedScore))
	row.ProductDetail = a.product.Detail
	row.Notes = fmt.Sprintf("Score:%d%% | Aggregated (sum of %d items)", aggregatedScore, a.size)
	row.InboundIndex = ptr(e.idx)
	return row
}

func notReceivedRow(r decorated, reason string) model.AnalysisRow {
	row := baseRow(r)
	row.Status = model.StatusNotReceived
	row.Divergence = reason
	row.Quality = "-"
	row.ProductDetail = "-"
	row.Notes = "no counterpart"
	return row
}

func orphanRow(e decorated) model.AnalysisRow {
	return model.AnalysisRow{
		Date:          e.rec.Date,
		InboundDate:   e.rec.Date,
		Source:        e.src,
		Dest:          e.dst,
		Document:      e.doc,
		ProductOut:    "-",
		ProductIn:     e.rec.Product,
		Species:       e.rec.Species,
		ValueIn:       ptr(e.rec.Value),
		QtyIn:         ptr(e.rec.Qty),
		Status:        model.StatusNonConforming,
		Divergence:    ReasonOrphan,
		Quality:       "-",
		ProductDetail: "-",
		Notes:         "orphan inbound",
		InboundIndex:  ptr(e.idx),
	}
}

// дни от отправки до получения, если обе даты известны
func leadTime(sent, received time.Time) *int {
	if sent.IsZero() || received.IsZero() {
		return nil
	}
	d := int(math.Floor(received.Sub(sent).Hours() / 24))
	return &d
}

func ptr[T any](v T) *T { return &v }
