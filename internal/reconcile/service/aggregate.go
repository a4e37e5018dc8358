package service

import (
	"math"

	"transfer-recon/internal/utils"
)

const (
	AggregateQtyEpsilon     = 0.1
	AggregateThresholdQtyOK = 70

	// Порог для группы с несошедшимся количеством. Не применяется:
	// такая группа отбрасывается до оценки товара; оставлен для сверки
	// с исходными правилами.
	AggregateThresholdQtyMiss = 85
	aggregateMinGroup         = 2
)

// aggregateMatch — доля одной входящей строки, приходящаяся на участника группы.
type aggregateMatch struct {
	in      int // позиция во входящих
	valueIn float64
	qtyIn   float64
	size    int
	product ProductScore
}

type groupKey struct {
	doc     string
	product string
}

// matchAggregates ищет группы исходящих с одним документом и товаром,
// которые вместе соответствуют одной входящей строке (приход одной партией).
// Найденные входящие помечаются в used; ключ результата — позиция исходящей.
func matchAggregates(out, in []decorated, idx docIndex, used consumed) map[int]aggregateMatch {
	var order []groupKey
	groups := make(map[groupKey][]int)
	for i, r := range out {
		if r.doc == "" {
			continue
		}
		k := groupKey{doc: r.doc, product: r.rec.Product}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	res := make(map[int]aggregateMatch)
	for _, k := range order {
		members := groups[k]
		if len(members) < aggregateMinGroup {
			continue
		}
		desc := out[members[0]].desc
		total := 0.0
		for _, m := range members {
			total += out[m].rec.Qty
		}

		for _, ci := range idx[k.doc] {
			if used.has(ci) {
				continue
			}
			cand := in[ci]
			if math.Abs(cand.rec.Qty-total) >= AggregateQtyEpsilon {
				continue
			}
			ps := ScoreProducts(desc, cand.desc, true)
			if ps.Score < AggregateThresholdQtyOK {
				continue
			}

			used.take(ci)
			for _, m := range members {
				part, whole := out[m].rec.Qty, total
				if whole == 0 {
					part, whole = 1, float64(len(members))
				}
				res[m] = aggregateMatch{
					in:      ci,
					valueIn: utils.Share(cand.rec.Value, part, whole),
					qtyIn:   utils.Share(cand.rec.Qty, part, whole),
					size:    len(members),
					product: ps,
				}
			}
			break
		}
	}
	return res
}
