package service

import (
	"math"
	"strings"

	"transfer-recon/internal/utils"
)

// Допуски сверки (бизнес-правила).
const (
	QtyTolerance           = 0.01
	SmallValueLimit        = 10.0 // ниже — «мелкая» позиция
	SmallValueTolerance    = 1.0
	ValueAbsTolerance      = 10.0
	ValuePctTolerance      = 10.0 // %
	ValueTolerancePctShare = 0.10
)

const (
	ReasonValue = "value divergence"
	ReasonQty   = "quantity divergence"
)

// Conformance — результат проверки одной пары.
type Conformance struct {
	ValueDiff float64 // out − in, округлено до сотых
	QtyDiff   float64
	ValueOK   bool
	QtyOK     bool
}

func (c Conformance) Conforming() bool { return c.ValueOK && c.QtyOK }

// Reason — через " | ", пусто для соответствующей пары.
func (c Conformance) Reason() string {
	var parts []string
	if !c.ValueOK {
		parts = append(parts, ReasonValue)
	}
	if !c.QtyOK {
		parts = append(parts, ReasonQty)
	}
	return strings.Join(parts, " | ")
}

// Classify проверяет пару по количеству и стоимости.
// Допуск по стоимости зависит от того, сошлось ли количество.
func Classify(valueOut, valueIn, qtyOut, qtyIn float64) Conformance {
	c := Conformance{
		ValueDiff: utils.Round2(valueOut - valueIn),
		QtyDiff:   utils.Round2(qtyOut - qtyIn),
	}
	c.QtyOK = math.Abs(c.QtyDiff) < QtyTolerance

	absDiff := math.Abs(c.ValueDiff)
	switch {
	case !c.QtyOK:
		c.ValueOK = absDiff <= ValueAbsTolerance
	case valueOut < SmallValueLimit:
		c.ValueOK = absDiff <= SmallValueTolerance
	default:
		limit := math.Max(ValueAbsTolerance, valueOut*ValueTolerancePctShare)
		c.ValueOK = absDiff <= limit || pctDiff(c.ValueDiff, valueOut) <= ValuePctTolerance
	}
	return c
}

func pctDiff(diff, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return math.Abs(diff / base * 100)
}
