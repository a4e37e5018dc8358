package service

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"transfer-recon/internal/reconcile/model"
)

// Веса признаков. Это бизнес-правила, а не подобранные по ходу значения.
const (
	WeightSynonym          = 15
	WeightText             = 30
	WeightPrincipal        = 35
	WeightConcExact        = 20
	WeightConcNumeric      = 15
	WeightConcFuzzy        = 15
	PenaltyConc            = -25
	WeightDimExact         = 15
	WeightDimTwoShared     = 10
	WeightDimOneShared     = 5
	PenaltyDim             = -15
	WeightFormMatch        = 10
	PenaltyForm            = -10
	WeightKeywords         = 5
	concNumericOverlapMin  = 0.5
	concFuzzyMinSimilarity = 0.7
)

type synonymGroup struct {
	term string
	alts []string
}

// Взаимозаменяемые термины: если term есть в одном описании,
// а любой из alts — в другом, это сильный сигнал.
var productSynonyms = []synonymGroup{
	{"AVENTAL", []string{"CAPOTE", "AVENTAL", "JALECO"}},
	{"CAPOTE", []string{"AVENTAL", "CAPOTE", "JALECO"}},
	{"JALECO", []string{"AVENTAL", "CAPOTE", "JALECO"}},
	{"ALGODAO", []string{"POLYCOT", "ALGODAO", "COTTON"}},
	{"GAZE", []string{"COMPRESSA", "GAZE"}},
	{"COMPRESSA", []string{"GAZE", "COMPRESSA"}},
	{"SORO", []string{"SOLUCAO", "SORO", "SOL"}},
	{"SOLUCAO", []string{"SORO", "SOLUCAO", "SOL"}},
	{"SALINA", []string{"NACL", "CLORETO", "SALINA", "SF"}},
	{"SF", []string{"SALINA", "NACL", "CLORETO", "SF"}},
	{"AMPOLA", []string{"AMP", "AMPOLA", "FRAMP", "FRASCOAMPOLA"}},
	{"COMPRIMIDO", []string{"COMP", "CP", "COMPRIMIDO", "DRAGEA"}},
	{"CAPSULA", []string{"CAPS", "CAPSULA", "CAP"}},
	{"INJETAVEL", []string{"INJ", "INJETAVEL", "IV", "IM", "SC"}},
	{"ORAL", []string{"VO", "ORAL", "BUCAL"}},
	{"DIPIRONA", []string{"METAMIZOL", "DIPIRONA", "NOVALGINA"}},
	{"PARACETAMOL", []string{"ACETAMINOFENO", "PARACETAMOL"}},
	{"OMEPRAZOL", []string{"OMEPRAZOL", "LOSEC"}},
	{"DICLOFENACO", []string{"DICLOFENACO", "VOLTAREN", "CATAFLAM"}},
	{"GLICOSE", []string{"DEXTROSE", "GLICOSE"}},
}

// Группы эквивалентных форм выпуска.
var formEquivalents = [][]string{
	{"AMP", "AMPOLA", "FR/AMP", "FRASCO/AMPOLA"},
	{"COMP", "CP", "COMPRIMIDO"},
	{"CAPS", "CAPSULA"},
	{"FR", "FRASCO", "FR/AMP"},
	{"SER", "SERINGA"},
	{"ENV", "ENVELOPE"},
	{"CX", "CAIXA"},
}

// ProductScore — итог сравнения двух описаний; Score может быть > 100 и < 0.
type ProductScore struct {
	Score  int
	Detail string
}

// ScoreProducts складывает независимые сигналы сходства.
// ignorePenalties гасит штрафы (номер документа уже совпал точно).
func ScoreProducts(a, b model.Descriptor, ignorePenalties bool) ProductScore {
	score := 0
	var det []string

	if hasSynonym(a.Normalized, b.Normalized) {
		score += WeightSynonym
		det = append(det, "Synonym:✓")
	}

	simText := Dice(a.Normalized, b.Normalized)
	score += weighted(simText, WeightText)
	det = append(det, fmt.Sprintf("Text:%d%%", percent(simText)))

	if a.Principal != "" && b.Principal != "" {
		simPrin := Dice(a.Principal, b.Principal)
		score += weighted(simPrin, WeightPrincipal)
		det = append(det, fmt.Sprintf("Principal:%d%%", percent(simPrin)))
	}

	if a.Concentration != "" && b.Concentration != "" {
		pts, d := scoreConcentration(a.Concentration, b.Concentration, ignorePenalties)
		score += pts
		if d != "" {
			det = append(det, d)
		}
	}

	if a.Dimension != "" && b.Dimension != "" {
		pts, d := scoreDimension(a.Dimension, b.Dimension, ignorePenalties)
		score += pts
		if d != "" {
			det = append(det, d)
		}
	}

	if a.Form != "" && b.Form != "" {
		switch {
		case a.Form == b.Form:
			score += WeightFormMatch
			det = append(det, "Form:✓")
		case equivalentForms(a.Form, b.Form):
			score += WeightFormMatch
			det = append(det, "Form:equiv")
		case !ignorePenalties:
			score += PenaltyForm
			det = append(det, "Form:mismatch")
		}
	}

	if common := countShared(a.Keywords, b.Keywords); common > 0 {
		p := float64(common) / float64(max(len(a.Keywords), len(b.Keywords)))
		score += weighted(p, WeightKeywords)
		det = append(det, fmt.Sprintf("Words:%d", common))
	}

	return ProductScore{Score: score, Detail: strings.Join(det, " | ")}
}

func scoreConcentration(ca, cb string, ignorePenalties bool) (int, string) {
	c1 := strings.ToUpper(stripSpaces(ca))
	c2 := strings.ToUpper(stripSpaces(cb))
	if c1 == c2 {
		return WeightConcExact, "Conc:✓"
	}

	n1 := reNumber.FindAllString(c1, -1)
	n2 := reNumber.FindAllString(c2, -1)
	if common := countShared(n1, n2); common > 0 && float64(common) >= float64(len(n1))*concNumericOverlapMin {
		return WeightConcNumeric, "Conc:~"
	}

	if sim := Dice(c1, c2); sim > concFuzzyMinSimilarity {
		return weighted(sim, WeightConcFuzzy), fmt.Sprintf("Conc:~%d%%", percent(sim))
	}
	if ignorePenalties {
		return 0, ""
	}
	return PenaltyConc, "Conc:mismatch"
}

func scoreDimension(da, db string, ignorePenalties bool) (int, string) {
	if da == db {
		return WeightDimExact, "Dim:✓"
	}
	switch common := countShared(strings.Split(da, "X"), strings.Split(db, "X")); {
	case common >= 2:
		return WeightDimTwoShared, "Dim:~"
	case common == 1:
		return WeightDimOneShared, "Dim:part"
	case ignorePenalties:
		return 0, ""
	default:
		return PenaltyDim, "Dim:mismatch"
	}
}

func hasSynonym(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	for _, g := range productSynonyms {
		if !strings.Contains(a, g.term) {
			continue
		}
		for _, alt := range g.alts {
			if strings.Contains(b, alt) {
				return true
			}
		}
	}
	return false
}

func equivalentForms(a, b string) bool {
	for _, g := range formEquivalents {
		if slices.Contains(g, a) && slices.Contains(g, b) {
			return true
		}
	}
	return false
}

// сколько элементов a встречается в b (повторы в a считаются)
func countShared(a, b []string) int {
	n := 0
	for _, x := range a {
		if slices.Contains(b, x) {
			n++
		}
	}
	return n
}

func weighted(sim float64, weight int) int {
	return int(math.Round(sim * float64(weight)))
}

func percent(sim float64) int {
	return int(math.Round(sim * 100))
}
