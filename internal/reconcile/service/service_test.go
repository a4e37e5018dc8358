package service

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfer-recon/internal/reconcile/model"
)

const (
	testSource = "Almoxarifado Central"
	testDest   = "Hospital Santa Cruz - Rede Casa"
)

func day(d int) time.Time { return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC) }

func rec(date time.Time, doc, product string, qty, value float64) model.TransferRecord {
	return model.TransferRecord{
		Date:     date,
		Source:   testSource,
		Dest:     testDest,
		Document: doc,
		Product:  product,
		Qty:      qty,
		Value:    value,
	}
}

func mustRun(t *testing.T, out, in []model.TransferRecord) model.Result {
	t.Helper()
	res, err := Run(out, in)
	require.NoError(t, err)
	return res
}

func TestRun_ExactMatch(t *testing.T) {
	res := mustRun(t,
		[]model.TransferRecord{rec(day(1), "NF 991", "Dipirona 500mg", 10, 1200)},
		[]model.TransferRecord{rec(day(3), "991", "Dipirona 500MG", 10, 1200)},
	)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, model.StatusConforming, row.Status)
	assert.Equal(t, "-", row.Divergence)
	assert.Equal(t, model.QualityExcellent, row.Quality)
	assert.Equal(t, "991", row.Document)
	assert.Equal(t, "HOSPITAL CASA SANTA CRUZ", row.Dest)
	require.NotNil(t, row.ValueDiff)
	assert.Zero(t, *row.ValueDiff)
	require.NotNil(t, row.QtyDiff)
	assert.Zero(t, *row.QtyDiff)
	require.NotNil(t, row.LeadTimeDays)
	assert.Equal(t, 2, *row.LeadTimeDays)
	require.NotNil(t, row.Score)
	assert.InDelta(t, 94.25, *row.Score, 1e-9)
	assert.Contains(t, row.Notes, "Doc:✓991")
	assert.Contains(t, row.Notes, "Unit:✓")
	require.NotNil(t, row.InboundIndex)
	assert.Equal(t, 0, *row.InboundIndex)

	assert.Equal(t, 1, res.Stats.Conforming)
	assert.Equal(t, 1, res.Stats.MatchesExcellent)
	assert.Zero(t, res.Stats.Orphans)
}

func TestRun_DocumentNotFound(t *testing.T) {
	res := mustRun(t,
		[]model.TransferRecord{rec(day(5), "882", "Luvas Cirúrgicas", 50, 300)},
		[]model.TransferRecord{rec(day(5), "100", "Seringa 10ml", 1, 1)},
	)

	require.Len(t, res.Rows, 2)
	row := res.Rows[0]
	assert.Equal(t, model.StatusNotReceived, row.Status)
	assert.Contains(t, row.Divergence, "882")
	assert.Equal(t, "-", row.ProductIn)
	assert.Nil(t, row.ValueIn)
	assert.Nil(t, row.InboundIndex)
	assert.Equal(t, 1, res.Stats.NotFound)
}

func TestRun_NoDocumentNumber(t *testing.T) {
	res := mustRun(t,
		[]model.TransferRecord{rec(day(5), "S/N", "Luvas", 50, 300)},
		[]model.TransferRecord{},
	)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, ReasonNoDocument, res.Rows[0].Divergence)
}

func TestRun_ValueTolerance(t *testing.T) {
	within := mustRun(t,
		[]model.TransferRecord{rec(day(1), "12", "Seringa 10ml", 100, 800)},
		[]model.TransferRecord{rec(day(2), "12", "Seringa 10ml", 100, 750)},
	)
	require.Len(t, within.Rows, 1)
	assert.Equal(t, model.StatusConforming, within.Rows[0].Status)
	assert.InDelta(t, 50, *within.Rows[0].ValueDiff, 1e-9)

	over := mustRun(t,
		[]model.TransferRecord{rec(day(1), "12", "Seringa 10ml", 100, 800)},
		[]model.TransferRecord{rec(day(2), "12", "Seringa 10ml", 100, 700)},
	)
	require.Len(t, over.Rows, 1)
	row := over.Rows[0]
	assert.Equal(t, model.StatusNonConforming, row.Status)
	assert.Equal(t, ReasonValue, row.Divergence)
	assert.InDelta(t, 100, *row.ValueDiff, 1e-9)
	assert.Equal(t, 1, over.Stats.ValueDivergent)
	assert.Equal(t, 1, over.Stats.NonConforming)
}

func TestRun_QtyMismatchNeedsStrongProduct(t *testing.T) {
	res := mustRun(t,
		[]model.TransferRecord{rec(day(1), "7", "Dipirona 500mg", 10, 100)},
		[]model.TransferRecord{rec(day(2), "7", "Dipirona 500mg", 8, 100)},
	)
	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, model.StatusNonConforming, row.Status)
	assert.Equal(t, ReasonQty, row.Divergence)
	assert.InDelta(t, 2, *row.QtyDiff, 1e-9)
	assert.Equal(t, 1, res.Stats.QtyDivergent)
}

func TestRun_DifferentProductSameDocument(t *testing.T) {
	res := mustRun(t,
		[]model.TransferRecord{rec(day(1), "7", "Dipirona 500mg", 10, 100)},
		[]model.TransferRecord{rec(day(1), "7", "Paracetamol 750mg", 10, 100)},
	)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, model.StatusNotReceived, res.Rows[0].Status)
	assert.Equal(t, "document 7: no matching item", res.Rows[0].Divergence)
	assert.Equal(t, ReasonOrphan, res.Rows[1].Divergence)
}

func TestRun_Orphans(t *testing.T) {
	out := []model.TransferRecord{
		rec(day(1), "1", "Dipirona 500mg", 10, 100),
		rec(day(31), "2", "Dipirona 500mg", 10, 100),
	}
	in := []model.TransferRecord{
		rec(day(15), "999", "Compressa de gaze", 1, 5),
		rec(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), "998", "Compressa de gaze", 1, 5),
		rec(time.Time{}, "997", "Compressa de gaze", 1, 5),
	}
	res := mustRun(t, out, in)

	require.Len(t, res.Rows, 4)
	assert.Equal(t, 2, res.Stats.NotFound)
	assert.Equal(t, 2, res.Stats.Orphans)
	assert.Equal(t, 4, res.Stats.NonConforming)

	orphan := res.Rows[2]
	assert.Equal(t, "999", orphan.Document)
	assert.Equal(t, model.StatusNonConforming, orphan.Status)
	assert.Equal(t, ReasonOrphan, orphan.Divergence)
	assert.Equal(t, "-", orphan.ProductOut)
	assert.Nil(t, orphan.OutboundIndex)
	require.NotNil(t, orphan.InboundIndex)
	assert.Equal(t, 0, *orphan.InboundIndex)

	assert.Equal(t, "997", res.Rows[3].Document)
}

func TestRun_Aggregated(t *testing.T) {
	const product = "Compressa de gaze 7,5x7,5"
	res := mustRun(t,
		[]model.TransferRecord{
			rec(day(2), "500", product, 4, 40),
			rec(day(2), "500", product, 6, 60),
		},
		[]model.TransferRecord{rec(day(4), "500", product, 10, 100)},
	)

	require.Len(t, res.Rows, 2)
	for i, want := range []float64{4, 6} {
		row := res.Rows[i]
		assert.Equal(t, model.StatusConforming, row.Status)
		assert.Equal(t, model.QualityAggregated, row.Quality)
		assert.InDelta(t, want, *row.QtyIn, 1e-9)
		assert.InDelta(t, want*10, *row.ValueIn, 1e-9)
		assert.Zero(t, *row.ValueDiff)
		assert.Equal(t, 0, *row.InboundIndex)
		assert.Contains(t, row.Notes, "sum of 2 items")
	}
	assert.Equal(t, 2, res.Stats.Conforming)
	assert.Equal(t, 2, res.Stats.MatchesAggregated)
	assert.Zero(t, res.Stats.MatchesExcellent)
}

func TestRun_AggregatedZeroTotalSplitsEqually(t *testing.T) {
	const product = "Compressa de gaze 7,5x7,5"
	res := mustRun(t,
		[]model.TransferRecord{
			rec(day(2), "501", product, 0, 10),
			rec(day(2), "501", product, 0, 10),
		},
		[]model.TransferRecord{rec(day(3), "501", product, 0, 20)},
	)

	require.Len(t, res.Rows, 2)
	for _, row := range res.Rows {
		assert.Equal(t, model.StatusConforming, row.Status)
		assert.Equal(t, model.QualityAggregated, row.Quality)
		assert.InDelta(t, 10, *row.ValueIn, 1e-9)
		assert.Zero(t, *row.QtyIn)
		assert.Zero(t, *row.ValueDiff)
		assert.Equal(t, 0, *row.InboundIndex)
	}
	assert.Equal(t, 2, res.Stats.MatchesAggregated)
}

func TestRun_AggregationNeedsMatchingTotal(t *testing.T) {
	res := mustRun(t,
		[]model.TransferRecord{
			rec(day(1), "7", "Dipirona 500mg", 10, 100),
			rec(day(1), "7", "Dipirona 500mg", 10, 100),
		},
		[]model.TransferRecord{rec(day(2), "7", "Dipirona 500mg", 10, 100)},
	)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, model.StatusConforming, res.Rows[0].Status)
	assert.Equal(t, model.QualityExcellent, res.Rows[0].Quality)
	assert.Equal(t, model.StatusNotReceived, res.Rows[1].Status)
	assert.Equal(t, "document 7: no matching item", res.Rows[1].Divergence)
}

func TestRun_TieKeepsFirstCandidate(t *testing.T) {
	res := mustRun(t,
		[]model.TransferRecord{rec(day(1), "3", "Dipirona 500mg", 10, 100)},
		[]model.TransferRecord{
			rec(day(1), "3", "Dipirona 500mg", 10, 100),
			rec(day(1), "3", "Dipirona 500mg", 10, 100),
		},
	)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 0, *res.Rows[0].InboundIndex)
	assert.Equal(t, 1, *res.Rows[1].InboundIndex)
	assert.Equal(t, ReasonOrphan, res.Rows[1].Divergence)
}

func TestRun_ExcludedUnits(t *testing.T) {
	excluded := rec(day(1), "5", "Dipirona 500mg", 10, 100)
	excluded.Dest = "OftalmoCasa"

	res := mustRun(t,
		[]model.TransferRecord{excluded, rec(day(1), "6", "Seringa 10ml", 1, 2)},
		[]model.TransferRecord{excluded},
	)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 1, *res.Rows[0].OutboundIndex)
	assert.Equal(t, 2, res.Stats.Excluded)
	assert.Zero(t, res.Stats.Orphans)
}

func TestRun_NonFiniteNumbers(t *testing.T) {
	out := []model.TransferRecord{
		rec(day(1), "7", "Dipirona 500mg", 10, math.NaN()),
		rec(day(1), "8", "Seringa 10ml", math.Inf(1), 50),
		rec(day(1), "9", "Luvas", 0, math.Inf(-1)),
	}
	in := []model.TransferRecord{
		rec(day(2), "7", "Dipirona 500mg", 10, 100),
		rec(day(2), "8", "Seringa 10ml", 5, 50),
		rec(day(1), "9", "Luvas", math.NaN(), 1),
	}

	var res model.Result
	require.NotPanics(t, func() { res = mustRun(t, out, in) })
	require.Len(t, res.Rows, 3)

	assert.Zero(t, *res.Rows[0].ValueOut)
	assert.Equal(t, model.StatusNonConforming, res.Rows[0].Status)
	assert.Equal(t, ReasonValue, res.Rows[0].Divergence)

	assert.Zero(t, *res.Rows[1].QtyOut)
	assert.Equal(t, ReasonQty, res.Rows[1].Divergence)
	assert.InDelta(t, -5, *res.Rows[1].QtyDiff, 1e-9)

	assert.Zero(t, *res.Rows[2].ValueOut)
	assert.Zero(t, *res.Rows[2].QtyIn)

	// входные срезы не трогаем
	assert.True(t, math.IsNaN(out[0].Value))
	assert.True(t, math.IsInf(out[1].Qty, 1))
}

func TestRun_NilInput(t *testing.T) {
	_, err := Run(nil, []model.TransferRecord{})
	assert.ErrorIs(t, err, ErrNilInput)

	_, err = Run([]model.TransferRecord{}, nil)
	assert.ErrorIs(t, err, ErrNilInput)

	res, err := Run([]model.TransferRecord{}, []model.TransferRecord{})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func mixedLedgers() (out, in []model.TransferRecord) {
	out = []model.TransferRecord{
		rec(day(1), "NF 991", "Dipirona 500mg", 10, 1200),
		rec(day(2), "500", "Compressa de gaze 7,5x7,5", 5, 50),
		rec(day(2), "500", "Compressa de gaze 7,5x7,5", 5, 50),
		rec(day(3), "882", "Luvas Cirúrgicas", 50, 300),
		rec(day(4), "12", "Seringa 10ml", 100, 800),
		rec(day(5), "", "Avental", 1, 10),
		rec(day(6), "7", "Dipirona 500mg", 10, 100),
	}
	in = []model.TransferRecord{
		rec(day(3), "991", "Dipirona 500MG", 10, 1200),
		rec(day(4), "500", "Compressa de gaze 7,5x7,5", 10, 100),
		rec(day(5), "12", "Seringa 10 ml", 100, 700),
		rec(day(6), "7", "Paracetamol 750mg", 10, 100),
		rec(day(4), "4444", "Capote descartavel", 2, 30),
	}
	return out, in
}

func TestRun_Invariants(t *testing.T) {
	out, in := mixedLedgers()
	res := mustRun(t, out, in)

	assert.Len(t, res.Rows, len(out)+res.Stats.Orphans)

	seenOut := map[int]bool{}
	seenIn := map[int]bool{}
	for _, row := range res.Rows {
		if row.OutboundIndex != nil {
			assert.False(t, seenOut[*row.OutboundIndex], "outbound %d twice", *row.OutboundIndex)
			seenOut[*row.OutboundIndex] = true
		}
		if row.InboundIndex == nil {
			continue
		}
		i := *row.InboundIndex
		if row.Quality == model.QualityAggregated {
			continue
		}
		assert.False(t, seenIn[i], "inbound %d twice", i)
		seenIn[i] = true
	}
	assert.Len(t, seenOut, len(out))

	st := res.Stats
	assert.Equal(t, len(res.Rows), st.Conforming+st.NonConforming)
	assert.Equal(t, 2, st.MatchesAggregated)
}

func TestRun_DeterministicAndPure(t *testing.T) {
	out, in := mixedLedgers()
	outCopy, inCopy := slices.Clone(out), slices.Clone(in)

	first := mustRun(t, out, in)
	second := mustRun(t, out, in)

	assert.Equal(t, first, second)
	assert.Equal(t, outCopy, out)
	assert.Equal(t, inCopy, in)
}
