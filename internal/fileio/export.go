package fileio

import (
	"fmt"
	"io"
	"time"

	excelize "github.com/xuri/excelize/v2"

	"transfer-recon/internal/reconcile/model"
)

const (
	SheetAnalysis = "Analise"
	SheetSummary  = "Resumo"
)

var analysisHeader = []any{
	"Data", "Origem", "Destino", "Documento", "Produto Saída", "Produto Entrada", "Espécie",
	"Valor Saída", "Valor Entrada", "Dif. Valor", "Qtd Saída", "Qtd Entrada", "Dif. Qtd",
	"Data Entrada", "Dias p/ Receber", "Status", "Divergência", "Qualidade Match",
	"Detalhes Produto", "Obs",
}

// WriteAnalysisXLSX writes the analysis rows and the run statistics as a workbook.
func WriteAnalysisXLSX(w io.Writer, res model.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetAnalysis); err != nil {
		return err
	}
	if err := setRow(f, SheetAnalysis, 1, analysisHeader); err != nil {
		return err
	}
	for i, r := range res.Rows {
		if err := setRow(f, SheetAnalysis, i+2, analysisValues(r)); err != nil {
			return err
		}
	}
	if err := f.AutoFilter(SheetAnalysis, fmt.Sprintf("A1:T%d", len(res.Rows)+1), nil); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	st := res.Stats
	summary := [][]any{
		{"Indicador", "Total"},
		{"Conformes", st.Conforming},
		{"Não conformes", st.NonConforming},
		{"Não recebidos", st.NotFound},
		{"Divergência de valor", st.ValueDivergent},
		{"Divergência de quantidade", st.QtyDivergent},
		{"Entradas sem saída", st.Orphans},
		{"Excluídos", st.Excluded},
		{"Match excelente", st.MatchesExcellent},
		{"Match bom", st.MatchesGood},
		{"Match razoável", st.MatchesReasonable},
		{"Match agrupado", st.MatchesAggregated},
	}
	for i, vals := range summary {
		if err := setRow(f, SheetSummary, i+1, vals); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, row int, vals []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &vals)
}

func analysisValues(r model.AnalysisRow) []any {
	return []any{
		dateCell(r.Date), r.Source, r.Dest, r.Document, r.ProductOut, r.ProductIn, r.Species,
		numCell(r.ValueOut), numCell(r.ValueIn), numCell(r.ValueDiff),
		numCell(r.QtyOut), numCell(r.QtyIn), numCell(r.QtyDiff),
		dateCell(r.InboundDate), intCell(r.LeadTimeDays),
		r.Status, r.Divergence, r.Quality, r.ProductDetail, r.Notes,
	}
}

// blank cell, not zero: "no counterpart" is not "0"
func numCell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func intCell(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func dateCell(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("02/01/2006")
}
