package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transfer-recon/internal/config"
	"transfer-recon/internal/fileio"
	"transfer-recon/internal/middleware"
	"transfer-recon/internal/reconcile/model"
	recSvc "transfer-recon/internal/reconcile/service"
)

// Reconcile возвращает http.HandlerFunc для
// r.Post("/reconcile", recHnd.Reconcile(cfg, logger)).
//
// Файлы: поля "outbound" и "inbound" (можно по несколько) или общее поле
// "files", где журнал определяется по имени файла.
func Reconcile(cfg config.Config, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Привяжем req_id, если middleware его проставил
		log := logger
		if reqID := middleware.GetRequestID(r); reqID != "" {
			log = logger.With().Str("req_id", reqID).Logger()
		}
		defer r.Body.Close()
		if err := r.ParseMultipartForm(int64(cfg.MaxUploadMB) << 20); err != nil {
			http.Error(w, "bad multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}

		outFiles, inFiles, err := splitLedgers(r.MultipartForm)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mapOut := mappingFrom(r, "out_", cfg.HeaderRow)
		mapIn := mappingFrom(r, "in_", cfg.HeaderRow)

		outbound, err := readLedger(outFiles, mapOut)
		if err != nil {
			http.Error(w, "failed to read outbound: "+err.Error(), http.StatusBadRequest)
			return
		}
		inbound, err := readLedger(inFiles, mapIn)
		if err != nil {
			http.Error(w, "failed to read inbound: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(outbound) == 0 || len(inbound) == 0 {
			http.Error(w, "need at least one outbound and one inbound row", http.StatusBadRequest)
			return
		}

		log.Debug().
			Int("outbound_files", len(outFiles)).
			Int("inbound_files", len(inFiles)).
			Interface("outbound_sample", sample(outbound, 3)).
			Interface("inbound_sample", sample(inbound, 3)).
			Msg("[DEBUG] ledgers mapped")

		// Запуск сверки
		res, err := recSvc.Run(outbound, inbound)
		if err != nil {
			// сюда попадаем только при нарушении контракта вызова — это наша ошибка
			log.Error().Err(err).Bool("nil_input", errors.Is(err, recSvc.ErrNilInput)).Msg("reconcile")
			http.Error(w, "internal", http.StatusInternalServerError)
			return
		}

		// Эхо того, что реально применилось (для отладки в UI и curl)
		res.MapA = mapOut
		res.MapB = mapIn

		if strings.EqualFold(r.FormValue("format"), "xlsx") {
			writeXLSX(w, res, log)
		} else {
			writeJSON(w, res, log)
		}

		log.Info().
			Int("outbound", len(outbound)).
			Int("inbound", len(inbound)).
			Int("rows", len(res.Rows)).
			Int("conforming", res.Stats.Conforming).
			Int("non_conforming", res.Stats.NonConforming).
			Int("not_found", res.Stats.NotFound).
			Int("orphans", res.Stats.Orphans).
			Int("excluded", res.Stats.Excluded).
			Dur("elapsed", time.Since(start)).
			Msg("reconcile done")
	}
}

func splitLedgers(form *multipart.Form) (out, in []*multipart.FileHeader, err error) {
	if form == nil {
		return nil, nil, errors.New("no files")
	}
	out = append(out, form.File["outbound"]...)
	in = append(in, form.File["inbound"]...)
	for _, fh := range form.File["files"] {
		switch fileio.LedgerOf(fh.Filename) {
		case fileio.LedgerOutbound:
			out = append(out, fh)
		case fileio.LedgerInbound:
			in = append(in, fh)
		default:
			return nil, nil, fmt.Errorf("cannot tell outbound from inbound: %s", fh.Filename)
		}
	}
	if len(out) == 0 || len(in) == 0 {
		return nil, nil, errors.New("need at least one outbound and one inbound file")
	}
	return out, in, nil
}

func readLedger(files []*multipart.FileHeader, m model.Mapping) ([]model.TransferRecord, error) {
	recs := make([]model.TransferRecord, 0)
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		maps, err := fileio.ReadAnyMaps(f, fh.Filename, m.HeaderRow)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		recs = append(recs, toRecords(maps, m)...)
	}
	return recs, nil
}

func writeJSON(w http.ResponseWriter, res model.Result, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Error().Err(err).Msg("write json")
	}
}

func writeXLSX(w http.ResponseWriter, res model.Result, log zerolog.Logger) {
	name := fmt.Sprintf("analise_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Cache-Control", "no-store")
	if err := fileio.WriteAnalysisXLSX(w, res); err != nil {
		log.Error().Err(err).Msg("write xlsx")
	}
}

func sample(recs []model.TransferRecord, n int) []model.TransferRecord {
	return recs[:min(n, len(recs))]
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 {
		return def
	}
	return i
}
