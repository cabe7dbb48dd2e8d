package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gorm.io/datatypes"

	"github.com/s/leadBoard/internal/bulk"
	"github.com/s/leadBoard/internal/database"
	"github.com/s/leadBoard/internal/handlers"
	"github.com/s/leadBoard/internal/leadquery"
	"github.com/s/leadBoard/internal/mail"
	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/realtime"
	"github.com/s/leadBoard/internal/storage"
)

const maxUploadSize = 10 << 20

// ==========================================
// POST /leads/bulk-upload (multipart field "file")
// ==========================================
func (s *Service) BulkUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.JSONError(w, `multipart field "file" is required`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	opts, err := s.parseOptions()
	if err != nil {
		handlers.StorageError(w, err)
		return
	}

	res, err := bulk.Parse(file, opts)
	var missing *bulk.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		handlers.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":           missing.Error(),
			"missing_columns": missing.Columns,
		})
		return
	case errors.Is(err, bulk.ErrNoRows):
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	actor := s.ActorID(r)
	upload := models.BulkUpload{FileName: header.Filename, Total: res.Total, UploadedByID: actor}

	if !res.OK() {
		raw, _ := json.Marshal(res.Issues)
		upload.Issues = datatypes.JSON(raw)
		if err := storage.RecordUpload(s.DB, &upload); err != nil {
			slog.Warn("record rejected upload", "error", err)
		}
		handlers.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  fmt.Sprintf("%d problem(s) found, nothing was imported", len(res.Issues)),
			"issues": res.Issues,
		})
		return
	}

	if err := storage.InsertLeads(s.DB, res.Leads, &upload, actor); err != nil {
		handlers.StorageError(w, err)
		return
	}
	slog.Info("bulk upload imported", "file", header.Filename, "inserted", upload.Inserted)

	if actor != nil {
		if user, err := storage.FindUser(s.DB, *actor); err == nil {
			s.Mailer.BulkUploadFinished(user.Email, mail.UploadSummary{
				Name:     user.Name,
				FileName: header.Filename,
				Total:    upload.Total,
				Inserted: upload.Inserted,
			})
		}
	}
	s.changed(r, realtime.Event{Action: realtime.ActionLeadsImported, Count: upload.Inserted})

	handlers.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"upload_id": upload.ID,
		"total":     upload.Total,
		"inserted":  upload.Inserted,
	})
}

func (s *Service) parseOptions() (bulk.Options, error) {
	unitID, cardTypeID, err := storage.DefaultReferenceIDs(s.DB, database.DefaultUnitName, database.DefaultCardTypeName)
	if err != nil {
		return bulk.Options{}, err
	}

	known := map[string]map[uint]bool{}
	for col, model := range map[string]interface{}{
		bulk.ColCourseID:   &models.Course{},
		bulk.ColBatchID:    &models.Batch{},
		bulk.ColTrainerID:  &models.Trainer{},
		bulk.ColUnitID:     &models.BusinessUnit{},
		bulk.ColCardTypeID: &models.CardType{},
	} {
		ids, err := storage.AllIDs(s.DB, model)
		if err != nil {
			return bulk.Options{}, err
		}
		known[col] = ids
	}

	return bulk.Options{Known: known, DefaultUnitID: unitID, DefaultCardTypeID: cardTypeID}, nil
}

// GET /leads/sample-csv
func (s *Service) SampleCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="leads-sample.csv"`)
	if err := bulk.SampleCSV(w); err != nil {
		slog.Error("write sample csv", "error", err)
	}
}

// GET /leads/export?format=csv|xlsx
func (s *Service) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := leadquery.Parse(r.URL.Query())
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		handlers.JSONError(w, "format must be csv or xlsx", http.StatusBadRequest)
		return
	}

	leads, err := storage.AllLeads(s.DB, filter)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}

	name := fmt.Sprintf("leads-%s.%s", time.Now().Format("20060102"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))

	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = bulk.WriteXLSX(w, leads)
	} else {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		err = bulk.WriteCSV(w, leads)
	}
	if err != nil {
		slog.Error("export leads", "format", format, "error", err)
	}
}
