package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tallix-com/prodgo/internal/models"
	"github.com/tallix-com/prodgo/internal/production"
	"github.com/tallix-com/prodgo/internal/reports"
)

// exportDay renders a day report as csv, xlsx or pdf. Open days read the live
// ledger; finalized days read the snapshot payload, so reports stay viewable
// after the ledger is cleared.
func (r *Router) exportDay(w http.ResponseWriter, req *http.Request) {
	date, err := parseDate(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := r.buildDayReport(req, date)
	if err != nil {
		r.respondServiceError(w, err)
		return
	}

	name := "production-" + date.Format("2006-01-02")
	format := req.URL.Query().Get("format")
	switch format {
	case "", "csv":
		data, err := reports.BuildCSV(*rep)
		if err != nil {
			r.respondServiceError(w, err)
			return
		}
		sendFile(w, data, name+".csv", "text/csv")
	case "xlsx":
		data, err := reports.BuildXLSX(*rep)
		if err != nil {
			r.respondServiceError(w, err)
			return
		}
		sendFile(w, data, name+".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	case "pdf":
		reportURL := fmt.Sprintf("%s/api/production/days/%s", r.cfg.Server.PublicURL, date.Format("2006-01-02"))
		data, err := reports.BuildPDF(*rep, reportURL)
		if err != nil {
			r.respondServiceError(w, err)
			return
		}
		sendFile(w, data, name+".pdf", "application/pdf")
	default:
		respondError(w, http.StatusBadRequest, "unknown format: "+format)
	}
}

func sendFile(w http.ResponseWriter, data []byte, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (r *Router) buildDayReport(req *http.Request, date time.Time) (*reports.DayReport, error) {
	status, err := r.production.DayStatus(req.Context(), date)
	if err != nil {
		return nil, err
	}

	rep := &reports.DayReport{
		SessionDate: status.SessionDate,
		Finalized:   !status.IsOpen,
	}

	if status.IsOpen {
		entries, err := r.production.ListEntries(req.Context(), date)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			e := &entries[i]
			rep.Rows = append(rep.Rows, reports.Row{
				ProductCode:        e.ProductCode,
				ProductDescription: e.ProductDescription,
				Quantity:           e.Quantity,
				Checked:            e.Checked,
				CreatedBy:          e.CreatedBy.DisplayName(),
				CheckedBy:          e.CheckedBy.DisplayName(),
				InsertedAt:         e.InsertedAt,
			})
			rep.TotalItems++
			rep.TotalQuantity += e.Quantity
		}
		return rep, nil
	}

	// Finalized day: the snapshot payload is the source of truth.
	var snap models.ProductionDaySnapshot
	if err := r.db.WithContext(req.Context()).
		Preload("FinalizedBy").
		Where("session_date = ?", status.SessionDate).
		First(&snap).Error; err != nil {
		return nil, err
	}

	payload, err := production.DecodeSnapshotPayload([]byte(snap.Payload))
	if err != nil {
		return nil, err
	}

	rep.TotalItems = snap.TotalItems
	rep.TotalQuantity = snap.TotalQuantity
	rep.FinalizedBy = snap.FinalizedBy.DisplayName()
	finalizedAt := snap.FinalizedAt
	rep.FinalizedAt = &finalizedAt

	for _, pe := range payload {
		row := reports.Row{
			ProductCode:        pe.ProductCode,
			ProductDescription: pe.ProductDescription,
			Quantity:           pe.Quantity,
			Checked:            pe.Checked,
			CreatedBy:          pe.CreatedByName,
			CheckedBy:          pe.CheckedByName,
		}
		if t, err := time.Parse(time.RFC3339, pe.InsertedAt); err == nil {
			row.InsertedAt = t
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep, nil
}
