package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/tallix-com/prodgo/internal/catalog"
	"github.com/tallix-com/prodgo/internal/middleware"
	"github.com/tallix-com/prodgo/internal/production"
)

// AddEntryRequest is one scanned (or typed) production quantity.
// Either productId or productCode identifies the product.
type AddEntryRequest struct {
	ProductID   string `json:"productId"`
	ProductCode string `json:"productCode"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
	Grouping    *bool  `json:"grouping"` // default true: repeated scans accumulate
}

// UpdateEntryRequest changes an entry quantity, absolute or relative.
type UpdateEntryRequest struct {
	Quantity *int `json:"quantity" validate:"omitempty,min=1"`
	Delta    *int `json:"delta"`
}

func parseDate(req *http.Request) (time.Time, error) {
	raw := mux.Vars(req)["date"]
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

// respondServiceError translates the production error taxonomy into HTTP.
// Every recoverable condition surfaces verbatim; everything else is a 500.
func (r *Router) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, production.ErrDayClosed),
		errors.Is(err, production.ErrAlreadyChecked),
		errors.Is(err, production.ErrAlreadyFinalized),
		errors.Is(err, production.ErrDayAlreadyOpen):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, production.ErrBelowMinimum),
		errors.Is(err, production.ErrFutureDate),
		errors.Is(err, production.ErrCorruptSnapshot):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, production.ErrEntryNotFound),
		errors.Is(err, production.ErrSnapshotNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		r.log.WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// getDayStatus returns the derived lifecycle state of a session date
func (r *Router) getDayStatus(w http.ResponseWriter, req *http.Request) {
	date, err := parseDate(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := r.production.DayStatus(req.Context(), date)
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// listEntries returns the day's live ledger, newest first
func (r *Router) listEntries(w http.ResponseWriter, req *http.Request) {
	date, err := parseDate(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := r.production.ListEntries(req.Context(), date)
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// getSummary returns the day totals
func (r *Router) getSummary(w http.ResponseWriter, req *http.Request) {
	date, err := parseDate(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := r.production.Summarize(req.Context(), date)
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// addEntry records a quantity for a product on an open day
func (r *Router) addEntry(w http.ResponseWriter, req *http.Request) {
	date, err := parseDate(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body AddEntryRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.validate.Struct(body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.ProductID == "" && body.ProductCode == "" {
		respondError(w, http.StatusBadRequest, "productId or productCode is required")
		return
	}

	product, err := r.resolveProduct(req, body)
	if err != nil {
		r.respondServiceError(w, err)
		return
	}

	grouping := true
	if body.Grouping != nil {
		grouping = *body.Grouping
	}

	entry, err := r.production.AddEntry(req.Context(), production.AddEntryInput{
		Date:     date,
		Product:  product,
		Quantity: body.Quantity,
		Grouping: grouping,
		ActorID:  middleware.ActorID(req.Context()),
	})
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// resolveProduct turns the request's product reference into catalog data.
func (r *Router) resolveProduct(req *http.Request, body AddEntryRequest) (production.ProductRef, error) {
	if body.ProductID != "" {
		p, err := r.catalog.FindByID(req.Context(), body.ProductID)
		if err != nil {
			return production.ProductRef{}, err
		}
		return production.ProductRef{ID: p.ID, Code: p.DefaultCode, Description: p.Name, PhotoURL: p.PhotoURL}, nil
	}
	p, err := r.catalog.FindByCode(req.Context(), body.ProductCode)
	if err != nil {
		return production.ProductRef{}, err
	}
	return production.ProductRef{ID: p.ID, Code: p.DefaultCode, Description: p.Name, PhotoURL: p.PhotoURL}, nil
}

// updateEntry sets or adjusts an entry quantity
func (r *Router) updateEntry(w http.ResponseWriter, req *http.Request) {
	entryID := mux.Vars(req)["id"]

	var body UpdateEntryRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.validate.Struct(body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Quantity == nil && body.Delta == nil {
		respondError(w, http.StatusBadRequest, "quantity or delta is required")
		return
	}

	actor := middleware.ActorID(req.Context())
	var err error
	var entry interface{}
	if body.Quantity != nil {
		entry, err = r.production.SetQuantity(req.Context(), entryID, *body.Quantity, actor)
	} else {
		entry, err = r.production.AdjustQuantity(req.Context(), entryID, *body.Delta, actor)
	}
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// deleteEntry removes a single ledger row
func (r *Router) deleteEntry(w http.ResponseWriter, req *http.Request) {
	entryID := mux.Vars(req)["id"]

	if err := r.production.DeleteEntry(req.Context(), entryID, middleware.ActorID(req.Context())); err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// checkEntry confers an entry (one-way)
func (r *Router) checkEntry(w http.ResponseWriter, req *http.Request) {
	entryID := mux.Vars(req)["id"]

	entry, err := r.production.CheckEntry(req.Context(), entryID, middleware.ActorID(req.Context()))
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// finalizeDay freezes a day into its immutable snapshot
func (r *Router) finalizeDay(w http.ResponseWriter, req *http.Request) {
	date, err := parseDate(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := r.production.Finalize(req.Context(), date, middleware.ActorID(req.Context()))
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// reopenDay restores the ledger from the snapshot and marks the day open
func (r *Router) reopenDay(w http.ResponseWriter, req *http.Request) {
	date, err := parseDate(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.production.Reopen(req.Context(), date, middleware.ActorID(req.Context())); err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reopened"})
}

// getProduct resolves a catalog product by code or barcode
func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	code := mux.Vars(req)["code"]

	product, err := r.catalog.FindByCode(req.Context(), code)
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}
