package production

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tallix-com/prodgo/internal/models"
)

// PayloadEntry is the canonical shape of one element of a snapshot payload.
// Finalize writes exactly this; reopen accepts it plus the older snake_case
// key convention found in historical snapshots. The ambiguity never leaves
// this file.
type PayloadEntry struct {
	ProductID          string `json:"productId"`
	ProductCode        string `json:"productCode"`
	ProductDescription string `json:"productDescription,omitempty"`
	PhotoURL           string `json:"photoUrl,omitempty"`
	Quantity           int    `json:"quantity"`
	Checked            bool   `json:"checked"`
	InsertedAt         string `json:"insertedAt,omitempty"`
	CreatedByID        string `json:"createdById,omitempty"`
	CreatedByName      string `json:"createdBy,omitempty"`
	CheckedByID        string `json:"checkedById,omitempty"`
	CheckedByName      string `json:"checkedBy,omitempty"`
	CheckedAt          string `json:"checkedAt,omitempty"`
}

// decodePayload parses a stored snapshot payload, normalizing either key
// convention into the canonical shape.
func decodePayload(raw []byte) ([]PayloadEntry, error) {
	var elems []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	out := make([]PayloadEntry, 0, len(elems))
	for i, m := range elems {
		qty, err := intField(m, "quantity")
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrCorruptSnapshot, i, err)
		}
		pe := PayloadEntry{
			ProductID:          stringField(m, "productId", "product_id"),
			ProductCode:        stringField(m, "productCode", "product_code"),
			ProductDescription: stringField(m, "productDescription", "product_description"),
			PhotoURL:           stringField(m, "photoUrl", "photo_url"),
			Quantity:           qty,
			Checked:            boolField(m, "checked"),
			InsertedAt:         stringField(m, "insertedAt", "inserted_at"),
			CreatedByID:        stringField(m, "createdById", "created_by_id"),
			CreatedByName:      stringField(m, "createdBy", "created_by"),
			CheckedByID:        stringField(m, "checkedById", "checked_by_id"),
			CheckedByName:      stringField(m, "checkedBy", "checked_by"),
			CheckedAt:          stringField(m, "checkedAt", "checked_at"),
		}
		out = append(out, pe)
	}
	return out, nil
}

// reconcileEntries rebuilds ledger rows from a snapshot payload.
//
// Product code is mandatory: a single element without one fails the whole
// reopen, since restoring a ledger with blank codes is worse than refusing. A
// missing product id gets a fresh identifier (payloads captured before ids
// were tracked). Quantities below 1 are treated as corruption too, since a
// restored row must satisfy the positive-quantity invariant.
func reconcileEntries(raw []byte, date time.Time, now time.Time) ([]models.ProductionEntry, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}

	slots := make(map[string]int)
	entries := make([]models.ProductionEntry, 0, len(payload))
	for i, pe := range payload {
		if pe.ProductCode == "" {
			return nil, fmt.Errorf("%w: element %d has no product code", ErrCorruptSnapshot, i)
		}
		if pe.Quantity < 1 {
			return nil, fmt.Errorf("%w: element %d has quantity %d", ErrCorruptSnapshot, i, pe.Quantity)
		}
		if pe.ProductID == "" {
			pe.ProductID = uuid.NewString()
		}

		entry := models.ProductionEntry{
			SessionDate:        date,
			ProductID:          pe.ProductID,
			Slot:               slots[pe.ProductID],
			ProductCode:        pe.ProductCode,
			ProductDescription: pe.ProductDescription,
			PhotoURL:           pe.PhotoURL,
			Quantity:           pe.Quantity,
			Checked:            pe.Checked,
			InsertedAt:         parseTimeOr(pe.InsertedAt, now),
		}
		slots[pe.ProductID]++

		if pe.CreatedByID != "" {
			id := pe.CreatedByID
			entry.CreatedByID = &id
		}
		if pe.Checked {
			if pe.CheckedByID != "" {
				id := pe.CheckedByID
				entry.CheckedByID = &id
			}
			if t := parseTimeOr(pe.CheckedAt, time.Time{}); !t.IsZero() {
				entry.CheckedAt = &t
			}
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

var payloadTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeOr(s string, fallback time.Time) time.Time {
	for _, layout := range payloadTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}

func stringField(m map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		// Historical payloads stored some ids as bare numbers.
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

func intField(m map[string]json.RawMessage, keys ...string) (int, error) {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			return n, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if v, err := strconv.Atoi(s); err == nil {
				return v, nil
			}
		}
		return 0, fmt.Errorf("field %q is not an integer", k)
	}
	return 0, nil
}

func boolField(m map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
		// Tolerate 0/1 flags.
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			return n != 0
		}
	}
	return false
}

// DecodeSnapshotPayload exposes payload normalization to read-side callers
// (report exports on finalized days).
func DecodeSnapshotPayload(raw []byte) ([]PayloadEntry, error) {
	return decodePayload(raw)
}
