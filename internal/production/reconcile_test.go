package production

import (
	"errors"
	"testing"
	"time"
)

func TestDecodePayload_CamelCase(t *testing.T) {
	raw := []byte(`[{
		"productId": "11111111-1111-1111-1111-111111111111",
		"productCode": "WID-100",
		"productDescription": "Widget 100mm",
		"photoUrl": "https://img.example/wid100.jpg",
		"quantity": 7,
		"checked": true,
		"checkedBy": "Maria K",
		"insertedAt": "2025-03-10T08:30:00Z"
	}]`)

	payload, err := decodePayload(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(payload) != 1 {
		t.Fatalf("expected 1 element, got %d", len(payload))
	}

	pe := payload[0]
	if pe.ProductCode != "WID-100" {
		t.Errorf("product code: got %q", pe.ProductCode)
	}
	if pe.Quantity != 7 {
		t.Errorf("quantity: got %d", pe.Quantity)
	}
	if !pe.Checked {
		t.Error("expected checked=true")
	}
	if pe.CheckedByName != "Maria K" {
		t.Errorf("checkedBy: got %q", pe.CheckedByName)
	}
	if pe.PhotoURL == "" {
		t.Error("photoUrl lost")
	}
}

func TestDecodePayload_SnakeCase(t *testing.T) {
	raw := []byte(`[{
		"product_id": "22222222-2222-2222-2222-222222222222",
		"product_code": "BRK-20",
		"product_description": "Bracket 20mm",
		"photo_url": "https://img.example/brk20.jpg",
		"quantity": "3",
		"checked": 1,
		"checked_by": "u1",
		"inserted_at": "2024-11-02 14:05:00"
	}]`)

	payload, err := decodePayload(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	pe := payload[0]
	if pe.ProductCode != "BRK-20" {
		t.Errorf("snake_case product code not normalized: got %q", pe.ProductCode)
	}
	if pe.ProductDescription != "Bracket 20mm" {
		t.Errorf("description: got %q", pe.ProductDescription)
	}
	// Old payloads store quantity as a numeric string and checked as 0/1
	if pe.Quantity != 3 {
		t.Errorf("quantity: got %d", pe.Quantity)
	}
	if !pe.Checked {
		t.Error("expected checked=true from legacy 1 flag")
	}
	if pe.CheckedByName != "u1" {
		t.Errorf("checked_by: got %q", pe.CheckedByName)
	}
}

func TestDecodePayload_NotAnArray(t *testing.T) {
	_, err := decodePayload([]byte(`{"oops": true}`))
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestReconcileEntries_MissingProductCodeFailsFast(t *testing.T) {
	raw := []byte(`[
		{"productCode": "WID-100", "quantity": 2},
		{"quantity": 4}
	]`)

	date := SessionDate(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	_, err := reconcileEntries(raw, date, time.Now())
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestReconcileEntries_NonPositiveQuantityFails(t *testing.T) {
	raw := []byte(`[{"productCode": "WID-100", "quantity": 0}]`)

	_, err := reconcileEntries(raw, SessionDate(time.Now()), time.Now())
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestReconcileEntries_GeneratesProductID(t *testing.T) {
	raw := []byte(`[
		{"productCode": "X", "quantity": 2, "checked": true, "checkedBy": "u1"},
		{"productCode": "X", "quantity": 5}
	]`)

	date := SessionDate(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	now := time.Now()
	entries, err := reconcileEntries(raw, date, now)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0].ProductID == "" || entries[1].ProductID == "" {
		t.Error("missing product ids should be generated")
	}
	if entries[0].ProductID == entries[1].ProductID {
		t.Error("each payload element without an id gets its own product id")
	}
	if !entries[0].Checked {
		t.Error("checked flag lost")
	}
	if entries[0].Checked && entries[0].CheckedByID != nil {
		t.Error("a display name must not be mistaken for a user id")
	}
	if !entries[0].SessionDate.Equal(date) {
		t.Errorf("session date: got %v", entries[0].SessionDate)
	}
	if !entries[0].InsertedAt.Equal(now) {
		t.Errorf("missing insertedAt should fall back to now, got %v", entries[0].InsertedAt)
	}
}

func TestReconcileEntries_DuplicateProductsGetSlots(t *testing.T) {
	raw := []byte(`[
		{"productId": "33333333-3333-3333-3333-333333333333", "productCode": "X", "quantity": 2},
		{"productId": "33333333-3333-3333-3333-333333333333", "productCode": "X", "quantity": 5}
	]`)

	entries, err := reconcileEntries(raw, SessionDate(time.Now()), time.Now())
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if entries[0].Slot == entries[1].Slot {
		t.Error("ungrouped duplicates must land on distinct slots")
	}
}
