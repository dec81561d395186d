package production

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tallix-com/prodgo/internal/config"
	"github.com/tallix-com/prodgo/internal/database"
	"github.com/tallix-com/prodgo/internal/models"
	"gorm.io/datatypes"
)

var (
	testDB     *database.DB
	testUserID string
)

// The suite runs against a throwaway embedded instance on a port away from
// the application default so a running dev server does not collide.
func TestMain(m *testing.M) {
	dataPath, err := os.MkdirTemp("", "prodgo_test_db")
	if err != nil {
		fmt.Println("failed to create temp dir:", err)
		os.Exit(1)
	}

	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Username: "postgres",
		Database: "prodgo_test",
		Alter:    true,
	}
	testDB, err = database.ConnectWithOptions(cfg, database.EmbeddedOptions{
		DataPath: dataPath,
		Port:     5447,
	})
	if err != nil {
		fmt.Println("failed to start test database:", err)
		os.RemoveAll(dataPath)
		os.Exit(1)
	}

	err = testDB.AutoMigrate(
		&models.UserAuth{},
		&models.Product{},
		&models.ProductionEntry{},
		&models.ProductionDaySnapshot{},
		&models.ProductHistory{},
		&models.AuditLog{},
	)
	if err == nil {
		operator := models.UserAuth{
			Username: "test_operator",
			Password: "x",
			Email:    "operator@test.local",
			Name:     "Test Operator",
			Role:     models.RoleOperator,
		}
		err = testDB.Create(&operator).Error
		testUserID = operator.ID
	}

	code := 1
	if err != nil {
		fmt.Println("failed to prepare test database:", err)
	} else {
		code = m.Run()
	}

	testDB.Close()
	os.RemoveAll(dataPath)
	os.Exit(code)
}

// testToday is what "now" means to every service under test, so future-date
// behavior does not depend on the wall clock.
var testToday = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService() *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := NewService(testDB, log, nil, nil)
	svc.nowFn = func() time.Time { return testToday }
	return svc
}

// Each test works on its own date so tests stay independent on the shared
// instance.
func day(offset int) time.Time {
	return SessionDate(testToday).AddDate(0, 0, offset)
}

func widget(n int) ProductRef {
	return ProductRef{
		ID:          fmt.Sprintf("00000000-0000-0000-0000-%012d", n),
		Code:        fmt.Sprintf("WID-%d", n),
		Description: fmt.Sprintf("Widget %d", n),
	}
}

func addEntry(t *testing.T, svc *Service, date time.Time, p ProductRef, qty int, grouping bool) *models.ProductionEntry {
	t.Helper()
	entry, err := svc.AddEntry(context.Background(), AddEntryInput{
		Date:     date,
		Product:  p,
		Quantity: qty,
		Grouping: grouping,
		ActorID:  testUserID,
	})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	return entry
}

func TestDayStatusDefaults(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	st, err := svc.DayStatus(ctx, day(-100))
	if err != nil {
		t.Fatalf("DayStatus failed: %v", err)
	}
	if !st.IsOpen || !st.CanFinalize || st.Reason != ReasonOpen {
		t.Errorf("untouched past day: got open=%v canFinalize=%v reason=%q", st.IsOpen, st.CanFinalize, st.Reason)
	}

	st, err = svc.DayStatus(ctx, day(1))
	if err != nil {
		t.Fatalf("DayStatus failed: %v", err)
	}
	if !st.IsOpen {
		t.Error("future day must still be open")
	}
	if st.CanFinalize || st.Reason != ReasonFutureDate {
		t.Errorf("future day: got canFinalize=%v reason=%q", st.CanFinalize, st.Reason)
	}
}

func TestAddEntryGroupingAccumulates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	date := day(-1)
	p := widget(101)

	addEntry(t, svc, date, p, 5, true)
	addEntry(t, svc, date, p, 3, true)

	entries, err := svc.ListEntries(ctx, date)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("grouped adds must merge into one row, got %d", len(entries))
	}
	if entries[0].Quantity != 8 {
		t.Errorf("quantity: got %d, want 8", entries[0].Quantity)
	}
}

func TestAddEntryGroupingDisabled(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	date := day(-2)
	p := widget(102)

	addEntry(t, svc, date, p, 5, false)
	addEntry(t, svc, date, p, 3, false)

	entries, err := svc.ListEntries(ctx, date)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ungrouped adds must stay separate rows, got %d", len(entries))
	}

	sum, err := svc.Summarize(ctx, date)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if sum.TotalItems != 2 || sum.TotalQuantity != 8 {
		t.Errorf("summary: got %+v", sum)
	}
}

func TestAddEntryBelowMinimum(t *testing.T) {
	svc := newTestService()

	_, err := svc.AddEntry(context.Background(), AddEntryInput{
		Date:     day(-3),
		Product:  widget(103),
		Quantity: 0,
		Grouping: true,
	})
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
}

func TestQuantityMutations(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	date := day(-4)

	entry := addEntry(t, svc, date, widget(104), 5, true)

	updated, err := svc.SetQuantity(ctx, entry.ID, 12, testUserID)
	if err != nil {
		t.Fatalf("SetQuantity failed: %v", err)
	}
	if updated.Quantity != 12 {
		t.Errorf("set: got %d", updated.Quantity)
	}

	updated, err = svc.AdjustQuantity(ctx, entry.ID, -4, testUserID)
	if err != nil {
		t.Fatalf("AdjustQuantity failed: %v", err)
	}
	if updated.Quantity != 8 {
		t.Errorf("adjust: got %d", updated.Quantity)
	}

	if _, err := svc.AdjustQuantity(ctx, entry.ID, -8, testUserID); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("delta to zero: expected ErrBelowMinimum, got %v", err)
	}
	if _, err := svc.SetQuantity(ctx, entry.ID, 0, testUserID); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("set to zero: expected ErrBelowMinimum, got %v", err)
	}

	// Rejected mutations must leave the row untouched.
	entries, err := svc.ListEntries(ctx, date)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if entries[0].Quantity != 8 {
		t.Errorf("quantity after rejected mutations: got %d, want 8", entries[0].Quantity)
	}
}

func TestDeleteEntry(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	date := day(-5)

	entry := addEntry(t, svc, date, widget(105), 5, true)

	if err := svc.DeleteEntry(ctx, entry.ID, testUserID); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}

	entries, err := svc.ListEntries(ctx, date)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %d rows", len(entries))
	}

	if err := svc.DeleteEntry(ctx, entry.ID, testUserID); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestCheckEntryFreezes(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	date := day(-6)
	p := widget(106)

	entry := addEntry(t, svc, date, p, 5, true)

	checked, err := svc.CheckEntry(ctx, entry.ID, testUserID)
	if err != nil {
		t.Fatalf("CheckEntry failed: %v", err)
	}
	if !checked.Checked || checked.CheckedAt == nil {
		t.Fatalf("entry not marked checked: %+v", checked)
	}

	if _, err := svc.SetQuantity(ctx, entry.ID, 9, testUserID); !errors.Is(err, ErrAlreadyChecked) {
		t.Errorf("SetQuantity on checked entry: got %v", err)
	}
	if _, err := svc.AdjustQuantity(ctx, entry.ID, 1, testUserID); !errors.Is(err, ErrAlreadyChecked) {
		t.Errorf("AdjustQuantity on checked entry: got %v", err)
	}
	if err := svc.DeleteEntry(ctx, entry.ID, testUserID); !errors.Is(err, ErrAlreadyChecked) {
		t.Errorf("DeleteEntry on checked entry: got %v", err)
	}
	if _, err := svc.CheckEntry(ctx, entry.ID, testUserID); !errors.Is(err, ErrAlreadyChecked) {
		t.Errorf("double check: got %v", err)
	}

	// The product is conferred for the day; it must not come back even as a
	// fresh ungrouped row.
	_, err = svc.AddEntry(ctx, AddEntryInput{Date: date, Product: p, Quantity: 1, Grouping: false, ActorID: testUserID})
	if !errors.Is(err, ErrAlreadyChecked) {
		t.Errorf("AddEntry of conferred product: got %v", err)
	}
}

func TestFinalize(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	date := day(-7)

	addEntry(t, svc, date, widget(107), 5, true)
	e2 := addEntry(t, svc, date, widget(108), 3, true)
	if _, err := svc.CheckEntry(ctx, e2.ID, testUserID); err != nil {
		t.Fatalf("CheckEntry failed: %v", err)
	}

	snap, err := svc.Finalize(ctx, date, testUserID)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if snap.TotalItems != 2 || snap.TotalQuantity != 8 {
		t.Errorf("totals: got items=%d quantity=%d", snap.TotalItems, snap.TotalQuantity)
	}
	if snap.IsOpen {
		t.Error("snapshot must be closed")
	}
	if snap.FinalizedByID == nil || *snap.FinalizedByID != testUserID {
		t.Error("finalizer not recorded")
	}

	// The ledger is cleared in the same transaction.
	entries, err := svc.ListEntries(ctx, date)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("ledger not cleared, %d rows remain", len(entries))
	}

	st, err := svc.DayStatus(ctx, date)
	if err != nil {
		t.Fatalf("DayStatus failed: %v", err)
	}
	if st.IsOpen || st.Reason != ReasonFinalized {
		t.Errorf("status after finalize: open=%v reason=%q", st.IsOpen, st.Reason)
	}

	payload, err := DecodeSnapshotPayload([]byte(snap.Payload))
	if err != nil {
		t.Fatalf("payload decode failed: %v", err)
	}
	if len(payload) != 2 {
		t.Fatalf("payload length: got %d", len(payload))
	}
	if payload[0].CreatedByName != "Test Operator" {
		t.Errorf("actor name not resolved into payload: got %q", payload[0].CreatedByName)
	}

	var histCount int64
	if err := testDB.Model(&models.ProductHistory{}).Where("session_date = ?", date).Count(&histCount).Error; err != nil {
		t.Fatalf("history count failed: %v", err)
	}
	if histCount != 2 {
		t.Errorf("history rows: got %d, want 2", histCount)
	}

	if _, err := svc.Finalize(ctx, date, testUserID); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("double finalize: expected ErrAlreadyFinalized, got %v", err)
	}

	_, err = svc.AddEntry(ctx, AddEntryInput{Date: date, Product: widget(109), Quantity: 1, Grouping: true})
	if !errors.Is(err, ErrDayClosed) {
		t.Fatalf("add to closed day: expected ErrDayClosed, got %v", err)
	}
}

func TestMutationsOnClosedDay(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	date := day(-13)

	if _, err := svc.Finalize(ctx, date, testUserID); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// Stray rows on a closed date cannot happen through the service; plant
	// them directly to verify the day guard holds on the mutation paths too.
	stray := models.ProductionEntry{
		SessionDate: date,
		ProductID:   widget(120).ID,
		ProductCode: "WID-120",
		Quantity:    4,
		InsertedAt:  testToday,
	}
	if err := testDB.Create(&stray).Error; err != nil {
		t.Fatalf("seeding entry failed: %v", err)
	}

	if _, err := svc.SetQuantity(ctx, stray.ID, 9, testUserID); !errors.Is(err, ErrDayClosed) {
		t.Errorf("SetQuantity on closed day: got %v", err)
	}
	if _, err := svc.AdjustQuantity(ctx, stray.ID, 1, testUserID); !errors.Is(err, ErrDayClosed) {
		t.Errorf("AdjustQuantity on closed day: got %v", err)
	}
	if err := svc.DeleteEntry(ctx, stray.ID, testUserID); !errors.Is(err, ErrDayClosed) {
		t.Errorf("DeleteEntry on closed day: got %v", err)
	}
	if _, err := svc.CheckEntry(ctx, stray.ID, testUserID); !errors.Is(err, ErrDayClosed) {
		t.Errorf("CheckEntry on closed day: got %v", err)
	}

	// A conferred row answers AlreadyChecked even while the day is closed.
	checked := models.ProductionEntry{
		SessionDate: date,
		ProductID:   widget(121).ID,
		ProductCode: "WID-121",
		Quantity:    2,
		Checked:     true,
		InsertedAt:  testToday,
	}
	if err := testDB.Create(&checked).Error; err != nil {
		t.Fatalf("seeding checked entry failed: %v", err)
	}
	if _, err := svc.SetQuantity(ctx, checked.ID, 9, testUserID); !errors.Is(err, ErrAlreadyChecked) {
		t.Errorf("SetQuantity on checked entry of closed day: got %v", err)
	}
}

func TestFinalizeEmptyDay(t *testing.T) {
	svc := newTestService()

	// Finalizing "today" is allowed; only dates after today are rejected.
	snap, err := svc.Finalize(context.Background(), day(0), testUserID)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if snap.TotalItems != 0 || snap.TotalQuantity != 0 {
		t.Errorf("empty day totals: got %+v", snap)
	}
}

func TestFinalizeFutureDate(t *testing.T) {
	svc := newTestService()

	_, err := svc.Finalize(context.Background(), day(1), testUserID)
	if !errors.Is(err, ErrFutureDate) {
		t.Fatalf("expected ErrFutureDate, got %v", err)
	}
}

func TestReopenRestoresLedger(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	date := day(-9)

	addEntry(t, svc, date, widget(110), 5, true)
	e2 := addEntry(t, svc, date, widget(111), 3, true)
	if _, err := svc.CheckEntry(ctx, e2.ID, testUserID); err != nil {
		t.Fatalf("CheckEntry failed: %v", err)
	}

	snap, err := svc.Finalize(ctx, date, testUserID)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	finalizedAt := snap.FinalizedAt

	if err := svc.Reopen(ctx, date, testUserID); err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}

	entries, err := svc.ListEntries(ctx, date)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("restored ledger: got %d rows, want 2", len(entries))
	}
	byCode := map[string]models.ProductionEntry{}
	for _, e := range entries {
		byCode[e.ProductCode] = e
	}
	if byCode["WID-110"].Quantity != 5 || byCode["WID-111"].Quantity != 3 {
		t.Errorf("restored quantities wrong: %+v", byCode)
	}
	if !byCode["WID-111"].Checked {
		t.Error("checked flag lost across the reopen")
	}
	if byCode["WID-110"].Checked {
		t.Error("unchecked row came back checked")
	}

	st, err := svc.DayStatus(ctx, date)
	if err != nil {
		t.Fatalf("DayStatus failed: %v", err)
	}
	if !st.IsOpen || st.Reason != ReasonReopened {
		t.Errorf("status after reopen: open=%v reason=%q", st.IsOpen, st.Reason)
	}
	if st.Snapshot == nil {
		t.Fatal("reopened day keeps its snapshot row")
	}
	if st.Snapshot.ReopenedAt == nil {
		t.Error("reopen timestamp not stamped")
	}
	if st.Snapshot.ReopenedByID == nil || *st.Snapshot.ReopenedByID != testUserID {
		t.Error("reopening admin not recorded")
	}
	if !st.Snapshot.FinalizedAt.Equal(finalizedAt) {
		t.Error("reopen must not touch the finalize timestamp")
	}

	// The restored ledger is fully live again, including re-finalizing.
	addEntry(t, svc, date, widget(112), 2, true)
	snap2, err := svc.Finalize(ctx, date, testUserID)
	if err != nil {
		t.Fatalf("re-finalize failed: %v", err)
	}
	if snap2.TotalItems != 3 || snap2.TotalQuantity != 10 {
		t.Errorf("re-finalize totals: got items=%d quantity=%d", snap2.TotalItems, snap2.TotalQuantity)
	}
	if snap2.ID != snap.ID {
		t.Error("re-finalize must reuse the snapshot row, one per date")
	}
}

func TestReopenErrors(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.Reopen(ctx, day(-10), testUserID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("never finalized: expected ErrSnapshotNotFound, got %v", err)
	}

	date := day(-11)
	addEntry(t, svc, date, widget(113), 1, true)
	if _, err := svc.Finalize(ctx, date, testUserID); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if err := svc.Reopen(ctx, date, testUserID); err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if err := svc.Reopen(ctx, date, testUserID); !errors.Is(err, ErrDayAlreadyOpen) {
		t.Fatalf("reopen of open day: expected ErrDayAlreadyOpen, got %v", err)
	}
}

func TestReopenCorruptPayload(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	date := day(-12)

	// A snapshot written by hand with an element missing its product code,
	// the way a damaged historical record would look.
	snap := models.ProductionDaySnapshot{
		SessionDate:   date,
		TotalItems:    2,
		TotalQuantity: 7,
		Payload:       datatypes.JSON([]byte(`[{"productCode":"WID-114","quantity":5},{"quantity":2}]`)),
		FinalizedAt:   testToday,
		IsOpen:        false,
	}
	if err := testDB.Create(&snap).Error; err != nil {
		t.Fatalf("seeding snapshot failed: %v", err)
	}

	err := svc.Reopen(ctx, date, testUserID)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}

	// The failed reopen must be a no-op: no partial rows, day still closed.
	entries, err := svc.ListEntries(ctx, date)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("corrupt reopen wrote %d partial rows", len(entries))
	}
	st, err := svc.DayStatus(ctx, date)
	if err != nil {
		t.Fatalf("DayStatus failed: %v", err)
	}
	if st.IsOpen {
		t.Error("day must stay closed after a failed reopen")
	}
}
