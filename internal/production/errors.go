package production

import "errors"

// Recoverable, user-facing conditions. Handlers translate these verbatim into
// HTTP statuses; none of them is retried automatically.
var (
	// ErrDayClosed is returned for any mutation against a finalized day.
	ErrDayClosed = errors.New("production day is closed")

	// ErrAlreadyChecked is returned when mutating a conferred entry, or when
	// adding a product that has already been conferred for the day.
	ErrAlreadyChecked = errors.New("entry is already checked")

	// ErrBelowMinimum is returned when a quantity change would drop below 1.
	ErrBelowMinimum = errors.New("quantity cannot drop below 1")

	// ErrFutureDate is returned when finalizing a date after today.
	ErrFutureDate = errors.New("cannot finalize a future date")

	// ErrAlreadyFinalized is returned when finalizing a day that already has a
	// closed snapshot.
	ErrAlreadyFinalized = errors.New("day is already finalized")

	// ErrSnapshotNotFound is returned when reopening a day that was never
	// finalized.
	ErrSnapshotNotFound = errors.New("no snapshot exists for this date")

	// ErrDayAlreadyOpen is returned when reopening a day that is open.
	ErrDayAlreadyOpen = errors.New("day is already open")

	// ErrCorruptSnapshot is returned when a snapshot payload cannot be
	// reconstructed into ledger rows. The reopen aborts with zero rows written.
	ErrCorruptSnapshot = errors.New("snapshot payload is corrupt")

	// ErrEntryNotFound is returned when an entry id does not exist.
	ErrEntryNotFound = errors.New("entry not found")
)
