package coldcache

import (
	"fmt"
)

// SnapshotError reports what went wrong while recovering from a bad durable
// snapshot. It is handed to Hooks.SnapshotDiscarded and logged; it never
// crosses the public binding surface, since a corrupt cache must not block
// startup.
type SnapshotError struct {
	DecodeErr error
	WipeErr   error
}

func (e *SnapshotError) Error() string {
	switch {
	case e.DecodeErr != nil && e.WipeErr != nil:
		return fmt.Sprintf("snapshot discarded: decode failed and wipe failed: decode=%v; wipe=%v",
			e.DecodeErr, e.WipeErr)
	case e.DecodeErr != nil:
		return fmt.Sprintf("snapshot discarded: decode failed: %v", e.DecodeErr)
	case e.WipeErr != nil:
		return fmt.Sprintf("snapshot discarded: wipe failed: %v", e.WipeErr)
	default:
		return "snapshot discarded: unknown error"
	}
}

func (e *SnapshotError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.DecodeErr != nil {
		errs = append(errs, e.DecodeErr)
	}
	if e.WipeErr != nil {
		errs = append(errs, e.WipeErr)
	}
	return errs
}
