package order

import (
	"fmt"
	"time"
)

// FormatNumber renders the human-readable order number ORD-YYYYMMDD-NNNNNN.
// seq is a per-day sequence value; uniqueness is enforced at insert by the
// repository, callers retry with a fresh sequence value on conflict.
func FormatNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%06d", day.UTC().Format("20060102"), seq%1000000)
}
