package runners

import "time"

// SetNow replaces the clock used for default file names and returns a
// function restoring it.
func SetNow(f func() time.Time) func() {
	old := now
	now = f
	return func() { now = old }
}
