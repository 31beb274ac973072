package instrument

import "time"

// Host is the execution environment wrappers schedule work on.
type Host interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc runs f once after d. The returned stop function cancels the
	// call and reports whether it was still pending.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// SystemHost is the wall-clock Host.
type SystemHost struct{}

// Now implements Host.
func (SystemHost) Now() time.Time { return time.Now() }

// AfterFunc implements Host.
func (SystemHost) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
