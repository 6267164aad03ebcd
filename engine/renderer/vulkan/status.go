package vulkan

// Status is the outcome of a frame-path operation. WindowResized is the only
// recoverable condition; the caller must recreate the swapchain before the
// next frame.
type Status int

const (
	StatusOK Status = iota
	StatusFatal
	StatusWindowResized
	StatusNotPrepared
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFatal:
		return "FATAL"
	case StatusWindowResized:
		return "WINDOW_RESIZED"
	case StatusNotPrepared:
		return "NOT_PREPARED"
	default:
		return "UNKNOWN"
	}
}
