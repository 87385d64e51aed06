// Package screen defines the screen-capture collaborator.
package screen

// Capturer grabs a screenshot of the active display. A nil image with nil
// error means capture is unavailable right now.
type Capturer interface {
	CaptureFast() ([]byte, error)
}

// Noop is a capturer that never produces an image. Used where the host
// does not provide capture.
type Noop struct{}

// CaptureFast implements Capturer.
func (Noop) CaptureFast() ([]byte, error) { return nil, nil }
