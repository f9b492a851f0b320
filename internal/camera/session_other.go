//go:build !linux

package camera

import "errors"

// open reports that capture is unsupported off Linux. The mock device
// detector lets the UI come up without a session.
func open(path string) (Session, error) {
	return nil, errors.New("camera capture requires Linux V4L2 support")
}
