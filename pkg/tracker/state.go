package tracker

// State is the lifecycle stage of a Shell.
type State string

const (
	StateUninitialized      State = "uninitialized"       // nothing acquired yet
	StateCameraOpen         State = "camera_open"         // capture device held
	StateCalibrationChecked State = "calibration_checked" // calibration present
	StateRunning            State = "running"             // frame loop active
	StateReleased           State = "released"            // terminal
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateReleased
}
