//go:build !windows

package winmgr

type stubManager struct{}

func newPlatformManager() Manager { return stubManager{} }

// FindMain never matches on platforms without window enumeration; the
// orchestrator then simply skips the hide/restore steps.
func (stubManager) FindMain(markers []string) (MainWindow, bool) {
	return nil, false
}
