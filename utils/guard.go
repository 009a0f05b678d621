package utils

// Guard runs a cleanup function when a function that builds up a resource (a buffer, an open
// file) returns early with an error. Usage:
//
//	guard := NewGuard(func() { buf.Reset() })
//	defer guard.OnFail()
//	if err != nil { return err }
//	guard.Success()
//	return nil
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a Guard that calls onFailCleanup from OnFail unless Success was called first.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success marks the guarded operation as complete; OnFail becomes a no-op.
func (guard *Guard) Success() {
	guard.success = true
}
