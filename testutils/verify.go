package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain fails a package's tests if goroutines are still running once they finish.
func VerifyTestMain(m goleak.TestingM) {
	goleak.VerifyTestMain(m,
		// idle keep-alive connections of httptest clients
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}
