package controller_test

import (
	"testing"

	"github.com/boardlens/boardlens/testutils"
)

func TestMain(m *testing.M) {
	testutils.VerifyTestMain(m)
}
