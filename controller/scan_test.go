package controller_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/boardlens/boardlens/controller"
	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/services/resolver"
)

// newContentServer answers lookups for CST201 with a model that sends half its bytes and then stalls
// until the request goes away. Every other subject is unknown.
func newContentServer(t *testing.T) *httptest.Server {
	t.Helper()
	payload := bytes.Repeat([]byte("glTF"), 20000)
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lookup":
			if r.URL.Query().Get("subject") != "CST201" {
				fmt.Fprint(w, `{"found": false}`)
				return
			}
			fmt.Fprintf(w, `{"found": true, "filename": "Data Structures", "glb_url": "%s/cst201.glb"}`, srv.URL)
		case "/cst201.glb":
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			w.Write(payload[:len(payload)/2])
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func withResolver(t *testing.T, srv *httptest.Server) func(h *harness) {
	return func(h *harness) {
		logger := logging.NewTestLogger(t)
		client, err := resolver.NewClient(srv.URL+"/lookup", srv.Client(), logger)
		test.That(t, err, test.ShouldBeNil)
		h.deps.Resolver = resolver.NewResolver(client, resolver.NewDownloader(srv.Client(), 0, logger), nil, logger)
	}
}

func TestScanUnknownSubject(t *testing.T) {
	srv := newContentServer(t)
	h := newHarness(t, controller.Config{SkipFrames: 1}, withResolver(t, srv))

	test.That(t, h.ctrl.TriggerScan(resolver.SelectionContext{Subject: "MAT101", Branch: "CSE", Term: "S1"}),
		test.ShouldBeNil)
	runUntilIdle(t, h.ctrl)

	test.That(t, h.outcomes(), test.ShouldResemble, []controller.Outcome{controller.OutcomeContentNotFound})
	test.That(t, h.placedCount(), test.ShouldEqual, 0)
	test.That(t, h.ctrl.Status().Message, test.ShouldEqual, "No content found for this subject.")
}

func TestScanCancelledDuringDownload(t *testing.T) {
	srv := newContentServer(t)
	h := newHarness(t, controller.Config{SkipFrames: 1}, withResolver(t, srv))
	ctx := context.Background()

	test.That(t, h.ctrl.TriggerScan(selection), test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		h.ctrl.Tick(ctx)
		status := h.ctrl.Status()
		test.That(tb, status.State, test.ShouldEqual, controller.StateResolving)
		test.That(tb, status.Progress, test.ShouldBeGreaterThan, 0)
	})
	test.That(t, h.ctrl.Status().Progress, test.ShouldBeLessThan, 1)

	h.ctrl.Cancel()
	test.That(t, h.ctrl.State(), test.ShouldEqual, controller.StateIdle)

	// the download unwinds in the background; nothing it reports may reach the scene
	test.That(t, h.ctrl.Close(ctx), test.ShouldBeNil)
	h.ctrl.Tick(ctx)
	test.That(t, h.ctrl.State(), test.ShouldEqual, controller.StateIdle)
	test.That(t, h.placedCount(), test.ShouldEqual, 0)
	test.That(t, h.outcomes(), test.ShouldResemble, []controller.Outcome{controller.OutcomeCancelled})
	_, ok := h.ctrl.LastAsset()
	test.That(t, ok, test.ShouldBeFalse)
}
