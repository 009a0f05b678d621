package resolver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/boardlens/boardlens/logging"
)

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (s *stateRecorder) observe(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *stateRecorder) get() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.states...)
}

// assetServer answers lookups for subject "Maths" and "Partial" and serves their models. The partial
// model sends half its bytes and then stalls until the request is cancelled. A "Slow" lookup stalls
// until cancelled and signals slowStarted when it arrives.
type assetServer struct {
	*httptest.Server
	payload     []byte
	slowStarted chan struct{}
	release     chan struct{}
}

func newAssetServer(t *testing.T) *assetServer {
	t.Helper()
	s := &assetServer{
		payload:     bytes.Repeat([]byte("model"), 10000),
		slowStarted: make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lookup":
			switch r.URL.Query().Get("subject") {
			case "Maths":
				fmt.Fprintf(w, `{"found": true, "filename": "Maths", "glb_url": "%s/model.glb"}`, s.URL)
			case "Partial":
				fmt.Fprintf(w, `{"found": true, "filename": "Partial", "glb_url": "%s/partial.glb"}`, s.URL)
			case "Broken":
				fmt.Fprintf(w, `{"found": true, "filename": "Broken", "glb_url": "%s/missing.glb"}`, s.URL)
			case "Slow":
				s.slowStarted <- struct{}{}
				select {
				case <-r.Context().Done():
				case <-s.release:
				}
			default:
				fmt.Fprint(w, `{"found": false}`)
			}
		case "/model.glb":
			w.Header().Set("Content-Length", strconv.Itoa(len(s.payload)))
			w.Write(s.payload)
		case "/partial.glb":
			w.Header().Set("Content-Length", strconv.Itoa(len(s.payload)))
			w.Write(s.payload[:len(s.payload)/2])
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
			case <-s.release:
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(func() {
		close(s.release)
		s.Close()
	})
	return s
}

func newTestResolver(t *testing.T, srv *assetServer, rec *stateRecorder) *Resolver {
	t.Helper()
	logger := logging.NewTestLogger(t)
	client, err := NewClient(srv.URL+"/lookup", srv.Client(), logger)
	test.That(t, err, test.ShouldBeNil)
	return NewResolver(client, NewDownloader(srv.Client(), 0, logger), rec.observe, logger)
}

func TestResolveComplete(t *testing.T) {
	srv := newAssetServer(t)
	rec := &stateRecorder{}
	r := newTestResolver(t, srv, rec)
	test.That(t, r.State(), test.ShouldEqual, StateIdle)

	var last float64
	asset, err := r.Resolve(context.Background(), SelectionContext{Subject: "Maths", Branch: "CSE", Term: "S1"},
		func(p float64) { last = p })
	test.That(t, err, test.ShouldBeNil)
	test.That(t, asset.Found, test.ShouldBeTrue)
	test.That(t, asset.Payload, test.ShouldResemble, srv.payload)
	test.That(t, last, test.ShouldEqual, 1.0)
	test.That(t, r.State(), test.ShouldEqual, StateComplete)
	test.That(t, rec.get(), test.ShouldResemble,
		[]State{StateSearching, StateFound, StateDownloading, StateComplete})
}

func TestResolveNotFound(t *testing.T) {
	srv := newAssetServer(t)
	rec := &stateRecorder{}
	r := newTestResolver(t, srv, rec)

	asset, err := r.Resolve(context.Background(), SelectionContext{Subject: "History"}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, asset.Found, test.ShouldBeFalse)
	test.That(t, asset.Payload, test.ShouldBeNil)
	test.That(t, r.State(), test.ShouldEqual, StateNotFound)
	test.That(t, rec.get(), test.ShouldResemble, []State{StateSearching, StateNotFound})
}

func TestResolveFailures(t *testing.T) {
	srv := newAssetServer(t)
	rec := &stateRecorder{}
	r := newTestResolver(t, srv, rec)

	_, err := r.Resolve(context.Background(), SelectionContext{Subject: "Broken"}, nil)
	test.That(t, errors.Is(err, ErrDownloadFailed), test.ShouldBeTrue)
	test.That(t, r.State(), test.ShouldEqual, StateDownloadFailed)

	logger := logging.NewTestLogger(t)
	client, err := NewClient(srv.URL+"/nowhere", srv.Client(), logger)
	test.That(t, err, test.ShouldBeNil)
	r = NewResolver(client, NewDownloader(srv.Client(), 0, logger), nil, logger)
	_, err = r.Resolve(context.Background(), SelectionContext{Subject: "Maths"}, nil)
	test.That(t, errors.Is(err, ErrNetwork), test.ShouldBeTrue)
	test.That(t, r.State(), test.ShouldEqual, StateNetworkError)
}

func TestResolveCancelDuringDownload(t *testing.T) {
	srv := newAssetServer(t)
	rec := &stateRecorder{}
	r := newTestResolver(t, srv, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	var afterCancel int
	cancelled := false
	asset, err := r.Resolve(ctx, SelectionContext{Subject: "Partial"}, func(p float64) {
		mu.Lock()
		defer mu.Unlock()
		if cancelled {
			afterCancel++
			return
		}
		test.That(t, p, test.ShouldBeLessThan, 1.0)
		cancelled = true
		cancel()
	})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, asset.Payload, test.ShouldBeNil)
	test.That(t, asset.Found, test.ShouldBeFalse)
	mu.Lock()
	test.That(t, cancelled, test.ShouldBeTrue)
	test.That(t, afterCancel, test.ShouldEqual, 0)
	mu.Unlock()
	test.That(t, r.State(), test.ShouldEqual, StateIdle)
	test.That(t, rec.get(), test.ShouldNotContain, StateComplete)
}

func TestResolveSupersedes(t *testing.T) {
	srv := newAssetServer(t)
	rec := &stateRecorder{}
	r := newTestResolver(t, srv, rec)

	slowErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), SelectionContext{Subject: "Slow"}, nil)
		slowErr <- err
	}()
	<-srv.slowStarted

	asset, err := r.Resolve(context.Background(), SelectionContext{Subject: "Maths"}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, asset.Found, test.ShouldBeTrue)
	test.That(t, errors.Is(<-slowErr, context.Canceled), test.ShouldBeTrue)
	test.That(t, r.State(), test.ShouldEqual, StateComplete)

	states := rec.get()
	test.That(t, states[len(states)-1], test.ShouldEqual, StateComplete)
	test.That(t, states, test.ShouldNotContain, StateIdle)
}

// stubbornTransport answers every lookup with not-found once release is closed. It ignores request
// cancellation and records how many lookups were in flight at once.
type stubbornTransport struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	entered  chan struct{}
	release  chan struct{}
}

func (tr *stubbornTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tr.mu.Lock()
	tr.inFlight++
	if tr.inFlight > tr.peak {
		tr.peak = tr.inFlight
	}
	tr.mu.Unlock()
	tr.entered <- struct{}{}
	<-tr.release
	tr.mu.Lock()
	tr.inFlight--
	tr.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(`{"found": false}`)),
		Request:    req,
	}, nil
}

func (tr *stubbornTransport) peakInFlight() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.peak
}

func TestResolveSupersededWhileWaiting(t *testing.T) {
	logger := logging.NewTestLogger(t)
	tr := &stubbornTransport{entered: make(chan struct{}, 3), release: make(chan struct{})}
	httpClient := &http.Client{Transport: tr}
	client, err := NewClient("http://lookup.test/lookup", httpClient, logger)
	test.That(t, err, test.ShouldBeNil)
	r := NewResolver(client, NewDownloader(httpClient, 0, logger), nil, logger)

	waitForGeneration := func(gen uint64) {
		testutils.WaitForAssertion(t, func(tb testing.TB) {
			r.mu.Lock()
			defer r.mu.Unlock()
			test.That(tb, r.generation, test.ShouldEqual, gen)
		})
	}

	errs := make(chan error, 3)
	resolve := func(subject string) {
		_, err := r.Resolve(context.Background(), SelectionContext{Subject: subject}, nil)
		errs <- err
	}

	go resolve("first")
	<-tr.entered
	go resolve("second")
	waitForGeneration(2)
	go resolve("third")
	waitForGeneration(3)

	// the first lookup is still stuck, so nothing else may reach the server
	select {
	case <-tr.entered:
		t.Fatal("a superseded run let a newer lookup start before the first one finished")
	case <-time.After(100 * time.Millisecond):
	}

	close(tr.release)
	var cancelled int
	for i := 0; i < 3; i++ {
		if errors.Is(<-errs, context.Canceled) {
			cancelled++
		}
	}
	test.That(t, cancelled, test.ShouldBeGreaterThanOrEqualTo, 1)
	test.That(t, tr.peakInFlight(), test.ShouldEqual, 1)
	test.That(t, r.State(), test.ShouldEqual, StateNotFound)
}

func TestResolverCancel(t *testing.T) {
	srv := newAssetServer(t)
	r := newTestResolver(t, srv, &stateRecorder{})

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), SelectionContext{Subject: "Slow"}, nil)
		errCh <- err
	}()
	<-srv.slowStarted
	r.Cancel()
	test.That(t, errors.Is(<-errCh, context.Canceled), test.ShouldBeTrue)
	test.That(t, r.State(), test.ShouldEqual, StateIdle)

	// nothing in flight
	r.Cancel()
}

func TestStateString(t *testing.T) {
	test.That(t, StateDownloadFailed.String(), test.ShouldEqual, "download_failed")
	test.That(t, State(99).String(), test.ShouldEqual, "unknown")
}
