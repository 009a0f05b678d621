// Package resolver looks up the content for a subject selection and downloads its 3D asset.
package resolver

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/logging"
)

var (
	// ErrNetwork is returned when the lookup request fails or the server answers with an error status.
	ErrNetwork = errors.New("network error")
	// ErrDownloadFailed is returned when the asset download does not complete.
	ErrDownloadFailed = errors.New("download failed")
)

// SelectionContext is the subject selection a scan was triggered with.
type SelectionContext struct {
	Subject string
	Branch  string
	Term    string
}

// AssetRecord is the content found for a selection. Payload holds the downloaded model once the
// resolver reaches StateComplete.
type AssetRecord struct {
	Found       bool
	DisplayName string
	ModelURL    *string
	DocumentURL *string
	Payload     []byte
}

// State is where a resolver run currently is.
type State int

// The resolver states.
const (
	StateIdle State = iota
	StateSearching
	StateFound
	StateNotFound
	StateNetworkError
	StateDownloading
	StateComplete
	StateDownloadFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateFound:
		return "found"
	case StateNotFound:
		return "not_found"
	case StateNetworkError:
		return "network_error"
	case StateDownloading:
		return "downloading"
	case StateComplete:
		return "complete"
	case StateDownloadFailed:
		return "download_failed"
	default:
		return "unknown"
	}
}

// ProgressFunc receives download progress in [0,1].
type ProgressFunc func(progress float64)

// StateObserver is told about every state a current run enters.
type StateObserver func(state State)

// Resolver runs lookup then download. Starting a new Resolve cancels the run in flight and waits for
// it to unwind; a superseded run never publishes states, progress or results.
type Resolver struct {
	client     *Client
	downloader *Downloader
	observer   StateObserver
	logger     logging.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	cancelRun  context.CancelFunc
	runDone    chan struct{}
}

// NewResolver returns an idle resolver. observer may be nil.
func NewResolver(client *Client, downloader *Downloader, observer StateObserver, logger logging.Logger) *Resolver {
	return &Resolver{
		client:     client,
		downloader: downloader,
		observer:   observer,
		logger:     logger,
	}
}

// State returns the state of the current run.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Cancel cancels the run in flight, if any.
func (r *Resolver) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelRun != nil {
		r.cancelRun()
	}
}

// Resolve looks sel up and, when found, downloads its model. Not finding content is not an error: the
// returned record has Found=false. A cancelled run returns the context error and reverts to
// StateIdle.
func (r *Resolver) Resolve(ctx context.Context, sel SelectionContext, onProgress ProgressFunc) (AssetRecord, error) {
	r.mu.Lock()
	if r.cancelRun != nil {
		r.cancelRun()
	}
	prevDone := r.runDone
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.generation++
	gen := r.generation
	r.cancelRun, r.runDone = cancel, done
	r.mu.Unlock()

	defer func() {
		cancel()
		// a run superseded while waiting still holds its place in the chain until its predecessor exits
		if prevDone != nil {
			<-prevDone
		}
		close(done)
		r.mu.Lock()
		if r.generation == gen {
			r.cancelRun, r.runDone = nil, nil
		}
		r.mu.Unlock()
	}()

	if prevDone != nil {
		select {
		case <-prevDone:
		case <-runCtx.Done():
			r.setState(gen, StateIdle)
			return AssetRecord{}, runCtx.Err()
		}
	}
	return r.run(runCtx, gen, sel, onProgress)
}

func (r *Resolver) run(ctx context.Context, gen uint64, sel SelectionContext, onProgress ProgressFunc) (AssetRecord, error) {
	r.setState(gen, StateSearching)
	rec, err := r.client.Search(ctx, sel)
	if err != nil {
		if ctx.Err() != nil {
			r.setState(gen, StateIdle)
			return AssetRecord{}, ctx.Err()
		}
		r.setState(gen, StateNetworkError)
		return AssetRecord{}, err
	}
	if !rec.Found {
		r.setState(gen, StateNotFound)
		return rec, nil
	}
	r.setState(gen, StateFound)

	r.setState(gen, StateDownloading)
	payload, err := r.downloader.Download(ctx, *rec.ModelURL, func(p float64) {
		if ctx.Err() == nil && r.isCurrent(gen) && onProgress != nil {
			onProgress(p)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			r.logger.Debugw("download cancelled", "url", *rec.ModelURL)
			r.setState(gen, StateIdle)
			return AssetRecord{}, ctx.Err()
		}
		r.setState(gen, StateDownloadFailed)
		return AssetRecord{}, err
	}
	if ctx.Err() != nil {
		r.setState(gen, StateIdle)
		return AssetRecord{}, ctx.Err()
	}
	rec.Payload = payload
	r.setState(gen, StateComplete)
	return rec, nil
}

func (r *Resolver) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation == gen
}

func (r *Resolver) setState(gen uint64, s State) {
	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return
	}
	r.state = s
	r.mu.Unlock()
	r.logger.Debugw("resolver state", "state", s.String())
	if r.observer != nil {
		r.observer(s)
	}
}
