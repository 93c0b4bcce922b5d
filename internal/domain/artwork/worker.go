package artwork

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
)

// DefaultWorkers is the number of concurrent image fetches.
const DefaultWorkers = 2

// Job asks for the image of URI.
type Job struct {
	URI      string
	ImageURI string
}

// DoneFunc is called from a worker goroutine when a job produced a file.
type DoneFunc func(uri, path string)

// Worker fetches images in the background so that downloads and decoding
// never run on the dispatch loop.
type Worker struct {
	store   *Store
	done    DoneFunc
	workers int
	jobs    *bus.Queue[Job]

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewWorker creates a worker pool of n goroutines.
func NewWorker(store *Store, n int, done DoneFunc) *Worker {
	if n < 1 {
		n = DefaultWorkers
	}
	return &Worker{
		store:    store,
		done:     done,
		workers:  n,
		jobs:     bus.NewQueue[Job](),
		inFlight: make(map[string]struct{}),
	}
}

// Submit queues a job. A job for a URI already queued or running is dropped.
func (w *Worker) Submit(job Job) {
	w.mu.Lock()
	if _, busy := w.inFlight[job.URI]; busy {
		w.mu.Unlock()
		return
	}
	w.inFlight[job.URI] = struct{}{}
	w.mu.Unlock()

	w.jobs.Push(job)
}

// Pending returns the number of queued jobs.
func (w *Worker) Pending() int {
	return w.jobs.Len()
}

// Run processes jobs until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	log.Info().Int("workers", w.workers).Msg("Image worker started")

	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := w.jobs.Pop(ctx)
				if err != nil {
					return
				}
				w.process(ctx, job)
			}
		}()
	}
	wg.Wait()

	log.Info().Msg("Image worker stopped")
}

func (w *Worker) process(ctx context.Context, job Job) {
	defer func() {
		w.mu.Lock()
		delete(w.inFlight, job.URI)
		w.mu.Unlock()
	}()

	path, err := w.store.Fetch(ctx, job.URI, job.ImageURI)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Str("uri", job.URI).Str("image", job.ImageURI).Msg("Image fetch failed")
		}
		return
	}

	log.Debug().Str("uri", job.URI).Str("path", path).Msg("Image available")
	if w.done != nil {
		w.done(job.URI, path)
	}
}
