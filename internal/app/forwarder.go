package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"quiz-session-service/internal/domain"
)

// forwarder sends answer snapshots to the persistence service one at a time, in the
// order they were made. The mailbox holds one unsent snapshot; a newer one replaces it,
// since every snapshot supersedes the previous one entirely.
type forwarder struct {
	ctx       context.Context
	responses ResponsePersistence
	done      <-chan struct{}
	log       zerolog.Logger
	mailbox   chan domain.ProgressUpdate
	pending   sync.WaitGroup
}

func newForwarder(ctx context.Context, responses ResponsePersistence, done <-chan struct{}, log zerolog.Logger) *forwarder {
	return &forwarder{
		ctx:       ctx,
		responses: responses,
		done:      done,
		log:       log,
		mailbox:   make(chan domain.ProgressUpdate, 1),
	}
}

// enqueue must only be called by one goroutine at a time (the session holds its lock).
func (f *forwarder) enqueue(update domain.ProgressUpdate) {
	f.pending.Add(1)
	select {
	case f.mailbox <- update:
	default:
		select {
		case <-f.mailbox:
			f.pending.Done()
		default:
		}
		f.mailbox <- update
	}
}

func (f *forwarder) run() {
	for {
		select {
		case update := <-f.mailbox:
			f.save(update)
		case <-f.done:
			// a snapshot queued before termination still goes out
			select {
			case update := <-f.mailbox:
				f.save(update)
			default:
			}
			return
		}
	}
}

func (f *forwarder) save(update domain.ProgressUpdate) {
	defer f.pending.Done()
	if err := f.responses.SaveProgress(f.ctx, update); err != nil {
		f.log.Warn().Err(err).Msg("forward answers failed")
	}
}

func (f *forwarder) wait() {
	f.pending.Wait()
}
