// Package worker runs transcription jobs from the durable pending
// queue. The queue is the jobs table itself: creation inserts a
// pending row, and a bounded pool of workers claims rows with an
// atomic conditional update, so a crash loses no submitted work and a
// flood of submissions cannot spawn unbounded pipelines.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kukshaus/transcribe-sub000/internal/models"
	"github.com/kukshaus/transcribe-sub000/internal/storage"
)

// Handler processes one claimed job to a terminal state.
type Handler func(ctx context.Context, job *models.TranscriptionJob) error

// Pool polls the job queue with a fixed number of workers.
type Pool struct {
	jobRepo     *storage.JobRepository
	handler     Handler
	concurrency int
	interval    time.Duration
	stop        chan struct{}
	wg          sync.WaitGroup
}

// NewPool creates a pool. concurrency <= 0 selects 4 workers.
func NewPool(jobRepo *storage.JobRepository, handler Handler, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pool{
		jobRepo:     jobRepo,
		handler:     handler,
		concurrency: concurrency,
		interval:    1 * time.Second,
		stop:        make(chan struct{}),
	}
}

// SetInterval sets the polling interval.
func (p *Pool) SetInterval(interval time.Duration) {
	p.interval = interval
}

// Start begins processing jobs.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	log.Printf("Worker pool started (%d workers)", p.concurrency)
}

// Stop gracefully stops the pool, waiting for in-flight jobs.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
	log.Println("Worker pool stopped")
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.processNextJob(ctx)
		}
	}
}

func (p *Pool) processNextJob(ctx context.Context) {
	job, err := p.jobRepo.ClaimNextPending(ctx)
	if err != nil {
		log.Printf("Error claiming next job: %v", err)
		return
	}
	if job == nil {
		return // queue is empty
	}

	log.Printf("Processing job %s", job.ID)
	if err := p.handler(ctx, job); err != nil {
		// The handler finalizes its own job state; this is a backstop
		// for handlers that bailed before reaching a terminal state.
		// Fail is a no-op on already-terminal jobs.
		log.Printf("Job %s handler error: %v", job.ID, err)
		if dbErr := p.jobRepo.Fail(ctx, job.ID, "Transcription failed. Please try again later.", 0); dbErr != nil {
			log.Printf("Error failing job %s: %v", job.ID, dbErr)
		}
	}
}
