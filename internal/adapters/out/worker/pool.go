// Package worker runs background compression jobs and joins spawned builds.
package worker

import (
	"runtime"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/sourcegraph/conc/pool"

	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/pkg/repack"
)

// EncodeFunc compresses src into dst.
type EncodeFunc func(src, dst string, level int) error

// Pool is a fixed-size pool for archive compression. The underlying
// goroutine pool is created on the first submission and released by Wait.
type Pool struct {
	size   int
	encode EncodeFunc
	log    zerowrap.Logger

	mu sync.Mutex
	p  *pool.Pool
}

var _ out.EncodePool = (*Pool)(nil)

// NewPool creates a pool running at most size jobs at once. A size of zero
// or less uses the number of logical CPUs.
func NewPool(size int, log zerowrap.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{
		size:   size,
		encode: encodeZstd,
		log:    log,
	}
}

// WithEncoder replaces the compression function.
func (p *Pool) WithEncoder(fn EncodeFunc) *Pool {
	p.encode = fn
	return p
}

// Size returns the maximum number of concurrent jobs.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) get() *pool.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.p == nil {
		p.p = pool.New().WithMaxGoroutines(p.size)
	}
	return p.p
}

// SubmitEncode queues compression of src into dst at level.
func (p *Pool) SubmitEncode(src, dst string, level int) {
	p.get().Go(func() {
		start := time.Now()
		p.log.Info().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "pool").
			Str("src", src).
			Str("dst", dst).
			Int("level", level).
			Stringer("encoder", repack.EncoderLevel(level)).
			Msg("compressing")
		if err := p.encode(src, dst, level); err != nil {
			p.log.Error().Err(err).Str(zerowrap.FieldAdapter, "pool").Str("src", src).Str("dst", dst).Msg("compression failed")
			return
		}
		p.log.Info().Str(zerowrap.FieldAdapter, "pool").Str("dst", dst).Dur(zerowrap.FieldDuration, time.Since(start)).Msg("compressed")
	})
}

// Wait blocks until every submitted job has finished.
func (p *Pool) Wait() {
	p.mu.Lock()
	cur := p.p
	p.p = nil
	p.mu.Unlock()

	if cur != nil {
		cur.Wait()
	}
}

func encodeZstd(src, dst string, level int) error {
	return repack.New(src, dst).WithOperation(repack.Encode(level)).Run()
}
