package codec

import (
	"encoding/binary"
	"io"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/tabforge/tabforge/pkg/errors"
	"github.com/tabforge/tabforge/pkg/logger"
	"github.com/tabforge/tabforge/pkg/pool"
)

type blk struct {
	id   int
	data []byte
}

// Compress reads src, compresses fixed-size blocks in parallel across a
// pool bounded by cfg.Jobs, and writes them to dst strictly in block order.
// It returns the number of input bytes consumed. The number of blocks in
// flight is bounded, so memory use is O(jobs * block size) regardless of
// input size.
func Compress(dst io.Writer, src io.Reader, cfg Config) (int64, error) {
	cfg = cfg.normalize()
	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	if err := writeHeader(dst, cfg); err != nil {
		return 0, err
	}

	work := make(chan blk, jobs)
	results := make(chan blk, jobs)
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }

	// Each token is one block in flight between the producer and the
	// ordered writer.
	tokens := make(chan struct{}, jobs*2)

	var inputBytes int64
	var readErr error

	// Producer: split src into blocks.
	go func() {
		defer close(work)
		id := 0
		for {
			select {
			case tokens <- struct{}{}:
			case <-stop:
				return
			}
			buf := pool.Global.Get(cfg.BlockSize)
			n, err := io.ReadFull(src, buf)
			if n > 0 {
				inputBytes += int64(n)
				select {
				case work <- blk{id: id, data: buf[:n]}:
				case <-stop:
					return
				}
				id++
			} else {
				pool.Global.Put(buf)
			}
			if err != nil {
				if err != io.EOF && err != io.ErrUnexpectedEOF {
					readErr = errors.Wrap(err, errors.ErrorTypeIO, "failed to read input")
					halt()
				}
				return
			}
		}
	}()

	// Workers: compress blocks independently. On failure the first error
	// halts the pipeline; the worker keeps draining so the producer is
	// never left blocked.
	var workErr error
	var errOnce sync.Once
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range work {
				out, err := compressBlock(cfg.Algorithm, cfg.Level, b.data)
				pool.Global.Put(b.data[:cap(b.data)])
				if err != nil {
					errOnce.Do(func() {
						workErr = err
						halt()
					})
					continue
				}
				select {
				case results <- blk{id: b.id, data: out}:
				case <-stop:
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Ordered writer: blocks leave in id order no matter how the workers
	// finish.
	var writeErr error
	pending := make(map[int][]byte)
	nextID := 0
	for b := range results {
		<-tokens
		if writeErr != nil {
			continue // drain
		}
		pending[b.id] = b.data
		for {
			data, ok := pending[nextID]
			if !ok {
				break
			}
			delete(pending, nextID)
			if err := writeFrame(dst, data); err != nil {
				writeErr = err
				halt()
				break
			}
			nextID++
		}
	}

	switch {
	case writeErr != nil:
		return inputBytes, writeErr
	case workErr != nil:
		return inputBytes, workErr
	case readErr != nil:
		return inputBytes, readErr
	}

	logger.Get().Debug("compressed stream",
		zap.Int64("input_bytes", inputBytes),
		zap.Int("blocks", nextID),
		zap.String("algorithm", string(cfg.Algorithm)),
		zap.Int("jobs", jobs))

	return inputBytes, nil
}

func writeFrame(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write block frame")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write block payload")
	}
	return nil
}
