package download

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/WillHanighen/CottageLauncher/internal/fetch"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
)

const (
	// DefaultWorkers is the default number of concurrent transfers per batch.
	DefaultWorkers = 10

	// copyChunkSize is the transfer buffer size. Cancellation is checked
	// between chunks, so it bounds how much work a cancelled job finishes.
	copyChunkSize = 32 * 1024

	// dirPermissions is used when creating destination directories.
	dirPermissions os.FileMode = 0o755
)

var (
	// errJobChecksum is returned for jobs submitted without a checksum.
	errJobChecksum = errors.New("job must carry a checksum")
	// errJobURL is returned for jobs submitted without any URL.
	errJobURL = errors.New("job must carry at least one URL")
)

// Engine downloads batches of files with a bounded worker pool.
// Every destination is confined to the engine's root directory.
type Engine struct {
	client  *fetch.Client
	root    string
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of concurrent transfers per batch.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates an engine writing only under the given root directory.
func NewEngine(client *fetch.Client, root string, opts ...Option) *Engine {
	e := &Engine{
		client:  client,
		root:    filepath.Clean(root),
		workers: DefaultWorkers,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes a batch of jobs and returns one result per job, in job order.
// Failures do not stop the batch: required failures surface through
// Report.Err, optional failures through Report.FailedOptional.
func (e *Engine) Run(ctx context.Context, jobs []Job) *Report {
	report := &Report{
		Results: make([]Result, len(jobs)),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)

	for i, job := range jobs {
		group.Go(func() error {
			path, err := e.Fetch(groupCtx, job)
			report.Results[i] = Result{Job: job, Path: path, Err: err}

			// Results carry the failures, so the group itself never fails
			// and sibling jobs keep running.
			return nil
		})
	}

	//nolint:errcheck // Goroutines always return nil.
	_ = group.Wait()

	if failed := report.FailedOptional(); len(failed) > 0 {
		for _, result := range failed {
			logger.WarnKV(ctx, "Optional file failed to download",
				"file", result.Job.Name, "error", result.Err)
		}
	}

	return report
}

// Fetch downloads a single job: the response streams to a temporary file in
// the destination directory while its digest is computed, and the file is
// renamed into place only after the checksum matches. On any failure the
// destination keeps its pre-call state.
func (e *Engine) Fetch(ctx context.Context, job Job) (string, error) {
	if job.Checksum.IsZero() {
		return "", fmt.Errorf("%s: %w", job.Name, errJobChecksum)
	}

	dest, err := e.confine(job.Dest)
	if err != nil {
		return "", fmt.Errorf("%s: %w", job.Name, err)
	}

	if err = os.MkdirAll(filepath.Dir(dest), dirPermissions); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}

	var lastErr error

	for _, rawURL := range job.URLs {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		err = e.fetchFrom(ctx, job, rawURL, dest)
		if err == nil {
			logger.DebugKV(ctx, "Downloaded file", "file", job.Name, "url", rawURL)

			return dest, nil
		}

		// A checksum or size mismatch means the source publishes wrong
		// content. Mirrors carry the same content, so trying them would
		// only repeat the failure.
		var integrityErr *IntegrityError
		if errors.As(err, &integrityErr) {
			return "", err
		}

		var sizeErr *SizeError
		if errors.As(err, &sizeErr) {
			return "", err
		}

		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%s: %w", job.Name, errJobURL)
	}

	return "", lastErr
}

func (e *Engine) fetchFrom(ctx context.Context, job Job, rawURL, dest string) (err error) {
	resp, err := e.client.Get(ctx, rawURL)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	hasher, err := job.Checksum.NewHash()
	if err != nil {
		return err
	}

	written, err := copyChunks(ctx, io.MultiWriter(tmp, hasher), resp.Body)
	if err != nil {
		return fmt.Errorf("stream %s: %w", rawURL, err)
	}

	if job.Size >= 0 && written != job.Size {
		return &SizeError{Name: job.Name, Expected: job.Size, Actual: written}
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if !job.Checksum.Matches(actual) {
		return &IntegrityError{Name: job.Name, Expected: job.Checksum, Actual: actual}
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("move file into place: %w", err)
	}

	return nil
}

// copyChunks copies src to dst in fixed-size chunks, checking for
// cancellation between chunks.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyChunkSize)

	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])

			written += int64(wn)

			if writeErr != nil {
				return written, writeErr
			}

			if wn < n {
				return written, io.ErrShortWrite
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return written, nil
			}

			return written, readErr
		}
	}
}

// confine resolves dest and verifies it stays inside the engine root.
func (e *Engine) confine(dest string) (string, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}

	rootAbs, err := filepath.Abs(e.root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, dest)
	}

	return abs, nil
}
