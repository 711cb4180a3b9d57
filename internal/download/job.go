package download

import (
	"errors"
	"fmt"

	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
)

// ErrOutsideRoot is returned for jobs whose destination would land outside
// the engine's root directory.
var ErrOutsideRoot = errors.New("destination escapes the download root")

// Job is one file to download and verify.
type Job struct {
	// Name is the logical name used in results and logs.
	Name string
	// URLs lists sources in priority order. A transport failure moves on
	// to the next mirror; a checksum mismatch does not.
	URLs []string
	// Dest is the absolute destination path. It must resolve inside the
	// engine's root directory.
	Dest string
	// Checksum is the expected digest. Mandatory.
	Checksum pack.Checksum
	// Size is the expected byte size, or -1 when unknown.
	Size int64
	// Optional jobs may fail without failing the batch.
	Optional bool
}

// IntegrityError reports content that did not match its declared checksum.
// The destination is left untouched.
type IntegrityError struct {
	// Name is the job's logical name.
	Name string
	// Expected is the declared checksum.
	Expected pack.Checksum
	// Actual is the hex digest of what was received.
	Actual string
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: want %s, got %s:%s",
		e.Name, e.Expected, e.Expected.Algo, e.Actual)
}

// SizeError reports a transfer whose length did not match the declared size.
type SizeError struct {
	// Name is the job's logical name.
	Name string
	// Expected is the declared size in bytes.
	Expected int64
	// Actual is the number of bytes received.
	Actual int64
}

// Error implements the error interface.
func (e *SizeError) Error() string {
	return fmt.Sprintf("size check failed for %s: want %d bytes, got %d", e.Name, e.Expected, e.Actual)
}

// Result is the outcome of one job.
type Result struct {
	// Job is the job that ran.
	Job Job
	// Path is the final destination on success.
	Path string
	// Err is the failure, nil on success.
	Err error
}

// Report aggregates the results of one batch.
type Report struct {
	// Results holds one entry per job, in job order.
	Results []Result
}

// FailedRequired returns the failed results of required jobs.
func (r *Report) FailedRequired() []Result {
	var failed []Result

	for _, result := range r.Results {
		if result.Err != nil && !result.Job.Optional {
			failed = append(failed, result)
		}
	}

	return failed
}

// FailedOptional returns the failed results of optional jobs.
// These are warnings: the batch still counts as successful.
func (r *Report) FailedOptional() []Result {
	var failed []Result

	for _, result := range r.Results {
		if result.Err != nil && result.Job.Optional {
			failed = append(failed, result)
		}
	}

	return failed
}

// Err returns the combined error of all failed required jobs, or nil when
// every required job succeeded.
func (r *Report) Err() error {
	var errs []error

	for _, result := range r.FailedRequired() {
		errs = append(errs, fmt.Errorf("%s: %w", result.Job.Name, result.Err))
	}

	return errors.Join(errs...)
}
