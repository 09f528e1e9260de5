// Package sysmem implements the memory policy gate: a point-in-time
// estimate of whether an input of a given size can be materialized in
// memory. The gate never blocks or retries; callers that receive a refusal
// switch to a streaming strategy or propagate the error.
package sysmem

import (
	"go.uber.org/zap"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/tabforge/tabforge/pkg/errors"
	"github.com/tabforge/tabforge/pkg/logger"
)

// DefaultFactor is the safety multiplier applied to the file size. Loading
// a delimited file splits every record into field slices and the unsorted
// paths keep a working copy, so the in-memory footprint is roughly twice
// the on-disk size.
const DefaultFactor = 2.0

// availableFn is swapped in tests.
var availableFn = func() (uint64, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vmStat.Available, nil
}

// Decide reports whether a file of fileSize bytes may be materialized.
// With forceCheck disabled it always permits (an explicit caller opt-out).
// Otherwise it reads available system memory once and refuses with a
// resource error when fileSize*factor exceeds it. The decision is evaluated
// fresh per invocation and never cached across operators.
func Decide(fileSize int64, factor float64, forceCheck bool) error {
	if !forceCheck {
		return nil
	}
	if factor <= 0 {
		factor = DefaultFactor
	}

	available, err := availableFn()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeResource, "failed to read available system memory")
	}

	required := uint64(float64(fileSize) * factor)
	if required > available {
		return errors.Newf(errors.ErrorTypeResource,
			"input requires an estimated %d bytes of memory but only %d bytes are available; use a streaming mode or disable the memory check",
			required, available).
			WithDetail("required_bytes", required).
			WithDetail("available_bytes", available).
			WithDetail("file_size", fileSize).
			WithDetail("factor", factor)
	}

	logger.Get().Debug("memory gate permits in-memory execution",
		zap.Int64("file_size", fileSize),
		zap.Uint64("required_bytes", required),
		zap.Uint64("available_bytes", available))

	return nil
}
