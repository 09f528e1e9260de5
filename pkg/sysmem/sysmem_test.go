package sysmem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabforge/tabforge/pkg/errors"
)

func stubAvailable(t *testing.T, available uint64, err error) {
	t.Helper()
	orig := availableFn
	availableFn = func() (uint64, error) { return available, err }
	t.Cleanup(func() { availableFn = orig })
}

func TestDecidePermitsWhenMemorySuffices(t *testing.T) {
	stubAvailable(t, 1<<30, nil)
	assert.NoError(t, Decide(100<<20, DefaultFactor, true))
}

func TestDecideRefusesWhenMemoryShort(t *testing.T) {
	stubAvailable(t, 100<<20, nil)

	err := Decide(200<<20, DefaultFactor, true)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeResource))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, uint64(400<<20), e.Detail("required_bytes"))
	assert.Equal(t, uint64(100<<20), e.Detail("available_bytes"))
	assert.Equal(t, int64(200<<20), e.Detail("file_size"))
}

func TestDecideDisabledAlwaysPermits(t *testing.T) {
	// The opt-out must not even consult system memory.
	stubAvailable(t, 0, fmt.Errorf("should not be called"))
	assert.NoError(t, Decide(1<<40, DefaultFactor, false))
}

func TestDecideDefaultsFactor(t *testing.T) {
	stubAvailable(t, 150, nil)

	// factor <= 0 falls back to DefaultFactor, so 100 bytes need 200.
	err := Decide(100, 0, true)
	require.Error(t, err)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, uint64(200), e.Detail("required_bytes"))
}

func TestDecideProbeFailure(t *testing.T) {
	stubAvailable(t, 0, fmt.Errorf("proc unavailable"))

	err := Decide(1, DefaultFactor, true)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeResource))
}

func TestDecideExactFit(t *testing.T) {
	stubAvailable(t, 200, nil)
	assert.NoError(t, Decide(100, 2.0, true))
}
