package imaging

import (
	"errors"
	"fmt"
	"os/exec"
)

// Runtime is the engine executable looked up on PATH when no explicit path
// is configured.
const Runtime = "casa"

// ErrRuntimeNotFound is returned when the engine executable cannot be found.
var ErrRuntimeNotFound = errors.New("imaging runtime not found")

// FindRuntime resolves the engine executable on PATH.
func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %q", ErrRuntimeNotFound, runtime)
		}
		return "", err
	}
	return binPath, nil
}
