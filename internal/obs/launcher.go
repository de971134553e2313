package obs

import (
	"fmt"
	"os/exec"
)

// launchApp starts the OBS application without waiting for it to exit.
func launchApp(path string) error {
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}
	// Reap the process in the background so it cannot zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}
