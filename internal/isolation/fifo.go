package isolation

import (
	"fmt"
	"os"
)

// waitForStart opens the sync FIFO for read and blocks until the
// orchestrator's start command writes its one byte.
func waitForStart(fifoPath string) error {
	f, err := os.OpenFile(fifoPath, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("open sync fifo: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil {
		return fmt.Errorf("read sync fifo: %w", err)
	}
	return nil
}
