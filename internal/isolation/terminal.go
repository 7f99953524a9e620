package isolation

import (
	"os"

	"golang.org/x/sys/unix"
)

// setControllingTerminal calls setsid, then TIOCSCTTY on the slave fd,
// then dup2s it over stdin/stdout/stderr.
func setControllingTerminal(slave *os.File) error {
	if _, err := unix.Setsid(); err != nil {
		return err
	}
	if err := unix.IoctlSetInt(int(slave.Fd()), unix.TIOCSCTTY, 0); err != nil {
		return err
	}
	for _, fd := range []int{0, 1, 2} {
		if err := unix.Dup2(int(slave.Fd()), fd); err != nil {
			return err
		}
	}
	return nil
}
