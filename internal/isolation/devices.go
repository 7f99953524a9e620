package isolation

import (
	"golang.org/x/sys/unix"
)

// essentialDevice is one of the device nodes created at container init.
type essentialDevice struct {
	name       string
	major      uint32
	minor      uint32
	deviceType uint32
}

// essentialDevices is the fixed well-known set; there is no general
// device policy, this small set is all the runtime creates.
var essentialDevices = []essentialDevice{
	{"null", 1, 3, unix.S_IFCHR},
	{"zero", 1, 5, unix.S_IFCHR},
	{"full", 1, 7, unix.S_IFCHR},
	{"random", 1, 8, unix.S_IFCHR},
	{"urandom", 1, 9, unix.S_IFCHR},
	{"tty", 5, 0, unix.S_IFCHR},
}

// createEssentialDevices mknods every essential device; EEXIST is benign.
func createEssentialDevices() error {
	oldMask := unix.Umask(0000)
	defer unix.Umask(oldMask)

	for _, d := range essentialDevices {
		dev := unix.Mkdev(d.major, d.minor)
		mode := uint32(0o666) | d.deviceType
		if err := unix.Mknod("/dev/"+d.name, mode, int(dev)); err != nil && err != unix.EEXIST {
			return err
		}
	}
	return nil
}
