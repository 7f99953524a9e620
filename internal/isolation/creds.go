package isolation

import (
	"golang.org/x/sys/unix"
)

// dropCredentials drops privileges in the mandated order:
// setgroups(additionalGids) -> setgid(gid) -> setuid(uid).
func dropCredentials(uid, gid uint32, additionalGids []uint32) error {
	gids := make([]int, len(additionalGids))
	for i, g := range additionalGids {
		gids[i] = int(g)
	}
	if err := unix.Setgroups(gids); err != nil {
		return err
	}
	if err := unix.Setgid(int(gid)); err != nil {
		return err
	}
	return unix.Setuid(int(uid))
}
