// +build linux,x86_64
package namespaces

// Via http://git.kernel.org/cgit/linux/kernel/git/torvalds/linux.git/commit/?id=7b21fddd087678a70ad64afc0f632e0f1071b092
const (
	SYS_SETNS = 308
)
