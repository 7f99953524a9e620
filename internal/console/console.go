// Package console is the Console Broker: PTY allocation and the
// SCM_RIGHTS transfer of the master fd to the caller's console socket.
// Allocation uses github.com/creack/pty rather than a hand-rolled
// /dev/ptmx + grantpt/unlockpt dance.
package console

import (
	"fmt"
	"net"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

// Pair is an allocated PTY master/slave pair.
type Pair struct {
	Master    *os.File
	Slave     *os.File
	SlaveName string
}

// Allocate performs the PTY dance: open master, grant/unlock, resolve the
// slave path, open the slave.
func Allocate() (*Pair, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, runtimeerr.New(runtimeerr.ConsoleFail, "allocate-console", err)
	}
	name := slave.Name()
	return &Pair{Master: master, Slave: slave, SlaveName: name}, nil
}

// Close releases both fds. Safe to call after a partial failure.
func (p *Pair) Close() {
	if p == nil {
		return
	}
	if p.Master != nil {
		p.Master.Close()
	}
	if p.Slave != nil {
		p.Slave.Close()
	}
}

// Send connects to the Unix stream socket at socketPath and transfers the
// master fd via SCM_RIGHTS, with the slave name as the regular payload —
// the wire format runc-compatible shims expect from --console-socket. On
// any failure both fds in p are released by the caller.
func Send(p *Pair, socketPath string) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return runtimeerr.New(runtimeerr.ConsoleFail, "send-console", err)
	}
	defer conn.Close()

	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return runtimeerr.New(runtimeerr.ConsoleFail, "send-console", fmt.Errorf("console socket is not a unix socket"))
	}

	rights := unix.UnixRights(int(p.Master.Fd()))
	if _, _, err := uc.WriteMsgUnix([]byte(p.SlaveName), rights, nil); err != nil {
		return runtimeerr.New(runtimeerr.ConsoleFail, "send-console", err)
	}
	return nil
}
