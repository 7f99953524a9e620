package console

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAllocateReturnsUsableMasterSlavePair(t *testing.T) {
	p, err := Allocate()
	if err != nil {
		t.Skipf("no pty device available in this environment: %v", err)
	}
	defer p.Close()

	require.NotNil(t, p.Master)
	require.NotNil(t, p.Slave)
	require.NotEmpty(t, p.SlaveName)
}

func TestCloseIsSafeOnNilPair(t *testing.T) {
	var p *Pair
	p.Close()
}

func TestSendTransfersMasterFDOverSCMRights(t *testing.T) {
	p, err := Allocate()
	if err != nil {
		t.Skipf("no pty device available in this environment: %v", err)
	}
	defer p.Close()

	sockPath := filepath.Join(t.TempDir(), "console.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan struct{})
	var gotName string
	var gotRights int

	go func() {
		defer close(received)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		uc := conn.(*net.UnixConn)

		buf := make([]byte, 256)
		oob := make([]byte, 256)
		n, oobn, _, _, err := uc.ReadMsgUnix(buf, oob)
		if err != nil {
			return
		}
		gotName = string(buf[:n])
		scms, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil || len(scms) == 0 {
			return
		}
		fds, err := unix.ParseUnixRights(&scms[0])
		if err == nil {
			gotRights = len(fds)
			for _, fd := range fds {
				unix.Close(fd)
			}
		}
	}()

	require.NoError(t, Send(p, sockPath))
	<-received

	require.Equal(t, p.SlaveName, gotName)
	require.Equal(t, 1, gotRights)
}

func TestSendFailsOnMissingSocket(t *testing.T) {
	p := &Pair{
		Master:    mustOpenDevNull(t),
		SlaveName: "/dev/pts/0",
	}
	defer p.Close()

	err := Send(p, filepath.Join(t.TempDir(), "does-not-exist.sock"))
	require.Error(t, err)
}

func mustOpenDevNull(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open(os.DevNull)
	require.NoError(t, err)
	return f
}
