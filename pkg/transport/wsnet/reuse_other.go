//go:build !unix

package wsnet

import "syscall"

func reuseAddr(_, _ string, _ syscall.RawConn) error {
	return nil
}
