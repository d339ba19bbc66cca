/*
Package rpc exposes the runtime to out-of-process callers over two plain
socket channels: a request/response channel for commands and queries, and a
broadcast channel that republishes every bus event. Frames are
length-prefixed JSON; addresses select the transport by scheme.
*/
package rpc

import (
	"net"
	"os"
	"strings"
	"time"

	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

const (
	schemeTCP  = "tcp://"
	schemeUnix = "unix://"
)

// Listen opens a listener for a `tcp://host:port` or `unix:///path` address.
// A stale unix socket file left by a previous run is removed first.
func Listen(address string) (net.Listener, error) {
	network, target, err := splitAddress(address)
	if err != nil {
		return nil, err
	}
	if network == "unix" {
		if err := removeSocketIfExists(target); err != nil {
			return nil, err
		}
	}
	ln, err := net.Listen(network, target)
	if err != nil {
		return nil, errors.Wrap(err, "listen").With("address", address)
	}
	return ln, nil
}

// Dial connects to a `tcp://` or `unix://` address within the timeout.
func Dial(address string, timeout time.Duration) (net.Conn, error) {
	network, target, err := splitAddress(address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout(network, target, timeout)
	if err != nil {
		return nil, errors.Wrap(err, "dial").With("address", address)
	}
	return conn, nil
}

func splitAddress(address string) (network, target string, err error) {
	switch {
	case address == "":
		return "", "", exception.ErrRPCEmptyAddress
	case strings.HasPrefix(address, schemeTCP):
		return "tcp", address[len(schemeTCP):], nil
	case strings.HasPrefix(address, schemeUnix):
		return "unix", address[len(schemeUnix):], nil
	default:
		return "", "", errors.Wrap(exception.ErrRPCInvalidAddress, address)
	}
}

// removeSocketIfExists unlinks a leftover socket file. A path occupied by
// anything other than a socket is refused.
func removeSocketIfExists(path string) error {
	if path == "" {
		return exception.ErrRPCEmptyAddress
	}
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return exception.ErrRPCPathNotSocket
	}
	return os.Remove(path)
}
