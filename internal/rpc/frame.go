package rpc

import (
	"encoding/binary"
	"io"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

// maxFrameSize bounds a single frame body; anything larger indicates a
// corrupt stream or a hostile peer.
const maxFrameSize = 16 << 20

// writeFrame encodes v and writes one length-prefixed frame. The prefix is
// a big-endian uint32 body length. The whole frame goes out in one Write so
// concurrent writers only need to serialize at the call site.
func writeFrame(w io.Writer, v any) error {
	body, err := sonic.ConfigFastest.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal frame")
	}
	if len(body) > maxFrameSize {
		return exception.ErrRPCFrameTooLarge
	}
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)
	if _, err := w.Write(frame); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// readFrame reads one length-prefixed frame and decodes it into v.
func readFrame(r io.Reader, v any) error {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > maxFrameSize {
		return exception.ErrRPCFrameTooLarge
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	if err := sonic.ConfigFastest.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "unmarshal frame")
	}
	return nil
}
