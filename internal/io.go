package internal

import (
	"context"
	"io"
)

// DefaultBufferSize is the size of the buffers used to copy entries' content.
const DefaultBufferSize = 32 * 1024

// Sizer implements io.Writer that tallies that number of bytes written.
type Sizer struct {
	Size int64
}

func (s *Sizer) Write(p []byte) (n int, err error) {
	n = len(p)
	s.Size += int64(n)
	return
}

// CopyBufferWithContext is a variant of io.CopyBuffer that checks for cancellation between every read.
func CopyBufferWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (written int64, err error) {
	if buf == nil {
		buf = make([]byte, DefaultBufferSize)
	}

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			written += int64(nw)

			switch {
			case ew != nil:
				return written, ew
			case nw != nr:
				return written, io.ErrShortWrite
			}
		}

		if er == io.EOF {
			return written, nil
		}
		if er != nil {
			return written, er
		}
	}
}
