package codec

import "io"

// Copy copies from src to dst until EOF or error, passing every chunk read
// to onChunk (if non-nil) before it is written. It returns the number of
// bytes written.
func Copy(dst io.Writer, src io.Reader, buf []byte, onChunk func([]byte)) (uint64, error) {
	var written uint64
	for {
		nr, er := src.Read(buf)
		if nr > 0 {
			if onChunk != nil {
				onChunk(buf[:nr])
			}
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				written += uint64(nw) //nolint:gosec // nw is non-negative per io.Writer contract
			}
			if ew != nil {
				return written, ew
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			return written, er
		}
	}
}
