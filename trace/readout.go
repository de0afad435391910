package trace

// Size returns the current readable extent in bytes: the frozen marker if
// tracing is stopped, otherwise the live cursor clamped to the usable
// capacity. The cursor can transiently point past the end; the reported
// size never does.
func (b *Buffer) Size() uint32 {
	if m := b.marker.Load(); m != 0 {
		return m
	}

	n := b.offset.Load()
	if n > int64(b.bufsize) {
		n = int64(b.bufsize)
	}

	return uint32(n)
}

// Read copies readable bytes starting at off into dst and returns the
// number of bytes copied. A nil dst is a size query and returns the
// readable extent without copying. An off at or past the extent reads
// zero bytes; otherwise the copy is clamped to the extent.
//
// The returned prefix cannot be corrupted by concurrent writers: a writer
// in flight at the moment the extent is computed landed at an offset
// issued by a prior allocation.
func (b *Buffer) Read(dst []byte, off uint32) int {
	max := b.Size()

	if dst == nil {
		return int(max)
	}

	if off >= max {
		return 0
	}

	n := max - off
	if uint32(len(dst)) < n {
		n = uint32(len(dst))
	}

	return copy(dst, b.buf[off:off+n])
}
