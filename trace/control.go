package trace

// Control action codes, as used by external control surfaces.
const (
	ActionStart uint32 = iota + 1
	ActionStop
	ActionRewind
)

// Start enables tracing for the given groups, or for all groups when none
// are given. The frozen marker is cleared before the mask is set, so a
// reader never observes a stale extent while new writes are already
// landing. The live reporter then backfills pre-existing context.
func (b *Buffer) Start(groups Group) error {
	if b.buf == nil {
		return ErrDisabled
	}

	if groups == 0 {
		groups = GrpAll
	}

	b.marker.Store(0)
	b.grpmask.Store(GroupMask(groups))

	b.reporter.ReportLive(b)

	return nil
}

// Stop disables tracing and freezes the readable extent. The mask is
// cleared first so no new allocations land, then the marker captures the
// cursor clamped to the usable capacity.
func (b *Buffer) Stop() error {
	if b.buf == nil {
		return ErrDisabled
	}

	b.grpmask.Store(0)

	n := b.offset.Load()
	if n > int64(b.bufsize) {
		n = int64(b.bufsize)
	}
	b.marker.Store(uint32(n))

	return nil
}

// Rewind rolls the cursor back to just after the metadata records,
// discarding the readability of everything recorded so far. The mask and
// marker are left as they are; pair Rewind with Start for a full reset.
func (b *Buffer) Rewind() error {
	if b.buf == nil {
		return ErrDisabled
	}

	b.offset.Store(ReservedSize)
	b.dropped.Store(0)

	return nil
}

// Control dispatches a numeric control request. For Start, options names
// the groups to enable. Unrecognized actions mutate nothing and return
// ErrInvalidAction.
func (b *Buffer) Control(action, options uint32) error {
	switch action {
	case ActionStart:
		return b.Start(Group(options))
	case ActionStop:
		return b.Stop()
	case ActionRewind:
		return b.Rewind()
	default:
		return ErrInvalidAction
	}
}
