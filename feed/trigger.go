package feed

// NearBottom reports whether a viewport of the given height scrolled to offset
// is within distance of the end of content that is total units tall.
func NearBottom(offset, viewport, total, distance int) bool {
	if distance < 0 {
		distance = 0
	}
	return offset+viewport >= total-distance
}

// ScrollSignal turns scroll positions into trigger signals on a channel that
// can be handed to Controller.Watch.
type ScrollSignal struct {
	Distance int
	C        chan bool
}

func NewScrollSignal(distance int, buffer int) *ScrollSignal {
	return &ScrollSignal{Distance: distance, C: make(chan bool, buffer)}
}

// Update publishes whether the position is near the bottom. The signal is
// dropped when the channel is full, the feed treats a burst of triggers the
// same as a single one.
func (s *ScrollSignal) Update(offset, viewport, total int) bool {
	triggered := NearBottom(offset, viewport, total, s.Distance)
	select {
	case s.C <- triggered:
	default:
	}
	return triggered
}

func (s *ScrollSignal) Close() {
	close(s.C)
}
