package channel

// Limit describes a channel's capacity policy: a fixed integer, or Auto
// (grows under observed backpressure, floor 1). It also doubles as a
// capacity probe handed to the endpoint engine so that Block outgoings can
// ask "is my target below capacity" without depending on the element type.
type Limit struct {
	auto  bool
	gauge gauge
}

// gauge is implemented by *core[T] without referencing T, so a Limit can be
// stored alongside Limits from differently-typed channels (see
// Endpoint.limits in the endpoint package).
type gauge interface {
	Len() int
	Cap() int
}

// IsAuto reports whether this limit grows dynamically.
func (l Limit) IsAuto() bool { return l.auto }

// Cap returns the channel's current effective capacity.
func (l Limit) Cap() int {
	if l.gauge == nil {
		return 0
	}
	return l.gauge.Cap()
}

// Len returns the number of values currently buffered.
func (l Limit) Len() int {
	if l.gauge == nil {
		return 0
	}
	return l.gauge.Len()
}

// BelowCapacity reports whether the channel has room for at least one more
// value. The endpoint engine's concurrency driver polls this for every
// Block-mode outgoing before admitting a new tick.
func (l Limit) BelowCapacity() bool {
	return l.Len() < l.Cap()
}
