package progress

// Emitter publishes individual events. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Emitter interface {
	Emit(evt Event)
}

// Multi fans every event out to each emitter in order.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}

// Nop discards every event.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(Event) {}
