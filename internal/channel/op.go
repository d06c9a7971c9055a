package channel

type opKind int

const (
	opMessage opKind = iota
	opFlush
	opLast
)

func (k opKind) String() string {
	switch k {
	case opMessage:
		return "message"
	case opFlush:
		return "flush"
	case opLast:
		return "last"
	default:
		return "unknown"
	}
}

// op is one request on the outbound queue. ack is set for flush and last.
type op struct {
	kind opKind
	text string
	ack  chan struct{}
}

func newAck() chan struct{} {
	return make(chan struct{}, 1)
}

// signal never blocks; a caller that stopped waiting loses nothing.
func signal(ack chan struct{}) {
	select {
	case ack <- struct{}{}:
	default:
	}
}
