package bus

// Observer is the single trace hook invoked at the predefined points the
// source threaded TRACE_COMPUTE/TRACE_EVENT macros through: stage entry,
// dispatch decision, retire, and connection transfer (spec §9). Components
// start with NoopObserver, and passing nil to a SetObserver restores it, so
// no concrete trace sink is ever required.
type Observer interface {
	StageEntry(component string, stage int, pkt Packet)
	DispatchDecision(component string, lane int, allowed bool, reason string)
	Retire(component string, rd int, value uint32)
	ConnectionTransfer(connection string, pkt Packet)
}

// NoopObserver implements Observer with empty bodies. It is the default
// Observer for every component that does not have one explicitly attached.
type NoopObserver struct{}

func (NoopObserver) StageEntry(string, int, Packet)             {}
func (NoopObserver) DispatchDecision(string, int, bool, string) {}
func (NoopObserver) Retire(string, int, uint32)                 {}
func (NoopObserver) ConnectionTransfer(string, Packet)          {}

var defaultObserver Observer = NoopObserver{}

// OrDefault returns o if non-nil, otherwise the package default no-op
// Observer.
func OrDefault(o Observer) Observer {
	if o == nil {
		return defaultObserver
	}
	return o
}
