package scanner

// Host receives the scanner's results. OnScan fires at most once per
// acquisition lifecycle. Callbacks are invoked outside the scanner's locks.
type Host interface {
	OnScan(payload string)
	OnError(message string)
	OnClose()
}

// HostFuncs adapts optional functions to Host. Nil fields are ignored.
type HostFuncs struct {
	Scan  func(payload string)
	Error func(message string)
	Close func()
}

func (h HostFuncs) OnScan(payload string) {
	if h.Scan != nil {
		h.Scan(payload)
	}
}

func (h HostFuncs) OnError(message string) {
	if h.Error != nil {
		h.Error(message)
	}
}

func (h HostFuncs) OnClose() {
	if h.Close != nil {
		h.Close()
	}
}
