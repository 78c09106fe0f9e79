package recorder

// Noop is a no-op implementation used when no database is configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) RecordUpdate(_ UpdateEvent) error { return nil }
func (n *Noop) Close() error                     { return nil }
