package logger

// Sink forwards diagnostic calls to the package-level queue. It is safe to
// use before InitializeLogger; messages are dropped until then.
type Sink struct{}

func (Sink) Info(format string, args ...interface{}) { LogInfoEvent(format, args...) }
func (Sink) Warn(format string, args ...interface{}) { LogWarnEvent(format, args...) }

// Nop discards everything.
type Nop struct{}

func (Nop) Info(string, ...interface{}) {}
func (Nop) Warn(string, ...interface{}) {}
