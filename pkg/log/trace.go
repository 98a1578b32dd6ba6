package log

import "go.uber.org/zap"

// TraceMessage is the log message used for every modem trace entry
const TraceMessage = "modem trace"

// Sink forwards human readable modem trace text to the global logger at debug level
type Sink struct {
	component string
}

// TraceSink returns a sink that tags every entry with the given component name
func TraceSink(component string) *Sink {
	return &Sink{component: component}
}

func (s *Sink) Trace(text string) {
	zapLog.Debug(TraceMessage, zap.String("component", s.component), zap.String("text", text))
}
