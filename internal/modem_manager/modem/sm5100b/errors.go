package sm5100b

// ErrorKind is the closed set of session failures, at most one is current
type ErrorKind int

const (
	NoError ErrorKind = iota
	// ErrConnStatusMalformed the +SOCKSTATUS reply had no status delimiter or value
	ErrConnStatusMalformed
	// ErrConnStatusInvalidValue the socket status was neither 0 nor 1
	ErrConnStatusInvalidValue
	// ErrRequestNotConfigured host or path are missing or unusable
	ErrRequestNotConfigured
	// ErrAPNNotConfigured one of apn, apn user, apn password or dns is missing
	ErrAPNNotConfigured
	// ErrReadPastResponseEnd the modem sent more binary data than it declared
	ErrReadPastResponseEnd
	// ErrDNSNoAnswer the DNS reply did not yield a usable A record
	ErrDNSNoAnswer
	// ErrPrerequisitesNotReady a request was started while the modem was still coming up
	ErrPrerequisitesNotReady
	// ErrTimeout the modem did not answer in time
	ErrTimeout
)

func (e ErrorKind) String() string {
	switch e {
	case NoError:
		return "no error"
	case ErrConnStatusMalformed:
		return "connection status malformed"
	case ErrConnStatusInvalidValue:
		return "connection status invalid value"
	case ErrRequestNotConfigured:
		return "request not configured"
	case ErrAPNNotConfigured:
		return "apn not configured"
	case ErrReadPastResponseEnd:
		return "read past response end"
	case ErrDNSNoAnswer:
		return "dns no answer"
	case ErrPrerequisitesNotReady:
		return "prerequisites not ready"
	case ErrTimeout:
		return "timeout"
	default:
		return "unknown error"
	}
}

func (e ErrorKind) Error() string {
	return "sm5100b: " + e.String()
}

// Err converts the kind into an error value, NoError becomes nil
func (e ErrorKind) Err() error {
	if e == NoError {
		return nil
	}
	return e
}
