package metrics

import "time"

// FTPMetrics provides observability for FTP adapter operations.
//
// Reply classes are derived from reply codes only, so an injected failure and
// a genuine one are indistinguishable here, as they are in the logs.
type FTPMetrics interface {
	// RecordCommand records a processed command with its final reply code and
	// the time from receipt to reply (including any injected delay).
	RecordCommand(command string, code int, duration time.Duration)

	// RecordDelay records an injected delay applied before a reply.
	RecordDelay(command string, delay time.Duration)

	// RecordBytesTransferred records data channel bytes.
	//
	// Parameters:
	//   - direction: "upload" or "download"
	//   - bytes: Number of bytes transferred
	RecordBytesTransferred(direction string, bytes int64)

	// RecordPassiveChannel records the outcome of a passive data channel:
	// "opened", "transferred", "timeout" or "aborted".
	RecordPassiveChannel(outcome string)

	// SetActiveConnections updates the current control connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed by a shutdown
	// timeout.
	RecordConnectionForceClosed()
}

// ReplyClass maps an FTP reply code to a metrics label.
func ReplyClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "preliminary"
	case code >= 200 && code < 300:
		return "success"
	case code >= 300 && code < 400:
		return "intermediate"
	case code >= 400 && code < 500:
		return "transient_error"
	default:
		return "permanent_error"
	}
}

// NewNoopFTPMetrics returns an FTPMetrics that discards everything.
func NewNoopFTPMetrics() FTPMetrics {
	return noopFTPMetrics{}
}

type noopFTPMetrics struct{}

func (noopFTPMetrics) RecordCommand(command string, code int, duration time.Duration) {}
func (noopFTPMetrics) RecordDelay(command string, delay time.Duration)               {}
func (noopFTPMetrics) RecordBytesTransferred(direction string, bytes int64)          {}
func (noopFTPMetrics) RecordPassiveChannel(outcome string)                           {}
func (noopFTPMetrics) SetActiveConnections(count int32)                              {}
func (noopFTPMetrics) RecordConnectionAccepted()                                     {}
func (noopFTPMetrics) RecordConnectionClosed()                                       {}
func (noopFTPMetrics) RecordConnectionForceClosed()                                  {}
