package session

// Ack is the outcome of a registry command: session/channel create,
// modify, or delete. Operations return an Ack rather than a bare error
// so callers (and the driver's command-line echo) can distinguish
// capacity exhaustion from malformed input from a plain not-found,
// mirroring the ack_type values a session command protocol would carry
// over the wire.
type Ack int

const (
	AckNone Ack = iota
	AckOK
	AckUnrecognizedCmd
	AckCmdIntegrityErr
	AckSessionFull
	AckChannelFull
	AckInvalidIPType
	AckChannelNotFound
	AckSessionNotFound
	AckDuplicateChannel
	AckUnexpectedCommand
	AckInvalidSessionData
	AckInvalidTermInfo
	AckChannelInitializationFailed
	AckSessionIndexFailure
	AckDuplicateSession
	AckInvalidIPConfig
	AckChannelIndexFailure
	AckChannelInUse
	AckQueueFull
)

func (a Ack) String() string {
	switch a {
	case AckNone:
		return "none"
	case AckOK:
		return "ok"
	case AckUnrecognizedCmd:
		return "unrecognized_cmd"
	case AckCmdIntegrityErr:
		return "cmd_integrity_err"
	case AckSessionFull:
		return "session_full"
	case AckChannelFull:
		return "channel_full"
	case AckInvalidIPType:
		return "invalid_ip_type"
	case AckChannelNotFound:
		return "channel_not_found"
	case AckSessionNotFound:
		return "session_not_found"
	case AckDuplicateChannel:
		return "duplicate_channel"
	case AckUnexpectedCommand:
		return "unexpected_command"
	case AckInvalidSessionData:
		return "invalid_session_data"
	case AckInvalidTermInfo:
		return "invalid_term_info"
	case AckChannelInitializationFailed:
		return "channel_initialization_failed"
	case AckSessionIndexFailure:
		return "session_index_failure"
	case AckDuplicateSession:
		return "duplicate_session"
	case AckInvalidIPConfig:
		return "invalid_ip_config"
	case AckChannelIndexFailure:
		return "channel_index_failure"
	case AckChannelInUse:
		return "channel_in_use"
	case AckQueueFull:
		return "queue_full"
	default:
		return "unknown"
	}
}

// Ok reports whether the ack represents success.
func (a Ack) Ok() bool { return a == AckOK }
