package dispatch

// FailureKind classifies a dispatch failure that is turned into an
// assistant message.
type FailureKind int

const (
	// FailureUnprocessable is a success response without an answer.
	FailureUnprocessable FailureKind = iota
	// FailureSend is a network error or non-success status on ask.
	FailureSend
	// FailureUpload is any failed upload through the relay.
	FailureUpload
)

var fallbackText = map[FailureKind]string{
	FailureUnprocessable: "Sorry, I couldn't process your request.",
	FailureSend:          "Sorry, your message could not be sent. Please try again.",
	FailureUpload:        "Sorry, an error occurred while processing the file. Please try again.",
}

// Fallback returns the fixed user-facing text for kind.
func Fallback(kind FailureKind) string {
	return fallbackText[kind]
}

func (k FailureKind) String() string {
	switch k {
	case FailureUnprocessable:
		return "unprocessable"
	case FailureSend:
		return "send"
	case FailureUpload:
		return "upload"
	default:
		return "unknown"
	}
}
