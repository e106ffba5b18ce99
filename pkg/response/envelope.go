package response

import "playerstore/pkg/player"

// Status values of an Envelope
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the body returned for every read and write request.
// Optional fields are omitted from the JSON form when absent.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Players []player.Record `json:"players,omitempty"`
}

// Build assembles an envelope from its parts
func Build(status, message string, players []player.Record) Envelope {
	return Envelope{Status: status, Message: message, Players: players}
}

// Success returns a success envelope carrying players, if any
func Success(players ...player.Record) Envelope {
	return Build(StatusSuccess, "", players)
}

// Error returns an error envelope with a caller-facing message
func Error(message string) Envelope {
	return Build(StatusError, message, nil)
}

// OK reports whether the envelope has success status
func (e Envelope) OK() bool {
	return e.Status == StatusSuccess
}
