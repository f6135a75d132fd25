// Package bridge carries typed requests between the UI-side relay and the
// page-side responder. The two sides share nothing but a Conn.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies a request kind.
type Type string

const (
	TypeGetProfileData Type = "GET_PROFILE_DATA"
	TypeGetTweets      Type = "GET_TWEETS"
)

var (
	// ErrUnknownType is returned for requests no handler is registered for.
	ErrUnknownType = errors.New("unknown request type")
	// ErrClosed is returned once a connection has been closed.
	ErrClosed = errors.New("bridge connection closed")
)

// Request is the JSON request sent to the page context.
type Request struct {
	Type     Type   `json:"type"`
	Count    int    `json:"count,omitempty"`
	Username string `json:"username,omitempty"`
}

// Response carries either a JSON payload or an error message.
type Response struct {
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Envelope correlates requests and responses on a Conn.
type Envelope struct {
	ID       uint64    `json:"id"`
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// RemoteError is a rejection reported by the other side.
type RemoteError struct {
	Type    Type
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Type, e.Message)
}

// GetProfileData builds a GET_PROFILE_DATA request.
func GetProfileData(username string) Request {
	return Request{Type: TypeGetProfileData, Username: username}
}

// GetTweets builds a GET_TWEETS request.
func GetTweets(username string, count int) Request {
	return Request{Type: TypeGetTweets, Username: username, Count: count}
}
