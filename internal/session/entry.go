package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/signalnine/deskmate/internal/agent"
	"github.com/signalnine/deskmate/internal/interpret"
	"github.com/signalnine/deskmate/internal/protocol"
)

// EntryKind tags a conversation entry
type EntryKind int

const (
	KindUser EntryKind = iota
	KindAssistant
	KindError
)

func (k EntryKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	default:
		return "error"
	}
}

// Entry is one item of the conversation log. Entries are values; the log
// never hands out pointers into itself.
type Entry struct {
	ID        string
	Kind      EntryKind
	Timestamp time.Time

	// KindUser
	Command string

	// KindAssistant
	Response *protocol.Response
	Units    []interpret.Unit

	// KindError
	Message   string
	ErrorKind agent.Kind
}

// Text is the entry's plain-text payload: the command, the error message,
// or the step-less summary of a response.
func (e Entry) Text() string {
	switch e.Kind {
	case KindUser:
		return e.Command
	case KindError:
		return e.Message
	default:
		return interpret.Summary(e.Response)
	}
}

// HistoryItem is a past command, as listed in the history sidebar
type HistoryItem struct {
	Command   string
	Timestamp time.Time
}

func newID() string {
	return uuid.New().String()
}
