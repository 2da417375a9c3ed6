// Package interpret turns agent step results into display units.
//
// Interpret is pure and total: every output field is optional and every
// missing field has a fixed fallback, so any well-formed step renders.
package interpret

import (
	"fmt"

	"github.com/signalnine/deskmate/internal/protocol"
)

// Kind identifies the shape of a display unit
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
	KindRichText
	KindEmailDraft
	KindFileContent
	KindShellResult
	KindSystemInfo
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	case KindRichText:
		return "rich_text"
	case KindEmailDraft:
		return "email_draft"
	case KindFileContent:
		return "file_content"
	case KindShellResult:
		return "shell_result"
	case KindSystemInfo:
		return "system_info"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Fallback texts
const (
	UnknownError      = "Unknown error occurred"
	NoResponse        = "No response generated"
	NoSubject         = "No Subject"
	NoRecipient       = "No Recipient"
	NoContent         = "No content"
	NoContentFound    = "No content found"
	CreatedOK         = "Created successfully"
	ExplorerOpened    = "File Explorer opened"
	TerminalLaunched  = "Terminal launched"
	ProcessedOK       = "Command processed successfully"
	ProcessedFailed   = "Command failed"
	ConfirmationLabel = "Requires confirmation"
)

// Detail is a labeled value shown under a unit
type Detail struct {
	Label string
	Value string
}

// Email is the body of a KindEmailDraft unit
type Email struct {
	Subject   string
	Recipient string
	Body      string
}

// Shell is the body of a KindShellResult unit. Each part is optional.
type Shell struct {
	Friendly string
	Stdout   string
	Stderr   string
}

// Unit is the normalized, renderable form of one step
type Unit struct {
	Kind    Kind
	Action  string
	Label   string
	Message string
	Details []Detail
	Email   *Email
	Shell   *Shell
	System  *SystemInfo
}

type handler func(step protocol.Step) Unit

// handlers maps an action tag to its renderer. Unknown tags fall through to
// renderGeneric.
var handlers = map[string]handler{
	"open_url":            renderOpenURL,
	"open_app":            renderOpenApp,
	"open_explorer":       renderOpenExplorer,
	"create_file":         renderCreate("File created"),
	"create_folder":       renderCreate("Folder created"),
	"get_time":            renderTime,
	"open_terminal":       renderTerminal,
	"answer_question":     renderAnswer,
	"respond_to_greeting": renderAnswer,
	"greet_user":          renderAnswer,
	"answer_greeting":     renderAnswer,
	"generate_email":      renderEmail,
	"read_file":           renderReadFile,
	"run_shell":           renderShell,
	"get_system_info":     renderSystemInfo,
	"summarize":           renderSummary,
	"search_files":        renderSearch,
}

// Interpret maps one step to a display unit
func Interpret(step protocol.Step) Unit {
	if !step.Result.Success {
		return Unit{
			Kind:    KindFailure,
			Action:  step.Action,
			Label:   step.Action + " failed",
			Message: or(step.Result.Error, UnknownError),
		}
	}

	if h, ok := handlers[step.Action]; ok {
		return h(step)
	}
	return renderGeneric(step)
}

// Steps interprets every step of a response in order
func Steps(steps []protocol.Step) []Unit {
	units := make([]Unit, 0, len(steps))
	for _, s := range steps {
		units = append(units, Interpret(s))
	}
	return units
}

// Summary is the one-line outcome shown when a response carries no steps.
func Summary(resp *protocol.Response) string {
	if resp != nil && resp.Success {
		return ProcessedOK
	}
	return ProcessedFailed
}

func success(step protocol.Step, label, message string) Unit {
	return Unit{Kind: KindSuccess, Action: step.Action, Label: label, Message: message}
}

func renderOpenURL(step protocol.Step) Unit {
	out := decode[messagePayload](step.Result.Output)
	return success(step, "Website opened", or(firstOf(out.FriendlyMessage), "Opened "+string(out.URL)))
}

func renderOpenApp(step protocol.Step) Unit {
	out := decode[messagePayload](step.Result.Output)
	return success(step, "Application launched", or(firstOf(out.FriendlyMessage), "Launched "+string(out.AppName)))
}

func renderOpenExplorer(step protocol.Step) Unit {
	out := decode[messagePayload](step.Result.Output)
	return success(step, "File Explorer opened", or(firstOf(out.FriendlyMessage), ExplorerOpened))
}

func renderCreate(label string) handler {
	return func(step protocol.Step) Unit {
		out := decode[messagePayload](step.Result.Output)
		return success(step, label, or(firstOf(out.FriendlyMessage, out.Output), CreatedOK))
	}
}

func renderTime(step protocol.Step) Unit {
	out := decode[messagePayload](step.Result.Output)
	return success(step, "Current Time", firstOf(out.FriendlyMessage, out.Output))
}

func renderTerminal(step protocol.Step) Unit {
	out := decode[messagePayload](step.Result.Output)
	return success(step, "Terminal opened", or(firstOf(out.FriendlyMessage), TerminalLaunched))
}

func renderAnswer(step protocol.Step) Unit {
	out := decode[answerPayload](step.Result.Output)
	return Unit{
		Kind:    KindRichText,
		Action:  step.Action,
		Label:   "Answer",
		Message: or(string(out.Answer), NoResponse),
	}
}

func renderEmail(step protocol.Step) Unit {
	out := decode[emailPayload](step.Result.Output)
	return Unit{
		Kind:   KindEmailDraft,
		Action: step.Action,
		Label:  "Email draft created",
		Email: &Email{
			Subject:   or(string(out.Subject), NoSubject),
			Recipient: or(string(out.Recipient), NoRecipient),
			Body:      or(firstOf(out.EmailDraft, out.Body), NoContent),
		},
	}
}

func renderReadFile(step protocol.Step) Unit {
	out := decode[filePayload](step.Result.Output)
	if out.Content == "" {
		return Unit{
			Kind:    KindFailure,
			Action:  step.Action,
			Label:   "File read",
			Message: or(string(out.Error), NoContentFound),
		}
	}
	u := Unit{
		Kind:    KindFileContent,
		Action:  step.Action,
		Label:   "File read",
		Message: string(out.Content),
	}
	if out.FileType != "" {
		u.Details = append(u.Details, Detail{Label: "Type", Value: string(out.FileType)})
	}
	if out.PageCount.Valid {
		u.Details = append(u.Details, Detail{Label: "Pages", Value: out.PageCount.String()})
	}
	return u
}

func renderShell(step protocol.Step) Unit {
	out := decode[shellPayload](step.Result.Output)
	return Unit{
		Kind:   KindShellResult,
		Action: step.Action,
		Label:  "Command executed",
		Shell: &Shell{
			Friendly: string(out.FriendlyMessage),
			Stdout:   string(out.Output),
			Stderr:   string(out.Error),
		},
	}
}

func renderSummary(step protocol.Step) Unit {
	out := decode[summaryPayload](step.Result.Output)
	u := Unit{
		Kind:    KindRichText,
		Action:  step.Action,
		Label:   "Summary",
		Message: or(string(out.Summary), NoResponse),
	}
	if out.OriginalLength.Valid {
		u.Details = append(u.Details, Detail{Label: "Original length", Value: out.OriginalLength.String() + " words"})
	}
	if out.SummaryLength.Valid {
		u.Details = append(u.Details, Detail{Label: "Summary length", Value: out.SummaryLength.String() + " words"})
	}
	return u
}

func renderSearch(step protocol.Step) Unit {
	out := decode[searchPayload](step.Result.Output)
	msg := firstOf(out.FriendlyMessage, out.Message)
	if msg == "" {
		msg = fmt.Sprintf("Found %d items", len(out.Results))
	}
	u := success(step, "Search results", msg)
	for _, m := range out.Results {
		u.Details = append(u.Details, Detail{
			Label: or(string(m.Type), "item"),
			Value: or(string(m.Path), string(m.Name)),
		})
	}
	return u
}

func renderGeneric(step protocol.Step) Unit {
	out := decode[messagePayload](step.Result.Output)
	msg := firstOf(out.FriendlyMessage, out.Message, out.Output)
	if msg == "" {
		msg = dump(step.Result.Output)
	}
	label := step.Action
	if label == "" {
		label = "unknown action"
	}
	return success(step, label, msg)
}
