// internal/stub/planner.go
package stub

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/signalnine/deskmate/internal/protocol"
)

// Planner turns a command into an intent and executes its steps. It only
// knows a handful of keyword rules; everything else is answered.
type Planner struct {
	now func() time.Time
}

// NewPlanner creates a planner using the wall clock
func NewPlanner() *Planner {
	return &Planner{now: time.Now}
}

var greetings = []string{"hello", "hi", "hey", "good morning", "good evening"}

// Plan classifies command without executing anything
func (p *Planner) Plan(command string) protocol.Intent {
	lower := strings.ToLower(strings.TrimSpace(command))

	switch {
	case containsAny(lower, "time", "clock", "date"):
		return protocol.Intent{
			Intent:      "get_time",
			Target:      "time",
			Steps:       []map[string]any{{"action": "get_time", "params": map[string]any{}}},
			Assumptions: []string{"user wants local time"},
		}
	case containsAny(lower, "system info", "system information", "specs"):
		return protocol.Intent{
			Intent:      "get_system_info",
			Target:      "system info",
			Steps:       []map[string]any{{"action": "get_system_info", "params": map[string]any{}}},
			Assumptions: []string{"user wants system specs"},
		}
	case isGreeting(lower):
		return protocol.Intent{
			Intent: "respond_to_greeting",
			Steps: []map[string]any{{
				"action": "respond_to_greeting",
				"params": map[string]any{"question": command},
			}},
		}
	default:
		return protocol.Intent{
			Intent: "answer_question",
			Target: command,
			Steps: []map[string]any{{
				"action": "answer_question",
				"params": map[string]any{"question": command},
			}},
		}
	}
}

// Execute runs every planned step, stopping after the first failure
func (p *Planner) Execute(intent protocol.Intent) ([]protocol.Step, bool) {
	var steps []protocol.Step
	for _, raw := range intent.Steps {
		action, _ := raw["action"].(string)
		params, _ := raw["params"].(map[string]any)

		result := p.run(action, params)
		steps = append(steps, protocol.Step{Action: action, Params: params, Result: result})
		if !result.Success {
			return steps, false
		}
	}
	return steps, true
}

func (p *Planner) run(action string, params map[string]any) protocol.Outcome {
	var out map[string]any
	switch action {
	case "get_time":
		stamp := p.now().Format("2006-01-02 15:04:05")
		out = map[string]any{
			"success":          true,
			"output":           stamp,
			"friendly_message": "Current Time: " + stamp,
		}
	case "get_system_info":
		info := systemInfo()
		out = map[string]any{
			"success": true,
			"output":  info,
			"friendly_message": fmt.Sprintf("System: %s (%s)\nRuntime: %s",
				info["system"], info["architecture"], info["runtime_version"]),
		}
	case "respond_to_greeting", "answer_question":
		question, _ := params["question"].(string)
		out = map[string]any{
			"success":     true,
			"answer":      answer(question),
			"question":    question,
			"answer_type": "fallback",
		}
	default:
		return protocol.Outcome{Success: false, Error: fmt.Sprintf("Unknown action: %s", action)}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return protocol.Outcome{Success: false, Error: fmt.Sprintf("Error executing %s: %v", action, err)}
	}
	return protocol.Outcome{Success: true, Output: data}
}

func systemInfo() map[string]any {
	arch := "64-bit"
	if strings.HasSuffix(runtime.GOARCH, "386") || runtime.GOARCH == "arm" {
		arch = "32-bit"
	}
	return map[string]any{
		"system":          runtime.GOOS,
		"machine":         runtime.GOARCH,
		"architecture":    arch,
		"runtime_version": runtime.Version(),
		"cpu": map[string]any{
			"logical_cores": runtime.NumCPU(),
		},
	}
}

func answer(question string) string {
	lower := strings.ToLower(question)
	switch {
	case isGreeting(lower):
		return "Hello! I'm DeskMate. How can I help you?"
	case containsAny(lower, "joke", "funny"):
		return "Here's a joke: Why don't eggs tell jokes? They'd crack each other up!"
	case containsAny(lower, "weather", "temperature"):
		return "I don't have weather access. I can open a weather website for you."
	default:
		return "I can help you with that. I can assist with files, emails, commands, opening websites/apps, and more."
	}
}

func isGreeting(lower string) bool {
	for _, g := range greetings {
		if lower == g || strings.HasPrefix(lower, g+" ") || strings.HasPrefix(lower, g+"!") || strings.HasPrefix(lower, g+",") {
			return true
		}
	}
	return false
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
