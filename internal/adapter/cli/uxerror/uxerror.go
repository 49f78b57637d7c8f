// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the terminal client.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"mcpchat/internal/adapter/cli/theme"
	"mcpchat/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Connection Failed"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text
}

// Render formats the error for the terminal.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(theme.ErrorLabel.Render(theme.SymbolError + " " + fe.Title))
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	if fe.Raw != "" && fe.Raw != fe.Message {
		sb.WriteString("\n  ")
		sb.WriteString(theme.TextMuted.Render(fe.Raw))
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

// patterns are ordered most specific first: model refinements before the
// model category, domain sentinels before string matching.
var patterns = []errorPattern{
	{
		match:   is(domain.ErrAuthInvalid),
		produce: constantError("Authentication Failed", "The model API rejected the API key.", []string{"Check the GEMINI_API_KEY environment variable", "Verify the key hasn't expired or been restricted"}),
	},
	{
		match:   is(domain.ErrRateLimit),
		produce: constantError("Rate Limited", "Too many requests were sent to the model API.", []string{"Wait a moment before retrying", "Lower llm.requests_per_minute in config"}),
	},
	{
		match:   is(domain.ErrContextOverflow),
		produce: constantError("Request Too Large", "The conversation exceeded the model's context window.", []string{"Ask a shorter question", "Use a tool that returns less output"}),
	},
	{
		match:   is(domain.ErrCircuitOpen),
		produce: constantError("Model Temporarily Unavailable", "Recent model calls failed repeatedly; requests are paused.", []string{"Wait for llm.circuit_breaker.timeout to pass", "Check the model API status"}),
	},
	{
		match:   is(domain.ErrConfiguration),
		produce: passThrough("Configuration Problem", []string{"Check your config file and MCPCHAT_* environment variables", "Run with logger.level=debug for details"}),
	},
	{
		match:   is(domain.ErrConnection),
		produce: passThrough("Tool Server Unreachable", []string{"Check that the MCP server is running", "Verify the endpoint URL and transport (sse, http or stdio)"}),
	},
	{
		match:   is(domain.ErrNotReady),
		produce: constantError("Not Connected", "The client has no live tool server session.", []string{"Restart mcpchat to reconnect"}),
	},
	{
		match:   is(domain.ErrClientClosed),
		produce: constantError("Session Closed", "The tool server session has already been closed.", []string{"Restart mcpchat to reconnect"}),
	},
	{
		match:   is(domain.ErrModelAPI),
		produce: passThrough("Model Request Failed", []string{"Try again", "Check llm.base_url and llm.model in config"}),
	},

	// External errors without a domain classification.
	{
		match:   containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connection Failed", "Could not reach the remote service.", []string{"Check your network connection", "Verify the endpoint URL"}),
	},
	{
		match:   containsAny("deadline exceeded", "timeout"),
		produce: constantError("Request Timed Out", "The request took too long to complete.", []string{"Try again", "Increase llm.resp_timeout or client.call_timeout in config"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}
	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}
	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with logger.level=debug for more details"},
		Raw:     err.Error(),
	}
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny matches errors whose text contains any of substrs, ignoring case.
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{Title: title, Message: message, Hints: hints, Raw: err.Error()}
	}
}

// passThrough uses the error text itself as the message.
func passThrough(title string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{Title: title, Message: err.Error(), Hints: hints, Raw: err.Error()}
	}
}
