package session

import "strings"

// BuiltinCommands is the recognized set of slash commands.
var BuiltinCommands = map[string]bool{
	"tools": true, "apps": true, "servers": true, "clear": true,
	"model": true, "help": true, "quit": true, "exit": true,
}

// ParsedInput is the result of parsing one line of user input.
type ParsedInput struct {
	IsSlash  bool
	Command  string // only set when IsSlash and Command is a built-in
	Argument string
	Raw      string // the full remainder after the slash, for direct invocation
}

// ParseInput splits a "/command remainder" line at the first space.
// Anything not starting with "/" is treated as a direct tool invocation
// with Raw set to the whole input.
func ParseInput(input string) ParsedInput {
	if !strings.HasPrefix(input, "/") {
		return ParsedInput{Raw: input}
	}

	body := strings.TrimPrefix(input, "/")
	token, remainder, found := strings.Cut(body, " ")
	if !found {
		token = body
		remainder = ""
	}
	argument := strings.TrimSpace(remainder)

	if BuiltinCommands[token] {
		return ParsedInput{IsSlash: true, Command: token, Argument: argument, Raw: body}
	}
	return ParsedInput{IsSlash: true, Raw: body, Argument: argument}
}

// ExtractPrefix takes a tool name whose owning server prefix has already
// been stripped (internal/namespace) and returns everything before its
// first underscore, or the whole stripped name if it has none.
func ExtractPrefix(strippedName string) string {
	before, _, found := strings.Cut(strippedName, "_")
	if !found {
		return strippedName
	}
	return before
}
