package main

import (
	"sync"

	"github.com/spf13/cobra"
)

// commandExecutionContext describes the command being run, for the fatal
// error path in main.
type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	commandContextMu sync.Mutex
	commandContext   = commandExecutionContext{CommandPath: appName}
)

func setCommandExecutionContext(ctx commandExecutionContext) {
	commandContextMu.Lock()
	defer commandContextMu.Unlock()
	commandContext = ctx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{CommandPath: appName})
}

func currentCommandExecutionContext() commandExecutionContext {
	commandContextMu.Lock()
	defer commandContextMu.Unlock()
	return commandContext
}

// Commands that print results for a human opt out of structured logging by
// setting this annotation.
const annotationPlainOutput = "tidewire/plain-output"

func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationPlainOutput]; ok {
			return false
		}
	}
	return cmd != nil && cmd.Runnable()
}

func plainOutput() map[string]string {
	return map[string]string{annotationPlainOutput: "true"}
}
