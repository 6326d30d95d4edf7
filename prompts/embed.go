// Package prompts holds the built-in prompt text sent to the agent runtime.
package prompts

import _ "embed"

//go:embed agent/system.md
var AgentSystemPrompt string
