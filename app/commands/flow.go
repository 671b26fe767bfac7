package commands

import "time"

// finalizeFlow is the interactive prompt sequence of one in-flight finalize
// attempt. Each transition is validated against the expected state; input
// that does not match the state is rejected instead of being guessed at.
type finalizeFlow struct {
	state     flowState
	protect   bool
	retention time.Duration
}

type flowState int

const (
	flowAwaitProtect flowState = iota + 1
	flowAwaitRetention
	flowAwaitChannelChoice
	flowAwaitChannelInput
)

// Callback payloads of the finalize prompts and the delivery retry button.
const (
	cbProtectOn   = "protect:on"
	cbProtectOff  = "protect:off"
	cbChannelNone = "channel:none"
	cbChannelSet  = "channel:set"
	cbRetryPrefix = "retry:"
)
