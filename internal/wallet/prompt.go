package wallet

import "context"

// PromptKind identifies what the user is asked to approve.
type PromptKind string

const (
	PromptConnect     PromptKind = "connect"
	PromptSwitchChain PromptKind = "switch_chain"
	PromptAddChain    PromptKind = "add_chain"
	PromptSign        PromptKind = "sign"
	PromptTransaction PromptKind = "transaction"
)

// Prompt is one approval request shown by a keystore provider.
type Prompt struct {
	Kind    PromptKind
	Title   string
	Details [][2]string // ordered label/value pairs
}

// Prompter asks the user to approve a provider request.
type Prompter interface {
	Approve(ctx context.Context, p Prompt) (bool, error)
}

// PromptFunc adapts a function to Prompter.
type PromptFunc func(ctx context.Context, p Prompt) (bool, error)

func (f PromptFunc) Approve(ctx context.Context, p Prompt) (bool, error) { return f(ctx, p) }

// AutoApprove approves everything (scripts and tests).
var AutoApprove = PromptFunc(func(context.Context, Prompt) (bool, error) { return true, nil })
