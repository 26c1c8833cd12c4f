package tools

// Tier is the permission level of a tool.
type Tier string

const (
	// TierAuto executes without human involvement.
	TierAuto Tier = "auto"
	// TierApprove pauses the agent for explicit human approval.
	TierApprove Tier = "approve"
)

// Gate resolves tool names to permission tiers. It holds no state of its
// own: the provider is consulted on every decision, so configuration
// edits take effect between turns without a restart. Unconfigured tools
// require approval.
type Gate struct {
	provider func() map[string]string
}

// NewGate creates a gate backed by a permission-map provider.
func NewGate(provider func() map[string]string) *Gate {
	return &Gate{provider: provider}
}

// Resolve returns the permission tier for a tool name.
func (g *Gate) Resolve(name string) Tier {
	if g.provider != nil {
		if perms := g.provider(); perms != nil {
			if v, ok := perms[name]; ok && Tier(v) == TierAuto {
				return TierAuto
			}
		}
	}
	return TierApprove
}
