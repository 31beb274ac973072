package environment

// StaticPlatform is a Platform backed by fixed values.
type StaticPlatform struct {
	Agent        string
	Capabilities map[string]bool
}

// UserAgent implements Platform.
func (p StaticPlatform) UserAgent() string {
	return p.Agent
}

// HasCapability implements Platform.
func (p StaticPlatform) HasCapability(name string) bool {
	return p.Capabilities[name]
}

// NewStaticPlatform builds a platform from a user agent and the features it
// supports.
func NewStaticPlatform(agent string, supported ...FeatureName) StaticPlatform {
	caps := make(map[string]bool, len(supported))
	for _, name := range supported {
		caps[CapabilityFor(name)] = true
	}
	return StaticPlatform{Agent: agent, Capabilities: caps}
}
