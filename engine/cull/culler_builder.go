package cull

// CullerBuilderOption is a function that configures a Culler during construction.
type CullerBuilderOption func(*culler)

// WithStrategy is an option builder that sets the culling strategy.
//
// Parameters:
//   - s: the strategy
//
// Returns:
//   - CullerBuilderOption: a function that applies the strategy to a culler
func WithStrategy(s Strategy) CullerBuilderOption {
	return func(c *culler) {
		c.strategy = s
	}
}

// WithInitialLightCapacity is an option builder that sizes the first light buffer.
//
// Parameters:
//   - n: lights the buffer holds before growing; zero keeps the default
//
// Returns:
//   - CullerBuilderOption: a function that applies the capacity to a culler
func WithInitialLightCapacity(n uint64) CullerBuilderOption {
	return func(c *culler) {
		if n > 0 {
			c.initialCapacity = n
		}
	}
}
