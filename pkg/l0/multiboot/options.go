package multiboot

// Config holds the sender configuration.
type Config struct {
	// DetectionTries is the number of broadcasts of the detection phase.
	DetectionTries int

	// Palette is the palette selection byte sent with 0x63PP.
	Palette byte

	// ExchangeDelay is the settle time before each exchange, in display
	// lines.
	ExchangeDelay int

	// RetryDelay is the cooldown before detection restarts when no client
	// answered, in display lines.
	RetryDelay int

	// Progress is called on phase changes and header progress (optional).
	Progress ProgressCallback
}

func defaultConfig() Config {
	return Config{
		DetectionTries: DefaultDetectionTries,
		Palette:        DefaultPalette,
		ExchangeDelay:  DefaultExchangeDelay,
		RetryDelay:     DefaultRetryDelay,
	}
}

// Option is a functional option for configuring the Sender.
type Option func(*Config)

// WithDetectionTries overrides the number of detection broadcasts.
func WithDetectionTries(tries int) Option {
	return func(c *Config) {
		if tries > 0 {
			c.DetectionTries = tries
		}
	}
}

// WithPalette overrides the palette selection byte.
func WithPalette(palette byte) Option {
	return func(c *Config) {
		c.Palette = palette
	}
}

// WithExchangeDelay overrides the delay before each exchange.
func WithExchangeDelay(lines int) Option {
	return func(c *Config) {
		if lines >= 0 {
			c.ExchangeDelay = lines
		}
	}
}

// WithRetryDelay overrides the cooldown before detection restarts.
func WithRetryDelay(lines int) Option {
	return func(c *Config) {
		if lines >= 0 {
			c.RetryDelay = lines
		}
	}
}

// WithProgress sets a callback to track the transfer.
//
// Example:
//
//	sender := multiboot.New(port, clock, bios,
//	    multiboot.WithProgress(func(p multiboot.Progress) {
//	        log.Printf("[%s] clients=%03b %d%%", p.Phase, p.Clients, p.Percentage)
//	    }),
//	)
func WithProgress(callback ProgressCallback) Option {
	return func(c *Config) {
		c.Progress = callback
	}
}
