package format

// Config represents formatting configuration options
type Config struct {
	// IndentSize is the indentation of option lines; continuation lines of
	// a wrapped value are indented twice as far
	IndentSize int `mapstructure:"indent_size" yaml:"indent_size" json:"indent_size"`

	// WrapWidth is the line length above which option values are broken
	// before top-level "and" and "or" operators. 0 disables wrapping.
	WrapWidth int `mapstructure:"wrap_width" yaml:"wrap_width" json:"wrap_width"`
}

// DefaultConfig returns the default formatting configuration
func DefaultConfig() *Config {
	return &Config{
		IndentSize: 2,
		WrapWidth:  100,
	}
}
