package manifest

const (
	// MaxRewriteThreshold caps the configured rewrite threshold.
	MaxRewriteThreshold = 10000

	DefaultRewriteThreshold = 10000
	DefaultMaximumSize      = 1024
)

// Options configures a manifest file. They are fixed once the file is open.
type Options struct {
	// Version is the magic version written into a new MANIFEST and checked
	// when an existing one is opened.
	Version uint16 `yaml:"version"`
	// RewriteThreshold is the number of entries the log may hold before it
	// is rewritten. Values above MaxRewriteThreshold are clamped.
	RewriteThreshold int `yaml:"rewrite_threshold" validate:"min=0"`
	// MaximumSize is the log size in bytes above which it is rewritten.
	MaximumSize int `yaml:"maximum_size" validate:"min=0"`
}

func DefaultOptions() Options {
	return Options{
		Version:          0,
		RewriteThreshold: DefaultRewriteThreshold,
		MaximumSize:      DefaultMaximumSize,
	}
}

func (o Options) WithVersion(v uint16) Options {
	o.Version = v
	return o
}

func (o Options) WithRewriteThreshold(n int) Options {
	o.RewriteThreshold = n
	return o
}

func (o Options) WithMaximumSize(n int) Options {
	o.MaximumSize = n
	return o
}

func (o Options) rewriteThreshold() int {
	return min(o.RewriteThreshold, MaxRewriteThreshold)
}
