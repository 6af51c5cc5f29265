package aol

// Options configures how a log file is opened and written.
type Options struct {
	// MagicVersion is written into the header on creation and must match on
	// every later open.
	MagicVersion uint16
	// Sync fsyncs the file after every append.
	Sync bool
}

func DefaultOptions() Options {
	return Options{
		MagicVersion: 0,
		Sync:         true,
	}
}

// WithMagicVersion returns a copy of o with the magic version set.
func (o Options) WithMagicVersion(v uint16) Options {
	o.MagicVersion = v
	return o
}

// WithSync returns a copy of o with per-append fsync toggled.
func (o Options) WithSync(sync bool) Options {
	o.Sync = sync
	return o
}
