package message

// ContextOptions are the per-context flags the host can set on the wire.
type ContextOptions struct {
	EnableTracing   bool
	EnableProfiling bool
}

// DecodeContextOptions decodes a ContextOptions payload.
func DecodeContextOptions(b []byte) (ContextOptions, error) {
	var opts ContextOptions
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			opts.EnableTracing = f.bool()
		case 2:
			opts.EnableProfiling = f.bool()
		}
		return nil
	})
	return opts, err
}

// EncodeContextOptions encodes a ContextOptions payload.
func EncodeContextOptions(opts ContextOptions) []byte {
	var b []byte
	b = appendBool(b, 1, opts.EnableTracing)
	b = appendBool(b, 2, opts.EnableProfiling)
	return b
}
