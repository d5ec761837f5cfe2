package differ

// Option is a functional option for configuring Differ
type Option func(*differ)

// WithIgnoredFields sets fields to ignore during comparison, by json name
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}

// WithComparedFields stops ignoring fields that are ignored by default
func WithComparedFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			delete(d.ignoreFields, field)
		}
	}
}
