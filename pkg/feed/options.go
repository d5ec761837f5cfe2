package feed

// options holds parse configuration.
type options struct {
	mode Mode
	name string
}

// Option configures Parse.
type Option func(*options) error

func defaultOptions() *options {
	return &options{
		mode: ModeLine,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithMode selects the tokenizer.
func WithMode(mode Mode) Option {
	return func(o *options) error {
		m, err := ParseMode(string(mode))
		if err != nil {
			return err
		}
		o.mode = m
		return nil
	}
}

// WithName labels log output with the feed name.
func WithName(name string) Option {
	return func(o *options) error {
		o.name = name
		return nil
	}
}
