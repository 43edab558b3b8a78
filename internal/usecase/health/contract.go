package health

import "context"

// StorePinger checks that the key-value backend answers.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// DatasetSizer reports how many records were loaded.
type DatasetSizer interface {
	Len() int
}

// SessionCounter reports how many browsing sessions are live.
type SessionCounter interface {
	Active() int
}
