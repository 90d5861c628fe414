// Package rotation runs units of work against a pool of API
// credentials, rotating to the next credential on transient or
// credential-specific failures and giving up only when a wall-clock
// retry budget is spent.
package rotation

import "errors"

// ErrEmptyPool is returned when a pool is constructed with no
// credentials.
var ErrEmptyPool = errors.New("credential pool is empty")

// Pool is an ordered set of opaque credentials with a rotation
// cursor. A Pool is local to one Execute call; concurrent executions
// each build their own and never share cursor state.
type Pool struct {
	creds  []string
	cursor int
}

// NewPool builds a pool over the given credentials.
func NewPool(creds []string) (*Pool, error) {
	if len(creds) == 0 {
		return nil, ErrEmptyPool
	}
	cp := make([]string, len(creds))
	copy(cp, creds)
	return &Pool{creds: cp}, nil
}

// Current returns the credential at the rotation cursor.
func (p *Pool) Current() string {
	return p.creds[p.cursor]
}

// Index returns the current cursor position.
func (p *Pool) Index() int {
	return p.cursor
}

// Advance moves the cursor to the next credential, wrapping at the
// end. With a single credential it is a no-op and the same key is
// retried after the backoff.
func (p *Pool) Advance() {
	p.cursor = (p.cursor + 1) % len(p.creds)
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.creds)
}
