package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"boxy/internal/project"
)

// Compiler recompiles one script on demand. Calls that arrive while a
// compile of the same inputs is running share its result instead of
// starting another.
type Compiler struct {
	req   Request
	group singleflight.Group
	gen   atomic.Uint64
	seq   atomic.Uint64

	mu      sync.RWMutex
	last    *Result
	lastSeq uint64
}

func NewCompiler(req Request) *Compiler {
	return &Compiler{req: req}
}

// Touch marks the inputs as changed. Compiles requested after it never join
// one that started before.
func (c *Compiler) Touch() { c.gen.Add(1) }

// Version identifies the current inputs: the Touch generation and, for a
// script read from disk, the digest of its bytes.
func (c *Compiler) Version() (string, error) {
	var d project.Digest
	if c.req.Load == nil && c.req.Source == nil {
		data, err := os.ReadFile(c.req.Path)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		d = project.DigestBytes(data)
	}
	return fmt.Sprintf("%d/%s", c.gen.Load(), d), nil
}

// Compile runs or joins a compile of the current inputs. shared is true when
// the result came from a compile another caller started. The compile itself
// is not cancelled when ctx is; the caller just stops waiting.
func (c *Compiler) Compile(ctx context.Context) (res *Result, shared bool, err error) {
	version, err := c.Version()
	if err != nil {
		return nil, false, err
	}
	ch := c.group.DoChan(version, func() (any, error) {
		seq := c.seq.Add(1)
		req := c.req
		r, err := Compile(context.WithoutCancel(ctx), &req)
		if err != nil {
			return nil, err
		}
		r.Version = version
		c.mu.Lock()
		if seq > c.lastSeq {
			c.last, c.lastSeq = r, seq
		}
		c.mu.Unlock()
		return r, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return nil, out.Shared, out.Err
		}
		return out.Val.(*Result), out.Shared, nil
	}
}

// Last returns the result of the most recently started compile that
// succeeded, or nil.
func (c *Compiler) Last() *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Request returns a copy of the request every compile uses.
func (c *Compiler) Request() Request { return c.req }
