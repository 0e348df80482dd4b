// Package identity mints the thread identifier a console session runs under.
package identity

import (
	"sync"

	"vibecoder.app/console/common"
	"vibecoder.app/console/common/id"
	"vibecoder.app/console/internal/model"
)

const DefaultPrefix = "web-client"

// Provider hands out a single thread id for the lifetime of a session.
// The id is synthesized on the first call to ThreadID, not at construction,
// so nothing can observe a half-initialized session.
type Provider struct {
	prefix string
	next   func() string

	once   sync.Once
	thread model.ThreadID
}

// NewProvider returns a provider minting ids of the form <prefix>-<snowflake>.
// The prefix is slugified; an unusable prefix falls back to DefaultPrefix.
func NewProvider(prefix string) *Provider {
	slug, err := common.Slugify(prefix, DefaultPrefix)
	if err != nil {
		slug = DefaultPrefix
	}
	return &Provider{
		prefix: slug,
		next:   id.NewString,
	}
}

// Resume returns a provider pinned to an existing thread, for re-joining a
// conversation whose memory the agent service still holds.
func Resume(thread model.ThreadID) *Provider {
	p := &Provider{}
	p.once.Do(func() {
		p.thread = thread
	})
	return p
}

func (p *Provider) ThreadID() model.ThreadID {
	p.once.Do(func() {
		p.thread = model.MustThreadID(p.prefix + "-" + p.next())
	})
	return p.thread
}

// Prefix reports the slug ids are minted under. Empty for resumed providers.
func (p *Provider) Prefix() string {
	return p.prefix
}
