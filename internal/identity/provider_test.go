package identity_test

import (
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"vibecoder.app/console/internal/identity"
	"vibecoder.app/console/internal/model"
)

var _ = Describe("Provider", func() {
	It("mints an id under the configured prefix", func() {
		p := identity.NewProvider("web-client")

		thread := p.ThreadID()

		Expect(thread.IsZero()).To(BeFalse())
		Expect(thread.String()).To(HavePrefix("web-client-"))
		Expect(strings.TrimPrefix(thread.String(), "web-client-")).To(MatchRegexp(`^\d+$`))
	})

	It("returns the same id on every call", func() {
		p := identity.NewProvider("web-client")

		first := p.ThreadID()
		Expect(p.ThreadID()).To(Equal(first))
		Expect(p.ThreadID()).To(Equal(first))
	})

	It("returns one id to concurrent callers", func() {
		p := identity.NewProvider("web-client")

		var wg sync.WaitGroup
		ids := make([]model.ThreadID, 16)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ids[i] = p.ThreadID()
			}(i)
		}
		wg.Wait()

		for _, got := range ids {
			Expect(got).To(Equal(ids[0]))
		}
	})

	It("gives separate sessions distinct ids", func() {
		a := identity.NewProvider("web-client").ThreadID()
		b := identity.NewProvider("web-client").ThreadID()
		Expect(a).NotTo(Equal(b))
	})

	It("slugifies the prefix", func() {
		p := identity.NewProvider("Agency Console!")
		Expect(p.Prefix()).To(Equal("agency-console"))
		Expect(p.ThreadID().String()).To(HavePrefix("agency-console-"))
	})

	It("falls back to the default prefix", func() {
		p := identity.NewProvider("  ")
		Expect(p.Prefix()).To(Equal(identity.DefaultPrefix))
	})

	It("pins a resumed thread", func() {
		thread := model.MustThreadID("test-a1b2c3")
		p := identity.Resume(thread)
		Expect(p.ThreadID()).To(Equal(thread))
	})
})
