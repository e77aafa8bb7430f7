package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	count int
	last  HookCtx
}

func (h *countingHook) Func(ctx HookCtx) {
	h.count++
	h.last = ctx
}

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		pos  *HookPos
	)

	BeforeEach(func() {
		base = &HookableBase{}
		pos = &HookPos{Name: "Test"}
	})

	It("should invoke all registered hooks", func() {
		h1 := &countingHook{}
		h2 := &countingHook{}
		base.AcceptHook(h1)
		base.AcceptHook(h2)

		base.InvokeHook(HookCtx{Pos: pos, Item: 42})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(h1.count).To(Equal(1))
		Expect(h2.count).To(Equal(1))
		Expect(h2.last.Item).To(Equal(42))
		Expect(h2.last.Pos).To(BeIdenticalTo(pos))
	})

	It("should panic on duplicated hooks", func() {
		h := &countingHook{}
		base.AcceptHook(h)

		Expect(func() { base.AcceptHook(h) }).To(Panic())
	})

	It("should accept function hooks", func() {
		called := 0
		base.AcceptHook(HookFunc(func(ctx HookCtx) { called++ }))
		base.AcceptHook(HookFunc(func(ctx HookCtx) { called++ }))

		base.InvokeHook(HookCtx{Pos: pos})

		Expect(called).To(Equal(2))
		Expect(base.Hooks()).To(HaveLen(2))
	})
})
