package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AddressDecoder", func() {
	It("should split the address into set index and tag", func() {
		d := NewAddressDecoder(16, 64)

		Expect(d.OffsetBits).To(Equal(uint(4)))
		Expect(d.IndexBits).To(Equal(uint(6)))

		setID, tag := d.Decode(0x12345)

		Expect(setID).To(Equal(0x34))
		Expect(tag).To(Equal(uint64(0x48)))
	})

	It("should ignore the offset bits", func() {
		d := NewAddressDecoder(16, 64)

		s1, t1 := d.Decode(0x1230)
		s2, t2 := d.Decode(0x123f)

		Expect(s1).To(Equal(s2))
		Expect(t1).To(Equal(t2))
	})

	It("should map everything to set 0 when there is one set", func() {
		d := NewAddressDecoder(16, 1)

		setID, tag := d.Decode(0xabc0)

		Expect(setID).To(Equal(0))
		Expect(tag).To(Equal(uint64(0xabc)))
	})

	It("should rebuild the block address", func() {
		d := NewAddressDecoder(32, 128)

		setID, tag := d.Decode(0xdeadbeef)

		Expect(d.BlockAddr(setID, tag)).To(Equal(uint64(0xdeadbee0)))
	})

	It("should panic if the block size is not a power of two", func() {
		Expect(func() { NewAddressDecoder(24, 4) }).To(Panic())
	})

	It("should panic if the number of sets is not a power of two", func() {
		Expect(func() { NewAddressDecoder(16, 6) }).To(Panic())
		Expect(func() { NewAddressDecoder(16, 0) }).To(Panic())
	})

	It("should tell powers of two", func() {
		Expect(IsPowerOfTwo(0)).To(BeFalse())
		Expect(IsPowerOfTwo(1)).To(BeTrue())
		Expect(IsPowerOfTwo(96)).To(BeFalse())
		Expect(IsPowerOfTwo(1 << 40)).To(BeTrue())
		Expect(Log2(1 << 12)).To(Equal(uint(12)))
	})
})
