package tracefile

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem/cache"
)

func readAll(r *Reader) ([]Record, error) {
	var records []Record

	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records, nil
		}

		if err != nil {
			return records, err
		}

		records = append(records, rec)
	}
}

var _ = Describe("Reader", func() {
	It("should decode labels and hexadecimal addresses", func() {
		r := NewReader(strings.NewReader("2 408ed4\n0 10019d94\n1 0x7fff00\n"))

		records, err := readAll(r)

		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([]Record{
			{Kind: cache.InstructionFetch, Address: 0x408ed4, Line: 1},
			{Kind: cache.DataLoad, Address: 0x10019d94, Line: 2},
			{Kind: cache.DataStore, Address: 0x7fff00, Line: 3},
		}))
	})

	It("should skip blank lines and comments and ignore extra fields", func() {
		r := NewReader(strings.NewReader(
			"# generated\n\n   \n2 ABC 0\n"))

		records, err := readAll(r)

		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Address).To(Equal(uint64(0xabc)))
		Expect(records[0].Line).To(Equal(4))
		Expect(r.LinesRead()).To(Equal(4))
	})

	DescribeTable("malformed records",
		func(text string) {
			r := NewReader(strings.NewReader("0 10\n" + text + "\n"))

			_, err := r.Next()
			Expect(err).NotTo(HaveOccurred())

			_, err = r.Next()

			var parseErr *ParseError
			Expect(errors.As(err, &parseErr)).To(BeTrue())
			Expect(parseErr.Line).To(Equal(2))
			Expect(errors.Is(err, ErrMalformed)).To(BeTrue())
		},
		Entry("missing address", "2"),
		Entry("unknown label", "3 1000"),
		Entry("non-numeric label", "x 1000"),
		Entry("bad address", "0 12zz"),
	)
})
