package hashmap_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/notebook-kernel/common/utils/hashmap"
)

// Both implementations satisfy the same contract.
var _ = DescribeTable("HashMap implementations",
	func(newMap func() hashmap.HashMap[int]) {
		m := newMap()

		By("Storing and loading")
		m.Store("shell", 42)
		value, ok := m.Load("shell")
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal(42))

		_, ok = m.Load("control")
		Expect(ok).To(BeFalse())

		By("Loading or storing")
		actual, loaded := m.LoadOrStore("shell", 7)
		Expect(loaded).To(BeTrue())
		Expect(actual).To(Equal(42))

		actual, loaded = m.LoadOrStore("stdin", 7)
		Expect(loaded).To(BeFalse())
		Expect(actual).To(Equal(7))
		Expect(m.Len()).To(Equal(2))

		By("Ranging")
		seen := make(map[string]int)
		m.Range(func(key string, val int) bool {
			seen[key] = val
			return true
		})
		Expect(seen).To(Equal(map[string]int{"shell": 42, "stdin": 7}))

		visited := 0
		m.Range(func(string, int) bool {
			visited++
			return false
		})
		Expect(visited).To(Equal(1))

		By("Deleting")
		value, ok = m.LoadAndDelete("stdin")
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal(7))

		_, ok = m.LoadAndDelete("stdin")
		Expect(ok).To(BeFalse())

		m.Delete("shell")
		_, ok = m.Load("shell")
		Expect(ok).To(BeFalse())
	},
	Entry("CornelkMap", func() hashmap.HashMap[int] { return hashmap.NewCornelkMap[int](8) }),
	Entry("ConcurrentMap", func() hashmap.HashMap[int] { return hashmap.NewConcurrentMap[int]() }),
)

var _ = Describe("ConcurrentMap", func() {
	It("Will report how many entries were cleared", func() {
		m := hashmap.NewConcurrentMap[string]()
		m.Store("a", "1")
		m.Store("b", "2")

		Expect(m.Clear()).To(Equal(2))
		Expect(m.Len()).To(Equal(0))
	})
})
