package services_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/internal/services"
)

var _ = Describe("ConnectionRegistry", func() {
	var registry *services.ConnectionRegistry

	BeforeEach(func() {
		registry = services.NewConnectionRegistry()
	})

	It("should register local connections", func() {
		conn := newLocalConnection("qemu:///system")
		Expect(registry.Add(conn)).To(BeTrue())

		Expect(registry.Connections()).To(HaveExactElements(BeIdenticalTo(conn)))
	})

	It("should refuse remote and nil connections", func() {
		Expect(registry.Add(newRemoteConnection("qemu+ssh://host/system"))).To(BeFalse())
		Expect(registry.Add(nil)).To(BeFalse())
		Expect(registry.Connections()).To(BeEmpty())
	})

	It("should replace a connection registered under the same URI", func() {
		first := newLocalConnection("qemu:///system")
		second := newLocalConnection("qemu:///system")
		registry.Add(first)
		registry.Add(second)

		Expect(registry.Connections()).To(HaveExactElements(BeIdenticalTo(second)))
	})

	It("should make removal idempotent", func() {
		registry.Add(newLocalConnection("qemu:///system"))

		Expect(registry.Remove("qemu:///system")).To(BeTrue())
		Expect(registry.Remove("qemu:///system")).To(BeFalse())
		Expect(registry.Remove("qemu:///unknown")).To(BeFalse())
		Expect(registry.URIs()).To(BeEmpty())
	})

	It("should list connections ordered by URI", func() {
		registry.Add(newLocalConnection("qemu:///system"))
		registry.Add(newLocalConnection("lxc:///"))
		registry.Add(newLocalConnection("qemu:///session"))

		Expect(registry.URIs()).To(Equal([]string{"lxc:///", "qemu:///session", "qemu:///system"}))

		uris := make([]string, 0)
		for _, c := range registry.Connections() {
			uris = append(uris, c.URI())
		}
		Expect(uris).To(Equal(registry.URIs()))
	})
})

var _ = Describe("SeenSet", func() {
	It("should only grow", func() {
		seen := services.NewSeenSet()

		Expect(seen.Add("vm-1")).To(BeTrue())
		Expect(seen.Add("vm-1")).To(BeFalse())
		Expect(seen.Add("vm-2")).To(BeTrue())

		Expect(seen.Add("vm-2")).To(BeFalse())
		Expect(seen.Len()).To(Equal(2))
	})
})

var _ models.Connection = &fakeConnection{}
