package policy_test

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/policy"
)

var _ = Describe("Loading policy documents", func() {
	It("ships a complete default table", func() {
		table, err := policy.Default()
		Expect(err).NotTo(HaveOccurred())
		Expect(table.MissingEntries()).To(BeEmpty())
		Expect(table.Fallback()).To(Equal(policy.Entry{TargetHours: 72, EscalationHours: 96}))

		other, ok := table.Entry(model.CategoryOther, model.PriorityMedium)
		Expect(ok).To(BeTrue())
		Expect(other).To(Equal(table.Fallback()))

		area, ok := table.Area("downtown")
		Expect(ok).To(BeTrue())
		Expect(area.Name).To(Equal("Downtown"))
		Expect(table.Areas()[0].ID).To(Equal("downtown"))
	})

	It("loads a policy file from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "policy.yaml")
		Expect(os.WriteFile(path, []byte(`
defaults:
  water_leak:
    critical: { target_hours: 4, escalation_hours: 10 }
areas:
  - id: east
    name: East
    overrides:
      water_leak: 3
`), 0o600)).To(Succeed())

		table, err := policy.Load(path)
		Expect(err).NotTo(HaveOccurred())

		hours, ok := table.Override("east", model.CategoryWaterLeak)
		Expect(ok).To(BeTrue())
		Expect(hours).To(Equal(3.0))
		Expect(table.Fallback().TargetHours).To(Equal(72.0))
	})

	It("uses the embedded policy for an empty path", func() {
		table, err := policy.Load("")
		Expect(err).NotTo(HaveOccurred())
		_, ok := table.Entry(model.CategoryPothole, model.PriorityLow)
		Expect(ok).To(BeTrue())
	})

	DescribeTable("rejects invalid documents",
		func(doc string) {
			_, err := policy.Parse([]byte(doc))
			Expect(err).To(HaveOccurred())
		},
		Entry("unknown category", `
defaults:
  graffiti:
    low: { target_hours: 1, escalation_hours: 2 }
`),
		Entry("unknown priority", `
defaults:
  pothole:
    urgent: { target_hours: 1, escalation_hours: 2 }
`),
		Entry("non-positive target", `
defaults:
  pothole:
    low: { target_hours: 0, escalation_hours: 2 }
`),
		Entry("negative override", `
areas:
  - id: east
    overrides:
      pothole: -4
`),
		Entry("duplicate area", `
areas:
  - id: east
  - id: east
`),
		Entry("unknown field", `
defaults: {}
escalation_policy: strict
`),
	)

	It("round-trips the table through Document", func() {
		table, err := policy.Default()
		Expect(err).NotTo(HaveOccurred())

		again, err := policy.New(table.Document())
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Document()).To(Equal(table.Document()))
	})

	It("describes the document with a JSON schema", func() {
		raw, err := policy.SchemaJSON()
		Expect(err).NotTo(HaveOccurred())

		var schema map[string]any
		Expect(json.Unmarshal(raw, &schema)).To(Succeed())
		Expect(schema["title"]).To(Equal("SLA policy"))
		Expect(schema["properties"]).To(HaveKey("defaults"))
		Expect(schema["properties"]).To(HaveKey("areas"))
	})
})
