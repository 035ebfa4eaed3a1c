package swmm_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hydrosim/internal/swmm"
)

var _ = Describe("Registry", func() {
	var (
		s   *swmm.Session
		reg *swmm.Registry
	)

	BeforeEach(func() {
		s = fixtureSession()
		Expect(s.Initialize()).To(Succeed())
		reg = s.Registry()
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("counts the fixture objects", func() {
		counts, err := reg.Counts()
		Expect(err).NotTo(HaveOccurred())
		Expect(counts).To(HaveLen(len(swmm.ObjectKinds())))

		want := map[swmm.ObjectKind]int{
			swmm.Gage: 1, swmm.Subcatch: 7, swmm.Node: 12, swmm.Link: 11,
			swmm.Pollutant: 1, swmm.LandUse: 4, swmm.TimeSeries: 3,
		}
		for kind, n := range counts {
			Expect(n).To(Equal(want[kind]), kind.String())
		}
	})

	It("keeps names and indices consistent for every kind", func() {
		for _, kind := range swmm.ObjectKinds() {
			n, err := reg.Count(kind)
			Expect(err).NotTo(HaveOccurred())
			names, err := reg.Names(kind)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(HaveLen(n))
			for i, name := range names {
				Expect(reg.IndexOf(kind, name)).To(Equal(i))
			}
		}
	})

	It("resolves fixture names", func() {
		Expect(reg.Names(swmm.Gage)).To(Equal([]string{"RainGage"}))
		Expect(reg.IndexOf(swmm.Node, "J6")).To(Equal(5))
	})

	It("rejects the system kind", func() {
		_, err := reg.Count(swmm.System)
		Expect(err).To(MatchError(swmm.ErrInvalidObjectKind))
		_, err = reg.Names(swmm.System)
		Expect(err).To(MatchError(swmm.ErrInvalidObjectKind))
		_, err = reg.IndexOf(swmm.System, "x")
		Expect(err).To(MatchError(swmm.ErrInvalidObjectKind))
	})

	It("rejects unknown tags before calling the engine", func() {
		_, err := reg.Count(swmm.ObjectKind(42))
		Expect(err).To(MatchError(swmm.ErrInvalidObjectKind))
	})

	It("reports a missing name with context", func() {
		idx, err := reg.IndexOf(swmm.Node, "J99")
		Expect(idx).To(Equal(-1))
		Expect(err).To(MatchError(swmm.ErrObjectNotFound))

		var se *swmm.Error
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.Op).To(Equal("index"))
		Expect(se.Kind).To(Equal(swmm.Node))
		Expect(se.Name).To(Equal("J99"))
		Expect(err.Error()).To(Equal(`swmm: index node["J99"]: object not found`))
	})
})

var _ = Describe("Accessor", func() {
	var (
		s     *swmm.Session
		props *swmm.Accessor
	)

	BeforeEach(func() {
		s = fixtureSession()
		Expect(s.Initialize()).To(Succeed())
		props = s.Properties()
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("keeps an externally set width across steps", func() {
		Expect(props.Set(swmm.Subcatch, swmm.SubcatchWidth, 0, 100.0)).To(Succeed())
		stepAll(s)
		Expect(props.Get(swmm.Subcatch, swmm.SubcatchWidth, 0)).To(Equal(100.0))
	})

	It("accumulates the default rainfall rate", func() {
		for range 12 {
			_, err := s.Step()
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(props.Get(swmm.Gage, swmm.GageTotalPrecipitation, 0)).To(BeNumerically("~", 0.3, 1e-9))
	})

	It("keeps a rainfall override for the rest of the run", func() {
		Expect(props.SetByName(swmm.Gage, swmm.GageRainfall, "RainGage", 3.6)).To(Succeed())
		steps := 0
		for _, err := range s.Times() {
			Expect(err).NotTo(HaveOccurred())
			Expect(props.GetByName(swmm.Gage, swmm.GageTotalPrecipitation, "RainGage")).To(BeNumerically("~", 3.6, 1e-9))
			steps++
		}
		Expect(steps).To(Equal(12))
	})

	It("reads system dates as calendar time", func() {
		start, err := props.GetTime(swmm.System, swmm.SystemStartDate, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(start).To(Equal(s.StartTime()))

		_, err = props.GetTime(swmm.System, swmm.SystemRouteStep, 0)
		Expect(err).To(MatchError(swmm.ErrInvalidPropertyKind))
	})

	It("coerces flags to zero or one", func() {
		Expect(props.Set(swmm.Node, swmm.NodeRptFlag, 2, 7)).To(Succeed())
		Expect(props.Get(swmm.Node, swmm.NodeRptFlag, 2)).To(Equal(1.0))
	})

	DescribeTable("rejects invalid access",
		func(kind swmm.ObjectKind, prop swmm.Property, index int, value float64, want error) {
			Expect(props.Set(kind, prop, index, value)).To(MatchError(want))
		},
		Entry("property of another kind", swmm.Subcatch, swmm.GageRainfall, 0, 1.0, swmm.ErrInvalidPropertyKind),
		Entry("unknown kind", swmm.ObjectKind(77), swmm.GageRainfall, 0, 1.0, swmm.ErrInvalidObjectKind),
		Entry("index past the end", swmm.Node, swmm.NodeMaxDepth, 12, 1.0, swmm.ErrIndexOutOfRange),
		Entry("negative index", swmm.Node, swmm.NodeMaxDepth, -1, 1.0, swmm.ErrIndexOutOfRange),
		Entry("read-only property", swmm.Subcatch, swmm.SubcatchRunoff, 0, 1.0, swmm.ErrPropertyNotWritable),
		Entry("negative width", swmm.Subcatch, swmm.SubcatchWidth, 0, -5.0, swmm.ErrInvalidPropertyValue),
		Entry("fractional report step", swmm.System, swmm.SystemReportStep, 0, 1.5, swmm.ErrInvalidPropertyValue),
		Entry("system index other than zero", swmm.System, swmm.SystemNoReport, 1, 1.0, swmm.ErrIndexOutOfRange),
		Entry("static parameter while running", swmm.System, swmm.SystemRouteStep, 0, 30.0, swmm.ErrPropertyLocked),
		Entry("area while running", swmm.Subcatch, swmm.SubcatchArea, 0, 3.0, swmm.ErrPropertyLocked),
	)

	It("validates reads", func() {
		_, err := props.Get(swmm.Link, swmm.LinkFlow, 11)
		Expect(err).To(MatchError(swmm.ErrIndexOutOfRange))
		Expect(err.Error()).To(Equal("swmm: get link.flow[11]: object index out of range"))

		_, err = props.GetByName(swmm.Link, swmm.LinkFlow, "nope")
		Expect(err).To(MatchError(swmm.ErrObjectNotFound))
	})
})
