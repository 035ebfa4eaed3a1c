package swmm_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hydrosim/internal/lumped"
	"github.com/san-kum/hydrosim/internal/swmm"
)

const fixture = "../lumped/testdata/site_drainage_model.yaml"

func fixtureSession(opts ...swmm.Option) *swmm.Session {
	dir := GinkgoT().TempDir()
	return swmm.New(lumped.New(), fixture,
		filepath.Join(dir, "site.rpt"), filepath.Join(dir, "site.db"), opts...)
}

func stepAll(s *swmm.Session) int {
	n := 0
	for s.State() != swmm.Finished {
		_, err := s.Step()
		Expect(err).NotTo(HaveOccurred())
		n++
		Expect(n).To(BeNumerically("<", 1000))
	}
	return n
}

var _ = Describe("Session", func() {
	var s *swmm.Session

	AfterEach(func() {
		if s != nil {
			Expect(s.Close()).To(Succeed())
		}
	})

	Describe("before Initialize", func() {
		BeforeEach(func() { s = fixtureSession() })

		It("starts uninitialized", func() {
			Expect(s.State()).To(Equal(swmm.Uninitialized))
		})

		It("rejects Step with SessionNotReady", func() {
			called := false
			s = fixtureSession(swmm.WithProgress(func(float64) { called = true }))
			_, err := s.Step()
			Expect(err).To(MatchError(swmm.ErrSessionNotReady))
			Expect(called).To(BeFalse())
		})

		It("rejects registry and accessor calls", func() {
			_, err := s.Registry().Count(swmm.Node)
			Expect(err).To(MatchError(swmm.ErrSessionNotReady))
			_, err = s.Properties().Get(swmm.Gage, swmm.GageRainfall, 0)
			Expect(err).To(MatchError(swmm.ErrSessionNotReady))
			Expect(s.Finalize()).To(MatchError(swmm.ErrSessionNotReady))
		})

		It("closes without error when never opened", func() {
			Expect(s.Close()).To(Succeed())
			Expect(s.Close()).To(Succeed())
			Expect(s.State()).To(Equal(swmm.Closed))
		})

		It("yields SessionNotReady once when iterated", func() {
			var errs []error
			for _, err := range s.Times() {
				errs = append(errs, err)
			}
			Expect(errs).To(HaveLen(1))
			Expect(errs[0]).To(MatchError(swmm.ErrSessionNotReady))
		})
	})

	Describe("Initialize", func() {
		It("reports a missing input as a resource error with the engine message", func() {
			dir := GinkgoT().TempDir()
			in := filepath.Join(dir, "missing.yaml")
			s = swmm.New(lumped.New(), in, filepath.Join(dir, "m.rpt"), filepath.Join(dir, "m.db"))

			err := s.Initialize()
			Expect(err).To(MatchError(swmm.ErrResourceOpen))
			Expect(err.Error()).To(ContainSubstring("ERROR 303: cannot open input file."))
			Expect(err.Error()).To(ContainSubstring(in))
			Expect(swmm.Code(err)).To(Equal(swmm.CodeInpFile))

			var ee *swmm.EngineError
			Expect(errors.As(err, &ee)).To(BeTrue())
			Expect(ee.Code).To(Equal(303))
			Expect(s.State()).To(Equal(swmm.Uninitialized))
		})

		It("can be retried once the resource is fixed", func() {
			dir := GinkgoT().TempDir()
			in := filepath.Join(dir, "site.yaml")
			s = swmm.New(lumped.New(), in, filepath.Join(dir, "site.rpt"), filepath.Join(dir, "site.db"))
			Expect(s.Initialize()).To(MatchError(swmm.ErrResourceOpen))

			data, err := os.ReadFile(fixture)
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(in, data, 0o644)).To(Succeed())

			Expect(s.Initialize()).To(Succeed())
			Expect(s.State()).To(Equal(swmm.Initialized))
		})

		It("derives the simulation period", func() {
			s = fixtureSession()
			Expect(s.Initialize()).To(Succeed())
			Expect(s.StartTime()).To(Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
			Expect(s.EndTime()).To(Equal(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)))
			Expect(s.CurrentTime()).To(Equal(s.StartTime()))
			Expect(s.Elapsed()).To(BeZero())
		})

		It("refuses a second Initialize", func() {
			s = fixtureSession()
			Expect(s.Initialize()).To(Succeed())
			Expect(s.Initialize()).To(MatchError(swmm.ErrAlreadyInitialized))
		})

		It("refuses to reopen a closed session", func() {
			s = fixtureSession()
			Expect(s.Close()).To(Succeed())
			Expect(s.Initialize()).To(MatchError(swmm.ErrSessionClosed))
		})
	})

	Describe("stepping", func() {
		var progress []float64

		BeforeEach(func() {
			progress = nil
			s = fixtureSession(swmm.WithProgress(func(v float64) { progress = append(progress, v) }))
			Expect(s.Initialize()).To(Succeed())
		})

		It("runs twelve steps and reports monotone progress ending at one", func() {
			Expect(stepAll(s)).To(Equal(12))
			Expect(progress).To(HaveLen(12))
			for i := 1; i < len(progress); i++ {
				Expect(progress[i]).To(BeNumerically(">=", progress[i-1]))
			}
			Expect(progress[len(progress)-1]).To(Equal(1.0))
			Expect(s.CurrentTime()).To(Equal(s.EndTime()))
		})

		It("returns the value passed to the callback", func() {
			p, err := s.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(progress).To(Equal([]float64{p}))
			Expect(p).To(BeNumerically("~", 1.0/12, 1e-9))
			Expect(s.State()).To(Equal(swmm.Stepping))
			Expect(s.CurrentTime()).To(Equal(time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)))
		})

		It("rejects Step after the end", func() {
			stepAll(s)
			n := len(progress)
			_, err := s.Step()
			Expect(err).To(MatchError(swmm.ErrAlreadyFinished))
			Expect(progress).To(HaveLen(n))
		})

		It("rejects Step after Close", func() {
			Expect(s.Close()).To(Succeed())
			_, err := s.Step()
			Expect(err).To(MatchError(swmm.ErrAlreadyFinished))
			_, err = s.Registry().Count(swmm.Node)
			Expect(err).To(MatchError(swmm.ErrSessionClosed))
		})

		It("rejects Step after Finalize", func() {
			s.Step()
			Expect(s.Finalize()).To(Succeed())
			Expect(s.Finalize()).To(Succeed())
			Expect(s.State()).To(Equal(swmm.Stepping))
			_, err := s.Step()
			Expect(err).To(MatchError(swmm.ErrAlreadyFinished))
		})

		It("strides several steps at once", func() {
			p, err := s.Stride(6)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeNumerically("~", 0.5, 1e-9))
			p, err = s.Stride(100)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(1.0))
			Expect(s.State()).To(Equal(swmm.Finished))
		})

		It("keeps the clock non-decreasing", func() {
			last := s.Clock()
			for s.State() != swmm.Finished {
				_, err := s.Step()
				Expect(err).NotTo(HaveOccurred())
				Expect(s.Clock()).To(BeNumerically(">=", last))
				last = s.Clock()
			}
		})
	})

	Describe("Times", func() {
		BeforeEach(func() {
			s = fixtureSession()
			Expect(s.Initialize()).To(Succeed())
		})

		It("yields one time per step and is not restartable", func() {
			var times []time.Time
			for t, err := range s.Times() {
				Expect(err).NotTo(HaveOccurred())
				times = append(times, t)
			}
			Expect(times).To(HaveLen(12))
			Expect(times[0]).To(Equal(time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)))
			Expect(times[11]).To(Equal(s.EndTime()))
			Expect(s.State()).To(Equal(swmm.Finished))

			for _, err := range s.Times() {
				Expect(err).To(MatchError(swmm.ErrAlreadyFinished))
			}
		})

		It("resumes where an early break left off", func() {
			n := 0
			for range s.Times() {
				n++
				if n == 3 {
					break
				}
			}
			for range s.Times() {
				n++
			}
			Expect(n).To(Equal(12))
		})
	})

	Describe("Execute", func() {
		It("runs to completion and closes", func() {
			var last float64
			s = fixtureSession(swmm.WithProgress(func(v float64) { last = v }))
			Expect(s.Execute(context.Background())).To(Succeed())
			Expect(last).To(Equal(1.0))
			Expect(s.State()).To(Equal(swmm.Closed))
		})

		It("continues a session that is already stepping", func() {
			s = fixtureSession()
			Expect(s.Initialize()).To(Succeed())
			s.Step()
			Expect(s.Execute(context.Background())).To(Succeed())
			Expect(s.State()).To(Equal(swmm.Closed))
		})

		It("stops between steps when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			steps := 0
			s = fixtureSession(swmm.WithProgress(func(float64) {
				steps++
				if steps == 3 {
					cancel()
				}
			}))
			err := s.Execute(ctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(steps).To(Equal(3))
			Expect(s.State()).To(Equal(swmm.Closed))
		})

		It("closes after a failed initialize", func() {
			dir := GinkgoT().TempDir()
			s = swmm.New(lumped.New(), filepath.Join(dir, "none.yaml"), filepath.Join(dir, "r"), "")
			Expect(s.Execute(context.Background())).To(MatchError(swmm.ErrResourceOpen))
			Expect(s.State()).To(Equal(swmm.Closed))
		})

		It("runs through the package-level helper", func() {
			dir := GinkgoT().TempDir()
			err := swmm.Run(context.Background(), lumped.New(), fixture,
				filepath.Join(dir, "r.rpt"), filepath.Join(dir, "r.db"))
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Join(dir, "r.rpt")).To(BeAnExistingFile())
		})
	})

	Describe("after Finalize", func() {
		BeforeEach(func() {
			s = fixtureSession()
			Expect(s.Initialize()).To(Succeed())
			stepAll(s)
			Expect(s.Finalize()).To(Succeed())
		})

		It("still allows reads", func() {
			v, err := s.Properties().Get(swmm.Gage, swmm.GageTotalPrecipitation, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNumerically("~", 0.3, 1e-9))
		})

		It("rejects writes", func() {
			err := s.Properties().Set(swmm.Subcatch, swmm.SubcatchWidth, 0, 10)
			Expect(err).To(MatchError(swmm.ErrAlreadyFinished))
		})

		It("exposes the mass balance", func() {
			mb, err := s.MassBalance()
			Expect(err).NotTo(HaveOccurred())
			Expect(mb.Runoff).To(BeNumerically("~", 0, 1e-6))
			Expect(mb.Flow).To(BeNumerically("~", 0, 1e-6))
			Expect(s.Version()).To(Equal(lumped.Version))
		})
	})

	Describe("hot start", func() {
		It("resumes a saved state", func() {
			dir := GinkgoT().TempDir()
			hot := filepath.Join(dir, "site.hsf")

			s = fixtureSession()
			Expect(s.Initialize()).To(Succeed())
			s.Stride(6)
			Expect(s.SaveHotStart(hot)).To(Succeed())
			depth, err := s.Properties().GetByName(swmm.Node, swmm.NodeDepth, "J7")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Close()).To(Succeed())

			s = fixtureSession(swmm.WithHotStart(hot), swmm.WithSaveResults(false))
			Expect(s.Initialize()).To(Succeed())
			Expect(s.Properties().GetByName(swmm.Node, swmm.NodeDepth, "J7")).To(Equal(depth))
		})

		It("fails initialize on a missing hot start file", func() {
			s = fixtureSession(swmm.WithHotStart(filepath.Join(GinkgoT().TempDir(), "none.hsf")))
			err := s.Initialize()
			Expect(err).To(MatchError(swmm.ErrResourceOpen))
			Expect(swmm.Code(err)).To(Equal(swmm.CodeHotstartOpen))
			Expect(s.State()).To(Equal(swmm.Uninitialized))
		})
	})

	Describe("with a failing engine", func() {
		var f *fakeBinding

		BeforeEach(func() { f = newFake() })

		It("closes the engine when open fails", func() {
			f.openCode = swmm.CodeRptFile
			s = swmm.New(f, "in", "rpt", "out")
			err := s.Initialize()
			Expect(err).To(MatchError(swmm.ErrResourceOpen))
			Expect(err.Error()).To(ContainSubstring("ERROR 305"))
			Expect(f.calls).To(Equal([]string{"open", "close"}))
		})

		It("releases the handle when start fails", func() {
			f.startCode = swmm.CodeInputErrors
			s = swmm.New(f, "in", "rpt", "out")
			err := s.Initialize()
			var ee *swmm.EngineError
			Expect(errors.As(err, &ee)).To(BeTrue())
			Expect(ee.Code).To(Equal(swmm.CodeInputErrors))
			Expect(f.count("close")).To(Equal(1))
			Expect(s.State()).To(Equal(swmm.Uninitialized))
		})

		It("surfaces a step failure and still closes once", func() {
			f.failStep, f.stepCode = 2, 999
			var calls int
			s = swmm.New(f, "in", "rpt", "out", swmm.WithProgress(func(float64) { calls++ }))
			err := s.Execute(context.Background())

			var ee *swmm.EngineError
			Expect(errors.As(err, &ee)).To(BeTrue())
			Expect(ee.Code).To(Equal(999))
			Expect(ee.Message).To(Equal("ERROR 999: unrecognized engine error."))
			Expect(calls).To(Equal(1))
			Expect(f.count("end")).To(Equal(1))
			Expect(f.count("close")).To(Equal(1))
			Expect(s.Close()).To(Succeed())
			Expect(f.count("close")).To(Equal(1))
		})

		It("refuses to step again after a failed step", func() {
			f.failStep, f.stepCode = 2, swmm.CodeTimestep
			s = swmm.New(f, "in", "rpt", "out")
			Expect(s.Initialize()).To(Succeed())

			p, err := s.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeNumerically("~", 0.25, 1e-9))

			p, err = s.Step()
			Expect(swmm.Code(err)).To(Equal(swmm.CodeTimestep))
			Expect(p).To(BeNumerically("~", 0.25, 1e-9))

			p, err = s.Step()
			Expect(swmm.Code(err)).To(Equal(swmm.CodeTimestep))
			Expect(p).To(BeNumerically("~", 0.25, 1e-9))
			_, err = s.Stride(3)
			Expect(swmm.Code(err)).To(Equal(swmm.CodeTimestep))
			for _, err := range s.Times() {
				Expect(swmm.Code(err)).To(Equal(swmm.CodeTimestep))
			}
			Expect(f.count("step")).To(Equal(2))
			Expect(swmm.Code(s.Properties().Set(swmm.Node, swmm.NodeHead, 0, 1))).To(Equal(swmm.CodeTimestep))

			Expect(s.Close()).To(Succeed())
			Expect(s.State()).To(Equal(swmm.Closed))
			Expect(f.count("close")).To(Equal(1))
		})

		It("keeps reporting a failed finalize on repeat calls", func() {
			f.endCode = swmm.CodeOutWrite
			s = swmm.New(f, "in", "rpt", "out")
			Expect(s.Initialize()).To(Succeed())
			stepAll(s)

			first := s.Finalize()
			Expect(swmm.Code(first)).To(Equal(swmm.CodeOutWrite))
			Expect(s.Finalize()).To(MatchError(first))
			Expect(f.count("end")).To(Equal(1))
			Expect(f.count("report")).To(Equal(0))
			Expect(s.Close()).To(Succeed())
		})

		It("writes report lines only while open", func() {
			s = swmm.New(f, "in", "rpt", "out")
			Expect(s.WriteLine("early")).To(MatchError(swmm.ErrSessionNotReady))
			Expect(s.Initialize()).To(Succeed())
			Expect(s.WriteLine("Scenario: A")).To(Succeed())
			Expect(s.Close()).To(Succeed())
			Expect(s.WriteLine("late")).To(MatchError(swmm.ErrSessionClosed))
			Expect(f.lines).To(Equal([]string{"Scenario: A"}))
		})

		It("prefers the engine's message", func() {
			f.failStep, f.stepCode = 1, 107
			f.messages = map[int]string{107: "ERROR 107: cannot compute a valid time step at 00:01:00."}
			s = swmm.New(f, "in", "rpt", "out")
			Expect(s.Initialize()).To(Succeed())
			_, err := s.Step()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("at 00:01:00"))
		})

		It("returns the first error from Execute when close also fails", func() {
			f.failStep, f.stepCode = 1, swmm.CodeTimestep
			f.closeCode = swmm.CodeSystem
			s = swmm.New(f, "in", "rpt", "out")
			err := s.Execute(context.Background())
			Expect(swmm.Code(err)).To(Equal(swmm.CodeTimestep))
		})

		It("calls end and report once per run", func() {
			s = swmm.New(f, "in", "rpt", "out")
			Expect(s.Execute(context.Background())).To(Succeed())
			Expect(f.calls).To(Equal([]string{
				"open", "start", "step", "step", "step", "step", "end", "report", "close",
			}))
		})

		It("reports one when the period has zero length", func() {
			f.end = f.start
			f.steps = 1
			var got []float64
			s = swmm.New(f, "in", "rpt", "out", swmm.WithProgress(func(v float64) { got = append(got, v) }))
			Expect(s.Execute(context.Background())).To(Succeed())
			Expect(got).To(Equal([]float64{1}))
		})
	})
})
