// Package timeline samples eclipse quantities over time for display: the
// coverage curve behind the scrubber, the Sun's elevation track and the
// sunrise/sunset context of the eclipse day.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/eclipse"
)

// DefaultSamples is the number of points in a coverage curve.
const DefaultSamples = 500

// ErrEmptyRange is returned when the sampled range ends before it starts
// or asks for no samples.
var ErrEmptyRange = errors.New("empty sample range")

// Sampler evaluates coverage at an instant.
type Sampler interface {
	Sample(t time.Time, obs astro.Observer) (eclipse.CoverageSample, error)
}

// Curve is a coverage curve ordered by time.
type Curve struct {
	Samples []eclipse.CoverageSample `json:"samples"`
}

// BuildCurve samples coverage n times uniformly over [start, end], both ends
// included; n == 1 samples start alone. n < 1 or end before start is
// ErrEmptyRange. Samples are computed in parallel; the first error cancels
// the rest.
func BuildCurve(ctx context.Context, s Sampler, obs astro.Observer, start, end time.Time, n int) (Curve, error) {
	if end.Before(start) {
		return Curve{}, fmt.Errorf("%w: end %s precedes start %s", ErrEmptyRange,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if n < 1 {
		return Curve{}, fmt.Errorf("%w: %d samples", ErrEmptyRange, n)
	}

	times := make([]time.Time, n)
	if n == 1 {
		times[0] = start
	} else {
		step := float64(end.Sub(start)) / float64(n-1)
		for i := range times {
			times[i] = start.Add(time.Duration(step * float64(i)))
		}
		times[n-1] = end
	}

	samples := make([]eclipse.CoverageSample, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, t := range times {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sample, err := s.Sample(t, obs)
			if err != nil {
				return fmt.Errorf("sample %d at %s: %w", i, t.Format(time.RFC3339), err)
			}
			samples[i] = sample
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Curve{}, err
	}
	return Curve{Samples: samples}, nil
}

// Len returns the number of samples.
func (c Curve) Len() int {
	return len(c.Samples)
}

// Max returns the sample with the greatest coverage, the earliest on ties.
func (c Curve) Max() eclipse.CoverageSample {
	var best eclipse.CoverageSample
	for i, s := range c.Samples {
		if i == 0 || s.Coverage > best.Coverage {
			best = s
		}
	}
	return best
}

// At linearly interpolates the coverage at t. Outside the curve it returns 0.
func (c Curve) At(t time.Time) float64 {
	n := len(c.Samples)
	if n == 0 || t.Before(c.Samples[0].Time) || t.After(c.Samples[n-1].Time) {
		return 0
	}

	i := sort.Search(n, func(i int) bool { return !c.Samples[i].Time.Before(t) })
	if c.Samples[i].Time.Equal(t) || i == 0 {
		return c.Samples[i].Coverage
	}

	a, b := c.Samples[i-1], c.Samples[i]
	f := float64(t.Sub(a.Time)) / float64(b.Time.Sub(a.Time))
	return a.Coverage + f*(b.Coverage-a.Coverage)
}

// Values returns the coverage values in order.
func (c Curve) Values() []float64 {
	out := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = s.Coverage
	}
	return out
}
