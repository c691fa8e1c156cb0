// Package report renders eclipse results for headless output: a JSON
// document, a text summary and a single status line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/eclipse"
	"github.com/litescript/ls-eclipse/internal/timeline"
)

// ObserverExport is a JSON-friendly observer.
type ObserverExport struct {
	Name       string  `json:"name,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	ElevationM float64 `json:"elevation_m"`
}

// Export is the JSON-serializable description of one local eclipse.
type Export struct {
	GeneratedAt      time.Time                `json:"generated_at"`
	Provider         string                   `json:"provider"`
	Observer         ObserverExport           `json:"observer"`
	Eclipse          eclipse.Timing           `json:"eclipse"`
	DurationSeconds  float64                  `json:"duration_seconds"`
	TotalitySeconds  float64                  `json:"totality_seconds,omitempty"`
	PeakJD           float64                  `json:"peak_jd"`
	PeakSun          eclipse.SunDirection     `json:"peak_sun"`
	Sun              timeline.SunEvents       `json:"sun"`
	Curve            []eclipse.CoverageSample `json:"curve,omitempty"`
	MaxCurveCoverage float64                  `json:"max_curve_coverage,omitempty"`
}

// Input gathers what an Export is built from.
type Input struct {
	Provider string
	Observer astro.Observer
	Timing   eclipse.Timing
	PeakSun  eclipse.SunDirection
	Sun      timeline.SunEvents
	Curve    timeline.Curve
}

// NewExport converts results to an exportable form.
func NewExport(in Input, generatedAt time.Time) *Export {
	e := &Export{
		GeneratedAt: generatedAt.UTC(),
		Provider:    in.Provider,
		Observer: ObserverExport{
			Name:       in.Observer.Name,
			Latitude:   in.Observer.LatDeg,
			Longitude:  in.Observer.LonDeg,
			ElevationM: in.Observer.ElevationM,
		},
		Eclipse:         in.Timing,
		DurationSeconds: in.Timing.Duration().Seconds(),
		TotalitySeconds: in.Timing.TotalityDuration().Seconds(),
		PeakJD:          astro.JulianDate(in.Timing.Peak),
		PeakSun:         in.PeakSun,
		Sun:             in.Sun,
	}
	if in.Curve.Len() > 0 {
		e.Curve = in.Curve.Samples
		e.MaxCurveCoverage = in.Curve.Max().Coverage
	}
	return e
}

// WriteJSON writes the export as indented JSON.
func (e *Export) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))

// WriteSummary writes a text table of the eclipse circumstances. Styled
// output bolds the title for terminals.
func WriteSummary(w io.Writer, e *Export, styled bool) {
	title := fmt.Sprintf("Solar eclipse for %s", observerLabel(e.Observer))
	if styled {
		title = titleStyle.Render(title)
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("─", 56))

	tm := e.Eclipse
	fmt.Fprintf(w, "%-16s %s\n", "Kind", tm.Kind)
	fmt.Fprintf(w, "%-16s %.1f%%\n", "Obscuration", tm.Obscuration*100)
	fmt.Fprintf(w, "%-16s %s\n", "Duration", formatDuration(tm.Duration()))
	if d := tm.TotalityDuration(); d > 0 {
		fmt.Fprintf(w, "%-16s %s\n", "Totality", formatDuration(d))
	}
	fmt.Fprintln(w, strings.Repeat("─", 56))

	fmt.Fprintf(w, "%-16s %s\n", "Partial begins", formatTime(tm.Start))
	if tm.TotalityStart != nil {
		fmt.Fprintf(w, "%-16s %s\n", "Totality begins", formatTime(*tm.TotalityStart))
	}
	fmt.Fprintf(w, "%-16s %s  (Sun az %.1f°, el %.1f°)\n", "Peak", formatTime(tm.Peak),
		e.PeakSun.AzimuthDeg, e.PeakSun.ElevationDeg)
	if tm.TotalityEnd != nil {
		fmt.Fprintf(w, "%-16s %s\n", "Totality ends", formatTime(*tm.TotalityEnd))
	}
	fmt.Fprintf(w, "%-16s %s\n", "Partial ends", formatTime(tm.End))
	fmt.Fprintln(w, strings.Repeat("─", 56))

	switch {
	case e.Sun.Polar:
		fmt.Fprintln(w, "Sun does not rise or set that day")
	default:
		fmt.Fprintf(w, "%-16s %s\n", "Sunrise", formatTime(e.Sun.Sunrise))
		fmt.Fprintf(w, "%-16s %s\n", "Sunset", formatTime(e.Sun.Sunset))
		if e.Sun.RisesDuringEclipse {
			fmt.Fprintln(w, "The Sun rises eclipsed")
		}
		if e.Sun.SetsDuringEclipse {
			fmt.Fprintln(w, "The Sun sets eclipsed")
		}
	}
}

// WriteNowLine writes a single status line for the instant now.
func WriteNowLine(w io.Writer, e *Export, coverage float64, now time.Time) {
	tm := e.Eclipse
	phase := tm.PhaseAt(now)

	var rel string
	switch phase {
	case eclipse.PhaseBefore:
		rel = "starts in " + formatDuration(tm.Start.Sub(now))
	case eclipse.PhaseAfter:
		rel = "ended " + formatDuration(now.Sub(tm.End)) + " ago"
	default:
		if now.Before(tm.Peak) {
			rel = "peak in " + formatDuration(tm.Peak.Sub(now))
		} else {
			rel = "ends in " + formatDuration(tm.End.Sub(now))
		}
	}

	fmt.Fprintf(w, "☀ %s: %s eclipse [%s] %s | coverage %.1f%% | max %.1f%% at %s\n",
		observerLabel(e.Observer), tm.Kind, phase, rel, coverage*100,
		tm.Obscuration*100, formatTime(tm.Peak))
}

func observerLabel(o ObserverExport) string {
	if o.Name != "" {
		return o.Name
	}
	return fmt.Sprintf("%.4f°, %.4f°", o.Latitude, o.Longitude)
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05Z")
}

// formatDuration renders d rounded to the second as 1h02m03s, 4m05s or 12s.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	s := int64(math.Round(d.Seconds()))
	h, m, sec := s/3600, (s%3600)/60, s%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, sec)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}
