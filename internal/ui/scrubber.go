package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/eclipse"
	"github.com/litescript/ls-eclipse/internal/timeline"
)

// Sparkline width bounds; the actual width follows the terminal.
const (
	minSparklineWidth = 24
	maxSparklineWidth = 96
)

// sparklineBlocks are the Unicode block characters for sparkline (0 = lowest, 7 = highest).
var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Coverage ramp: clear sky → amber → deep red at totality.
var (
	covColorLow  = [3]uint8{0x3a, 0x3f, 0x5c}
	covColorMid  = [3]uint8{0xf5, 0xa6, 0x23}
	covColorHigh = [3]uint8{0xc0, 0x1c, 0x28}
)

// Sun elevation ramp: low (dark blue) → mid (blue) → high (cyan).
var (
	elevColorLow  = [3]uint8{0x1b, 0x2b, 0x4b}
	elevColorMid  = [3]uint8{0x34, 0x78, 0xc0}
	elevColorHigh = [3]uint8{0x8b, 0xe9, 0xff}
)

const timeLayout = "15:04:05Z"

// sparklineWidth fits the sparkline to the terminal width.
func sparklineWidth(termWidth int) int {
	w := termWidth - 16
	if w < minSparklineWidth {
		return minSparklineWidth
	}
	if w > maxSparklineWidth {
		return maxSparklineWidth
	}
	return w
}

func (m Model) renderScrubber() string {
	tm := *m.snapshot.Timing
	cursor := m.snapshot.Cursor
	width := sparklineWidth(m.width)

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s eclipse", tm.Kind)))
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %s  ·  max %.1f%%  ·  %s",
		tm.Peak.Format("2006-01-02"), tm.Obscuration*100, formatDuration(tm.Duration()))))
	b.WriteString("\n\n")

	// Coverage curve with the cursor marker underneath
	b.WriteString("  ")
	b.WriteString(renderCoverageSparkline(m.snapshot.Curve.Values(), width))
	b.WriteString("\n  ")
	b.WriteString(renderCursorMarker(tm.Progress(cursor), width))
	b.WriteString("\n  ")
	b.WriteString(dimStyle.Render(edgeLabels(tm, width)))
	b.WriteString("\n  ")
	b.WriteString(renderElevationSparkline(m.trace, width))
	b.WriteString("\n\n")

	// Sky at the cursor
	phase := tm.PhaseAt(cursor)
	b.WriteString("  ")
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", "Cursor")))
	b.WriteString(valueStyle.Render(cursor.Format(timeLayout)))
	b.WriteString(labelStyle.Render(fmt.Sprintf("  [%s]", phase)))
	b.WriteString("\n  ")
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", "Coverage")))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%.1f%%", m.cursorCoverage*100)))
	b.WriteString("\n  ")
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", "Sun")))
	b.WriteString(valueStyle.Render(fmt.Sprintf("az %.1f°  el %.1f°", m.cursorSun.AzimuthDeg, m.cursorSun.ElevationDeg)))
	b.WriteString(dimStyle.Render("  " + astro.GetElevationTier(m.cursorSun.ElevationDeg).String()))
	b.WriteString("\n\n")

	b.WriteString(m.renderContacts(tm, phase))
	b.WriteString(m.renderSunLine())

	if m.playing {
		b.WriteString("\n  ")
		b.WriteString(renderShimmerText(m.animTick, "▶ playing"))
	}

	return b.String()
}

// renderContacts lists the contact times, highlighting the current phase.
func (m Model) renderContacts(tm eclipse.Timing, phase eclipse.Phase) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623")).Bold(true)

	type row struct {
		label  string
		at     time.Time
		active bool
	}
	rows := []row{{"Partial begins", tm.Start, phase == eclipse.PhasePartial && m.snapshot.Cursor.Before(tm.Peak)}}
	if tm.TotalityStart != nil {
		rows = append(rows, row{"Totality begins", *tm.TotalityStart, phase == eclipse.PhaseTotal})
	}
	rows = append(rows, row{"Peak", tm.Peak, m.snapshot.Cursor.Equal(tm.Peak)})
	if tm.TotalityEnd != nil {
		rows = append(rows, row{"Totality ends", *tm.TotalityEnd, false})
	}
	rows = append(rows, row{"Partial ends", tm.End, phase == eclipse.PhasePartial && m.snapshot.Cursor.After(tm.Peak)})

	var b strings.Builder
	for _, r := range rows {
		marker := "  "
		style := labelStyle
		if r.active {
			marker = "▸ "
			style = activeStyle
		}
		b.WriteString("  ")
		b.WriteString(style.Render(fmt.Sprintf("%s%-16s %s", marker, r.label, r.at.Format(timeLayout))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderSunLine() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noteStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623"))

	if m.sun.Polar {
		return "\n  " + dimStyle.Render("The Sun does not rise or set on this day")
	}
	if m.sun.Sunrise.IsZero() {
		return ""
	}

	line := "\n  " + dimStyle.Render(fmt.Sprintf("Sunrise %s  ·  Sunset %s",
		m.sun.Sunrise.Format(timeLayout), m.sun.Sunset.Format(timeLayout)))
	switch {
	case m.sun.RisesDuringEclipse:
		line += "  " + noteStyle.Render("rises eclipsed")
	case m.sun.SetsDuringEclipse:
		line += "  " + noteStyle.Render("sets eclipsed")
	}
	return line
}

// renderCoverageSparkline renders coverage values in [0, 1] as a colored sparkline.
func renderCoverageSparkline(values []float64, width int) string {
	samples := resample(values, width)
	if len(samples) == 0 {
		dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		return dimStyle.Render("No coverage curve")
	}

	var sb strings.Builder
	for _, c := range samples {
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}

		blockIdx := int(c * 7.0)
		if blockIdx > 7 {
			blockIdx = 7
		}

		r, g, b := interpolateCoverageColor(c)
		color := fmt.Sprintf("#%02x%02x%02x", r, g, b)
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(sparklineBlocks[blockIdx])))
	}
	return sb.String()
}

// renderElevationSparkline renders the Sun's elevation across the eclipse.
// Cells below the horizon are drawn as dim floor blocks.
func renderElevationSparkline(trace []timeline.SunPoint, width int) string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if len(trace) == 0 {
		return dimStyle.Render("No Sun trace")
	}

	elevations := make([]float64, len(trace))
	for i, p := range trace {
		elevations[i] = p.ElevationDeg
	}
	samples := resample(elevations, width)

	var sb strings.Builder
	for _, elev := range samples {
		if elev <= 0 {
			sb.WriteString(dimStyle.Render(string(sparklineBlocks[0])))
			continue
		}
		if elev > 90 {
			elev = 90
		}

		t := elev / 90.0
		blockIdx := int(t * 7.0)
		if blockIdx > 7 {
			blockIdx = 7
		}

		r, g, b := interpolateElevColor(t)
		color := fmt.Sprintf("#%02x%02x%02x", r, g, b)
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(sparklineBlocks[blockIdx])))
	}
	sb.WriteString(dimStyle.Render(" sun"))
	return sb.String()
}

// renderCursorMarker places ▲ under the sparkline column at progress p.
func renderCursorMarker(p float64, width int) string {
	col := cursorColumn(p, width)
	markerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	return strings.Repeat(" ", col) + markerStyle.Render("▲")
}

func cursorColumn(p float64, width int) int {
	if width <= 1 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return width - 1
	}
	return int(p*float64(width-1) + 0.5)
}

// edgeLabels puts the start time on the left edge and the end time on the right.
func edgeLabels(tm eclipse.Timing, width int) string {
	left := tm.Start.Format(timeLayout)
	right := tm.End.Format(timeLayout)
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// interpolateElevColor returns RGB color for elevation value t in [0, 1].
// Gradient: low (dark blue) → mid (blue) → high (cyan).
func interpolateElevColor(t float64) (uint8, uint8, uint8) {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	lo, hi, s := elevColorLow, elevColorMid, t*2
	if t >= 0.5 {
		lo, hi, s = elevColorMid, elevColorHigh, (t-0.5)*2
	}
	return mixColor(lo, hi, s)
}

// interpolateCoverageColor returns RGB color for coverage c in [0, 1].
func interpolateCoverageColor(c float64) (uint8, uint8, uint8) {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}

	lo, hi, s := covColorLow, covColorMid, c*2
	if c >= 0.5 {
		lo, hi, s = covColorMid, covColorHigh, (c-0.5)*2
	}
	return mixColor(lo, hi, s)
}

func mixColor(lo, hi [3]uint8, s float64) (uint8, uint8, uint8) {
	mix := func(i int) uint8 {
		return uint8(float64(lo[i])*(1-s) + float64(hi[i])*s)
	}
	return mix(0), mix(1), mix(2)
}

// resample averages values into width buckets, repeating values when
// upsampling.
func resample(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}

	result := make([]float64, width)
	perBucket := float64(len(values)) / float64(width)

	for i := 0; i < width; i++ {
		startIdx := int(float64(i) * perBucket)
		endIdx := int(float64(i+1) * perBucket)
		if endIdx <= startIdx {
			endIdx = startIdx + 1
		}
		if endIdx > len(values) {
			endIdx = len(values)
		}
		if startIdx >= endIdx {
			startIdx = endIdx - 1
		}
		if startIdx < 0 {
			startIdx = 0
		}

		sum := 0.0
		for j := startIdx; j < endIdx; j++ {
			sum += values[j]
		}
		if n := endIdx - startIdx; n > 0 {
			result[i] = sum / float64(n)
		}
	}

	return result
}

// renderShimmer renders a loading animation bar followed by msg.
func renderShimmer(tick, width int, msg string) string {
	var sb strings.Builder

	offset := tick % width
	for i := 0; i < width; i++ {
		dist := (i - offset + width) % width
		gray := 60
		if dist < 8 {
			gray = 60 + dist*8
		}
		color := fmt.Sprintf("#%02x%02x%02x", gray, gray, gray)
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("▄"))
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sb.WriteString(" ")
	sb.WriteString(dimStyle.Render(msg))
	return sb.String()
}

// renderShimmerText renders text with a warm highlight sweeping across it.
func renderShimmerText(tick int, text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}

	pos := tick % (len(runes) + 8)

	var sb strings.Builder
	for i, r := range runes {
		dist := i - pos + 4
		if dist < 0 {
			dist = -dist
		}

		var hex string
		switch {
		case dist <= 1:
			hex = "#FFE08A"
		case dist <= 3:
			hex = "#F5C15A"
		default:
			hex = "#B8862E"
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render(string(r)))
	}
	return sb.String()
}

// formatDuration renders d as "1h02m" or "4m05s".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mnt := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, mnt)
	}
	return fmt.Sprintf("%dm%02ds", mnt, sec)
}
