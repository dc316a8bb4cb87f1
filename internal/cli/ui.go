package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/legsim/pkg/mechanism"
	"github.com/matzehuels/legsim/pkg/pipeline"
)

// out receives all command output.
var out io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failed legs.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(out, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(out, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(out, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(out, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Fprintln(out, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(out, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints facts on a single dimmed line followed by the cache
// status.
func printStats(cached bool, facts ...string) {
	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}
	parts := make([]string, 0, len(facts)+1)
	for _, f := range facts {
		parts = append(parts, StyleDim.Render(f))
	}
	parts = append(parts, statusStyle.Render(status))
	fmt.Fprintln(out, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

func printNextStep(description, cmd string) {
	fmt.Fprintln(out, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Fprintln(out)
}

// =============================================================================
// Tables
// =============================================================================

// poseTable renders one row per joint point, grouped by leg. Failed legs
// get a single row carrying their error.
func poseTable(res *pipeline.SolveResult) string {
	var rows [][]string
	failed := map[int]bool{}
	for _, leg := range res.Legs {
		in := fmt.Sprintf("%.1f°, %.1f°", leg.Angles.Upper, leg.Angles.Lower)
		if leg.Error != "" {
			failed[len(rows)] = true
			rows = append(rows, []string{leg.Name, in, leg.Code, "", ""})
			continue
		}
		for i, p := range leg.Points {
			name, inputs := "", ""
			if i == 0 {
				name, inputs = leg.Name, in
			}
			rows = append(rows, []string{name, inputs, p.Name, mm(p.X), mm(p.Y)})
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Leg", "Inputs", "Point", "x (mm)", "y (mm)").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case failed[row]:
				return StyleError
			case col >= 3:
				return StyleValue.Align(lipgloss.Right)
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// jointTable lists the joints of a built mechanism and the constraints
// created for each.
func jointTable(m *mechanism.Mechanism) string {
	rows := make([][]string, 0, len(m.Joints))
	for _, j := range m.Joints {
		var kinds []string
		if j.Pivot != nil {
			kinds = append(kinds, "pivot")
		}
		if j.Limit != nil {
			kinds = append(kinds, "limit")
		}
		if j.Motor != nil {
			kinds = append(kinds, "motor")
		}
		rows = append(rows, []string{j.Name, j.Parent, j.Child, strings.Join(kinds, "+"), mm(j.World.X), mm(j.World.Y)})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Joint", "Parent", "Child", "Constraints", "x (mm)", "y (mm)").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col >= 4 {
				return StyleValue.Align(lipgloss.Right)
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// mm formats metres as millimetres.
func mm(v float64) string { return fmt.Sprintf("%.2f", v*1000) }
