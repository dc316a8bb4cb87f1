package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/pipeline"
)

// Editor styles
var (
	editorSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	editorNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	editorDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PoseEditor - Interactive actuator control
// =============================================================================

// editorActuator is one selectable actuator: a leg and an axis.
type editorActuator struct {
	Leg      string
	Axis     kinematics.Axis
	Actuator kinematics.Actuator
}

// PoseEditor is the bubbletea model of the pose editor. Number keys select
// an actuator and the arrow keys step its input by one degree within the
// actuator's range. A change that leaves any leg unsolvable is refused and
// the last valid pose stays on screen. Pressing d commits the pose.
type PoseEditor struct {
	ctx    context.Context
	runner *pipeline.Runner

	Actuators []editorActuator
	Cursor    int
	Angles    map[string]kinematics.Angles
	Pose      *pipeline.SolveResult // last valid pose
	Status    string                // why the last change was refused
	Committed *pipeline.Commit
}

// NewPoseEditor solves the rest pose and returns an editor over every
// actuator of every leg.
func NewPoseEditor(ctx context.Context, runner *pipeline.Runner) (*PoseEditor, error) {
	body, err := runner.Body()
	if err != nil {
		return nil, err
	}
	m := &PoseEditor{ctx: ctx, runner: runner, Angles: map[string]kinematics.Angles{}}
	for _, leg := range body.Legs {
		m.Actuators = append(m.Actuators,
			editorActuator{Leg: leg.Name, Axis: kinematics.AxisUpper, Actuator: leg.Geometry.Upper},
			editorActuator{Leg: leg.Name, Axis: kinematics.AxisLower, Actuator: leg.Geometry.Lower},
		)
		m.Angles[leg.Name] = kinematics.Angles{}
	}
	res, err := runner.Solve(ctx, pipeline.Options{Angles: m.Angles})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, legerr.New(legerr.ErrCodeInvalidPose, "rest pose does not solve")
	}
	m.Pose = res
	return m, nil
}

func (m *PoseEditor) Init() tea.Cmd {
	return nil
}

func (m *PoseEditor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch s := key.String(); s {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		m.step(-1)
	case "right", "l":
		m.step(+1)
	case "d":
		c, err := m.runner.Commit(m.ctx, pipeline.Options{Angles: m.Angles})
		if err != nil {
			m.Status = legerr.UserMessage(err)
			return m, nil
		}
		m.Committed = c
		return m, tea.Quit
	default:
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(m.Actuators) {
				m.Cursor = i
			}
		}
	}
	return m, nil
}

// step moves the selected actuator by delta degrees, clamped to its range.
func (m *PoseEditor) step(delta float64) {
	act := m.Actuators[m.Cursor]
	a := m.Angles[act.Leg]
	if act.Axis == kinematics.AxisUpper {
		a.Upper = act.Actuator.Clamp(a.Upper + delta)
	} else {
		a.Lower = act.Actuator.Clamp(a.Lower + delta)
	}
	m.try(act.Leg, a)
}

// try solves with leg set to a. On success the pose is accepted; otherwise
// the previous inputs and pose are kept and Status explains the refusal.
func (m *PoseEditor) try(leg string, a kinematics.Angles) bool {
	if a == m.Angles[leg] {
		return true
	}
	next := make(map[string]kinematics.Angles, len(m.Angles))
	for k, v := range m.Angles {
		next[k] = v
	}
	next[leg] = a

	res, err := m.runner.Solve(m.ctx, pipeline.Options{Angles: next})
	if err != nil {
		m.Status = legerr.UserMessage(err)
		return false
	}
	if !res.OK() {
		var msgs []string
		for _, l := range res.Legs {
			if l.Error != "" {
				msgs = append(msgs, fmt.Sprintf("%s: %s", l.Name, l.Code))
			}
		}
		m.Status = "pose refused (" + strings.Join(msgs, ", ") + ")"
		return false
	}
	m.Angles, m.Pose, m.Status = next, res, ""
	return true
}

func (m *PoseEditor) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Pose Editor"))
	b.WriteString("\n")
	b.WriteString(editorDimStyle.Render(fmt.Sprintf("1-%d select  ←/→ ±1°  d commit  q quit", len(m.Actuators))))
	b.WriteString("\n\n")

	for i, act := range m.Actuators {
		a := m.Angles[act.Leg]
		v := a.Upper
		if act.Axis == kinematics.AxisLower {
			v = a.Lower
		}
		cursor := "  "
		style := editorNormalStyle
		if i == m.Cursor {
			cursor, style = "▸ ", editorSelectedStyle
		}
		line := fmt.Sprintf("%s%d  %-6s %-5s %6.1f°", cursor, i+1, act.Leg, act.Axis, v)
		b.WriteString(style.Render(line))
		b.WriteString(editorDimStyle.Render(fmt.Sprintf("  [%g°, %g°]", act.Actuator.MinDeg, act.Actuator.MaxDeg)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(poseTable(m.Pose))
	b.WriteString("\n")
	if m.Status != "" {
		b.WriteString(StyleWarning.Render(iconWarning + " " + m.Status))
		b.WriteString("\n")
	}
	return b.String()
}
