package cli

import (
	"context"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/pipeline"
)

func newEditor(t *testing.T) *PoseEditor {
	t.Helper()
	m, err := NewPoseEditor(context.Background(), pipeline.NewRunner(nil, nil, nil, newLogger(io.Discard, LogInfo)))
	require.NoError(t, err)
	return m
}

func press(m *PoseEditor, keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(k)
	}
	return cmd
}

var (
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
)

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestPoseEditorSelectsActuators(t *testing.T) {
	m := newEditor(t)
	require.Len(t, m.Actuators, 4)
	assert.Equal(t, "rear", m.Actuators[0].Leg)
	assert.Equal(t, kinematics.AxisLower, m.Actuators[1].Axis)

	press(m, runes("3"))
	assert.Equal(t, 2, m.Cursor)
	press(m, runes("9"))
	assert.Equal(t, 2, m.Cursor, "out-of-range selection ignored")
}

func TestPoseEditorStepsAndClamps(t *testing.T) {
	m := newEditor(t)
	press(m, runes("3"), keyRight, keyRight, keyRight)
	assert.Equal(t, kinematics.Angles{Upper: 3}, m.Angles["front"])
	assert.Empty(t, m.Status)
	front, ok := m.Pose.Leg("front")
	require.True(t, ok)
	assert.Equal(t, 3.0, front.Angles.Upper)

	press(m, runes("2"), keyLeft)
	act := m.Actuators[1].Actuator
	assert.Equal(t, act.Clamp(-1), m.Angles["rear"].Lower)

	for range 100 {
		press(m, keyRight)
	}
	assert.Greater(t, m.Angles["rear"].Lower, 0.0)
	assert.LessOrEqual(t, m.Angles["rear"].Lower, act.MaxDeg)
}

func TestPoseEditorFreezesLastValidPose(t *testing.T) {
	m := newEditor(t)
	before := m.Pose

	ok := m.try("front", kinematics.Angles{Upper: 200})
	assert.False(t, ok)
	assert.Contains(t, m.Status, "front: UNREACHABLE")
	assert.Equal(t, kinematics.Angles{}, m.Angles["front"])
	assert.Same(t, before, m.Pose)
	assert.Contains(t, m.View(), "pose refused")

	press(m, runes("3"), keyRight)
	assert.Empty(t, m.Status)
}

func TestPoseEditorCommitAndQuit(t *testing.T) {
	m := newEditor(t)
	press(m, runes("1"), keyRight)
	cmd := press(m, runes("d"))
	require.NotNil(t, m.Committed)
	assert.Len(t, m.Committed.Spec.Links, 12)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	m = newEditor(t)
	cmd = press(m, runes("q"))
	assert.Nil(t, m.Committed)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestPoseEditorView(t *testing.T) {
	m := newEditor(t)
	view := m.View()
	assert.Contains(t, view, "Pose Editor")
	assert.Contains(t, view, "1-4 select")
	assert.Contains(t, view, "▸ 1  rear")
	assert.Contains(t, view, kinematics.Foot)
}
