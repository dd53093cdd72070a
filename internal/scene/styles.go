// Package scene procedurally renders the animated desk scene: a
// character typing at a monitor, with decorations and particle
// effects reacting to the event stream.
package scene

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/agentcam/internal/event"
)

// Layer identifies which style a cell is drawn with.
type layer uint8

const (
	layerNone layer = iota
	layerWall
	layerWindow
	layerDesk
	layerCharacter
	layerMonitorFrame
	layerMonitorText
	layerDecoration
	layerParticle
	layerEmote
)

// Scene color scheme - one distinct, consistent style per layer.
var (
	wallStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - wall texture

	windowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")) // Blue - night sky

	deskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("130")) // Brown - desk wood

	characterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")) // White

	monitorFrameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("7")) // Light gray bezel

	decorationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green - plant and friends

	particleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // Yellow

	emoteStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11")) // Yellow bold
)

// monitorTextStyles colors monitor content by the event type that
// produced it.
var monitorTextStyles = map[event.Type]lipgloss.Style{
	event.TypeBash:       lipgloss.NewStyle().Foreground(lipgloss.Color("208")), // Orange
	event.TypeError:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")),   // Red
	event.TypeThink:      lipgloss.NewStyle().Foreground(lipgloss.Color("13")),  // Magenta
	event.TypeComplete:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),  // Green
	event.TypeFileCreate: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),  // Cyan
	event.TypeFileUpdate: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),  // Cyan
	event.TypeWebSearch:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),  // Blue
}

var monitorTextDefault = lipgloss.NewStyle().
	Foreground(lipgloss.Color("15")) // White

func styleFor(l layer, source event.Type) lipgloss.Style {
	switch l {
	case layerWall:
		return wallStyle
	case layerWindow:
		return windowStyle
	case layerDesk:
		return deskStyle
	case layerCharacter:
		return characterStyle
	case layerMonitorFrame:
		return monitorFrameStyle
	case layerMonitorText:
		if s, ok := monitorTextStyles[source]; ok {
			return s
		}
		return monitorTextDefault
	case layerDecoration:
		return decorationStyle
	case layerParticle:
		return particleStyle
	case layerEmote:
		return emoteStyle
	}
	return monitorTextDefault
}
