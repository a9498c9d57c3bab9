package ui

import (
	"fmt"
	"mini-ttt/game"
	"mini-ttt/message"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#4204b5ff", Dark: "#a77bf3ff"}).Render
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#414141ff", Dark: "#8f8f8fff"}).Render
	xStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#007e50ff", Dark: "#6afd76ff"}).Render
	oStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0003adff", Dark: "#5f61fcff"}).Render
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#960000ff", Dark: "#fc7e7eff"}).Render
	bracketStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#414141ff", Dark: "#8f8f8fff"}).Render
	statusStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#bb0000ff", Dark: "#f18787ff"}).Render
)

const title = "T * I * C * T * A * C * T * O * E"

// Header is the banner shown above the board.
func Header(clientMark message.Mark) string {
	return titleStyle(title) + "\n" +
		helpStyle("Arrow keys (or hjkl) to move, space or enter to play.") + "\n" +
		helpStyle(fmt.Sprintf("You are %s. Press q anytime to quit.", clientMark)) + "\n\n"
}

func markCell(mark message.Mark) string {
	switch mark {
	case message.MarkX:
		return xStyle("X")
	case message.MarkO:
		return oStyle("O")
	default:
		return " "
	}
}

// renderBoard draws b with the cursor on (row, col); a negative row hides it.
func renderBoard(b game.Board, row, col int32) string {
	var sb strings.Builder
	for i := int32(0); i < game.BoardSize; i++ {
		for j := int32(0); j < game.BoardSize; j++ {
			cell := markCell(b.At(i, j))
			if i == row && j == col {
				if b.At(i, j) == message.MarkEmpty {
					cell = cursorStyle("*")
				}
				sb.WriteString(cursorStyle("[") + cell + cursorStyle("]"))
				continue
			}
			sb.WriteString(bracketStyle("[") + cell + bracketStyle("]"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Cursor is the highlighted cell.
type Cursor struct {
	Row, Col int32
}

// Render draws the board followed by a status line, highlighting the cursor cell
// when one is given.
func Render(b game.Board, statusMessage string, cursor ...Cursor) string {
	row, col := int32(-1), int32(-1)
	if len(cursor) > 0 {
		row, col = cursor[0].Row, cursor[0].Col
	}
	s := renderBoard(b, row, col)
	if statusMessage != "" {
		s += "\n" + statusStyle(statusMessage) + "\n"
	}
	return s
}
