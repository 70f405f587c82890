package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomz197/arcade/internal/draw"
	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/protocol"
)

// Figlet "small" font.
var titleArt = []string{
	`   _   ___  ___   _   ___  ___ `,
	`  /_\ | _ \/ __| /_\ |   \| __|`,
	` / _ \|   / (__ / _ \| |) | _| `,
	`/_/ \_\_|_\\___/_/ \_\___/|___|`,
}

var gameBlurbs = map[object.Type]string{
	object.TypePong:   "Keep the ball out of your goal",
	object.TypeRunner: "Dodge the swinging hazard, ride the platforms",
	object.TypeVolley: "Land the ball on the other side of the net",
}

// drawFrame draws the current frame.
func (c *Client) drawFrame() error {
	// On screen or inactivity transitions, do a full terminal clear
	// so UI elements from the previous screen don't persist.
	screenChanged := c.state.Screen != c.state.prevScreen
	inactiveChanged := c.state.isInactive != c.state.wasInactive
	if screenChanged || inactiveChanged {
		c.chunkWriter.ClearScreen()
		c.canvas.ForceRedraw()
		c.state.prevScreen = c.state.Screen
		c.state.wasInactive = c.state.isInactive
	}

	c.canvas.Clear()
	if c.state.arena != nil && (c.state.Screen == ScreenPlaying || c.state.Screen == ScreenOver) {
		c.drawArena()
	}
	c.canvas.Render(c.chunkWriter)
	c.canvas.RenderBorder(c.chunkWriter)

	c.drawUI()

	return c.chunkWriter.Flush()
}

// drawArena fills the hitboxes of every entity of the local arena. The
// hazard is drawn as its tether line and head.
func (c *Client) drawArena() {
	sx := float64(config.ViewWidth) / object.FieldWidth
	sy := float64(config.ViewHeight) / object.FieldHeight
	blinkOff := time.Now().UnixMilli()/200%2 == 1
	for _, obj := range c.state.arena.World().Objects {
		if obj.State().Has(protocol.FlagServing) && blinkOff {
			continue
		}
		if h, ok := obj.(*object.Hazard); ok {
			c.canvas.DrawLine(
				draw.Point{X: h.PivotX * sx, Y: h.PivotY * sy},
				draw.Point{X: h.CenterX() * sx, Y: h.CenterY() * sy},
			)
			r := h.Rect()
			c.canvas.FillRect(r.X*sx, r.Y*sy, r.W*sx, r.H*sy)
			continue
		}
		for _, r := range obj.Hitboxes() {
			c.canvas.FillRect(r.X*sx, r.Y*sy, r.W*sx, r.H*sy)
		}
	}
}

// writeCentered writes s centered on the render area and marks the cells so
// the canvas repaints them once the text is gone.
func (c *Client) writeCentered(row int, s string) {
	col, width := c.chunkWriter.WriteCentered(c.canvas.TerminalWidth()/2, row, s)
	c.canvas.MarkTextDirty(col, row, width)
}

func (c *Client) writeAt(col, row int, s string, width int) {
	c.chunkWriter.WriteAt(col, row, s)
	c.canvas.MarkTextDirty(col, row, width)
}

func (c *Client) writeBlock(row int, block string) int {
	lines := draw.Lines(block)
	for i, line := range lines {
		c.writeCentered(row+i, line)
	}
	return len(lines)
}

// drawUI draws the text overlay of the current screen.
func (c *Client) drawUI() {
	termWidth := c.canvas.TerminalWidth()
	termHeight := c.canvas.TerminalHeight()
	centerY := termHeight / 2

	if c.state.Screen == ScreenShutdown {
		c.drawShutdownScreen(centerY)
		return
	}

	if c.state.isInactive {
		c.drawInactivityScreen(centerY)
		return
	}

	switch c.state.Screen {
	case ScreenMenu:
		c.drawMenuScreen(centerY)
	case ScreenName:
		c.drawNameScreen(centerY)
	case ScreenQueue:
		c.drawQueueScreen(centerY)
	case ScreenWaiting:
		c.drawWaitingScreen(centerY)
	case ScreenPrompt:
		c.drawPromptScreen(centerY)
	case ScreenPlaying:
		c.drawPlayingHUD(termWidth)
	case ScreenOver:
		c.drawPlayingHUD(termWidth)
		c.drawOverScreen(centerY)
	}

	c.drawStatus(termHeight)
}

// drawStatus shows the latest notice on the bottom row. The row is padded so
// a shorter message overwrites a longer one.
func (c *Client) drawStatus(termHeight int) {
	if c.state.status == "" {
		return
	}
	msg := c.state.status
	if c.state.statusErr {
		msg = c.styles.Error.Render(msg)
	} else {
		msg = c.styles.Muted.Render(msg)
	}
	c.writeCentered(termHeight, msg)
}

// drawMenuScreen draws the title, the game selection and the options.
func (c *Client) drawMenuScreen(centerY int) {
	s := c.state
	row := max(centerY-10, 1)
	for i, line := range titleArt {
		c.writeCentered(row+i, c.styles.Title.Render(line))
	}
	row += len(titleArt) + 1

	subtitle := "~ Terminal duels over SSH ~"
	if c.hotSeat != nil {
		subtitle = "~ Terminal duels, two players one keyboard ~"
	}
	c.writeCentered(row, c.styles.Muted.Render(subtitle))
	row += 2

	items := []string{
		fmt.Sprintf("Game    < %-7s >", s.GameType()),
		fmt.Sprintf("Length  < %-7s >", lengthChoices[s.length]),
		fmt.Sprintf("Size    < %-7s >", sizeChoices[s.size]),
		fmt.Sprintf("Speed   < %-7s >", speedChoices[s.speed]),
	}
	if c.hotSeat != nil {
		items = append(items, fmt.Sprintf("%-19s", "Play"))
	} else {
		items = append(items, fmt.Sprintf("%-19s", "Find an opponent"), fmt.Sprintf("%-19s", "Challenge a player"))
	}
	for i := range items {
		if menuItem(i) == s.cursor {
			items[i] = c.styles.Selected.Render(items[i])
		}
	}
	row += c.writeBlock(row, c.styles.Panel.Render(strings.Join(items, "\n")))

	c.writeCentered(row+1, gameBlurbs[s.GameType()])

	hints := "W S / arrows  select    A D  change    ENTER  confirm    Q  quit"
	c.writeCentered(row+3, c.styles.Muted.Render(hints))
	if c.hotSeat != nil {
		c.writeCentered(row+4, c.styles.Muted.Render("Left seat: W A S D + SPACE    Right seat: I J K L / arrows + ENTER"))
	}
}

// drawNameScreen draws the opponent name entry.
func (c *Client) drawNameScreen(centerY int) {
	c.writeCentered(centerY-3, c.styles.Title.Render("CHALLENGE A PLAYER"))
	c.writeCentered(centerY-1, fmt.Sprintf("%s with %s options", c.state.GameType(), c.state.Options().Length))

	field := fmt.Sprintf("Name: %-*s", config.MaxUsernameLength, string(c.state.name)+"_")
	c.writeCentered(centerY+1, c.styles.Panel.Render(field))

	c.writeCentered(centerY+5, c.styles.Muted.Render("ENTER  send    ESC  back"))
}

// drawQueueScreen draws the matchmaking wait.
func (c *Client) drawQueueScreen(centerY int) {
	dots := strings.Repeat(".", int(time.Now().UnixMilli()/500%4))
	c.writeCentered(centerY-1, fmt.Sprintf("Looking for a %s opponent%-3s", c.state.GameType(), dots))
	c.writeCentered(centerY+1, c.styles.Muted.Render("ESC  leave the queue"))
}

// drawWaitingScreen draws the wait for the other side of a challenge or match.
func (c *Client) drawWaitingScreen(centerY int) {
	p := c.state.prompt
	msg := "Waiting for the opponent..."
	switch {
	case p.Type == protocol.EventChallengeIssued && p.From == c.conn.User():
		msg = fmt.Sprintf("Waiting for %s to answer...", opponent(p.Players, c.conn.User()))
	case p.Type != "":
		msg = fmt.Sprintf("Waiting for %s to accept...", opponent(p.Players, c.conn.User()))
	}
	c.writeCentered(centerY-1, msg)
	c.writeCentered(centerY+1, c.styles.Muted.Render("ESC  withdraw"))
}

// drawPromptScreen draws an incoming challenge or a found match.
func (c *Client) drawPromptScreen(centerY int) {
	p := c.state.prompt
	var title, msg string
	if p.Type == protocol.EventMatchFound {
		title = "MATCH FOUND"
		msg = fmt.Sprintf("%s against %s", p.Game, opponent(p.Players, c.conn.User()))
	} else {
		title = "CHALLENGE"
		msg = fmt.Sprintf("%s challenges you to %s", p.From, p.Game)
	}
	c.writeCentered(centerY-3, c.styles.Title.Render(title))
	c.writeCentered(centerY-1, msg)
	if time.Now().UnixMilli()/600%2 == 0 {
		c.writeCentered(centerY+1, c.styles.Accent.Render(">>  Y accept    N decline  <<"))
	} else {
		c.writeCentered(centerY+1, strings.Repeat(" ", 30))
	}
}

// drawPlayingHUD draws the score line. Fields are padded so shrinking values
// don't leave residual characters on screen.
func (c *Client) drawPlayingHUD(termWidth int) {
	s := c.state
	scores := map[string]int{}
	if s.last != nil {
		scores = s.last.Scores
	}
	me := c.conn.User()
	left := fmt.Sprintf("%-*s %3d", config.MaxUsernameLength, s.players[0], scores[s.players[0]])
	right := fmt.Sprintf("%-3d %*s", scores[s.players[1]], config.MaxUsernameLength, s.players[1])
	leftWidth, rightWidth := len(left), len(right)
	if s.players[0] == me && c.hotSeat == nil {
		left = c.styles.Accent.Render(left)
	}
	if s.players[1] == me && c.hotSeat == nil {
		right = c.styles.Accent.Render(right)
	}
	c.writeAt(2, 1, left, leftWidth)
	c.writeCentered(1, ":")
	c.writeAt(termWidth-rightWidth, 1, right, rightWidth)

	if s.last != nil && s.last.Fault {
		c.writeCentered(2, c.styles.Error.Render("simulation fault"))
	}
}

// drawOverScreen draws the final result over the last frame of the arena.
func (c *Client) drawOverScreen(centerY int) {
	ev := c.state.over
	me := c.conn.User()
	var title string
	switch {
	case ev.Winner == "":
		title = "GAME ABORTED"
	case c.hotSeat != nil:
		title = strings.ToUpper(ev.Winner) + " WINS"
	case ev.Winner == me:
		title = "YOU WIN"
	default:
		title = "YOU LOSE"
	}
	c.writeCentered(centerY-2, c.styles.Title.Render(title))

	detail := fmt.Sprintf("%s %d : %d %s", ev.Players[0], ev.Scores[ev.Players[0]], ev.Scores[ev.Players[1]], ev.Players[1])
	if ev.Ragequit {
		detail += "  (opponent left)"
	}
	c.writeCentered(centerY, detail)

	remaining := int((config.GameOverLinger - time.Since(c.state.overAt)).Seconds()) + 1
	c.writeCentered(centerY+2, c.styles.Muted.Render(fmt.Sprintf("ENTER  menu (%d)", max(remaining, 0))))
}

// drawInactivityScreen draws the inactivity warning screen.
func (c *Client) drawInactivityScreen(centerY int) {
	c.writeCentered(centerY-2, c.styles.Error.Render("INACTIVITY WARNING"))

	msg := fmt.Sprintf(
		"You have been inactive for too long. You will be disconnected in %d seconds.",
		int(config.InactivityDisconnectUser-time.Since(c.lastInput).Seconds()),
	)
	c.writeCentered(centerY, msg)
	c.writeCentered(centerY+2, "Press any key to continue")
}

// drawShutdownScreen draws the server shutdown notification screen.
func (c *Client) drawShutdownScreen(centerY int) {
	c.writeCentered(centerY-3, c.styles.Error.Render("SERVER SHUTTING DOWN"))
	c.writeCentered(centerY-1, "The server is restarting for maintenance.")
	c.writeCentered(centerY, "Please reconnect in a moment.")

	remaining := int(c.state.shutdownTimer) + 1
	c.writeCentered(centerY+2, fmt.Sprintf("Disconnecting in %d seconds...", remaining))
	c.writeCentered(centerY+4, c.styles.Muted.Render("Press Q to disconnect now"))
}

func opponent(players [2]string, me string) string {
	if players[0] == me {
		return players[1]
	}
	return players[0]
}
