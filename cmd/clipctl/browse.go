package main

import (
	"clipboard-sync/internal/session"
	"clipboard-sync/pkg/types"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
)

func browseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactive history browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				im, err := NewInteractiveMode(sess)
				if err != nil {
					return err
				}
				return im.Run(ctx)
			})
		},
	}
}

// stateChanged wakes the event loop after the session recomputed.
type stateChanged struct {
	tcell.EventTime
}

type InteractiveMode struct {
	sess       *session.Session
	screen     tcell.Screen
	rows       []types.Clip
	selected   int
	offset     int
	searchMode bool
	searchText string
}

func NewInteractiveMode(sess *session.Session) (*InteractiveMode, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}

	// Set default style
	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset))

	return &InteractiveMode{sess: sess, screen: screen}, nil
}

func (im *InteractiveMode) Run(ctx context.Context) error {
	defer im.screen.Fini()

	// Watchers run on the session's goroutines; only wake the loop from there
	unwatch := im.sess.Watch(func(session.State) {
		ev := &stateChanged{}
		ev.SetEventNow()
		im.screen.PostEvent(ev)
	})
	defer unwatch()

	for {
		im.draw()

		switch ev := im.screen.PollEvent().(type) {
		case nil:
			return nil
		case *stateChanged:
			// Redraw from the latest state
		case *tcell.EventResize:
			im.screen.Sync()
		case *tcell.EventKey:
			if im.searchMode {
				im.handleSearchKey(ev)
				continue
			}

			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return nil
			case tcell.KeyUp, tcell.KeyCtrlP:
				im.moveSelection(-1)
			case tcell.KeyDown, tcell.KeyCtrlN:
				im.moveSelection(1)
			case tcell.KeyHome, tcell.KeyCtrlA:
				im.selected = 0
			case tcell.KeyEnd, tcell.KeyCtrlE:
				im.selected = len(im.rows) - 1
			case tcell.KeyPgUp:
				im.moveSelection(-10)
			case tcell.KeyPgDn:
				im.moveSelection(10)
			case tcell.KeyEnter:
				if clip, ok := im.current(); ok {
					im.screen.Fini()
					return copyClip(ctx, im.sess, clip.ID)
				}
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'j':
					im.moveSelection(1)
				case 'k':
					im.moveSelection(-1)
				case 'g':
					im.selected = 0
				case 'G':
					im.selected = len(im.rows) - 1
				case '/':
					im.searchMode = true
					im.searchText = im.sess.State().Query
				case 'p':
					if clip, ok := im.current(); ok {
						im.command(func() error { return im.sess.TogglePin(ctx, clip.ID, !clip.IsPinned) })
					}
				case 'd':
					if clip, ok := im.current(); ok {
						im.command(func() error { return im.sess.Delete(ctx, clip.ID) })
					}
				case 'c':
					im.command(func() error {
						_, err := im.sess.CaptureCurrent(ctx)
						return err
					})
				case 'r':
					im.command(func() error {
						_, err := im.sess.LoadRecent(ctx, 0)
						return err
					})
				case 'q':
					return nil
				}
			}
		}
	}
}

// handleSearchKey edits the query; the list filters as you type.
func (im *InteractiveMode) handleSearchKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		im.searchMode = false
		im.searchText = ""
	case tcell.KeyEnter:
		im.searchMode = false
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(im.searchText); len(r) > 0 {
			im.searchText = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		im.searchText += string(ev.Rune())
	default:
		return
	}
	im.sess.SetQuery(im.searchText)
	im.selected, im.offset = 0, 0
}

// command runs a session command off the UI goroutine. Failures surface
// through the session's LastError.
func (im *InteractiveMode) command(fn func() error) {
	go func() {
		if err := fn(); err != nil {
			slog.Debug("browse command failed", "error", err)
		}
	}()
}

func (im *InteractiveMode) current() (types.Clip, bool) {
	if im.selected < 0 || im.selected >= len(im.rows) {
		return types.Clip{}, false
	}
	return im.rows[im.selected], true
}

func (im *InteractiveMode) moveSelection(delta int) {
	im.selected += delta
	if im.selected >= len(im.rows) {
		im.selected = len(im.rows) - 1
	}
	if im.selected < 0 {
		im.selected = 0
	}

	// Adjust offset for scrolling
	_, height := im.screen.Size()
	visibleHeight := height - 5 // Account for header and footer

	if im.selected-im.offset >= visibleHeight {
		im.offset = im.selected - visibleHeight + 1
	} else if im.selected < im.offset {
		im.offset = im.selected
	}
}

func (im *InteractiveMode) draw() {
	st := im.sess.State()
	im.rows = append(append(im.rows[:0], st.Pinned...), st.Recent...)
	if im.selected >= len(im.rows) {
		im.selected = max(len(im.rows)-1, 0)
	}
	if im.offset > im.selected {
		im.offset = im.selected
	}

	im.screen.Clear()
	width, height := im.screen.Size()

	// Draw header
	headerStyle := tcell.StyleDefault.Reverse(true)
	header := " Clipboard History "
	if st.IsLoading {
		header = " Clipboard History (working...) "
	}
	drawStringCenter(im.screen, 0, header, headerStyle)

	// Draw help text
	helpStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	help := "↑/k ↓/j:Move  Enter:Copy  p:Pin  d:Delete  c:Capture  r:Reload  /:Search  q:Quit"
	drawStringCenter(im.screen, 1, help, helpStyle)

	// Draw search bar, or the active filter
	switch {
	case im.searchMode:
		drawString(im.screen, 0, 2, fmt.Sprintf(" Search: %s█", im.searchText), tcell.StyleDefault.Reverse(true))
	case st.NoResults:
		drawString(im.screen, 0, 2, fmt.Sprintf(" No matches for %q, showing everything", st.Query),
			tcell.StyleDefault.Foreground(tcell.ColorYellow))
	case st.Query != "":
		drawString(im.screen, 0, 2, fmt.Sprintf(" Filter: %s", st.Query), tcell.StyleDefault.Bold(true))
	default:
		drawString(im.screen, 0, 2, strings.Repeat("─", width), tcell.StyleDefault)
	}

	// Draw rows
	visibleHeight := height - 5
	endIdx := max(min(im.offset+visibleHeight, len(im.rows)), im.offset)

	for i, clip := range im.rows[im.offset:endIdx] {
		y := i + 3
		style := tcell.StyleDefault
		if clip.IsPinned {
			style = style.Foreground(tcell.ColorFuchsia)
		}
		if i+im.offset == im.selected {
			style = style.Reverse(true)
		}

		marker := " "
		if clip.IsPinned {
			marker = "*"
		}
		line := fmt.Sprintf(" %s%-5d  %s", marker, clip.ID, preview(clip, max(width-12, 10)))
		drawString(im.screen, 0, y, line, style)
	}

	// Draw footer
	if st.LastError != "" {
		drawString(im.screen, 0, height-1, " "+st.LastError, tcell.StyleDefault.Foreground(tcell.ColorRed))
	}
	if len(im.rows) > 0 {
		status := fmt.Sprintf(" %d/%d ", im.selected+1, len(im.rows))
		drawString(im.screen, width-len(status), height-1, status, tcell.StyleDefault)
	}

	im.screen.Show()
}

func drawString(s tcell.Screen, x, y int, str string, style tcell.Style) {
	for _, r := range str {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func drawStringCenter(s tcell.Screen, y int, str string, style tcell.Style) {
	w, _ := s.Size()
	x := (w - len([]rune(str))) / 2
	if x < 0 {
		x = 0
	}
	drawString(s, x, y, str, style)
}
