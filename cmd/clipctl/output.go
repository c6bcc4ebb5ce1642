package main

import (
	"clipboard-sync/internal/session"
	"clipboard-sync/pkg/types"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
)

const maxPreviewLength = 60

var (
	pinColor    = color.New(color.FgHiMagenta)
	tagColor    = color.New(color.FgCyan)
	warnColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
	headerColor = color.New(color.Bold)
)

// preview returns a single-line preview of a clip
func preview(clip types.Clip, max int) string {
	text := strings.Join(strings.Fields(clip.Content), " ")
	if utf8.RuneCountInString(text) > max {
		runes := []rune(text)
		text = string(runes[:max-3]) + "..."
	}
	return text
}

// printState writes the pinned and recent lists the way list and search show
// them.
func printState(out io.Writer, st session.State) {
	if st.NoResults {
		warnColor.Fprintf(out, "No clips match %q, showing full history\n", st.Query)
	}
	if st.LastError != "" {
		errorColor.Fprintln(out, st.LastError)
	}

	if len(st.Pinned) == 0 && len(st.Recent) == 0 {
		fmt.Fprintln(out, "No clips")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, headerColor.Sprint("ID")+"\t"+headerColor.Sprint("Changed")+"\t"+headerColor.Sprint("Preview")+"\t"+headerColor.Sprint("Tags"))
	for _, clip := range st.Pinned {
		printRow(w, clip)
	}
	for _, clip := range st.Recent {
		printRow(w, clip)
	}
	w.Flush()
}

func printRow(w io.Writer, clip types.Clip) {
	id := fmt.Sprint(clip.ID)
	if clip.IsPinned {
		id = pinColor.Sprintf("%d*", clip.ID)
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		id,
		clip.ChangedAt().Local().Format(time.DateTime),
		preview(clip, maxPreviewLength),
		tagColor.Sprint(clip.AutoTags),
	)
}

// summary is the one-line form used by watch
func summary(st session.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d pinned=%d recent=%d", st.Version, len(st.Pinned), len(st.Recent))
	if st.Query != "" {
		fmt.Fprintf(&b, " query=%q", st.Query)
	}
	if st.NoResults {
		b.WriteString(" " + warnColor.Sprint("no-results"))
	}
	if st.IsLoading {
		b.WriteString(" loading")
	}
	if st.LastError != "" {
		b.WriteString(" " + errorColor.Sprint("error="+st.LastError))
	}
	return b.String()
}
