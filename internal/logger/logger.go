package logger

// The Warning & Error Sink (spec §4.8). Two channels: warnings are
// structured records routed to an onwarn handler; errors are fatal and
// abort the build. Diagnostics are streamed as they happen so a long
// build doesn't wait until the end to report the first problem.

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

type LogLevel int8

const (
	LevelNone LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelSilent
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
)

type Msg struct {
	Kind MsgKind
	ID   MsgID
	Text string

	// Set when the diagnostic originated inside a plugin hook (spec §4.1:
	// "Failures inside a hook surface as structured errors with `plugin`
	// field attached").
	PluginName string

	Location *MsgLocation
}

type MsgLocation struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Loc struct {
	// 0-based byte offset from the start of the file.
	Start int32
}

type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

// This type exists only so we can use Go's native sort function.
type msgsArray []Msg

func (a msgsArray) Len() int          { return len(a) }
func (a msgsArray) Swap(i int, j int) { a[i], a[j] = a[j], a[i] }

func (a msgsArray) Less(i int, j int) bool {
	ai := a[i]
	aj := a[j]

	li := ai.Location
	lj := aj.Location

	if li == nil && lj != nil {
		return true
	}
	if li != nil && lj == nil {
		return false
	}
	if li != nil && lj != nil {
		if li.File != lj.File {
			return li.File < lj.File
		}
		if li.Line != lj.Line {
			return li.Line < lj.Line
		}
		if li.Column != lj.Column {
			return li.Column < lj.Column
		}
	}
	if ai.Kind != aj.Kind {
		return ai.Kind < aj.Kind
	}
	return ai.Text < aj.Text
}

// Represents both real file system paths (Namespace == "file") and
// abstract module paths used for virtual modules and external ids.
type Path struct {
	Text      string
	Namespace string
}

func (a Path) ComesBeforeInSortedOrder(b Path) bool {
	return a.Namespace > b.Namespace || (a.Namespace == b.Namespace && a.Text < b.Text)
}

type Source struct {
	Index uint32

	// The resolved id used as the unique key in Graph.ModuleById.
	KeyPath Path

	// Relative, platform-independent path used only for diagnostics.
	PrettyPath string

	Contents string
}

func (s *Source) TextForRange(r Range) string {
	return s.Contents[r.Loc.Start : r.Loc.Start+r.Len]
}

func plural(prefix string, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, prefix)
	}
	return fmt.Sprintf("%d %ss", count, prefix)
}

func errorAndWarningSummary(errors int, warnings int) string {
	switch {
	case errors == 0:
		return plural("warning", warnings)
	case warnings == 0:
		return plural("error", errors)
	default:
		return fmt.Sprintf("%s and %s", plural("warning", warnings), plural("error", errors))
	}
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type StderrOptions struct {
	IncludeSource bool
	ErrorLimit    int
	Color         StderrColor
	LogLevel      LogLevel

	// TerminalWidth is populated by NewStderrLog from the real terminal,
	// where a platform probe exists; zero means don't truncate source lines.
	TerminalWidth int
}

func withColorOverride(opts StderrOptions, body func()) {
	prior := color.NoColor
	switch opts.Color {
	case ColorNever:
		color.NoColor = true
	case ColorAlways:
		color.NoColor = false
	}
	defer func() { color.NoColor = prior }()
	body()
}

// String renders "(plugin) file (L:C) message" per spec §4.8, coloring
// the "error"/"warning" tag the way esbuild colors its own diagnostics.
func (msg Msg) String(options StderrOptions) string {
	kind := "error"
	paint := color.New(color.FgRed, color.Bold)
	if msg.Kind == Warning {
		kind = "warning"
		paint = color.New(color.FgMagenta, color.Bold)
	}

	var b strings.Builder
	if msg.PluginName != "" {
		fmt.Fprintf(&b, "(%s) ", msg.PluginName)
	}
	if msg.Location != nil {
		fmt.Fprintf(&b, "%s ", msg.Location.File)
		if options.IncludeSource {
			fmt.Fprintf(&b, "(%d:%d) ", msg.Location.Line, msg.Location.Column)
		}
	}
	b.WriteString(paint.Sprint(kind))
	b.WriteString(": ")
	b.WriteString(msg.Text)
	b.WriteByte('\n')
	if options.IncludeSource && msg.Location != nil && msg.Location.LineText != "" {
		line := firstLine(msg.Location.LineText)
		if options.TerminalWidth > 0 {
			line = truncateToWidth(line, options.TerminalWidth-2)
		}
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.String()
}

func firstLine(text string) string {
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		return text[:i]
	}
	return text
}

func NewStderrLog(options StderrOptions) Log {
	var mutex sync.Mutex
	var msgs msgsArray
	seen := make(map[string]bool)
	errors := 0
	warnings := 0
	errorLimitWasHit := false

	if size := getTerminalSize(os.Stderr); size.Width > 0 {
		options.TerminalWidth = size.Width
	}

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			msgs = append(msgs, msg)

			if errorLimitWasHit {
				return
			}

			var rendered string
			withColorOverride(options, func() { rendered = msg.String(options) })
			alreadyPrinted := seen[rendered]
			seen[rendered] = true

			switch msg.Kind {
			case Error:
				errors++
				if options.LogLevel <= LevelError && !alreadyPrinted {
					os.Stderr.WriteString(rendered)
				}
			case Warning:
				warnings++
				if options.LogLevel <= LevelWarning && !alreadyPrinted {
					os.Stderr.WriteString(rendered)
				}
			}

			if options.ErrorLimit != 0 && errors >= options.ErrorLimit {
				errorLimitWasHit = true
				if options.LogLevel <= LevelError {
					fmt.Fprintf(os.Stderr, "%s reached (disable with an error limit of 0)\n", errorAndWarningSummary(errors, warnings))
				}
			}
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return errors > 0
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			if !errorLimitWasHit && options.LogLevel <= LevelInfo && (warnings != 0 || errors != 0) {
				fmt.Fprintf(os.Stderr, "%s\n", errorAndWarningSummary(errors, warnings))
			}
			sort.Stable(msgs)
			return msgs
		},
	}
}

// NewDeferLog collects diagnostics without printing them. Used by the
// graph core itself and by tests, which render or assert on Done()'s
// result rather than letting them hit the terminal directly.
func NewDeferLog() Log {
	var msgs msgsArray
	var mutex sync.Mutex
	var hasErrors bool

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			msgs = append(msgs, msg)
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			sort.Stable(msgs)
			return msgs
		},
	}
}

func locationOrNil(source *Source, r Range) *MsgLocation {
	if source == nil {
		return nil
	}
	line, column, lineStart, lineEnd := computeLineAndColumn(source.Contents, int(r.Loc.Start))
	return &MsgLocation{
		File:     source.PrettyPath,
		Line:     line + 1, // 0-based to 1-based
		Column:   column,
		Length:   int(r.Len),
		LineText: source.Contents[lineStart:lineEnd],
	}
}

func computeLineAndColumn(contents string, offset int) (lineCount int, columnCount int, lineStart int, lineEnd int) {
	var prevCodePoint rune
	if offset > len(contents) {
		offset = len(contents)
	}
	for i, codePoint := range contents[:offset] {
		switch codePoint {
		case '\n':
			lineStart = i + 1
			if prevCodePoint != '\r' {
				lineCount++
			}
		case '\r':
			lineStart = i + 1
			lineCount++
		}
		prevCodePoint = codePoint
	}
	lineEnd = len(contents)
loop:
	for i, codePoint := range contents[offset:] {
		switch codePoint {
		case '\r', '\n':
			lineEnd = offset + i
			break loop
		}
	}
	columnCount = offset - lineStart
	return
}

func (log Log) AddError(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{Kind: Error, Text: text, Location: locationOrNil(source, Range{Loc: loc})})
}

func (log Log) AddErrorWithID(source *Source, loc Loc, id MsgID, text string) {
	log.AddMsg(Msg{Kind: Error, ID: id, Text: text, Location: locationOrNil(source, Range{Loc: loc})})
}

func (log Log) AddWarning(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{Kind: Warning, Text: text, Location: locationOrNil(source, Range{Loc: loc})})
}

func (log Log) AddWarningWithID(source *Source, loc Loc, id MsgID, text string) {
	log.AddMsg(Msg{Kind: Warning, ID: id, Text: text, Location: locationOrNil(source, Range{Loc: loc})})
}

func (log Log) AddPluginError(pluginName string, text string) {
	log.AddMsg(Msg{Kind: Error, PluginName: pluginName, Text: text})
}
