package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"go.ember.dev/pkg"
)

var (
	WarnColorFG  = pterm.FgYellow
	WarnStyleBG  = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG = pterm.FgRed
	ErrorStyleBG = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG  = pterm.FgLightGreen
	InfoStyleBG  = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	DebugColorFG = pterm.FgGray
)

type LogLevel int

// Enumeration of the log levels, each showing everything the previous one does
const (
	LogLevelSilent  LogLevel = iota // nothing at all
	LogLevelError                   // errors and the closing summary
	LogLevelWarning                 // errors, warnings and the closing summary
	LogLevelVerbose                 // also informational messages (default)
	LogLevelDebug                   // also compiler progress
)

func ParseLogLevel(name string) (LogLevel, error) {
	switch name {
	case "silent":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "warning", "warn":
		return LogLevelWarning, nil
	case "", "verbose":
		return LogLevelVerbose, nil
	case "debug":
		return LogLevelDebug, nil
	}

	return LogLevelVerbose, fmt.Errorf("unknown log level %q", name)
}

func levelOf(sev ember.Severity) LogLevel {
	switch sev {
	case ember.SeverityDebug:
		return LogLevelDebug
	case ember.SeverityInfo:
		return LogLevelVerbose
	case ember.SeverityWarning:
		return LogLevelWarning
	}

	return LogLevelError
}

// Reporter renders diagnostics for a terminal. It implements ember.Logger
// and may be shared by units compiled concurrently.
type Reporter struct {
	m sync.Mutex

	out   io.Writer
	level LogLevel
	color bool

	sources  map[string][]string
	errors   int
	warnings int
}

func NewReporter(out io.Writer, level LogLevel, color bool) *Reporter {
	return &Reporter{
		out:     out,
		level:   level,
		color:   color,
		sources: make(map[string][]string),
	}
}

// AddSource registers the text of a unit so that its diagnostics can show
// the offending line.
func (r *Reporter) AddSource(path, source string) {
	r.m.Lock()
	defer r.m.Unlock()

	r.sources[path] = strings.Split(source, "\n")
}

func (r *Reporter) Log(d ember.Diagnostic) {
	r.m.Lock()
	defer r.m.Unlock()

	switch d.Severity {
	case ember.SeverityError, ember.SeverityFatal:
		r.errors++
	case ember.SeverityWarning:
		r.warnings++
	}

	if r.level < levelOf(d.Severity) {
		return
	}

	r.banner(d)
	if d.Loc != nil {
		r.codeSelection(d.Path, *d.Loc)
	}
}

func (r *Reporter) Counts() (errors, warnings int) {
	r.m.Lock()
	defer r.m.Unlock()

	return r.errors, r.warnings
}

// Error prints an error that does not belong to a compilation unit, such as a
// configuration or backend failure.
func (r *Reporter) Error(tag string, err error) {
	r.m.Lock()
	defer r.m.Unlock()

	r.errors++
	if r.level < LogLevelError {
		return
	}

	fmt.Fprintln(r.out, r.style(ErrorStyleBG, tag)+" "+r.paint(ErrorColorFG, err.Error()))
}

// Summary prints the closing line of a build.
func (r *Reporter) Summary(success bool) {
	r.m.Lock()
	defer r.m.Unlock()

	if r.level < LogLevelError {
		return
	}

	head := r.paint(ErrorColorFG, "Oh no!")
	if success {
		head = r.paint(InfoColorFG, "All done!")
	}

	fmt.Fprintf(r.out, "%s (%s, %s)\n", head,
		r.count(r.errors, "error", ErrorColorFG),
		r.count(r.warnings, "warning", WarnColorFG))
}

func (r *Reporter) count(n int, noun string, color pterm.Color) string {
	if n != 1 {
		noun += "s"
	}

	if n == 0 {
		color = InfoColorFG
	}

	return r.paint(color, strconv.Itoa(n)) + " " + noun
}

func (r *Reporter) banner(d ember.Diagnostic) {
	var tag string
	var fg pterm.Color
	switch d.Severity {
	case ember.SeverityFatal:
		tag, fg = r.style(ErrorStyleBG, "fatal"), ErrorColorFG
	case ember.SeverityError:
		tag, fg = r.style(ErrorStyleBG, "error"), ErrorColorFG
	case ember.SeverityWarning:
		tag, fg = r.style(WarnStyleBG, "warning"), WarnColorFG
	case ember.SeverityInfo:
		tag, fg = r.style(InfoStyleBG, "info"), InfoColorFG
	default:
		tag, fg = "debug", DebugColorFG
	}

	pos := d.Path
	if d.Loc != nil {
		pos += ":" + d.Loc.String()
	}

	fmt.Fprintf(r.out, "%s: %s %s\n", pos, tag, r.paint(fg, d.Message))
}

// codeSelection prints the source line of a location with a caret under the
// column.
func (r *Reporter) codeSelection(path string, loc ember.Location) {
	lines, ok := r.sources[path]
	if !ok || loc.Line < 1 || loc.Line > len(lines) {
		return
	}

	line := strings.TrimRight(lines[loc.Line-1], "\r")
	prefix := []rune(line)
	if col := loc.Column - 1; col >= 0 && col < len(prefix) {
		prefix = prefix[:col]
	}

	indent := strings.Repeat(" ", len([]rune(strings.ReplaceAll(string(prefix), "\t", "    "))))
	number := strconv.Itoa(loc.Line)
	gutter := strings.Repeat(" ", len(number))

	fmt.Fprintf(r.out, "%s |  %s\n", r.paint(InfoColorFG, number), strings.ReplaceAll(line, "\t", "    "))
	fmt.Fprintf(r.out, "%s |  %s%s\n", gutter, indent, r.paint(ErrorColorFG, "^"))
}

func (r *Reporter) paint(c pterm.Color, s string) string {
	if !r.color {
		return s
	}

	return c.Sprint(s)
}

func (r *Reporter) style(s *pterm.Style, text string) string {
	if !r.color {
		return text
	}

	return s.Sprint(text)
}
