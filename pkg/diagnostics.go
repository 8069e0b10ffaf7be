package ember

import (
	"errors"
	"fmt"
	"strings"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "fatal"
	}
}

// Diagnostic is a single message about a compilation unit. Loc is nil when the
// message is not tied to a position in the source.
type Diagnostic struct {
	Severity Severity
	Path     string
	Message  string
	Loc      *Location
}

func (d Diagnostic) String() string {
	if d.Loc == nil {
		return fmt.Sprintf("%s: %s: %s", d.Path, d.Severity, d.Message)
	}

	return fmt.Sprintf("%s:%s: %s: %s", d.Path, d.Loc, d.Severity, d.Message)
}

// Logger receives every diagnostic as soon as it is reported.
type Logger interface {
	Log(d Diagnostic)
}

// Policy decides what happens after the first error.
type Policy int

const (
	// PolicyCollect keeps going so that as many diagnostics as possible are
	// surfaced for one unit.
	PolicyCollect Policy = iota

	// PolicyAbort halts the unit at the first error.
	PolicyAbort
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "collect":
		return PolicyCollect, nil
	case "abort":
		return PolicyAbort, nil
	}

	return PolicyCollect, fmt.Errorf("unknown diagnostic policy %q", s)
}

// Diagnostics accumulates the messages of one compilation unit and tracks
// whether the unit must stop. Fatal diagnostics always halt.
type Diagnostics struct {
	path   string
	logger Logger
	policy Policy

	list   []Diagnostic
	errors int
	halted bool
}

func NewDiagnostics(path string, logger Logger, policy Policy) *Diagnostics {
	return &Diagnostics{
		path:   path,
		logger: logger,
		policy: policy,
	}
}

func (d *Diagnostics) Path() string {
	return d.path
}

func (d *Diagnostics) Report(sev Severity, loc *Location, format string, args ...interface{}) {
	diag := Diagnostic{
		Severity: sev,
		Path:     d.path,
		Message:  fmt.Sprintf(format, args...),
		Loc:      loc,
	}

	d.list = append(d.list, diag)
	if d.logger != nil {
		d.logger.Log(diag)
	}

	switch {
	case sev == SeverityFatal:
		d.errors++
		d.halted = true
	case sev == SeverityError:
		d.errors++
		if d.policy == PolicyAbort {
			d.halted = true
		}
	}
}

func (d *Diagnostics) Errorf(loc Location, format string, args ...interface{}) {
	d.Report(SeverityError, &loc, format, args...)
}

func (d *Diagnostics) Warnf(loc Location, format string, args ...interface{}) {
	d.Report(SeverityWarning, &loc, format, args...)
}

func (d *Diagnostics) Infof(format string, args ...interface{}) {
	d.Report(SeverityInfo, nil, format, args...)
}

func (d *Diagnostics) Debugf(format string, args ...interface{}) {
	d.Report(SeverityDebug, nil, format, args...)
}

// ReportError turns an error returned by a generation function into a
// diagnostic. Internal errors are fatal.
func (d *Diagnostics) ReportError(err error) {
	var internal *InternalError
	sev := SeverityError
	if errors.As(err, &internal) {
		sev = SeverityFatal
	}

	var located LocatedError
	if errors.As(err, &located) {
		loc := located.Location()
		d.Report(sev, &loc, "%s", located.Message())
		return
	}

	d.Report(sev, nil, "%s", err.Error())
}

// Halted reports whether the unit must stop now.
func (d *Diagnostics) Halted() bool {
	return d.halted
}

func (d *Diagnostics) HasErrors() bool {
	return d.errors > 0
}

func (d *Diagnostics) All() []Diagnostic {
	return d.list
}

// Err returns the errors of the unit as an ErrorList, or nil.
func (d *Diagnostics) Err() error {
	if d.errors == 0 {
		return nil
	}

	var list ErrorList
	for _, diag := range d.list {
		if diag.Severity >= SeverityError {
			list = append(list, diag)
		}
	}

	return list
}

// ErrorList is the error returned for a failed compilation unit.
type ErrorList []Diagnostic

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].String()
	}

	var sb strings.Builder
	sb.WriteString(l[0].String())
	fmt.Fprintf(&sb, " (and %d more errors)", len(l)-1)
	return sb.String()
}
