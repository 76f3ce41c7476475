package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"headphones/internal/ipc"
	"headphones/internal/snatch"
)

type level int

const (
	levelInfo level = iota
	levelOK
	levelWarn
	levelError
)

func (l level) String() string {
	switch l {
	case levelOK:
		return "OK"
	case levelWarn:
		return "WARN"
	case levelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l level) colors() text.Colors {
	switch l {
	case levelOK:
		return text.Colors{text.FgGreen}
	case levelWarn:
		return text.Colors{text.FgYellow}
	case levelError:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgBlue}
	}
}

// report prints the sectioned "label: [LEVEL] detail" output of status and
// doctor. Error lines are counted as problems.
type report struct {
	w        io.Writer
	color    bool
	sections int
	problems int
}

func newReport(w io.Writer) *report {
	return &report{w: w, color: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *report) paint(colors text.Colors, s string) string {
	if !r.color {
		return s
	}
	return colors.Sprint(s)
}

func (r *report) section(title string) {
	if r.sections > 0 {
		fmt.Fprintln(r.w)
	}
	r.sections++
	heading := "== " + strings.TrimSpace(title) + " =="
	blue := text.Colors{text.FgBlue}
	fmt.Fprintln(r.w, r.paint(blue, heading))
	fmt.Fprintln(r.w, r.paint(blue, strings.Repeat("-", len(heading))))
}

func (r *report) line(label string, lvl level, detail string) {
	if lvl == levelError {
		r.problems++
	}
	tag := "[" + lvl.String() + "]"
	if detail != "" {
		tag += " " + detail
	}
	fmt.Fprintln(r.w, r.paint(lvl.colors(), fmt.Sprintf("  %-20s %s", label+":", tag)))
}

func (r *report) dependencies(deps []ipc.DependencyStatus) {
	var missing []string
	for _, dep := range deps {
		if dep.Available {
			detail := "Ready"
			if dep.Command != "" {
				detail += " (command: " + dep.Command + ")"
			}
			r.line(dep.Name, levelOK, detail)
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		lvl := levelError
		if dep.Optional {
			lvl = levelWarn
		}
		r.line(dep.Name, lvl, detail)
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		r.line("Missing", levelWarn, strings.Join(missing, ", "))
	}
}

// snatchStatusRows orders counts the way snatches move through their life.
func snatchStatusRows(counts map[string]int) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, status := range snatch.AllStatuses() {
		rows = append(rows, []string{string(status), strconv.Itoa(counts[string(status)])})
	}
	return rows
}
