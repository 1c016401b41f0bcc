// Package report renders the console lines of a validation run.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	accent  = lipgloss.Color("#D97706")
	dim     = lipgloss.Color("#6B7280")
)

// Printer writes the run report to w. Styles degrade to plain text when w is
// not a terminal.
type Printer struct {
	w io.Writer

	passStyle   lipgloss.Style
	failStyle   lipgloss.Style
	headerStyle lipgloss.Style
	dimStyle    lipgloss.Style
}

// New returns a printer for w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:           w,
		passStyle:   r.NewStyle().Bold(true).Foreground(success),
		failStyle:   r.NewStyle().Bold(true).Foreground(danger),
		headerStyle: r.NewStyle().Bold(true).Foreground(accent),
		dimStyle:    r.NewStyle().Foreground(dim),
	}
}

func (p *Printer) println(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}

// Discovered prints a model path as discovery finds it.
func (p *Printer) Discovered(path string) {
	p.println(path)
}

// InstallDone reports the materializer install outcome.
func (p *Printer) InstallDone(code int) {
	p.println(fmt.Sprintf("Git LFS install completed with return code= %d", code))
}

// PullDone reports a per-file pull outcome.
func (p *Printer) PullDone(code int) {
	p.println(fmt.Sprintf("LFS pull completed with return code= %d", code))
}

// Start announces how many models will be checked.
func (p *Printer) Start(total int) {
	p.println(p.headerStyle.Render(fmt.Sprintf("=== Running ONNX Checker on %d models ===", total)))
}

// Testing prints the per-file header.
func (p *Printer) Testing(name string) {
	p.println(fmt.Sprintf("-----------------Testing: %s-----------------", name))
}

// Pass reports a model that passed every check.
func (p *Printer) Pass(name string) {
	p.println(p.passStyle.Render("[PASS]") + fmt.Sprintf(": %s is checked by onnx. ", name))
}

// Fail reports the error that failed a model.
func (p *Printer) Fail(err error) {
	p.println(p.failStyle.Render("[FAIL]") + ": " + err.Error())
}

// TimeUsed prints the elapsed time for one model.
func (p *Printer) TimeUsed(d time.Duration) {
	secs := strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
	p.println(p.dimStyle.Render(fmt.Sprintf("--------------Time used: %s secs-------------", secs)))
}

// Summary prints the closing line.
func (p *Printer) Summary(total, failed int) {
	if failed == 0 {
		p.println(p.passStyle.Render(fmt.Sprintf("%d models have been checked.", total)))
		return
	}
	p.println(p.failStyle.Render(fmt.Sprintf("In all %d models, %d models failed.", total, failed)))
}
