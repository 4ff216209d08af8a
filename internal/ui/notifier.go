package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const (
	notificationLineTemplateConstant = "%s\n"
)

// Notifier prints progress notices for maintainers running an import.
type Notifier struct {
	writer        io.Writer
	progressColor *color.Color
	skippedColor  *color.Color
	successColor  *color.Color
}

// NewNotifier constructs a Notifier writing to the provided writer; a nil writer discards output.
func NewNotifier(writer io.Writer) *Notifier {
	if writer == nil {
		writer = io.Discard
	}
	return &Notifier{
		writer:        writer,
		progressColor: color.New(color.FgCyan),
		skippedColor:  color.New(color.FgYellow),
		successColor:  color.New(color.FgGreen, color.Bold),
	}
}

// Progress prints a step notice such as a clone or sync announcement.
func (notifier *Notifier) Progress(format string, arguments ...any) {
	if notifier == nil {
		return
	}
	notifier.print(notifier.progressColor, format, arguments...)
}

// Skipped prints a notice about a path the import deliberately left alone.
func (notifier *Notifier) Skipped(format string, arguments ...any) {
	if notifier == nil {
		return
	}
	notifier.print(notifier.skippedColor, format, arguments...)
}

// Success prints the final outcome of an import.
func (notifier *Notifier) Success(format string, arguments ...any) {
	if notifier == nil {
		return
	}
	notifier.print(notifier.successColor, format, arguments...)
}

func (notifier *Notifier) print(lineColor *color.Color, format string, arguments ...any) {
	if notifier.writer == nil {
		return
	}
	message := fmt.Sprintf(format, arguments...)
	if lineColor == nil {
		_, _ = fmt.Fprintf(notifier.writer, notificationLineTemplateConstant, message)
		return
	}
	_, _ = lineColor.Fprintf(notifier.writer, notificationLineTemplateConstant, message)
}
