package errors

import (
	"strings"
)

const (
	Indent = "  "
	Bullet = "- "
)

// Format converts the error to a string.
// Multi errors are formatted as a bullet list, nested errors as a prefix followed by the list.
func Format(err error) string {
	w := &writer{}
	w.writeError(0, err)
	return w.out.String()
}

type writer struct {
	out strings.Builder
}

func (w *writer) writeError(level int, err error) {
	// nolint: errorlint
	switch v := err.(type) {
	case nestedErrorGetter:
		w.writeNestedError(level, v.MainError(), v.WrappedErrors())
	case multiErrorGetter:
		w.writeErrorsList(level, v.WrappedErrors())
	default:
		// Align all lines of a multi-line message
		lines := strings.Split(err.Error(), "\n")
		w.write(lines[0])
		for _, line := range lines[1:] {
			w.write("\n")
			w.write(strings.Repeat(Indent, level))
			w.write(line)
		}
	}
}

func (w *writer) writeNestedError(level int, main error, errs []error) {
	mainWriter := &writer{}
	mainWriter.writeError(level, main)
	mainStr := mainWriter.out.String()
	if len(errs) == 0 {
		w.write(mainStr)
		return
	}

	mainStr = strings.TrimRight(mainStr, ".,:") + ":"
	subWriter := &writer{}
	subWriter.writeErrorsList(level, errs)
	subStr := subWriter.out.String()

	// If there is more than one error or the message is long, then break line and create bullet list
	w.write(mainStr)
	if len(errs) > 1 || len(mainStr)+len(subStr) > 60 || strings.Contains(subStr, "\n") {
		w.write("\n")
		if len(errs) == 1 {
			w.write(strings.Repeat(Indent, level))
			w.write(Bullet)
			w.writeError(level+1, errs[0])
		} else {
			w.writeErrorsList(level, errs)
		}
	} else {
		w.write(" ")
		w.write(subStr)
	}
}

func (w *writer) writeErrorsList(level int, errs []error) {
	indent := len(errs) > 1
	for i, err := range errs {
		if indent {
			w.write(strings.Repeat(Indent, level))
			w.write(Bullet)
		}
		w.writeError(level+1, err)
		if i != len(errs)-1 {
			w.write("\n")
		}
	}
}

func (w *writer) write(s string) {
	_, _ = w.out.WriteString(s)
}
