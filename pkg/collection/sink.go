package collection

import "strings"

// StreamFunc receives each rendering, in sequence order, as it is produced.
type StreamFunc func(rendered string)

type sink interface {
	write(rendered string)
}

type accumulator struct {
	buf       strings.Builder
	separator string
	n         int
}

func (a *accumulator) write(rendered string) {
	if a.n > 0 && a.separator != "" {
		a.buf.WriteString(a.separator)
	}
	a.buf.WriteString(rendered)
	a.n++
}

func (a *accumulator) String() string {
	return a.buf.String()
}

type streamer struct {
	fn StreamFunc
}

func (s streamer) write(rendered string) {
	s.fn(rendered)
}
