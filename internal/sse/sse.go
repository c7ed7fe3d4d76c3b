// Package sse re-frames Server-Sent Event streams from upstream backends
// for the proxy's strict passthrough rule: only data: lines survive,
// each re-terminated by exactly one blank line.
package sse

import (
	"bytes"
	"strings"
)

// FrameForwarder implements the proxy's upstream-to-caller SSE passthrough
// rule (§4.5): bytes are accumulated and split on blank-line ("\n\n")
// boundaries; within each frame, only lines beginning "data:" survive,
// each re-terminated with "\n\n". The [DONE] sentinel is a normal data
// line, not treated specially. Any residual buffered tail is flushed by
// Close using the same rule.
type FrameForwarder struct {
	buf bytes.Buffer
}

// Feed appends newly-read upstream bytes and returns the forwardable
// output produced from any now-complete frames.
func (f *FrameForwarder) Feed(chunk []byte) []byte {
	f.buf.Write(chunk)
	return f.drainCompleteFrames()
}

// Close flushes any residual buffered tail (a final frame that never saw
// its closing blank line, e.g. because the upstream connection ended
// immediately after emitting it) and returns the forwardable output.
func (f *FrameForwarder) Close() []byte {
	tail := f.buf.String()
	f.buf.Reset()
	if tail == "" {
		return nil
	}
	return forwardFrame(tail)
}

func (f *FrameForwarder) drainCompleteFrames() []byte {
	var out bytes.Buffer
	for {
		raw := f.buf.String()
		idx := strings.Index(raw, "\n\n")
		if idx == -1 {
			break
		}
		frame := raw[:idx]
		f.buf.Next(idx + 2)
		out.Write(forwardFrame(frame))
	}
	return out.Bytes()
}

// forwardFrame returns the re-framed data: lines of one upstream SSE
// frame, each followed by "\n\n", or nil if the frame contained no data:
// lines.
func forwardFrame(frame string) []byte {
	var out bytes.Buffer
	lines := strings.Split(frame, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "data:") {
			out.WriteString(line)
			out.WriteString("\n\n")
		}
	}
	if out.Len() == 0 {
		return nil
	}
	return out.Bytes()
}
