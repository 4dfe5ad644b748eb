// internal/stomp/frame.go
package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Client and server commands used by this package.
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSend        = "SEND"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdDisconnect  = "DISCONNECT"
	CmdMessage     = "MESSAGE"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
)

// ErrMalformedFrame is returned when bytes do not form a complete STOMP frame.
var ErrMalformedFrame = errors.New("malformed stomp frame")

// Frame is a single STOMP frame. Repeated headers keep their first value.
type Frame struct {
	Command string
	Header  map[string]string
	Body    []byte
}

// NewFrame builds a frame from alternating header key/value pairs.
func NewFrame(command string, body []byte, kv ...string) Frame {
	f := Frame{Command: command, Header: make(map[string]string, len(kv)/2), Body: body}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Header[kv[i]] = kv[i+1]
	}
	return f
}

func (f Frame) Get(key string) string {
	return f.Header[key]
}

// escapes reports whether header values of this command are escaped.
func escapes(command string) bool {
	return command != CmdConnect && command != CmdConnected
}

// Encode serialises the frame. Header keys are written sorted.
func (f Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	keys := make([]string, 0, len(f.Header))
	for k := range f.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	esc := escapes(f.Command)
	for _, k := range keys {
		v := f.Header[k]
		if esc {
			k, v = escapeHeader(k), escapeHeader(v)
		}
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	if _, ok := f.Header["content-length"]; !ok && len(f.Body) > 0 {
		buf.WriteString("content-length:")
		buf.WriteString(strconv.Itoa(len(f.Body)))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// ParseFrames decodes every frame in data. Heart-beat EOLs between frames are
// skipped, so a heart-beat-only message yields no frames.
func ParseFrames(data []byte) ([]Frame, error) {
	var frames []Frame
	for {
		data = skipEOL(data)
		if len(data) == 0 {
			return frames, nil
		}
		f, rest, err := parseFrame(data)
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
		data = rest
	}
}

func skipEOL(data []byte) []byte {
	for len(data) > 0 && (data[0] == '\n' || data[0] == '\r') {
		data = data[1:]
	}
	return data
}

func cutLine(data []byte) (string, []byte, bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return "", data, false
	}
	line := strings.TrimSuffix(string(data[:i]), "\r")
	return line, data[i+1:], true
}

func parseFrame(data []byte) (Frame, []byte, error) {
	command, data, ok := cutLine(data)
	if !ok || command == "" {
		return Frame{}, nil, fmt.Errorf("%w: no command line", ErrMalformedFrame)
	}
	f := Frame{Command: command, Header: map[string]string{}}
	esc := escapes(command)

	for {
		var line string
		line, data, ok = cutLine(data)
		if !ok {
			return Frame{}, nil, fmt.Errorf("%w: unterminated headers", ErrMalformedFrame)
		}
		if line == "" {
			break
		}
		k, v, found := strings.Cut(line, ":")
		if !found {
			return Frame{}, nil, fmt.Errorf("%w: header %q", ErrMalformedFrame, line)
		}
		if esc {
			var err error
			if k, err = unescapeHeader(k); err != nil {
				return Frame{}, nil, err
			}
			if v, err = unescapeHeader(v); err != nil {
				return Frame{}, nil, err
			}
		}
		if _, dup := f.Header[k]; !dup {
			f.Header[k] = v
		}
	}

	if cl, ok := f.Header["content-length"]; ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return Frame{}, nil, fmt.Errorf("%w: content-length %q", ErrMalformedFrame, cl)
		}
		if len(data) < n+1 || data[n] != 0 {
			return Frame{}, nil, fmt.Errorf("%w: body shorter than content-length", ErrMalformedFrame)
		}
		f.Body = data[:n]
		return f, data[n+1:], nil
	}

	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return Frame{}, nil, fmt.Errorf("%w: missing NUL terminator", ErrMalformedFrame)
	}
	f.Body = data[:i]
	return f, data[i+1:], nil
}

var headerEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)

func escapeHeader(s string) string {
	return headerEscaper.Replace(s)
}

func unescapeHeader(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("%w: dangling escape in %q", ErrMalformedFrame, s)
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'c':
			b.WriteByte(':')
		default:
			return "", fmt.Errorf("%w: invalid escape \\%c", ErrMalformedFrame, s[i])
		}
	}
	return b.String(), nil
}
