package docker

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"strings"
)

// ScanLogLines reads a container log stream and calls emit once per line.
// When the container runs without a TTY the engine multiplexes stdout and
// stderr behind an 8-byte frame header; with a TTY the stream is plain text.
// Both shapes are handled. Returns nil on clean EOF, the emit error if emit
// fails, or the underlying read error.
func ScanLogLines(r io.Reader, emit func(line string) error) error {
	br := bufio.NewReader(r)
	for {
		header, err := br.Peek(8)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return scanPlain(br, emit)
			}
			return err
		}
		if !isMultiplexHeader(header) {
			return scanPlain(br, emit)
		}
		_, _ = br.Discard(8)
		size := binary.BigEndian.Uint32(header[4:])
		if size == 0 {
			continue
		}
		payload := make([]byte, int(size))
		if _, err := io.ReadFull(br, payload); err != nil {
			return err
		}
		for _, line := range splitLines(string(payload)) {
			if err := emit(line); err != nil {
				return err
			}
		}
	}
}

func isMultiplexHeader(header []byte) bool {
	if len(header) < 8 {
		return false
	}
	if header[0] != 1 && header[0] != 2 {
		return false
	}
	return header[1] == 0 && header[2] == 0 && header[3] == 0
}

func scanPlain(br *bufio.Reader, emit func(line string) error) error {
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := sanitizeLine(sc.Text()); line != "" {
			if err := emit(line); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

func splitLines(payload string) []string {
	var out []string
	for _, raw := range strings.Split(payload, "\n") {
		if line := sanitizeLine(raw); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func sanitizeLine(line string) string {
	line = strings.TrimRight(line, "\r\n")
	line = strings.ReplaceAll(line, "\x00", "")
	line = string(bytes.ToValidUTF8([]byte(line), []byte("?")))
	if len(line) > 8192 {
		line = line[:8192]
	}
	return line
}
