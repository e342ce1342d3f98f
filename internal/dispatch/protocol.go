package dispatch

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/Mikepicker/mailslot/internal/errors"
)

// Protocol verbs.
const (
	verbOpen  = "OPEN"
	verbWrite = "WRITE"
	verbRead  = "READ"
	verbStat  = "STAT"
	verbClear = "CLEAR"
	verbQuit  = "QUIT"
)

// command is one parsed protocol line.
type command struct {
	verb    string
	index   int    // -1 when the verb takes no index (QUIT)
	payload []byte // WRITE only; may be empty
}

// parseCommand parses a single protocol line (without its terminator).
// The payload of WRITE is everything after the index and one separating
// space, uninterpreted.
func parseCommand(line []byte) (command, error) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(bytes.TrimSpace(line)) == 0 {
		return command{}, errors.NewProtocolError("empty command", errors.ErrInvalidInput)
	}

	verbEnd := bytes.IndexByte(line, ' ')
	var verb string
	var rest []byte
	if verbEnd < 0 {
		verb = string(line)
	} else {
		verb = string(line[:verbEnd])
		rest = line[verbEnd+1:]
	}
	verb = strings.ToUpper(verb)

	switch verb {
	case verbQuit:
		if len(rest) != 0 {
			return command{}, errors.NewProtocolError("QUIT takes no arguments", errors.ErrInvalidInput).
				WithCommand(verb)
		}
		return command{verb: verb, index: -1}, nil

	case verbOpen, verbRead, verbStat, verbClear:
		index, err := parseIndex(rest)
		if err != nil {
			return command{}, errors.NewProtocolError("bad index argument", err).WithCommand(verb)
		}
		return command{verb: verb, index: index}, nil

	case verbWrite:
		idxEnd := bytes.IndexByte(rest, ' ')
		var idxPart, payload []byte
		if idxEnd < 0 {
			idxPart = rest
		} else {
			idxPart = rest[:idxEnd]
			payload = rest[idxEnd+1:]
		}
		index, err := parseIndex(idxPart)
		if err != nil {
			return command{}, errors.NewProtocolError("bad index argument", err).WithCommand(verb)
		}
		return command{verb: verb, index: index, payload: payload}, nil

	default:
		return command{}, errors.NewProtocolError("unknown command", errors.ErrInvalidInput).
			WithCommand(verb)
	}
}

// parseIndex parses a non-negative decimal mailslot index. Range
// checking against the registry size happens in the registry itself.
func parseIndex(arg []byte) (int, error) {
	s := string(bytes.TrimSpace(arg))
	if s == "" {
		return 0, errors.ErrInvalidInput
	}
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, errors.ErrInvalidInput
	}
	return index, nil
}
