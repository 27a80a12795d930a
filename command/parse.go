package command

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raniellyferreira/respkv/protocol"
)

// Parse turns a decoded request frame into a Command.
//
// The frame must be a non-empty array of bulk strings. All argument
// validation happens here, so every returned Command can be executed
// without further checks. Errors are *SyntaxError.
func Parse(f protocol.Frame) (Command, error) {
	if f.Type != protocol.TypeArray || len(f.Array) == 0 {
		return nil, errInvalidFrame
	}

	args := make([][]byte, len(f.Array))
	for i, item := range f.Array {
		if item.Type != protocol.TypeBulkString {
			return nil, errInvalidFrame
		}
		args[i] = item.Data
	}

	name := strings.ToLower(string(args[0]))
	switch name {
	case "ping":
		return parsePing(args)
	case "echo":
		return parseEcho(args)
	case "get":
		return parseGet(args)
	case "set":
		return parseSet(args)
	case "info":
		return parseInfo(args)
	case "command":
		return Introspect{}, nil
	case "replconf":
		return Replconf{}, nil
	case "psync":
		return Psync{}, nil
	default:
		return nil, unknownCommand(string(args[0]))
	}
}

func parsePing(args [][]byte) (Command, error) {
	if len(args) != 1 {
		return nil, wrongArity("ping")
	}
	return Ping{}, nil
}

func parseEcho(args [][]byte) (Command, error) {
	if len(args) != 2 {
		return nil, wrongArity("echo")
	}
	return Echo{Message: args[1]}, nil
}

func parseGet(args [][]byte) (Command, error) {
	if len(args) != 2 {
		return nil, wrongArity("get")
	}

	key, err := parseKey(args[1])
	if err != nil {
		return nil, err
	}
	return Get{Key: key}, nil
}

// parseSet accepts exactly:
//
//	SET key value
//	SET key value KEEPTTL
//	SET key value EX|PX n
func parseSet(args [][]byte) (Command, error) {
	if len(args) < 3 {
		return nil, wrongArity("set")
	}

	key, err := parseKey(args[1])
	if err != nil {
		return nil, err
	}
	if len(args[2]) == 0 {
		return nil, errEmptyValue
	}

	cmd := Set{Key: key, Value: args[2]}

	switch len(args) {
	case 3:
		return cmd, nil
	case 4:
		if !equalFold(args[3], "keepttl") {
			return nil, errSyntax
		}
		cmd.KeepTTL = true
		return cmd, nil
	case 5:
		var unit time.Duration
		switch {
		case equalFold(args[3], "ex"):
			unit = time.Second
		case equalFold(args[3], "px"):
			unit = time.Millisecond
		default:
			return nil, errSyntax
		}

		expiry, err := parseExpiry(args[4], unit)
		if err != nil {
			return nil, err
		}
		cmd.Expiry = expiry
		return cmd, nil
	default:
		return nil, errSyntax
	}
}

func parseInfo(args [][]byte) (Command, error) {
	names := args[1:]
	if len(names) == 0 {
		return Info{Sections: []Section{SectionDefault}}, nil
	}
	if len(names) > maxInfoSections {
		return nil, errSyntax
	}

	sections := make([]Section, 0, len(names))
	for _, name := range names {
		section, err := parseSection(name)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return Info{Sections: sections}, nil
}

func parseSection(name []byte) (Section, error) {
	switch {
	case equalFold(name, string(SectionReplication)):
		return SectionReplication, nil
	default:
		return "", errSyntax
	}
}

// parseKey validates a key argument: non-empty UTF-8 text
func parseKey(b []byte) (string, error) {
	if len(b) == 0 {
		return "", errEmptyKey
	}
	if !utf8.Valid(b) {
		return "", errSyntax
	}
	return string(b), nil
}

// parseExpiry parses a strictly positive decimal count of unit
func parseExpiry(b []byte, unit time.Duration) (time.Duration, error) {
	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil || n == 0 {
		return 0, errExpireTime
	}
	if n > uint64(math.MaxInt64/int64(unit)) {
		return 0, errExpireTime
	}
	return time.Duration(n) * unit, nil
}

func equalFold(b []byte, s string) bool {
	return bytes.EqualFold(b, []byte(s))
}
