package utils

import (
	"errors"
	"strings"

	"github.com/kballard/go-shellquote"
)

var ErrTooManyArguments = errors.New("too many arguments")

// SplitStringIntoCommandAndArguments splits a REPL line into a command, a
// key and an optional extra argument using shell quoting rules, so that
// keys containing spaces can be quoted:
//
//	lookup "Dictionary<String, Int>"
//	read 'Foo<Int>' 32
func SplitStringIntoCommandAndArguments(line string) (cmd, key, arg string, err error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", "", "", err
	}

	switch len(words) {
	case 0:
		return "", "", "", nil
	case 1:
		return strings.ToLower(words[0]), "", "", nil
	case 2:
		return strings.ToLower(words[0]), words[1], "", nil
	case 3:
		return strings.ToLower(words[0]), words[1], words[2], nil
	default:
		return "", "", "", ErrTooManyArguments
	}
}
