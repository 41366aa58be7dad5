package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	errUnterminatedQuote  = errors.New("unterminated quote")
	errUnterminatedEscape = errors.New("unterminated escape sequence")
)

// ParseCommand splits a shell-like command line into argv. Single and double
// quotes group words and a backslash escapes the next rune. A line starting
// with # is treated as unset.
func ParseCommand(raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

// argvScanner accumulates words and tracks quoting state.
type argvScanner struct {
	words   []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

func (s *argvScanner) endWord() {
	if !s.inWord {
		return
	}
	s.words = append(s.words, s.word.String())
	s.word.Reset()
	s.inWord = false
}

func (s *argvScanner) add(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

func (s *argvScanner) scan(r rune) {
	if s.escaped {
		s.add(r)
		s.escaped = false
		return
	}
	if s.quote != 0 {
		if r == s.quote {
			s.quote = 0
			return
		}
		s.add(r)
		return
	}
	switch {
	case r == '\\':
		s.escaped = true
	case r == '\'' || r == '"':
		// Quotes open a word so that "" yields an empty argument.
		s.quote = r
		s.inWord = true
	case unicode.IsSpace(r):
		s.endWord()
	default:
		s.add(r)
	}
}

func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var s argvScanner
	for _, r := range input {
		s.scan(r)
	}
	switch {
	case s.escaped:
		return nil, fmt.Errorf("%w in command: %q", errUnterminatedEscape, input)
	case s.quote != 0:
		return nil, fmt.Errorf("%w in command: %q", errUnterminatedQuote, input)
	}
	s.endWord()
	return s.words, nil
}

func mustParseCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}
