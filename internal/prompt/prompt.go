// Package prompt collects interactive answers from the user.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoAnswer is returned when input ends before an answer is read.
var ErrNoAnswer = errors.New("no answer")

// Asker asks the user questions.
type Asker interface {
	// Ask prints question and returns the trimmed answer line, or def if the
	// answer is empty.
	Ask(question, def string) (string, error)

	// Secret reads an answer without echoing it.
	Secret(question string) (string, error)

	// Confirm asks a yes/no question. An empty answer returns def.
	Confirm(question string, def bool) (bool, error)
}

// TerminalAsker reads answers from in and writes questions to out.
// Secrets are read with echo disabled when in is a terminal.
type TerminalAsker struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

// NewTerminalAsker creates an Asker on stdin and stderr.
func NewTerminalAsker() *TerminalAsker {
	fd := int(os.Stdin.Fd())
	return &TerminalAsker{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stderr,
		fd:     fd,
		isTerm: term.IsTerminal(fd),
	}
}

// NewReaderAsker creates an Asker on arbitrary streams. Secrets are read as
// plain lines.
func NewReaderAsker(in io.Reader, out io.Writer) *TerminalAsker {
	return &TerminalAsker{in: bufio.NewReader(in), out: out}
}

func (a *TerminalAsker) Ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(a.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(a.out, "%s: ", question)
	}
	line, err := a.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (a *TerminalAsker) Secret(question string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", question)
	if !a.isTerm {
		return a.readLine()
	}
	b, err := term.ReadPassword(a.fd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (a *TerminalAsker) Confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(a.out, "%s [%s]: ", question, hint)
	line, err := a.readLine()
	if err != nil {
		return false, err
	}
	return parseYesNo(line, def)
}

func (a *TerminalAsker) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoAnswer
		}
		return "", fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func parseYesNo(answer string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, fmt.Errorf("please answer y or n, got %q", answer)
	}
}

// ScriptedAsker replays fixed answers in order. An empty answer selects the
// default, as on a terminal.
type ScriptedAsker struct {
	Answers []string
	// Questions records every question asked.
	Questions []string
}

func NewScriptedAsker(answers ...string) *ScriptedAsker {
	return &ScriptedAsker{Answers: answers}
}

func (s *ScriptedAsker) next(question string) (string, error) {
	s.Questions = append(s.Questions, question)
	if len(s.Answers) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoAnswer, question)
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return strings.TrimSpace(answer), nil
}

func (s *ScriptedAsker) Ask(question, def string) (string, error) {
	answer, err := s.next(question)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (s *ScriptedAsker) Secret(question string) (string, error) {
	return s.next(question)
}

func (s *ScriptedAsker) Confirm(question string, def bool) (bool, error) {
	answer, err := s.next(question)
	if err != nil {
		return false, err
	}
	return parseYesNo(answer, def)
}

var (
	_ Asker = (*TerminalAsker)(nil)
	_ Asker = (*ScriptedAsker)(nil)
)
