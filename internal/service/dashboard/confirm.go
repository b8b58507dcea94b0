package dashboard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// AutoConfirm approves everything. It backs the --yes flag.
type AutoConfirm struct{}

// Confirm returns true.
func (AutoConfirm) Confirm(string) (bool, error) {
	return true, nil
}

// Prompt asks on Out and reads the answer from In. Only "y" or "yes"
// approve; anything else, including end of input, declines.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// Confirm asks prompt and waits for an answer.
func (p Prompt) Confirm(prompt string) (bool, error) {
	if _, err := fmt.Fprintf(p.Out, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}

	answer, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ErrDeclined is returned when the user does not confirm.
var ErrDeclined = errors.New("not confirmed")

// Require asks c and returns ErrDeclined unless the user approves.
func Require(c Confirmer, prompt string) error {
	ok, err := c.Confirm(prompt)
	if err != nil {
		return err
	}

	if !ok {
		return ErrDeclined
	}

	return nil
}
