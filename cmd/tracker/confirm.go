package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/syllabus-tracker/sessions"
	"github.com/pkg/errors"
)

var errNotInteractive = errors.New("confirmation required, rerun with -yes")

// newPromptConfirmer asks y/N questions on in. Without a terminal nothing is confirmed.
func newPromptConfirmer(in io.Reader, out io.Writer, interactive bool) sessions.Confirmer {
	reader := bufio.NewReader(in)
	return sessions.ConfirmerFunc(func(ctx context.Context, prompt string) (bool, error) {
		if !interactive {
			return false, errNotInteractive
		}
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}
