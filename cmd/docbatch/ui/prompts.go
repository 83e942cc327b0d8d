package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// Confirm asks a yes/no question on r. An empty answer returns def.
func Confirm(r *bufio.Reader, message string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(out, "%s [%s]: ", message, hint)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// TerminalApprover asks on stdin whether to continue after a failed file.
type TerminalApprover struct {
	in       *bufio.Reader
	progress *RunProgress
}

func NewTerminalApprover(progress *RunProgress) *TerminalApprover {
	return &TerminalApprover{in: bufio.NewReader(os.Stdin), progress: progress}
}

// RequestApproval blocks on the terminal. A cancelled context or unreadable stdin declines.
func (a *TerminalApprover) RequestApproval(ctx context.Context, req entity.ApprovalRequest) (bool, error) {
	if a.progress != nil {
		a.progress.Clear()
	}
	Error("%s: %s", req.FileName, req.ErrorMessage)

	type answer struct {
		ok  bool
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		ok, err := Confirm(a.in, "Continue with the remaining files?", false)
		ch <- answer{ok, err}
	}()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case ans := <-ch:
		return ans.ok, ans.err
	}
}
