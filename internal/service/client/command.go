package client

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/service/common"
	"github.com/oshokin/guardian/internal/service/dashboard"
)

// Options configures a command invocation.
type Options struct {
	// ConfigPath to YAML settings file.
	ConfigPath string
	// BackendURL overrides backend_url from settings when set.
	BackendURL string
	// AssumeYes skips confirmation prompts.
	AssumeYes bool
	// In and Out default to stdin and stdout.
	In  io.Reader
	Out io.Writer
}

// Console is where commands talk to the user.
type Console struct {
	Out     io.Writer
	Confirm dashboard.Confirmer
}

// NewConsole builds a console from options.
func NewConsole(opts *Options) Console {
	in, out := opts.In, opts.Out
	if in == nil {
		in = os.Stdin
	}

	if out == nil {
		out = os.Stdout
	}

	var confirm dashboard.Confirmer = dashboard.Prompt{In: in, Out: out}
	if opts.AssumeYes {
		confirm = dashboard.AutoConfirm{}
	}

	return Console{Out: out, Confirm: confirm}
}

// notify prints the user-facing message of err and returns err.
func (c Console) notify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	logger.DebugKV(ctx, "Command failed", "error", err)
	fmt.Fprintln(c.Out, dashboard.Notify(err))

	return err
}

func setup(ctx context.Context, opts *Options, role alert.Role) (*common.Runtime, error) {
	var setupOpts []common.Option
	if opts.BackendURL != "" {
		setupOpts = append(setupOpts, common.WithBackendURL(opts.BackendURL))
	}

	return common.Setup(ctx, opts.ConfigPath, role, setupOpts...)
}
