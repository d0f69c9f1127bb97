// Package deploy copies the project to the server with rsync over ssh and
// optionally restarts the service there.
package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/pkg/logger"
)

// Config describes one deploy target
type Config struct {
	Host           string
	User           string
	Path           string
	KeyPath        string
	Source         string
	Excludes       []string
	RestartCommand string
	DryRun         bool
}

// FromConfig builds a deploy config from the loaded settings
func FromConfig(cfg config.DeployConfig, dryRun bool) Config {
	return Config{
		Host:           cfg.Host,
		User:           cfg.User,
		Path:           cfg.Path,
		KeyPath:        cfg.KeyPath,
		Source:         cfg.Source,
		Excludes:       cfg.Excludes,
		RestartCommand: cfg.RestartCommand,
		DryRun:         dryRun,
	}
}

// Validate reports every missing variable at once
func (c Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "SERVER_HOST")
	}
	if c.User == "" {
		missing = append(missing, "SERVER_USER")
	}
	if c.Path == "" {
		missing = append(missing, "SERVER_PATH")
	}
	if c.KeyPath == "" {
		missing = append(missing, "SSH_KEY_PATH")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing deploy settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Command is one program invocation
type Command struct {
	Name string
	Args []string
}

// String renders the command as a shell line
func (c Command) String() string {
	parts := []string{c.Name}
	for _, a := range c.Args {
		if strings.ContainsAny(a, " \t'\"*") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Plan returns the commands a deploy runs: rsync, then ssh when a restart
// command is set
func (c Config) Plan() ([]Command, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	source := c.Source
	if source == "" {
		source = "./"
	}
	if !strings.HasSuffix(source, "/") {
		source += "/"
	}

	sshCmd := fmt.Sprintf("ssh -i %s -o StrictHostKeyChecking=accept-new", c.KeyPath)
	target := fmt.Sprintf("%s@%s", c.User, c.Host)

	args := []string{"-az", "--delete", "-e", sshCmd}
	for _, e := range c.Excludes {
		args = append(args, "--exclude", e)
	}
	args = append(args, source, fmt.Sprintf("%s:%s", target, c.Path))

	plan := []Command{{Name: "rsync", Args: args}}

	if c.RestartCommand != "" {
		plan = append(plan, Command{
			Name: "ssh",
			Args: []string{
				"-i", c.KeyPath,
				"-o", "StrictHostKeyChecking=accept-new",
				target,
				fmt.Sprintf("cd %s && %s", c.Path, c.RestartCommand),
			},
		})
	}

	return plan, nil
}

// Run validates the config and runs every planned command in order,
// streaming their output. In dry-run mode commands are only printed.
func Run(ctx context.Context, c Config, out io.Writer, log *logger.Logger) error {
	log = log.WithComponent("deploy")

	plan, err := c.Plan()
	if err != nil {
		return err
	}

	for _, cmd := range plan {
		if c.DryRun {
			fmt.Fprintln(out, cmd.String())
			continue
		}

		log.Info().Str("command", cmd.String()).Msg("Running")

		proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
		proc.Stdout = out
		proc.Stderr = os.Stderr
		if err := proc.Run(); err != nil {
			return fmt.Errorf("%s failed: %w", cmd.Name, err)
		}
	}

	if !c.DryRun {
		log.Info().Str("host", c.Host).Str("path", c.Path).Msg("Deploy finished")
	}
	return nil
}
