// Package wp drives WP-CLI inside the cli sidecar container of an instance.
//
// Every probe and mutation goes through `wp` rather than talking to MySQL
// or PHP directly, so the check exercises the same credentials, socket and
// wp-config.php the site itself uses.
package wp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/shell/docker"
)

// ContentMount is the container path of the bind-mounted wp-content
// directory. Files dropped into the instance's wp-content on the host are
// visible here.
const ContentMount = "/var/www/html/wp-content"

// =============================================================================
// Errors
// =============================================================================

// CommandError reports a WP-CLI command that ran but exited non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("wp %s: exit code %d", strings.Join(e.Args, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + firstLine(s)
	}
	return msg
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// =============================================================================
// Runner
// =============================================================================

// Execer runs commands inside a service container of an instance.
type Execer interface {
	ExecIn(ctx context.Context, instanceName, service string, cmd []string, opts docker.ExecOptions) (*docker.ExecResult, error)
}

// Runner executes WP-CLI commands for instances.
type Runner struct {
	exec   Execer
	logger *slog.Logger
}

// NewRunner creates a WP-CLI runner.
func NewRunner(exec Execer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		exec:   exec,
		logger: logger,
	}
}

// Run executes `wp <args...>` in the cli container and returns stdout.
// A non-zero exit becomes a *CommandError carrying the exit code and stderr.
func (r *Runner) Run(ctx context.Context, instanceName string, args ...string) (string, error) {
	cmd := append([]string{"wp"}, args...)
	r.logger.Debug("running wp-cli", "instance", instanceName, "args", strings.Join(args, " "))

	result, err := r.exec.ExecIn(ctx, instanceName, compose.ServiceCLI, cmd, docker.ExecOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to exec wp-cli: %w", err)
	}
	if result.ExitCode != 0 {
		return result.Stdout, &CommandError{
			Args:     args,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}
	return result.Stdout, nil
}

// =============================================================================
// Probes
// =============================================================================

// DBCheck verifies the database is reachable with the site's credentials
// via `wp db check`. The command connects with the wp-config.php values, so
// success means MySQL is up, accepting connections and the schema exists.
func (r *Runner) DBCheck(ctx context.Context, instanceName string) error {
	_, err := r.Run(ctx, instanceName, "db", "check")
	return err
}

// IsInstalled reports whether WordPress has been installed. A non-zero exit
// from `wp core is-installed` means not installed yet; only exec transport
// failures surface as errors.
func (r *Runner) IsInstalled(ctx context.Context, instanceName string) (bool, error) {
	_, err := r.Run(ctx, instanceName, "core", "is-installed")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// =============================================================================
// Mutations
// =============================================================================

// InstallParams holds the site identity for `wp core install`.
type InstallParams struct {
	URL           string
	Title         string
	AdminUser     string
	AdminPassword string
	AdminEmail    string
}

// CoreInstall runs the WordPress installer. Safe to call on an already
// installed site; WP-CLI treats that as success.
func (r *Runner) CoreInstall(ctx context.Context, instanceName string, p InstallParams) error {
	_, err := r.Run(ctx, instanceName, "core", "install",
		"--url="+p.URL,
		"--title="+p.Title,
		"--admin_user="+p.AdminUser,
		"--admin_password="+p.AdminPassword,
		"--admin_email="+p.AdminEmail,
		"--skip-email",
	)
	return err
}

// DBImport replays a SQL dump into the site database. The path must be a
// container path, typically under ContentMount.
func (r *Runner) DBImport(ctx context.Context, instanceName, containerPath string) error {
	_, err := r.Run(ctx, instanceName, "db", "import", containerPath)
	return err
}

// DBExport dumps the site database to a container path.
func (r *Runner) DBExport(ctx context.Context, instanceName, containerPath string) error {
	_, err := r.Run(ctx, instanceName, "db", "export", containerPath)
	return err
}

// SearchReplace rewrites URLs across all tables, skipping GUIDs so imported
// posts keep their identity.
func (r *Runner) SearchReplace(ctx context.Context, instanceName, oldURL, newURL string) error {
	_, err := r.Run(ctx, instanceName, "search-replace", oldURL, newURL,
		"--all-tables",
		"--skip-columns=guid",
	)
	return err
}

// OptionGet reads a single WordPress option.
func (r *Runner) OptionGet(ctx context.Context, instanceName, key string) (string, error) {
	out, err := r.Run(ctx, instanceName, "option", "get", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// OptionUpdate writes a single WordPress option.
func (r *Runner) OptionUpdate(ctx context.Context, instanceName, key, value string) error {
	_, err := r.Run(ctx, instanceName, "option", "update", key, value)
	return err
}

// RewriteFlush regenerates permalink rewrite rules after an import.
func (r *Runner) RewriteFlush(ctx context.Context, instanceName string) error {
	_, err := r.Run(ctx, instanceName, "rewrite", "flush", "--hard")
	return err
}
