package provision

import (
	"context"
	"fmt"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/core/instance"
	"github.com/pressbox/pressbox/internal/core/ports"
	"github.com/pressbox/pressbox/internal/shell/workspace"
	"github.com/pressbox/pressbox/internal/shell/wp"
)

// Default site identity for fresh installs. Local throwaway instances, not
// production sites.
const (
	DefaultAdminUser     = "admin"
	DefaultAdminPassword = "password"
	DefaultAdminEmail    = "admin@example.com"
)

// CreateParams configures a create workflow.
type CreateParams struct {
	Name      string
	Port      int // explicit primary port; 0 lets the allocator choose
	PortStart int // allocator start hint; ignored with an explicit Port

	Title         string
	AdminUser     string
	AdminPassword string
	AdminEmail    string

	WordPressImage  string
	MySQLImage      string
	PHPMyAdminImage string
	CLIImage        string
}

func (c CreateParams) withDefaults(name string) CreateParams {
	if c.Title == "" {
		c.Title = name
	}
	if c.AdminUser == "" {
		c.AdminUser = DefaultAdminUser
	}
	if c.AdminPassword == "" {
		c.AdminPassword = DefaultAdminPassword
	}
	if c.AdminEmail == "" {
		c.AdminEmail = DefaultAdminEmail
	}
	return c
}

// seedFunc runs workflow-specific steps after WordPress is installed but
// before the final installed gate. Import replays its dump here; create
// flushes rewrite rules so permalinks answer from the first request.
type seedFunc func(ctx context.Context, inst *instance.Instance) error

// Create provisions a new instance and blocks until it is ready: directory,
// compose stack, containers, database, WordPress install. On any failure
// everything created so far is rolled back; no half-built instance survives.
func (p *Provisioner) Create(ctx context.Context, params CreateParams) (*instance.Instance, error) {
	return p.provision(ctx, "create", params, func(ctx context.Context, inst *instance.Instance) error {
		if err := p.site.RewriteFlush(ctx, inst.Name); err != nil {
			return fmt.Errorf("failed to flush rewrite rules: %w", err)
		}
		return nil
	})
}

// provision is the shared spine of create and import.
func (p *Provisioner) provision(ctx context.Context, op string, params CreateParams, seed seedFunc) (*instance.Instance, error) {
	name := instance.SanitizeName(params.Name)
	if name == "" {
		return nil, wrapWorkflow(op, params.Name, instance.ErrInvalidName)
	}
	params = params.withDefaults(name)

	if err := p.ws.EnsureLayout(); err != nil {
		return nil, wrapWorkflow(op, name, err)
	}
	if p.ws.Exists(name) {
		return nil, wrapWorkflow(op, name, workspace.ErrInstanceExists)
	}

	// The lock covers the window between scanning sibling claims and
	// persisting our own compose file; without it two concurrent creates
	// can pick the same port.
	fl, err := p.ws.Lock(ctx)
	if err != nil {
		return nil, wrapWorkflow(op, name, err)
	}
	defer func() {
		if fl != nil {
			p.ws.Unlock(fl)
		}
	}()

	primary := params.Port
	if primary != 0 {
		// An explicit port bypasses the allocator entirely; only the
		// unprivileged range is enforced.
		if err := ports.ValidateExplicit(primary); err != nil {
			return nil, wrapWorkflow(op, name, err)
		}
	} else {
		claimed, err := p.ws.ClaimedPorts()
		if err != nil {
			return nil, wrapWorkflow(op, name, err)
		}
		primary, err = ports.Allocate(params.PortStart, p.rng, p.bound, claimed)
		if err != nil {
			return nil, wrapWorkflow(op, name, err)
		}
	}
	adminPort := ports.AdminPort(primary)
	if p.bound(adminPort) {
		// The allocator only guarantees the primary port; a taken admin
		// port degrades phpMyAdmin, not the site itself.
		p.logger.Warn("admin port already bound on host",
			"instance", name,
			"admin_port", adminPort,
		)
	}

	p.logger.Info("provisioning instance",
		"op", op,
		"instance", name,
		"primary_port", primary,
		"admin_port", adminPort,
	)

	dir, err := p.ws.CreateInstanceDir(name)
	if err != nil {
		return nil, wrapWorkflow(op, name, err)
	}

	// Armed from the first filesystem artifact until explicit commit
	guard := p.newGuard(name)
	fail := func(err error) (*instance.Instance, error) {
		guard.Rollback(ctx)
		return nil, wrapWorkflow(op, name, err)
	}

	inst, err := instance.New(name, primary, adminPort, dir)
	if err != nil {
		return fail(err)
	}
	if err := inst.Transition(instance.StatusProvisioning); err != nil {
		return fail(err)
	}
	if err := p.ws.SaveInstance(inst); err != nil {
		return fail(err)
	}

	stackBytes, err := compose.GenerateStack(compose.StackConfig{
		Name:            name,
		PrimaryPort:     primary,
		AdminPort:       adminPort,
		WordPressImage:  params.WordPressImage,
		MySQLImage:      params.MySQLImage,
		PHPMyAdminImage: params.PHPMyAdminImage,
		CLIImage:        params.CLIImage,
	})
	if err != nil {
		return fail(err)
	}
	if err := p.ws.WriteStack(name, stackBytes); err != nil {
		return fail(err)
	}

	// The compose file is on disk; the port claim is visible to siblings
	// and the lock can go.
	p.ws.Unlock(fl)
	fl = nil

	stack, err := p.ws.ParseStack(name)
	if err != nil {
		return fail(err)
	}
	if _, err := p.stacks.StartStack(ctx, inst, stack); err != nil {
		return fail(err)
	}

	if err := p.gate.WaitContainers(ctx, name, serviceNames(stack)); err != nil {
		return fail(err)
	}
	if err := p.gate.WaitDatabase(ctx, name); err != nil {
		return fail(err)
	}

	if err := p.site.CoreInstall(ctx, name, wp.InstallParams{
		URL:           inst.SiteURL(),
		Title:         params.Title,
		AdminUser:     params.AdminUser,
		AdminPassword: params.AdminPassword,
		AdminEmail:    params.AdminEmail,
	}); err != nil {
		return fail(err)
	}

	if seed != nil {
		if err := seed(ctx, inst); err != nil {
			return fail(err)
		}
	}

	if err := p.gate.WaitInstalled(ctx, name); err != nil {
		return fail(err)
	}

	if !p.gate.ConfirmHTTP(ctx, inst.SiteURL()) {
		p.logger.Warn("site ready but not answering over http yet", "instance", name, "url", inst.SiteURL())
	}

	if err := inst.Transition(instance.StatusReady); err != nil {
		return fail(err)
	}
	if err := p.ws.SaveInstance(inst); err != nil {
		return fail(err)
	}

	guard.Commit()
	p.logger.Info("instance ready",
		"op", op,
		"instance", name,
		"url", inst.SiteURL(),
		"admin_url", inst.AdminURL(),
		"db_admin_url", inst.DBAdminURL(),
	)
	return inst, nil
}
