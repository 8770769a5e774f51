package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pressbox/pressbox/internal/core/instance"
	"github.com/pressbox/pressbox/internal/shell/snapshot"
	"github.com/pressbox/pressbox/internal/shell/wp"
)

// dumpFileName is the transient name the dump takes inside wp-content while
// it is replayed. The bind mount makes it visible to the cli container.
const dumpFileName = "database.sql"

// ImportParams configures an import workflow: a regular create seeded from
// either a bare SQL dump or a snapshot archive.
type ImportParams struct {
	CreateParams
	DumpPath string
}

// Import provisions a new instance from an existing site export and blocks
// until it is ready. The stack comes up exactly as in create; once
// WordPress is installed the dump is replayed over it and every URL the
// dump carried is rewritten to the local address. Snapshot archives
// additionally restore their wp-content tree before the replay.
func (p *Provisioner) Import(ctx context.Context, params ImportParams) (*instance.Instance, error) {
	const op = "import"

	// Validate the source before allocating a port or touching disk; a
	// typo in the path must not leave anything behind.
	info, err := os.Stat(params.DumpPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapWorkflow(op, params.Name, fmt.Errorf("%w: %s", ErrDumpNotFound, params.DumpPath))
		}
		return nil, wrapWorkflow(op, params.Name, err)
	}
	if info.IsDir() {
		return nil, wrapWorkflow(op, params.Name, fmt.Errorf("%w: %s is a directory", ErrDumpNotFound, params.DumpPath))
	}

	seed := p.seedFromDump(params.DumpPath)
	if snapshot.IsArchive(params.DumpPath) {
		seed = p.seedFromArchive(params.DumpPath)
	}
	return p.provision(ctx, op, params.CreateParams, seed)
}

// seedFromDump stages a bare SQL dump on the bind mount and replays it.
func (p *Provisioner) seedFromDump(dumpPath string) seedFunc {
	return func(ctx context.Context, inst *instance.Instance) error {
		hostPath := filepath.Join(p.ws.ContentDir(inst.Name), dumpFileName)
		if err := copyFile(dumpPath, hostPath); err != nil {
			return fmt.Errorf("failed to stage dump: %w", err)
		}
		p.logger.Info("importing database dump", "instance", inst.Name, "dump", dumpPath)
		return p.replayDump(ctx, inst)
	}
}

// seedFromArchive unpacks a snapshot archive into the fresh instance. The
// extraction leaves the wp-content tree in place and the dump staged at the
// replay location, so the rest is identical to a bare dump import.
func (p *Provisioner) seedFromArchive(archivePath string) seedFunc {
	return func(ctx context.Context, inst *instance.Instance) error {
		manifest, err := snapshot.Unpack(archivePath, p.ws.ContentDir(inst.Name))
		if err != nil {
			return fmt.Errorf("failed to unpack snapshot: %w", err)
		}
		p.logger.Info("restoring snapshot",
			"instance", inst.Name,
			"archive", archivePath,
			"origin", manifest.SiteURL,
		)
		return p.replayDump(ctx, inst)
	}
}

// replayDump imports the staged dump and repoints the site at its local
// URL. The dump travels through the bind-mounted wp-content directory
// instead of an exec stdin stream and is deleted afterwards.
func (p *Provisioner) replayDump(ctx context.Context, inst *instance.Instance) error {
	hostPath := filepath.Join(p.ws.ContentDir(inst.Name), dumpFileName)
	defer os.Remove(hostPath)

	containerPath := wp.ContentMount + "/" + dumpFileName
	if err := p.site.DBImport(ctx, inst.Name, containerPath); err != nil {
		return fmt.Errorf("failed to import dump: %w", err)
	}

	// The dump brought its origin URL along; rewrite it everywhere so
	// links, assets and redirects stay on this instance.
	origin, err := p.site.OptionGet(ctx, inst.Name, "siteurl")
	if err != nil {
		return fmt.Errorf("failed to read origin url: %w", err)
	}
	local := inst.SiteURL()
	if origin != "" && origin != local {
		p.logger.Info("rewriting urls", "instance", inst.Name, "from", origin, "to", local)
		if err := p.site.SearchReplace(ctx, inst.Name, origin, local); err != nil {
			return fmt.Errorf("failed to rewrite urls: %w", err)
		}
	}
	if err := p.site.OptionUpdate(ctx, inst.Name, "siteurl", local); err != nil {
		return fmt.Errorf("failed to update siteurl: %w", err)
	}
	if err := p.site.OptionUpdate(ctx, inst.Name, "home", local); err != nil {
		return fmt.Errorf("failed to update home url: %w", err)
	}
	if err := p.site.RewriteFlush(ctx, inst.Name); err != nil {
		return fmt.Errorf("failed to flush rewrite rules: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
