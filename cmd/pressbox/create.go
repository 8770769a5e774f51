package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pressbox/pressbox/internal/core/instance"
	"github.com/pressbox/pressbox/internal/shell/provision"
)

// createFlags holds the flag values shared by create and import.
type createFlags struct {
	port           int
	startPort      int
	title          string
	adminUser      string
	adminPassword  string
	adminEmail     string
	wordpressImage string
	mysqlImage     string
}

func (f *createFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.port, "port", 0, "Explicit primary port (1024-65535); bypasses allocation")
	cmd.Flags().IntVar(&f.startPort, "start-port", 0, "Port the allocation scan starts from")
	cmd.Flags().StringVar(&f.title, "title", "", "Site title (defaults to the instance name)")
	cmd.Flags().StringVar(&f.adminUser, "admin-user", "", "WordPress admin username")
	cmd.Flags().StringVar(&f.adminPassword, "admin-password", "", "WordPress admin password")
	cmd.Flags().StringVar(&f.adminEmail, "admin-email", "", "WordPress admin email")
	cmd.Flags().StringVar(&f.wordpressImage, "wordpress-image", "", "WordPress container image")
	cmd.Flags().StringVar(&f.mysqlImage, "mysql-image", "", "MySQL container image")
}

// params builds CreateParams, letting flags override configured images.
func (f *createFlags) params(name string, cfg *Config) provision.CreateParams {
	wpImage := f.wordpressImage
	if wpImage == "" {
		wpImage = cfg.Images.WordPress
	}
	dbImage := f.mysqlImage
	if dbImage == "" {
		dbImage = cfg.Images.MySQL
	}
	return provision.CreateParams{
		Name:            name,
		Port:            f.port,
		PortStart:       f.startPort,
		Title:           f.title,
		AdminUser:       f.adminUser,
		AdminPassword:   f.adminPassword,
		AdminEmail:      f.adminEmail,
		WordPressImage:  wpImage,
		MySQLImage:      dbImage,
		PHPMyAdminImage: cfg.Images.PHPMyAdmin,
		CLIImage:        cfg.Images.CLI,
	}
}

// NewCreateCmd creates the create command.
func NewCreateCmd() *cobra.Command {
	var flags createFlags

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new WordPress instance",
		Long: `Creates a new WordPress instance: allocates a free port pair, generates
its Docker stack, brings the containers up, installs WordPress, and
waits until the site answers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				inst, err := app.provisioner.Create(ctx, flags.params(args[0], app.config))
				if err != nil {
					return err
				}

				user := flags.adminUser
				if user == "" {
					user = provision.DefaultAdminUser
				}
				password := flags.adminPassword
				if password == "" {
					password = provision.DefaultAdminPassword
				}

				fmt.Printf("✅ Instance %q is ready\n\n", inst.Name)
				printInstanceURLs(inst)
				fmt.Printf("  Login:      %s / %s\n", user, password)
				fmt.Printf("  Directory:  %s\n", inst.Dir)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	var (
		flags   createFlags
		archive string
	)

	cmd := &cobra.Command{
		Use:   "import <name>",
		Short: "Create an instance from an existing site export",
		Long: `Creates a new instance and loads an existing site into it. The archive
is either a snapshot produced by "pressbox snapshot" (database plus
wp-content) or a bare SQL dump. URLs inside the database are rewritten
to the instance's local address.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				inst, err := app.provisioner.Import(ctx, provision.ImportParams{
					CreateParams: flags.params(args[0], app.config),
					DumpPath:     archive,
				})
				if err != nil {
					return err
				}

				fmt.Printf("✅ Instance %q imported\n\n", inst.Name)
				printInstanceURLs(inst)
				fmt.Printf("  Directory:  %s\n", inst.Dir)
				fmt.Println()
				fmt.Println("Admin credentials come from the imported site.")
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&archive, "archive", "", "Snapshot archive (.tar.gz) or SQL dump to load")
	_ = cmd.MarkFlagRequired("archive")
	return cmd
}

func printInstanceURLs(inst *instance.Instance) {
	fmt.Printf("  Site:       %s\n", inst.SiteURL())
	fmt.Printf("  Admin:      %s\n", inst.AdminURL())
	fmt.Printf("  phpMyAdmin: %s\n", inst.DBAdminURL())
}
