package compose

import "gopkg.in/yaml.v3"

// =============================================================================
// Stack Layout
// =============================================================================

// Service names inside every generated stack.
const (
	ServiceDB        = "db"
	ServiceWordPress = "wordpress"
	ServiceAdmin     = "phpmyadmin"
	ServiceCLI       = "wpcli"
)

// Named volumes inside every generated stack.
const (
	VolumeDBData = "db_data"
	VolumeCore   = "wp_core"
)

// ContentDir is the bind-mounted wp-content directory, relative to the
// instance directory.
const ContentDir = "./wp-content"

// Container-side ports.
const (
	ContainerHTTPPort  = 80
	ContainerMySQLPort = 3306
)

// Default service images. Overridable through configuration.
const (
	DefaultWordPressImage  = "wordpress:6.6-apache"
	DefaultMySQLImage      = "mysql:8.0"
	DefaultPHPMyAdminImage = "phpmyadmin:5"
	DefaultCLIImage        = "wordpress:cli"
)

// Default database credentials for local development stacks.
const (
	DefaultDBName     = "wordpress"
	DefaultDBUser     = "wordpress"
	DefaultDBPassword = "wordpress"
)

// wpUser is the uid:gid the WordPress images run PHP as (www-data). The CLI
// sidecar runs as the same user so files it writes stay owned consistently.
const wpUser = "33:33"

// =============================================================================
// Stack Generation
// =============================================================================

// StackConfig carries everything that varies between generated stacks.
// Zero-valued image and credential fields fall back to the defaults above.
type StackConfig struct {
	Name        string // sanitized instance name
	PrimaryPort int    // host port for the WordPress service
	AdminPort   int    // host port for phpMyAdmin

	WordPressImage  string
	MySQLImage      string
	PHPMyAdminImage string
	CLIImage        string

	DBName         string
	DBUser         string
	DBPassword     string
	DBRootPassword string
}

func (c StackConfig) withDefaults() StackConfig {
	if c.WordPressImage == "" {
		c.WordPressImage = DefaultWordPressImage
	}
	if c.MySQLImage == "" {
		c.MySQLImage = DefaultMySQLImage
	}
	if c.PHPMyAdminImage == "" {
		c.PHPMyAdminImage = DefaultPHPMyAdminImage
	}
	if c.CLIImage == "" {
		c.CLIImage = DefaultCLIImage
	}
	if c.DBName == "" {
		c.DBName = DefaultDBName
	}
	if c.DBUser == "" {
		c.DBUser = DefaultDBUser
	}
	if c.DBPassword == "" {
		c.DBPassword = DefaultDBPassword
	}
	if c.DBRootPassword == "" {
		c.DBRootPassword = c.DBPassword
	}
	return c
}

// NewStackDocument builds the typed compose document for one instance: a
// MySQL service with a healthcheck, the WordPress service publishing the
// primary port, phpMyAdmin publishing the admin port, and a WP-CLI sidecar
// kept alive for exec-based management commands.
func NewStackDocument(cfg StackConfig) *Document {
	cfg = cfg.withDefaults()

	wpEnv := map[string]string{
		"WORDPRESS_DB_HOST":     ServiceDB,
		"WORDPRESS_DB_NAME":     cfg.DBName,
		"WORDPRESS_DB_USER":     cfg.DBUser,
		"WORDPRESS_DB_PASSWORD": cfg.DBPassword,
	}

	wpMounts := []MountDef{
		{Type: "volume", Source: VolumeCore, Target: "/var/www/html"},
		{Type: "bind", Source: ContentDir, Target: "/var/www/html/wp-content"},
	}

	return &Document{
		Services: map[string]ServiceDef{
			ServiceDB: {
				Image:   cfg.MySQLImage,
				Restart: "unless-stopped",
				Environment: map[string]string{
					"MYSQL_ROOT_PASSWORD": cfg.DBRootPassword,
					"MYSQL_DATABASE":      cfg.DBName,
					"MYSQL_USER":          cfg.DBUser,
					"MYSQL_PASSWORD":      cfg.DBPassword,
				},
				Volumes: []MountDef{
					{Type: "volume", Source: VolumeDBData, Target: "/var/lib/mysql"},
				},
				Healthcheck: &HealthcheckDef{
					Test:        []string{"CMD", "mysqladmin", "ping", "-h", "127.0.0.1", "-uroot", "-p" + cfg.DBRootPassword},
					Interval:    "5s",
					Timeout:     "5s",
					Retries:     12,
					StartPeriod: "30s",
				},
			},
			ServiceWordPress: {
				Image:       cfg.WordPressImage,
				Restart:     "unless-stopped",
				DependsOn:   []string{ServiceDB},
				Environment: wpEnv,
				Ports: []PortDef{
					{Target: ContainerHTTPPort, Published: cfg.PrimaryPort},
				},
				Volumes: wpMounts,
			},
			ServiceAdmin: {
				Image:     cfg.PHPMyAdminImage,
				Restart:   "unless-stopped",
				DependsOn: []string{ServiceDB},
				Environment: map[string]string{
					"PMA_HOST":     ServiceDB,
					"PMA_USER":     "root",
					"PMA_PASSWORD": cfg.DBRootPassword,
				},
				Ports: []PortDef{
					{Target: ContainerHTTPPort, Published: cfg.AdminPort},
				},
			},
			ServiceCLI: {
				Image:       cfg.CLIImage,
				Restart:     "unless-stopped",
				User:        wpUser,
				DependsOn:   []string{ServiceDB, ServiceWordPress},
				Command:     []string{"tail", "-f", "/dev/null"},
				Environment: wpEnv,
				Volumes:     wpMounts,
			},
		},
		Volumes: map[string]VolumeDef{
			VolumeDBData: {},
			VolumeCore:   {},
		},
	}
}

// Marshal serializes the document to compose YAML.
func (d *Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// GenerateStack builds and serializes an instance's compose definition.
func GenerateStack(cfg StackConfig) ([]byte, error) {
	return NewStackDocument(cfg).Marshal()
}
