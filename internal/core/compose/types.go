package compose

// =============================================================================
// Document - Generation Types
// =============================================================================

// Document is the typed form of a generated docker-compose.yml. Instances are
// always written through this structure and serialized with yaml.v3; no text
// templating is involved anywhere.
type Document struct {
	Services map[string]ServiceDef `yaml:"services"`
	Volumes  map[string]VolumeDef  `yaml:"volumes,omitempty"`
}

// ServiceDef is one service entry in a generated document.
type ServiceDef struct {
	Image       string            `yaml:"image"`
	Command     []string          `yaml:"command,omitempty"`
	User        string            `yaml:"user,omitempty"`
	Restart     string            `yaml:"restart,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []PortDef         `yaml:"ports,omitempty"`
	Volumes     []MountDef        `yaml:"volumes,omitempty"`
	Healthcheck *HealthcheckDef   `yaml:"healthcheck,omitempty"`
}

// PortDef uses the compose long syntax so the published port stays an
// integer field rather than part of a "host:container" string.
type PortDef struct {
	Target    int `yaml:"target"`
	Published int `yaml:"published"`
}

// MountDef is a typed volume mount (long syntax).
type MountDef struct {
	Type   string `yaml:"type"` // bind, volume
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// HealthcheckDef is a service healthcheck definition.
type HealthcheckDef struct {
	Test        []string `yaml:"test"`
	Interval    string   `yaml:"interval,omitempty"`
	Timeout     string   `yaml:"timeout,omitempty"`
	Retries     int      `yaml:"retries,omitempty"`
	StartPeriod string   `yaml:"start_period,omitempty"`
}

// VolumeDef is a named volume entry. Empty means default driver.
type VolumeDef struct{}

// =============================================================================
// ParsedStack - Read-Back Types
// =============================================================================

// ParsedStack is the typed result of reading a compose definition back.
// Decoupled from compose-go types so callers never touch loader internals.
type ParsedStack struct {
	Services []Service `json:"services"`
	Volumes  []Volume  `json:"volumes,omitempty"`
}

// Service represents a single parsed service definition.
type Service struct {
	Name        string            `json:"name"`
	Image       string            `json:"image"`
	Command     []string          `json:"command,omitempty"`
	Entrypoint  []string          `json:"entrypoint,omitempty"`
	User        string            `json:"user,omitempty"`
	Ports       []Port            `json:"ports,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	Volumes     []VolumeMount     `json:"volumes,omitempty"`
	DependsOn   []string          `json:"depends_on,omitempty"`
	Restart     string            `json:"restart,omitempty"`
	HealthCheck *HealthCheck      `json:"healthcheck,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Port represents a parsed port mapping.
type Port struct {
	Target    uint32 `json:"target"`              // Container port
	Published uint32 `json:"published,omitempty"` // Host port (0 = dynamic)
	Protocol  string `json:"protocol,omitempty"`  // tcp, udp
	HostIP    string `json:"host_ip,omitempty"`   // Bind IP
}

// VolumeMount represents a volume mount in a parsed service.
type VolumeMount struct {
	Type     VolumeMountType `json:"type"`     // bind, volume, tmpfs
	Source   string          `json:"source"`   // Path or volume name
	Target   string          `json:"target"`   // Container path
	ReadOnly bool            `json:"readonly"`
}

// VolumeMountType represents the type of volume mount.
type VolumeMountType string

const (
	VolumeMountTypeBind   VolumeMountType = "bind"
	VolumeMountTypeVolume VolumeMountType = "volume"
	VolumeMountTypeTmpfs  VolumeMountType = "tmpfs"
)

// Volume represents a parsed named volume.
type Volume struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
}

// HealthCheck represents a parsed health check configuration.
type HealthCheck struct {
	Test        []string `json:"test"`
	Interval    string   `json:"interval,omitempty"`
	Timeout     string   `json:"timeout,omitempty"`
	Retries     int      `json:"retries,omitempty"`
	StartPeriod string   `json:"start_period,omitempty"`
}

// Service returns the named service, if present.
func (s *ParsedStack) Service(name string) (*Service, bool) {
	for i := range s.Services {
		if s.Services[i].Name == name {
			return &s.Services[i], true
		}
	}
	return nil, false
}

// PrimaryPort returns the host port published for the WordPress service's
// HTTP port. This typed read is what the allocator's sibling scan relies on.
func (s *ParsedStack) PrimaryPort() (int, error) {
	svc, ok := s.Service(ServiceWordPress)
	if !ok {
		return 0, NewParseError("services", "no wordpress service", ErrNoPrimaryPort)
	}
	for _, p := range svc.Ports {
		if p.Target == ContainerHTTPPort && p.Published > 0 {
			return int(p.Published), nil
		}
	}
	return 0, NewParseError("services."+ServiceWordPress+".ports", "no published HTTP port", ErrNoPrimaryPort)
}

// AdminPort returns the host port published for phpMyAdmin, or 0 when the
// stack has no admin service.
func (s *ParsedStack) AdminPort() int {
	svc, ok := s.Service(ServiceAdmin)
	if !ok {
		return 0
	}
	for _, p := range svc.Ports {
		if p.Target == ContainerHTTPPort && p.Published > 0 {
			return int(p.Published)
		}
	}
	return 0
}
