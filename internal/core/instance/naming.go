package instance

import "fmt"

// =============================================================================
// Resource Naming Functions
// =============================================================================

// NetworkName generates the Docker network name for an instance.
// Pattern: pressbox_{instanceName}
//
// Example:
//
//	NetworkName("my-blog") // returns "pressbox_my-blog"
func NetworkName(instanceName string) string {
	return fmt.Sprintf("pressbox_%s", instanceName)
}

// VolumeName generates a Docker volume name for an instance.
// Pattern: pressbox_{instanceName}_{volumeName}
//
// Example:
//
//	VolumeName("my-blog", "db_data") // returns "pressbox_my-blog_db_data"
func VolumeName(instanceName, volumeName string) string {
	return fmt.Sprintf("pressbox_%s_%s", instanceName, volumeName)
}

// ContainerName generates a container name for a service in an instance.
// Pattern: pressbox_{instanceName}_{serviceName}
//
// Example:
//
//	ContainerName("my-blog", "wordpress") // returns "pressbox_my-blog_wordpress"
func ContainerName(instanceName, serviceName string) string {
	return fmt.Sprintf("pressbox_%s_%s", instanceName, serviceName)
}
