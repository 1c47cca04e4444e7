// ABOUTME: Version and product identification constants
// ABOUTME: Reported in server health checks, mDNS records and the TUI header
package version

const (
	Version      = "0.3.0"
	Product      = "Backspeak"
	Manufacturer = "harperreed"
)

// String returns the product and version for display
func String() string {
	return Product + " " + Version
}
