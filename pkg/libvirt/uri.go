package libvirt

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// remoteTransports are the URI transports that reach another host.
var remoteTransports = map[string]bool{
	"ssh":     true,
	"libssh":  true,
	"libssh2": true,
	"tcp":     true,
	"tls":     true,
	"ext":     true,
}

// URI is a parsed libvirt connection URI such as qemu:///system or qemu+ssh://host/system.
type URI struct {
	raw       string
	Driver    string
	Transport string
	Host      string
	Path      string
}

func ParseURI(raw string) (URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, fmt.Errorf("parsing connection uri %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return URI{}, fmt.Errorf("connection uri %q has no driver", raw)
	}

	driver, transport, _ := strings.Cut(u.Scheme, "+")
	return URI{
		raw:       raw,
		Driver:    driver,
		Transport: transport,
		Host:      u.Host,
		Path:      u.Path,
	}, nil
}

func (u URI) String() string {
	return u.raw
}

// IsLocal reports whether the hypervisor runs on this host, so that its disk
// images can be opened directly.
func (u URI) IsLocal() bool {
	return u.Host == "" && !remoteTransports[u.Transport]
}

// ResolveDomainDir returns the directory holding the persistent domain
// definitions of a local connection.
//
//	<driver>:///system   -> <configDir>/<driver>
//	<driver>:///session  -> $XDG_CONFIG_HOME/libvirt/<driver>
//	test:///<dir>        -> <dir>
func ResolveDomainDir(u URI, configDir string) (string, error) {
	if !u.IsLocal() {
		return "", fmt.Errorf("connection %s is not local", u)
	}

	switch {
	case u.Driver == "test" && u.Path != "" && u.Path != "/default":
		return u.Path, nil
	case u.Path == "/system" || (u.Path == "/" && u.Driver != "test"):
		return filepath.Join(configDir, u.Driver), nil
	case u.Path == "/session":
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolving session directory of %s: %w", u, err)
			}
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, "libvirt", u.Driver), nil
	default:
		return "", fmt.Errorf("no domain directory for connection %s", u)
	}
}
