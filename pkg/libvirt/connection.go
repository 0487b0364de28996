package libvirt

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
)

// Connection lists the machines of a libvirt connection from the persistent
// domain definitions found in its configuration directory.
type Connection struct {
	uri    URI
	dir    string
	logger *zap.SugaredLogger
}

// NewConnection returns a connection reading the domain definitions in dir.
func NewConnection(rawURI, dir string) (*Connection, error) {
	u, err := ParseURI(rawURI)
	if err != nil {
		return nil, err
	}
	return &Connection{
		uri:    u,
		dir:    dir,
		logger: zap.S().Named("libvirt").With("uri", rawURI),
	}, nil
}

// Open returns the connection for rawURI. The domain directory of a local
// connection is resolved against configDir. Remote connections are returned
// as they are: they can be registered but never listed.
func Open(rawURI, configDir string) (*Connection, error) {
	u, err := ParseURI(rawURI)
	if err != nil {
		return nil, err
	}
	if !u.IsLocal() {
		return NewConnection(rawURI, "")
	}

	dir, err := ResolveDomainDir(u, configDir)
	if err != nil {
		return nil, err
	}
	return NewConnection(rawURI, dir)
}

func (c *Connection) IsLocal() bool {
	return c.uri.IsLocal()
}

func (c *Connection) URI() string {
	return c.uri.String()
}

// Dir is the directory holding the domain definitions.
func (c *Connection) Dir() string {
	return c.dir
}

// ListMachineIDs returns the UUIDs of the defined domains, sorted.
// A missing directory means that no domain is defined yet.
func (c *Connection) ListMachineIDs(ctx context.Context) ([]string, error) {
	domains, err := c.domains(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(domains))
	for _, d := range domains {
		ids = append(ids, d.ID())
	}
	sort.Strings(ids)
	return ids, nil
}

// GetMachine returns the domain with the given UUID.
func (c *Connection) GetMachine(ctx context.Context, id string) (models.Machine, error) {
	want, err := uuid.Parse(id)
	if err != nil {
		return nil, srvErrors.NewMachineNotFoundError(id)
	}

	domains, err := c.domains(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range domains {
		if d.ID() == want.String() {
			return d, nil
		}
	}
	return nil, srvErrors.NewMachineNotFoundError(id)
}

func (c *Connection) domains(ctx context.Context) ([]*Domain, error) {
	if !c.IsLocal() {
		return nil, srvErrors.NewRemoteConnectionError(c.URI())
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	domains := make([]*Domain, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !IsDomainFile(e.Name()) {
			continue
		}

		d, err := ParseDomainFile(filepath.Join(c.dir, e.Name()))
		if err != nil {
			c.logger.Warnw("skipping domain definition", "file", e.Name(), "error", err)
			continue
		}
		if seen[d.ID()] {
			c.logger.Warnw("duplicate domain uuid", "file", e.Name(), "machine", d.ID())
			continue
		}
		seen[d.ID()] = true
		domains = append(domains, d)
	}
	return domains, nil
}

// IsDomainFile reports whether name looks like a domain definition.
func IsDomainFile(name string) bool {
	return strings.HasSuffix(name, ".xml") && !strings.HasPrefix(name, ".")
}

var _ models.Connection = &Connection{}
