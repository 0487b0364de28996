package libvirt

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
)

type domainXML struct {
	XMLName xml.Name  `xml:"domain"`
	Type    string    `xml:"type,attr"`
	Name    string    `xml:"name"`
	UUID    string    `xml:"uuid"`
	Disks   []diskXML `xml:"devices>disk"`
}

type diskXML struct {
	Type   string `xml:"type,attr"`
	Device string `xml:"device,attr"`
	Driver struct {
		Name string `xml:"name,attr"`
		Type string `xml:"type,attr"`
	} `xml:"driver"`
	Source struct {
		File   string `xml:"file,attr"`
		Dev    string `xml:"dev,attr"`
		Dir    string `xml:"dir,attr"`
		Name   string `xml:"name,attr"`
		Pool   string `xml:"pool,attr"`
		Volume string `xml:"volume,attr"`
	} `xml:"source"`
}

// path is the host path of the disk, empty when the disk has no local source.
func (d diskXML) path() string {
	switch d.Type {
	case models.DiskTypeFile:
		return d.Source.File
	case models.DiskTypeBlock:
		return d.Source.Dev
	case "dir":
		return d.Source.Dir
	default:
		return ""
	}
}

// Domain is a machine defined by a libvirt domain XML document.
type Domain struct {
	id    string
	name  string
	disks []models.DiskDevice
}

func (d *Domain) ID() string   { return d.id }
func (d *Domain) Name() string { return d.name }

func (d *Domain) DiskDevices() []models.DiskDevice {
	return d.disks
}

// ParseDomain decodes a domain XML document. The machine is identified by its UUID.
func ParseDomain(r io.Reader) (*Domain, error) {
	var doc domainXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding domain xml: %w", err)
	}

	id, err := uuid.Parse(doc.UUID)
	if err != nil {
		return nil, fmt.Errorf("domain %q has an invalid uuid %q: %w", doc.Name, doc.UUID, err)
	}

	d := &Domain{
		id:    id.String(),
		name:  doc.Name,
		disks: make([]models.DiskDevice, 0, len(doc.Disks)),
	}
	for _, disk := range doc.Disks {
		device := disk.Device
		if device == "" {
			device = "disk"
		}
		d.disks = append(d.disks, models.DiskDevice{
			Path:   disk.path(),
			Type:   disk.Type,
			Format: disk.Driver.Type,
			Device: device,
		})
	}
	return d, nil
}

// ParseDomainFile reads a domain definition from disk.
func ParseDomainFile(path string) (*Domain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ParseDomain(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
