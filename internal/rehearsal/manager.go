// Package rehearsal renders a generated profile request into libvirt domains and cloud-init
// seeds, so the boot sequence can be tried on a local KVM host before it reaches the portal.
package rehearsal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"libvirt.org/go/libvirtxml"

	"github.com/terabiome/cloudprofile/pkg/rspec"
)

const (
	rootDiskTarget       = "vda"
	blockStoreDiskTarget = "vdb"
	seedDiskTarget       = "sda"
)

// uuidNamespace keeps rehearsal domain UUIDs stable for a given node and image.
var uuidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/terabiome/cloudprofile/rehearsal"))

type Options struct {
	ImageDir  string
	BaseImage string
	MemoryMB  int
	VCPU      int
	Bridge    string
}

// NodeArtifacts are the paths belonging to one rehearsed node.
type NodeArtifacts struct {
	Name           string
	DomainXMLPath  string
	UserDataPath   string
	MetaDataPath   string
	RootDiskPath   string
	SeedISOPath    string
	BlockStorePath string // empty when the node has no block store
	BlockStoreGB   int
}

// Manager renders rehearsal artifacts.
type Manager struct {
	opts   Options
	logger *slog.Logger
}

// NewManager creates a new rehearsal manager.
func NewManager(opts Options, logger *slog.Logger) (*Manager, error) {
	if opts.ImageDir == "" || opts.BaseImage == "" {
		return nil, fmt.Errorf("rehearsal needs an image directory and a base image")
	}
	if opts.MemoryMB < 1 || opts.VCPU < 1 {
		return nil, fmt.Errorf("rehearsal needs positive memory and vcpu, got %dMB/%d", opts.MemoryMB, opts.VCPU)
	}

	return &Manager{
		opts:   opts,
		logger: logger.With(slog.String("component", "rehearsal")),
	}, nil
}

// Render writes a domain definition and cloud-init seed files for every node under outDir.
func (m *Manager) Render(ctx context.Context, request *rspec.Request, outDir string) ([]NodeArtifacts, error) {
	if request == nil || len(request.Nodes) == 0 {
		return nil, fmt.Errorf("nothing to rehearse: request has no nodes")
	}

	artifacts := make([]NodeArtifacts, 0, len(request.Nodes))
	for _, node := range request.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		nodeArtifacts, err := m.renderNode(node, outDir)
		if err != nil {
			return nil, fmt.Errorf("could not render rehearsal for %s: %w", node.ClientID, err)
		}
		artifacts = append(artifacts, nodeArtifacts)
	}

	m.logger.Info("rendered rehearsal artifacts",
		slog.Int("nodes", len(artifacts)),
		slog.String("dir", outDir),
	)
	return artifacts, nil
}

func (m *Manager) renderNode(node rspec.Node, outDir string) (NodeArtifacts, error) {
	nodeDir := filepath.Join(outDir, node.ClientID)
	if err := os.MkdirAll(nodeDir, 0o755); err != nil {
		return NodeArtifacts{}, fmt.Errorf("failed to create %s: %w", nodeDir, err)
	}

	artifacts := m.ArtifactsFor(node)
	artifacts.DomainXMLPath = filepath.Join(nodeDir, "domain.xml")
	artifacts.UserDataPath = filepath.Join(nodeDir, "user-data")
	artifacts.MetaDataPath = filepath.Join(nodeDir, "meta-data")

	domain := m.Domain(node)
	domainXML, err := domain.Marshal()
	if err != nil {
		return NodeArtifacts{}, fmt.Errorf("could not serialize Libvirt XML to string: %w", err)
	}
	if err := os.WriteFile(artifacts.DomainXMLPath, []byte(domainXML+"\n"), 0o644); err != nil {
		return NodeArtifacts{}, fmt.Errorf("failed to write domain XML: %w", err)
	}
	m.logger.Debug("rendered domain XML", slog.String("node", node.ClientID))

	userData, err := m.UserData(node)
	if err != nil {
		return NodeArtifacts{}, err
	}
	if err := os.WriteFile(artifacts.UserDataPath, userData, 0o644); err != nil {
		return NodeArtifacts{}, fmt.Errorf("failed to write user-data: %w", err)
	}
	m.logger.Debug("rendered user-data", slog.String("node", node.ClientID))

	metaData, err := m.MetaData(node)
	if err != nil {
		return NodeArtifacts{}, err
	}
	if err := os.WriteFile(artifacts.MetaDataPath, metaData, 0o644); err != nil {
		return NodeArtifacts{}, fmt.Errorf("failed to write meta-data: %w", err)
	}
	m.logger.Debug("rendered meta-data", slog.String("node", node.ClientID))

	return artifacts, nil
}

// ArtifactsFor returns the disk and seed paths a node uses inside the image directory.
func (m *Manager) ArtifactsFor(node rspec.Node) NodeArtifacts {
	artifacts := NodeArtifacts{
		Name:         node.ClientID,
		RootDiskPath: filepath.Join(m.opts.ImageDir, node.ClientID+".qcow2"),
		SeedISOPath:  filepath.Join(m.opts.ImageDir, node.ClientID+"-seed.iso"),
	}
	if node.BlockStore != nil {
		artifacts.BlockStorePath = filepath.Join(m.opts.ImageDir, node.BlockStore.Name+".qcow2")
		artifacts.BlockStoreGB = node.BlockStore.SizeGB
	}
	return artifacts
}

// DomainUUID is stable for a node name and disk image.
func DomainUUID(node rspec.Node) uuid.UUID {
	return uuid.NewSHA1(uuidNamespace, []byte(node.ClientID+"|"+node.DiskImageName()))
}

// Domain builds the libvirt domain for a node: root overlay disk, optional block store disk,
// cloud-init seed cdrom and a bridged virtio NIC.
func (m *Manager) Domain(node rspec.Node) libvirtxml.Domain {
	artifacts := m.ArtifactsFor(node)

	disks := []libvirtxml.DomainDisk{
		{
			Device: "disk",
			Driver: &libvirtxml.DomainDiskDriver{Name: "qemu", Type: "qcow2"},
			Source: &libvirtxml.DomainDiskSource{
				File: &libvirtxml.DomainDiskSourceFile{File: artifacts.RootDiskPath},
			},
			Target: &libvirtxml.DomainDiskTarget{Dev: rootDiskTarget, Bus: "virtio"},
		},
	}

	if artifacts.BlockStorePath != "" {
		disks = append(disks, libvirtxml.DomainDisk{
			Device: "disk",
			Driver: &libvirtxml.DomainDiskDriver{Name: "qemu", Type: "qcow2"},
			Source: &libvirtxml.DomainDiskSource{
				File: &libvirtxml.DomainDiskSourceFile{File: artifacts.BlockStorePath},
			},
			Target: &libvirtxml.DomainDiskTarget{Dev: blockStoreDiskTarget, Bus: "virtio"},
		})
	}

	disks = append(disks, libvirtxml.DomainDisk{
		Device: "cdrom",
		Driver: &libvirtxml.DomainDiskDriver{Name: "qemu", Type: "raw"},
		Source: &libvirtxml.DomainDiskSource{
			File: &libvirtxml.DomainDiskSourceFile{File: artifacts.SeedISOPath},
		},
		Target:   &libvirtxml.DomainDiskTarget{Dev: seedDiskTarget, Bus: "sata"},
		ReadOnly: &libvirtxml.DomainDiskReadOnly{},
	})

	return libvirtxml.Domain{
		Type:        "kvm",
		Name:        node.ClientID,
		UUID:        DomainUUID(node).String(),
		Description: fmt.Sprintf("Rehearsal of %s (%s, %s)", node.ClientID, node.HardwareType.Name, node.DiskImageName()),
		Memory: &libvirtxml.DomainMemory{
			Value: uint(m.opts.MemoryMB),
			Unit:  "MiB",
		},
		VCPU: &libvirtxml.DomainVCPU{
			Value: uint(m.opts.VCPU),
		},
		OS: &libvirtxml.DomainOS{
			Type: &libvirtxml.DomainOSType{Arch: "x86_64", Type: "hvm"},
		},
		Devices: &libvirtxml.DomainDeviceList{
			Disks: disks,
			Interfaces: []libvirtxml.DomainInterface{
				{
					Source: &libvirtxml.DomainInterfaceSource{
						Bridge: &libvirtxml.DomainInterfaceSourceBridge{Bridge: m.opts.Bridge},
					},
					Model: &libvirtxml.DomainInterfaceModel{Type: "virtio"},
				},
			},
		},
	}
}

// UserData renders the node's boot commands as cloud-config runcmd entries, keeping each
// command's shell. A block store becomes an ext4 file system mounted where the portal would
// mount it.
func (m *Manager) UserData(node rspec.Node) ([]byte, error) {
	userData := UserData{
		Hostname: node.ClientID,
		Packages: []string{"git"},
	}

	for _, cmd := range node.ServiceCommands() {
		userData.RunCmd = append(userData.RunCmd, []string{cmd.Shell, "-c", cmd.Command})
	}

	if node.BlockStore != nil {
		device := "/dev/" + blockStoreDiskTarget
		userData.FSSetup = []FSSetup{{
			Label:      node.BlockStore.Name,
			Filesystem: "ext4",
			Device:     device,
			Partition:  "none",
		}}
		// Mounts are processed before runcmd, so the entry script sees the store.
		userData.Mounts = [][]string{{device, node.BlockStore.MountPoint, "ext4", "defaults,nofail", "0", "2"}}
	}

	body, err := yaml.Marshal(userData)
	if err != nil {
		return nil, fmt.Errorf("could not serialize user-data: %w", err)
	}

	return append([]byte("#cloud-config\n"), body...), nil
}

func (m *Manager) MetaData(node rspec.Node) ([]byte, error) {
	body, err := yaml.Marshal(MetaData{
		InstanceID:    DomainUUID(node).String(),
		LocalHostname: node.ClientID,
	})
	if err != nil {
		return nil, fmt.Errorf("could not serialize meta-data: %w", err)
	}
	return body, nil
}
