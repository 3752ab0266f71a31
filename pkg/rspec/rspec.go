package rspec

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

const (
	NamespaceRSpec  = "http://www.geni.net/resources/rspec/3"
	NamespaceEmulab = "http://www.protogeni.net/resources/rspec/ext/emulab/1"
	NamespaceTour   = "http://www.protogeni.net/resources/rspec/ext/apt-tour/1"
	NamespaceXSI    = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaLocation  = "http://www.geni.net/resources/rspec/3 http://www.geni.net/resources/rspec/3/request.xsd"

	SliverTypeRawPC = "raw-pc"
)

// Request is the root of a GENI v3 request RSpec.
type Request struct {
	XMLName        xml.Name `xml:"rspec" json:"-"`
	Xmlns          string   `xml:"xmlns,attr" json:"-"`
	XmlnsEmulab    string   `xml:"xmlns:emulab,attr" json:"-"`
	XmlnsTour      string   `xml:"xmlns:tour,attr,omitempty" json:"-"`
	XmlnsXSI       string   `xml:"xmlns:xsi,attr" json:"-"`
	SchemaLocation string   `xml:"xsi:schemaLocation,attr" json:"-"`
	Type           string   `xml:"type,attr" json:"type"`
	Tour           *Tour    `xml:"tour:rspec_tour,omitempty" json:"tour,omitempty"`
	Nodes          []Node   `xml:"node" json:"nodes"`
}

// Tour carries the profile description shown by the portal.
type Tour struct {
	Description  *TourText `xml:"tour:description,omitempty" json:"description,omitempty"`
	Instructions *TourText `xml:"tour:instructions,omitempty" json:"instructions,omitempty"`
}

type TourText struct {
	Type string `xml:"type,attr" json:"type"`
	Text string `xml:",chardata" json:"text"`
}

// Node is a single requested machine.
type Node struct {
	ClientID     string       `xml:"client_id,attr" json:"client_id"`
	Exclusive    bool         `xml:"exclusive,attr" json:"exclusive"`
	SliverType   SliverType   `xml:"sliver_type" json:"sliver_type"`
	HardwareType HardwareType `xml:"hardware_type" json:"hardware_type"`
	Services     *Services    `xml:"services,omitempty" json:"services,omitempty"`
	BlockStore   *BlockStore  `xml:"emulab:blockstore,omitempty" json:"blockstore,omitempty"`
}

type SliverType struct {
	Name      string     `xml:"name,attr" json:"name"`
	DiskImage *DiskImage `xml:"disk_image,omitempty" json:"disk_image,omitempty"`
}

type DiskImage struct {
	Name string `xml:"name,attr" json:"name"`
}

type HardwareType struct {
	Name string `xml:"name,attr" json:"name"`
}

type Services struct {
	Execute []Execute `xml:"execute" json:"execute"`
}

// Execute is a boot command run by the node at startup.
type Execute struct {
	Shell   string `xml:"shell,attr" json:"shell"`
	Command string `xml:"command,attr" json:"command"`
}

// BlockStore is extra local storage attached to a node.
type BlockStore struct {
	Name       string `xml:"name,attr" json:"name"`
	MountPoint string `xml:"mountpoint,attr" json:"mountpoint"`
	Class      string `xml:"class,attr" json:"class"`
	Size       string `xml:"size,attr" json:"size"`
	Placement  string `xml:"placement,attr" json:"placement"`
	SizeGB     int    `xml:"-" json:"size_gb"`
}

// NewRequest returns an empty request document with the namespaces the portal expects.
func NewRequest() *Request {
	return &Request{
		Xmlns:          NamespaceRSpec,
		XmlnsEmulab:    NamespaceEmulab,
		XmlnsXSI:       NamespaceXSI,
		SchemaLocation: SchemaLocation,
		Type:           "request",
	}
}

// SetTour attaches markdown description and instructions. Empty strings are skipped.
func (r *Request) SetTour(description, instructions string) {
	if description == "" && instructions == "" {
		r.Tour = nil
		r.XmlnsTour = ""
		return
	}

	tour := &Tour{}
	if description != "" {
		tour.Description = &TourText{Type: "markdown", Text: description}
	}
	if instructions != "" {
		tour.Instructions = &TourText{Type: "markdown", Text: instructions}
	}
	r.Tour = tour
	r.XmlnsTour = NamespaceTour
}

// NewRawPC returns an exclusive bare-metal node.
func NewRawPC(clientID, hardwareType, diskImage string) Node {
	return Node{
		ClientID:  clientID,
		Exclusive: true,
		SliverType: SliverType{
			Name:      SliverTypeRawPC,
			DiskImage: &DiskImage{Name: diskImage},
		},
		HardwareType: HardwareType{Name: hardwareType},
	}
}

// AddService appends a boot command to the node.
func (n *Node) AddService(shell, command string) {
	if n.Services == nil {
		n.Services = &Services{}
	}
	n.Services.Execute = append(n.Services.Execute, Execute{Shell: shell, Command: command})
}

// ServiceCommands returns the node's boot commands in execution order.
func (n Node) ServiceCommands() []Execute {
	if n.Services == nil {
		return nil
	}
	return n.Services.Execute
}

// DiskImageName returns the URN of the node's disk image, or an empty string.
func (n Node) DiskImageName() string {
	if n.SliverType.DiskImage == nil {
		return ""
	}
	return n.SliverType.DiskImage.Name
}

// NewBlockStore returns a node-local block store of sizeGB gigabytes.
func NewBlockStore(name, mountPoint string, sizeGB int) *BlockStore {
	return &BlockStore{
		Name:       name,
		MountPoint: mountPoint,
		Class:      "local",
		Size:       strconv.Itoa(sizeGB) + "GB",
		Placement:  "any",
		SizeGB:     sizeGB,
	}
}

// Marshal serializes the request as indented XML with a leading XML declaration.
func Marshal(r *Request) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil request")
	}

	body, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not serialize RSpec to XML: %w", err)
	}

	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}
