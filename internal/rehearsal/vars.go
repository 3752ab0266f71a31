package rehearsal

// UserData is the subset of cloud-config the rehearsal seeds use.
type UserData struct {
	Hostname string     `yaml:"hostname"`
	Packages []string   `yaml:"packages,omitempty"`
	FSSetup  []FSSetup  `yaml:"fs_setup,omitempty"`
	Mounts   [][]string `yaml:"mounts,omitempty"`
	RunCmd   [][]string `yaml:"runcmd"`
}

type FSSetup struct {
	Label      string `yaml:"label"`
	Filesystem string `yaml:"filesystem"`
	Device     string `yaml:"device"`
	Partition  string `yaml:"partition"`
}

type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}
