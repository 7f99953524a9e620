package orchestrator

import "github.com/nelmo-ux/container-runway/internal/cgroups"

// Features is the `features` command's output: a static capability
// probe a caller (e.g. a higher-level container manager) can use to
// decide what this build of the runtime supports before invoking it.
type Features struct {
	OCIVersionMin string   `json:"ociVersionMin"`
	OCIVersionMax string   `json:"ociVersionMax"`
	Hooks         []string `json:"hooks"`
	MountOptions  []string `json:"mountOptions"`
	Linux         struct {
		Namespaces  []string `json:"namespaces"`
		CgroupMode  string   `json:"cgroupMode"`
		SystemdMode bool     `json:"systemdCgroup"`
	} `json:"linux"`
}

// DescribeFeatures builds the static Features report.
func DescribeFeatures() *Features {
	f := &Features{
		OCIVersionMin: "1.0.0",
		OCIVersionMax: "1.2.0",
		Hooks: []string{
			"createRuntime", "createContainer", "prestart",
			"startContainer", "poststart", "poststop",
		},
		MountOptions: []string{
			"bind", "rbind", "ro", "rw", "nosuid", "nodev", "noexec",
			"shared", "slave", "private", "unbindable",
		},
	}
	f.Linux.Namespaces = []string{"pid", "uts", "ipc", "net", "mnt", "user", "cgroup"}
	if cgroups.IsUnified() {
		f.Linux.CgroupMode = "v2"
	} else {
		f.Linux.CgroupMode = "v1"
	}
	f.Linux.SystemdMode = true
	return f
}
