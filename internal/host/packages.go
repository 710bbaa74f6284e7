package host

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// PackageManager holds the command prefixes for one distribution family.
// The package names are appended to Query and Install. Python lists the
// family's packages that provide python3 with the venv module.
type PackageManager struct {
	Name    string
	Query   []string
	Install []string
	Env     map[string]string
	Python  []string
}

var (
	Apt = PackageManager{
		Name:    "apt",
		Query:   []string{"dpkg", "-s"},
		Install: []string{"apt-get", "install", "-y"},
		Env:     map[string]string{"DEBIAN_FRONTEND": "noninteractive"},
		Python:  []string{"python3", "python3-venv"},
	}
	Dnf = PackageManager{
		Name:    "dnf",
		Query:   []string{"rpm", "-q"},
		Install: []string{"dnf", "install", "-y"},
		Python:  []string{"python3"},
	}
	Pacman = PackageManager{
		Name:    "pacman",
		Query:   []string{"pacman", "-Q"},
		Install: []string{"pacman", "-S", "--needed", "--noconfirm"},
		Python:  []string{"python"},
	}
)

var osReleasePath = "/etc/os-release"

// DetectPackageManager picks a package manager from /etc/os-release ID and
// ID_LIKE, falling back to whichever installer is on PATH.
func DetectPackageManager() PackageManager {
	if runtime.GOOS != "linux" {
		return PackageManager{}
	}
	if data, err := os.ReadFile(osReleasePath); err == nil {
		if pm, ok := fromOSRelease(string(data)); ok {
			return pm
		}
	}
	for _, pm := range []PackageManager{Apt, Dnf, Pacman} {
		if _, err := exec.LookPath(pm.Install[0]); err == nil {
			return pm
		}
	}
	return PackageManager{}
}

func fromOSRelease(s string) (PackageManager, bool) {
	var ids []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "ID=") || strings.HasPrefix(line, "ID_LIKE=") {
			v := line[strings.IndexByte(line, '=')+1:]
			ids = append(ids, strings.Fields(strings.ToLower(strings.Trim(v, `"'`)))...)
		}
	}
	for _, id := range ids {
		switch id {
		case "debian", "ubuntu":
			return Apt, true
		case "fedora", "rhel", "centos", "rocky", "almalinux":
			return Dnf, true
		case "arch", "manjaro", "endeavouros":
			return Pacman, true
		}
	}
	return PackageManager{}, false
}
