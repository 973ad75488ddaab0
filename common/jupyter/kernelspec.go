package jupyter

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var ErrNoJupyterDir = errors.New("could not determine the Jupyter data directory")

// KernelSpec is the kernel.json file that tells front ends how to launch a kernel.
type KernelSpec struct {
	Argv        []string          `json:"argv"`
	DisplayName string            `json:"display_name"`
	Language    string            `json:"language"`
	Env         map[string]string `json:"env,omitempty"`
}

// JupyterDir returns the root Jupyter data directory. JUPYTER_PATH wins over the
// platform default.
func JupyterDir() (string, error) {
	if dir := os.Getenv("JUPYTER_PATH"); dir != "" {
		return dir, nil
	}

	if runtime.GOOS != "darwin" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "jupyter"), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrNoJupyterDir, err.Error())
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Jupyter"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "jupyter"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "jupyter"), nil
	default:
		return filepath.Join(home, ".local", "share", "jupyter"), nil
	}
}

// InstallKernelSpec writes kernel.json under kernels/<name> in the Jupyter data directory
// and returns the path written.
func InstallKernelSpec(name string, spec *KernelSpec) (string, error) {
	root, err := JupyterDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(root, "kernels", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "could not create %s", dir)
	}

	contents, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "could not serialize kernel spec")
	}

	path := filepath.Join(dir, "kernel.json")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return "", errors.Wrapf(err, "could not write %s", path)
	}
	return path, nil
}
