package domain

import (
	"strings"

	"github.com/Scusemua/go-utils/config"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	DefaultKernelName  = "echo"
	DefaultDisplayName = "Echo"
)

var ErrMissingConnectionFile = errors.New("--connection_file is required")

type KernelOptions struct {
	config.LoggerOptions `yaml:",inline" json:"logger_options"`

	ConnectionFile string `name:"connection_file" description:"Path to the connection or registration file written by the front end." json:"connection_file" yaml:"connection_file"`
	Version        bool   `name:"version" description:"Print the kernel version and exit." json:"version" yaml:"version"`
	Install        bool   `name:"install" description:"Install the kernel spec into the Jupyter data directory and exit." json:"install" yaml:"install"`
	KernelName     string `name:"kernel_name" description:"Name of the kernel spec to install." json:"kernel_name" yaml:"kernel_name"`
	MetricsPort    int    `name:"metrics_port" description:"Port to serve Prometheus metrics on. 0 disables the metrics server." json:"metrics_port" yaml:"metrics_port"`
	CaptureStreams bool   `name:"capture_streams" description:"Forward the process's stdout and stderr to the front end." json:"capture_streams" yaml:"capture_streams"`
	QueueSize      int    `name:"queue_size" description:"Capacity of the IOPub and main thread queues." json:"queue_size" yaml:"queue_size"`

	PrettyPrintOptions bool `name:"pretty_print_options" description:"If true, then print the options with indentation at startup." json:"pretty_print_options" yaml:"pretty_print_options"`
}

// CheckUsage reports the options that cannot be used together.
func (opts *KernelOptions) CheckUsage() error {
	if opts.Version || opts.Install {
		return nil
	}
	if opts.ConnectionFile == "" {
		return ErrMissingConnectionFile
	}
	if opts.MetricsPort < 0 {
		return errors.Errorf("invalid --metrics_port %d", opts.MetricsPort)
	}
	return nil
}

func (opts *KernelOptions) String() string {
	m, err := json.Marshal(opts)
	if err != nil {
		panic(err)
	}

	return string(m)
}

// PrettyString is the same as String, except that PrettyString calls json.MarshalIndent instead of json.Marshal.
func (opts *KernelOptions) PrettyString(indentSize int) string {
	indentBuilder := strings.Builder{}
	for i := 0; i < indentSize; i++ {
		indentBuilder.WriteString(" ")
	}

	m, err := json.MarshalIndent(opts, "", indentBuilder.String())
	if err != nil {
		panic(err)
	}

	return string(m)
}
