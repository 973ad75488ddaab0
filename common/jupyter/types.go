package jupyter

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var (
	ErrReadConnectionFile = errors.New("could not read connection file")
	ErrInvalidTransport   = errors.New("invalid transport")
)

// ConnectionInfo stores the contents of the kernel connection file.
// The definition is compatible with github.com/Scusemua/go-utils/config options.
type ConnectionInfo struct {
	IP              string `json:"ip" name:"ip" description:"The IP address the kernel binds to."`
	Transport       string `json:"transport" name:"transport" description:"The ZeroMQ transport, tcp or ipc."`
	SignatureScheme string `json:"signature_scheme" name:"signature-scheme" description:"The message signing scheme."`
	Key             string `json:"key" name:"key" description:"The message signing key. Empty disables signing."`
	ControlPort     int    `json:"control_port" name:"control-port" description:"The port for control messages."`
	ShellPort       int    `json:"shell_port" name:"shell-port" description:"The port for shell messages."`
	StdinPort       int    `json:"stdin_port" name:"stdin-port" description:"The port for stdin messages."`
	IOPubPort       int    `json:"iopub_port" name:"iopub-port" description:"The port for iopub messages."`
	HBPort          int    `json:"hb_port" name:"hb-port" description:"The port for heartbeat messages."`
}

func (info *ConnectionInfo) String() string {
	m, err := json.Marshal(info)
	if err != nil {
		panic(err)
	}

	return string(m)
}

// PrettyString is the same as String, except that PrettyString calls json.MarshalIndent instead of json.Marshal.
func (info *ConnectionInfo) PrettyString(indentSize int) string {
	indentBuilder := make([]byte, indentSize)
	for i := range indentBuilder {
		indentBuilder[i] = ' '
	}

	m, err := json.MarshalIndent(info, "", string(indentBuilder))
	if err != nil {
		panic(err)
	}

	return string(m)
}

// Endpoint formats the ZeroMQ endpoint for a port of this connection.
// Port 0 asks the transport for any free port.
func (info *ConnectionInfo) Endpoint(port int) string {
	if info.Transport == "ipc" {
		return fmt.Sprintf("ipc://%s-%d", info.IP, port)
	}
	if port == 0 {
		return fmt.Sprintf("tcp://%s:0", info.IP)
	}
	return fmt.Sprintf("tcp://%s:%d", info.IP, port)
}

func (info *ConnectionInfo) Validate() error {
	switch info.Transport {
	case "", "tcp", "ipc":
	default:
		return errors.Wrapf(ErrInvalidTransport, "%q", info.Transport)
	}
	if info.Transport == "" {
		info.Transport = "tcp"
	}
	if info.IP == "" {
		info.IP = "127.0.0.1"
	}
	return nil
}

// RegistrationInfo is the content of a registration file. The kernel picks its own ports
// and reports them to the supervisor listening on RegistrationPort.
type RegistrationInfo struct {
	Transport        string `json:"transport"`
	SignatureScheme  string `json:"signature_scheme"`
	IP               string `json:"ip"`
	Key              string `json:"key"`
	RegistrationPort int    `json:"registration_port"`
}

// AsConnectionInfo returns a connection with every port set to 0.
func (reg *RegistrationInfo) AsConnectionInfo() *ConnectionInfo {
	return &ConnectionInfo{
		IP:              reg.IP,
		Transport:       reg.Transport,
		SignatureScheme: reg.SignatureScheme,
		Key:             reg.Key,
	}
}

// Endpoint is the supervisor's registration endpoint.
func (reg *RegistrationInfo) Endpoint() string {
	return reg.AsConnectionInfo().Endpoint(reg.RegistrationPort)
}

// ReadConnection loads a connection file. A file carrying registration_port is read as a
// registration file, in which case the returned RegistrationInfo is non-nil.
func ReadConnection(path string) (*ConnectionInfo, *RegistrationInfo, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrReadConnectionFile, "%s: %v", path, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(contents, &fields); err != nil {
		return nil, nil, errors.Wrapf(ErrReadConnectionFile, "%s: %v", path, err)
	}

	if _, ok := fields["registration_port"]; ok {
		var reg RegistrationInfo
		if err := json.Unmarshal(contents, &reg); err != nil {
			return nil, nil, errors.Wrapf(ErrReadConnectionFile, "%s: %v", path, err)
		}
		conn := reg.AsConnectionInfo()
		if err := conn.Validate(); err != nil {
			return nil, nil, err
		}
		reg.Transport, reg.IP = conn.Transport, conn.IP
		return conn, &reg, nil
	}

	var conn ConnectionInfo
	if err := json.Unmarshal(contents, &conn); err != nil {
		return nil, nil, errors.Wrapf(ErrReadConnectionFile, "%s: %v", path, err)
	}
	if err := conn.Validate(); err != nil {
		return nil, nil, err
	}
	return &conn, nil, nil
}
