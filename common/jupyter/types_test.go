package jupyter_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/notebook-kernel/common/jupyter"
)

func writeFile(contents string) string {
	path := filepath.Join(GinkgoT().TempDir(), "kernel.json")
	ExpectWithOffset(1, os.WriteFile(path, []byte(contents), 0o600)).To(Succeed())
	return path
}

var _ = Describe("ConnectionInfo", func() {
	It("Will read a connection file", func() {
		path := writeFile(`{
			"shell_port": 50001, "iopub_port": 50002, "stdin_port": 50003,
			"control_port": 50004, "hb_port": 50005,
			"ip": "0.0.0.0", "key": "a0436f6c-1916-498b-8eb9-e81ab9368e84",
			"transport": "tcp", "signature_scheme": "hmac-sha256", "kernel_name": "echo"
		}`)

		conn, reg, err := jupyter.ReadConnection(path)
		Expect(err).To(BeNil())
		Expect(reg).To(BeNil())
		Expect(conn).To(Equal(&jupyter.ConnectionInfo{
			IP:              "0.0.0.0",
			Transport:       "tcp",
			SignatureScheme: "hmac-sha256",
			Key:             "a0436f6c-1916-498b-8eb9-e81ab9368e84",
			ControlPort:     50004,
			ShellPort:       50001,
			StdinPort:       50003,
			IOPubPort:       50002,
			HBPort:          50005,
		}))
		Expect(conn.Endpoint(conn.ShellPort)).To(Equal("tcp://0.0.0.0:50001"))
	})

	It("Will read a registration file", func() {
		path := writeFile(`{"key": "k", "signature_scheme": "hmac-sha256", "registration_port": 41000}`)

		conn, reg, err := jupyter.ReadConnection(path)
		Expect(err).To(BeNil())
		Expect(reg).ToNot(BeNil())
		Expect(reg.RegistrationPort).To(Equal(41000))
		Expect(reg.Endpoint()).To(Equal("tcp://127.0.0.1:41000"))

		Expect(conn.Key).To(Equal("k"))
		Expect(conn.ShellPort).To(BeZero())
		Expect(conn.Endpoint(conn.ShellPort)).To(Equal("tcp://127.0.0.1:0"))
	})

	It("Will fail on a missing or malformed file", func() {
		_, _, err := jupyter.ReadConnection(filepath.Join(GinkgoT().TempDir(), "missing.json"))
		Expect(err).To(MatchError(jupyter.ErrReadConnectionFile))

		_, _, err = jupyter.ReadConnection(writeFile(`{"shell_port": `))
		Expect(err).To(MatchError(jupyter.ErrReadConnectionFile))

		_, _, err = jupyter.ReadConnection(writeFile(`{"transport": "udp"}`))
		Expect(err).To(MatchError(jupyter.ErrInvalidTransport))
	})

	It("Will default the transport and address", func() {
		conn := &jupyter.ConnectionInfo{}
		Expect(conn.Validate()).To(Succeed())
		Expect(conn.Transport).To(Equal("tcp"))
		Expect(conn.IP).To(Equal("127.0.0.1"))
	})

	It("Will format ipc endpoints", func() {
		conn := &jupyter.ConnectionInfo{Transport: "ipc", IP: "/tmp/kernel"}
		Expect(conn.Endpoint(3)).To(Equal("ipc:///tmp/kernel-3"))
	})
})

var _ = Describe("KernelSpec", func() {
	It("Will install kernel.json under JUPYTER_PATH", func() {
		root := GinkgoT().TempDir()
		GinkgoT().Setenv("JUPYTER_PATH", root)

		dir, err := jupyter.JupyterDir()
		Expect(err).To(BeNil())
		Expect(dir).To(Equal(root))

		path, err := jupyter.InstallKernelSpec("echo", &jupyter.KernelSpec{
			Argv:        []string{"/usr/bin/echo-kernel", "--connection_file", "{connection_file}"},
			DisplayName: "Echo",
			Language:    "echo",
		})
		Expect(err).To(BeNil())
		Expect(path).To(Equal(filepath.Join(root, "kernels", "echo", "kernel.json")))

		contents, err := os.ReadFile(path)
		Expect(err).To(BeNil())
		Expect(string(contents)).To(MatchJSON(`{
			"argv": ["/usr/bin/echo-kernel", "--connection_file", "{connection_file}"],
			"display_name": "Echo",
			"language": "echo"
		}`))
	})
})
