package kernel

import (
	"io"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/comm"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
)

const captureBufferSize = 4096

// StreamCapture replaces one of the process's standard streams with a pipe and publishes
// everything written to it as IOPub stream output.
type StreamCapture struct {
	log logger.Logger

	name      messaging.StreamName
	publisher comm.Publisher
	target    **os.File
	original  *os.File
	writer    *os.File

	once sync.Once
	done chan struct{}
}

// Capture redirects *target, typically &os.Stdout or &os.Stderr, until Restore is called.
func Capture(publisher comm.Publisher, name messaging.StreamName, target **os.File) (*StreamCapture, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrapf(err, "could not create pipe for %s", name)
	}

	c := &StreamCapture{
		name:      name,
		publisher: publisher,
		target:    target,
		original:  *target,
		writer:    writer,
		done:      make(chan struct{}),
	}
	config.InitLogger(&c.log, c)

	*target = writer
	go c.forward(reader)
	return c, nil
}

// CaptureStandardStreams captures both stdout and stderr. The returned function restores them.
func CaptureStandardStreams(publisher comm.Publisher) (restore func(), err error) {
	stdout, err := Capture(publisher, messaging.Stdout, &os.Stdout)
	if err != nil {
		return nil, err
	}
	stderr, err := Capture(publisher, messaging.Stderr, &os.Stderr)
	if err != nil {
		stdout.Restore()
		return nil, err
	}
	return func() {
		stderr.Restore()
		stdout.Restore()
	}, nil
}

func (c *StreamCapture) forward(reader *os.File) {
	defer close(c.done)
	defer reader.Close()

	// pending holds the start of a character whose remaining bytes were not read yet.
	var pending []byte
	buf := make([]byte, captureBufferSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			data := append(pending, buf[:n]...)
			complete := completePrefix(data)
			c.publish(data[:complete])
			pending = append([]byte(nil), data[complete:]...)
		}
		if err != nil {
			c.publish(pending)
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				c.log.Warn("Stopped capturing %s: %v", c.name, err)
			}
			return
		}
	}
}

func (c *StreamCapture) publish(data []byte) {
	if len(data) == 0 {
		return
	}
	c.publisher.Publish(messaging.NewOutputMessage(messaging.StreamOutput{
		Name: c.name,
		Text: string(data),
	}))
}

// completePrefix returns the length of data without a trailing incomplete UTF-8 sequence.
func completePrefix(data []byte) int {
	for i := len(data) - 1; i >= 0 && i > len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if utf8.FullRune(data[i:]) {
				return len(data)
			}
			return i
		}
	}
	return len(data)
}

// Restore puts the original stream back and waits until captured output is published.
func (c *StreamCapture) Restore() {
	c.once.Do(func() {
		*c.target = c.original
		_ = c.writer.Close()
		<-c.done
	})
}
