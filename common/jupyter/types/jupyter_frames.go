package types

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	JupyterFrameStart int = iota
	JupyterFrameSignature
	JupyterFrameHeader
	JupyterFrameParentHeader
	JupyterFrameMetadata
	JupyterFrameContent
	JupyterFrameBuffers
)

// JupyterFramesRequired is the number of parts that must follow the delimiter.
const JupyterFramesRequired = JupyterFrameBuffers - 1

var (
	JupyterFrameIDSMSG = []byte("<IDS|MSG>")
	JupyterFrameEmpty  = []byte("{}")
)

// JupyterFrame is a simple wrapper around a byte slice to provide a simple interface for encoding/decoding.
type JupyterFrame []byte

func (frame *JupyterFrame) Frame() []byte {
	return *frame
}

func (frame *JupyterFrame) Encode(in any) (err error) {
	*frame, err = json.Marshal(in)
	if err != nil {
		return errors.Wrapf(ErrCannotSerialize, "%v", err)
	}
	return nil
}

// Decode checks that the frame is UTF-8 JSON before unmarshalling it into out.
func (frame *JupyterFrame) Decode(out any) error {
	if !utf8.Valid(*frame) {
		return ErrUtf8
	}
	if !json.Valid(*frame) {
		return errors.Wrapf(ErrJsonParse, "%q", string(*frame))
	}
	if err := json.Unmarshal(*frame, out); err != nil {
		return errors.Wrapf(ErrInvalidPart, "%v", err)
	}
	return nil
}

// JupyterFrames is a Jupyter message starting at the delimiter.
// 0: <IDS|MSG>, 1: Signature, 2: Header, 3: ParentHeader, 4: Metadata, 5: Content[, 6...: Buffers]
type JupyterFrames [][]byte

// NewJupyterFrames assembles the frames of an outgoing message. The signature is left empty until Sign.
func NewJupyterFrames(header, parent, metadata, content []byte, buffers [][]byte) JupyterFrames {
	frames := make(JupyterFrames, JupyterFrameBuffers, JupyterFrameBuffers+len(buffers))
	frames[JupyterFrameStart] = JupyterFrameIDSMSG
	frames[JupyterFrameSignature] = []byte{}
	frames[JupyterFrameHeader] = header
	frames[JupyterFrameParentHeader] = parent
	frames[JupyterFrameMetadata] = metadata
	frames[JupyterFrameContent] = content
	return append(frames, buffers...)
}

// SplitIdentities separates the routing identities from the message frames of a multipart message.
func SplitIdentities(parts [][]byte) ([][]byte, JupyterFrames, error) {
	for i, part := range parts {
		if bytes.Equal(part, JupyterFrameIDSMSG) {
			return parts[:i], JupyterFrames(parts[i:]), nil
		}
	}
	return nil, nil, ErrMissingDelimiter
}

func (frames JupyterFrames) String() string {
	if len(frames) == 0 {
		return "[]"
	}

	var sb strings.Builder
	sb.WriteString("[")
	for i, frame := range frames {
		sb.WriteString("\"" + string(frame) + "\"")
		if i+1 < len(frames) {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

func (frames JupyterFrames) Validate() error {
	if len(frames) < JupyterFrameBuffers {
		found := len(frames) - 1
		if found < 0 {
			found = 0
		}
		return &InsufficientPartsError{Found: found, Expected: JupyterFramesRequired}
	}
	return nil
}

// Verify validates the frame count and checks the signature against the session key.
func (frames JupyterFrames) Verify(session *Session) error {
	if err := frames.Validate(); err != nil {
		return err
	}
	return session.Verify(frames.signed(), frames[JupyterFrameSignature])
}

// Sign fills in the signature frame.
func (frames JupyterFrames) Sign(session *Session) JupyterFrames {
	frames[JupyterFrameSignature] = []byte(session.Sign(frames.signed()))
	return frames
}

func (frames JupyterFrames) signed() [][]byte {
	return frames[JupyterFrameHeader:JupyterFrameBuffers]
}

func (frames JupyterFrames) HeaderFrame() *JupyterFrame {
	return (*JupyterFrame)(&frames[JupyterFrameHeader])
}

func (frames JupyterFrames) ParentHeaderFrame() *JupyterFrame {
	return (*JupyterFrame)(&frames[JupyterFrameParentHeader])
}

func (frames JupyterFrames) MetadataFrame() *JupyterFrame {
	return (*JupyterFrame)(&frames[JupyterFrameMetadata])
}

func (frames JupyterFrames) ContentFrame() *JupyterFrame {
	return (*JupyterFrame)(&frames[JupyterFrameContent])
}

// Buffers returns the binary parts after the content.
func (frames JupyterFrames) Buffers() [][]byte {
	if len(frames) <= JupyterFrameBuffers {
		return nil
	}
	return frames[JupyterFrameBuffers:]
}

// HasParent reports whether the parent header frame carries a header.
// Front ends send "", "{}" or "null" for a message without a parent.
func (frames JupyterFrames) HasParent() bool {
	switch len(frames[JupyterFrameParentHeader]) {
	case 0, 1, 2, 4:
		return false
	default:
		return true
	}
}
