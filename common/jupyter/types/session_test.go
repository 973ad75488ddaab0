package types_test

import (
	"encoding/hex"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/notebook-kernel/common/jupyter/types"
)

// signatureFrame selects the signature rather than a signed part.
const signatureFrame = -1

var _ = Describe("Session", func() {
	parts := [][]byte{[]byte(`{"msg_id":"1"}`), []byte("{}"), []byte("{}"), []byte(`{"code":"x"}`)}

	It("Will sign with HMAC-SHA256 over the parts in order", func() {
		session := types.NewSession("secret")
		Expect(session.Signed()).To(BeTrue())
		Expect(session.Username).To(Equal(types.SessionDefaultUsername))
		Expect(session.ID).ToNot(BeEmpty())

		signature := session.Sign(parts)
		Expect(signature).To(HaveLen(64))
		Expect(session.Verify(parts, []byte(signature))).To(Succeed())

		reordered := [][]byte{parts[1], parts[0], parts[2], parts[3]}
		Expect(session.Verify(reordered, []byte(signature))).To(MatchError(types.ErrBadSignature))
	})

	DescribeTable("Will reject a message with a single bit flipped",
		func(frame int, offset int, bit byte) {
			session := types.NewSession("secret")
			signature := session.Sign(parts)

			tampered := make([][]byte, len(parts))
			for i, part := range parts {
				tampered[i] = append([]byte{}, part...)
			}
			mac, err := hex.DecodeString(signature)
			Expect(err).To(BeNil())

			target := mac
			if frame != signatureFrame {
				target = tampered[frame]
			}
			if offset < 0 {
				offset += len(target)
			}
			target[offset] ^= bit

			Expect(session.Verify(tampered, []byte(hex.EncodeToString(mac)))).To(MatchError(types.ErrBadSignature))
		},
		Entry("first byte of the header", 0, 0, byte(0x01)),
		Entry("last byte of the header", 0, -1, byte(0x80)),
		Entry("first byte of the parent header", 1, 0, byte(0x01)),
		Entry("last byte of the parent header", 1, -1, byte(0x40)),
		Entry("first byte of the metadata", 2, 0, byte(0x02)),
		Entry("last byte of the metadata", 2, -1, byte(0x01)),
		Entry("first byte of the content", 3, 0, byte(0x01)),
		Entry("middle of the content", 3, 5, byte(0x10)),
		Entry("last byte of the content", 3, -1, byte(0x80)),
		Entry("first byte of the signature", signatureFrame, 0, byte(0x01)),
		Entry("last byte of the signature", signatureFrame, -1, byte(0x80)),
	)

	It("Will distinguish malformed signatures from wrong ones", func() {
		session := types.NewSession("secret")
		Expect(session.Verify(parts, []byte("zz"))).To(MatchError(types.ErrInvalidHmac))
		Expect(session.Verify(parts, []byte(types.NewSession("other").Sign(parts)))).To(MatchError(types.ErrBadSignature))
	})

	It("Will accept anything without a key", func() {
		session := types.NewSession("")
		Expect(session.Signed()).To(BeFalse())
		Expect(session.Sign(parts)).To(BeEmpty())
		Expect(session.Verify(parts, []byte("whatever"))).To(Succeed())
	})

	It("Will only accept the hmac-sha256 scheme", func() {
		_, err := types.NewSessionWithScheme("secret", "hmac-md5")
		Expect(err).To(MatchError(types.ErrUnsupportedSignatureScheme))

		session, err := types.NewSessionWithScheme("secret", types.JupyterSignatureScheme)
		Expect(err).To(BeNil())
		Expect(session.Signed()).To(BeTrue())

		session, err = types.NewSessionWithScheme("", "hmac-md5")
		Expect(err).To(BeNil())
		Expect(session.Signed()).To(BeFalse())
	})

	It("Will give every session its own id", func() {
		Expect(types.NewSession("").ID).ToNot(Equal(types.NewSession("").ID))
	})
})
