package attendance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// QRPayload is the text a teacher displays as a QR code and a student redeems.
type QRPayload struct {
	Subject   string `json:"subject"`
	Class     string `json:"class"`
	TeacherID string `json:"teacherId"`
	Timestamp string `json:"timestamp"`
	Sig       string `json:"sig,omitempty"`
}

var (
	errQRMalformed = errors.New("qr payload malformed")
	errQRSignature = errors.New("qr payload signature mismatch")
)

// QRCodec signs and verifies payloads. Payloads carry no server state; the
// signature only proves the server issued them.
type QRCodec struct {
	secret []byte
}

func NewQRCodec(secret string) *QRCodec {
	return &QRCodec{secret: []byte(secret)}
}

// Encode stamps p with issuedAt, signs it and serializes it.
func (c *QRCodec) Encode(p QRPayload, issuedAt time.Time) (string, error) {
	p.Timestamp = issuedAt.UTC().Format(time.RFC3339Nano)
	p.Sig = c.sign(p)
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses data, checks the signature and returns the issue time.
func (c *QRCodec) Decode(data string) (QRPayload, time.Time, error) {
	var p QRPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &p); err != nil {
		return QRPayload{}, time.Time{}, errQRMalformed
	}
	if p.Subject == "" || p.Class == "" || p.Timestamp == "" {
		return QRPayload{}, time.Time{}, errQRMalformed
	}
	issued, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return QRPayload{}, time.Time{}, errQRMalformed
	}
	want, err := hex.DecodeString(c.sign(p))
	if err != nil {
		return QRPayload{}, time.Time{}, errQRSignature
	}
	got, err := hex.DecodeString(p.Sig)
	if err != nil || !hmac.Equal(want, got) {
		return QRPayload{}, time.Time{}, errQRSignature
	}
	return p, issued, nil
}

func (c *QRCodec) sign(p QRPayload) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(p.Subject + "\n" + p.Class + "\n" + p.TeacherID + "\n" + p.Timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// RenderQR draws data as a PNG of size pixels.
func RenderQR(data string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	if size > 1024 {
		size = 1024
	}
	return qrcode.Encode(data, qrcode.Medium, size)
}
