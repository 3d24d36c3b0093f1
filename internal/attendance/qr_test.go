package attendance

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodecRoundTrip(t *testing.T) {
	c := NewQRCodec("secret")
	issued := time.Date(2024, 3, 1, 9, 0, 0, 123, time.UTC)
	data, err := c.Encode(QRPayload{Subject: "Math", Class: "10A", TeacherID: "T1"}, issued)
	require.NoError(t, err)

	var raw map[string]string
	require.NoError(t, json.Unmarshal([]byte(data), &raw))
	assert.Equal(t, "Math", raw["subject"])
	assert.Equal(t, "10A", raw["class"])
	assert.Equal(t, "T1", raw["teacherId"])
	assert.NotEmpty(t, raw["timestamp"])

	p, at, err := c.Decode(data)
	require.NoError(t, err)
	assert.True(t, issued.Equal(at))
	assert.Equal(t, "T1", p.TeacherID)
}

func TestQRCodecRejectsEditedPayload(t *testing.T) {
	c := NewQRCodec("secret")
	data, err := c.Encode(QRPayload{Subject: "Math", Class: "10A", TeacherID: "T1"}, time.Now())
	require.NoError(t, err)

	var p QRPayload
	require.NoError(t, json.Unmarshal([]byte(data), &p))
	p.Timestamp = time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano)
	edited, err := json.Marshal(p)
	require.NoError(t, err)

	_, _, err = c.Decode(string(edited))
	assert.ErrorIs(t, err, errQRSignature)

	_, _, err = c.Decode(`{"subject":"Math"}`)
	assert.ErrorIs(t, err, errQRMalformed)
}

func TestRenderQR(t *testing.T) {
	png, err := RenderQR(`{"subject":"Math"}`, 128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
