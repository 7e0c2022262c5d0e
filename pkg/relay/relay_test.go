package relay

import (
	"bytes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"testing"
	"time"
)

func TestPacketRoundTrip(t *testing.T) {
	packet := PacketFactory(513, 2, []byte("abc"))
	assert.Equal(t, []byte{0x01, 0x02, 0x02, 0x00, 0x03, 0x00, 0x00, 0x00, 'a', 'b', 'c'}, packet)

	frameID, sliceID, payload, err := ParseHeader(packet)
	require.NoError(t, err)
	assert.Equal(t, uint16(513), frameID)
	assert.Equal(t, uint16(2), sliceID)
	assert.Equal(t, []byte("abc"), payload)
}

func TestParseHeaderErrors(t *testing.T) {
	_, _, _, err := ParseHeader([]byte{1, 2, 3})
	assert.Error(t, err)

	packet := PacketFactory(0, 0, []byte("abc"))
	_, _, _, err = ParseHeader(packet[:len(packet)-1])
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	data := bytes.Repeat([]byte{7}, 2500)
	slices := Split(data, 1000)
	require.Len(t, slices, 3)
	assert.Len(t, slices[0], 1000)
	assert.Len(t, slices[2], 500)

	assert.Len(t, Split(data[:1000], 1000), 1)
	assert.Empty(t, Split(nil, 1000))
	assert.Len(t, Split(data, 0), 3)
}

func TestSenderOverUDP(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer server.Close()

	s, err := Dial(server.LocalAddr().String(), 4)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send([]byte("hello")))
	require.NoError(t, s.Send([]byte("x")))

	buf := make([]byte, 64)
	var got []string
	for i := 0; i < 3; i++ {
		require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := server.ReadFromUDP(buf)
		require.NoError(t, err)
		frameID, sliceID, payload, err := ParseHeader(buf[:n])
		require.NoError(t, err)
		got = append(got, string(rune('0'+frameID))+string(rune('0'+sliceID))+":"+string(payload))
	}
	assert.Equal(t, []string{"00:hell", "01:o", "10:x"}, got)
}

func TestSenderFrameIDWraps(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := b.Read(buf); err != nil {
				return
			}
		}
	}()

	s := NewSender(a, 0)
	s.frameID = 65534
	require.NoError(t, s.Send([]byte("a")))
	assert.Equal(t, uint16(0), s.frameID)
	require.NoError(t, s.Close())
}
