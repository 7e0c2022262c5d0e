// Package relay 把编码后的帧切片后通过 UDP 发送，包头格式:
// frameID(u16) | sliceID(u16) | sliceSize(u32) | payload，小端序。
package relay

import (
	"encoding/binary"
	"fmt"
	"github.com/sirupsen/logrus"
	"net"
	"sync"
)

const HeaderSize = 8

// Codec 转发前对帧的编码方式
type Codec string

const (
	CodecHEVC Codec = "hevc" // libx265 编码的 NAL 单元
	CodecJPEG Codec = "jpeg" // 逐帧 JPEG
)

// DefaultPacketSize UDP 包推荐大小，留出头部空间
const DefaultPacketSize = 1000

func PacketFactory(frameID, sliceID uint16, sliceData []byte) []byte {
	packet := make([]byte, HeaderSize+len(sliceData))
	binary.LittleEndian.PutUint16(packet[0:2], frameID)
	binary.LittleEndian.PutUint16(packet[2:4], sliceID)
	binary.LittleEndian.PutUint32(packet[4:8], uint32(len(sliceData)))
	copy(packet[HeaderSize:], sliceData)
	return packet
}

// ParseHeader 解析包头，返回负载
func ParseHeader(packet []byte) (frameID, sliceID uint16, payload []byte, err error) {
	if len(packet) < HeaderSize {
		return 0, 0, nil, fmt.Errorf("数据包过短: %d 字节", len(packet))
	}
	size := binary.LittleEndian.Uint32(packet[4:8])
	if int(size) != len(packet)-HeaderSize {
		return 0, 0, nil, fmt.Errorf("切片长度不匹配: 头部 %d, 实际 %d", size, len(packet)-HeaderSize)
	}
	return binary.LittleEndian.Uint16(packet[0:2]), binary.LittleEndian.Uint16(packet[2:4]), packet[HeaderSize:], nil
}

// Split 按 packetSize 切分一帧数据
func Split(data []byte, packetSize int) [][]byte {
	if packetSize <= 0 {
		packetSize = DefaultPacketSize
	}
	slices := make([][]byte, 0, (len(data)+packetSize-1)/packetSize)
	for start := 0; start < len(data); start += packetSize {
		end := min(start+packetSize, len(data))
		slices = append(slices, data[start:end])
	}
	return slices
}

// Sender 向固定地址发送帧
type Sender struct {
	mu         sync.Mutex
	conn       net.Conn
	packetSize int
	frameID    uint16
}

func Dial(address string, packetSize int) (*Sender, error) {
	serverAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("无法解析服务器地址: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, serverAddr)
	if err != nil {
		return nil, fmt.Errorf("无法连接到UDP服务器: %w", err)
	}
	logrus.Infof("帧转发目标: %s", serverAddr)
	return NewSender(conn, packetSize), nil
}

func NewSender(conn net.Conn, packetSize int) *Sender {
	if packetSize <= 0 {
		packetSize = DefaultPacketSize
	}
	return &Sender{conn: conn, packetSize: packetSize}
}

// Send 发送一帧的全部切片，单个切片失败只记录日志
func (s *Sender) Send(encodedData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slices := Split(encodedData, s.packetSize)
	if len(slices) > 0xFFFF {
		return fmt.Errorf("帧过大: %d 个切片", len(slices))
	}
	frameID := s.frameID
	s.frameID = (s.frameID + 1) % 65535

	var failed int
	for i, data := range slices {
		if _, err := s.conn.Write(PacketFactory(frameID, uint16(i), data)); err != nil {
			logrus.Errorf("发送切片失败: %v", err)
			failed++
			continue
		}
		logrus.Tracef("发送帧 %d 切片 %d", frameID, i)
	}
	if failed > 0 && failed == len(slices) {
		return fmt.Errorf("帧 %d 的 %d 个切片全部发送失败", frameID, failed)
	}
	return nil
}

func (s *Sender) Close() error {
	return s.conn.Close()
}
