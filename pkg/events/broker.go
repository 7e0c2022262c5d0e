// Package events 通过内嵌 MQTT broker 对外发布录像生命周期事件与周期状态。
package events

import (
	"fmt"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/logging"
)

// Broker 内嵌的 MQTT 服务器
type Broker struct {
	server *mqtt.Server
}

// StartBroker 启动 broker；address 为空时不监听 TCP，只能通过内联客户端收发
func StartBroker(address string) (*Broker, error) {
	server := mqtt.New(&mqtt.Options{Logger: logging.Slog(), InlineClient: true})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("添加鉴权钩子失败: %w", err)
	}
	if address != "" {
		tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: address})
		if err := server.AddListener(tcp); err != nil {
			return nil, fmt.Errorf("添加监听失败 %s: %w", address, err)
		}
	}
	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("启动 MQTT 服务失败: %w", err)
	}
	logrus.Infof("MQTT 服务已启动: %q", address)
	return &Broker{server: server}, nil
}

// Subscribe 内联订阅，handler 收到主题与负载
func (b *Broker) Subscribe(filter string, id int, handler func(topic string, payload []byte)) error {
	return b.server.Subscribe(filter, id, func(_ *mqtt.Client, _ packets.Subscription, pk packets.Packet) {
		handler(pk.TopicName, pk.Payload)
	})
}

func (b *Broker) Publish(topic string, payload []byte, retain bool) error {
	return b.server.Publish(topic, payload, retain, 0)
}

func (b *Broker) Close() error {
	return b.server.Close()
}
