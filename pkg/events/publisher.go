package events

import (
	"context"
	"fmt"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"time"
)

// Publisher 把事件编码为 protobuf Struct 并发布到 <prefix>/events 与 <prefix>/status
type Publisher struct {
	broker  *Broker
	prefix  string
	session string
	now     func() time.Time
}

func NewPublisher(broker *Broker, prefix, session string) *Publisher {
	return &Publisher{broker: broker, prefix: prefix, session: session, now: time.Now}
}

func (p *Publisher) EventsTopic() string { return p.prefix + "/events" }
func (p *Publisher) StatusTopic() string { return p.prefix + "/status" }

// Notify 发布一条生命周期事件，失败只记录日志
func (p *Publisher) Notify(event string, fields map[string]any) {
	if err := p.publish(p.EventsTopic(), event, fields); err != nil {
		logrus.Warnf("事件发布失败 %s: %v", event, err)
	}
}

// RunStatus 按固定间隔发布状态，直到 ctx 结束
func (p *Publisher) RunStatus(ctx context.Context, interval time.Duration, status func() map[string]any) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.publish(p.StatusTopic(), "status", status()); err != nil {
				logrus.Warnf("状态发布失败: %v", err)
			}
		}
	}
}

func (p *Publisher) publish(topic, event string, fields map[string]any) error {
	out, err := Encode(p.session, event, p.now(), fields)
	if err != nil {
		return err
	}
	return p.broker.Publish(topic, out, false)
}

// Encode 组装并序列化消息
func Encode(session, event string, at time.Time, fields map[string]any) ([]byte, error) {
	m := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		m[k] = normalize(v)
	}
	m["session"] = session
	m["event"] = event
	m["time"] = at.Format(time.RFC3339Nano)

	msg, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("构造消息失败: %w", err)
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("事件 %s", protojson.Format(msg))
	}
	return proto.Marshal(msg)
}

// Decode 反序列化 Encode 生成的负载
func Decode(payload []byte) (map[string]any, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	return msg.AsMap(), nil
}

// structpb 只接受基础类型
func normalize(v any) any {
	switch t := v.(type) {
	case time.Duration:
		return t.Seconds()
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	case nil:
		return nil
	}
	if _, err := structpb.NewValue(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}
