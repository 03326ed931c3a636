package kafka

import (
	"time"
)

// 内容生命周期事件类型
const (
	EventUserRegistered = "user_registered"
	EventPostPublished  = "post_published"
	EventPostUpdated    = "post_updated"
	EventPostDeleted    = "post_deleted"
	EventCommentCreated = "comment_created"
)

// Event 出站通知事件，不落库，仅投递到外部队列
// 不携带排序键，消费方需要容忍乱序与重复
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

func NewEvent(eventType string, payload map[string]any) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Publisher 事件出站接口，便于在测试中替换为假实现
type Publisher interface {
	Publish(event *Event)
}
