package model

const MsgTableName = "messages"

// Message is one direct message between two users.
// Sender, recipient, content and timestamp are immutable once stored; only the
// seen flag transitions, and only false -> true.
type Message struct {
	MsgID    string `bson:"msg_id" json:"msgId"`
	SenderID string `bson:"sender_id" json:"senderId"`
	RecvID   string `bson:"recv_id" json:"recvId"`

	// Content: text and/or an image reference (URL or data URI).
	Text  string `bson:"text,omitempty" json:"text,omitempty"`
	Image string `bson:"image,omitempty" json:"image,omitempty"`

	Seen       bool  `bson:"seen" json:"seen"`
	CreateTime int64 `bson:"create_time" json:"createTime"` // Unix ms
}

// Content is the caller-supplied part of a message.
type Content struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

func (c Content) Empty() bool {
	return c.Text == "" && c.Image == ""
}

// Size is the payload size used against the configured limit.
func (c Content) Size() int {
	return len(c.Text) + len(c.Image)
}
