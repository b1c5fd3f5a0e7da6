package models

import (
	"fmt"
	"strconv"
)

// MessageRef points at an existing message that can be copied or edited.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

func (m MessageRef) MessageSig() (string, int64) {
	return strconv.Itoa(m.MessageID), m.ChatID
}

func (m MessageRef) String() string {
	return fmt.Sprintf("Message(%d, %d)", m.MessageID, m.ChatID)
}
