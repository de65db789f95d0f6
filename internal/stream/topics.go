package stream

// Topic names shared by writers and subscribers

// ConversationTopic carries summary changes (last message, unread flags)
func ConversationTopic(conversationID string) string {
	return "conversation:" + conversationID
}

// MessagesTopic fires only when a message is appended
func MessagesTopic(conversationID string) string {
	return "messages:" + conversationID
}

func NotificationsTopic(userID string) string {
	return "notifications:" + userID
}

func PresenceTopic(userID string) string {
	return "presence:" + userID
}
