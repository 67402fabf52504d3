package core

// MessageCreatedResponse is the body returned after a message is appended.
type MessageCreatedResponse struct {
	Success bool    `json:"success"`
	Message Message `json:"message"`
}

// RenameRoomInput is the body of a rename request and of its response.
type RenameRoomInput struct {
	ChannelName string `json:"channel_name"`
}
