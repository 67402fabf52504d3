package widget

import "github.com/putto11262002/roomchat/settings"

// View is the surface the controller draws on.
type View interface {
	settings.Applier
	settings.TypingView

	// SetMessages replaces the rendered messages of the chat pane.
	SetMessages(html string)
	// SetActiveRoom marks the control of roomID active and every other control
	// inactive. Unknown rooms leave every control inactive.
	SetActiveRoom(roomID int)
	SetChannelPlaceholder(name string)
	SetCharCount(n int)
	SetClock(hhmm string)
	SetMode(mode Mode)
	// ClearDraft empties the draft text, attachments and selected GIF.
	ClearDraft()
	// Alert shows a message the user has to acknowledge.
	Alert(msg string)
}
