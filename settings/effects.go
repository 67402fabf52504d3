package settings

import "sort"

var fontSizes = map[string]string{
	"small":  "1.0rem",
	"medium": "1.5rem",
	"large":  "2.0rem",
}

var messageGaps = map[string]string{
	"compact":  "20px",
	"cozy":     "40px",
	"spacious": "60px",
}

// Effects are the visual consequences of a Settings value: classes for the
// document body, CSS custom properties for the document root and the
// visibility of per-message elements.
type Effects struct {
	BodyClasses    []string
	CSSVars        map[string]string
	ShowTimestamps bool
	EnterToSend    bool
}

// EffectsOf derives the effects of s. Unknown font sizes and display densities
// produce no custom property.
func EffectsOf(s Settings) Effects {
	e := Effects{
		BodyClasses:    []string{"theme-" + s.Theme},
		CSSVars:        make(map[string]string),
		ShowTimestamps: s.ShowTimestamps,
		EnterToSend:    s.EnterToSend,
	}
	if s.GroupMessages {
		e.BodyClasses = append(e.BodyClasses, "group-messages")
	}

	e.CSSVars["--colour-primary"] = s.PrimaryColor
	e.CSSVars["--colour-secondary"] = s.SecondaryColor
	e.CSSVars["--colour-user"] = s.UserColor
	e.CSSVars["--colour-others"] = s.OthersColor

	if v, ok := fontSizes[s.FontSize]; ok {
		e.CSSVars["--message-font-size"] = v
	}
	if v, ok := messageGaps[s.MessageDisplay]; ok {
		e.CSSVars["--message-gap"] = v
	}

	e.CSSVars["--typing-indicator-display"] = display(s.TypingIndicator, "block")
	e.CSSVars["--read-receipts-display"] = display(s.ReadReceipts, "block")
	e.CSSVars["--online-status-display"] = display(s.ShowOnline, "inline-block")
	e.CSSVars["--notification-sound-enabled"] = flag(s.SoundNotifications)
	e.CSSVars["--desktop-notifications-enabled"] = flag(s.DesktopNotifications)
	e.CSSVars["--enter-to-send"] = flag(s.EnterToSend)
	return e
}

// CSSVarNames returns the custom property names in e in a stable order.
func (e Effects) CSSVarNames() []string {
	names := make([]string, 0, len(e.CSSVars))
	for k := range e.CSSVars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func display(on bool, shown string) string {
	if on {
		return shown
	}
	return "none"
}

func flag(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
