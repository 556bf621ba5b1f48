package models

import "strings"

// SettingSnapshot is the current state of one firmware setting.
type SettingSnapshot struct {
	Name     string
	RawState string
}

// ParseSetting splits a "Name,Value" line as reported by the firmware. Newer
// firmware appends ";[Optional:...]" to the value; that suffix is dropped.
func ParseSetting(line string) (SettingSnapshot, bool) {
	name, value, ok := strings.Cut(line, ",")
	if !ok || strings.TrimSpace(name) == "" {
		return SettingSnapshot{}, false
	}
	if i := strings.Index(value, ";"); i >= 0 {
		value = value[:i]
	}
	return SettingSnapshot{
		Name:     strings.TrimSpace(name),
		RawState: strings.TrimSpace(value),
	}, true
}

// CommandString is the vendor-defined argument of the set-setting call.
type CommandString struct {
	Setting  string
	Verb     string
	Password string // sent as is, may carry ",<encoding>,<kbdlang>"
}

// String joins the tokens verbatim: "<name>,<verb>[,<password>]".
func (c CommandString) String() string {
	tokens := []string{c.Setting, c.Verb}
	if c.Password != "" {
		tokens = append(tokens, c.Password)
	}
	return strings.Join(tokens, ",")
}

// Redacted is String with the password masked, safe for logs.
func (c CommandString) Redacted() string {
	if c.Password == "" {
		return c.String()
	}
	return CommandString{Setting: c.Setting, Verb: c.Verb, Password: "********"}.String()
}
