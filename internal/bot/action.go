package bot

import (
	"strings"
)

type CallbackAction string

const (
	CallbackActionRecheck  CallbackAction = "recheck"
	CallbackActionBack     CallbackAction = "back"
	CallbackActionPlatform CallbackAction = "platform"
)

func (a CallbackAction) String() string {
	return string(a)
}

func (a CallbackAction) DataMatches(data string) bool {
	cringePrefix := "\f" + a.String()
	return data == cringePrefix || strings.HasPrefix(data, cringePrefix+"|")
}

// ParseCallback splits raw callback data of the form "\f<unique>|<payload>".
func ParseCallback(data string) (CallbackAction, string, bool) {
	for _, action := range []CallbackAction{
		CallbackActionRecheck,
		CallbackActionBack,
		CallbackActionPlatform,
	} {
		if action.DataMatches(data) {
			payload := strings.TrimPrefix(data, "\f"+action.String())
			return action, strings.TrimPrefix(payload, "|"), true
		}
	}
	return "", "", false
}
