package actionparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kandev/androidctl/internal/common/apperrors"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

var verbByName = map[string]v1.ActionVerb{
	"launch":    v1.ActionLaunch,
	"tap":       v1.ActionTap,
	"doubletap": v1.ActionDoubleTap,
	"longpress": v1.ActionLongPress,
	"swipe":     v1.ActionSwipe,
	"type":      v1.ActionType,
	"back":      v1.ActionBack,
	"home":      v1.ActionHome,
	"wait":      v1.ActionWait,
	"takeover":  v1.ActionTakeOver,
}

// kwarg holds one parsed keyword argument; value is exactly one of the
// fields below depending on what the lexer produced for it.
type kwarg struct {
	name   string
	str    string
	point  [2]int
	hasPt  bool
	hasStr bool
}

// Parse extracts a single Action from the model's actionText. It accepts
// only `do(action="<verb>", <kwargs>)` and `finish(message="<text>")`;
// anything else, or a well-formed call with a verb or kwarg shape the
// grammar doesn't recognize, is reported as MalformedResponse.
func Parse(actionText string) (v1.Action, error) {
	call, err := extractCall(actionText)
	if err != nil {
		return v1.Action{}, apperrors.MalformedResponseErr(err.Error())
	}

	switch call.name {
	case "finish":
		msg, ok := singleStringArg(call.args, "message")
		if !ok {
			return v1.Action{}, apperrors.MalformedResponseErr(`finish() requires a "message" string argument`)
		}
		return v1.Action{Verb: v1.ActionFinish, Message: msg}, nil
	case "do":
		return parseDo(call.args)
	default:
		return v1.Action{}, apperrors.MalformedResponseErr(fmt.Sprintf("unknown call %q", call.name))
	}
}

func parseDo(args []kwarg) (v1.Action, error) {
	var verbName string
	var found bool
	rest := make(map[string]kwarg, len(args))
	for _, a := range args {
		if a.name == "action" {
			if !a.hasStr {
				return v1.Action{}, apperrors.MalformedResponseErr(`do() "action" argument must be a string`)
			}
			verbName = a.str
			found = true
			continue
		}
		rest[a.name] = a
	}
	if !found {
		return v1.Action{}, apperrors.MalformedResponseErr(`do() requires an "action" argument`)
	}
	verb, ok := verbByName[strings.ToLower(verbName)]
	if !ok {
		return v1.Action{}, apperrors.MalformedResponseErr(fmt.Sprintf("unknown action verb %q", verbName))
	}

	action := v1.Action{Verb: verb}
	if msg, ok := rest["message"]; ok && msg.hasStr {
		action.SensitiveMessage = msg.str
	}

	switch verb {
	case v1.ActionLaunch:
		app, ok := stringKwarg(rest, "app")
		if !ok {
			return v1.Action{}, apperrors.MalformedResponseErr(`Launch requires an "app" argument`)
		}
		action.App = app
	case v1.ActionTap, v1.ActionDoubleTap, v1.ActionLongPress:
		pt, ok := pointKwarg(rest, "element")
		if !ok {
			return v1.Action{}, apperrors.MalformedResponseErr(fmt.Sprintf("%s requires an \"element\" argument", verb))
		}
		action.Point = pt
		if verb == v1.ActionLongPress {
			if d, ok := rest["duration"]; ok && d.hasStr {
				ms, err := parseDuration(d.str)
				if err != nil {
					return v1.Action{}, apperrors.MalformedResponseErr(err.Error())
				}
				action.DurationMs = ms
			}
		}
	case v1.ActionSwipe:
		start, ok := pointKwarg(rest, "start")
		if !ok {
			return v1.Action{}, apperrors.MalformedResponseErr(`Swipe requires a "start" argument`)
		}
		end, ok := pointKwarg(rest, "end")
		if !ok {
			return v1.Action{}, apperrors.MalformedResponseErr(`Swipe requires an "end" argument`)
		}
		action.Start = start
		action.End = end
		if d, ok := rest["duration"]; ok && d.hasStr {
			ms, err := parseDuration(d.str)
			if err != nil {
				return v1.Action{}, apperrors.MalformedResponseErr(err.Error())
			}
			action.DurationMs = ms
		}
	case v1.ActionType:
		text, ok := stringKwarg(rest, "text")
		if !ok {
			return v1.Action{}, apperrors.MalformedResponseErr(`Type requires a "text" argument`)
		}
		action.Text = text
	case v1.ActionWait:
		d, ok := rest["duration"]
		if !ok || !d.hasStr {
			return v1.Action{}, apperrors.MalformedResponseErr(`Wait requires a "duration" argument`)
		}
		ms, err := parseDuration(d.str)
		if err != nil {
			return v1.Action{}, apperrors.MalformedResponseErr(err.Error())
		}
		action.DurationMs = ms
	case v1.ActionTakeOver:
		msg, ok := stringKwarg(rest, "message")
		if !ok {
			return v1.Action{}, apperrors.MalformedResponseErr(`TakeOver requires a "message" argument`)
		}
		action.Message = msg
	case v1.ActionBack, v1.ActionHome:
		// no parameters
	}
	return action, nil
}

func stringKwarg(m map[string]kwarg, name string) (string, bool) {
	a, ok := m[name]
	if !ok || !a.hasStr {
		return "", false
	}
	return a.str, true
}

func pointKwarg(m map[string]kwarg, name string) (v1.RelPoint, bool) {
	a, ok := m[name]
	if !ok || !a.hasPt {
		return v1.RelPoint{}, false
	}
	return v1.RelPoint{X: a.point[0], Y: a.point[1]}, true
}

func singleStringArg(args []kwarg, name string) (string, bool) {
	for _, a := range args {
		if a.name == name && a.hasStr {
			return a.str, true
		}
	}
	return "", false
}

// parseDuration parses the `"N seconds"` shape into milliseconds.
func parseDuration(s string) (int, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 || fields[1] != "seconds" && fields[1] != "second" {
		return 0, fmt.Errorf(`malformed duration %q, expected "N seconds"`, s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("malformed duration %q: %w", s, err)
	}
	return n * 1000, nil
}
