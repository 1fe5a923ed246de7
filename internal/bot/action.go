package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind identifies an inbound seller action.
type ActionKind string

const (
	ActionClaim    ActionKind = "claim"
	ActionDone     ActionKind = "done"
	ActionFail     ActionKind = "fail"
	ActionFeedback ActionKind = "feedback"
)

// Action is one typed inbound event from the messaging channel.
type Action struct {
	Kind       ActionKind
	OrderID    int64
	ActorID    string
	Username   string
	FirstName  string
	CallbackID string
	MessageID  int64
	Reason     string
}

// ParseCallback decodes the callback payloads attached to notification
// buttons: accept_<id>, done_<id>, fail_<id>, feedback_<id>_<reason>.
func ParseCallback(data string) (ActionKind, int64, string, error) {
	switch {
	case strings.HasPrefix(data, "accept_"):
		id, err := parseOrderID(strings.TrimPrefix(data, "accept_"))
		return ActionClaim, id, "", err
	case strings.HasPrefix(data, "done_"):
		id, err := parseOrderID(strings.TrimPrefix(data, "done_"))
		return ActionDone, id, "", err
	case strings.HasPrefix(data, "fail_"):
		id, err := parseOrderID(strings.TrimPrefix(data, "fail_"))
		return ActionFail, id, "", err
	case strings.HasPrefix(data, "feedback_"):
		rest := strings.TrimPrefix(data, "feedback_")
		idStr, reason, ok := strings.Cut(rest, "_")
		if !ok {
			return "", 0, "", fmt.Errorf("malformed feedback callback: %q", data)
		}
		id, err := parseOrderID(idStr)
		return ActionFeedback, id, reason, err
	}
	return "", 0, "", fmt.Errorf("unknown callback: %q", data)
}

func parseOrderID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id: %q", s)
	}
	return id, nil
}

// FailReasonText maps feedback reason codes to the remark stored on the order.
func FailReasonText(code string) string {
	switch code {
	case "wrong_password":
		return "Wrong password"
	case "not_expired":
		return "Membership not expired"
	case "other":
		return "Other reason"
	}
	return "Unknown reason: " + code
}
