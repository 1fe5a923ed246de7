package bot

import "testing"

func TestParseCallback(t *testing.T) {
	cases := []struct {
		data    string
		kind    ActionKind
		orderID int64
		reason  string
		wantErr bool
	}{
		{data: "accept_17", kind: ActionClaim, orderID: 17},
		{data: "done_3", kind: ActionDone, orderID: 3},
		{data: "fail_9", kind: ActionFail, orderID: 9},
		{data: "feedback_5_wrong_password", kind: ActionFeedback, orderID: 5, reason: "wrong_password"},
		{data: "feedback_5", wantErr: true},
		{data: "accept_abc", wantErr: true},
		{data: "accept_-1", wantErr: true},
		{data: "unknown_1", wantErr: true},
		{data: "", wantErr: true},
	}

	for _, tc := range cases {
		kind, orderID, reason, err := ParseCallback(tc.data)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseCallback(%q): expected error", tc.data)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCallback(%q): %v", tc.data, err)
			continue
		}
		if kind != tc.kind || orderID != tc.orderID || reason != tc.reason {
			t.Errorf("ParseCallback(%q) = %v/%d/%q, want %v/%d/%q",
				tc.data, kind, orderID, reason, tc.kind, tc.orderID, tc.reason)
		}
	}
}

func TestFailReasonText(t *testing.T) {
	if got := FailReasonText("wrong_password"); got != "Wrong password" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := FailReasonText("mystery"); got != "Unknown reason: mystery" {
		t.Fatalf("unexpected fallback: %q", got)
	}
}
