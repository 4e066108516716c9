package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"modshield/internal/classify"
	"modshield/internal/transport"
)

func testCallback(data string) *transport.Callback {
	return &transport.Callback{
		ID:        "cb-1",
		ChatID:    -100,
		MessageID: 401,
		FromID:    9,
		FromName:  "Carol",
		Data:      data,
	}
}

func lastAck(t *testing.T, gw *fakeGateway) ack {
	t.Helper()
	if len(gw.acks) == 0 {
		t.Fatal("callback was not acknowledged")
	}
	return gw.acks[len(gw.acks)-1]
}

func TestDismissRequiresCounterStrictlyAboveThreshold(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		allowed bool
	}{
		{"zero", 0, false},
		{"exactly threshold", 20, false},
		{"threshold plus one", 21, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			gw := &fakeGateway{admins: []int64{9}}
			ev := &fakeEvents{}
			e, st := newTestEngine(gw, &fakeClassifier{}, ev)

			cb := testCallback("dismiss:7")
			for i := 0; i < tt.count; i++ {
				if _, err := st.Increment(ctx, cb.ChatID, cb.FromID); err != nil {
					t.Fatalf("Increment: %v", err)
				}
			}

			e.HandleCallback(ctx, cb, defaultPolicy())

			a := lastAck(t, gw)
			if tt.allowed {
				if a.alert {
					t.Fatalf("ack = %+v, want plain acknowledgement", a)
				}
				if len(gw.unrestricted) != 1 || gw.unrestricted[0] != 7 {
					t.Fatalf("unrestricted = %v, want [7]", gw.unrestricted)
				}
				if len(ev.resolved) != 1 || ev.resolved[0].Action != ActionDismiss {
					t.Fatalf("resolved events = %+v", ev.resolved)
				}
				return
			}

			// Admin status does not help here; the counter is the only gate.
			if !a.alert {
				t.Fatalf("ack = %+v, want alert", a)
			}
			if len(gw.unrestricted) != 0 {
				t.Fatalf("unrestricted = %v, want no action", gw.unrestricted)
			}
			if len(ev.resolved) != 0 {
				t.Fatalf("resolved events = %+v, want none", ev.resolved)
			}
		})
	}
}

func TestDismissRetiresCard(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	e, st := newTestEngine(gw, &fakeClassifier{}, &fakeEvents{})

	cb := testCallback("dismiss:7")
	for i := 0; i < 25; i++ {
		if _, err := st.Increment(ctx, cb.ChatID, cb.FromID); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	if err := st.StoreNotification(ctx, cb.ChatID, 7, cb.MessageID); err != nil {
		t.Fatalf("StoreNotification: %v", err)
	}

	e.HandleCallback(ctx, cb, defaultPolicy())

	if len(gw.deleted) != 1 || gw.deleted[0] != cb.MessageID {
		t.Fatalf("deleted = %v, want the pressed card %d", gw.deleted, cb.MessageID)
	}
	if _, ok, _ := st.Notification(ctx, cb.ChatID, 7); ok {
		t.Fatal("pending notification survived dismiss")
	}
}

func TestKickRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{admins: []int64{1, 2}}
	ev := &fakeEvents{}
	e, st := newTestEngine(gw, &fakeClassifier{}, ev)

	// A high counter is irrelevant for kick; only admin status counts.
	cb := testCallback("kick:7")
	for i := 0; i < 100; i++ {
		if _, err := st.Increment(ctx, cb.ChatID, cb.FromID); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	e.HandleCallback(ctx, cb, defaultPolicy())

	a := lastAck(t, gw)
	if !a.alert || a.text != "Only administrators can kick users" {
		t.Fatalf("ack = %+v, want admin denial alert", a)
	}
	if len(gw.banned) != 0 || len(gw.deleted) != 0 {
		t.Fatal("denied kick mutated state")
	}
	if len(ev.resolved) != 0 {
		t.Fatalf("resolved events = %+v, want none", ev.resolved)
	}
}

func TestKickByAdmin(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{admins: []int64{9}}
	ev := &fakeEvents{}
	e, st := newTestEngine(gw, &fakeClassifier{}, ev)

	cb := testCallback("kick:7")
	if err := st.StoreNotification(ctx, cb.ChatID, 7, cb.MessageID); err != nil {
		t.Fatalf("StoreNotification: %v", err)
	}

	e.HandleCallback(ctx, cb, defaultPolicy())

	if len(gw.banned) != 1 || gw.banned[0] != 7 {
		t.Fatalf("banned = %v, want [7]", gw.banned)
	}
	a := lastAck(t, gw)
	if a.alert || a.text != "User has been permanently kicked" {
		t.Fatalf("ack = %+v", a)
	}
	if _, ok, _ := st.Notification(ctx, cb.ChatID, 7); ok {
		t.Fatal("pending notification survived kick")
	}
	if len(ev.resolved) != 1 || ev.resolved[0].Action != ActionKick || ev.resolved[0].UserID != 7 {
		t.Fatalf("resolved events = %+v", ev.resolved)
	}
}

func TestCallbackRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		data string
		text string
	}{
		{"no separator", "dismiss", "Malformed callback data"},
		{"empty", "", "Malformed callback data"},
		{"non-numeric payload", "dismiss:bob", "Invalid user id"},
		{"unknown action", "promote:7", "Unknown action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			gw := &fakeGateway{admins: []int64{9}}
			e, _ := newTestEngine(gw, &fakeClassifier{}, &fakeEvents{})

			e.HandleCallback(ctx, testCallback(tt.data), defaultPolicy())

			a := lastAck(t, gw)
			if !a.alert || a.text != tt.text {
				t.Fatalf("ack = %+v, want alert %q", a, tt.text)
			}
			if len(gw.unrestricted) != 0 || len(gw.banned) != 0 || len(gw.deleted) != 0 {
				t.Fatal("rejected callback mutated state")
			}
		})
	}
}

func TestCallbackGatewayFailureAlerts(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{admins: []int64{9}, banErr: errors.New("user is an administrator of the chat")}
	e, _ := newTestEngine(gw, &fakeClassifier{}, &fakeEvents{})

	e.HandleCallback(ctx, testCallback("kick:7"), defaultPolicy())

	a := lastAck(t, gw)
	if !a.alert {
		t.Fatalf("ack = %+v, want alert on gateway failure", a)
	}
}

func TestCardTextEscapesContent(t *testing.T) {
	msg := testMessage()
	msg.Text = "<b>click</b> & win"
	msg.FromName = "Eve <script>"

	got := cardText(msg, classify.LabelScam)
	for _, raw := range []string{"<b>click</b>", "<script>"} {
		if strings.Contains(got, raw) {
			t.Fatalf("card leaked raw HTML %q:\n%s", raw, got)
		}
	}
}
