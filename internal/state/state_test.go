package state

import (
	"context"
	"fmt"
	"testing"

	"modshield/internal/store"
)

func TestCounterIncrementAndReset(t *testing.T) {
	ctx := context.Background()
	st := New(store.NewMemory())

	const chatID, userID = 100, 7

	if n, err := st.Count(ctx, chatID, userID); err != nil || n != 0 {
		t.Fatalf("Count(fresh) = %d err=%v, want 0", n, err)
	}

	for i := 1; i <= 5; i++ {
		n, err := st.Increment(ctx, chatID, userID)
		if err != nil {
			t.Fatalf("Increment #%d: %v", i, err)
		}
		if n != i {
			t.Fatalf("Increment #%d = %d, want %d", i, n, i)
		}
	}
	if n, _ := st.Count(ctx, chatID, userID); n != 5 {
		t.Fatalf("Count = %d, want 5", n)
	}

	// Counters are scoped per (chat, user).
	if n, _ := st.Count(ctx, chatID, userID+1); n != 0 {
		t.Fatalf("other user's Count = %d, want 0", n)
	}
	if n, _ := st.Count(ctx, chatID+1, userID); n != 0 {
		t.Fatalf("other chat's Count = %d, want 0", n)
	}

	if err := st.ResetCount(ctx, chatID, userID); err != nil {
		t.Fatalf("ResetCount: %v", err)
	}
	if n, _ := st.Count(ctx, chatID, userID); n != 0 {
		t.Fatalf("Count after reset = %d, want 0", n)
	}
}

func TestCounterKeyLayout(t *testing.T) {
	// The persisted layout is part of the store contract (deployed data
	// depends on it): {userId}:{chatId} for counters.
	ctx := context.Background()
	kv := store.NewMemory()
	st := New(kv)

	if _, err := st.Increment(ctx, 42, 7); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if v, ok, _ := kv.Get(ctx, "7:42"); !ok || v != "1" {
		t.Fatalf("kv[7:42] = %q ok=%v, want \"1\"", v, ok)
	}
}

func TestHistoryFIFOEviction(t *testing.T) {
	tests := []struct {
		appends int
		cap     int
	}{
		{0, 5},
		{3, 5},
		{5, 5},
		{8, 5},
		{20, 3},
		{4, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d cap=%d", tt.appends, tt.cap), func(t *testing.T) {
			ctx := context.Background()
			st := New(store.NewMemory())
			const chatID = 55

			for i := 0; i < tt.appends; i++ {
				msg := Message{FromID: int64(i), Text: fmt.Sprintf("msg-%d", i), Date: int64(i)}
				if err := st.AppendHistory(ctx, chatID, msg, tt.cap); err != nil {
					t.Fatalf("AppendHistory #%d: %v", i, err)
				}

				// Strict bound after every write.
				got, err := st.History(ctx, chatID)
				if err != nil {
					t.Fatalf("History: %v", err)
				}
				if len(got) > tt.cap {
					t.Fatalf("window length %d exceeds cap %d", len(got), tt.cap)
				}
			}

			got, _ := st.History(ctx, chatID)
			want := tt.appends
			if want > tt.cap {
				want = tt.cap
			}
			if len(got) != want {
				t.Fatalf("final length = %d, want %d", len(got), want)
			}
			// Exactly the most recent records, in arrival order.
			for i, m := range got {
				wantText := fmt.Sprintf("msg-%d", tt.appends-want+i)
				if m.Text != wantText {
					t.Fatalf("window[%d].Text = %q, want %q", i, m.Text, wantText)
				}
			}
		})
	}
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	st := New(store.NewMemory())

	for i := 0; i < 3; i++ {
		if err := st.AppendHistory(ctx, 9, Message{FromID: 1, Text: "x"}, 5); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}
	if err := st.ClearHistory(ctx, 9); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	got, err := st.History(ctx, 9)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("history survived clear: %v", got)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	st := New(store.NewMemory())
	const chatID, userID = 5, 6

	if _, ok, err := st.Notification(ctx, chatID, userID); err != nil || ok {
		t.Fatalf("Notification(fresh) = ok=%v err=%v, want absent", ok, err)
	}

	if err := st.StoreNotification(ctx, chatID, userID, 111); err != nil {
		t.Fatalf("StoreNotification: %v", err)
	}
	if id, ok, _ := st.Notification(ctx, chatID, userID); !ok || id != 111 {
		t.Fatalf("Notification = %d ok=%v, want 111", id, ok)
	}

	// A second store supersedes: there is only ever one pointer.
	if err := st.StoreNotification(ctx, chatID, userID, 222); err != nil {
		t.Fatalf("StoreNotification: %v", err)
	}

	id, ok, err := st.TakeNotification(ctx, chatID, userID)
	if err != nil || !ok || id != 222 {
		t.Fatalf("TakeNotification = %d ok=%v err=%v, want 222", id, ok, err)
	}
	if _, ok, _ := st.TakeNotification(ctx, chatID, userID); ok {
		t.Fatal("TakeNotification returned a second pointer")
	}
}
