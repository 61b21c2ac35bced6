package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"donation-tracker/internal/donation"
)

func sampleNote() Notification {
	return Notification{
		NewDonations: []donation.Record{{
			Hash:            "0xabcdef0123456789",
			TimestampMillis: 1_700_000_000_000,
			AmountWei:       "1500000000000000000",
			Amount:          1.5,
			Sender:          "0x1111222233334444",
		}},
		Total:  12.5,
		Goal:   100,
		Symbol: "BNB",
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if received["text"] == "" {
		t.Fatalf("text 应非空")
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestRenderMessage(t *testing.T) {
	note := sampleNote()
	note.ExplorerTx = "https://bscscan.com/tx/"

	msg := renderMessage(note)
	for _, want := range []string{
		"[New Donation]",
		"1.5 BNB from 0x1111…4444",
		"https://bscscan.com/tx/0xabcdef0123456789",
		"Total: 12.5 BNB",
		"Goal: 100 BNB (12.5%)",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("消息缺少 %q:\n%s", want, msg)
		}
	}

	note.GoalReached = true
	if !strings.HasPrefix(renderMessage(note), "[Donation Goal Reached]") {
		t.Fatal("达成目标时应使用目标标题")
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
