package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithOrderID(ctx, "order-9")

	log.Error(ctx, "boom", errors.New("boom"))

	entry := buf.String()
	if !strings.Contains(entry, `"request_id":"req-123"`) {
		t.Fatalf("expected request_id to be preserved; entry=%s", entry)
	}
	if !strings.Contains(entry, `"order_id":"order-9"`) {
		t.Fatalf("expected order_id to be preserved; entry=%s", entry)
	}
	if !strings.Contains(entry, `"stack"`) {
		t.Fatalf("expected stack trace on error; entry=%s", entry)
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("expected stack when warn stack enabled")
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	quiet.Warn(context.Background(), "warny")
	if strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("did not expect stack when warn stack disabled")
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("warn"), Output: buf})
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" DEBUG "); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", lvl)
	}
}

func TestLoggerErrorIncludesTypedCode(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Error(context.Background(), "load cart", pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "load cart"))
	if !strings.Contains(buf.String(), `"error_code":"DEPENDENCY_ERROR"`) {
		t.Fatalf("expected error code on entry; entry=%s", buf.String())
	}
}

func TestWithFieldDoesNotLeakIntoParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	parent := log.WithCouponCode(context.Background(), "SAVE10")
	_ = log.WithUserID(parent, "u-1")

	log.Info(parent, "apply")
	if strings.Contains(buf.String(), "u-1") {
		t.Fatalf("child field leaked into parent; entry=%s", buf.String())
	}
	if !strings.Contains(buf.String(), `"coupon_code":"SAVE10"`) {
		t.Fatalf("expected coupon code; entry=%s", buf.String())
	}
}
