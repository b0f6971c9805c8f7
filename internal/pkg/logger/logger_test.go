package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitAndLevel(t *testing.T) {
	if err := Init("warn", "json"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if got := GetLevel(); got != zapcore.WarnLevel {
		t.Errorf("GetLevel() = %v, want warn", got)
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if got := GetLevel(); got != zapcore.DebugLevel {
		t.Errorf("GetLevel() after SetLevel = %v, want debug", got)
	}
}

func TestInit_InvalidLevelIsRejectedBeforeFirstInit(t *testing.T) {
	// Init is sync.Once guarded; a second call is a no-op regardless of args.
	_ = Init("error", "json")
	if err := Init("not-a-level", "json"); err != nil {
		t.Errorf("second Init() should be a no-op, got error %v", err)
	}
}

func TestHelpersDoNotPanicAfterInit(t *testing.T) {
	_ = Init("error", "json")

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	_ = With()
	_ = S()
	if HTTPHandler() == nil {
		t.Error("HTTPHandler() returned nil")
	}
	_ = Sync()
}
