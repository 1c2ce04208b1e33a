package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricesync/internal/config"
	"pricesync/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, "info", "")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello file")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "pricesync.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
		// keep stderr out of the assertion
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerPromotesComponentAndSet(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithSet(context.Background(), "OP13")
	component := logging.NewComponentLogger(logger, "reconcile")
	logging.WithContext(ctx, component).Info("set flushed", logging.Int("mappings", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO reconcile [OP13]: set flushed") {
		t.Fatalf("expected component and set prefix, got %q", line)
	}
	if !strings.Contains(line, "mappings=3") {
		t.Fatalf("expected attribute in output, got %q", line)
	}
}

func TestJSONLoggerStampsRunID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		RunID:            "run-123",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("alias failed",
		logging.Alias("romance-dawn"),
		logging.Money("market_price", decimal.NewNullDecimal(decimal.RequireFromString("12.50"))),
		logging.Money("median_price", decimal.NullDecimal{}),
		logging.Duration("elapsed", 1500*time.Millisecond),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if record["run_id"] != "run-123" {
		t.Fatalf("expected run_id, got %#v", record)
	}
	if record["level"] != "warn" || record["msg"] != "alias failed" {
		t.Fatalf("unexpected record shape: %#v", record)
	}
	if record[logging.FieldAlias] != "romance-dawn" {
		t.Fatalf("expected alias field, got %#v", record)
	}
	if record["market_price"] != "12.5" || record["median_price"] != "none" {
		t.Fatalf("unexpected money fields: %#v", record)
	}
	if record["elapsed"] != "1.5s" {
		t.Fatalf("expected duration rendered as string, got %#v", record["elapsed"])
	}
	if _, ok := record["ts"].(string); !ok {
		t.Fatalf("expected ts string, got %#v", record["ts"])
	}
}

func TestConsoleLoggerPromotesAlertAndShortensRunID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "alert.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		RunID:            "0f8fad5b-d9cb-469f-a165-70867728950e",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	component := logging.NewComponentLogger(logger, "reconcile")
	logging.WithContext(logging.WithSet(context.Background(), "OP06"), component).Warn(
		"manual mapping not found in set",
		logging.Alert("manual_mapping_orphaned"),
		logging.CardID("OP06-106_p2"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{
		"WARN !manual_mapping_orphaned reconcile [OP06]: manual mapping not found in set",
		"card_id=OP06-106_p2",
		"run_id=0f8fad5b\n",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "manual mapping missing from set", "manual_not_in_set",
		logging.String(logging.FieldImpact, "price cleared"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"event_type=manual_not_in_set", "error_hint=", `impact="price cleared"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}
