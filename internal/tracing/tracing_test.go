package tracing

import (
	"context"
	"os"
	"testing"

	logging "github.com/sirupsen/logrus"
)

func testLogger() *logging.Entry {
	l := logging.New()
	l.SetOutput(os.Stderr)
	return logging.NewEntry(l)
}

func TestStartWithNoCollectorAddrStaysLocal(t *testing.T) {
	exp, err := Start(context.Background(), "reconsim-test", "", testLogger())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if exp == nil {
		t.Fatal("expected a non-nil Exporter even with no collector configured")
	}
	exp.Stop() // must not panic with an empty internal exporter
}

func TestStopOnNilExporterIsSafe(t *testing.T) {
	var exp *Exporter
	exp.Stop() // must not panic on a nil receiver
}

func TestServerAndClientHandlersAreNonNil(t *testing.T) {
	if ServerHandler() == nil {
		t.Fatal("expected a non-nil ServerHandler")
	}
	if ClientHandler() == nil {
		t.Fatal("expected a non-nil ClientHandler")
	}
}
