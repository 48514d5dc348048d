package upstream

import (
	"os"
	"testing"
)

func TestConfigEqualStructural(t *testing.T) {
	a := Config{Transport: TransportStdio, Command: "v1"}
	b := Config{Transport: TransportStdio, Command: "v1"}
	c := Config{Transport: TransportStdio, Command: "v2"}
	if !a.Equal(b) {
		t.Fatal("expected equal configs to compare equal")
	}
	if a.Equal(c) {
		t.Fatal("expected different configs to compare unequal")
	}
}

func TestExpandEnvResolvesAndWarnsUnset(t *testing.T) {
	os.Setenv("SPIKE_TEST_VAR", "resolved")
	defer os.Unsetenv("SPIKE_TEST_VAR")

	cfg := Config{Env: map[string]string{
		"A": "${SPIKE_TEST_VAR}",
		"B": "${SPIKE_TEST_VAR_UNSET}",
	}}
	expanded, unset := cfg.ExpandEnv()
	if expanded["A"] != "resolved" {
		t.Fatalf("expected resolved, got %q", expanded["A"])
	}
	if expanded["B"] != "" {
		t.Fatalf("expected empty for unset var, got %q", expanded["B"])
	}
	if len(unset) != 1 || unset[0] != "SPIKE_TEST_VAR_UNSET" {
		t.Fatalf("expected one unset warning, got %v", unset)
	}
}

func TestAuthTokenFromEnv(t *testing.T) {
	cfg := Config{Env: map[string]string{AuthTokenEnvVar: "secret"}}
	token, ok := cfg.AuthToken()
	if !ok || token != "secret" {
		t.Fatalf("expected secret token, got %q ok=%v", token, ok)
	}
}

func TestSplitCommand(t *testing.T) {
	cmd, args := SplitCommand("node server.js --verbose")
	if cmd != "node" {
		t.Fatalf("expected node, got %s", cmd)
	}
	if len(args) != 2 || args[0] != "server.js" || args[1] != "--verbose" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestValidateRequiresFieldsPerTransport(t *testing.T) {
	if (Config{Transport: TransportStdio}).Validate() == nil {
		t.Fatal("expected error for stdio config without command")
	}
	if (Config{Transport: TransportHTTPStreaming}).Validate() == nil {
		t.Fatal("expected error for http config without url")
	}
	if (Config{Transport: TransportStdio, Command: "node"}).Validate() != nil {
		t.Fatal("expected valid stdio config to pass")
	}
}
