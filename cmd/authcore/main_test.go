package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

const fixture = "../../policy/testdata/brokerage.yaml"

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(args, &out, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return code, out.String()
}

func TestMaskEncodeDecode(t *testing.T) {
	code, out := runCLI(t, "mask", "encode", "VIEW", "edit,DELETE")
	if code != 0 || strings.TrimSpace(out) != "0x000d" {
		t.Fatalf("expected 0x000d, got code=%d out=%q", code, out)
	}

	code, out = runCLI(t, "mask", "decode", "0x000D")
	if code != 0 || strings.TrimSpace(out) != "VIEW,EDIT,DELETE" {
		t.Fatalf("expected VIEW,EDIT,DELETE, got code=%d out=%q", code, out)
	}

	if code, _ := runCLI(t, "mask", "decode", "0x1"); code != 1 {
		t.Fatalf("expected malformed mask to fail, got %d", code)
	}
	if code, _ := runCLI(t, "mask", "encode", "FLY"); code != 1 {
		t.Fatalf("expected unknown action to fail, got %d", code)
	}
}

func TestExpand(t *testing.T) {
	code, out := runCLI(t, "expand", "COMPANY_ADMIN")
	if code != 0 || out != "COMPANY_ADMIN\nAGENT\nUSER\n" {
		t.Fatalf("unexpected expansion: code=%d out=%q", code, out)
	}
	code, out = runCLI(t, "expand", "--policy", fixture, "agent")
	if code != 0 || out != "AGENT\nUSER\n" {
		t.Fatalf("unexpected expansion from policy: code=%d out=%q", code, out)
	}
	if code, _ := runCLI(t, "expand", "JANITOR"); code != 1 {
		t.Fatalf("expected unknown role to fail, got %d", code)
	}
}

func TestCheckPolicy(t *testing.T) {
	code, out := runCLI(t, "check", "-p", fixture)
	if code != 0 {
		t.Fatalf("expected success, got %d: %s", code, out)
	}
	for _, want := range []string{
		"issuer: brokerdesk",
		"hierarchy: SUPER_ADMIN > ADMIN > COMPANY_ADMIN > AGENT > USER",
		"operation deal.approve: all of [deal:VIEW|APPROVE] sensitivity=high",
		"operation deal.pay: all of [deal:EDIT] sensitivity=standard parameters=transaction_value",
		"operation document.open: any of",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if code, _ := runCLI(t, "check"); code != 2 {
		t.Fatalf("expected usage error without --policy, got %d", code)
	}
}

func TestLint(t *testing.T) {
	code, out := runCLI(t, "lint", "--audit", "--binding-key")
	if code != 0 || out != "" {
		t.Fatalf("expected clean defaults, got code=%d out=%q", code, out)
	}

	code, out = runCLI(t, "lint", "--ttl", "30m", "--no-device-binding")
	if code != 1 {
		t.Fatalf("expected high finding exit code, got %d", code)
	}
	if !strings.Contains(out, "ttl_long") || !strings.Contains(out, "device_binding_optional") {
		t.Fatalf("expected findings in output, got %q", out)
	}
}

func TestUsage(t *testing.T) {
	if code, out := runCLI(t); code != 2 || !strings.Contains(out, "usage: authcore") {
		t.Fatalf("expected usage, got code=%d out=%q", code, out)
	}
	if code, _ := runCLI(t, "frobnicate"); code != 2 {
		t.Fatalf("expected unknown command usage error, got %d", code)
	}
}
