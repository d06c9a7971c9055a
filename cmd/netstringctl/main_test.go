package main

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/netstring/internal/client"
	"github.com/danmuck/netstring/internal/server"
	"github.com/danmuck/netstring/internal/testutil/testlog"
	"github.com/danmuck/netstring/internal/transport"
)

func executeCommand(ctx context.Context, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root := newRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}

func startServer(t *testing.T, handler server.Handler) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfg := server.DefaultConfig()
	cfg.Handler = handler
	svc := server.NewService(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- svc.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-served
	})
	return ln.Addr().String()
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestVersionCommand(t *testing.T) {
	testlog.Start(t)

	out, err := executeCommand(context.Background(), "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "netstringctl version "+version) {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	for _, tc := range []struct {
		kind string
		file string
	}{
		{kind: "serve", file: "serve.toml"},
		{kind: "send", file: "send.yaml"},
	} {
		path := filepath.Join(dir, tc.file)
		if _, err := executeCommand(context.Background(), "config", "init", path, "--kind", tc.kind); err != nil {
			t.Fatalf("config init %s: %v", tc.file, err)
		}
		out, err := executeCommand(context.Background(), "config", "validate", path, "--kind", tc.kind)
		if err != nil {
			t.Fatalf("config validate %s: %v", tc.file, err)
		}
		if !strings.Contains(out, "ok") {
			t.Fatalf("unexpected validate output: %q", out)
		}
	}

	if _, err := executeCommand(context.Background(), "config", "validate", filepath.Join(dir, "send.yaml"), "--kind", "serve"); err == nil {
		t.Fatal("expected send config to fail serve validation")
	}
}

func TestSendPrintsReplies(t *testing.T) {
	testlog.Start(t)

	addr := startServer(t, server.UpperHandler)
	out, err := executeCommand(context.Background(), "send", "--addr", addr, "--timeout", "2s", "hello", "world")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if out != "HELLO\nWORLD\n" {
		t.Fatalf("unexpected send output: got=%q", out)
	}
}

func TestSendNoReplyWithLast(t *testing.T) {
	testlog.Start(t)

	printed := transport.NewBuffer()
	addr := startServer(t, server.PrintHandler(printed))
	if _, err := executeCommand(context.Background(), "send", "--addr", addr, "--no-reply", "--last", "bye", "one", "two"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for printed.String() != "one\ntwo\nbye\n" {
		if time.Now().After(deadline) {
			t.Fatalf("server did not receive messages: got=%q", printed.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendRejectsEmptyInvocation(t *testing.T) {
	testlog.Start(t)

	if _, err := executeCommand(context.Background(), "send", "--addr", freeAddr(t)); err == nil {
		t.Fatal("expected error with no messages")
	}
}

func TestServeRejectsUnknownMode(t *testing.T) {
	testlog.Start(t)

	_, err := executeCommand(context.Background(), "serve", "--addr", freeAddr(t), "--mode", "shout")
	if err == nil || !strings.Contains(err.Error(), "shout") {
		t.Fatalf("expected unknown mode error, got=%v", err)
	}
}

func TestServeAnswersUntilCancelled(t *testing.T) {
	testlog.Start(t)

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := executeCommand(ctx, "serve", "--addr", addr, "--mode", "echo")
		done <- err
	}()

	cfg := client.DefaultConfig()
	cfg.Addr = addr
	cfg.Timeout = time.Second
	var session *client.Session
	deadline := time.Now().Add(2 * time.Second)
	for {
		var err error
		session, err = client.Dial(context.Background(), cfg)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("serve never accepted: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	reply, err := session.Request(reqCtx, "ping")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if reply != "ping" {
		t.Fatalf("unexpected reply: got=%q want=%q", reply, "ping")
	}
	_ = session.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}
