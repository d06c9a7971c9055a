package netstring

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/danmuck/netstring/internal/testutil/testlog"
)

func TestReadBasic(t *testing.T) {
	testlog.Start(t)
	got, err := Read(strings.NewReader("5:hello,"), DefaultLimits())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "hello" {
		t.Fatalf("unexpected payload: %q", got)
	}
}

func TestWriteBasic(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := Write(&buf, "hello"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "5:hello," {
		t.Fatalf("unexpected bytes: %q", got)
	}
}

func TestEncodeUsesByteLength(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"":           "0:,",
		"a":          "1:a,",
		"héllo":      "6:héllo,",
		"日本":         "6:日本,",
		"with,comma": "10:with,comma,",
	}
	for in, want := range cases {
		if got := string(Encode(in)); got != want {
			t.Fatalf("encode %q got=%q want=%q", in, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	testlog.Start(t)
	inputs := []string{"", "hello", "héllo wörld", "1:a,", strings.Repeat("x", 4096), "line\nbreak\x00nul"}
	for _, in := range inputs {
		out, err := Read(bytes.NewReader(Encode(in)), DefaultLimits())
		if err != nil {
			t.Fatalf("read %q: %v", in, err)
		}
		if out != in {
			t.Fatalf("round trip mismatch got=%q want=%q", out, in)
		}
	}
}

func TestReadInvalidDelimiter(t *testing.T) {
	testlog.Start(t)
	_, err := Read(strings.NewReader("5:hello?"), DefaultLimits())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestReadDeclaredLengthLonger(t *testing.T) {
	testlog.Start(t)
	_, err := Read(strings.NewReader("10:hello,"), DefaultLimits())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestReadDeclaredLengthShorter(t *testing.T) {
	testlog.Start(t)
	_, err := Read(strings.NewReader("2:hello,"), DefaultLimits())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestReadMultiple(t *testing.T) {
	testlog.Start(t)
	r := NewReader(strings.NewReader("5:hello,5:world,10:xxxxxxxxxx,"), DefaultLimits())
	for _, want := range []string{"hello", "world", "xxxxxxxxxx"} {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("read %q: %v", want, err)
		}
		if got != want {
			t.Fatalf("got=%q want=%q", got, want)
		}
	}
	if _, err := r.Read(); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed after last frame, got %v", err)
	}
}

func TestReadToleratesPartialReads(t *testing.T) {
	testlog.Start(t)
	src := iotest.OneByteReader(strings.NewReader("11:hello world,3:end,"))
	r := NewReader(src, DefaultLimits())
	for _, want := range []string{"hello world", "end"} {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != want {
			t.Fatalf("got=%q want=%q", got, want)
		}
	}
}

func TestReadEmptySourceIsConnectionClosed(t *testing.T) {
	testlog.Start(t)
	_, err := Read(strings.NewReader(""), DefaultLimits())
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
	_, err = Read(strings.NewReader("12"), DefaultLimits())
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed mid-prefix, got %v", err)
	}
}

func TestReadMissingTrailer(t *testing.T) {
	testlog.Start(t)
	_, err := Read(strings.NewReader("5:hello"), DefaultLimits())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestReadRejectsMalformedPrefix(t *testing.T) {
	testlog.Start(t)
	for _, in := range []string{":hello,", "5x:hello,", "-5:hello,", "+5:hello,", " 5:hello,"} {
		if _, err := Read(strings.NewReader(in), DefaultLimits()); !errors.Is(err, ErrInvalidFrame) {
			t.Fatalf("input %q expected ErrInvalidFrame, got %v", in, err)
		}
	}
}

func TestReadDigitLimit(t *testing.T) {
	testlog.Start(t)
	limits := Limits{MaxDigits: 4}
	if _, err := Read(strings.NewReader("0005:hello,"), limits); err != nil {
		t.Fatalf("expected 4 digits to be accepted, got %v", err)
	}
	_, err := Read(strings.NewReader("00005:hello,"), limits)
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}

	hostile := strings.Repeat("9", DigitLimit+1) + ":"
	_, err = Read(strings.NewReader(hostile), DefaultLimits())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for hostile prefix, got %v", err)
	}
}

func TestReadPayloadLimit(t *testing.T) {
	testlog.Start(t)
	limits := Limits{MaxPayloadBytes: 4}
	_, err := Read(strings.NewReader("5:hello,"), limits)
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
	if _, err := Read(strings.NewReader("4:hell,"), limits); err != nil {
		t.Fatalf("expected payload at limit to pass, got %v", err)
	}
}

func TestReadRejectsInvalidUTF8(t *testing.T) {
	testlog.Start(t)
	_, err := Read(bytes.NewReader([]byte("2:\xff\xfe,")), DefaultLimits())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestReadPropagatesSourceErrors(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("boom")
	_, err := Read(io.MultiReader(strings.NewReader("5:he"), iotest.ErrReader(boom)), DefaultLimits())
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
	if errors.Is(err, ErrInvalidFrame) || errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("source error should stay unclassified: %v", err)
	}
}

func TestReadUnboundedHostileLengthFailsWithoutPayload(t *testing.T) {
	testlog.Start(t)
	unbounded := Limits{MaxPayloadBytes: 0}
	_, err := Read(strings.NewReader("999999999999999:abc"), unbounded)
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for truncated huge payload, got %v", err)
	}
}

func TestReadUnboundedLargePayload(t *testing.T) {
	testlog.Start(t)
	text := strings.Repeat("netstring", 30000)
	got, err := Read(iotest.HalfReader(bytes.NewReader(Encode(text))), Limits{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != text {
		t.Fatalf("unexpected payload length: got=%d want=%d", len(got), len(text))
	}
}
