package ws

import (
	"fmt"
	"testing"
)

func TestOpCodeIsControl(t *testing.T) {
	for _, test := range []struct {
		code OpCode
		exp  bool
	}{
		{OpClose, true},
		{OpPing, true},
		{OpPong, true},
		{OpBinary, false},
		{OpText, false},
		{OpContinuation, false},
	} {
		t.Run(fmt.Sprintf("0x%02x", test.code), func(t *testing.T) {
			if act := test.code.IsControl(); act != test.exp {
				t.Errorf("IsControl = %v; want %v", act, test.exp)
			}
			if act := test.code.IsData(); act == test.exp {
				t.Errorf("IsData = %v; want %v", act, !test.exp)
			}
		})
	}
}

func TestOpCodeIsReserved(t *testing.T) {
	for _, test := range []struct {
		code OpCode
		exp  bool
	}{
		{OpText, false},
		{OpBinary, false},
		{OpClose, false},
		{OpPing, false},
		{OpPong, false},
		{0x3, true},
		{0x7, true},
		{0xb, true},
		{0xf, true},
	} {
		if act := test.code.IsReserved(); act != test.exp {
			t.Errorf("OpCode(0x%x).IsReserved() = %v; want %v", byte(test.code), act, test.exp)
		}
	}
}

func TestOpCodeString(t *testing.T) {
	for _, test := range []struct {
		code OpCode
		want string
	}{
		{OpText, "text"},
		{OpBinary, "binary"},
		{OpClose, "close"},
		{OpPing, "ping"},
		{OpPong, "pong"},
		{OpContinuation, "continuation"},
	} {
		if got := test.code.String(); got != test.want {
			t.Errorf("OpCode(0x%x).String() = %q; want %q", byte(test.code), got, test.want)
		}
	}
}

func TestStatusCodeIsProtocolReserved(t *testing.T) {
	for _, test := range []struct {
		code StatusCode
		exp  bool
	}{
		{StatusNoStatusRcvd, true},
		{StatusAbnormalClosure, true},
		{StatusTLSHandshake, true},
		{StatusNormalClosure, false},
		{StatusGoingAway, false},
	} {
		if act := test.code.IsProtocolReserved(); act != test.exp {
			t.Errorf("%d.IsProtocolReserved() = %v; want %v", test.code, act, test.exp)
		}
	}
}

func TestCheckCloseFrameData(t *testing.T) {
	for _, test := range []struct {
		name string
		code StatusCode
		want error
	}{
		{"not in use", 999, ErrStatusCodeNotInUse},
		{"reserved", StatusNoStatusRcvd, ErrStatusCodeReserved},
		{"no meaning yet", StatusNoMeaningYet, ErrStatusCodeNoMeaning},
		{"undefined protocol code", 1016, ErrStatusCodeUndefined},
		{"out of range", 50000, ErrStatusCodeOutOfRange},
		{"normal closure", StatusNormalClosure, nil},
		{"application range", 3000, nil},
		{"private range", 4999, nil},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := checkCloseFrameData(test.code, "ok"); got != test.want {
				t.Errorf("checkCloseFrameData(%d, ...) = %v; want %v", test.code, got, test.want)
			}
		})
	}
}

func TestCheckCloseFrameDataRejectsInvalidUTF8(t *testing.T) {
	if err := checkCloseFrameData(StatusNormalClosure, "bad\xff reason"); err != ErrCloseReasonInvalidUTF8 {
		t.Errorf("checkCloseFrameData(..., invalid utf-8) = %v; want %v", err, ErrCloseReasonInvalidUTF8)
	}
}

func TestNewCloseFrameDataTruncatesReason(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	p := NewCloseFrameData(StatusNormalClosure, string(long))
	if len(p) != MaxControlFramePayloadSize {
		t.Fatalf("len(p) = %d; want %d", len(p), MaxControlFramePayloadSize)
	}
}

func TestParseCloseFrameDataRoundTrip(t *testing.T) {
	p := NewCloseFrameData(StatusGoingAway, "bye")
	code, reason, hasCode := ParseCloseFrameData(p)
	if !hasCode {
		t.Fatal("hasCode = false; want true")
	}
	if code != StatusGoingAway {
		t.Errorf("code = %d; want %d", code, StatusGoingAway)
	}
	if reason != "bye" {
		t.Errorf("reason = %q; want %q", reason, "bye")
	}
}

func TestParseCloseFrameDataEmpty(t *testing.T) {
	_, _, hasCode := ParseCloseFrameData(nil)
	if hasCode {
		t.Fatal("hasCode = true; want false for an empty close payload")
	}
}
