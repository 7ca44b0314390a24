package apiclient

import "testing"

func collect(t *testing.T) (*CodeInput, *[]string) {
	t.Helper()
	var fired []string
	in := NewCodeInput(func(code string) { fired = append(fired, code) })
	return in, &fired
}

func typeAll(in *CodeInput, code string) {
	for _, r := range code {
		in.TypeDigit(r)
	}
}

func TestTypingSixDigitsFiresOnce(t *testing.T) {
	in, fired := collect(t)
	typeAll(in, "123456")
	if len(*fired) != 1 || (*fired)[0] != "123456" {
		t.Fatalf("fired = %v, want one 123456", *fired)
	}
}

func TestSameCodeNotAutoResubmitted(t *testing.T) {
	in, fired := collect(t)
	typeAll(in, "123456")
	in.Clear()
	typeAll(in, "123456")
	if len(*fired) != 1 {
		t.Fatalf("fired = %v, same code auto-fired twice", *fired)
	}

	// A different code fires again.
	in.Clear()
	typeAll(in, "654321")
	if len(*fired) != 2 || (*fired)[1] != "654321" {
		t.Fatalf("fired = %v", *fired)
	}
}

func TestExplicitSubmitBypassesDedupe(t *testing.T) {
	in, fired := collect(t)
	typeAll(in, "123456")
	in.Submit()
	if len(*fired) != 2 {
		t.Fatalf("fired = %v, explicit submit suppressed", *fired)
	}
}

func TestPasteFillsAtomically(t *testing.T) {
	in, fired := collect(t)
	in.Paste("987654")
	if len(*fired) != 1 || (*fired)[0] != "987654" {
		t.Fatalf("fired = %v", *fired)
	}
}

func TestPasteRejectsNonDigitsAndWrongLength(t *testing.T) {
	in, fired := collect(t)
	in.Paste("12345")
	in.Paste("12345a")
	in.Paste("1234567")
	if len(*fired) != 0 {
		t.Fatalf("fired = %v, want none", *fired)
	}
	if in.Code() != "\x00\x00\x00\x00\x00\x00" {
		t.Fatalf("cells touched by rejected paste: %q", in.Code())
	}
}

func TestBackspaceMovesFocusBack(t *testing.T) {
	in, fired := collect(t)
	typeAll(in, "12345")
	in.Backspace()
	in.TypeDigit('9')
	in.TypeDigit('6')
	if len(*fired) != 1 || (*fired)[0] != "123496" {
		t.Fatalf("fired = %v, want 123496", *fired)
	}
}

func TestNonDigitsIgnored(t *testing.T) {
	in, fired := collect(t)
	in.TypeDigit('a')
	in.TypeDigit(' ')
	typeAll(in, "123456")
	if len(*fired) != 1 || (*fired)[0] != "123456" {
		t.Fatalf("fired = %v", *fired)
	}
}

func TestPartialCodeNeverSubmits(t *testing.T) {
	in, fired := collect(t)
	typeAll(in, "12345")
	in.Submit()
	if len(*fired) != 0 {
		t.Fatalf("fired = %v on incomplete code", *fired)
	}
}
