package totp

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestEnrollShape(t *testing.T) {
	e, err := Enroll("SoC-SMS", "admin@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(e.QRUrl, "data:image/png;base64,") {
		t.Fatalf("qrUrl should be a png data URI, got %.40s", e.QRUrl)
	}
	if e.ManualCode == "" || e.Secret != e.ManualCode {
		t.Fatalf("manual code and secret must match: %q vs %q", e.ManualCode, e.Secret)
	}
}

func TestVerifyCurrentAndSkewedCode(t *testing.T) {
	e, err := Enroll("SoC-SMS", "admin@example.com")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	code, err := totp.GenerateCode(e.Secret, now)
	if err != nil {
		t.Fatal(err)
	}
	if !Verify(e.Secret, code) {
		t.Fatal("current code rejected")
	}
	prev, _ := totp.GenerateCode(e.Secret, now.Add(-period*time.Second))
	if !Verify(e.Secret, prev) {
		t.Fatal("one-period-old code should verify (skew 1)")
	}
}

func TestVerifyRejectsBadCode(t *testing.T) {
	e, _ := Enroll("SoC-SMS", "admin@example.com")
	if Verify(e.Secret, "000000") && Verify(e.Secret, "999999") {
		t.Fatal("both fixed codes verifying is vanishingly unlikely; verification is broken")
	}
	if Verify(e.Secret, "12345") {
		t.Fatal("5-digit code must not verify")
	}
	if Verify(e.Secret, "abcdef") {
		t.Fatal("non-numeric code must not verify")
	}
}

func TestProvisioningURI(t *testing.T) {
	uri := ProvisioningURI("SoC-SMS", "admin@example.com", "SECRETBASE32")
	if !strings.HasPrefix(uri, "otpauth://totp/SoC-SMS:admin@example.com?") {
		t.Fatalf("uri: %s", uri)
	}
	if !strings.Contains(uri, "secret=SECRETBASE32") || !strings.Contains(uri, "period=30") {
		t.Fatalf("uri missing fields: %s", uri)
	}
}
