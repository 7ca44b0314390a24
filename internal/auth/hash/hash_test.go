package hash

import (
	"strings"
	"testing"
)

func TestPasswordRoundTrip(t *testing.T) {
	phc, err := Password("Secret123!")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC prefix: %s", phc)
	}
	if !Verify(phc, "Secret123!") {
		t.Fatal("correct password rejected")
	}
	if Verify(phc, "secret123!") {
		t.Fatal("wrong password accepted")
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	a, _ := Password("same")
	b, _ := Password("same")
	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	for _, phc := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=3,p=1$AAAA$BBBB",
		"$argon2id$v=18$m=65536,t=3,p=1$AAAA$BBBB",
		"$argon2id$v=19$m=0,t=0,p=0$AAAA$BBBB",
		"$argon2id$v=19$m=65536,t=3,p=1$!!$??",
	} {
		if Verify(phc, "anything") {
			t.Fatalf("accepted invalid phc: %q", phc)
		}
	}
}
