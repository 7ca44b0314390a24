package totp

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	period = 30
	digits = otp.DigitsSix
	// valid_window=1 in the original backend: accept one period of skew.
	skew = 1
)

// Enrollment is what the setup wizard shows once: the provisioning URI as a
// scannable QR image, the base32 secret for manual entry, and the raw secret
// that must be round-tripped on verification.
type Enrollment struct {
	QRUrl      string
	ManualCode string
	Secret     string
}

// Enroll generates a fresh TOTP secret for account and renders its QR code
// as a data: URI. Nothing is persisted here; the caller only stores the
// secret after the user proves possession of it.
func Enroll(issuer, account string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Algorithm:   otp.AlgorithmSHA1,
		Digits:      digits,
		Period:      period,
	})
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	return &Enrollment{
		QRUrl:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ManualCode: key.Secret(),
		Secret:     key.Secret(),
	}, nil
}

// Verify checks a 6-digit code against secret, allowing one period of skew.
func Verify(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// ProvisioningURI rebuilds the otpauth URI for an existing secret.
func ProvisioningURI(issuer, account, secret string) string {
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=SHA1&digits=6&period=%d",
		issuer, account, secret, issuer, period)
}
