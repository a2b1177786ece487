package ticketing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"trips/entity"
)

const (
	fieldSeparator  = "|"
	bookingField    = "BOOKING:"
	activityField   = "ACTIVITY:"
	userField       = "USER:"
	signatureMarker = fieldSeparator + "SIG:"
)

// Claims is what a ticket payload says about its booking.
type Claims struct {
	BookingCode string
	ActivityID  string
	UserID      string
}

// Token is an encoded ticket: the payload and, when signed, its signature.
type Token struct {
	Payload   string
	Signature string
}

// String is the value printed on the QR code.
func (t Token) String() string {
	if t.Signature == "" {
		return t.Payload
	}
	return t.Payload + signatureMarker + t.Signature
}

type Codec interface {
	Encode(claims Claims) (Token, error)
	Decode(raw string) (Claims, error)
}

// PlainCodec writes claims as BOOKING:<code>|ACTIVITY:<id>|USER:<id>.
type PlainCodec struct{}

func (PlainCodec) Encode(c Claims) (Token, error) {
	for _, v := range []string{c.BookingCode, c.ActivityID, c.UserID} {
		if v == "" || strings.Contains(v, fieldSeparator) {
			return Token{}, fmt.Errorf("%w: cannot encode claim %q", entity.ErrInvalidInput, v)
		}
	}

	return Token{
		Payload: bookingField + c.BookingCode +
			fieldSeparator + activityField + c.ActivityID +
			fieldSeparator + userField + c.UserID,
	}, nil
}

func (PlainCodec) Decode(raw string) (Claims, error) {
	parts := strings.Split(raw, fieldSeparator)
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: malformed payload", entity.ErrInvalidTicket)
	}

	var c Claims
	for i, field := range []struct {
		prefix string
		dst    *string
	}{
		{bookingField, &c.BookingCode},
		{activityField, &c.ActivityID},
		{userField, &c.UserID},
	} {
		value, ok := strings.CutPrefix(parts[i], field.prefix)
		if !ok || value == "" {
			return Claims{}, fmt.Errorf("%w: malformed payload", entity.ErrInvalidTicket)
		}
		*field.dst = value
	}

	return c, nil
}

// SignedCodec adds an HMAC-SHA256 signature to the tokens of the codec it wraps
// and refuses to decode tokens whose signature is missing or wrong.
type SignedCodec struct {
	base   Codec
	secret []byte
}

func Signed(base Codec, secret string) SignedCodec {
	if base == nil {
		panic("missing base codec")
	}
	if secret == "" {
		panic("missing signing secret")
	}

	return SignedCodec{base: base, secret: []byte(secret)}
}

func (s SignedCodec) Encode(c Claims) (Token, error) {
	token, err := s.base.Encode(c)
	if err != nil {
		return Token{}, err
	}

	token.Signature = hex.EncodeToString(s.sign(token.Payload))
	return token, nil
}

func (s SignedCodec) Decode(raw string) (Claims, error) {
	idx := strings.LastIndex(raw, signatureMarker)
	if idx < 0 {
		return Claims{}, fmt.Errorf("%w: signature missing", entity.ErrSignatureMismatch)
	}

	payload := raw[:idx]
	signature, err := hex.DecodeString(raw[idx+len(signatureMarker):])
	if err != nil || !hmac.Equal(signature, s.sign(payload)) {
		return Claims{}, entity.ErrSignatureMismatch
	}

	return s.base.Decode(payload)
}

func (s SignedCodec) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
