package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

// Portal roles carried in the "role" claim.
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RoleStaff   = "staff"
	RolePatient = "patient"
)

type Claims struct {
	Sub      string `json:"sub"`
	ClinicID string `json:"clinic_id"`
	Role     string `json:"role"`
	Exp      int64  `json:"exp"`
	Iat      int64  `json:"iat"`
}

func (c *Claims) expired(now time.Time) bool {
	return c.Exp > 0 && now.Unix() > c.Exp
}

type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Kid string `json:"kid"`
}

type segments struct {
	header    string
	payload   string
	signature string
}

func (s segments) unsigned() string { return s.header + "." + s.payload }

func split(token string) (segments, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return segments{}, ErrInvalidToken
	}
	return segments{header: parts[0], payload: parts[1], signature: parts[2]}, nil
}

func decodeSegment(seg string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return ErrInvalidToken
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrInvalidToken
	}
	return nil
}

func decodeClaims(seg string) (*Claims, error) {
	var claims Claims
	if err := decodeSegment(seg, &claims); err != nil {
		return nil, err
	}
	if claims.expired(time.Now()) {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func ParseHeader(token string) (*Header, error) {
	segs, err := split(token)
	if err != nil {
		return nil, err
	}
	var header Header
	if err := decodeSegment(segs.header, &header); err != nil {
		return nil, err
	}
	return &header, nil
}

func SignHS256(claims Claims, secret string) (string, error) {
	headerJSON, err := json.Marshal(Header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	segs := segments{
		header:  base64.RawURLEncoding.EncodeToString(headerJSON),
		payload: base64.RawURLEncoding.EncodeToString(payloadJSON),
	}
	return segs.unsigned() + "." + hmacSHA256(segs.unsigned(), secret), nil
}

func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	segs, err := split(token)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(segs.signature), []byte(hmacSHA256(segs.unsigned(), secret))) {
		return nil, ErrInvalidToken
	}
	return decodeClaims(segs.payload)
}

func hmacSHA256(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func VerifyRS256(token string, pubKey crypto.PublicKey) (*Claims, error) {
	segs, err := split(token)
	if err != nil {
		return nil, err
	}
	sig, err := base64.RawURLEncoding.DecodeString(segs.signature)
	if err != nil {
		return nil, ErrInvalidToken
	}
	rsaKey, ok := pubKey.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidToken
	}
	hash := sha256.Sum256([]byte(segs.unsigned()))
	if err := rsa.VerifyPKCS1v15(rsaKey, crypto.SHA256, hash[:], sig); err != nil {
		return nil, ErrInvalidToken
	}
	return decodeClaims(segs.payload)
}

// KeySource resolves RS256 verification keys by kid.
type KeySource interface {
	Get(keyID string) (*rsa.PublicKey, error)
}

// Verifier accepts RS256 tokens with a kid when a key source is configured and HS256 otherwise.
type Verifier struct {
	Secret string
	Keys   KeySource
}

func (v Verifier) Verify(token string) (*Claims, error) {
	if v.Keys != nil {
		header, err := ParseHeader(token)
		if err != nil {
			return nil, err
		}
		if header.Alg == "RS256" && header.Kid != "" {
			pub, err := v.Keys.Get(header.Kid)
			if err != nil {
				return nil, ErrInvalidToken
			}
			return VerifyRS256(token, pub)
		}
	}
	if v.Secret == "" {
		return nil, ErrInvalidToken
	}
	return ParseAndVerifyHS256(token, v.Secret)
}
