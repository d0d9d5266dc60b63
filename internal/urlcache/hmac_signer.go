package urlcache

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// HMACSigner produces expiring photo URLs of the form
// <base>/<key>?exp=<unix>&sig=<hmac(key.exp)>, verified by the media
// server that fronts the photo bucket.
type HMACSigner struct {
	baseURL string
	secret  []byte
}

func NewHMACSigner(baseURL string, secret string) (*HMACSigner, error) {
	if baseURL == "" || secret == "" {
		return nil, errors.New("media base url and signing secret are required")
	}
	return &HMACSigner{baseURL: baseURL, secret: []byte(secret)}, nil
}

func (s *HMACSigner) SignURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	if objectKey == "" {
		return "", errors.New("empty object key")
	}

	exp := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("%s.%d", objectKey, exp)

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("%s/%s?exp=%d&sig=%s",
		s.baseURL, url.PathEscape(objectKey), exp, sig), nil
}
