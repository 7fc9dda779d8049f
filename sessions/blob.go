package sessions

import (
	"crypto/sha256"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/syllabus-tracker/identity"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	blobKeyInfo = "syllabus-tracker session blob"
	blobKeySize = 32
)

// blobCodec signs the persisted session so a hand-edited store cannot extend or forge it.
type blobCodec struct {
	secret []byte
}

type blobClaims struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email"`
	Picture   string `json:"picture,omitempty"`
	LoginTime int64  `json:"login_time"`
	jwt.RegisteredClaims
}

func newBlobCodec(secret string) (*blobCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	key := make([]byte, blobKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(blobKeyInfo)), key); err != nil {
		return nil, errors.Wrap(err, "derive session key")
	}
	return &blobCodec{secret: key}, nil
}

func (c *blobCodec) encode(s Session) (string, error) {
	claims := blobClaims{
		Name:      s.User.Name,
		Email:     s.User.Email,
		Picture:   s.User.Picture,
		LoginTime: s.User.LoginTime.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.User.ID,
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session blob")
	}
	return signed, nil
}

// decode verifies the signature and the expiry against now.
func (c *blobCodec) decode(blob string, now time.Time) (Session, error) {
	var claims blobClaims
	_, err := jwt.ParseWithClaims(blob, &claims,
		func(token *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return Session{}, err
	}
	return Session{
		User: identity.Identity{
			ID:        claims.Subject,
			Name:      claims.Name,
			Email:     claims.Email,
			Picture:   claims.Picture,
			LoginTime: time.UnixMilli(claims.LoginTime).UTC(),
		},
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
