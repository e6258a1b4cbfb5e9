package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/domain"
	"github.com/clipstage/share-access-service/internal/ports"
)

// Token type discriminators. Every token this service signs or accepts
// carries one; parsing rejects a token presented on the wrong path.
const (
	tokenTypeShare   = "share_capability"
	tokenTypeContent = "content_scope"
	tokenTypeStaff   = "platform_access"
)

// JWTSigner implements RS256 signing for share capability and scoped content
// tokens, and verification of platform staff tokens. Keys are held at adapter
// level so the application layer stays crypto-library agnostic.
type JWTSigner struct {
	kid            string
	privateKey     *rsa.PrivateKey
	publicKey      *rsa.PublicKey
	staffPublicKey *rsa.PublicKey
}

// NewJWTSigner builds a signer from configured PEM keys. staffPublicKeyPEM is
// optional; when empty, staff tokens are verified against the service's own
// public key (single-keypair deployments).
func NewJWTSigner(kid, privateKeyPEM, publicKeyPEM, staffPublicKeyPEM string) (*JWTSigner, error) {
	if kid == "" {
		return nil, errors.New("jwt key id (kid) is required")
	}
	if privateKeyPEM == "" || publicKeyPEM == "" {
		return nil, errors.New("jwt private/public keys are required")
	}

	priv, err := parseRSAPrivate(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := parseRSAPublic(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	signer := &JWTSigner{
		kid:            kid,
		privateKey:     priv,
		publicKey:      pub,
		staffPublicKey: pub,
	}
	if staffPublicKeyPEM != "" {
		staffPub, err := parseRSAPublic(staffPublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse staff public key: %w", err)
		}
		signer.staffPublicKey = staffPub
	}
	return signer, nil
}

// NewEphemeralJWTSigner creates an in-memory keypair for local/dev use.
// This exists to unblock runtime startup when static keys are intentionally absent.
func NewEphemeralJWTSigner(kid string) (*JWTSigner, error) {
	if kid == "" {
		kid = "ephemeral-key-1"
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &JWTSigner{
		kid:            kid,
		privateKey:     privateKey,
		publicKey:      &privateKey.PublicKey,
		staffPublicKey: &privateKey.PublicKey,
	}, nil
}

type shareJWTClaims struct {
	TokenType   string   `json:"token_type"`
	ShareID     string   `json:"share_id"`
	Permissions []string `json:"permissions"`
	Guest       bool     `json:"guest"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) SignShareToken(claims ports.ShareTokenClaims) (string, error) {
	registered := jwt.RegisteredClaims{
		IssuedAt: jwt.NewNumericDate(claims.IssuedAt),
	}
	if !claims.ExpiresAt.IsZero() {
		registered.ExpiresAt = jwt.NewNumericDate(claims.ExpiresAt)
	}

	permissions := make([]string, 0, len(claims.Permissions))
	for _, p := range claims.Permissions {
		permissions = append(permissions, string(p))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, shareJWTClaims{
		TokenType:        tokenTypeShare,
		ShareID:          claims.ShareID.String(),
		Permissions:      permissions,
		Guest:            claims.Guest,
		RegisteredClaims: registered,
	})
	token.Header["kid"] = s.kid
	return token.SignedString(s.privateKey)
}

func (s *JWTSigner) ParseShareToken(raw string) (ports.ShareTokenClaims, error) {
	parsed, err := s.parse(raw, &shareJWTClaims{}, s.publicKey)
	if err != nil {
		return ports.ShareTokenClaims{}, err
	}
	claims, ok := parsed.Claims.(*shareJWTClaims)
	if !ok || !parsed.Valid {
		return ports.ShareTokenClaims{}, errors.New("invalid token claims")
	}
	if claims.TokenType != tokenTypeShare {
		return ports.ShareTokenClaims{}, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}

	shareID, err := uuid.Parse(claims.ShareID)
	if err != nil {
		return ports.ShareTokenClaims{}, fmt.Errorf("parse share_id: %w", err)
	}

	permissions := make([]domain.Permission, 0, len(claims.Permissions))
	for _, p := range claims.Permissions {
		permissions = append(permissions, domain.Permission(p))
	}

	kid, _ := parsed.Header["kid"].(string)
	out := ports.ShareTokenClaims{
		ShareID:     shareID,
		Permissions: permissions,
		Guest:       claims.Guest,
		KeyID:       kid,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}

type contentJWTClaims struct {
	TokenType       string `json:"token_type"`
	AssetID         string `json:"asset_id"`
	ShareID         string `json:"share_id"`
	Quality         string `json:"quality"`
	SessionID       string `json:"session_id"`
	DownloadAllowed bool   `json:"download_allowed"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) SignContentToken(claims ports.ContentTokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, contentJWTClaims{
		TokenType:       tokenTypeContent,
		AssetID:         claims.AssetID.String(),
		ShareID:         claims.ShareID.String(),
		Quality:         claims.Quality,
		SessionID:       claims.SessionID,
		DownloadAllowed: claims.DownloadAllowed,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	token.Header["kid"] = s.kid
	return token.SignedString(s.privateKey)
}

func (s *JWTSigner) ParseContentToken(raw string) (ports.ContentTokenClaims, error) {
	parsed, err := s.parse(raw, &contentJWTClaims{}, s.publicKey)
	if err != nil {
		return ports.ContentTokenClaims{}, err
	}
	claims, ok := parsed.Claims.(*contentJWTClaims)
	if !ok || !parsed.Valid {
		return ports.ContentTokenClaims{}, errors.New("invalid token claims")
	}
	if claims.TokenType != tokenTypeContent {
		return ports.ContentTokenClaims{}, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}

	assetID, err := uuid.Parse(claims.AssetID)
	if err != nil {
		return ports.ContentTokenClaims{}, fmt.Errorf("parse asset_id: %w", err)
	}
	shareID, err := uuid.Parse(claims.ShareID)
	if err != nil {
		return ports.ContentTokenClaims{}, fmt.Errorf("parse share_id: %w", err)
	}

	kid, _ := parsed.Header["kid"].(string)
	out := ports.ContentTokenClaims{
		AssetID:         assetID,
		ShareID:         shareID,
		Quality:         claims.Quality,
		SessionID:       claims.SessionID,
		DownloadAllowed: claims.DownloadAllowed,
		KeyID:           kid,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}

type staffJWTClaims struct {
	TokenType string `json:"token_type"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) ParseStaffToken(raw string) (ports.StaffClaims, error) {
	parsed, err := s.parse(raw, &staffJWTClaims{}, s.staffPublicKey)
	if err != nil {
		return ports.StaffClaims{}, err
	}
	claims, ok := parsed.Claims.(*staffJWTClaims)
	if !ok || !parsed.Valid {
		return ports.StaffClaims{}, errors.New("invalid token claims")
	}
	if claims.TokenType != tokenTypeStaff {
		return ports.StaffClaims{}, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ports.StaffClaims{}, fmt.Errorf("parse user_id: %w", err)
	}

	out := ports.StaffClaims{
		UserID: userID,
		Role:   claims.Role,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}

func (s *JWTSigner) parse(raw string, claims jwt.Claims, key *rsa.PublicKey) (*jwt.Token, error) {
	return jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithLeeway(30*time.Second))
}

func (s *JWTSigner) PublicJWKs() ([]map[string]any, error) {
	e := big.NewInt(int64(s.publicKey.E)).Bytes()
	n := s.publicKey.N.Bytes()

	return []map[string]any{
		{
			"kid": s.kid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(n),
			"e":   base64.RawURLEncoding.EncodeToString(e),
		},
	}, nil
}

func parseRSAPrivate(raw string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("invalid private PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

func parseRSAPublic(raw string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("invalid public PEM")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}
