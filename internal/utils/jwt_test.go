package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndParseJWT(t *testing.T) {
	tokenStr, err := SignJWT("secret", "user-1", "client", 60)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	token, err := ParseJWT("secret", tokenStr)
	if err != nil || !token.Valid {
		t.Fatalf("parse: %v (valid=%v)", err, token != nil && token.Valid)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		t.Fatalf("claims type %T", token.Claims)
	}
	if claims.UserID != "user-1" || claims.Role != "client" {
		t.Errorf("claims = %q/%q", claims.UserID, claims.Role)
	}
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	tokenStr, err := SignJWT("secret", "user-1", "client", 60)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if token, err := ParseJWT("other", tokenStr); err == nil && token.Valid {
		t.Fatal("token verified with the wrong secret")
	}
}

func TestParseJWTRejectsForeignSigningMethod(t *testing.T) {
	// A token signed with anything but HMAC must fail the method pin even
	// before signature verification.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1", Role: "admin"})
	tokenStr, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if token, err := ParseJWT("secret", tokenStr); err == nil && token.Valid {
		t.Fatal("unsigned token verified")
	}
}
