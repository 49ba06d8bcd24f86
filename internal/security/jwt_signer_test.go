package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dexstats/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrivateKey(t *testing.T, key *rsa.PrivateKey, pkcs8 bool) string {
	t.Helper()

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if pkcs8 {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	}

	path := filepath.Join(t.TempDir(), "jwt.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func TestNewRS256Signer_LoadsPKCS1AndPKCS8(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	for _, pkcs8 := range []bool{false, true} {
		s, err := NewRS256Signer(&config.JWTConfig{
			PrivateKeyPath: writePrivateKey(t, key, pkcs8),
			Issuer:         testIss,
			Audience:       testAud,
		})
		require.NoError(t, err, "pkcs8=%v", pkcs8)
		assert.True(t, key.Equal(s.Priv))
		assert.Equal(t, testIss, s.Iss)
		assert.Equal(t, testAud, s.Aud)
	}
}

func TestNewRS256Signer_Errors(t *testing.T) {
	_, err := NewRS256Signer(nil)
	assert.Error(t, err)

	_, err = NewRS256Signer(&config.JWTConfig{PrivateKeyPath: filepath.Join(t.TempDir(), "missing.pem")})
	assert.ErrorContains(t, err, "read private key")

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not-a-pem"), 0o600))
	_, err = NewRS256Signer(&config.JWTConfig{PrivateKeyPath: bad})
	assert.ErrorContains(t, err, "parse private key")
}

func TestMint_VerifiedByVerifier(t *testing.T) {
	kp := newKeyPair(t)
	signer, err := NewRS256Signer(&config.JWTConfig{
		PrivateKeyPath: writePrivateKey(t, kp.priv, false),
		Issuer:         testIss,
		Audience:       testAud,
	})
	require.NoError(t, err)

	token, err := signer.Mint("loadgen", 2*time.Minute, "jti-1", 1, 10)
	require.NoError(t, err)

	claims, err := newVerifier(t, kp, testAud, testIss, 0).VerifyBearer("Bearer " + token)
	require.NoError(t, err)

	assert.Equal(t, "loadgen", claims.Subject)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, []uint64{1, 10}, claims.Chains)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), claims.ExpiresAt.Time, 5*time.Second)

	_, err = signer.Mint("", time.Minute, "")
	assert.Error(t, err)
}
