package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeVPN(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		displayName string
		want        bool
	}{
		{
			name:        "no keywords",
			username:    "john_doe",
			displayName: "John Doe",
			want:        false,
		},
		{
			name:        "single keyword is not enough",
			username:    "vpn_master",
			displayName: "John",
			want:        false,
		},
		{
			name:        "two keywords in username",
			username:    "secure_vpn_guy",
			displayName: "John",
			want:        true,
		},
		{
			name:        "keywords split across fields",
			username:    "proxy_user",
			displayName: "Hide Me",
			want:        true,
		},
		{
			name:        "case insensitive",
			username:    "ShIeLd",
			displayName: "GUARD",
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeVPN(tt.username, tt.displayName))
		})
	}
}

func TestFingerprint(t *testing.T) {
	fp1 := Fingerprint("alice", "Alice", "en")
	fp2 := Fingerprint("alice", "Alice", "en")
	assert.Equal(t, fp1, fp2, "fingerprint must be deterministic")

	// Регистр не влияет
	assert.Equal(t, fp1, Fingerprint("ALICE", "alice", "EN"))

	// Любое отличие наблюдаемых признаков меняет отпечаток
	assert.NotEqual(t, fp1, Fingerprint("alice", "Alice", "de"))
	assert.NotEqual(t, fp1, Fingerprint("bob", "Alice", "en"))

	// Отпечаток не зависит от идентификатора пользователя: два разных
	// пользователя с одинаковыми признаками неотличимы
	assert.Equal(t,
		Fingerprint("same", "Same Name", "en"),
		Fingerprint("same", "Same Name", "en"))
}

func TestReferralCode(t *testing.T) {
	assert.Equal(t, ReferralCode(100), ReferralCode(100))
	assert.NotEqual(t, ReferralCode(100), ReferralCode(101))
	assert.Contains(t, ReferralCode(100), "REF")
}
