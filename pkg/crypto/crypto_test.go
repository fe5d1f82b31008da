package crypto

import (
	"errors"
	"strings"
	"testing"
)

var fastKDF = KDFParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  func(string) bool
	}{
		{name: "empty is anon", token: "", want: func(s string) bool { return s == "anon" }},
		{name: "fixed length", token: "abc", want: func(s string) bool { return len(s) == FingerprintLength }},
		{name: "prefix of hash", token: "abc", want: func(s string) bool { return strings.HasPrefix(HashToken("abc"), s) }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Act
			got := Fingerprint(test.token)

			// Assert
			if !test.want(got) {
				t.Errorf("Fingerprint(%q) = %q", test.token, got)
			}
		})
	}
}

func TestFingerprintShouldDifferPerCredential(t *testing.T) {
	// Requirement: two credentials must never share a cache namespace
	if Fingerprint("token-a") == Fingerprint("token-b") {
		t.Error("distinct credentials produced the same fingerprint")
	}
	if Fingerprint("token-a") != Fingerprint("token-a") {
		t.Error("fingerprint is not stable")
	}
}

func TestSameToken(t *testing.T) {
	if !SameToken("x", "x") {
		t.Error("SameToken(x, x) = false")
	}
	if SameToken("x", "y") {
		t.Error("SameToken(x, y) = true")
	}
}

func TestNewIDGenerator(t *testing.T) {
	tests := []struct {
		name     string
		alphabet string
		wantErr  error
	}{
		{name: "empty uses default", alphabet: ""},
		{name: "custom alphabet", alphabet: "ABCDEFGH"},
		{name: "too long", alphabet: strings.Repeat("a", 256), wantErr: ErrAlphabetTooLong},
		{name: "too short", alphabet: "abc", wantErr: ErrAlphabetTooShort},
		{name: "non ascii", alphabet: "abcdefgé", wantErr: ErrAlphabetNotASCII},
		{name: "invalid utf8", alphabet: "abcdefg\xff", wantErr: ErrAlphabetInvalidUTF8},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Act
			gen, err := NewIDGenerator(test.alphabet, 0)

			// Assert
			if err != test.wantErr {
				t.Fatalf("NewIDGenerator() error = %v, want %v", err, test.wantErr)
			}
			if err == nil && gen.size != RequestIDSize {
				t.Errorf("size = %d, want %d", gen.size, RequestIDSize)
			}
		})
	}
}

func TestIDGeneratorNewShouldUseAlphabetAndSize(t *testing.T) {
	gen, err := NewIDGenerator("01234567", 40)
	if err != nil {
		t.Fatal(err)
	}

	id, err := gen.New()
	if err != nil {
		t.Fatal(err)
	}
	if len(id) != 40 {
		t.Errorf("len = %d, want 40", len(id))
	}
	if strings.Trim(id, "01234567") != "" {
		t.Errorf("id %q contains characters outside the alphabet", id)
	}
}

func TestRequestIDShouldBeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := RequestID()
		if len(id) != RequestIDSize {
			t.Fatalf("RequestID() length = %d", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestSealerRoundTrip(t *testing.T) {
	// Arrange
	s, err := NewSealer("correct horse", fastKDF)
	if err != nil {
		t.Fatal(err)
	}

	// Act
	sealed, err := s.Seal("secret-token")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	plain, err := s.Unseal(sealed)

	// Assert
	if err != nil {
		t.Fatalf("Unseal() error = %v", err)
	}
	if plain != "secret-token" {
		t.Errorf("Unseal() = %q", plain)
	}
	if !IsSealed(sealed) || strings.Contains(sealed, "secret-token") {
		t.Errorf("sealed value %q leaks plaintext or has wrong prefix", sealed)
	}
}

func TestSealerShouldRejectWrongPassphrase(t *testing.T) {
	a, _ := NewSealer("one", fastKDF)
	b, _ := NewSealer("two", fastKDF)

	sealed, err := a.Seal("secret")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := b.Unseal(sealed); !errors.Is(err, ErrUnsealFailed) {
		t.Errorf("Unseal() with wrong passphrase error = %v, want ErrUnsealFailed", err)
	}
}

func TestSealerUnsealMalformed(t *testing.T) {
	s, _ := NewSealer("pw", fastKDF)

	tests := []string{
		"",
		"plain-token",
		"$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=1$m=1024,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=19$m=1024,t=1$AAAA$AAAA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!$AAAA",
		"$argon2id$v=19$m=1024,t=1,p=1$AAAAAAAAAAA$AAAA",
	}
	for _, in := range tests {
		if _, err := s.Unseal(in); !errors.Is(err, ErrInvalidSealed) {
			t.Errorf("Unseal(%q) error = %v, want ErrInvalidSealed", in, err)
		}
	}
}

func TestNewSealerRequiresPassphrase(t *testing.T) {
	if _, err := NewSealer("", KDFParams{}); err != ErrPassphraseRequired {
		t.Errorf("NewSealer(\"\") error = %v", err)
	}
	s, err := NewSealer("pw", KDFParams{})
	if err != nil {
		t.Fatal(err)
	}
	if s.params != DefaultKDFParams() {
		t.Errorf("zero params not defaulted: %+v", s.params)
	}
}
