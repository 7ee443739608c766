package pairing

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate_ProducesSixKnownWords(t *testing.T) {
	code, err := Generate(time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code.Words) != 6 {
		t.Fatalf("expected 6 words, got %d", len(code.Words))
	}
	for _, w := range code.Words {
		if _, ok := wordIndex[w]; !ok {
			t.Errorf("word %q not in wordlist", w)
		}
	}
	if code.Expired() {
		t.Error("freshly generated code reported expired")
	}
}

func TestGenerate_ExpiresAfterTTL(t *testing.T) {
	code, err := Generate(-time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !code.Expired() {
		t.Error("code with negative ttl should already be expired")
	}
}

func TestParseWords_RoundTripsThroughString(t *testing.T) {
	code, err := Generate(time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parsed, err := ParseWords(code.Words[:])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.String() != code.String() {
		t.Errorf("round trip mismatch: %q != %q", parsed.String(), code.String())
	}
	if parsed.Secret() == nil || len(parsed.Secret()) != 32 {
		t.Fatal("parsed code secret should be a 32-byte key")
	}
	for i := range parsed.Secret() {
		if parsed.Secret()[i] != code.Secret()[i] {
			t.Fatal("parsed code should derive the same secret as the original")
		}
	}
}

func TestParseWords_RejectsWrongWordCount(t *testing.T) {
	if _, err := ParseWords([]string{"one", "two"}); err == nil {
		t.Fatal("expected error for wrong word count")
	}
}

func TestParseWords_RejectsUnknownWord(t *testing.T) {
	words := []string{wordlist[0], wordlist[1], wordlist[2], wordlist[3], wordlist[4], "not-a-real-word"}
	if _, err := ParseWords(words); err == nil {
		t.Fatal("expected error for unrecognized word")
	}
}

func TestParseWords_IsCaseAndWhitespaceInsensitive(t *testing.T) {
	words := []string{
		" " + wordlist[10] + " ",
		strings.ToUpper(wordlist[20]),
		wordlist[30],
		wordlist[40],
		wordlist[50],
		wordlist[60],
	}
	if _, err := ParseWords(words); err != nil {
		t.Fatalf("expected normalized words to parse, got: %v", err)
	}
}

func TestParseWords_UnknownExpiryNeverReportsLocallyExpired(t *testing.T) {
	parsed, err := ParseWords([]string{wordlist[0], wordlist[1], wordlist[2], wordlist[3], wordlist[4], wordlist[5]})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Expired() {
		t.Error("a code reconstructed from words with no known expiry should not report expired")
	}
}
