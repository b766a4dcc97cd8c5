package core

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveServiceUUID_InvalidLength(t *testing.T) {
	_, err := DeriveServiceUUID(make([]byte, 31), false)
	if !errors.Is(err, ErrInvalidCommitment) {
		t.Fatalf("expected ErrInvalidCommitment, got %v", err)
	}
}

// TestDeriveServiceUUID_S3 exercises the all-0xFF worked example. The
// forced bit lands on the last byte of the whole string (Invariant 2),
// not the fourth group as the scenario's literal text suggests.
func TestDeriveServiceUUID_S3(t *testing.T) {
	commitment := bytes.Repeat([]byte{0xFF}, CommitmentLength)

	got, err := DeriveServiceUUID(commitment, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "FFFFFFFF-FFFF-FFFF-FFFF-FFFFFFFFFFFE"
	if got != want {
		t.Errorf("continuous=false: got %s, want %s", got, want)
	}

	got, err = DeriveServiceUUID(commitment, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = "FFFFFFFF-FFFF-FFFF-FFFF-FFFFFFFFFFFF"
	if got != want {
		t.Errorf("continuous=true: got %s, want %s", got, want)
	}
}

func TestDeriveServiceUUID_Deterministic(t *testing.T) {
	commitment := make([]byte, CommitmentLength)
	for i := range commitment {
		commitment[i] = byte(i)
	}

	first, err := DeriveServiceUUID(commitment, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := DeriveServiceUUID(commitment, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected deterministic output, got %s then %s", first, second)
	}
	if len(first) != 36 {
		t.Errorf("expected 36-character UUID, got %d characters (%s)", len(first), first)
	}
}

func TestDeriveServiceUUID_IgnoresLeadingBytes(t *testing.T) {
	a := make([]byte, CommitmentLength)
	b := make([]byte, CommitmentLength)
	copy(a[16:], bytes.Repeat([]byte{0x42}, 16))
	copy(b[16:], bytes.Repeat([]byte{0x42}, 16))
	a[0] = 0x00
	b[0] = 0xFF

	uuidA, err := DeriveServiceUUID(a, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	uuidB, err := DeriveServiceUUID(b, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uuidA != uuidB {
		t.Errorf("bytes 0:16 should be ignored: got %s and %s", uuidA, uuidB)
	}
}

func TestDeriveServiceUUID_ContinuityBit(t *testing.T) {
	commitment := make([]byte, CommitmentLength)
	for i := range commitment {
		commitment[i] = byte(i * 7)
	}

	discoverable, err := DeriveServiceUUID(commitment, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resumption, err := DeriveServiceUUID(commitment, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lastDigit := func(uuid string) byte {
		return uuid[len(uuid)-1]
	}
	hexLowBit := func(digit byte) int {
		switch {
		case digit >= '0' && digit <= '9':
			return int(digit-'0') & 0x01
		default:
			return int(digit-'A'+10) & 0x01
		}
	}

	if hexLowBit(lastDigit(discoverable)) != 0 {
		t.Errorf("continuous=false should clear the low bit, got %s", discoverable)
	}
	if hexLowBit(lastDigit(resumption)) != 1 {
		t.Errorf("continuous=true should set the low bit, got %s", resumption)
	}
}
