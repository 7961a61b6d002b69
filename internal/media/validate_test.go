package media

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTypeAllowLists(t *testing.T) {
	cases := []struct {
		name        string
		class       AssetClass
		contentType string
		wantErr     bool
	}{
		{"audio mpeg", AssetAudio, "audio/mpeg", false},
		{"audio mp3", AssetAudio, "audio/mp3", false},
		{"audio mpeg3", AssetAudio, "audio/mpeg3", false},
		{"audio x-mpeg-3", AssetAudio, "audio/x-mpeg-3", false},
		{"audio uppercase", AssetAudio, "Audio/MPEG", false},
		{"audio with params", AssetAudio, "audio/mpeg; charset=binary", false},
		{"audio wav rejected", AssetAudio, "audio/wav", true},
		{"audio ogg rejected", AssetAudio, "audio/ogg", true},
		{"audio empty rejected", AssetAudio, "", true},
		{"cover jpeg", AssetCover, "image/jpeg", false},
		{"cover png", AssetCover, "image/png", false},
		{"cover webp", AssetCover, "image/webp", false},
		{"cover gif rejected", AssetCover, "image/gif", true},
		{"cover audio rejected", AssetCover, "audio/mpeg", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateType(tc.class, tc.contentType)
			if tc.wantErr {
				var typeErr *TypeError
				if !errors.As(err, &typeErr) {
					t.Fatalf("ValidateType(%q, %q) = %v, want TypeError", tc.class, tc.contentType, err)
				}
				if typeErr.Class != tc.class {
					t.Fatalf("TypeError class = %q, want %q", typeErr.Class, tc.class)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateType(%q, %q) = %v, want nil", tc.class, tc.contentType, err)
			}
		})
	}
}

func TestValidateSizeCeilings(t *testing.T) {
	if err := ValidateSize(AssetAudio, MaxAudioBytes); err != nil {
		t.Fatalf("audio at ceiling rejected: %v", err)
	}
	if err := ValidateSize(AssetCover, MaxCoverBytes); err != nil {
		t.Fatalf("cover at ceiling rejected: %v", err)
	}
	if err := ValidateSize(AssetAudio, MaxAudioBytes+1); err == nil {
		t.Fatal("audio above ceiling accepted")
	}
	if err := ValidateSize(AssetCover, MaxCoverBytes+1); err == nil {
		t.Fatal("cover above ceiling accepted")
	}
}

func TestSizeErrorMessageFormatsMiB(t *testing.T) {
	err := ValidateSize(AssetAudio, 5<<20)
	var sizeErr *SizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("ValidateSize = %v, want SizeError", err)
	}
	msg := sizeErr.Error()
	if !strings.Contains(msg, "5.0 MiB") {
		t.Fatalf("message %q missing observed size", msg)
	}
	if !strings.Contains(msg, "4.0 MiB") {
		t.Fatalf("message %q missing ceiling", msg)
	}
	if !strings.Contains(msg, "audio") {
		t.Fatalf("message %q missing asset class", msg)
	}
}

func TestMaxBytesPerClass(t *testing.T) {
	if got := MaxBytes(AssetAudio); got != 4<<20 {
		t.Fatalf("MaxBytes(audio) = %d", got)
	}
	if got := MaxBytes(AssetCover); got != 1<<20 {
		t.Fatalf("MaxBytes(cover) = %d", got)
	}
}
