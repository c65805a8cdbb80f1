package dbus

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSignatureRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"y",
		"b",
		"n",
		"q",
		"i",
		"u",
		"x",
		"t",
		"d",
		"h",
		"s",
		"o",
		"g",
		"v",
		"ay",
		"as",
		"a{ys}",
		"a{sv}",
		"(yy)",
		"(y(y(y(y))))",
		"a(ii)",
		"yyyyuua(yv)",
		"(a{sv}as)",
	}
	for _, tc := range tests {
		sig, err := ParseSignature(tc)
		if err != nil {
			t.Errorf("ParseSignature(%q) failed: %v", tc, err)
			continue
		}
		if got := sig.String(); got != tc {
			t.Errorf("ParseSignature(%q).String() = %q, want %q", tc, got, tc)
		}
	}
}

func TestParseSignatureDictEntry(t *testing.T) {
	sig, err := ParseSignature("a{ys}")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	want := []element{
		{Type: Array},
		{Type: DictEntry},
		{Type: DictEntryLength, Len: 2},
		{Type: Byte},
		{Type: String},
	}
	if diff := cmp.Diff(want, sig.elems); diff != "" {
		t.Errorf("a{ys} vectorized form differs (-want +got):\n%s", diff)
	}
}

func TestParseSignatureNestedStruct(t *testing.T) {
	sig, err := ParseSignature("(y(y(y(y))))")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	want := []element{
		{Type: Struct}, {Type: StructLength, Len: 2},
		{Type: Byte},
		{Type: Struct}, {Type: StructLength, Len: 2},
		{Type: Byte},
		{Type: Struct}, {Type: StructLength, Len: 2},
		{Type: Byte},
		{Type: Struct}, {Type: StructLength, Len: 1},
		{Type: Byte},
	}
	if diff := cmp.Diff(want, sig.elems); diff != "" {
		t.Errorf("nested struct vectorized form differs (-want +got):\n%s", diff)
	}
}

func TestParseSignatureErrors(t *testing.T) {
	tests := []struct {
		sig     string
		wantErr error
	}{
		{"(y", ErrUnbalancedStruct},
		{"()", ErrEmptyStruct},
		{"a{sx", ErrUnbalancedDict},
		{"a{vs}", ErrDictKeyNotBasic},
		{"{ys}", ErrDictOutsideArray},
		{"a", ErrArrayMissingElem},
		{"Z", ErrUnknownTypeCode},
	}
	for _, tc := range tests {
		_, err := ParseSignature(tc.sig)
		if err == nil {
			t.Errorf("ParseSignature(%q) succeeded, want error %v", tc.sig, tc.wantErr)
			continue
		}
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("ParseSignature(%q) = error %v, want %v", tc.sig, err, tc.wantErr)
		}
	}
}

func TestParseSignatureTooLong(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'y'
	}
	if _, err := ParseSignature(string(long)); !errors.Is(err, ErrTooLong) {
		t.Errorf("ParseSignature of 256-byte signature = %v, want ErrTooLong", err)
	}
}

func TestParseSignatureTooDeep(t *testing.T) {
	// 40 nested arrays exceeds the 32-deep array/struct limit.
	deep := ""
	for i := 0; i < 40; i++ {
		deep += "a"
	}
	deep += "y"
	if _, err := ParseSignature(deep); !errors.Is(err, ErrTooDeep) {
		t.Errorf("ParseSignature of 40-deep array = %v, want ErrTooDeep", err)
	}
}

func TestIsValidObjectPath(t *testing.T) {
	valid := []string{"/", "/a", "/a/b", "/com/example/MusicPlayer1"}
	invalid := []string{"", "a", "a//b", "a/b/", "/a/", "/a//b", "/a/b/"}
	for _, p := range valid {
		if !IsValidObjectPath(p) {
			t.Errorf("IsValidObjectPath(%q) = false, want true", p)
		}
	}
	for _, p := range invalid {
		if IsValidObjectPath(p) {
			t.Errorf("IsValidObjectPath(%q) = true, want false", p)
		}
	}
}

