package version_test

import (
	"strings"
	"testing"

	v "github.com/mcp-tool-shop-org/zip-meta-map-site/internal/version"
)

func TestVCSDirtyTriState(t *testing.T) {
	v.VCSDirty = nil
	info := v.Get()
	if info.VCSDirty != nil {
		t.Fatalf("VCSDirty = %v, want nil", info.VCSDirty)
	}

	trueVal := true
	v.VCSDirty = &trueVal
	info = v.Get()
	if info.VCSDirty == nil || *info.VCSDirty != true {
		t.Fatalf("VCSDirty = %v, want true", info.VCSDirty)
	}

	falseVal := false
	v.VCSDirty = &falseVal
	info = v.Get()
	if info.VCSDirty == nil || *info.VCSDirty != false {
		t.Fatalf("VCSDirty = %v, want false", info.VCSDirty)
	}
}

func TestGet_AppName(t *testing.T) {
	if got := v.Get().AppName; got != v.AppName {
		t.Fatalf("AppName = %q, want %q", got, v.AppName)
	}
}

func TestString(t *testing.T) {
	s := v.Get().String()
	if !strings.HasPrefix(s, v.AppName+" ") {
		t.Fatalf("String() = %q", s)
	}
	if !strings.Contains(s, "commit=") {
		t.Fatalf("String() missing commit: %q", s)
	}
}
