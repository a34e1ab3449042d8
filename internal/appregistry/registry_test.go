package appregistry

import (
	"testing"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/logger"
)

func TestLoadDefaultsAndResolve(t *testing.T) {
	r := New(logger.Default())
	if err := r.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}

	pkg, err := r.Resolve("chrome")
	if err != nil {
		t.Fatalf("Resolve(chrome): %v", err)
	}
	if pkg != "com.android.chrome" {
		t.Errorf("expected com.android.chrome, got %q", pkg)
	}

	if _, err := r.Resolve("  Chrome  "); err != nil {
		t.Errorf("expected whitespace/case-insensitive resolve to succeed, got %v", err)
	}
}

func TestResolveAlias(t *testing.T) {
	r := New(logger.Default())
	if err := r.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	pkg, err := r.Resolve("浏览器")
	if err != nil {
		t.Fatalf("Resolve(浏览器): %v", err)
	}
	if pkg != "com.android.chrome" {
		t.Errorf("expected com.android.chrome, got %q", pkg)
	}
}

func TestResolveUnknownApp(t *testing.T) {
	r := New(logger.Default())
	if err := r.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	_, err := r.Resolve("some nonexistent app")
	if !apperrors.Is(err, apperrors.UnknownApp) {
		t.Fatalf("expected UnknownApp, got %v", err)
	}
}

func TestListSupportedReturnsCopy(t *testing.T) {
	r := New(logger.Default())
	if err := r.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	list := r.ListSupported()
	if len(list) == 0 {
		t.Fatal("expected a non-empty registry")
	}
	list[0].PackageID = "mutated"
	again := r.ListSupported()
	if again[0].PackageID == "mutated" {
		t.Fatal("ListSupported should return a defensive copy")
	}
}
