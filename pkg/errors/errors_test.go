//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package errors_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	pkgerrors "github.com/joe/fileknight/pkg/errors"
)

func TestEnricher_Categories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      string
		expected pkgerrors.ErrorCategory
	}{
		{"source", "source not found: /home/u/Docs", pkgerrors.CategorySource},
		{"config", "invalid config: entries must be a list", pkgerrors.CategoryConfig},
		{"remote", "ssh: handshake failed: knownhosts: key is unknown", pkgerrors.CategoryRemote},
		{"permission", "open /root/x: permission denied", pkgerrors.CategoryPermission},
		{"disk space", "write /mnt/x: no space left on device", pkgerrors.CategoryDiskSpace},
		{"path", "stat /nope: no such file or directory", pkgerrors.CategoryPath},
		{"delete", "remove /backup/Docs: directory not empty", pkgerrors.CategoryDelete},
		{"copy", "short write", pkgerrors.CategoryCopy},
		{"case insensitive", "OPEN /X: PERMISSION DENIED", pkgerrors.CategoryPermission},
		{"unknown", "something odd happened", pkgerrors.CategoryUnknown},
	}

	enricher := pkgerrors.NewEnricher()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			enriched := enricher.Enrich(errors.New(tt.msg), "") //nolint:err113 // Test input

			var actionable pkgerrors.ActionableError
			g.Expect(errors.As(enriched, &actionable)).To(BeTrue())
			g.Expect(actionable.Category()).To(Equal(tt.expected))
			g.Expect(actionable.Suggestions()).NotTo(BeEmpty())
			g.Expect(actionable.Error()).To(Equal(tt.msg))
		})
	}
}

func TestEnricher_KeepsCauseInChain(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cause := fmt.Errorf("failed to stat /missing: %w", os.ErrNotExist)
	enriched := pkgerrors.NewEnricher().Enrich(cause, "/missing")

	g.Expect(enriched).To(MatchError(os.ErrNotExist))
	g.Expect(errors.Unwrap(enriched)).To(BeIdenticalTo(cause))
}

func TestEnricher_AlreadyActionableUnchanged(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	original := pkgerrors.NewActionableError("permission denied", pkgerrors.CategoryPermission, []string{"x"}, "/a")

	g.Expect(pkgerrors.NewEnricher().Enrich(original, "/b")).To(BeIdenticalTo(original))
}

func TestEnricher_NilStaysNil(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(pkgerrors.NewEnricher().Enrich(nil, "/a")).To(BeNil())
}

func TestEnricher_ExtractsPathFromMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		path string
	}{
		{"open /home/user/file.txt: permission denied", "/home/user/file.txt"},
		{"stat ./relative/dir: no such file or directory", "./relative/dir"},
		{`remove C:\Backup\Docs: directory not empty`, `C:\Backup\Docs`},
		{"disk full", ""},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			enriched := pkgerrors.NewEnricher().Enrich(errors.New(tt.msg), "") //nolint:err113 // Test input

			var actionable pkgerrors.ActionableError
			g.Expect(errors.As(enriched, &actionable)).To(BeTrue())
			g.Expect(actionable.AffectedPath()).To(Equal(tt.path))
		})
	}
}

func TestFormatSuggestions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := pkgerrors.NewActionableError("x", pkgerrors.CategoryCopy, []string{"one", "two"}, "")

	g.Expect(pkgerrors.FormatSuggestions(err)).To(Equal("  • one\n  • two"))
	g.Expect(pkgerrors.FormatSuggestions(fmt.Errorf("wrapped: %w", err))).To(Equal("  • one\n  • two"))
	g.Expect(pkgerrors.FormatSuggestions(nil)).To(BeEmpty())
	g.Expect(pkgerrors.FormatSuggestions(errors.New("plain"))).To(BeEmpty()) //nolint:err113 // Test input
	g.Expect(pkgerrors.FormatSuggestions(
		pkgerrors.NewActionableError("x", pkgerrors.CategoryUnknown, nil, ""),
	)).To(BeEmpty())
}

func TestSuggestionGenerator_MentionsPath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	generator := pkgerrors.NewSuggestionGenerator()

	for _, category := range []pkgerrors.ErrorCategory{
		pkgerrors.CategorySource,
		pkgerrors.CategoryPermission,
		pkgerrors.CategoryPath,
		pkgerrors.CategoryDelete,
		pkgerrors.CategoryDiskSpace,
	} {
		g.Expect(generator.Generate(category, "/data/Docs")).To(ContainElement(ContainSubstring("/data/Docs")), string(category))
	}
}
