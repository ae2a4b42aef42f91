package uploads

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stepform/stepform/internal/schema"
)

func fileField(maxMB int, exts ...string) *schema.Field {
	return &schema.Field{
		ID:                "field_resume",
		Label:             "Resume",
		Type:              schema.TypeFile,
		MaxSizeMB:         maxMB,
		AllowedExtensions: exts,
	}
}

func upload(name string, size int64) *File {
	return &File{Name: name, Size: size, Content: strings.NewReader("content")}
}

func TestValidateStoresAcceptedFile(t *testing.T) {
	store := NewMemoryStore()
	policy := NewPolicy(store, PolicyConfig{}, nil)

	stored, err := policy.Validate(context.Background(), fileField(0), upload("resume.pdf", 1024))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if stored.URL != "mem://"+stored.Key {
		t.Errorf("URL = %q, want mem://%s", stored.URL, stored.Key)
	}
	if !strings.HasPrefix(stored.Key, "uploads/") {
		t.Errorf("Key = %q, want uploads/ prefix", stored.Key)
	}
	if !strings.HasSuffix(stored.Key, ".pdf") {
		t.Errorf("Key = %q, want .pdf suffix", stored.Key)
	}
	if _, ok := store.Object(stored.Key); !ok {
		t.Errorf("object %q not in store", stored.Key)
	}
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	store := NewMemoryStore()
	policy := NewPolicy(store, PolicyConfig{}, nil)

	// Field capped at 1MB, file is 2MB.
	_, err := policy.Validate(context.Background(), fileField(1), upload("resume.pdf", 2*1024*1024))
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
	want := `File "Resume" is too large. Max allowed: 1MB`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d objects, rejected file must not be stored", store.Len())
	}
}

func TestValidateDefaultSizeLimit(t *testing.T) {
	policy := NewPolicy(NewMemoryStore(), PolicyConfig{}, nil)

	_, err := policy.Validate(context.Background(), fileField(0), upload("big.pdf", 6*1024*1024))
	if err == nil {
		t.Fatal("expected error above the 5MB default")
	}
	want := `File "Resume" is too large. Max allowed: 5MB`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestValidateRejectsDisallowedExtension(t *testing.T) {
	store := NewMemoryStore()
	policy := NewPolicy(store, PolicyConfig{}, nil)

	_, err := policy.Validate(context.Background(), fileField(0, "pdf", "doc"), upload("malware.exe", 100))
	if err == nil {
		t.Fatal("expected error for disallowed extension")
	}
	want := `File type .exe is not allowed for "Resume". Allowed: pdf, doc`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d objects, rejected file must not be stored", store.Len())
	}
}

func TestValidateExtensionCaseInsensitive(t *testing.T) {
	policy := NewPolicy(NewMemoryStore(), PolicyConfig{}, nil)

	if _, err := policy.Validate(context.Background(), fileField(0), upload("PHOTO.JPG", 100)); err != nil {
		t.Errorf("uppercase extension rejected: %v", err)
	}
}

func TestValidateConfiguredSizeDefault(t *testing.T) {
	policy := NewPolicy(NewMemoryStore(), PolicyConfig{MaxSizeMB: 2}, nil)

	_, err := policy.Validate(context.Background(), fileField(0), upload("big.pdf", 3*1024*1024))
	if err == nil {
		t.Fatal("expected error above the configured 2MB default")
	}
	want := `File "Resume" is too large. Max allowed: 2MB`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}

	if _, err := policy.Validate(context.Background(), fileField(0), upload("small.pdf", 1024)); err != nil {
		t.Errorf("file under the configured default rejected: %v", err)
	}
}

func TestValidateFieldLimitBeatsConfiguredDefault(t *testing.T) {
	policy := NewPolicy(NewMemoryStore(), PolicyConfig{MaxSizeMB: 1}, nil)

	// Field configures its own 10MB ceiling; the deployment default must not apply.
	if _, err := policy.Validate(context.Background(), fileField(10), upload("big.pdf", 4*1024*1024)); err != nil {
		t.Errorf("field-level limit overridden by configured default: %v", err)
	}
}

func TestValidateConfiguredExtensionDefault(t *testing.T) {
	store := NewMemoryStore()
	policy := NewPolicy(store, PolicyConfig{AllowedExtensions: []string{".PNG", "pdf "}}, nil)

	if _, err := policy.Validate(context.Background(), fileField(0), upload("shot.png", 100)); err != nil {
		t.Errorf("extension in configured allowlist rejected: %v", err)
	}

	_, err := policy.Validate(context.Background(), fileField(0), upload("song.mp3", 100))
	if err == nil {
		t.Fatal("expected error for extension outside the configured allowlist")
	}
	want := `File type .mp3 is not allowed for "Resume". Allowed: png, pdf`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}

	// Field-level allowlist still wins over the configured one.
	if _, err := policy.Validate(context.Background(), fileField(0, "mp3"), upload("song.mp3", 100)); err != nil {
		t.Errorf("field-level allowlist overridden by configured default: %v", err)
	}
}

type failingStore struct{}

func (failingStore) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	return "", errors.New("bucket unreachable")
}

func TestValidateWrapsStoreError(t *testing.T) {
	policy := NewPolicy(failingStore{}, PolicyConfig{}, nil)

	_, err := policy.Validate(context.Background(), fileField(0), upload("resume.pdf", 100))
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	want := `File upload failed for "Resume": bucket unreachable`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestExtension(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"resume.pdf", "pdf"},
		{"archive.tar.gz", "gz"},
		{"PHOTO.JPG", "jpg"},
		{"noext", ""},
	}
	for _, tc := range cases {
		if got := Extension(tc.name); got != tc.want {
			t.Errorf("Extension(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
