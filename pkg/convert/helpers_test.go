package convert

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"heic-toolkit-go/pkg/codec"
)

// fakeCodec writes a small file for every conversion unless told otherwise
type fakeCodec struct {
	mu      sync.Mutex
	calls   []string
	fail    func(src string, t codec.Target) error
	panicOn string
}

func (f *fakeCodec) Name() string               { return "fake" }
func (f *fakeCodec) Supports(codec.Target) bool { return true }

func (f *fakeCodec) Convert(ctx context.Context, src, dst string, t codec.Target, quality int) error {
	f.mu.Lock()
	f.calls = append(f.calls, dst)
	f.mu.Unlock()

	if f.panicOn != "" && filepath.Base(src) == f.panicOn {
		panic("unexpected state while converting " + src)
	}
	if f.fail != nil {
		if err := f.fail(src, t); err != nil {
			return err
		}
	}
	return os.WriteFile(dst, []byte("converted-"+t.String()), 0o644)
}

func (f *fakeCodec) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// mockCodec is a testify mock of codec.Codec
type mockCodec struct {
	mock.Mock
}

func (m *mockCodec) Name() string               { return "mock" }
func (m *mockCodec) Supports(codec.Target) bool { return true }

func (m *mockCodec) Convert(ctx context.Context, src, dst string, t codec.Target, quality int) error {
	args := m.Called(ctx, src, dst, t, quality)
	return args.Error(0)
}

// writeFiles creates files (and parent directories) under root
func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("heic-bytes"), 0o644))
	}
}

func testOptions(root string, targets ...codec.Target) Options {
	return Options{
		Root:        root,
		Extensions:  []string{".heic", ".heif"},
		Targets:     targets,
		Quality:     80,
		Workers:     2,
		Prefix:      "uploads/images/",
		MappingFile: "conversion_mapping.csv",
	}
}

func outcomesByPath(outcomes []Outcome) map[string]Outcome {
	m := make(map[string]Outcome, len(outcomes))
	for _, o := range outcomes {
		m[o.OriginalPath] = o
	}
	return m
}
