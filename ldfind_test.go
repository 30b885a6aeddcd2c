package ldfind

import (
	"debug/elf"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sliverarmory/ldfind/diag"
	"github.com/sliverarmory/ldfind/emit"
	"github.com/sliverarmory/ldfind/helper"
	"github.com/sliverarmory/ldfind/loader"
	"github.com/sliverarmory/ldfind/query"
	"github.com/spf13/afero"
)

type fakeResolver struct {
	tokens   loader.Tokens
	warnings []diag.Warning
}

func (f fakeResolver) Resolve() (loader.Tokens, []diag.Warning) {
	return f.tokens, f.warnings
}

// uniqueInspector gives every path its own identity unless listed.
type uniqueInspector map[string]emit.FileInfo

func (u uniqueInspector) Inspect(path string) (emit.FileInfo, error) {
	if info, ok := u[path]; ok {
		return info, nil
	}
	ino := uint64(len(u) + 1000)
	u[path] = emit.FileInfo{Identity: emit.Identity{Dev: 7, Ino: ino}}
	return u[path], nil
}

type fakeDynamic map[elf.DynTag]string

func (f fakeDynamic) DynString(tag elf.DynTag) (string, bool, error) {
	v, ok := f[tag]
	return v, ok, nil
}

var testTokens = loader.Tokens{Lib: "lib64", Platform: "x86_64", Origin: "/opt/app/bin"}

func memFs(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		if err := afero.WriteFile(fs, f, []byte("\x7fELF"), 0o755); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	return fs
}

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func testOptions(t *testing.T, env map[string]string, files ...string) []Option {
	return []Option{
		WithFs(memFs(t, files...)),
		WithLookupEnv(envOf(env)),
		WithResolver(fakeResolver{tokens: testTokens, warnings: []diag.Warning{diag.New(diag.LibAssumed, "assuming $LIB is lib64")}}),
		WithDynamicReader(fakeDynamic{elf.DT_RUNPATH: "$ORIGIN/../lib"}),
		WithInspector(uniqueInspector{}),
		WithRunner(helper.RunnerFunc(func(helper.Command) ([]byte, error) { return nil, errors.New("no ldconfig in tests") })),
	}
}

func TestResolveFromWhere(t *testing.T) {
	opts := testOptions(t, map[string]string{"LD_LIBRARY_PATH": "/opt/lib:/usr/$LIB"},
		"/opt/lib/libfoo.so.1",
		"/opt/lib/libbar.so.1",
		"/usr/lib64/libfoo.so.1",
		"/extra/libfoo.so.1",
	)
	opts = append(opts, WithExtraPaths("/extra"))

	result, err := Resolve("FROM LD_LIBRARY_PATH, extra_paths WHERE libfoo.so", 4096, opts...)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []emit.Row{
		{Number: 1, Warnings: []diag.Warning{diag.New(diag.LibAssumed, "assuming $LIB is lib64")}},
		{Number: 2, Source: "extra_paths", Path: "/extra/libfoo.so.1"},
		{Number: 3, Source: "LD_LIBRARY_PATH", Path: "/opt/lib/libfoo.so.1"},
		{Number: 4, Source: "LD_LIBRARY_PATH", Path: "/usr/lib64/libfoo.so.1", Warnings: []diag.Warning{
			diag.New(diag.Replaced, "/usr/$LIB with /usr/lib64"),
		}},
	}
	if diff := cmp.Diff(want, result.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"LD_LIBRARY_PATH", "extra_paths"}, result.Sources); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
	if result.Tokens != testTokens {
		t.Fatalf("tokens = %+v", result.Tokens)
	}
	if !strings.Contains(string(result.Output), "3,LD_LIBRARY_PATH,/opt/lib/libfoo.so.1,\n") {
		t.Fatalf("output missing row 3:\n%s", result.Output)
	}
}

func TestResolveRunPathOrigin(t *testing.T) {
	opts := testOptions(t, nil, "/opt/app/lib/libplugin.so")
	result, err := Resolve("FROM DT_RUNPATH, DT_RPATH WHERE libplugin.so", 4096, opts...)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	last := result.Rows[len(result.Rows)-1]
	if last.Source != "DT_RUNPATH" || last.Path != "/opt/app/bin/../lib/libplugin.so" {
		t.Fatalf("last row = %+v", last)
	}
}

func TestResolveDynamicUnavailable(t *testing.T) {
	opts := append(testOptions(t, nil), WithDynamicReader(nil), WithWarningLevel(1))
	result, err := Resolve("FROM DT_RPATH,DT_RUNPATH", 4096, opts...)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var got []diag.Code
	for _, row := range result.Rows {
		for _, w := range row.Warnings {
			got = append(got, w.Code)
		}
	}
	if diff := cmp.Diff([]diag.Code{diag.DynamicUnavailable, diag.DynamicUnavailable}, got); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSyntaxError(t *testing.T) {
	result, err := Resolve("WHERE libc.so.6 FROM LD_PRELOAD", 4096, testOptions(t, nil)...)
	if !errors.Is(err, query.ErrSyntax) {
		t.Fatalf("Resolve error = %v, want ErrSyntax", err)
	}
	var syntaxErr *query.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error %T is not a *query.SyntaxError", err)
	}
	if result == nil || len(result.Rows) != 1 {
		t.Fatalf("want exactly one diagnostic row, got %+v", result)
	}
	if result.Rows[0].Warnings[0].Code != diag.SyntaxError {
		t.Fatalf("row = %+v", result.Rows[0])
	}
	if out := string(result.Output); !strings.HasPrefix(out, "1,,,") || !strings.Contains(out, "WHERE precedes FROM") {
		t.Fatalf("output = %q", result.Output)
	}
}

func TestResolveInvalidArguments(t *testing.T) {
	if _, err := Resolve("", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Resolve capacity 0 = %v", err)
	}
	if _, err := ResolveNames(nil, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("ResolveNames capacity -1 = %v", err)
	}
	long := strings.Repeat("x", MaxNameLength+1)
	if _, err := ResolveNames([]string{"libc.so.6", long}, 4096); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("ResolveNames long name = %v", err)
	}
}

func TestLongestNameAcceptedByBothEntryPoints(t *testing.T) {
	name := strings.Repeat("x", MaxNameLength)
	if _, err := ResolveNames([]string{name}, 4096, testOptions(t, nil)...); err != nil {
		t.Fatalf("ResolveNames(%d-byte name) = %v", len(name), err)
	}
	if _, err := Resolve("FROM extra_paths WHERE "+name, 4096, testOptions(t, nil)...); err != nil {
		t.Fatalf("Resolve(%d-byte name) = %v", len(name), err)
	}
}

func TestResolveNames(t *testing.T) {
	opts := testOptions(t, map[string]string{"LD_PRELOAD": "/preload/libhook.so"}, "/lib64/libz.so.1", "/usr/lib/libz.so.1")
	result, err := ResolveNames([]string{"libz.so.1", "libhook.so"}, 8192, opts...)
	if err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}
	if diff := cmp.Diff(query.StandardSources(), result.Sources); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
	var got []string
	for _, row := range result.Rows {
		if row.Path != "" {
			got = append(got, row.Source+" "+row.Path)
		}
	}
	want := []string{
		"default_paths /lib64/libz.so.1",
		"LD_PRELOAD /preload/libhook.so",
		"default_paths /usr/lib/libz.so.1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveRestartMatchesLargeBuffer(t *testing.T) {
	var files []string
	for i := range 40 {
		files = append(files, fmt.Sprintf("/libs/libx%02d.so", i))
	}
	statement := "FROM extra_paths WHERE libx"

	small, err := Resolve(statement, 1<<16, append(testOptions(t, nil, files...), WithExtraPaths("/libs"), WithCandidateCapacity(1))...)
	if err != nil {
		t.Fatalf("Resolve small: %v", err)
	}
	large, err := Resolve(statement, 1<<16, append(testOptions(t, nil, files...), WithExtraPaths("/libs"), WithCandidateCapacity(1024))...)
	if err != nil {
		t.Fatalf("Resolve large: %v", err)
	}
	if diff := cmp.Diff(large.Rows, small.Rows); diff != "" {
		t.Fatalf("restart changed rows (-large +small):\n%s", diff)
	}
	if len(small.Rows) != 41 {
		t.Fatalf("got %d rows, want 41", len(small.Rows))
	}
}

func TestResolveCandidateCapacityExhausted(t *testing.T) {
	var files []string
	for i := range 200 {
		files = append(files, fmt.Sprintf("/libs/libx%03d.so", i))
	}
	opts := append(testOptions(t, nil, files...), WithExtraPaths("/libs"), WithCandidateCapacity(1))
	_, err := Resolve("FROM extra_paths", 1<<20, opts...)
	if !errors.Is(err, ErrCapacity) || !errors.Is(err, ErrCandidateCapacity) {
		t.Fatalf("Resolve error = %v, want candidate capacity", err)
	}
}

func TestResolveOutputOverflow(t *testing.T) {
	opts := append(testOptions(t, nil, "/a/libfoo.so", "/b/libfoo.so", "/c/libfoo.so"), WithExtraPaths("/a:/b:/c"))
	result, err := Resolve("FROM extra_paths", 100, opts...)
	if !errors.Is(err, ErrCapacity) || !errors.Is(err, emit.ErrOverflow) {
		t.Fatalf("Resolve error = %v, want output overflow", err)
	}
	if !strings.HasSuffix(string(result.Output), emit.OverflowMarker) {
		t.Fatalf("output %q lacks overflow marker", result.Output)
	}
	if len(result.Output) > 100 {
		t.Fatalf("output is %d bytes, capacity 100", len(result.Output))
	}
}
