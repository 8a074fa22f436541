package convert

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"scs/config"
	"scs/state"
)

const testScript = `[Script Info]
Title: Episode One
PlayResX: 384
PlayResY: 288

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Arial,20,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,0,0,2,10,10,10,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
Dialogue: 0,0:00:01.00,0:00:03.00,Default,,0,0,0,,Hello
Dialogue: 0,0:00:04.00,0:00:06.00,Default,Alice,0,0,0,,{\b1}Strong{\b0} words
`

func testEnvContext(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()

	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration: %v", err)
	}
	env.Cfg = cfg
	env.Log = zap.NewNop()
	return ctx, env
}

func TestStringToVTT(t *testing.T) {
	out, err := StringToVTT(testScript, 0, 0, nil)
	if err != nil {
		t.Fatalf("StringToVTT: %v", err)
	}

	for _, want := range []string{
		"WEBVTT\n",
		"STYLE\n::cue(.Default) { color: #ffffff;",
		"1\n00:00:01.000 --> 00:00:03.000\nHello\n",
		"2\n00:00:04.000 --> 00:00:06.000\n<v.Default Alice><b>Strong</b> words</v>\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFileToVTT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ep1.ass")
	if err := os.WriteFile(path, []byte(testScript), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	out, err := FileToVTT(path, "", 0, 0, nil)
	if err != nil {
		t.Fatalf("FileToVTT: %v", err)
	}
	if !strings.Contains(out, "Hello") {
		t.Errorf("output missing payload:\n%s", out)
	}

	if _, err := FileToVTT(path, "no-such-charset", 0, 0, nil); err == nil {
		t.Error("Expected error for unknown charset name")
	}
}

func TestProcessSingleFile(t *testing.T) {
	ctx, _ := testEnvContext(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()

	srcPath := filepath.Join(srcDir, "ep1.ass")
	if err := os.WriteFile(srcPath, []byte(testScript), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	if err := process(ctx, srcPath, dstDir, zap.NewNop()); err != nil {
		t.Fatalf("process: %v", err)
	}

	out, err := os.ReadFile(filepath.Join(dstDir, "ep1.vtt"))
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.HasPrefix(string(out), "WEBVTT\n") {
		t.Errorf("output does not start with WebVTT header:\n%s", out)
	}
}

func TestProcessDirectory(t *testing.T) {
	ctx, _ := testEnvContext(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()

	if err := os.MkdirAll(filepath.Join(srcDir, "season1"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"season1/ep1.ass", "season1/ep2.ssa", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte(testScript), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if err := process(ctx, srcDir, dstDir, zap.NewNop()); err != nil {
		t.Fatalf("process: %v", err)
	}

	// directory structure preserved, non-scripts skipped
	for _, name := range []string{"season1/ep1.vtt", "season1/ep2.vtt"} {
		if _, err := os.Stat(filepath.Join(dstDir, name)); err != nil {
			t.Errorf("expected output %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dstDir, "notes.vtt")); err == nil {
		t.Error("non-script input produced output")
	}
}

func TestProcessDirectoryNoDirs(t *testing.T) {
	ctx, env := testEnvContext(t)
	env.NoDirs = true
	srcDir, dstDir := t.TempDir(), t.TempDir()

	if err := os.MkdirAll(filepath.Join(srcDir, "season1"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "season1", "ep1.ass"), []byte(testScript), 0644); err != nil {
		t.Fatal(err)
	}

	if err := process(ctx, srcDir, dstDir, zap.NewNop()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dstDir, "ep1.vtt")); err != nil {
		t.Errorf("flattened output missing: %v", err)
	}
}

func TestProcessArchive(t *testing.T) {
	ctx, _ := testEnvContext(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()

	zipPath := filepath.Join(srcDir, "subs.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(zipFile)
	for _, name := range []string{"inner/ep1.ass", "inner/skip.txt"} {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(testScript))
	}
	w.Close()
	zipFile.Close()

	if err := process(ctx, zipPath, dstDir, zap.NewNop()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dstDir, "inner", "ep1.vtt")); err != nil {
		t.Errorf("archive output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dstDir, "inner", "skip.vtt")); err == nil {
		t.Error("non-script archive member produced output")
	}

	t.Run("path inside archive", func(t *testing.T) {
		dst := t.TempDir()
		if err := process(ctx, filepath.Join(zipPath, "inner", "ep1.ass"), dst, zap.NewNop()); err != nil {
			t.Fatalf("process: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dst, "inner", "ep1.vtt")); err != nil {
			t.Errorf("archive output missing: %v", err)
		}
	})
}

func TestProcessMissingSource(t *testing.T) {
	ctx, _ := testEnvContext(t)
	if err := process(ctx, filepath.Join(t.TempDir(), "missing.ass"), t.TempDir(), zap.NewNop()); err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestProcessScriptOverwrite(t *testing.T) {
	ctx, env := testEnvContext(t)
	dstDir := t.TempDir()

	existing := filepath.Join(dstDir, "ep1.vtt")
	if err := os.WriteFile(existing, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	err := processScript(ctx, strings.NewReader(testScript), "ep1.ass", dstDir, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("err = %v, want existing destination rejected", err)
	}

	env.Overwrite = true
	if err := processScript(ctx, strings.NewReader(testScript), "ep1.ass", dstDir, zap.NewNop()); err != nil {
		t.Fatalf("processScript with overwrite: %v", err)
	}
	out, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "WEBVTT\n") {
		t.Errorf("file not overwritten:\n%s", out)
	}
}

func TestProcessScriptUndecodable(t *testing.T) {
	ctx, _ := testEnvContext(t)
	err := processScript(ctx, strings.NewReader("\xff\xff\xff"), "bad.ass", t.TempDir(), zap.NewNop())
	if err == nil {
		t.Error("Expected decode error")
	}
}
