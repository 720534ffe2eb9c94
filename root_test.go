package xnb

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestNewFilePair(t *testing.T) {
	tests := []struct {
		mode     Mode
		input    string
		output   string
		expected string
		ok       bool
	}{
		{ModeExtract, "Content/Images/Item_1.xnb", "out/Images/Item_1.xnb", "out/Images/Item_1", true},
		{ModeExtract, "Content/Wave Bank.XWB", "out/Wave Bank.XWB", "out/Wave Bank", true},
		{ModeExtract, "Content/readme.txt", "out/readme.txt", "", false},
		{ModeExtract, "Content/Item_1.png", "out/Item_1.png", "", false},
		{ModeConvert, "art/Item_1.png", "out/Item_1.png", "out/Item_1.xnb", true},
		{ModeConvert, "art/photo.JPEG", "out/photo.JPEG", "out/photo.xnb", true},
		{ModeConvert, "sfx/Item_1.wav", "out/Item_1.wav", "out/Item_1.xnb", true},
		{ModeConvert, "sfx/theme.mp3", "out/theme", "out/theme.xnb", true},
		{ModeConvert, "Content/Item_1.xnb", "out/Item_1.xnb", "", false},
	}
	for _, tt := range tests {
		pair, ok := NewFilePair(tt.mode, tt.input, tt.output)
		if ok != tt.ok {
			t.Errorf("%s %s: ok = %v", tt.mode, tt.input, ok)
			continue
		}
		if ok && pair.Output != tt.expected {
			t.Errorf("%s %s: output %q, expected %q", tt.mode, tt.input, pair.Output, tt.expected)
		}
	}
}

func TestLoadMapping(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"Images/Item_1.xnb",
		"Images/Item_1.png",
		"Sounds/Dig_0.xnb",
		"Sounds/Dig_0.wav",
		"Wave Bank.xwb",
		"notes.txt",
	}
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		mode     Mode
		expected []string
	}{
		{ModeExtract, []string{"Images/Item_1", "Sounds/Dig_0", "Wave Bank"}},
		{ModeConvert, []string{"Images/Item_1.xnb", "Sounds/Dig_0.xnb"}},
	}
	for _, tt := range tests {
		root := NewRoot(dir)
		if err := root.LoadMapping(tt.mode, "/out"); err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, pair := range root.Mapping {
			rel, err := filepath.Rel("/out", pair.Output)
			if err != nil {
				t.Fatal(err)
			}
			got = append(got, filepath.ToSlash(rel))
			if pair.Mode != tt.mode {
				t.Errorf("pair mode %s", pair.Mode)
			}
		}
		sort.Strings(got)
		if len(got) != len(tt.expected) {
			t.Fatalf("%s: got %v, expected %v", tt.mode, got, tt.expected)
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("%s: got %v, expected %v", tt.mode, got, tt.expected)
				break
			}
		}
	}

	root := NewRoot(filepath.Join(dir, "missing"))
	if err := root.LoadMapping(ModeExtract, "/out"); err == nil {
		t.Error("expected error walking a missing root")
	}
}
