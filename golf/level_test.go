package golf

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"
)

func TestDecodeLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"ok", `{"ballStart":{"x":1,"y":2},"holePosition":{"x":3,"y":4}}`, ""},
		{"no ball", `{"holePosition":{"x":3,"y":4}}`, "ballStart"},
		{"no hole", `{"ballStart":{"x":1,"y":2}}`, "holePosition"},
		{"bad obstacle", `{"ballStart":{"x":1,"y":2},"holePosition":{"x":3,"y":4},"obstacles":[{"x":0,"y":0,"width":0,"height":5}]}`, "obstacle 0"},
		{"garbage", `<html>`, "decode level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lvl, err := DecodeLevel(strings.NewReader(tt.input))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if lvl.HolePosition != (Point{3, 4}) {
					t.Fatalf("level = %+v", lvl)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestDirLevels(t *testing.T) {
	store := DirLevels{FS: fstest.MapFS{
		"hole1.json": {Data: []byte(`{"ballStart":{"x":400,"y":500},"holePosition":{"x":400,"y":100}}`)},
	}}
	lvl, err := store.Level(context.Background(), 1)
	if err != nil || lvl.BallStart != (Point{400, 500}) {
		t.Fatalf("level 1 = %+v, %v", lvl, err)
	}
	if _, err := store.Level(context.Background(), 2); err == nil {
		t.Fatalf("missing hole2.json returned no error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Level(ctx, 1); err == nil {
		t.Fatalf("cancelled context ignored")
	}
}

func TestLevelCloneIsIndependent(t *testing.T) {
	lvl := testLevel()
	lvl.Obstacles = []Obstacle{{X: 1, Y: 1, Width: 2, Height: 2}}
	c := lvl.clone()
	c.Obstacles[0].X = 99
	if lvl.Obstacles[0].X != 1 {
		t.Fatalf("clone shares obstacle slice")
	}
}
