package main

import (
	"strings"
	"testing"

	"isovoxel/internal/sim/tuning"
	"isovoxel/internal/sim/world"
)

func TestDescribe(t *testing.T) {
	tune := tuning.Defaults()
	tune.Gen.SizeX, tune.Gen.SizeY, tune.Gen.SizeZ = 8, 8, 8
	w, err := world.New(world.ConfigFromTuning("w", 3, tune))
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	got := describe(w)
	if !strings.HasPrefix(got, "world=w seed=3 size=8x8x8") {
		t.Fatalf("header line: %q", got)
	}
	// y=0 is always bedrock.
	if !strings.Contains(got, "bedrock") {
		t.Fatalf("missing bedrock count: %q", got)
	}
}
