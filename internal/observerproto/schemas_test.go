package observerproto_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"isovoxel/internal/observerproto"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	// Round-trip through JSON so the validator sees generic values.
	validate := func(s *jsonschema.Schema, msg any) {
		t.Helper()
		b, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}

	validate(compile("subscribe.schema.json"), observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		MaxVoxels:       5000,
		Control:         true,
	})
	validate(compile("keys.schema.json"), observerproto.KeysMsg{
		Type:            observerproto.TypeKeys,
		ProtocolVersion: observerproto.Version,
		Up:              true,
	})
	validate(compile("bootstrap.schema.json"), observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         "world_1",
		Digest:          "9f3a",
		WorldParams: observerproto.WorldParams{
			Size:      [3]int{128, 64, 128},
			Seed:      1337,
			BlockSize: 84,
			Viewport:  [2]int{1280, 720},
			FrameHz:   60,
		},
		VoxelPalette: []string{"air", "water", "grass"},
	})

	frame := compile("frame.schema.json")
	validate(frame, observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		Frame:           12,
		Seq:             3,
		Viewpoint:       [3]float64{-20, 0, -4},
		Viewport:        [2]int{1280, 720},
		Recomputed:      true,
		Voxels:          []observerproto.DrawCmd{{X: 10.5, Y: -42, T: 2}},
		Total:           1,
	})
	// Light frame: no voxels.
	validate(frame, observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		Frame:           13,
		Seq:             3,
		Viewpoint:       [3]float64{-20, 0, -4},
		Viewport:        [2]int{1280, 720},
		Total:           1,
	})

	var bad any
	_ = json.Unmarshal([]byte(`{"type":"KEYS","protocol_version":"0.1","up":true}`), &bad)
	if err := compile("keys.schema.json").Validate(bad); err == nil {
		t.Fatalf("expected KEYS without all four keys to fail validation")
	}
}
