package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeKeys      = "KEYS"
	TypeFrame     = "FRAME"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// MaxVoxels caps the draw list per frame; 0 means the server default.
	MaxVoxels int `json:"max_voxels,omitempty"`
	// Control asks for KEYS messages from this session to steer the viewpoint.
	Control bool `json:"control,omitempty"`
}

// Client -> Server. Full directional key state; replaces the previous one.
type KeysMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Digest          string      `json:"digest"`
	WorldParams     WorldParams `json:"world_params"`
	VoxelPalette    []string    `json:"voxel_palette"`
}

type WorldParams struct {
	Size      [3]int  `json:"size"`
	Seed      int64   `json:"seed"`
	BlockSize float64 `json:"block_size"`
	Viewport  [2]int  `json:"viewport"`
	FrameHz   int     `json:"frame_hz"`
}

// Server -> Client. Sent every frame. Voxels is only present when the
// visible set changed since the last frame this session received.
type FrameMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Frame           uint64 `json:"frame"`

	// Seq identifies the visible set; equal Seq means an identical draw list.
	Seq        uint64     `json:"seq"`
	Viewpoint  [3]float64 `json:"viewpoint"`
	Viewport   [2]int     `json:"viewport"`
	Recomputed bool       `json:"recomputed"`

	Voxels    []DrawCmd `json:"voxels,omitempty"`
	Total     int       `json:"total"`
	Truncated bool      `json:"truncated,omitempty"`
}

// DrawCmd is one textured square at a viewpoint-relative screen position;
// T indexes VoxelPalette.
type DrawCmd struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T uint8   `json:"t"`
}
