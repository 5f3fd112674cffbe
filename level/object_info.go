package level

import "github.com/mogaika/descent_level_browser/fixed"

// Object facets are closed tagged variants, only the payload field named
// after Type is meaningful.

type MovementType uint8

const (
	MovementNone     MovementType = 0
	MovementPhysics  MovementType = 1
	MovementSpinning MovementType = 3
)

type Movement struct {
	Type     MovementType
	Physics  PhysicsInfo
	SpinRate fixed.Vector
}

type PhysicsInfo struct {
	Velocity  fixed.Vector
	Thrust    fixed.Vector
	Mass      fixed.Fix
	Drag      fixed.Fix
	Brakes    fixed.Fix
	RotVel    fixed.Vector
	RotThrust fixed.Vector
	TurnRoll  fixed.FixAng
	Flags     uint16
}

type ControlType uint8

const (
	ControlNone         ControlType = 0
	ControlAI           ControlType = 1
	ControlFlying       ControlType = 2
	ControlSlew         ControlType = 4
	ControlWeapon       ControlType = 5
	ControlExplosion    ControlType = 6
	ControlLight        ControlType = 7
	ControlMorph        ControlType = 8
	ControlPowerup      ControlType = 10
	ControlRepairCenter ControlType = 11
	ControlDebris       ControlType = 12
	ControlRemote       ControlType = 13
	ControlReactor      ControlType = 14
	ControlWaypoint     ControlType = 16
)

type Control struct {
	Type      ControlType
	AI        AIInfo
	Explosion ExplosionInfo
	Weapon    WeaponInfo
	Light     LightInfo
	Powerup   PowerupInfo
	Waypoint  WaypointInfo
}

const AIFlagsCount = 11

type AIInfo struct {
	Behavior        uint8
	Flags           [AIFlagsCount]uint8
	HideSegment     int16
	HideIndex       int16
	PathLength      int16
	CurPathIndex    int16
	FollowPathStart int16
	FollowPathEnd   int16
}

type ExplosionInfo struct {
	SpawnTime    fixed.Fix
	DeleteTime   fixed.Fix
	DeleteObject int16
}

type WeaponInfo struct {
	ParentType      int16
	ParentNum       int16
	ParentSignature int32
}

type LightInfo struct {
	Intensity fixed.Fix
}

type PowerupInfo struct {
	Count int32
}

type WaypointInfo struct {
	ID    int32
	Next  int32
	Speed fixed.Fix
}

type RenderType uint8

const (
	RenderNone       RenderType = 0
	RenderPolygon    RenderType = 1
	RenderFireball   RenderType = 2
	RenderLaser      RenderType = 3
	RenderHostage    RenderType = 4
	RenderPowerup    RenderType = 5
	RenderMorph      RenderType = 6
	RenderWeaponClip RenderType = 7
	RenderParticles  RenderType = 10
	RenderLightning  RenderType = 11
	RenderSound      RenderType = 12
)

const AnimAnglesCount = 10

type Render struct {
	Type      RenderType
	Polygon   PolygonInfo
	Clip      ClipInfo
	Particles ParticlesInfo
	Lightning LightningInfo
	Sound     SoundInfo
}

type PolygonInfo struct {
	Model           int32
	AnimAngles      [AnimAnglesCount][3]fixed.FixAng
	SubobjFlags     int32
	TextureOverride int32
}

type ClipInfo struct {
	Clip      int32
	FrameTime fixed.Fix
	FrameNum  uint8
}

type ParticlesInfo struct {
	Life       int32
	Size       int32
	Parts      int32
	Speed      int32
	Drift      int32
	Brightness int32
	Color      [4]uint8
	Side       uint8
	Type       uint8
	Enabled    uint8
}

type LightningInfo struct {
	Life      int32
	Delay     int32
	Length    int32
	Amplitude int32
	Offset    int32
	WayPoint  int32
	Bolts     int16
	ID        int16
	Target    int16
	Nodes     int16
	Children  int16
	Frames    int16
	Width     uint8
	Angle     uint8
	Style     uint8
	Smoothe   uint8
	Clamp     uint8
	Glow      uint8
	Sound     uint8
	Random    uint8
	InPlane   uint8
	Enabled   uint8
	Color     [4]uint8
}

type SoundInfo struct {
	Filename string
	Volume   fixed.Fix
	Enabled  uint8
}
