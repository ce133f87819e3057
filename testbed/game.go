package testbed

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/importer"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	cameraMoveSpeed = float32(2.5)
	cameraTurnSpeed = float32(1.8)
	cubeSpinSpeed   = 0.5
)

// gameState is the demo scene: the builtin cube spinning in place, with a
// free-fly camera.
type gameState struct {
	records         []metadata.SpawnRecord
	worldTransforms []mgl32.Mat4

	meshObjects metadata.BufferHandle
	materials   metadata.BufferHandle

	camera *components.Camera
	angle  float32
	aspect float32
}

func NewTestGame() *engine.Game {
	state := &gameState{
		camera: components.NewCamera(),
		aspect: 16.0 / 9.0,
	}
	game := &engine.Game{
		State: state,
	}
	game.FnInitialize = func() error {
		return initialize(game, state)
	}
	game.FnUpdate = func(deltaTime float64) error {
		return update(state, deltaTime)
	}
	game.FnRender = func(deltaTime float64) (*metadata.RenderPacket, error) {
		return render(state)
	}
	game.FnOnResize = func(width, height uint32) error {
		if height != 0 {
			state.aspect = float32(width) / float32(height)
		}
		return nil
	}
	return game
}

func initialize(game *engine.Game, state *gameState) error {
	records, err := game.SystemManager.ImportScene(importer.BuiltinCube())
	if err != nil {
		return err
	}
	state.records = records
	state.meshObjects = game.SystemManager.MeshObjectsBuffer()
	state.materials = game.SystemManager.MaterialsBuffer()

	// Spawn records are parent-first, so world transforms resolve in one
	// forward pass.
	state.worldTransforms = make([]mgl32.Mat4, len(records))
	for i, record := range records {
		if record.ParentIndex < 0 {
			state.worldTransforms[i] = record.LocalTransform
			continue
		}
		state.worldTransforms[i] = state.worldTransforms[record.ParentIndex].Mul4(record.LocalTransform)
	}

	state.camera.SetPosition(mgl32.Vec3{0, 1.5, 3})
	state.camera.SetEulerRotation(mgl32.Vec3{-0.45, 0, 0})

	core.LogInfo("testbed scene ready: %d spawn records", len(records))
	return nil
}

func update(state *gameState, deltaTime float64) error {
	state.angle += cubeSpinSpeed * float32(deltaTime)

	move := cameraMoveSpeed * float32(deltaTime)
	turn := cameraTurnSpeed * float32(deltaTime)

	if core.InputIsKeyDown(core.KEY_W) {
		state.camera.MoveForward(move)
	}
	if core.InputIsKeyDown(core.KEY_S) {
		state.camera.MoveBackward(move)
	}
	if core.InputIsKeyDown(core.KEY_A) {
		state.camera.MoveLeft(move)
	}
	if core.InputIsKeyDown(core.KEY_D) {
		state.camera.MoveRight(move)
	}
	if core.InputIsKeyDown(core.KEY_LEFT) {
		state.camera.Yaw(turn)
	}
	if core.InputIsKeyDown(core.KEY_RIGHT) {
		state.camera.Yaw(-turn)
	}
	if core.InputIsKeyDown(core.KEY_UP) {
		state.camera.Pitch(turn)
	}
	if core.InputIsKeyDown(core.KEY_DOWN) {
		state.camera.Pitch(-turn)
	}
	return nil
}

func render(state *gameState) (*metadata.RenderPacket, error) {
	view := state.camera.GetView()
	projection := mgl32.Perspective(mgl32.DegToRad(45), state.aspect, 0.1, 100)
	spin := mgl32.HomogRotate3DY(state.angle)

	commands := make([]metadata.DrawCommand, 0, len(state.records))
	for i, record := range state.records {
		if record.Mesh == nil || record.Material == nil {
			continue
		}
		commands = append(commands, metadata.DrawCommand{
			Mesh:      *record.Mesh,
			Material:  *record.Material,
			Transform: spin.Mul4(state.worldTransforms[i]),
		})
	}

	return &metadata.RenderPacket{
		View:        view,
		Projection:  projection,
		MeshObjects: state.meshObjects,
		Materials:   state.materials,
		Commands:    commands,
	}, nil
}
