package core

import (
	"errors"
)

var (
	// ErrStaleHandle is returned when a handle's generation no longer matches
	// the slot it points at. The underlying resource has been freed and the
	// slot possibly reused.
	ErrStaleHandle = errors.New("stale resource handle")
	// ErrSlotNotFound is returned when a handle points at an empty slot.
	ErrSlotNotFound = errors.New("resource slot not found")
	// ErrSwapchainBooting signals that the frame must be skipped because the
	// swapchain is being resized or recreated.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	// ErrCacheMiss is returned when no pre-compressed cache container exists
	// for a texture. Callers fall back to the decode-and-compress path.
	ErrCacheMiss = errors.New("no cached texture container")
	ErrUnknown   = errors.New("unknown")
)
