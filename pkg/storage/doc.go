// Package storage persists downloaded payloads below the output directory.
//
// Writes are atomic: data lands in a hidden temporary file in the target
// directory and is renamed over the final name, so re-running a rip
// silently replaces earlier downloads. The filesystem is an afero.Fs,
// which lets tests run against an in-memory tree.
//
// Usage:
//
//	manager, err := storage.NewManager("substance3d_ripper_output")
//	path, n, err := manager.Save(storage.JoinSegments("Bricks", "Red Brick"), "red_brick.sbsar", body)
package storage
