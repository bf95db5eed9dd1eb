package render

import "github.com/cockroachdb/errors"

// ErrSwapchainRetired marks acquire or present results that mean the
// swapchain no longer matches the surface and must be rebuilt before any
// further use.
var ErrSwapchainRetired = errors.New("swapchain retired")

// ErrSwapchainSuboptimal marks a present that succeeded against a swapchain
// that no longer matches the surface exactly. The image was queued; the
// swapchain should still be rebuilt.
var ErrSwapchainSuboptimal = errors.New("swapchain suboptimal")
