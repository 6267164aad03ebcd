package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainBooting   = errors.New("swapchain resized or recreated, booting")
	ErrNotPrepared        = errors.New("renderer is not prepared for a new frame")
	ErrNoSuitableDevice   = errors.New("no physical device meets the requirements")
	ErrMemoryTypeNotFound = errors.New("no suitable memory type")
	ErrUnknown            = errors.New("unknown")
)
