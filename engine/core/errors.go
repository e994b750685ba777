package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrMissingExtension = errors.New("required vulkan extension is missing")
	ErrMissingLayer     = errors.New("required vulkan layer is missing")
	ErrNoSuitableDevice = errors.New("no physical device meets the requirements")
	ErrNoMemoryType     = errors.New("unable to find suitable memory type")
	ErrAcquireFailed    = errors.New("failed to acquire swapchain image")
	ErrSubmitFailed     = errors.New("failed to submit to graphics queue")
	ErrPresentFailed    = errors.New("failed to present swapchain image")
	ErrInvalidShader    = errors.New("invalid SPIR-V shader binary")
	ErrUnknown          = errors.New("unknown")
)
