// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package asset

// Error codes for asset loading failures.
const (
	CodeBadLabel       = "ASSET_BAD_LABEL"
	CodeNoLoader       = "ASSET_NO_LOADER"
	CodeReadFailed     = "ASSET_READ_FAILED"
	CodeDecodeFailed   = "ASSET_DECODE_FAILED"
	CodeBadPattern     = "ASSET_BAD_PATTERN"
	CodeServerRunning  = "ASSET_SERVER_RUNNING"
	CodeUnexpectedType = "ASSET_UNEXPECTED_TYPE"
)
