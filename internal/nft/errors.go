package nft

import "errors"

// Pipeline failure kinds. Stages wrap these with context using %w, so callers
// should match with errors.Is.
var (
	ErrInvalidURL        = errors.New("invalid url")
	ErrNotAnImage        = errors.New("not an image")
	ErrDownload          = errors.New("download failed")
	ErrEmptyPrompt       = errors.New("prompt cannot be empty")
	ErrGenerationFailed  = errors.New("image generation failed")
	ErrGenerationTimeout = errors.New("image generation timed out")
	ErrMissingCredential = errors.New("missing credential")
	ErrPublish           = errors.New("publish failed")
	ErrContractPaused    = errors.New("contract is paused")
	ErrTokenNotFound     = errors.New("token not found")
	ErrNotOwner          = errors.New("signer is not the token owner")
	ErrInvalidSelection  = errors.New("invalid selection")
	ErrLedgerCorrupt     = errors.New("ledger is corrupt")
)
