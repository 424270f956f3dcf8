package nft

import (
	"context"
	"encoding/json"
	"fmt"

	"nft-go/internal/fs"
	"nft-go/internal/model"
)

// Default names and descriptions for each acquisition path.
const (
	DefaultURLName        = "NFT from URL"
	DefaultURLDescription = "URL-based NFT"
	DefaultAIName         = "AI-generated NFT"
	DefaultAIDescription  = "AI-generated NFT"

	metadataDocumentName = "metadata.json"
	downloadedImageBase  = "tmp_image"
	generatedImageBase   = "ai_generated_image"
)

// MintResult is the outcome of a confirmed mint.
type MintResult struct {
	TxHash  string
	TokenID uint64
	// Estimated is set when no Transfer or Minted event was found and the id
	// was derived from nextTokenId()-1, which is wrong under concurrent minters.
	Estimated bool
}

// MintDetails are the user-supplied metadata fields. Empty fields take the
// defaults of the acquisition path.
type MintDetails struct {
	Name        string
	Description string
	Prompt      string
}

// PipelineResult is the outcome of a full acquire, publish, mint and record run.
type PipelineResult struct {
	Record      *model.MetadataRecord
	ImageCID    string
	MetadataCID string
	Mint        MintResult
}

// UploadResult is the outcome of minting an uploaded image from the HTTP front door.
type UploadResult struct {
	ImageCID        string
	ImageURL        string
	TxHash          string
	TokenID         uint64
	Estimated       bool
	ContractAddress string
}

// Mint submits mint(gatewayURL(metadataCID)), waits for one confirmation and
// extracts the new token id from the receipt.
func (s *NFTService) Mint(ctx context.Context, metadataCID string) (*MintResult, error) {
	if err := s.requireChain(); err != nil {
		return nil, err
	}
	if err := s.requirePublisher(); err != nil {
		return nil, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return nil, err
	}

	uri := s.publisher.GatewayURL(metadataCID)
	s.logger.Info("minting", "token_uri", uri, "signer", s.signer.Address())

	tx, err := s.contract.Mint(ctx, s.signer, uri)
	if err != nil {
		return nil, fmt.Errorf("submitting mint: %w", err)
	}
	receipt, err := s.contract.WaitMined(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for mint %s: %w", tx.Hash, err)
	}

	result := &MintResult{TxHash: tx.Hash}
	if ev, ok := receipt.FindEvent(EventTransfer, EventMinted); ok {
		result.TokenID = ev.TokenID
	} else {
		next, err := s.contract.NextTokenID(ctx)
		if err != nil {
			return nil, fmt.Errorf("mint %s confirmed but token id unknown: %w", tx.Hash, err)
		}
		if next == 0 {
			return nil, fmt.Errorf("mint %s confirmed but nextTokenId is 0", tx.Hash)
		}
		result.TokenID = next - 1
		result.Estimated = true
		s.logger.Warn("no mint event in receipt, token id estimated from nextTokenId",
			"tx", tx.Hash, "token_id", result.TokenID)
	}

	s.logger.Info("minted", "tx", result.TxHash, "token_id", result.TokenID, "block", receipt.BlockNumber)
	return result, nil
}

// MintFromURL downloads rawURL and runs the publish, mint and record pipeline.
func (s *NFTService) MintFromURL(ctx context.Context, rawURL string, details MintDetails) (*PipelineResult, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("no image fetcher configured")
	}
	return s.runPipeline(ctx, details, MintDetails{Name: DefaultURLName, Description: DefaultURLDescription},
		func(scope *fs.Scope) (string, error) {
			return s.fetcher.FetchByURL(ctx, rawURL, scope.Base(downloadedImageBase))
		})
}

// MintFromPrompt generates an image from prompt and runs the publish, mint
// and record pipeline. details.Prompt, when set, is the confirmed prompt
// stored in the record; otherwise prompt is stored.
func (s *NFTService) MintFromPrompt(ctx context.Context, prompt string, details MintDetails) (*PipelineResult, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("no image generator configured")
	}
	if details.Prompt == "" {
		details.Prompt = prompt
	}
	return s.runPipeline(ctx, details, MintDetails{Name: DefaultAIName, Description: DefaultAIDescription},
		func(scope *fs.Scope) (string, error) {
			return s.generator.Generate(ctx, prompt, scope.Base(generatedImageBase))
		})
}

// MintUpload publishes an already stored image and mints it directly with the
// image URL as token URI. The ledger is not written.
func (s *NFTService) MintUpload(ctx context.Context, imagePath string) (*UploadResult, error) {
	if err := s.requirePublisher(); err != nil {
		return nil, err
	}
	if err := s.requireChain(); err != nil {
		return nil, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return nil, err
	}

	cid, err := s.publisher.Publish(ctx, imagePath)
	if err != nil {
		return nil, fmt.Errorf("publishing upload: %w", err)
	}
	mint, err := s.Mint(ctx, cid)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		ImageCID:        cid,
		ImageURL:        s.publisher.GatewayURL(cid),
		TxHash:          mint.TxHash,
		TokenID:         mint.TokenID,
		Estimated:       mint.Estimated,
		ContractAddress: s.contract.Address(),
	}, nil
}

func (s *NFTService) runPipeline(ctx context.Context, details, defaults MintDetails, acquire func(*fs.Scope) (string, error)) (*PipelineResult, error) {
	if err := s.requirePublisher(); err != nil {
		return nil, err
	}
	if err := s.requireChain(); err != nil {
		return nil, err
	}
	// Fail before spending on downloads, generation and pinning.
	if err := s.ensureNotPaused(ctx); err != nil {
		return nil, err
	}

	scope, err := fs.NewScope(s.scratchDir, s.idgen.New())
	if err != nil {
		return nil, fmt.Errorf("creating scratch space: %w", err)
	}
	defer func() {
		if err := scope.Cleanup(); err != nil {
			s.logger.Warn("failed to remove temporary files", "error", err)
		}
	}()

	imagePath, err := acquire(scope)
	if err != nil {
		return nil, err
	}
	scope.Track(imagePath)

	imageCID, err := s.publisher.Publish(ctx, imagePath)
	if err != nil {
		return nil, fmt.Errorf("publishing image: %w", err)
	}
	s.logger.Info("image published", "cid", imageCID)

	record := &model.MetadataRecord{
		Name:        firstNonEmpty(details.Name, defaults.Name),
		Description: firstNonEmpty(details.Description, defaults.Description),
		Image:       s.publisher.GatewayURL(imageCID),
		Prompt:      details.Prompt,
		UserID:      s.signer.Address(),
		CreatedAt:   s.clock.Now().UTC(),
	}

	doc, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	docPath, err := scope.WriteFile(metadataDocumentName, doc)
	if err != nil {
		return nil, err
	}
	metadataCID, err := s.publisher.Publish(ctx, docPath)
	if err != nil {
		return nil, fmt.Errorf("publishing metadata: %w", err)
	}
	s.logger.Info("metadata published", "cid", metadataCID)

	mint, err := s.Mint(ctx, metadataCID)
	if err != nil {
		return nil, err
	}

	record.TokenURI = s.publisher.GatewayURL(metadataCID)
	record.IPFSHash = metadataCID
	record.MintTxHash = mint.TxHash
	record.SetTokenID(mint.TokenID)

	if err := s.recordMint(record, mint, metadataCID); err != nil {
		return nil, err
	}

	return &PipelineResult{
		Record:      record,
		ImageCID:    imageCID,
		MetadataCID: metadataCID,
		Mint:        *mint,
	}, nil
}

// recordMint journals the confirmed mint, appends it to the ledger and marks
// the journal entry done. A failed append leaves the entry pending so that
// Reconcile can replay it.
func (s *NFTService) recordMint(record *model.MetadataRecord, mint *MintResult, metadataCID string) error {
	if s.journal != nil {
		entry := &model.MintJournalEntry{
			TxHash:      mint.TxHash,
			TokenID:     mint.TokenID,
			MetadataCID: metadataCID,
			Record:      *record,
			CreatedAt:   s.clock.Now(),
		}
		if err := s.journal.RecordMint(entry); err != nil {
			s.logger.Error("failed to journal mint", "tx", mint.TxHash, "error", err)
		}
	}

	if err := s.ledger.Append(record); err != nil {
		s.logger.Error("minted but ledger append failed", "tx", mint.TxHash, "token_id", mint.TokenID, "error", err)
		return fmt.Errorf("token %d minted in %s but not recorded (run reconcile to replay): %w",
			mint.TokenID, mint.TxHash, err)
	}

	if s.journal != nil {
		if err := s.journal.MarkMintRecorded(mint.TxHash); err != nil {
			s.logger.Warn("failed to mark journal entry recorded", "tx", mint.TxHash, "error", err)
		}
	}
	return nil
}

func (s *NFTService) ensureNotPaused(ctx context.Context) error {
	paused, err := s.contract.Paused(ctx)
	if err != nil {
		return fmt.Errorf("checking paused: %w", err)
	}
	if paused {
		return ErrContractPaused
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
