package nft

import (
	"fmt"
	"os"
)

// Dependencies are the collaborators of an NFTService. Journal, Fetcher,
// Generator and Metadata may be nil; operations needing a missing one fail.
type Dependencies struct {
	Ledger    Ledger
	Journal   Journal
	Publisher Publisher
	Fetcher   ImageFetcher
	Generator ImageGenerator
	Metadata  MetadataFetcher
	Contract  Contract
	Signer    Signer
	Logger    Logger
	Clock     Clock
	IDGen     IDGenerator

	// ScratchDir holds downloaded images and metadata documents while a
	// pipeline runs. Files are removed when the pipeline returns.
	ScratchDir string
}

// NFTService is the orchestration layer that coordinates acquisition,
// publishing, the contract and the ledger for the CLI and HTTP front door.
type NFTService struct {
	ledger     Ledger
	journal    Journal
	publisher  Publisher
	fetcher    ImageFetcher
	generator  ImageGenerator
	metadata   MetadataFetcher
	contract   Contract
	signer     Signer
	logger     Logger
	clock      Clock
	idgen      IDGenerator
	scratchDir string
}

// NewNFTService creates a new NFTService with the provided dependencies.
func NewNFTService(deps Dependencies) (*NFTService, error) {
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if deps.Logger == nil {
		deps.Logger = NewNopLogger()
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.IDGen == nil {
		deps.IDGen = UUIDGenerator{}
	}
	if deps.ScratchDir == "" {
		deps.ScratchDir = os.TempDir()
	}
	return &NFTService{
		ledger:     deps.Ledger,
		journal:    deps.Journal,
		publisher:  deps.Publisher,
		fetcher:    deps.Fetcher,
		generator:  deps.Generator,
		metadata:   deps.Metadata,
		contract:   deps.Contract,
		signer:     deps.Signer,
		logger:     deps.Logger,
		clock:      deps.Clock,
		idgen:      deps.IDGen,
		scratchDir: deps.ScratchDir,
	}, nil
}

// Contract returns the bound contract, or nil for a ledger-only service.
func (s *NFTService) Contract() Contract {
	return s.contract
}

// Signer returns the configured signer, or nil.
func (s *NFTService) Signer() Signer {
	return s.signer
}

func (s *NFTService) requireChain() error {
	if s.contract == nil {
		return fmt.Errorf("no contract configured")
	}
	if s.signer == nil {
		return fmt.Errorf("no signer configured")
	}
	return nil
}

func (s *NFTService) requirePublisher() error {
	if s.publisher == nil {
		return fmt.Errorf("no publisher configured")
	}
	return nil
}
