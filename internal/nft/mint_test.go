package nft_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"nft-go/internal/model"
	"nft-go/internal/nft"
	"nft-go/internal/testutil"
)

func TestNFTService_Mint(t *testing.T) {
	ctx := context.Background()

	t.Run("takes token id from the mint event", func(t *testing.T) {
		h := newHarness(t)
		h.contract.SetNext(7)

		result, err := h.svc.Mint(ctx, "bafymeta")
		if err != nil {
			t.Fatalf("Mint() error = %v", err)
		}
		if result.TokenID != 7 {
			t.Errorf("TokenID = %d, want 7", result.TokenID)
		}
		if result.Estimated {
			t.Error("Estimated = true, want false")
		}
		if result.TxHash == "" {
			t.Error("TxHash is empty")
		}
	})

	t.Run("falls back to nextTokenId-1 without events", func(t *testing.T) {
		h := newHarness(t)
		h.contract.SetNext(3)
		h.contract.EmitMintEvents = false

		result, err := h.svc.Mint(ctx, "bafymeta")
		if err != nil {
			t.Fatalf("Mint() error = %v", err)
		}
		if result.TokenID != 3 {
			t.Errorf("TokenID = %d, want 3", result.TokenID)
		}
		if !result.Estimated {
			t.Error("Estimated = false, want true")
		}
		if !h.logger.Has("WARN", "estimated") {
			t.Errorf("expected WARN about estimated token id, got:\n%s", h.logger)
		}
	})

	t.Run("refuses when paused", func(t *testing.T) {
		h := newHarness(t)
		h.contract.SetPaused(true)

		_, err := h.svc.Mint(ctx, "bafymeta")
		if !errors.Is(err, nft.ErrContractPaused) {
			t.Fatalf("Mint() error = %v, want ErrContractPaused", err)
		}
		if len(h.contract.Sent()) != 0 {
			t.Errorf("sent %v, want no transactions", h.contract.Sent())
		}
	})

	t.Run("uses gateway url as token uri", func(t *testing.T) {
		h := newHarness(t)

		if _, err := h.svc.Mint(ctx, "bafymeta"); err != nil {
			t.Fatalf("Mint() error = %v", err)
		}
		uri, err := h.contract.TokenURI(ctx, 0)
		if err != nil {
			t.Fatalf("TokenURI() error = %v", err)
		}
		if uri != testutil.TestGateway+"bafymeta" {
			t.Errorf("token uri = %q, want %q", uri, testutil.TestGateway+"bafymeta")
		}
	})
}

func TestNFTService_MintFromURL(t *testing.T) {
	ctx := context.Background()

	t.Run("records the minted token", func(t *testing.T) {
		h := newHarness(t)

		result, err := h.svc.MintFromURL(ctx, "https://example.com/cat.png", nft.MintDetails{})
		if err != nil {
			t.Fatalf("MintFromURL() error = %v", err)
		}

		records, err := h.ledger.All()
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("ledger has %d records, want 1", len(records))
		}
		r := records[0]
		if r.Name != nft.DefaultURLName {
			t.Errorf("Name = %q, want %q", r.Name, nft.DefaultURLName)
		}
		if r.Description != nft.DefaultURLDescription {
			t.Errorf("Description = %q, want %q", r.Description, nft.DefaultURLDescription)
		}
		if r.Prompt != "" {
			t.Errorf("Prompt = %q, want empty", r.Prompt)
		}
		if r.UserID != testutil.TestSignerAddress {
			t.Errorf("UserID = %q, want %q", r.UserID, testutil.TestSignerAddress)
		}
		if r.TokenIDString() != "0" {
			t.Errorf("TokenID = %s, want 0", r.TokenIDString())
		}
		if r.MintTxHash != result.Mint.TxHash {
			t.Errorf("MintTxHash = %q, want %q", r.MintTxHash, result.Mint.TxHash)
		}
		if r.Image != testutil.TestGateway+result.ImageCID {
			t.Errorf("Image = %q, want gateway url of %s", r.Image, result.ImageCID)
		}
		if r.IPFSHash != result.MetadataCID {
			t.Errorf("IPFSHash = %q, want %q", r.IPFSHash, result.MetadataCID)
		}
		if !r.CreatedAt.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)) {
			t.Errorf("CreatedAt = %v", r.CreatedAt)
		}
	})

	t.Run("publishes metadata that references the image", func(t *testing.T) {
		h := newHarness(t)

		result, err := h.svc.MintFromURL(ctx, "https://example.com/cat.png", nft.MintDetails{Name: "Cat", Description: "A cat"})
		if err != nil {
			t.Fatalf("MintFromURL() error = %v", err)
		}

		doc, ok := h.publisher.Content(result.MetadataCID)
		if !ok {
			t.Fatal("metadata document was not published")
		}
		var published model.MetadataRecord
		if err := json.Unmarshal(doc, &published); err != nil {
			t.Fatalf("metadata is not valid JSON: %v", err)
		}
		if published.Name != "Cat" || published.Description != "A cat" {
			t.Errorf("published name/description = %q/%q", published.Name, published.Description)
		}
		if published.Image != testutil.TestGateway+result.ImageCID {
			t.Errorf("published image = %q", published.Image)
		}
		if published.HasTokenID() {
			t.Error("published metadata should not carry a token id")
		}
		if h.publisher.Len() != 2 {
			t.Errorf("published %d objects, want 2", h.publisher.Len())
		}
	})

	t.Run("removes temporary files", func(t *testing.T) {
		h := newHarness(t)

		if _, err := h.svc.MintFromURL(ctx, "https://example.com/cat.png", nft.MintDetails{}); err != nil {
			t.Fatalf("MintFromURL() error = %v", err)
		}
		assertEmptyDir(t, h.scratch)
	})

	t.Run("removes temporary files on failure", func(t *testing.T) {
		h := newHarness(t)
		h.contract.MintErr = testutil.ErrInjected

		_, err := h.svc.MintFromURL(ctx, "https://example.com/cat.png", nft.MintDetails{})
		if !errors.Is(err, testutil.ErrInjected) {
			t.Fatalf("MintFromURL() error = %v, want injected failure", err)
		}
		assertEmptyDir(t, h.scratch)

		records, _ := h.ledger.All()
		if len(records) != 0 {
			t.Errorf("ledger has %d records after failed mint, want 0", len(records))
		}
	})

	t.Run("paused contract stops before download", func(t *testing.T) {
		h := newHarness(t)
		h.contract.SetPaused(true)

		_, err := h.svc.MintFromURL(ctx, "https://example.com/cat.png", nft.MintDetails{})
		if !errors.Is(err, nft.ErrContractPaused) {
			t.Fatalf("MintFromURL() error = %v, want ErrContractPaused", err)
		}
		if len(h.fetcher.URLs) != 0 {
			t.Errorf("fetcher called %d times, want 0", len(h.fetcher.URLs))
		}
		if h.publisher.Len() != 0 {
			t.Errorf("published %d objects, want 0", h.publisher.Len())
		}
	})

	t.Run("acquisition error is returned unchanged", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.Err = nft.ErrNotAnImage

		_, err := h.svc.MintFromURL(ctx, "https://example.com/page.html", nft.MintDetails{})
		if !errors.Is(err, nft.ErrNotAnImage) {
			t.Fatalf("MintFromURL() error = %v, want ErrNotAnImage", err)
		}
		if len(h.contract.Sent()) != 0 {
			t.Errorf("sent %v, want no transactions", h.contract.Sent())
		}
	})

	t.Run("sequential mints get increasing ids", func(t *testing.T) {
		h := newHarness(t)

		for i := 0; i < 3; i++ {
			if _, err := h.svc.MintFromURL(ctx, "https://example.com/cat.png", nft.MintDetails{}); err != nil {
				t.Fatalf("MintFromURL() #%d error = %v", i, err)
			}
		}
		next, err := h.ledger.NextID()
		if err != nil {
			t.Fatalf("NextID() error = %v", err)
		}
		if next != 3 {
			t.Errorf("NextID() = %d, want 3", next)
		}
	})
}

func TestNFTService_MintFromPrompt(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the prompt", func(t *testing.T) {
		h := newHarness(t)

		result, err := h.svc.MintFromPrompt(ctx, "a red fox", nft.MintDetails{})
		if err != nil {
			t.Fatalf("MintFromPrompt() error = %v", err)
		}
		if result.Record.Prompt != "a red fox" {
			t.Errorf("Prompt = %q, want %q", result.Record.Prompt, "a red fox")
		}
		if result.Record.Name != nft.DefaultAIName {
			t.Errorf("Name = %q, want %q", result.Record.Name, nft.DefaultAIName)
		}
		if len(h.generator.Prompts) != 1 || h.generator.Prompts[0] != "a red fox" {
			t.Errorf("generator prompts = %v", h.generator.Prompts)
		}
		assertEmptyDir(t, h.scratch)
	})

	t.Run("confirmed prompt overrides the generation prompt in the record", func(t *testing.T) {
		h := newHarness(t)

		result, err := h.svc.MintFromPrompt(ctx, "a red fox", nft.MintDetails{Prompt: "fox, red"})
		if err != nil {
			t.Fatalf("MintFromPrompt() error = %v", err)
		}
		if result.Record.Prompt != "fox, red" {
			t.Errorf("Prompt = %q, want %q", result.Record.Prompt, "fox, red")
		}
	})

	t.Run("generation failure mints nothing", func(t *testing.T) {
		h := newHarness(t)
		h.generator.Err = nft.ErrGenerationTimeout

		_, err := h.svc.MintFromPrompt(ctx, "a red fox", nft.MintDetails{})
		if !errors.Is(err, nft.ErrGenerationTimeout) {
			t.Fatalf("MintFromPrompt() error = %v, want ErrGenerationTimeout", err)
		}
		if len(h.contract.Sent()) != 0 {
			t.Errorf("sent %v, want no transactions", h.contract.Sent())
		}
	})
}

func TestNFTService_ReplayKeepsMintOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.ledger.FailAppends = 2

	for _, name := range []string{"Early", "Late"} {
		if _, err := h.svc.MintFromURL(ctx, "https://example.com/cat.png", nft.MintDetails{Name: name}); !errors.Is(err, testutil.ErrInjected) {
			t.Fatalf("MintFromURL(%s) error = %v, want injected failure", name, err)
		}
		h.clock.Advance(time.Hour)
	}

	pending, err := h.journal.PendingMints()
	if err != nil {
		t.Fatalf("PendingMints() error = %v", err)
	}
	if len(pending) != 2 || !pending[1].CreatedAt.After(pending[0].CreatedAt) {
		t.Fatalf("pending mints = %v, want two with increasing times", pending)
	}

	result, err := h.svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.Replayed != 2 {
		t.Errorf("Replayed = %d, want 2", result.Replayed)
	}

	records, _ := h.ledger.All()
	if len(records) != 2 {
		t.Fatalf("ledger after replay has %d records, want 2", len(records))
	}
	if records[0].Name != "Early" || records[1].Name != "Late" {
		t.Errorf("ledger order = [%s %s], want [Early Late]", records[0].Name, records[1].Name)
	}
	if records[0].TokenIDString() != "0" || records[1].TokenIDString() != "1" {
		t.Errorf("token ids = [%s %s], want [0 1]", records[0].TokenIDString(), records[1].TokenIDString())
	}
}

func TestNFTService_LedgerFailureIsReplayed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.ledger.FailAppends = 1

	_, err := h.svc.MintFromURL(ctx, "https://example.com/cat.png", nft.MintDetails{Name: "Lost"})
	if !errors.Is(err, testutil.ErrInjected) {
		t.Fatalf("MintFromURL() error = %v, want injected failure", err)
	}
	if !strings.Contains(err.Error(), "reconcile") {
		t.Errorf("error %q should mention reconcile", err)
	}

	pending, err := h.journal.PendingMints()
	if err != nil {
		t.Fatalf("PendingMints() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending mints = %d, want 1", len(pending))
	}

	result, err := h.svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.Replayed != 1 {
		t.Errorf("Replayed = %d, want 1", result.Replayed)
	}
	if result.Corrected {
		t.Error("Corrected = true, want false (chain already at 1)")
	}

	records, _ := h.ledger.All()
	if len(records) != 1 || records[0].Name != "Lost" {
		t.Fatalf("ledger after replay = %v", records)
	}
	if records[0].TokenIDString() != "0" {
		t.Errorf("replayed TokenID = %s, want 0", records[0].TokenIDString())
	}

	pending, _ = h.journal.PendingMints()
	if len(pending) != 0 {
		t.Errorf("pending mints after replay = %d, want 0", len(pending))
	}
}

func TestNFTService_MintUpload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	path := h.scratch + "/upload.png"
	if err := os.WriteFile(path, []byte("uploaded"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := h.svc.MintUpload(ctx, path)
	if err != nil {
		t.Fatalf("MintUpload() error = %v", err)
	}
	if result.ImageURL != testutil.TestGateway+result.ImageCID {
		t.Errorf("ImageURL = %q", result.ImageURL)
	}
	if result.ContractAddress != testutil.TestContractAddress {
		t.Errorf("ContractAddress = %q", result.ContractAddress)
	}

	uri, _ := h.contract.TokenURI(ctx, result.TokenID)
	if uri != result.ImageURL {
		t.Errorf("token uri = %q, want image url %q", uri, result.ImageURL)
	}

	records, _ := h.ledger.All()
	if len(records) != 0 {
		t.Errorf("ledger has %d records, want 0", len(records))
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("scratch dir not empty: %v", names)
	}
}
